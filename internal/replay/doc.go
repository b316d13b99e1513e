// Package replay accumulates the raw replay stream produced during a match
// and ships it to the analysis service.
//
// The Accumulator hands out frozen Snapshots so a report can own the bytes of
// its match while the game loop keeps pushing. Wrap/Encode build the fixed
// binary envelope the receiving replay reader expects, and Uploader PUTs the
// gzipped result to the pre-signed URL granted by the metadata exchange.
package replay
