// Package reporter is the public facade of the reporting pipeline.
//
// A Reporter owns the replay accumulator, the game image check and two
// long-lived workers: the report queue and the status channel. Each runs on
// its own goroutine and is stopped cooperatively by Close, which waits for
// the report queue's final pass so no pending report goes unattempted.
package reporter
