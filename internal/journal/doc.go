// Package journal keeps a local SQLite history of report outcomes.
//
// The journal is diagnostic only. Nothing reads it back into the delivery
// pipeline; the history command and support requests do.
package journal
