// Package isocheck verifies the game image against builds known to desync.
//
// A Checker runs once per process on its own goroutine. Reports built while
// the hash is still being computed simply omit it.
package isocheck
