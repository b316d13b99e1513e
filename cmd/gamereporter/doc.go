// Command gamereporter runs the online game reporter daemon and offers
// diagnostics against it.
//
// `gamereporter run` starts the daemon that the emulator host talks to over
// the Unix socket. The remaining commands either query a running daemon
// (status, history) or work offline (iso, envelope, config).
package main
