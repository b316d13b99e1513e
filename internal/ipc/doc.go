// Package ipc exposes the daemon to the emulator host over JSON-RPC on a Unix
// domain socket.
//
// The host creates a reporter and receives an opaque handle, then addresses
// every later call (replay chunks, game reports, status pings) with it. A
// destroyed handle is rejected rather than reused.
package ipc
