// Package daemon coordinates the long-running reporter process.
//
// It holds a flock-based lock so only one instance serves the host socket,
// owns the reporters created over IPC in an opaque handle table, and shares
// the API client, uploader, journal and metrics between them. Stop closes
// every reporter so pending reports get their final attempt before exit.
package daemon
