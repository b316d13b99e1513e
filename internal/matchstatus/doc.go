// Package matchstatus sends lightweight match status pings.
//
// The channel is independent of the report queue: a stalled report never
// delays a status ping, and pings are never retried.
package matchstatus
