// Package reportqueue delivers game reports in order with bounded retries.
//
// A single Worker goroutine owns delivery. Reports stay at the front of the
// queue until they are acknowledged or run out of attempts, and a granted
// replay upload finishes before the next report is touched. Shutdown makes
// one final pass in which every pending report gets exactly one more attempt.
package reportqueue
