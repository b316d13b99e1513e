// Package gqlapi is a minimal client for the reporting GraphQL service.
//
// Responses are inspected with gjson rather than decoded into structs: a
// non-empty errors array is a server failure, and the requested field is read
// from data. Every failure is an *Error whose Kind says which step broke.
package gqlapi
