package gqlapi

import (
	"fmt"
	"strings"
)

// Kind classifies a request failure.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindStatus       Kind = "status"
	KindDecode       Kind = "decode"
	KindServer       Kind = "server"
	KindMissingData  Kind = "missing_data"
	KindMissingField Kind = "missing_field"
)

// Error describes a failed GraphQL exchange.
type Error struct {
	Kind       Kind
	Field      string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("graphql ")
	b.WriteString(string(e.Kind))
	if e.Field != "" {
		b.WriteString(" (")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorKind reports the failure class for logging and journal rows.
func (e *Error) ErrorKind() string {
	if e == nil {
		return ""
	}
	return string(e.Kind)
}
