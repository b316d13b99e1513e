package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldMatchID is the standardized key for online match identifiers.
	FieldMatchID = "match_id"
	// FieldAttempt is the standardized key for a report's delivery attempt number.
	FieldAttempt = "attempt"
	// FieldMode is the standardized key for the online play mode of a report.
	FieldMode = "mode"
	// FieldHandle is the standardized key for host bridge handles.
	FieldHandle = "handle"
	// FieldSessionID identifies one daemon run.
	FieldSessionID = "session_id"
	// FieldEventType classifies log lines for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

type matchIDKey struct{}

// WithMatchID stores a match identifier on the context.
func WithMatchID(ctx context.Context, matchID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, matchIDKey{}, strings.TrimSpace(matchID))
}

// MatchIDFromContext returns the match identifier stored by WithMatchID.
func MatchIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(matchIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := MatchIDFromContext(ctx); ok {
		return logger.With(String(FieldMatchID, id))
	}
	return logger
}
