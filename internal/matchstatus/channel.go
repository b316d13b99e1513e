package matchstatus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gamereporter/internal/gqlapi"
	"gamereporter/internal/identity"
	"gamereporter/internal/logging"
	"gamereporter/internal/metrics"
)

// StatusAbandoned is the status sent for an abandoned match.
const StatusAbandoned = "abandoned"

// DefaultQueueSize bounds pings waiting for the background worker.
const DefaultQueueSize = 64

// ErrClosed is returned when a ping arrives after shutdown.
var ErrClosed = errors.New("status channel closed")

// ErrQueueFull is returned when the background worker is too far behind.
var ErrQueueFull = errors.New("status channel full")

// Client performs the status mutations.
type Client interface {
	ReportMatchStatus(ctx context.Context, input gqlapi.MatchStatusInput) (bool, error)
	ReportMatchCompletion(ctx context.Context, input gqlapi.MatchCompletionInput) (bool, error)
}

// Kind distinguishes ping types.
type Kind string

const (
	KindStatus     Kind = "status"
	KindCompletion Kind = "completion"
	KindAbandon    Kind = "abandonment"
)

// Ping is one status message. Credentials are captured when it is created.
type Ping struct {
	Kind    Kind
	UID     string
	PlayKey string
	MatchID string
	Status  string
	EndMode string
}

// Options wires a Channel.
type Options struct {
	Client    Client
	Identity  identity.Provider
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	QueueSize int
	Timeout   time.Duration
}

// Channel sends status pings either inline or through its own worker. It
// shares nothing with the report queue and never retries.
type Channel struct {
	client   Client
	identity identity.Provider
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration

	pings chan Ping

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New builds a channel. Run must be started for background pings to flow.
func New(opts Options) (*Channel, error) {
	if opts.Client == nil {
		return nil, errors.New("status client required")
	}
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	provider := opts.Identity
	if provider == nil {
		provider = identity.Static{}
	}
	return &Channel{
		client:   opts.Client,
		identity: provider,
		metrics:  opts.Metrics,
		logger:   logging.NewComponentLogger(opts.Logger, "match-status"),
		timeout:  opts.Timeout,
		pings:    make(chan Ping, size),
		done:     make(chan struct{}),
	}, nil
}

// NewStatusPing captures the current credentials for a status ping.
func (c *Channel) NewStatusPing(matchID, status string) Ping {
	uid, playKey := c.identity.Credentials()
	return Ping{Kind: KindStatus, UID: uid, PlayKey: playKey, MatchID: matchID, Status: status}
}

// Report sends a status ping. With background=false it blocks until the
// mutation finishes and returns its result; otherwise it hands the ping to
// the worker and returns true once queued.
func (c *Channel) Report(ctx context.Context, matchID, status string, background bool) (bool, error) {
	ping := c.NewStatusPing(matchID, status)
	if !background {
		return c.Send(ctx, ping)
	}
	if err := c.Enqueue(ping); err != nil {
		return false, err
	}
	return true, nil
}

// ReportCompletion queues a completion ping.
func (c *Channel) ReportCompletion(matchID, endMode string) error {
	uid, playKey := c.identity.Credentials()
	return c.Enqueue(Ping{Kind: KindCompletion, UID: uid, PlayKey: playKey, MatchID: matchID, EndMode: endMode})
}

// ReportAbandonment queues an abandonment ping.
func (c *Channel) ReportAbandonment(matchID string) error {
	uid, playKey := c.identity.Credentials()
	return c.Enqueue(Ping{Kind: KindAbandon, UID: uid, PlayKey: playKey, MatchID: matchID, Status: StatusAbandoned})
}

// Enqueue hands a ping to the worker without blocking.
func (c *Channel) Enqueue(p Ping) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.pings <- p:
		return nil
	default:
		logging.WarnWithContext(c.logger, "status ping dropped", "status_ping_dropped",
			logging.String(logging.FieldMatchID, p.MatchID),
			logging.String("kind", string(p.Kind)),
			logging.String(logging.FieldImpact, "server will not see this status update"),
		)
		return ErrQueueFull
	}
}

// Send performs a single attempt for p and logs the outcome.
func (c *Channel) Send(ctx context.Context, p Ping) (bool, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		ok  bool
		err error
	)
	switch p.Kind {
	case KindCompletion:
		ok, err = c.client.ReportMatchCompletion(ctx, gqlapi.MatchCompletionInput{
			MatchID: p.MatchID, FbUID: p.UID, PlayKey: p.PlayKey, EndMode: p.EndMode,
		})
	default:
		ok, err = c.client.ReportMatchStatus(ctx, gqlapi.MatchStatusInput{
			MatchID: p.MatchID, FbUID: p.UID, PlayKey: p.PlayKey, Status: p.Status,
		})
	}
	c.metrics.StatusPing(string(p.Kind), err == nil && ok)

	logger := c.logger.With(
		logging.String(logging.FieldMatchID, p.MatchID),
		logging.String("kind", string(p.Kind)),
		logging.String("status", p.Status),
		logging.String("end_mode", p.EndMode),
	)
	switch {
	case err != nil:
		logging.ErrorWithContext(logger, "status report failed", "status_report_failed", logging.Error(err))
	case !ok:
		logging.ErrorWithContext(logger, "status report rejected", "status_report_rejected")
	default:
		logger.Info("status report sent", logging.String(logging.FieldEventType, "status_report_sent"))
	}
	return ok, err
}

// Run sends queued pings until Close. Pings already queued when Close is
// called are still sent.
func (c *Channel) Run(ctx context.Context) {
	defer close(c.done)
	for p := range c.pings {
		_, _ = c.Send(ctx, p)
	}
}

// Close stops accepting pings and lets Run finish the backlog.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.pings)
}

// Done is closed when Run returns.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}
