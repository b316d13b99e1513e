package reporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"gamereporter/internal/identity"
	"gamereporter/internal/isocheck"
	"gamereporter/internal/logging"
	"gamereporter/internal/matchstatus"
	"gamereporter/internal/metrics"
	"gamereporter/internal/osd"
	"gamereporter/internal/replay"
	"gamereporter/internal/report"
	"gamereporter/internal/reportqueue"
)

// ErrClosed is returned by operations after Close.
var ErrClosed = errors.New("reporter closed")

// Client is the remote API used by both workers.
type Client interface {
	reportqueue.Client
	matchstatus.Client
}

// Options is the explicit dependency set for one Reporter.
type Options struct {
	Client   Client
	Uploader reportqueue.Uploader
	Identity identity.Provider
	Notifier osd.Notifier
	Recorder reportqueue.Recorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	ISOPath     string
	KnownHashes []string

	MaxAttempts     int
	BackoffStep     time.Duration
	Sleep           reportqueue.Sleeper
	StatusQueueSize int
	StatusTimeout   time.Duration
}

// Reporter is the entry point the game loop talks to. PushReplayData and
// LogReport never block on the network.
type Reporter struct {
	logger      *slog.Logger
	identity    identity.Provider
	accumulator *replay.Accumulator
	iso         *isocheck.Checker
	queue       *reportqueue.Worker
	status      *matchstatus.Channel

	cancel context.CancelFunc
	tasks  []*task

	mu     sync.RWMutex
	closed bool
}

type task struct {
	name string
	done chan struct{}
	err  error
}

// New wires the pipeline and starts the ISO hasher, report worker and
// status worker goroutines.
func New(opts Options) (*Reporter, error) {
	if opts.Client == nil {
		return nil, errors.New("reporter client required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "reporter")
	notifier := opts.Notifier
	if notifier == nil {
		notifier = osd.LogNotifier{Logger: logger}
	}
	provider := opts.Identity
	if provider == nil {
		provider = identity.Static{}
	}

	var isoOpts []isocheck.Option
	if opts.KnownHashes != nil {
		isoOpts = append(isoOpts, isocheck.WithKnownHashes(opts.KnownHashes))
	}
	checker := isocheck.New(notifier, opts.Logger, isoOpts...)

	queue, err := reportqueue.NewWorker(reportqueue.Options{
		Client:      opts.Client,
		Uploader:    opts.Uploader,
		Hashes:      checker,
		Notifier:    notifier,
		Recorder:    opts.Recorder,
		Metrics:     opts.Metrics,
		Logger:      opts.Logger,
		MaxAttempts: opts.MaxAttempts,
		BackoffStep: opts.BackoffStep,
		Sleep:       opts.Sleep,
	})
	if err != nil {
		return nil, fmt.Errorf("report worker: %w", err)
	}
	status, err := matchstatus.New(matchstatus.Options{
		Client:    opts.Client,
		Identity:  provider,
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
		QueueSize: opts.StatusQueueSize,
		Timeout:   opts.StatusTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("status channel: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Reporter{
		logger:      logger,
		identity:    provider,
		accumulator: replay.NewAccumulator(),
		iso:         checker,
		queue:       queue,
		status:      status,
		cancel:      cancel,
	}
	isoPath := opts.ISOPath
	r.spawn("iso-hasher", func() { checker.Run(isoPath) })
	r.spawn("report-queue", func() { queue.Run(ctx) })
	r.spawn("match-status", func() { status.Run(ctx) })
	return r, nil
}

func (r *Reporter) spawn(name string, fn func()) {
	t := &task{name: name, done: make(chan struct{})}
	r.tasks = append(r.tasks, t)
	go func() {
		defer close(t.done)
		defer func() {
			if p := recover(); p != nil {
				t.err = fmt.Errorf("%s panicked: %v", name, p)
				r.logger.Error("worker panicked",
					logging.String(logging.FieldEventType, "worker_panic"),
					logging.String("worker", name),
					logging.Any("panic", p),
					logging.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn()
	}()
}

// StartNewSession is accepted for host compatibility and does nothing.
func (r *Reporter) StartNewSession() {
	r.logger.Debug("new session started", logging.String(logging.FieldEventType, "session_started"))
}

// PushReplayData appends live replay bytes. A chunk starting with the new
// match marker begins a fresh buffer.
func (r *Reporter) PushReplayData(data []byte) {
	r.accumulator.Push(data)
}

// LogReport attaches the current replay snapshot and credentials to rep and
// queues it for delivery.
func (r *Reporter) LogReport(rep *report.GameReport) error {
	if rep == nil {
		return errors.New("report is nil")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		logging.WarnWithContext(r.logger, "report logged after close", "report_after_close",
			logging.String(logging.FieldMatchID, rep.MatchID),
			logging.String(logging.FieldImpact, "report was not delivered"),
		)
		return ErrClosed
	}
	if rep.UID == "" && rep.PlayKey == "" {
		rep.UID, rep.PlayKey = r.identity.Credentials()
	}
	rep.Replay = r.accumulator.Snapshot()
	r.queue.Add(rep)
	return nil
}

// ReportMatchStatus sends a status ping. With background=false the call
// blocks and returns the server's answer without touching the report queue.
func (r *Reporter) ReportMatchStatus(ctx context.Context, matchID, status string, background bool) (bool, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed && background {
		return false, ErrClosed
	}
	return r.status.Report(ctx, matchID, status, background)
}

// ReportCompletion queues a completion ping.
func (r *Reporter) ReportCompletion(matchID, endMode string) error {
	return r.status.ReportCompletion(matchID, endMode)
}

// ReportAbandonment queues an abandonment ping.
func (r *Reporter) ReportAbandonment(matchID string) error {
	return r.status.ReportAbandonment(matchID)
}

// IsoState returns the integrity check state and, once complete, its result.
func (r *Reporter) IsoState() (isocheck.State, isocheck.Result) {
	return r.iso.State()
}

// PendingReports returns the number of reports waiting for delivery.
func (r *Reporter) PendingReports() int {
	return r.queue.Pending()
}

// Close stops both workers after their final pass and waits for all
// goroutines. Abnormal worker exits are logged and returned, never re-panicked.
func (r *Reporter) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.queue.Shutdown()
	r.status.Close()

	var errs []error
	for _, t := range r.tasks {
		<-t.done
		if t.err != nil {
			logging.ErrorWithContext(r.logger, "worker ended abnormally", "worker_join_failed",
				logging.String("worker", t.name),
				logging.Error(t.err),
			)
			errs = append(errs, t.err)
		}
	}
	r.cancel()
	r.logger.Debug("reporter closed", logging.String(logging.FieldEventType, "reporter_closed"))
	return errors.Join(errs...)
}
