package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"gamereporter/internal/config"
	"gamereporter/internal/handles"
	"gamereporter/internal/identity"
	"gamereporter/internal/journal"
	"gamereporter/internal/logging"
	"gamereporter/internal/metrics"
	"gamereporter/internal/osd"
	"gamereporter/internal/reporter"
	"gamereporter/internal/reportqueue"
)

// ErrNotRunning is returned for reporter operations while the daemon is stopped.
var ErrNotRunning = errors.New("daemon not running")

// Deps are the shared collaborators handed to every reporter the daemon creates.
type Deps struct {
	Client   reporter.Client
	Uploader reportqueue.Uploader
	Identity identity.Provider
	Notifier osd.Notifier
	Journal  *journal.Store
	Metrics  *metrics.Metrics
}

// Daemon owns the reporters created by the host and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	baseLogger *slog.Logger
	deps       Deps

	lockPath string
	lock     *flock.Flock

	// mu orders lifecycle transitions against reporter registration.
	mu        sync.Mutex
	running   atomic.Bool
	reporters handles.Table[*reporter.Reporter]
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	LockFilePath   string
	JournalPath    string
	Reporters      int
	PendingReports int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Client == nil {
		return nil, errors.New("daemon requires config and api client")
	}
	lockPath := cfg.LockPath()
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		baseLogger: logger,
		deps:       deps,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock.
func (d *Daemon) Start(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gamereporter daemon instance is already running")
	}
	d.running.Store(true)
	d.logger.Info("gamereporter daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop closes every live reporter, which gives their pending reports a final
// attempt, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Swap(false) {
		return
	}
	for _, r := range d.reporters.Drain() {
		if err := r.Close(); err != nil {
			d.logger.Warn("reporter closed with errors",
				logging.Error(err),
				logging.String(logging.FieldEventType, "reporter_close_failed"),
				logging.String(logging.FieldImpact, "a worker ended abnormally"),
			)
		}
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"),
		)
	}
	d.logger.Info("gamereporter daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.deps.Journal != nil {
		return d.deps.Journal.Close()
	}
	return nil
}

// CreateReporter starts a new reporter and returns its handle.
func (d *Daemon) CreateReporter() (handles.Handle, error) {
	if !d.running.Load() {
		return 0, ErrNotRunning
	}
	opts := reporter.Options{
		Client:          d.deps.Client,
		Uploader:        d.deps.Uploader,
		Identity:        d.deps.Identity,
		Notifier:        d.deps.Notifier,
		Metrics:         d.deps.Metrics,
		Logger:          d.baseLogger,
		ISOPath:         d.cfg.Paths.ISO,
		MaxAttempts:     d.cfg.Reporter.MaxAttempts,
		BackoffStep:     time.Duration(d.cfg.Reporter.BackoffStepMS) * time.Millisecond,
		StatusQueueSize: d.cfg.Reporter.StatusQueueSize,
		StatusTimeout:   time.Duration(d.cfg.API.TimeoutSeconds) * time.Second,
	}
	if d.deps.Journal != nil {
		opts.Recorder = d.deps.Journal
	}
	r, err := reporter.New(opts)
	if err != nil {
		return 0, fmt.Errorf("create reporter: %w", err)
	}
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		_ = r.Close()
		return 0, ErrNotRunning
	}
	h := d.reporters.Insert(r)
	d.mu.Unlock()
	d.logger.Info("reporter created",
		logging.String(logging.FieldEventType, "reporter_created"),
		logging.String(logging.FieldHandle, h.String()),
	)
	return h, nil
}

// DestroyReporter closes the reporter behind h and invalidates the handle.
func (d *Daemon) DestroyReporter(h handles.Handle) error {
	r, err := d.reporters.Remove(h)
	if err != nil {
		return err
	}
	d.logger.Info("reporter destroyed",
		logging.String(logging.FieldEventType, "reporter_destroyed"),
		logging.String(logging.FieldHandle, h.String()),
	)
	return r.Close()
}

// Reporter resolves a handle.
func (d *Daemon) Reporter(h handles.Handle) (*reporter.Reporter, error) {
	return d.reporters.Get(h)
}

// Status reports the daemon's runtime state.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		Reporters:    d.reporters.Len(),
	}
	if d.deps.Journal != nil {
		status.JournalPath = d.deps.Journal.Path()
	}
	d.reporters.Each(func(r *reporter.Reporter) {
		status.PendingReports += r.PendingReports()
	})
	return status
}

// History returns recent journal entries and the overall summary.
func (d *Daemon) History(ctx context.Context, limit int) ([]journal.Entry, journal.Summary, error) {
	if d.deps.Journal == nil {
		return nil, journal.Summary{}, errors.New("journal disabled")
	}
	entries, err := d.deps.Journal.Recent(ctx, limit)
	if err != nil {
		return nil, journal.Summary{}, err
	}
	summary, err := d.deps.Journal.Summarize(ctx)
	if err != nil {
		return nil, journal.Summary{}, err
	}
	return entries, summary, nil
}
