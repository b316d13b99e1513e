package reportqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"gamereporter/internal/gqlapi"
	"gamereporter/internal/journal"
	"gamereporter/internal/logging"
	"gamereporter/internal/metrics"
	"gamereporter/internal/osd"
	"gamereporter/internal/replay"
	"gamereporter/internal/report"
)

// DefaultMaxAttempts caps delivery attempts per report outside shutdown.
const DefaultMaxAttempts = 5

// DefaultBackoffStep is multiplied by the attempt count between retries.
const DefaultBackoffStep = 100 * time.Millisecond

// DroppedRankedMessage is shown when a ranked report is given up on.
const DroppedRankedMessage = "Failed to send game report. If you get this often, visit Slippi Discord for help."

// ErrNotSuccessful is returned for a well-formed response with success=false.
var ErrNotSuccessful = errors.New("report not accepted")

// ErrPanicked marks an attempt whose client or uploader panicked. It is
// handled like any other failed attempt.
var ErrPanicked = errors.New("panicked")

// Client performs the metadata exchange.
type Client interface {
	ReportOnlineGame(ctx context.Context, input gqlapi.OnlineGameReportInput) (gqlapi.GameResult, error)
}

// Uploader ships a replay snapshot to a granted URL.
type Uploader interface {
	Upload(ctx context.Context, snap replay.Snapshot, url string) error
}

// HashSource supplies the cached game image digest, if known.
type HashSource interface {
	Hash() (string, bool)
}

// Recorder persists settled reports.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Sleeper waits between attempts. It returns early when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// Options wires a Worker.
type Options struct {
	Client      Client
	Uploader    Uploader
	Hashes      HashSource
	Notifier    osd.Notifier
	Recorder    Recorder
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	MaxAttempts int
	BackoffStep time.Duration
	Sleep       Sleeper
}

// event wakes the worker. Shutdown is signalled by closing stop instead, so
// it can never be lost behind a coalesced wakeup.
type event struct{}

// Worker drains the queue on a single goroutine.
type Worker struct {
	queue    *Queue
	client   Client
	uploader Uploader
	hashes   HashSource
	notifier osd.Notifier
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger

	maxAttempts int
	backoffStep time.Duration
	sleep       Sleeper

	wake     chan event
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWorker builds a worker. Client is required.
func NewWorker(opts Options) (*Worker, error) {
	if opts.Client == nil {
		return nil, errors.New("report client required")
	}
	w := &Worker{
		queue:       &Queue{},
		client:      opts.Client,
		uploader:    opts.Uploader,
		hashes:      opts.Hashes,
		notifier:    opts.Notifier,
		recorder:    opts.Recorder,
		metrics:     opts.Metrics,
		logger:      logging.NewComponentLogger(opts.Logger, "report-queue"),
		maxAttempts: opts.MaxAttempts,
		backoffStep: opts.BackoffStep,
		sleep:       opts.Sleep,
		wake:        make(chan event, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	if w.notifier == nil {
		w.notifier = osd.Noop{}
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = DefaultMaxAttempts
	}
	if w.backoffStep < 0 {
		w.backoffStep = 0
	}
	if opts.BackoffStep == 0 {
		w.backoffStep = DefaultBackoffStep
	}
	if w.sleep == nil {
		w.sleep = w.sleepOrStop
	}
	return w, nil
}

// Add enqueues r and wakes the worker. It never blocks on the worker.
func (w *Worker) Add(r *report.GameReport) {
	if r == nil {
		return
	}
	depth := w.queue.Push(r)
	w.metrics.SetQueueDepth(depth)
	select {
	case w.wake <- event{}:
	default:
		// A wakeup is already pending; the next drain will see r.
	}
}

// Pending returns the number of queued reports.
func (w *Worker) Pending() int {
	return w.queue.Len()
}

// Shutdown asks the worker to make one final single-attempt pass and exit.
// It does not wait; use Done.
func (w *Worker) Shutdown() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run processes reports until Shutdown. It must be called exactly once.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain(ctx)
		case <-w.stop:
			w.drain(ctx)
			w.logger.Debug("report worker stopped",
				logging.String(logging.FieldEventType, "report_worker_stopped"),
				logging.Int("pending", w.queue.Len()),
			)
			return
		}
	}
}

func (w *Worker) stopping() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

func (w *Worker) currentMaxAttempts() int {
	if w.stopping() {
		return 1
	}
	return w.maxAttempts
}

func (w *Worker) drain(ctx context.Context) {
	for {
		r, ok := w.queue.Front()
		if !ok {
			return
		}
		w.process(ctx, r)
	}
}

// process makes one attempt on the front report, then pops it on success or
// on its last attempt. Otherwise it sleeps and leaves it at the front.
func (w *Worker) process(ctx context.Context, r *report.GameReport) {
	r.Attempts++
	maxAttempts := w.currentMaxAttempts()
	last := r.Attempts >= maxAttempts

	logger := w.logger.With(
		logging.String(logging.FieldMatchID, r.MatchID),
		logging.Int(logging.FieldAttempt, r.Attempts),
		logging.String(logging.FieldMode, r.OnlineMode.String()),
	)

	isoHash, _ := w.hashSource()
	uploadURL, err := w.send(ctx, r, isoHash)
	w.metrics.ReportAttempt(err == nil)

	if err == nil {
		w.pop()
		logger.Info("game report delivered",
			logging.String(logging.FieldEventType, "report_delivered"),
			logging.Bool("upload_granted", uploadURL != ""),
		)
		w.metrics.ReportDelivered(r.OnlineMode.String())
		upload := w.upload(ctx, logger, r, uploadURL)
		w.record(ctx, r, journal.ResultDelivered, upload, isoHash, nil)
		return
	}

	backoff := time.Duration(r.Attempts) * w.backoffStep
	if !last {
		logger.Warn("game report attempt failed",
			logging.String(logging.FieldEventType, "report_attempt_failed"),
			logging.String("error_kind", errorKind(err)),
			logging.Duration("backoff", backoff),
			logging.Error(err),
		)
		w.sleep(ctx, backoff)
		return
	}

	w.pop()
	logging.ErrorWithContext(logger, "game report dropped after last attempt", "report_dropped",
		logging.String("error_kind", errorKind(err)),
		logging.Int("max_attempts", maxAttempts),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check network connectivity to the reporting service"),
	)
	w.metrics.ReportDropped(r.OnlineMode.String())
	if r.OnlineMode == report.Ranked {
		w.notifier.AddMessage(osd.Message{Color: osd.Red, Duration: osd.VeryLong, Text: DroppedRankedMessage})
	}
	w.record(ctx, r, journal.ResultDropped, journal.UploadNone, isoHash, err)
}

func (w *Worker) hashSource() (string, bool) {
	if w.hashes == nil {
		return "", false
	}
	return w.hashes.Hash()
}

func (w *Worker) send(ctx context.Context, r *report.GameReport, isoHash string) (string, error) {
	var result gqlapi.GameResult
	err := w.guard("report client", r.MatchID, func() error {
		var err error
		result, err = w.client.ReportOnlineGame(ctx, r.Payload(isoHash))
		return err
	})
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", ErrNotSuccessful
	}
	return result.UploadURL, nil
}

// guard turns a panic in fn into an ErrPanicked error so one bad report
// cannot stop the worker.
func (w *Worker) guard(name, matchID string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s %w: %v", name, ErrPanicked, p)
			w.logger.Error("report attempt panicked",
				logging.String(logging.FieldEventType, "report_attempt_panic"),
				logging.String(logging.FieldMatchID, matchID),
				logging.Any("panic", p),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()
	return fn()
}

func (w *Worker) pop() {
	_, depth := w.queue.PopFront()
	w.metrics.SetQueueDepth(depth)
}

// upload runs synchronously so the next report's metadata exchange cannot
// interleave with this replay. Failures are logged only.
func (w *Worker) upload(ctx context.Context, logger *slog.Logger, r *report.GameReport, url string) journal.Upload {
	if url == "" {
		return journal.UploadNone
	}
	if w.uploader == nil {
		return journal.UploadSkipped
	}
	err := w.guard("replay uploader", r.MatchID, func() error {
		return w.uploader.Upload(ctx, r.Replay, url)
	})
	if err != nil {
		logging.WarnWithContext(logger, "replay upload failed", "replay_upload_failed",
			logging.Int("replay_bytes", r.Replay.Len()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "report was delivered without its replay"),
		)
		w.metrics.Upload(false)
		return journal.UploadFailed
	}
	logger.Info("replay uploaded",
		logging.String(logging.FieldEventType, "replay_uploaded"),
		logging.Int("replay_bytes", r.Replay.Len()),
	)
	w.metrics.Upload(true)
	return journal.UploadDone
}

func (w *Worker) record(ctx context.Context, r *report.GameReport, result journal.Result, upload journal.Upload, isoHash string, cause error) {
	if w.recorder == nil {
		return
	}
	entry := journal.Entry{
		MatchID:  r.MatchID,
		Mode:     r.OnlineMode.String(),
		Result:   result,
		Attempts: r.Attempts,
		Upload:   upload,
		ISOHash:  isoHash,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	// The journal must outlive a cancelled run context so the final pass is recorded.
	if err := w.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		w.logger.Warn("journal write failed",
			logging.String(logging.FieldEventType, "journal_write_failed"),
			logging.String(logging.FieldMatchID, r.MatchID),
			logging.Error(err),
		)
	}
}

func (w *Worker) sleepOrStop(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-w.stop:
	}
}

func errorKind(err error) string {
	var kinded interface{ ErrorKind() string }
	if errors.As(err, &kinded) {
		return kinded.ErrorKind()
	}
	if errors.Is(err, ErrNotSuccessful) {
		return "not_successful"
	}
	if errors.Is(err, ErrPanicked) {
		return "panic"
	}
	return fmt.Sprintf("%T", err)
}
