package isocheck

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gamereporter/internal/logging"
	"gamereporter/internal/osd"
)

// State is the lifecycle of a check.
type State int

const (
	NotStarted State = iota
	InProgress
	Complete
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Verdict classifies a completed check.
type Verdict int

const (
	Safe Verdict = iota
	KnownDesync
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Safe:
		return "safe"
	case KnownDesync:
		return "known_desync"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Result is the outcome of a completed check. Hash is empty when Verdict is Failed.
type Result struct {
	Verdict Verdict
	Hash    string
	Err     error
}

// WarningText is shown when the image matches a known desync build.
const WarningText = "\n\nCAUTION: You are using an ISO that is known to cause desyncs"

// WarningDuration is how long the desync warning stays on screen.
const WarningDuration = 20 * time.Second

// KnownDesyncHashes lists MD5 digests of images that are known to desync online.
var KnownDesyncHashes = []string{
	"23d6baef06bd65989585096915da20f2",
	"27a5668769a54cd3515af47b8d9982f3",
	"5805fa9f1407aedc8804d0472346fc5f",
	"9bb3e275e77bb1a160276f2330f93931",
	"8f4d23152be3138b40e7e75a8423da23",
	"80d765b45265c2d09b3b6dc211eb3364",
	"da02952aeb9c3b62c4375a3578b7ff61",
	"2bf0de184f82313c5e8bb2681a17600a",
	"1f01ed5d8dda6e3eb0402fc6e8f8f36a",
	"d19d367683fd9f94453bf4e588d26d7d",
}

// Option customizes a Checker.
type Option func(*Checker)

// WithKnownHashes replaces the known-bad digest list.
func WithKnownHashes(hashes []string) Option {
	return func(c *Checker) {
		c.known = make(map[string]struct{}, len(hashes))
		for _, h := range hashes {
			c.known[h] = struct{}{}
		}
	}
}

// Checker hashes the game image once and caches the classification.
type Checker struct {
	notifier osd.Notifier
	logger   *slog.Logger
	known    map[string]struct{}

	mu     sync.RWMutex
	state  State
	result Result
}

// New constructs a Checker in the NotStarted state.
func New(notifier osd.Notifier, logger *slog.Logger, opts ...Option) *Checker {
	if notifier == nil {
		notifier = osd.Noop{}
	}
	c := &Checker{
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "iso-check"),
	}
	WithKnownHashes(KnownDesyncHashes)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run streams path through MD5 and records the verdict. Only the first call
// does any work; later calls return the cached result.
func (c *Checker) Run(path string) Result {
	c.mu.Lock()
	if c.state != NotStarted {
		res := c.result
		c.mu.Unlock()
		return res
	}
	c.state = InProgress
	c.mu.Unlock()

	res := c.compute(path)

	c.mu.Lock()
	c.state = Complete
	c.result = res
	c.mu.Unlock()

	switch res.Verdict {
	case KnownDesync:
		logging.WarnWithContext(c.logger, "game image is a known desync build", "iso_known_desync",
			logging.String("hash", res.Hash),
			logging.String(logging.FieldErrorHint, "replace the ISO with a clean NTSC 1.02 image"),
			logging.String(logging.FieldImpact, "online matches may desync"),
		)
		c.notifier.AddMessage(osd.Message{Color: osd.Red, Duration: WarningDuration, Text: WarningText})
	case Failed:
		logging.WarnWithContext(c.logger, "game image hash failed", "iso_hash_failed",
			logging.String("path", path),
			logging.Error(res.Err),
			logging.String(logging.FieldImpact, "reports will omit the ISO hash"),
		)
	default:
		c.logger.Info("game image hash computed",
			logging.String(logging.FieldEventType, "iso_hash_computed"),
			logging.String("hash", res.Hash),
		)
	}
	return res
}

func (c *Checker) compute(path string) Result {
	file, err := os.Open(path)
	if err != nil {
		return Result{Verdict: Failed, Err: fmt.Errorf("open game image: %w", err)}
	}
	defer file.Close()

	digest := md5.New()
	if _, err := io.Copy(digest, file); err != nil {
		return Result{Verdict: Failed, Err: fmt.Errorf("read game image: %w", err)}
	}
	hash := hex.EncodeToString(digest.Sum(nil))
	if _, bad := c.known[hash]; bad {
		return Result{Verdict: KnownDesync, Hash: hash}
	}
	return Result{Verdict: Safe, Hash: hash}
}

// State returns the current lifecycle state and, when Complete, the result.
func (c *Checker) State() (State, Result) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.result
}

// Hash returns the computed digest if the check finished successfully.
// It never waits for a running check.
func (c *Checker) Hash() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != Complete || c.result.Verdict == Failed {
		return "", false
	}
	return c.result.Hash, true
}
