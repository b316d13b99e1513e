package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"gamereporter/internal/config"
	"gamereporter/internal/daemon"
	"gamereporter/internal/gqlapi"
	"gamereporter/internal/identity"
	"gamereporter/internal/ipc"
	"gamereporter/internal/journal"
	"gamereporter/internal/logging"
	"gamereporter/internal/metrics"
	"gamereporter/internal/osd"
	"gamereporter/internal/replay"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the reporter daemon and blocks until SIGINT/SIGTERM or cmdCtx
// cancellation.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("gamereporter-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	sessionID := uuid.NewString()
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
		SessionID:   sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update gamereporter.log link: %v\n", err)
	}
	retention := time.Duration(cfg.Logging.RetentionDays) * 24 * time.Hour
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, "gamereporter-*.log", logPath, retention)

	pidPath := filepath.Join(cfg.Paths.DataDir, "gamereporter.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.JournalPath())
		if err != nil {
			logger.Error("open journal", logging.Error(err))
			return err
		}
		pruneJournal(signalCtx, logger, store, retention)
	}

	gql, err := gqlapi.New(gqlapi.Options{
		URL:       cfg.API.GraphQLURL,
		Timeout:   time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		UserAgent: cfg.UserAgent(),
		IPv4Only:  cfg.API.IPv4Only,
	})
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}
	uploader := replay.NewUploader(replay.UploaderOptions{
		Timeout:     time.Duration(cfg.Reporter.UploadTimeout) * time.Second,
		UserAgent:   cfg.UserAgent(),
		MaxBytes:    cfg.Reporter.UploadMaxBytes,
		RangeHeader: cfg.Reporter.ContentRangeHdr,
	})

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	d, err := daemon.New(cfg, logger, daemon.Deps{
		Client:   gql,
		Uploader: uploader,
		Identity: identity.NewFileProvider(cfg.Paths.UserJSON, logger),
		Notifier: osd.LogNotifier{Logger: logger},
		Journal:  store,
		Metrics:  m,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	if m != nil {
		go serveMetrics(signalCtx, logger, m, cfg.Metrics.Bind, d.RegisterAPI)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("gamereporter daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("graphql_url", cfg.API.GraphQLURL),
		logging.Bool("journal_enabled", store != nil),
		logging.Bool("metrics_enabled", m != nil),
	)

	<-signalCtx.Done()
	logger.Info("gamereporter daemon shutting down",
		logging.Int("pending_reports", d.Status().PendingReports))
	return nil
}

func serveMetrics(ctx context.Context, logger *slog.Logger, m *metrics.Metrics, bind string, mount func(*http.ServeMux)) {
	if err := m.Serve(ctx, bind, logger, mount); err != nil {
		logging.WarnWithContext(logger, "metrics endpoint stopped", "metrics_serve_failed",
			logging.String("bind", bind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.bind for port conflicts"),
			logging.String(logging.FieldImpact, "metrics and status endpoints unavailable"),
		)
	}
}

func pruneJournal(ctx context.Context, logger *slog.Logger, store *journal.Store, retention time.Duration) {
	if retention <= 0 {
		return
	}
	removed, err := store.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		logging.WarnWithContext(logger, "journal prune failed", "journal_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old delivery history remains"),
		)
		return
	}
	if removed > 0 {
		logger.Info("journal pruned",
			logging.String(logging.FieldEventType, "journal_pruned"),
			logging.Int64("removed", removed))
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "gamereporter.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
