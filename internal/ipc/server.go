package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"gamereporter/internal/daemon"
	"gamereporter/internal/handles"
	"gamereporter/internal/isocheck"
	"gamereporter/internal/logging"
	"gamereporter/internal/reporter"
)

// ServiceName is the RPC receiver name clients call through.
const ServiceName = "GameReporter"

// Server exposes the reporter operations via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until Close is called.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "host connections may fail"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}()
}

// Close stops the server and removes the socket file. Connections still
// open are left to finish on their own.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) reporter(handle uint64) (*reporter.Reporter, error) {
	return s.daemon.Reporter(handles.Handle(handle))
}

func (s *service) Create(_ CreateRequest, resp *CreateResponse) error {
	h, err := s.daemon.CreateReporter()
	if err != nil {
		return err
	}
	resp.Handle = uint64(h)
	return nil
}

func (s *service) Destroy(req HandleRequest, resp *AckResponse) error {
	if err := s.daemon.DestroyReporter(handles.Handle(req.Handle)); err != nil {
		return err
	}
	resp.OK = true
	return nil
}

func (s *service) StartNewSession(req HandleRequest, resp *AckResponse) error {
	r, err := s.reporter(req.Handle)
	if err != nil {
		return err
	}
	r.StartNewSession()
	resp.OK = true
	return nil
}

func (s *service) PushReplayData(req PushReplayDataRequest, resp *AckResponse) error {
	r, err := s.reporter(req.Handle)
	if err != nil {
		return err
	}
	r.PushReplayData(req.Data)
	resp.OK = true
	return nil
}

func (s *service) LogReport(req LogReportRequest, resp *AckResponse) error {
	r, err := s.reporter(req.Handle)
	if err != nil {
		return err
	}
	rep, err := req.GameReport()
	if err != nil {
		return err
	}
	if err := r.LogReport(rep); err != nil {
		return err
	}
	s.log().Debug("report accepted",
		logging.String(logging.FieldMatchID, rep.MatchID),
		logging.String(logging.FieldMode, rep.OnlineMode.String()))
	resp.OK = true
	return nil
}

func (s *service) ReportMatchStatus(req MatchStatusRequest, resp *MatchStatusResponse) error {
	r, err := s.reporter(req.Handle)
	if err != nil {
		return err
	}
	ok, err := r.ReportMatchStatus(s.ctx, req.MatchID, req.Status, req.Background)
	if err != nil {
		return err
	}
	resp.OK = ok
	return nil
}

func (s *service) ReportCompletion(req CompletionRequest, resp *AckResponse) error {
	r, err := s.reporter(req.Handle)
	if err != nil {
		return err
	}
	if err := r.ReportCompletion(req.MatchID, req.EndMode); err != nil {
		return err
	}
	resp.OK = true
	return nil
}

func (s *service) ReportAbandonment(req AbandonmentRequest, resp *AckResponse) error {
	r, err := s.reporter(req.Handle)
	if err != nil {
		return err
	}
	if err := r.ReportAbandonment(req.MatchID); err != nil {
		return err
	}
	resp.OK = true
	return nil
}

func (s *service) IsoState(req HandleRequest, resp *IsoStateResponse) error {
	r, err := s.reporter(req.Handle)
	if err != nil {
		return err
	}
	state, result := r.IsoState()
	resp.State = state.String()
	if state == isocheck.Complete {
		resp.Verdict = result.Verdict.String()
	}
	resp.Hash = result.Hash
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.LockFilePath = status.LockFilePath
	resp.JournalPath = status.JournalPath
	resp.Reporters = status.Reporters
	resp.PendingReports = status.PendingReports
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	entries, summary, err := s.daemon.History(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Entries = make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			ID:         e.ID,
			MatchID:    e.MatchID,
			Mode:       e.Mode,
			Result:     string(e.Result),
			Attempts:   e.Attempts,
			Upload:     string(e.Upload),
			ISOHash:    e.ISOHash,
			Error:      e.Error,
			RecordedAt: e.RecordedAt,
		})
	}
	resp.Delivered = summary.Delivered
	resp.Dropped = summary.Dropped
	resp.UploadFailures = summary.UploadFailure
	return nil
}
