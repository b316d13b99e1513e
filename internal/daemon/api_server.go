package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gamereporter/internal/journal"
	"gamereporter/internal/logging"
)

const defaultHistoryLimit = 50

// StatusResponse is the JSON body served at /api/status.
type StatusResponse struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	LockFilePath   string `json:"lockFilePath"`
	JournalPath    string `json:"journalPath,omitempty"`
	Reporters      int    `json:"reporters"`
	PendingReports int    `json:"pendingReports"`
}

// HistoryEntry is one delivery outcome served at /api/history.
type HistoryEntry struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"matchId"`
	Mode       string    `json:"mode"`
	Result     string    `json:"result"`
	Attempts   int       `json:"attempts"`
	Upload     string    `json:"upload"`
	ISOHash    string    `json:"isoHash,omitempty"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// HistoryResponse is the JSON body served at /api/history.
type HistoryResponse struct {
	Entries       []HistoryEntry `json:"entries"`
	Delivered     int            `json:"delivered"`
	Dropped       int            `json:"dropped"`
	UploadFailure int            `json:"uploadFailures"`
}

type apiServer struct {
	logger *slog.Logger
	daemon *Daemon
}

// RegisterAPI mounts the read-only status endpoints on mux.
func (d *Daemon) RegisterAPI(mux *http.ServeMux) {
	srv := &apiServer{logger: d.baseLogger, daemon: d}
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/history", srv.handleHistory)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:        status.Running,
		PID:            status.PID,
		LockFilePath:   status.LockFilePath,
		JournalPath:    status.JournalPath,
		Reporters:      status.Reporters,
		PendingReports: status.PendingReports,
	})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := defaultHistoryLimit
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	entries, summary, err := s.daemon.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{
		Entries:       convertEntries(entries),
		Delivered:     summary.Delivered,
		Dropped:       summary.Dropped,
		UploadFailure: summary.UploadFailure,
	})
}

func convertEntries(entries []journal.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
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
	return out
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
