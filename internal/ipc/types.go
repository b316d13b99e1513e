package ipc

import (
	"time"

	"gamereporter/internal/report"
)

// HandleRequest identifies a reporter instance.
type HandleRequest struct {
	Handle uint64 `json:"handle"`
}

// CreateRequest asks the daemon for a new reporter.
type CreateRequest struct{}

// CreateResponse carries the handle of the created reporter.
type CreateResponse struct {
	Handle uint64 `json:"handle"`
}

// AckResponse acknowledges a fire-and-forget request.
type AckResponse struct {
	OK bool `json:"ok"`
}

// PushReplayDataRequest carries a chunk of the live replay stream.
type PushReplayDataRequest struct {
	Handle uint64 `json:"handle"`
	Data   []byte `json:"data"`
}

// PlayerPayload mirrors report.PlayerReport on the wire.
type PlayerPayload struct {
	UID             string  `json:"uid"`
	SlotType        uint8   `json:"slotType"`
	DamageDone      float64 `json:"damageDone"`
	StocksRemaining uint8   `json:"stocksRemaining"`
	CharacterID     uint8   `json:"characterId"`
	ColorID         uint8   `json:"colorId"`
	StartingStocks  int64   `json:"startingStocks"`
	StartingPercent int64   `json:"startingPercent"`
}

// LogReportRequest carries a finished game's summary.
type LogReportRequest struct {
	Handle         uint64          `json:"handle"`
	UID            string          `json:"uid,omitempty"`
	PlayKey        string          `json:"playKey,omitempty"`
	MatchID        string          `json:"matchId"`
	Mode           string          `json:"mode"`
	DurationFrames uint32          `json:"durationFrames"`
	GameIndex      uint32          `json:"gameIndex"`
	TiebreakIndex  uint32          `json:"tiebreakIndex"`
	WinnerIndex    int8            `json:"winnerIndex"`
	GameEndMethod  uint8           `json:"gameEndMethod"`
	LRASInitiator  int8            `json:"lrasInitiator"`
	StageID        int32           `json:"stageId"`
	Players        []PlayerPayload `json:"players"`
}

// GameReport converts the request into a domain report.
func (r LogReportRequest) GameReport() (*report.GameReport, error) {
	mode, err := report.ParseMode(r.Mode)
	if err != nil {
		return nil, err
	}
	rep := &report.GameReport{
		UID:            r.UID,
		PlayKey:        r.PlayKey,
		MatchID:        r.MatchID,
		OnlineMode:     mode,
		DurationFrames: r.DurationFrames,
		GameIndex:      r.GameIndex,
		TiebreakIndex:  r.TiebreakIndex,
		WinnerIndex:    r.WinnerIndex,
		GameEndMethod:  r.GameEndMethod,
		LRASInitiator:  r.LRASInitiator,
		StageID:        r.StageID,
	}
	for _, p := range r.Players {
		rep.AddPlayer(report.PlayerReport{
			UID:             p.UID,
			SlotType:        p.SlotType,
			DamageDone:      p.DamageDone,
			StocksRemaining: p.StocksRemaining,
			CharacterID:     p.CharacterID,
			ColorID:         p.ColorID,
			StartingStocks:  p.StartingStocks,
			StartingPercent: p.StartingPercent,
		})
	}
	return rep, nil
}

// MatchStatusRequest reports a match lifecycle status.
type MatchStatusRequest struct {
	Handle     uint64 `json:"handle"`
	MatchID    string `json:"matchId"`
	Status     string `json:"status"`
	Background bool   `json:"background"`
}

// MatchStatusResponse carries the server's answer for synchronous pings.
type MatchStatusResponse struct {
	OK bool `json:"ok"`
}

// CompletionRequest reports that a match finished.
type CompletionRequest struct {
	Handle  uint64 `json:"handle"`
	MatchID string `json:"matchId"`
	EndMode string `json:"endMode"`
}

// AbandonmentRequest reports that a match was abandoned.
type AbandonmentRequest struct {
	Handle  uint64 `json:"handle"`
	MatchID string `json:"matchId"`
}

// IsoStateResponse describes the game image verification.
type IsoStateResponse struct {
	State   string `json:"state"`
	Verdict string `json:"verdict,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusRequest asks for daemon status.
type StatusRequest struct{}

// StatusResponse captures daemon runtime information.
type StatusResponse struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	LockFilePath   string `json:"lockFilePath"`
	JournalPath    string `json:"journalPath"`
	Reporters      int    `json:"reporters"`
	PendingReports int    `json:"pendingReports"`
}

// HistoryRequest asks for recent delivery outcomes.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEntry is one recorded delivery outcome.
type HistoryEntry struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"matchId"`
	Mode       string    `json:"mode"`
	Result     string    `json:"result"`
	Attempts   int       `json:"attempts"`
	Upload     string    `json:"upload"`
	ISOHash    string    `json:"isoHash"`
	Error      string    `json:"error"`
	RecordedAt time.Time `json:"recordedAt"`
}

// HistoryResponse contains recent entries and the journal summary.
type HistoryResponse struct {
	Entries        []HistoryEntry `json:"entries"`
	Delivered      int            `json:"delivered"`
	Dropped        int            `json:"dropped"`
	UploadFailures int            `json:"uploadFailures"`
}
