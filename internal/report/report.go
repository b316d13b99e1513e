// Package report defines the match summary handed to the reporting pipeline.
package report

import (
	"fmt"
	"strings"

	"gamereporter/internal/gqlapi"
	"gamereporter/internal/replay"
)

// OnlinePlayMode is the matchmaking category of a match.
type OnlinePlayMode uint8

const (
	Ranked OnlinePlayMode = iota
	Unranked
	Direct
	Teams
)

// String returns the wire name of the mode.
func (m OnlinePlayMode) String() string {
	switch m {
	case Ranked:
		return "RANKED"
	case Unranked:
		return "UNRANKED"
	case Direct:
		return "DIRECT"
	case Teams:
		return "TEAMS"
	default:
		return fmt.Sprintf("MODE_%d", uint8(m))
	}
}

// ParseMode accepts a wire name or a number.
func ParseMode(value string) (OnlinePlayMode, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "RANKED", "0":
		return Ranked, nil
	case "UNRANKED", "1":
		return Unranked, nil
	case "DIRECT", "2":
		return Direct, nil
	case "TEAMS", "3":
		return Teams, nil
	default:
		return 0, fmt.Errorf("unknown online play mode %q", value)
	}
}

// PlayerReport is one player's result.
type PlayerReport struct {
	UID             string
	SlotType        uint8
	DamageDone      float64
	StocksRemaining uint8
	CharacterID     uint8
	ColorID         uint8
	StartingStocks  int64
	StartingPercent int64
}

// GameReport summarizes one online game. The worker owns it once enqueued and
// is the only writer of Attempts.
type GameReport struct {
	UID            string
	PlayKey        string
	MatchID        string
	OnlineMode     OnlinePlayMode
	DurationFrames uint32
	GameIndex      uint32
	TiebreakIndex  uint32
	WinnerIndex    int8
	GameEndMethod  uint8
	LRASInitiator  int8
	StageID        int32
	Players        []PlayerReport

	Attempts int
	Replay   replay.Snapshot
}

// AddPlayer appends a player result in slot order.
func (r *GameReport) AddPlayer(p PlayerReport) {
	r.Players = append(r.Players, p)
}

// Payload builds the reportOnlineGame input. isoHash may be empty.
func (r *GameReport) Payload(isoHash string) gqlapi.OnlineGameReportInput {
	players := make([]gqlapi.PlayerReportInput, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, gqlapi.PlayerReportInput{
			FbUID:           p.UID,
			SlotType:        p.SlotType,
			DamageDone:      p.DamageDone,
			StocksRemaining: p.StocksRemaining,
			CharacterID:     p.CharacterID,
			ColorID:         p.ColorID,
			StartingStocks:  p.StartingStocks,
			StartingPercent: p.StartingPercent,
		})
	}
	return gqlapi.OnlineGameReportInput{
		FbUID:          r.UID,
		PlayKey:        r.PlayKey,
		MatchID:        r.MatchID,
		Mode:           r.OnlineMode.String(),
		DurationFrames: r.DurationFrames,
		GameIndex:      r.GameIndex,
		TiebreakIndex:  r.TiebreakIndex,
		WinnerIdx:      r.WinnerIndex,
		GameEndMethod:  r.GameEndMethod,
		LrasInitiator:  r.LRASInitiator,
		StageID:        r.StageID,
		Players:        players,
		IsoHash:        isoHash,
	}
}
