package gqlapi

import (
	"context"

	"github.com/tidwall/gjson"
)

const (
	reportOnlineGameMutation = `
mutation ($report: OnlineGameReportInput!) {
  reportOnlineGame (report: $report) {
    success
    uploadUrl
  }
}`

	reportMatchStatusMutation = `
mutation ($report: OnlineMatchStatusReportInput!) {
  reportOnlineMatchStatus (report: $report)
}`

	reportMatchCompletionMutation = `
mutation ($report: OnlineMatchCompletionReportInput!) {
  reportOnlineMatchCompletion (report: $report)
}`
)

// PlayerReportInput is one player's line in a game report.
type PlayerReportInput struct {
	FbUID           string  `json:"fbUid"`
	SlotType        uint8   `json:"slotType"`
	DamageDone      float64 `json:"damageDone"`
	StocksRemaining uint8   `json:"stocksRemaining"`
	CharacterID     uint8   `json:"characterId"`
	ColorID         uint8   `json:"colorId"`
	StartingStocks  int64   `json:"startingStocks"`
	StartingPercent int64   `json:"startingPercent"`
}

// OnlineGameReportInput is the body of reportOnlineGame.
type OnlineGameReportInput struct {
	FbUID          string              `json:"fbUid"`
	PlayKey        string              `json:"playKey"`
	MatchID        string              `json:"matchId"`
	Mode           string              `json:"mode"`
	DurationFrames uint32              `json:"durationFrames"`
	GameIndex      uint32              `json:"gameIndex"`
	TiebreakIndex  uint32              `json:"tiebreakIndex"`
	WinnerIdx      int8                `json:"winnerIdx"`
	GameEndMethod  uint8               `json:"gameEndMethod"`
	LrasInitiator  int8                `json:"lrasInitiator"`
	StageID        int32               `json:"stageId"`
	Players        []PlayerReportInput `json:"players"`
	IsoHash        string              `json:"isoHash,omitempty"`
}

// MatchStatusInput is the body of reportOnlineMatchStatus.
type MatchStatusInput struct {
	MatchID string `json:"matchId"`
	FbUID   string `json:"fbUid"`
	PlayKey string `json:"playKey"`
	Status  string `json:"status"`
}

// MatchCompletionInput is the body of reportOnlineMatchCompletion.
type MatchCompletionInput struct {
	MatchID string `json:"matchId"`
	FbUID   string `json:"fbUid"`
	PlayKey string `json:"playKey"`
	EndMode string `json:"endMode"`
}

// GameResult is the server's answer to reportOnlineGame.
type GameResult struct {
	Success   bool
	UploadURL string
}

// ReportOnlineGame sends a finished game's metadata.
func (c *Client) ReportOnlineGame(ctx context.Context, input OnlineGameReportInput) (GameResult, error) {
	const field = "reportOnlineGame"
	value, err := c.Execute(ctx, reportOnlineGameMutation, map[string]any{"report": input}, field)
	if err != nil {
		return GameResult{}, err
	}
	if !value.IsObject() {
		return GameResult{}, &Error{Kind: KindDecode, Field: field, Message: "expected object, got " + value.Raw}
	}
	success := value.Get("success")
	if success.Type != gjson.True && success.Type != gjson.False {
		return GameResult{}, &Error{Kind: KindDecode, Field: field, Message: "success flag missing: " + value.Raw}
	}
	result := GameResult{Success: success.Bool()}
	if upload := value.Get("uploadUrl"); upload.Type == gjson.String {
		result.UploadURL = upload.String()
	}
	return result, nil
}

// ReportMatchStatus sends a status ping. The bool is true only when the
// server answered literally true.
func (c *Client) ReportMatchStatus(ctx context.Context, input MatchStatusInput) (bool, error) {
	return c.boolMutation(ctx, reportMatchStatusMutation, "reportOnlineMatchStatus", input)
}

// ReportMatchCompletion tells the server how a match ended.
func (c *Client) ReportMatchCompletion(ctx context.Context, input MatchCompletionInput) (bool, error) {
	return c.boolMutation(ctx, reportMatchCompletionMutation, "reportOnlineMatchCompletion", input)
}

func (c *Client) boolMutation(ctx context.Context, mutation, field string, input any) (bool, error) {
	value, err := c.Execute(ctx, mutation, map[string]any{"report": input}, field)
	if err != nil {
		return false, err
	}
	return value.Type == gjson.True, nil
}
