package journal

import "time"

// Result is how a report left the queue.
type Result string

const (
	ResultDelivered Result = "delivered"
	ResultDropped   Result = "dropped"
)

// Upload is what happened to the replay after delivery.
type Upload string

const (
	UploadNone    Upload = "none"
	UploadDone    Upload = "uploaded"
	UploadFailed  Upload = "failed"
	UploadSkipped Upload = "skipped"
)

// Entry is one settled report.
type Entry struct {
	ID         string
	MatchID    string
	Mode       string
	Result     Result
	Attempts   int
	Upload     Upload
	ISOHash    string
	Error      string
	RecordedAt time.Time
}

// Summary counts entries by result.
type Summary struct {
	Delivered     int
	Dropped       int
	UploadFailure int
}
