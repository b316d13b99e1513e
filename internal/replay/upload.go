package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultRangeHeader = "X-Goog-Content-Length-Range"

// UploaderOptions configures an Uploader.
type UploaderOptions struct {
	Client      *http.Client
	Timeout     time.Duration
	UserAgent   string
	MaxBytes    int64
	RangeHeader string
}

// Uploader PUTs enveloped, compressed replays to pre-signed URLs.
type Uploader struct {
	client      *http.Client
	userAgent   string
	rangeHeader string
	rangeValue  string
}

// NewUploader builds an uploader. A nil client gets one with opts.Timeout.
func NewUploader(opts UploaderOptions) *Uploader {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10000000
	}
	header := strings.TrimSpace(opts.RangeHeader)
	if header == "" {
		header = defaultRangeHeader
	}
	return &Uploader{
		client:      client,
		userAgent:   opts.UserAgent,
		rangeHeader: header,
		rangeValue:  "0," + strconv.FormatInt(maxBytes, 10),
	}
}

// Upload encodes the snapshot and PUTs it to url. The returned error is
// informational; callers log it and move on.
func (u *Uploader) Upload(ctx context.Context, snap Snapshot, url string) error {
	body, err := Encode(snap.Bytes())
	if err != nil {
		return fmt.Errorf("encode replay: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set(u.rangeHeader, u.rangeValue)
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("send replay upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("replay upload returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
