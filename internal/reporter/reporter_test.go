package reporter_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"gamereporter/internal/gqlapi"
	"gamereporter/internal/identity"
	"gamereporter/internal/isocheck"
	"gamereporter/internal/journal"
	"gamereporter/internal/osd"
	"gamereporter/internal/replay"
	"gamereporter/internal/report"
	"gamereporter/internal/reporter"
)

type fakeAPI struct {
	mu       sync.Mutex
	games    []gqlapi.OnlineGameReportInput
	statuses []gqlapi.MatchStatusInput
	hold     chan struct{}
	panicOn  string
}

func (f *fakeAPI) ReportOnlineGame(_ context.Context, in gqlapi.OnlineGameReportInput) (gqlapi.GameResult, error) {
	if in.MatchID == f.panicOn {
		panic("decoder exploded")
	}
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = append(f.games, in)
	return gqlapi.GameResult{Success: true, UploadURL: "https://upload/" + in.MatchID}, nil
}

func (f *fakeAPI) ReportMatchStatus(_ context.Context, in gqlapi.MatchStatusInput) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, in)
	return true, nil
}

func (f *fakeAPI) ReportMatchCompletion(context.Context, gqlapi.MatchCompletionInput) (bool, error) {
	return true, nil
}

type captureUploader struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (u *captureUploader) Upload(_ context.Context, snap replay.Snapshot, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.data == nil {
		u.data = map[string][]byte{}
	}
	u.data[url] = snap.Bytes()
	return nil
}

type signalRecorder chan journal.Entry

func (s signalRecorder) Record(_ context.Context, e journal.Entry) error {
	s <- e
	return nil
}

func waitSettled(t *testing.T, rec signalRecorder, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-rec:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d reports", i, n)
		}
	}
}

func newReporter(t *testing.T, opts reporter.Options) *reporter.Reporter {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slogt.New(t)
	}
	if opts.Identity == nil {
		opts.Identity = identity.Static{UID: "uid", PlayKey: "key"}
	}
	if opts.Notifier == nil {
		opts.Notifier = &osd.Recorder{}
	}
	r, err := reporter.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSecondReportOnlyCarriesPostResetBytes(t *testing.T) {
	api := &fakeAPI{}
	uploads := &captureUploader{}
	rec := make(signalRecorder, 8)
	r := newReporter(t, reporter.Options{Client: api, Uploader: uploads, Recorder: rec})

	r.PushReplayData([]byte{0x35, 0x01})
	r.PushReplayData([]byte{0x36, 0x02})
	if err := r.LogReport(&report.GameReport{MatchID: "one"}); err != nil {
		t.Fatalf("LogReport: %v", err)
	}
	r.PushReplayData([]byte{0x35, 0x09})
	r.PushReplayData([]byte{0x37, 0x0A})
	if err := r.LogReport(&report.GameReport{MatchID: "two"}); err != nil {
		t.Fatalf("LogReport: %v", err)
	}
	waitSettled(t, rec, 2)

	uploads.mu.Lock()
	defer uploads.mu.Unlock()
	if got := uploads.data["https://upload/one"]; !bytes.Equal(got, []byte{0x35, 0x01, 0x36, 0x02}) {
		t.Fatalf("first replay = %x", got)
	}
	if got := uploads.data["https://upload/two"]; !bytes.Equal(got, []byte{0x35, 0x09, 0x37, 0x0A}) {
		t.Fatalf("second replay = %x", got)
	}
}

func TestLogReportStampsCredentials(t *testing.T) {
	api := &fakeAPI{}
	rec := make(signalRecorder, 2)
	r := newReporter(t, reporter.Options{Client: api, Recorder: rec, Identity: identity.Static{UID: "me", PlayKey: "secret"}})

	if err := r.LogReport(&report.GameReport{MatchID: "m"}); err != nil {
		t.Fatalf("LogReport: %v", err)
	}
	waitSettled(t, rec, 1)

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.games[0].FbUID != "me" || api.games[0].PlayKey != "secret" {
		t.Fatalf("credentials not stamped: %+v", api.games[0])
	}
}

func TestSynchronousStatusBypassesStalledQueue(t *testing.T) {
	api := &fakeAPI{hold: make(chan struct{})}
	r := newReporter(t, reporter.Options{Client: api})

	if err := r.LogReport(&report.GameReport{MatchID: "stuck"}); err != nil {
		t.Fatalf("LogReport: %v", err)
	}

	done := make(chan struct{})
	var (
		ok  bool
		err error
	)
	go func() {
		defer close(done)
		ok, err = r.ReportMatchStatus(context.Background(), "live", "playing", false)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("synchronous status waited on the report queue")
	}
	if err != nil || !ok {
		t.Fatalf("ReportMatchStatus = %v, %v", ok, err)
	}
	close(api.hold)
}

func TestIsoHashMergedAfterCheck(t *testing.T) {
	content := []byte("known bad image")
	sum := md5.Sum(content)
	hash := hex.EncodeToString(sum[:])
	path := filepath.Join(t.TempDir(), "game.iso")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write iso: %v", err)
	}

	api := &fakeAPI{}
	notes := &osd.Recorder{}
	rec := make(signalRecorder, 2)
	r := newReporter(t, reporter.Options{Client: api, Recorder: rec, Notifier: notes, ISOPath: path, KnownHashes: []string{hash}})

	deadline := time.Now().Add(5 * time.Second)
	for {
		state, res := r.IsoState()
		if state == isocheck.Complete {
			if res.Verdict != isocheck.KnownDesync || res.Hash != hash {
				t.Fatalf("unexpected iso result %+v", res)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("iso check did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := r.LogReport(&report.GameReport{MatchID: "m"}); err != nil {
		t.Fatalf("LogReport: %v", err)
	}
	waitSettled(t, rec, 1)
	api.mu.Lock()
	gotHash := api.games[0].IsoHash
	api.mu.Unlock()
	if gotHash != hash {
		t.Fatalf("iso hash = %q, want %q", gotHash, hash)
	}
	if len(notes.Messages()) != 1 {
		t.Fatalf("expected one desync warning, got %d", len(notes.Messages()))
	}
}

func TestCloseAttemptsPendingAndRejectsLater(t *testing.T) {
	api := &fakeAPI{}
	rec := make(signalRecorder, 4)
	r := newReporter(t, reporter.Options{Client: api, Recorder: rec})

	for _, id := range []string{"a", "b", "c"} {
		if err := r.LogReport(&report.GameReport{MatchID: id}); err != nil {
			t.Fatalf("LogReport: %v", err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.PendingReports() != 0 {
		t.Fatalf("expected no pending reports, got %d", r.PendingReports())
	}
	api.mu.Lock()
	delivered := len(api.games)
	api.mu.Unlock()
	if delivered != 3 {
		t.Fatalf("expected 3 deliveries before close returned, got %d", delivered)
	}
	if err := r.LogReport(&report.GameReport{MatchID: "late"}); !errors.Is(err, reporter.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestPanickingReportDoesNotStrandLaterReports(t *testing.T) {
	api := &fakeAPI{panicOn: "boom"}
	rec := make(signalRecorder, 4)
	r := newReporter(t, reporter.Options{Client: api, Recorder: rec, BackoffStep: time.Millisecond})

	for _, id := range []string{"boom", "after1", "after2"} {
		if err := r.LogReport(&report.GameReport{MatchID: id, OnlineMode: report.Unranked}); err != nil {
			t.Fatalf("LogReport(%s): %v", id, err)
		}
	}
	settled := map[string]journal.Result{}
	for len(settled) < 3 {
		select {
		case e := <-rec:
			settled[e.MatchID] = e.Result
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out with %v settled", settled)
		}
	}
	if settled["boom"] != journal.ResultDropped {
		t.Fatalf("expected panicking report dropped, got %q", settled["boom"])
	}
	if settled["after1"] != journal.ResultDelivered || settled["after2"] != journal.ResultDelivered {
		t.Fatalf("later reports not delivered: %v", settled)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.PendingReports() != 0 {
		t.Fatalf("expected no pending reports, got %d", r.PendingReports())
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := reporter.New(reporter.Options{}); err == nil {
		t.Fatal("expected error")
	}
}
