package reportqueue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"gamereporter/internal/gqlapi"
	"gamereporter/internal/journal"
	"gamereporter/internal/osd"
	"gamereporter/internal/replay"
	"gamereporter/internal/report"
	"gamereporter/internal/reportqueue"
)

// fakeClient answers from a per-match script. Matches without a script succeed.
type fakeClient struct {
	mu      sync.Mutex
	calls   []gqlapi.OnlineGameReportInput
	fail    map[string]bool
	panics  map[string]bool
	uploads map[string]string
	log     *[]string
}

func (c *fakeClient) ReportOnlineGame(_ context.Context, in gqlapi.OnlineGameReportInput) (gqlapi.GameResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, in)
	if c.log != nil {
		*c.log = append(*c.log, "report:"+in.MatchID)
	}
	if c.panics[in.MatchID] {
		panic("decoder exploded")
	}
	if c.fail[in.MatchID] {
		return gqlapi.GameResult{}, &gqlapi.Error{Kind: gqlapi.KindNetwork, Err: errors.New("connection refused")}
	}
	return gqlapi.GameResult{Success: true, UploadURL: c.uploads[in.MatchID]}, nil
}

func (c *fakeClient) matchIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.calls))
	for _, call := range c.calls {
		ids = append(ids, call.MatchID)
	}
	return ids
}

type fakeUploader struct {
	mu    sync.Mutex
	err   error
	got   map[string][]byte
	log   *[]string
	owner *fakeClient
}

func (u *fakeUploader) Upload(_ context.Context, snap replay.Snapshot, url string) error {
	// Share the client's lock so the combined log is ordered.
	u.owner.mu.Lock()
	*u.log = append(*u.log, "upload:"+url)
	u.owner.mu.Unlock()

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.got == nil {
		u.got = map[string][]byte{}
	}
	u.got[url] = snap.Bytes()
	return u.err
}

// recorder signals every settled report.
type recorder struct {
	settled chan journal.Entry
}

func newRecorder() *recorder { return &recorder{settled: make(chan journal.Entry, 64)} }

func (r *recorder) Record(_ context.Context, e journal.Entry) error {
	r.settled <- e
	return nil
}

func (r *recorder) wait(t *testing.T, n int) []journal.Entry {
	t.Helper()
	out := make([]journal.Entry, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case e := <-r.settled:
			out = append(out, e)
		case <-timeout:
			t.Fatalf("timed out waiting for %d settled reports, got %d", n, len(out))
		}
	}
	return out
}

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
}

type staticHash string

func (h staticHash) Hash() (string, bool) { return string(h), h != "" }

func startWorker(t *testing.T, opts reportqueue.Options) *reportqueue.Worker {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slogt.New(t)
	}
	w, err := reportqueue.NewWorker(opts)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	go w.Run(context.Background())
	t.Cleanup(func() {
		w.Shutdown()
		<-w.Done()
	})
	return w
}

func TestReportsAttemptedInInsertionOrder(t *testing.T) {
	client := &fakeClient{}
	rec := newRecorder()
	w := startWorker(t, reportqueue.Options{Client: client, Recorder: rec})

	want := []string{"a", "b", "c", "d", "e", "f"}
	for _, id := range want {
		w.Add(&report.GameReport{MatchID: id, OnlineMode: report.Unranked})
	}
	entries := rec.wait(t, len(want))

	got := client.matchIDs()
	if len(got) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] || entries[i].MatchID != want[i] {
			t.Fatalf("order mismatch at %d: calls %v", i, got)
		}
	}
	if w.Pending() != 0 {
		t.Fatalf("queue should be empty, %d pending", w.Pending())
	}
}

func TestFailingReportAttemptedMaxTimesThenDroppedOnce(t *testing.T) {
	client := &fakeClient{fail: map[string]bool{"bad": true}}
	rec := newRecorder()
	sleeps := &sleepLog{}
	notes := &osd.Recorder{}
	w := startWorker(t, reportqueue.Options{
		Client:   client,
		Recorder: rec,
		Notifier: notes,
		Sleep:    sleeps.sleep,
	})

	w.Add(&report.GameReport{MatchID: "bad", OnlineMode: report.Ranked})
	w.Add(&report.GameReport{MatchID: "good", OnlineMode: report.Ranked})
	entries := rec.wait(t, 2)

	if entries[0].MatchID != "bad" || entries[0].Result != journal.ResultDropped || entries[0].Attempts != reportqueue.DefaultMaxAttempts {
		t.Fatalf("unexpected drop entry %+v", entries[0])
	}
	if entries[1].MatchID != "good" || entries[1].Result != journal.ResultDelivered || entries[1].Attempts != 1 {
		t.Fatalf("unexpected delivery entry %+v", entries[1])
	}

	calls := client.matchIDs()
	badCalls := 0
	for _, id := range calls {
		if id == "bad" {
			badCalls++
		}
	}
	if badCalls != reportqueue.DefaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d (%v)", reportqueue.DefaultMaxAttempts, badCalls, calls)
	}

	wantDelays := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 400 * time.Millisecond}
	sleeps.mu.Lock()
	gotDelays := append([]time.Duration(nil), sleeps.delays...)
	sleeps.mu.Unlock()
	if len(gotDelays) != len(wantDelays) {
		t.Fatalf("expected delays %v, got %v", wantDelays, gotDelays)
	}
	for i := range wantDelays {
		if gotDelays[i] != wantDelays[i] {
			t.Fatalf("expected delays %v, got %v", wantDelays, gotDelays)
		}
	}

	msgs := notes.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one message for dropped ranked report, got %d", len(msgs))
	}
	if msgs[0].Text != reportqueue.DroppedRankedMessage || msgs[0].Color != osd.Red || msgs[0].Duration != osd.VeryLong {
		t.Fatalf("unexpected message %+v", msgs[0])
	}
}

func TestNonRankedDropIsSilent(t *testing.T) {
	for _, mode := range []report.OnlinePlayMode{report.Unranked, report.Direct, report.Teams} {
		t.Run(mode.String(), func(t *testing.T) {
			client := &fakeClient{fail: map[string]bool{"m": true}}
			rec := newRecorder()
			notes := &osd.Recorder{}
			w := startWorker(t, reportqueue.Options{Client: client, Recorder: rec, Notifier: notes, Sleep: (&sleepLog{}).sleep})

			w.Add(&report.GameReport{MatchID: "m", OnlineMode: mode})
			entries := rec.wait(t, 1)
			if entries[0].Result != journal.ResultDropped {
				t.Fatalf("expected drop, got %+v", entries[0])
			}
			if n := len(notes.Messages()); n != 0 {
				t.Fatalf("expected no messages for %s, got %d", mode, n)
			}
		})
	}
}

func TestShutdownGivesEachPendingReportOneAttempt(t *testing.T) {
	client := &fakeClient{fail: map[string]bool{"r1": true, "r2": true, "r3": true}}
	rec := newRecorder()
	w, err := reportqueue.NewWorker(reportqueue.Options{Client: client, Recorder: rec, Logger: slogt.New(t)})
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	reports := []*report.GameReport{
		{MatchID: "r1", OnlineMode: report.Unranked},
		{MatchID: "r2", OnlineMode: report.Unranked},
		{MatchID: "r3", OnlineMode: report.Unranked},
	}
	for _, r := range reports {
		w.Add(r)
	}
	w.Shutdown()
	go w.Run(context.Background())

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after shutdown")
	}

	calls := client.matchIDs()
	if len(calls) != 3 || calls[0] != "r1" || calls[1] != "r2" || calls[2] != "r3" {
		t.Fatalf("expected one attempt each in order, got %v", calls)
	}
	for _, r := range reports {
		if r.Attempts != 1 {
			t.Fatalf("report %s attempted %d times", r.MatchID, r.Attempts)
		}
	}
	if w.Pending() != 0 {
		t.Fatalf("expected empty queue after shutdown, got %d", w.Pending())
	}
	if got := len(rec.wait(t, 3)); got != 3 {
		t.Fatalf("expected 3 journal entries, got %d", got)
	}
}

func TestUploadFollowsDeliveryBeforeNextReport(t *testing.T) {
	var order []string
	client := &fakeClient{uploads: map[string]string{"first": "https://upload/first"}, log: &order}
	uploader := &fakeUploader{err: errors.New("503 from bucket"), log: &order, owner: client}
	rec := newRecorder()
	w := startWorker(t, reportqueue.Options{Client: client, Uploader: uploader, Recorder: rec, Hashes: staticHash("cafe")})

	w.Add(&report.GameReport{MatchID: "first", Replay: replay.SnapshotOf([]byte{0x35, 1, 2})})
	w.Add(&report.GameReport{MatchID: "second"})
	entries := rec.wait(t, 2)

	client.mu.Lock()
	got := append([]string(nil), order...)
	firstHash := client.calls[0].IsoHash
	client.mu.Unlock()

	want := []string{"report:first", "upload:https://upload/first", "report:second"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if firstHash != "cafe" {
		t.Fatalf("iso hash not merged into payload: %q", firstHash)
	}
	if entries[0].Result != journal.ResultDelivered || entries[0].Upload != journal.UploadFailed || entries[0].Attempts != 1 {
		t.Fatalf("upload failure must not affect delivery: %+v", entries[0])
	}
	if entries[1].Upload != journal.UploadNone {
		t.Fatalf("no url means no upload: %+v", entries[1])
	}
	uploader.mu.Lock()
	payload := uploader.got["https://upload/first"]
	uploader.mu.Unlock()
	if string(payload) != string([]byte{0x35, 1, 2}) {
		t.Fatalf("uploader received wrong snapshot %x", payload)
	}
}

func TestNotSuccessfulIsRetried(t *testing.T) {
	client := &flakyClient{failures: 2}
	rec := newRecorder()
	w := startWorker(t, reportqueue.Options{Client: client, Recorder: rec, Sleep: (&sleepLog{}).sleep})

	w.Add(&report.GameReport{MatchID: "flaky", OnlineMode: report.Ranked})
	entries := rec.wait(t, 1)
	if entries[0].Result != journal.ResultDelivered || entries[0].Attempts != 3 {
		t.Fatalf("expected delivery on third attempt, got %+v", entries[0])
	}
}

type flakyClient struct {
	mu       sync.Mutex
	failures int
}

func (c *flakyClient) ReportOnlineGame(context.Context, gqlapi.OnlineGameReportInput) (gqlapi.GameResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return gqlapi.GameResult{Success: false}, nil
	}
	return gqlapi.GameResult{Success: true}, nil
}

func TestPanickingClientCountsAsFailedAttempt(t *testing.T) {
	client := &fakeClient{panics: map[string]bool{"boom": true}}
	rec := newRecorder()
	notes := &osd.Recorder{}
	w := startWorker(t, reportqueue.Options{Client: client, Recorder: rec, Notifier: notes, Sleep: (&sleepLog{}).sleep})

	w.Add(&report.GameReport{MatchID: "boom", OnlineMode: report.Ranked})
	w.Add(&report.GameReport{MatchID: "after", OnlineMode: report.Ranked})
	entries := rec.wait(t, 2)

	if entries[0].MatchID != "boom" || entries[0].Result != journal.ResultDropped || entries[0].Attempts != reportqueue.DefaultMaxAttempts {
		t.Fatalf("unexpected drop entry %+v", entries[0])
	}
	if entries[1].MatchID != "after" || entries[1].Result != journal.ResultDelivered {
		t.Fatalf("report after panic not delivered: %+v", entries[1])
	}
	if n := len(notes.Messages()); n != 1 {
		t.Fatalf("expected one ranked drop message, got %d", n)
	}
}

type panicUploader struct{}

func (panicUploader) Upload(context.Context, replay.Snapshot, string) error {
	panic("bucket exploded")
}

func TestPanickingUploaderKeepsDelivery(t *testing.T) {
	client := &fakeClient{uploads: map[string]string{"a": "https://upload/a"}}
	rec := newRecorder()
	w := startWorker(t, reportqueue.Options{Client: client, Uploader: panicUploader{}, Recorder: rec})

	w.Add(&report.GameReport{MatchID: "a"})
	w.Add(&report.GameReport{MatchID: "b"})
	entries := rec.wait(t, 2)

	if entries[0].Result != journal.ResultDelivered || entries[0].Upload != journal.UploadFailed || entries[0].Attempts != 1 {
		t.Fatalf("unexpected entry after upload panic %+v", entries[0])
	}
	if entries[1].MatchID != "b" || entries[1].Result != journal.ResultDelivered {
		t.Fatalf("next report not delivered: %+v", entries[1])
	}
}

func TestNewWorkerRequiresClient(t *testing.T) {
	if _, err := reportqueue.NewWorker(reportqueue.Options{}); err == nil {
		t.Fatal("expected error without client")
	}
}
