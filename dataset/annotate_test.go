package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/theimaginaryfoundation/frame-atlas/dataset/provider"
)

type scriptedCall struct {
	status int
	body   string
	err    error
}

type fakeRequester struct {
	script []scriptedCall
	models []string
	urls   []string
}

func (f *fakeRequester) RequestTimeline(ctx context.Context, watchURL, model string) (provider.Response, error) {
	f.models = append(f.models, model)
	f.urls = append(f.urls, watchURL)
	i := len(f.models) - 1
	if i >= len(f.script) {
		return provider.Response{StatusCode: 503, Body: []byte(`{"error":"script exhausted"}`)}, nil
	}
	c := f.script[i]
	if c.err != nil {
		return provider.Response{}, c.err
	}
	return provider.Response{StatusCode: c.status, Body: []byte(c.body)}, nil
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func envelope(text string) string {
	b, _ := json.Marshal(text)
	return `{"candidates":[{"content":{"parts":[{"text":` + string(b) + `}]}}]}`
}

func newTestAnnotator(t *testing.T, req Requester) (*Annotator, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	a := NewAnnotator(req, NewArtifactStore(t.TempDir()))
	a.Sleep = rec.Sleep
	a.Jitter = func() float64 { return 0 }
	a.Logger = zaptest.NewLogger(t)
	return a, rec
}

func approx(d, want time.Duration) bool {
	diff := d - want
	if diff < 0 {
		diff = -diff
	}
	return diff < time.Millisecond
}

func TestAnnotateVideo_SkipsWhenArtifactExists(t *testing.T) {
	t.Parallel()

	for _, kind := range []ArtifactKind{ArtifactParsed, ArtifactRawEnvelope, ArtifactRawText} {
		req := &fakeRequester{}
		a, rec := newTestAnnotator(t, req)
		if err := os.WriteFile(a.Store.Path("abcdefghijk", kind), []byte("{}"), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk"})
		if out.Status != StatusSkipped || out.Artifact != kind || !out.Succeeded() {
			t.Fatalf("%v: outcome=%+v, want skipped", kind, out)
		}
		if len(req.models) != 0 || len(rec.sleeps) != 0 {
			t.Fatalf("%v: requests=%d sleeps=%d, want 0/0", kind, len(req.models), len(rec.sleeps))
		}
	}
}

func TestAnnotateVideo_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{
		{status: 429, body: `{"error":{"code":429}}`},
		{status: 429, body: `{"error":{"code":429}}`},
		{status: 200, body: envelope("```json\n{\"fps\":1}\n```")},
	}}
	a, rec := newTestAnnotator(t, req)

	out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk", WatchURL: "https://www.youtube.com/shorts/abcdefghijk"})
	if out.Status != StatusSucceeded || out.Artifact != ArtifactParsed {
		t.Fatalf("outcome=%+v", out)
	}
	if out.Attempts != 3 {
		t.Fatalf("attempts=%d, want 3", out.Attempts)
	}
	wantModels := []string{"gemini-2.5-pro", "gemini-2.5-pro", "gemini-2.5-flash"}
	if !slices.Equal(req.models, wantModels) {
		t.Fatalf("models=%v, want %v", req.models, wantModels)
	}
	if req.urls[0] != "https://www.youtube.com/watch?v=abcdefghijk" {
		t.Fatalf("url=%q, want watch url", req.urls[0])
	}
	// two backoff sleeps, then one pacing sleep
	if len(rec.sleeps) != 3 {
		t.Fatalf("sleeps=%v, want 3", rec.sleeps)
	}
	if !approx(rec.sleeps[0], 3*time.Second) || !approx(rec.sleeps[1], 5100*time.Millisecond) {
		t.Fatalf("backoff sleeps=%v, want ~3s then ~5.1s", rec.sleeps[:2])
	}
	if !approx(rec.sleeps[2], 1200*time.Millisecond) {
		t.Fatalf("pacing=%v, want 1.2s", rec.sleeps[2])
	}

	// 429s exhausted the pro tier; the 200 came from flash.
	if _, err := os.Stat(a.Store.ErrorPath("abcdefghijk", "gemini-2.5-pro", 429)); err != nil {
		t.Fatalf("expected pro/429 error artifact: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(a.Store.Dir, "abcdefghijk_error_gemini-2.5-flash_*"))
	if len(matches) != 0 {
		t.Fatalf("unexpected error artifacts for the successful attempt: %v", matches)
	}
	b, err := os.ReadFile(out.Path)
	if err != nil || !strings.Contains(string(b), `"fps": 1`) {
		t.Fatalf("parsed artifact=%q err=%v", string(b), err)
	}
}

func TestAnnotateVideo_PermanentStatusSkipsToNextTierWithoutSleep(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{
		{status: 400, body: `{"error":{"code":400}}`},
		{status: 200, body: envelope(`{"summary":"ok"}`)},
	}}
	a, rec := newTestAnnotator(t, req)

	out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk"})
	if out.Status != StatusSucceeded || out.Model != "gemini-2.5-flash" {
		t.Fatalf("outcome=%+v", out)
	}
	if len(req.models) != 2 || req.models[0] != "gemini-2.5-pro" || req.models[1] != "gemini-2.5-flash" {
		t.Fatalf("models=%v", req.models)
	}
	// only the pacing sleep
	if len(rec.sleeps) != 1 || !approx(rec.sleeps[0], 1200*time.Millisecond) {
		t.Fatalf("sleeps=%v, want only pacing", rec.sleeps)
	}
	b, err := os.ReadFile(a.Store.ErrorPath("abcdefghijk", "gemini-2.5-pro", 400))
	if err != nil || string(b) != `{"error":{"code":400}}` {
		t.Fatalf("error artifact=%q err=%v", string(b), err)
	}
}

func TestAnnotateVideo_InvalidVideoIDTouchesNothing(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"../escaped", "abc", "abcdefghijk/", "abcdefg.ijk"} {
		req := &fakeRequester{script: []scriptedCall{{status: 200, body: envelope(`{"fps":1}`)}}}
		a, rec := newTestAnnotator(t, req)
		root := t.TempDir()
		a.Store = NewArtifactStore(filepath.Join(root, "frames"))

		out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: id})
		if out.Status != StatusFailed || !errors.Is(out.Err, ErrInvalidVideoID) {
			t.Fatalf("%q: outcome=%+v, want ErrInvalidVideoID", id, out)
		}
		if len(req.models) != 0 || len(rec.sleeps) != 0 {
			t.Fatalf("%q: requests=%d sleeps=%d, want 0/0", id, len(req.models), len(rec.sleeps))
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		if len(entries) != 0 {
			t.Fatalf("%q: %d entries written under %s, want none", id, len(entries), root)
		}
	}
}

func TestAnnotateVideo_ScalarAnswerSavesTxt(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{
		{status: 200, body: envelope("42")},
	}}
	a, _ := newTestAnnotator(t, req)

	out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk"})
	if out.Status != StatusSucceeded || out.Artifact != ArtifactRawText {
		t.Fatalf("outcome=%+v, want raw text", out)
	}
	if filepath.Base(out.Path) != "abcdefghijk.txt" {
		t.Fatalf("path=%s", out.Path)
	}
}

func TestAnnotateVideo_EnvelopeWithoutTextSavesRaw(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{
		{status: 200, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`},
	}}
	a, _ := newTestAnnotator(t, req)

	out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk"})
	if out.Status != StatusSucceeded || out.Artifact != ArtifactRawEnvelope {
		t.Fatalf("outcome=%+v, want raw envelope", out)
	}
	if filepath.Base(out.Path) != "abcdefghijk_raw.json" {
		t.Fatalf("path=%s", out.Path)
	}
}

func TestAnnotateVideo_UnparsableTextSavesTxt(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{
		{status: 200, body: envelope("Sorry, I cannot watch videos.")},
	}}
	a, _ := newTestAnnotator(t, req)

	out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk"})
	if out.Status != StatusSucceeded || out.Artifact != ArtifactRawText {
		t.Fatalf("outcome=%+v, want raw text", out)
	}
	b, _ := os.ReadFile(out.Path)
	if string(b) != "Sorry, I cannot watch videos." {
		t.Fatalf("txt=%q", string(b))
	}
}

func TestAnnotateVideo_AllTiersFail(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{
		{status: 503, body: "a"},
		{status: 500, body: "b"},
		{status: 502, body: "c"},
		{status: 504, body: "d"},
	}}
	a, rec := newTestAnnotator(t, req)

	out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk"})
	if out.Status != StatusFailed || out.Succeeded() {
		t.Fatalf("outcome=%+v, want failed", out)
	}
	if !errors.Is(out.Err, ErrTransientAPI) {
		t.Fatalf("err=%v, want ErrTransientAPI", out.Err)
	}
	var apiErr *APIError
	if !errors.As(out.Err, &apiErr) || apiErr.StatusCode != 504 || apiErr.Model != "gemini-2.5-flash" {
		t.Fatalf("last APIError=%+v", apiErr)
	}
	if len(req.models) != 4 || len(rec.sleeps) != 4 {
		t.Fatalf("requests=%d sleeps=%d, want 4/4", len(req.models), len(rec.sleeps))
	}
	if _, _, ok := a.Store.Resolve("abcdefghijk"); ok {
		t.Fatalf("failed item must not leave a done artifact")
	}
}

func TestAnnotateVideo_TransportErrorIsTransient(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{
		{err: errors.New("dial tcp: connection refused")},
		{status: 200, body: envelope(`{"fps":1}`)},
	}}
	a, rec := newTestAnnotator(t, req)

	out := a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk"})
	if out.Status != StatusSucceeded || out.Model != "gemini-2.5-pro" {
		t.Fatalf("outcome=%+v", out)
	}
	b, err := os.ReadFile(a.Store.ErrorPath("abcdefghijk", "gemini-2.5-pro", 0))
	if err != nil || !strings.Contains(string(b), "connection refused") {
		t.Fatalf("status-0 artifact=%q err=%v", string(b), err)
	}
	if len(rec.sleeps) != 2 || !approx(rec.sleeps[0], 3*time.Second) {
		t.Fatalf("sleeps=%v", rec.sleeps)
	}
}

func TestAnnotateVideo_JitterIsAddedToBackoff(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{
		{status: 429},
		{status: 200, body: envelope(`{}`)},
	}}
	a, rec := newTestAnnotator(t, req)
	a.Jitter = func() float64 { return 0.5 }

	a.AnnotateVideo(context.Background(), IndexRow{VideoID: "abcdefghijk"})
	if !approx(rec.sleeps[0], 4*time.Second) {
		t.Fatalf("backoff=%v, want 3s+1s jitter", rec.sleeps[0])
	}
	if !approx(rec.sleeps[1], 2100*time.Millisecond) {
		t.Fatalf("pacing=%v, want 1.2s+0.9s", rec.sleeps[1])
	}
}

func TestAnnotateVideo_CancelledContext(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{script: []scriptedCall{{status: 429}}}
	a, _ := newTestAnnotator(t, req)

	ctx, cancel := context.WithCancel(context.Background())
	a.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	out := a.AnnotateVideo(ctx, IndexRow{VideoID: "abcdefghijk"})
	if out.Status != StatusFailed || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("outcome=%+v, want canceled", out)
	}
	if len(req.models) != 1 {
		t.Fatalf("requests=%d, want 1", len(req.models))
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("SleepContext: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want canceled", err)
	}
}
