package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/frame-atlas/dataset/fileutils"
	"github.com/theimaginaryfoundation/frame-atlas/dataset/provider"
)

// ModelTier is one rung of the fallback ladder: a model and how many requests it gets.
type ModelTier struct {
	Model    string `yaml:"model"`
	Attempts int    `yaml:"attempts"`
}

func DefaultTiers() []ModelTier {
	return []ModelTier{
		{Model: "gemini-2.5-pro", Attempts: 2},
		{Model: "gemini-2.5-flash", Attempts: 2},
	}
}

// BackoffPolicy controls the sleep after a transient failure. The delay starts at Initial
// for every video and grows by Multiplier after each sleep, across all tiers.
type BackoffPolicy struct {
	Initial    time.Duration `yaml:"initial"`
	Multiplier float64       `yaml:"multiplier"`
	MaxJitter  time.Duration `yaml:"max_jitter"`
}

func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{Initial: 3 * time.Second, Multiplier: 1.7, MaxJitter: 2 * time.Second}
}

// PacingPolicy is the pause after a video gets an artifact: Min plus up to Spread.
type PacingPolicy struct {
	Min    time.Duration `yaml:"min"`
	Spread time.Duration `yaml:"spread"`
}

func DefaultPacing() PacingPolicy {
	return PacingPolicy{Min: 1200 * time.Millisecond, Spread: 1800 * time.Millisecond}
}

// Requester sends one annotation request. Non-2xx statuses come back as a Response;
// an error means no HTTP response was received.
type Requester interface {
	RequestTimeline(ctx context.Context, watchURL, model string) (provider.Response, error)
}

type OutcomeStatus int

const (
	StatusSucceeded OutcomeStatus = iota + 1
	StatusSkipped
	StatusFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of annotating one video.
type Outcome struct {
	VideoID  string
	Status   OutcomeStatus
	Artifact ArtifactKind
	Path     string
	// Model that produced the artifact; empty for skipped and failed items.
	Model    string
	Attempts int
	Err      error
}

// Succeeded reports whether the video now has an annotation artifact.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded || o.Status == StatusSkipped
}

// Annotator runs the per-video request/fallback/persist loop. Zero-valued policy fields
// fall back to the defaults.
type Annotator struct {
	Requester Requester
	Store     *ArtifactStore
	Tiers     []ModelTier
	Backoff   BackoffPolicy
	Pacing    PacingPolicy

	// Sleep blocks for d or until ctx is done. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a value in [0,1). Defaults to math/rand/v2.
	Jitter func() float64

	Logger  *zap.Logger
	Metrics *Metrics
}

func NewAnnotator(req Requester, store *ArtifactStore) *Annotator {
	return &Annotator{
		Requester: req,
		Store:     store,
		Tiers:     DefaultTiers(),
		Backoff:   DefaultBackoff(),
		Pacing:    DefaultPacing(),
		Sleep:     SleepContext,
		Jitter:    rand.Float64,
		Logger:    zap.NewNop(),
	}
}

// SleepContext waits for d, returning ctx.Err() if ctx ends first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Annotator) withDefaults() Annotator {
	c := *a
	if len(c.Tiers) == 0 {
		c.Tiers = DefaultTiers()
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff.Initial = DefaultBackoff().Initial
	}
	if c.Backoff.Multiplier <= 0 {
		c.Backoff.Multiplier = DefaultBackoff().Multiplier
	}
	if c.Backoff.MaxJitter < 0 {
		c.Backoff.MaxJitter = 0
	}
	if c.Pacing.Min <= 0 && c.Pacing.Spread <= 0 {
		c.Pacing = DefaultPacing()
	}
	if c.Sleep == nil {
		c.Sleep = SleepContext
	}
	if c.Jitter == nil {
		c.Jitter = rand.Float64
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// AnnotateVideo ensures row's video has an annotation artifact. It never panics and never
// returns a Go error: failures are reported in the Outcome.
func (a *Annotator) AnnotateVideo(ctx context.Context, row IndexRow) Outcome {
	cfg := a.withDefaults()
	out := cfg.annotate(ctx, row)
	cfg.Metrics.IncItem(out.Status)
	return out
}

func (a *Annotator) annotate(ctx context.Context, row IndexRow) Outcome {
	id := row.VideoID
	log := a.Logger.With(zap.String("video_id", id))

	if a.Requester == nil || a.Store == nil {
		return Outcome{VideoID: id, Status: StatusFailed, Err: errors.New("annotator: requester and store are required")}
	}
	if !ValidVideoID(id) {
		log.Warn("skipping row with invalid video id")
		return Outcome{VideoID: id, Status: StatusFailed, Err: fmt.Errorf("%w: %q", ErrInvalidVideoID, id)}
	}

	if kind, path, ok := a.Store.Resolve(id); ok {
		log.Debug("skip: artifact exists", zap.Stringer("artifact", kind))
		return Outcome{VideoID: id, Status: StatusSkipped, Artifact: kind, Path: path}
	}

	watch := ToWatchURL(row.WatchURL)
	if watch == "" {
		watch = WatchURL(id)
	}

	delay := a.Backoff.Initial
	attempts := 0
	var lastErr error

	for _, tier := range a.Tiers {
		for try := 1; try <= tier.Attempts; try++ {
			if err := ctx.Err(); err != nil {
				return Outcome{VideoID: id, Status: StatusFailed, Attempts: attempts, Err: err}
			}
			attempts++

			resp, err := a.Requester.RequestTimeline(ctx, watch, tier.Model)
			if err != nil {
				if ctx.Err() != nil {
					return Outcome{VideoID: id, Status: StatusFailed, Attempts: attempts, Err: ctx.Err()}
				}
				resp = provider.Response{StatusCode: 0, Body: transportErrorBody(err)}
			}
			a.Metrics.IncRequest(tier.Model, resp.StatusCode)

			if resp.StatusCode == http.StatusOK {
				out := a.persist(id, resp.Body, log)
				out.Model = tier.Model
				out.Attempts = attempts
				if out.Status == StatusSucceeded {
					log.Info("annotated",
						zap.String("model", tier.Model),
						zap.Stringer("artifact", out.Artifact),
						zap.Int("attempts", attempts),
					)
					if err := a.Sleep(ctx, a.pacingDelay()); err != nil {
						log.Debug("pacing interrupted", zap.Error(err))
					}
				}
				return out
			}

			apiErr := &APIError{Model: tier.Model, StatusCode: resp.StatusCode, Body: resp.Body}
			lastErr = apiErr
			if _, werr := a.Store.WriteError(id, tier.Model, resp.StatusCode, resp.Body); werr != nil {
				log.Warn("write error artifact", zap.Error(werr))
			}

			if !errors.Is(apiErr, ErrTransientAPI) {
				log.Warn("permanent failure, next model",
					zap.String("model", tier.Model),
					zap.Int("status", resp.StatusCode),
					zap.String("body", fileutils.Truncate(string(resp.Body), 200)),
				)
				break
			}

			wait := delay + time.Duration(a.Jitter()*float64(a.Backoff.MaxJitter))
			log.Info("transient failure, backing off",
				zap.String("model", tier.Model),
				zap.Int("status", resp.StatusCode),
				zap.Int("try", try),
				zap.Duration("wait", wait),
			)
			a.Metrics.AddBackoff(wait)
			if err := a.Sleep(ctx, wait); err != nil {
				return Outcome{VideoID: id, Status: StatusFailed, Attempts: attempts, Err: err}
			}
			delay = time.Duration(float64(delay) * a.Backoff.Multiplier)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no model attempts configured")
	}
	log.Warn("all models exhausted", zap.Int("attempts", attempts), zap.Error(lastErr))
	return Outcome{VideoID: id, Status: StatusFailed, Attempts: attempts, Err: fmt.Errorf("annotate %s: %w", id, lastErr)}
}

// persist writes the best artifact a 200 response allows: parsed JSON, else the raw
// model text, else the whole envelope.
func (a *Annotator) persist(id string, body []byte, log *zap.Logger) Outcome {
	var (
		kind ArtifactKind
		path string
		err  error
	)
	text, terr := provider.CandidateText(body)
	switch {
	case terr != nil:
		log.Warn("envelope has no text, saving raw response", zap.Error(terr))
		kind = ArtifactRawEnvelope
		path, err = a.Store.WriteRawEnvelope(id, body)
	default:
		record, xerr := ExtractJSON(text)
		if xerr != nil {
			log.Warn("model output is not JSON, saving text", zap.Error(xerr))
			kind = ArtifactRawText
			path, err = a.Store.WriteRawText(id, text)
		} else {
			kind = ArtifactParsed
			path, err = a.Store.WriteParsed(id, record)
		}
	}
	if err != nil {
		log.Error("persist artifact", zap.Stringer("artifact", kind), zap.Error(err))
		return Outcome{VideoID: id, Status: StatusFailed, Err: err}
	}
	return Outcome{VideoID: id, Status: StatusSucceeded, Artifact: kind, Path: path}
}

func (a *Annotator) pacingDelay() time.Duration {
	return a.Pacing.Min + time.Duration(a.Jitter()*float64(a.Pacing.Spread))
}

func transportErrorBody(err error) []byte {
	b, merr := fileutils.MarshalJSON(map[string]string{"error": err.Error()}, false)
	if merr != nil {
		return []byte(`{"error":"transport failure"}`)
	}
	return b
}
