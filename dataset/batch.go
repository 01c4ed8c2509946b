package dataset

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// VideoAnnotator is satisfied by *Annotator.
type VideoAnnotator interface {
	AnnotateVideo(ctx context.Context, row IndexRow) Outcome
}

// Tally counts batch outcomes. OK includes Skipped.
type Tally struct {
	OK      int
	Skipped int
	Failed  int
}

func (t Tally) String() string {
	return fmt.Sprintf("ok=%d fail=%d", t.OK, t.Failed)
}

// RunBatch annotates rows in order. A failed item is counted and the batch moves on;
// only ctx cancellation stops it early, in which case ctx.Err() is returned with the
// tally so far.
func RunBatch(ctx context.Context, rows []IndexRow, annotator VideoAnnotator, logger *zap.Logger) (Tally, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var tally Tally
	total := len(rows)
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch interrupted", zap.Int("done", i), zap.Int("total", total), zap.Stringer("tally", tally))
			return tally, err
		}

		out := annotator.AnnotateVideo(ctx, row)
		switch out.Status {
		case StatusSkipped:
			tally.OK++
			tally.Skipped++
		case StatusSucceeded:
			tally.OK++
		default:
			tally.Failed++
		}

		fields := []zap.Field{
			zap.Int("item", i+1),
			zap.Int("total", total),
			zap.String("video_id", row.VideoID),
			zap.Stringer("outcome", out.Status),
		}
		if out.Artifact != ArtifactNone {
			fields = append(fields, zap.Stringer("artifact", out.Artifact))
		}
		if out.Err != nil {
			fields = append(fields, zap.Error(out.Err))
		}
		logger.Info("progress", fields...)

		// The item itself may have been cut short by cancellation.
		if out.Status == StatusFailed && ctx.Err() != nil {
			logger.Warn("batch interrupted", zap.Int("done", i+1), zap.Int("total", total), zap.Stringer("tally", tally))
			return tally, ctx.Err()
		}
	}
	logger.Info("batch complete", zap.Int("ok", tally.OK), zap.Int("skipped", tally.Skipped), zap.Int("fail", tally.Failed))
	return tally, nil
}
