package ytindex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/frame-atlas/dataset"
	"github.com/theimaginaryfoundation/frame-atlas/dataset/fileutils"
)

// Indexer walks channels and collects every uploaded video into index rows, writing
// per-channel and per-video metadata files under OutDir as it goes.
type Indexer struct {
	Client *Client
	OutDir string
	Logger *zap.Logger
}

// Summary reports what a run covered.
type Summary struct {
	Channels        int
	ChannelsSkipped int
	Videos          int
}

func (ix *Indexer) channelPath(id string) string {
	return filepath.Join(ix.OutDir, "channels", id+".json")
}

func (ix *Indexer) videoPath(id string) string {
	return filepath.Join(ix.OutDir, "videos", id+".json")
}

// Run indexes every channel in order. Channels that cannot be resolved are logged and skipped;
// API and disk errors abort the run.
func (ix *Indexer) Run(ctx context.Context, channels []string) ([]dataset.IndexRow, Summary, error) {
	log := ix.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var (
		rows []dataset.IndexRow
		sum  Summary
	)
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return rows, sum, err
		}
		clog := log.With(zap.String("channel", ch))

		cid, err := ix.Client.ResolveChannelID(ctx, ch)
		if err != nil {
			if errors.Is(err, ErrChannelNotFound) {
				clog.Warn("cannot resolve channel id, skipping")
				sum.ChannelsSkipped++
				continue
			}
			return rows, sum, err
		}
		clog = clog.With(zap.String("channel_id", cid))

		meta, uploads, err := ix.Client.Channel(ctx, cid)
		if err != nil {
			if errors.Is(err, ErrChannelNotFound) || errors.Is(err, ErrNoUploads) {
				clog.Warn("no uploads playlist, skipping", zap.Error(err))
				sum.ChannelsSkipped++
				continue
			}
			return rows, sum, err
		}
		if err := fileutils.WriteJSONFileAtomic(ix.channelPath(cid), meta, true); err != nil {
			return rows, sum, fmt.Errorf("write channel %s: %w", cid, err)
		}

		ids, err := ix.Client.PlaylistVideoIDs(ctx, uploads)
		if err != nil {
			return rows, sum, err
		}
		videos, err := ix.Client.Videos(ctx, ids)
		if err != nil {
			return rows, sum, err
		}
		for _, v := range videos {
			rec := VideoRecordFromAPI(v)
			if err := fileutils.WriteJSONFileAtomic(ix.videoPath(rec.VideoID), rec, true); err != nil {
				return rows, sum, fmt.Errorf("write video %s: %w", rec.VideoID, err)
			}
			rows = append(rows, rec.IndexRow())
		}
		sum.Channels++
		sum.Videos += len(videos)
		clog.Info("channel indexed", zap.String("title", meta.Title), zap.Int("uploads", len(ids)), zap.Int("videos", len(videos)))
	}
	return rows, sum, nil
}
