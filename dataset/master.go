package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/theimaginaryfoundation/frame-atlas/dataset/fileutils"
)

// MasterRecord is one line of master_frames.ndjson.
type MasterRecord struct {
	VideoMeta VideoMeta `json:"video_meta"`
	Frames    FramesRef `json:"frames"`
}

type VideoMeta struct {
	VideoID      string `json:"video_id"`
	WatchURL     string `json:"watch_url"`
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	Title        string `json:"title"`
	PublishedAt  string `json:"publishedAt"`
	Views        int64  `json:"views"`
	Likes        int64  `json:"likes"`
	Comments     int64  `json:"comments"`
	DurationS    int64  `json:"duration_s"`
	CategoryID   string `json:"categoryId"`
}

// FramesRef points at the best annotation artifact, or is null when the video has none.
type FramesRef struct {
	FramesRef *string `json:"frames_ref"`
}

// BuildMasterRecord combines an index row with the artifact reference (nil for none).
func BuildMasterRecord(row IndexRow, framesRef *string) MasterRecord {
	return MasterRecord{
		VideoMeta: VideoMeta{
			VideoID:      row.VideoID,
			WatchURL:     row.WatchURL,
			ChannelID:    row.ChannelID,
			ChannelTitle: row.ChannelTitle,
			Title:        row.Title,
			PublishedAt:  row.PublishedAt,
			Views:        parseCount(row.Views),
			Likes:        parseCount(row.Likes),
			Comments:     parseCount(row.Comments),
			DurationS:    parseCount(row.DurationS),
			CategoryID:   row.CategoryID,
		},
		Frames: FramesRef{FramesRef: framesRef},
	}
}

// parseCount reads an integer column. Float forms ("12.0") are truncated;
// blanks and garbage become 0.
func parseCount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// FramesRefFor resolves the highest-priority artifact for videoID as a slash path relative
// to baseDir. It returns nil when the video has no artifact.
func FramesRefFor(store *ArtifactStore, baseDir, videoID string) *string {
	_, p, ok := store.Resolve(videoID)
	if !ok {
		return nil
	}
	ref := p
	if rel, err := filepath.Rel(baseDir, p); err == nil {
		ref = rel
	}
	ref = filepath.ToSlash(ref)
	return &ref
}

// WriteMaster rebuilds the consolidated NDJSON file from the index rows and whatever
// artifacts exist on disk. The file is replaced atomically.
func WriteMaster(path string, rows []IndexRow, store *ArtifactStore) (int, error) {
	if store == nil {
		return 0, fmt.Errorf("write master: store is nil")
	}
	baseDir := filepath.Dir(path)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	withRef := 0
	for _, row := range rows {
		ref := FramesRefFor(store, baseDir, row.VideoID)
		if ref != nil {
			withRef++
		}
		if err := enc.Encode(BuildMasterRecord(row, ref)); err != nil {
			return 0, fmt.Errorf("write master: encode %s: %w", row.VideoID, err)
		}
	}
	if err := fileutils.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write master: %w", err)
	}
	return withRef, nil
}
