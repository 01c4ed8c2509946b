package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/frame-atlas/dataset/fileutils"
)

// IndexColumns is the column order of videos_index.csv.
var IndexColumns = []string{
	"channel_id",
	"channel_title",
	"video_id",
	"watch_url",
	"shorts_url",
	"title",
	"publishedAt",
	"views",
	"likes",
	"comments",
	"duration_s",
	"categoryId",
}

var requiredIndexColumns = []string{"video_id", "watch_url"}

const utf8BOM = "\uFEFF"

// IndexRow is one video from the index. Values are kept as written in the CSV;
// numeric coercion happens in BuildMasterRecord.
type IndexRow struct {
	ChannelID    string
	ChannelTitle string
	VideoID      string
	WatchURL     string
	ShortsURL    string
	Title        string
	PublishedAt  string
	Views        string
	Likes        string
	Comments     string
	DurationS    string
	CategoryID   string
}

func (r IndexRow) values() []string {
	return []string{
		r.ChannelID,
		r.ChannelTitle,
		r.VideoID,
		r.WatchURL,
		r.ShortsURL,
		r.Title,
		r.PublishedAt,
		r.Views,
		r.Likes,
		r.Comments,
		r.DurationS,
		r.CategoryID,
	}
}

// ReadIndexCSV loads the video index. A leading UTF-8 BOM is ignored, columns are matched
// by header name, and video_id/watch_url must be present.
func ReadIndexCSV(path string) ([]IndexRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadIndexCSV: open: %w", err)
	}
	defer f.Close()
	return ParseIndexCSV(f)
}

func ParseIndexCSV(r io.Reader) ([]IndexRow, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("ReadIndexCSV: missing header row")
		}
		return nil, fmt.Errorf("ReadIndexCSV: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, req := range requiredIndexColumns {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("ReadIndexCSV: missing required column %q", req)
		}
	}

	var rows []IndexRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadIndexCSV: line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		row := IndexRow{
			ChannelID:    get("channel_id"),
			ChannelTitle: get("channel_title"),
			VideoID:      get("video_id"),
			WatchURL:     get("watch_url"),
			ShortsURL:    get("shorts_url"),
			Title:        get("title"),
			PublishedAt:  get("publishedAt"),
			Views:        get("views"),
			Likes:        get("likes"),
			Comments:     get("comments"),
			DurationS:    get("duration_s"),
			CategoryID:   get("categoryId"),
		}
		if row.VideoID == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteIndexCSV writes rows with a UTF-8 BOM so spreadsheet tools detect the encoding.
func WriteIndexCSV(path string, rows []IndexRow) error {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(IndexColumns); err != nil {
		return fmt.Errorf("WriteIndexCSV: header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.values()); err != nil {
			return fmt.Errorf("WriteIndexCSV: row %s: %w", r.VideoID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("WriteIndexCSV: flush: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("WriteIndexCSV: mkdir: %w", err)
	}
	if err := fileutils.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("WriteIndexCSV: write: %w", err)
	}
	return nil
}
