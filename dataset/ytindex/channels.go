package ytindex

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\uFEFF"

// ReadChannelsCSV returns the non-empty values of the "channel" column.
func ReadChannelsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadChannelsCSV: open: %w", err)
	}
	defer f.Close()
	return ParseChannelsCSV(f)
}

func ParseChannelsCSV(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("ReadChannelsCSV: missing header row")
		}
		return nil, fmt.Errorf("ReadChannelsCSV: read header: %w", err)
	}
	idx := -1
	for i, h := range header {
		if strings.TrimSpace(h) == "channel" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.New(`ReadChannelsCSV: missing required column "channel"`)
	}

	var out []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("ReadChannelsCSV: %w", err)
		}
		if idx >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[idx]); v != "" {
			out = append(out, v)
		}
	}
}
