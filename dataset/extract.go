package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	bareFenceRe = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")
)

// ExtractJSON recovers a JSON object from a model response. It tries, in order:
// a ```json fenced object, a bare ``` fenced object, then the whole text.
// The first candidate that parses wins and is returned compacted, keeping key order.
// Scalars and arrays are not records and fail with a FormatError.
func ExtractJSON(text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	for _, re := range []*regexp.Regexp{jsonFenceRe, bareFenceRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if out, err := compactJSON(m[1]); err == nil {
			return out, nil
		}
	}

	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, &FormatError{Len: len(text), Err: errors.New("top-level value is not an object")}
	}
	out, err := compactJSON(trimmed)
	if err != nil {
		return nil, &FormatError{Len: len(text), Err: err}
	}
	return out, nil
}

func compactJSON(s string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
