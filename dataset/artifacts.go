package dataset

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/theimaginaryfoundation/frame-atlas/dataset/fileutils"
)

// ArtifactKind identifies which representation of an annotation was persisted for a video.
type ArtifactKind int

const (
	ArtifactNone ArtifactKind = iota
	// ArtifactParsed is the extracted JSON record (<id>.json).
	ArtifactParsed
	// ArtifactRawEnvelope is the full API response when no text payload was found (<id>_raw.json).
	ArtifactRawEnvelope
	// ArtifactRawText is the model text that could not be parsed as JSON (<id>.txt).
	ArtifactRawText
)

func (k ArtifactKind) String() string {
	switch k {
	case ArtifactParsed:
		return "parsed"
	case ArtifactRawEnvelope:
		return "raw_envelope"
	case ArtifactRawText:
		return "raw_text"
	default:
		return "none"
	}
}

func (k ArtifactKind) suffix() string {
	switch k {
	case ArtifactParsed:
		return ".json"
	case ArtifactRawEnvelope:
		return "_raw.json"
	case ArtifactRawText:
		return ".txt"
	default:
		return ""
	}
}

// artifactPriority is the order used both for the done-check and for frames_ref resolution.
var artifactPriority = []ArtifactKind{ArtifactParsed, ArtifactRawEnvelope, ArtifactRawText}

// ArtifactStore lays out per-video artifacts in a single directory keyed by video id.
type ArtifactStore struct {
	Dir    string
	Pretty bool
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{Dir: dir, Pretty: true}
}

func (s *ArtifactStore) Path(videoID string, kind ArtifactKind) string {
	return filepath.Join(s.Dir, videoID+kind.suffix())
}

func (s *ArtifactStore) ErrorPath(videoID, model string, status int) string {
	return filepath.Join(s.Dir, videoID+"_error_"+model+"_"+strconv.Itoa(status)+".json")
}

// Resolve returns the highest-priority artifact that exists for videoID.
func (s *ArtifactStore) Resolve(videoID string) (ArtifactKind, string, bool) {
	if !ValidVideoID(videoID) {
		return ArtifactNone, "", false
	}
	for _, k := range artifactPriority {
		p := s.Path(videoID, k)
		if fileutils.FileExists(p) {
			return k, p, true
		}
	}
	return ArtifactNone, "", false
}

// WriteParsed stores an extracted record, re-indented for readability with key order preserved.
func (s *ArtifactStore) WriteParsed(videoID string, record json.RawMessage) (string, error) {
	p := s.Path(videoID, ArtifactParsed)
	if err := fileutils.WriteJSONFileAtomic(p, record, s.Pretty); err != nil {
		return "", fmt.Errorf("write parsed %s: %w", videoID, err)
	}
	return p, nil
}

func (s *ArtifactStore) WriteRawText(videoID, text string) (string, error) {
	p := s.Path(videoID, ArtifactRawText)
	if err := fileutils.WriteFileAtomic(p, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write raw text %s: %w", videoID, err)
	}
	return p, nil
}

// WriteRawEnvelope stores the API response body. Valid JSON is re-indented; anything else is kept verbatim.
func (s *ArtifactStore) WriteRawEnvelope(videoID string, body []byte) (string, error) {
	p := s.Path(videoID, ArtifactRawEnvelope)
	var err error
	if json.Valid(body) {
		err = fileutils.WriteJSONFileAtomic(p, json.RawMessage(body), s.Pretty)
	} else {
		err = fileutils.WriteFileAtomic(p, body, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("write raw envelope %s: %w", videoID, err)
	}
	return p, nil
}

// WriteError stores the body of a failed response for later inspection.
func (s *ArtifactStore) WriteError(videoID, model string, status int, body []byte) (string, error) {
	p := s.ErrorPath(videoID, model, status)
	if err := fileutils.WriteFileAtomic(p, body, 0o644); err != nil {
		return "", fmt.Errorf("write error artifact %s: %w", videoID, err)
	}
	return p, nil
}
