package provider

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrEnvelopeShape means a 200 response did not carry the expected text payload.
var ErrEnvelopeShape = errors.New("response envelope has no candidate text")

const candidateTextPath = "candidates.0.content.parts.0.text"

// CandidateText returns candidates[0].content.parts[0].text from a generateContent response.
func CandidateText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: body is not valid JSON (len=%d)", ErrEnvelopeShape, len(body))
	}
	res := gjson.GetBytes(body, candidateTextPath)
	if !res.Exists() {
		return "", fmt.Errorf("%w: %s missing", ErrEnvelopeShape, candidateTextPath)
	}
	if res.Type != gjson.String {
		return "", fmt.Errorf("%w: %s is %s, want string", ErrEnvelopeShape, candidateTextPath, res.Type)
	}
	return res.String(), nil
}
