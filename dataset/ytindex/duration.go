package ytindex

import (
	"math"
	"regexp"
	"strconv"
)

// isoDurationRe covers the forms the Data API emits for contentDetails.duration
// (PT#H#M#S, P#DT#H#M#S, P#W). Year and month designators are rejected since they have no fixed length.
var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration to whole seconds (fractions truncated).
func ParseISODuration(s string) (int64, bool) {
	if s == "" || s == "P" || s == "PT" {
		return 0, false
	}
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	units := []float64{7 * 24 * 3600, 24 * 3600, 3600, 60, 1}
	var total float64
	for i, mul := range units {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		total += v * mul
	}
	if total > math.MaxInt64 {
		return 0, false
	}
	return int64(total), true
}
