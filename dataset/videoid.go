package dataset

import "regexp"

var (
	videoIDRe      = regexp.MustCompile(`(?:v=|shorts/)([A-Za-z0-9_-]{11})`)
	exactVideoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ValidVideoID reports whether id is exactly one 11-character video id. Artifact
// file names are built from the id, so anything else is refused.
func ValidVideoID(id string) bool {
	return exactVideoIDRe.MatchString(id)
}

// ExtractVideoID returns the 11-character video id that follows a "v=" query marker
// or a "/shorts/" path segment.
func ExtractVideoID(s string) (string, bool) {
	m := videoIDRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ToWatchURL rebuilds the canonical watch URL for s. Inputs without a recognizable id
// are returned unchanged.
func ToWatchURL(s string) string {
	id, ok := ExtractVideoID(s)
	if !ok {
		return s
	}
	return WatchURL(id)
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func ShortsURL(id string) string {
	return "https://www.youtube.com/shorts/" + id
}
