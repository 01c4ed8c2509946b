package provider

const timelinePromptHeader = `You are a video analyst. Watch the YouTube video and output STRICT JSON ONLY.
Return this structure:
{
  "fps": 1,
  "timeline": [
     {"t": 0.0, "shot":"wide/medium/close", "objects":["..."], "action":"...", "text_on_screen":"...", "cam":"static/pan/zoom", "emotion":"..."},
     {"t": 1.0, ...},
     ...
  ],
  "beats": [ {"time_s": 0.0, "role":"HOOK/BUILD/PAYOFF/RESOLUTION", "desc":"...","emotion":"..."} ],
  "summary": "one-paragraph concise summary"
}

Constraints:
- JSON only. No markdown, no comments.
- timeline step ~1.0s; if shot changes within a second, duplicate entries with fractional t (e.g., 2.5).
- Keep ` + "`objects`" + ` short noun phrases.
- ` + "`emotion`" + ` is coarse (e.g., shock, joy, sadness, tension, awe).
`

// BuildTimelinePrompt renders the fixed annotation prompt for one video.
func BuildTimelinePrompt(watchURL string) string {
	return timelinePromptHeader + "\nVideo: " + watchURL + "\n"
}
