package dataset

// Timeline is the parsed annotation record the model is asked to produce for one video.
// It mirrors the JSON layout requested by the prompt and is used to publish frames.schema.json;
// stored artifacts keep the model's JSON verbatim rather than round-tripping through this type.
type Timeline struct {
	// FPS is the sampling rate the model used for Frames (normally 1).
	FPS float64 `json:"fps"`

	// Frames are per-time-step observations, roughly one per second.
	Frames []TimelineFrame `json:"timeline"`

	// Beats mark the narrative structure of the clip.
	Beats []Beat `json:"beats"`

	// Summary is a one-paragraph description of the whole video.
	Summary string `json:"summary"`
}

// TimelineFrame describes what is on screen at time T (seconds from start).
type TimelineFrame struct {
	T            float64  `json:"t"`
	Shot         string   `json:"shot" jsonschema:"enum=wide,enum=medium,enum=close"`
	Objects      []string `json:"objects"`
	Action       string   `json:"action"`
	TextOnScreen string   `json:"text_on_screen"`
	Cam          string   `json:"cam" jsonschema:"enum=static,enum=pan,enum=zoom"`
	Emotion      string   `json:"emotion"`
}

// Beat is a narrative marker.
type Beat struct {
	TimeS   float64 `json:"time_s"`
	Role    string  `json:"role" jsonschema:"enum=HOOK,enum=BUILD,enum=PAYOFF,enum=RESOLUTION"`
	Desc    string  `json:"desc"`
	Emotion string  `json:"emotion"`
}
