package transcription

// Status says whether a transcript holds everything the backend meant to return.
type Status int

const (
	// StatusComplete means the backend finished normally.
	StatusComplete Status = iota
	// StatusPartial means the backend failed mid-way; Text holds what arrived before.
	StatusPartial
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Result is the text produced for one audio file.
type Result struct {
	Status Status
	Text   string
	// Reason is the backend error that cut the transcript short. Nil when complete.
	Reason error
}

// Partial reports whether the transcript was cut short.
func (r Result) Partial() bool {
	return r.Status == StatusPartial
}

// Outcome describes what Cache.Transcribe did for one audio file.
type Outcome struct {
	// Path is the transcript file path.
	Path string
	// Skipped is set when the transcript already existed and the backend was not called.
	Skipped bool
	Result  Result
}
