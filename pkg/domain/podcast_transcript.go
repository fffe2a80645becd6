package domain

import "time"

// PodcastTranscript is the document published to transcript sinks after an episode has been
// transcribed. It mirrors the transcript file on disk plus the episode metadata needed to
// search it.
type PodcastTranscript struct {
	// AudioFile is the cached audio filename. It is the identity of a transcript: one
	// transcript per distinct audio file.
	AudioFile string `bson:"audio_file" json:"audio_file"`

	// URL is the episode page URL (not the audio URL).
	URL string `bson:"url" json:"url"`

	// Title is the episode title, when available.
	Title string `bson:"title" json:"title"`

	// AudioURL is the cleaned enclosure URL the audio was downloaded from.
	AudioURL string `bson:"audio_url" json:"audio_url"`

	PublishedAt time.Time `bson:"published_at" json:"published_at"`

	// Transcript is the full transcript text.
	Transcript string `bson:"transcript" json:"transcript"`

	// Partial is set when the backend stopped mid-stream and Transcript holds only the text
	// received before the failure.
	Partial       bool   `bson:"partial" json:"partial"`
	PartialReason string `bson:"partial_reason,omitempty" json:"partial_reason,omitempty"`

	// TranscribedAt is when the transcript was written (or, for backfills, the file mtime).
	TranscribedAt time.Time `bson:"transcribed_at" json:"transcribed_at"`
}
