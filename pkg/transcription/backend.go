package transcription

import (
	"context"
	"errors"
	"iter"
	"mime"
	"path/filepath"
	"strings"
)

// ErrContentBlocked is yielded when the backend refuses to return (more) text for content
// reasons, such as a safety filter.
var ErrContentBlocked = errors.New("content blocked by backend")

// ErrOutputTruncated is yielded when the backend stopped because it reached its output limit.
var ErrOutputTruncated = errors.New("output truncated by backend")

// IsContentError reports whether err describes the response content rather than a failed
// request. Such errors still leave a (possibly empty) transcript behind.
func IsContentError(err error) bool {
	return errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrOutputTruncated)
}

// RemoteFile is an audio file as known to a backend.
type RemoteFile struct {
	// Name is the backend's identifier for the upload; used to delete it.
	Name string

	// URI is how generation requests reference the upload. Empty for backends that read
	// the local file directly.
	URI string

	MIMEType  string
	LocalPath string
}

// Backend is a hosted speech-to-text model.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Upload makes the audio at path available to the backend.
	Upload(ctx context.Context, path string) (*RemoteFile, error)

	// Generate requests a transcript of file. The sequence yields text chunks in arrival
	// order; a non-nil error ends it. Non-streaming backends yield a single chunk.
	Generate(ctx context.Context, file *RemoteFile, prompt string) iter.Seq2[string, error]

	// Delete removes the upload.
	Delete(ctx context.Context, file *RemoteFile) error
}

var audioMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".oga":  "audio/ogg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".aiff": "audio/aiff",
	".webm": "audio/webm",
}

// AudioMIMEType guesses the MIME type of an audio file from its extension. Podcast
// enclosures are overwhelmingly MP3, so that is the fallback.
func AudioMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := audioMIMETypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "audio/") {
		return mt
	}
	return "audio/mpeg"
}
