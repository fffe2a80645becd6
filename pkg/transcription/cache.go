package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// TranscriptExt is the extension of transcript files.
const TranscriptExt = ".txt"

// CacheConfig configures a Cache.
type CacheConfig struct {
	// Dir is the transcripts directory.
	Dir string

	// Prompt is the instruction sent with every audio file.
	Prompt string

	// Echo, when non-nil, receives every chunk as it arrives.
	Echo io.Writer
}

// Cache produces at most one transcript per audio filename.
type Cache struct {
	backend Backend
	cfg     CacheConfig
	log     *zap.SugaredLogger
}

// NewCache creates a Cache around backend.
func NewCache(backend Backend, cfg CacheConfig, logger *zap.SugaredLogger) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cache{backend: backend, cfg: cfg, log: logger}
}

// Dir returns the transcripts directory.
func (c *Cache) Dir() string {
	return c.cfg.Dir
}

// Path returns the transcript path for an audio file: same base name, .txt extension.
func (c *Cache) Path(audioPath string) string {
	return TranscriptPath(c.cfg.Dir, audioPath)
}

// TranscriptPath returns the transcript path for audioPath inside dir.
func TranscriptPath(dir, audioPath string) string {
	base := filepath.Base(audioPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+TranscriptExt)
}

// Exists reports whether a transcript for audioPath is already cached.
func (c *Cache) Exists(audioPath string) (bool, error) {
	_, err := os.Stat(c.Path(audioPath))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Transcribe ensures a transcript exists for audioPath.
//
// An existing transcript short-circuits everything. Otherwise the audio is uploaded and
// transcribed, and the upload is deleted afterwards whatever happened. Text is written even if
// the backend failed part way through the response or refused the content; that failure is
// reported through Outcome.Result. A request that fails before any text arrives for any other
// reason (quota, server or network errors) writes nothing and is returned as an error, so a
// later run retries the episode. Upload and write failures are returned as errors too.
func (c *Cache) Transcribe(ctx context.Context, audioPath string) (Outcome, error) {
	out := Outcome{Path: c.Path(audioPath)}

	exists, err := c.Exists(audioPath)
	if err != nil {
		return out, fmt.Errorf("stat transcript: %w", err)
	}
	if exists {
		c.log.Infof("Transcription for %s already exists, skipping", audioPath)
		out.Skipped = true
		return out, nil
	}

	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return out, fmt.Errorf("create transcripts directory: %w", err)
	}

	c.log.Infof("Uploading %s to %s", audioPath, c.backend.Name())
	file, err := c.backend.Upload(ctx, audioPath)
	if err != nil {
		return out, fmt.Errorf("upload %s: %w", audioPath, err)
	}
	defer c.deleteUpload(ctx, file)

	result, err := c.generate(ctx, file)
	if ctx.Err() != nil {
		// An interrupted run must not leave a truncated transcript that later runs would skip.
		return out, ctx.Err()
	}
	if err != nil {
		return out, fmt.Errorf("generate transcript for %s: %w", audioPath, err)
	}

	if err := writeFile(out.Path, result.Text); err != nil {
		return out, err
	}
	out.Result = result

	if result.Partial() {
		c.log.Warnf("Transcript for %s is partial (%d bytes): %v", audioPath, len(result.Text), result.Reason)
	} else {
		c.log.Infof("Transcript written to %s (%d bytes)", out.Path, len(result.Text))
	}
	return out, nil
}

// generate collects the response. The returned error is set only when the request failed
// before any chunk arrived and the failure says nothing about the content; every other
// failure yields a partial Result.
func (c *Cache) generate(ctx context.Context, file *RemoteFile) (Result, error) {
	var sb strings.Builder
	chunks := 0
	for chunk, err := range c.backend.Generate(ctx, file, c.cfg.Prompt) {
		if err != nil {
			if c.cfg.Echo != nil && sb.Len() > 0 {
				fmt.Fprintln(c.cfg.Echo)
			}
			if chunks == 0 && !IsContentError(err) {
				return Result{}, err
			}
			return Result{Status: StatusPartial, Text: sb.String(), Reason: err}, nil
		}
		chunks++
		if c.cfg.Echo != nil {
			fmt.Fprint(c.cfg.Echo, chunk)
		}
		sb.WriteString(chunk)
	}
	if c.cfg.Echo != nil && sb.Len() > 0 {
		fmt.Fprintln(c.cfg.Echo)
	}
	return Result{Status: StatusComplete, Text: sb.String()}, nil
}

func (c *Cache) deleteUpload(ctx context.Context, file *RemoteFile) {
	if err := c.backend.Delete(context.WithoutCancel(ctx), file); err != nil {
		c.log.Warnf("Could not delete upload %s from %s: %v", file.Name, c.backend.Name(), err)
	}
}

// writeFile writes through a temporary file so a crash never leaves a half-written
// transcript behind.
func writeFile(path, text string) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
