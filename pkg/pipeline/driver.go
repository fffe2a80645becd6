// Package pipeline runs the feed-to-transcript loop: for each episode, download the audio and
// transcribe it, strictly one episode at a time and in feed order.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"podscribe/pkg/domain"
	"podscribe/pkg/transcription"
)

// AudioFetcher downloads episode audio into a local cache
type AudioFetcher interface {
	// Path returns where the audio for rawURL is (or would be) cached, without touching
	// the network
	Path(rawURL, filename string) (string, error)

	// Fetch makes sure the audio is cached and returns its path
	Fetch(ctx context.Context, rawURL, filename string) (string, error)
}

// Transcriber turns a cached audio file into a cached transcript
type Transcriber interface {
	Exists(audioPath string) (bool, error)
	Transcribe(ctx context.Context, audioPath string) (transcription.Outcome, error)
}

// Publisher receives every newly written transcript
type Publisher interface {
	Publish(ctx context.Context, t *domain.PodcastTranscript) error
}

// Summary counts what happened to each episode of a run
type Summary struct {
	Total       int
	Transcribed int
	Partial     int
	Skipped     int
	Failed      int
	Published   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d episodes: %d transcribed, %d partial, %d skipped, %d failed, %d published",
		s.Total, s.Transcribed, s.Partial, s.Skipped, s.Failed, s.Published)
}

// Driver orchestrates the per-episode steps
type Driver struct {
	audio       AudioFetcher
	transcriber Transcriber
	publisher   Publisher
	log         *zap.SugaredLogger
	now         func() time.Time
}

// NewDriver creates a new driver. publisher may be nil.
func NewDriver(audio AudioFetcher, transcriber Transcriber, publisher Publisher, logger *zap.SugaredLogger) *Driver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{
		audio:       audio,
		transcriber: transcriber,
		publisher:   publisher,
		log:         logger,
		now:         time.Now,
	}
}

// Run processes episodes in order. Errors for one episode are logged and counted, and the
// run moves on to the next; only cancellation of ctx stops it early, in which case the
// summary so far is returned together with ctx.Err().
func (d *Driver) Run(ctx context.Context, episodes []domain.Episode) (Summary, error) {
	summary := Summary{Total: len(episodes)}

	for i, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		d.log.Infof("[%d/%d] %s", i+1, len(episodes), ep.Title)
		if err := d.processEpisode(ctx, ep, &summary); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			d.log.Errorw("Episode failed", "title", ep.Title, "url", ep.DownloadURL, "error", err)
		}
	}

	d.log.Infof("Run complete: %s", summary)
	return summary, nil
}

// processEpisode downloads and transcribes one episode, updating summary on success.
func (d *Driver) processEpisode(ctx context.Context, ep domain.Episode, summary *Summary) error {
	audioPath, err := d.audio.Path(ep.DownloadURL, "")
	if err != nil {
		return err
	}

	// A transcript outlives its audio: once it exists the audio is not needed again.
	exists, err := d.transcriber.Exists(audioPath)
	if err != nil {
		return fmt.Errorf("check transcript: %w", err)
	}
	if exists {
		d.log.Infof("Transcript for %s already exists, skipping", filepath.Base(audioPath))
		summary.Skipped++
		return nil
	}

	audioPath, err = d.audio.Fetch(ctx, ep.DownloadURL, "")
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	out, err := d.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	switch {
	case out.Skipped:
		summary.Skipped++
		return nil
	case out.Result.Partial():
		summary.Partial++
	default:
		summary.Transcribed++
	}

	d.publish(ctx, ep, audioPath, out, summary)
	return nil
}

func (d *Driver) publish(ctx context.Context, ep domain.Episode, audioPath string, out transcription.Outcome, summary *Summary) {
	if d.publisher == nil {
		return
	}

	record := TranscriptRecord(ep, audioPath, out.Result, d.now())
	if err := d.publisher.Publish(ctx, record); err != nil {
		d.log.Warnw("Could not publish transcript", "audio_file", record.AudioFile, "error", err)
		return
	}
	summary.Published++
}

// TranscriptRecord builds the published form of a transcript.
func TranscriptRecord(ep domain.Episode, audioPath string, result transcription.Result, at time.Time) *domain.PodcastTranscript {
	record := &domain.PodcastTranscript{
		AudioFile:     filepath.Base(audioPath),
		URL:           ep.PageURL,
		Title:         ep.Title,
		AudioURL:      ep.DownloadURL,
		PublishedAt:   ep.PublishedAt,
		Transcript:    result.Text,
		Partial:       result.Partial(),
		TranscribedAt: at.UTC(),
	}
	if result.Reason != nil {
		record.PartialReason = result.Reason.Error()
	}
	return record
}
