package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"podscribe/pkg/audio"
	"podscribe/pkg/domain"
	"podscribe/pkg/transcription"
)

// Saver is what a backfill publishes to; *Publisher satisfies it.
type Saver interface {
	Publish(ctx context.Context, t *domain.PodcastTranscript) error
}

// BackfillConfig configures a Backfill run.
type BackfillConfig struct {
	// Dir is the transcripts directory.
	Dir string

	// Episodes supply metadata for transcripts whose stem matches an episode's audio
	// filename. Transcripts without a match are published with the stem as AudioFile.
	Episodes []domain.Episode

	// Existing, when set, returns audio filenames already stored; those are skipped.
	Existing func(ctx context.Context) (map[string]bool, error)
}

// Stats counts a backfill run.
type Stats struct {
	Found     int
	Skipped   int
	Published int
	Failed    int
}

// Backfill publishes every transcript file in a directory.
type Backfill struct {
	saver Saver
	cfg   BackfillConfig
	log   *zap.SugaredLogger
}

// NewBackfill creates a Backfill.
func NewBackfill(saver Saver, cfg BackfillConfig, logger *zap.SugaredLogger) *Backfill {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Backfill{saver: saver, cfg: cfg, log: logger}
}

// Run reads the transcripts directory and publishes each file not already stored.
// Individual failures are logged and counted; only directory or Existing errors abort.
func (b *Backfill) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	files, err := transcriptFiles(b.cfg.Dir)
	if err != nil {
		return stats, err
	}
	stats.Found = len(files)
	b.log.Infof("Found %d transcripts in %s", len(files), b.cfg.Dir)

	existing := map[string]bool{}
	if b.cfg.Existing != nil {
		if existing, err = b.cfg.Existing(ctx); err != nil {
			return stats, fmt.Errorf("load existing transcripts: %w", err)
		}
	}

	byStem := episodesByStem(b.cfg.Episodes)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := b.record(path, byStem)
		if err != nil {
			stats.Failed++
			b.log.Warnf("Skipping %s: %v", path, err)
			continue
		}
		if existing[record.AudioFile] {
			stats.Skipped++
			continue
		}

		if err := b.saver.Publish(ctx, record); err != nil {
			stats.Failed++
			b.log.Errorw("Could not publish transcript", "audio_file", record.AudioFile, "error", err)
			continue
		}
		stats.Published++

		if (i+1)%100 == 0 {
			b.log.Infof("Progress: %d/%d transcripts, %d published", i+1, len(files), stats.Published)
		}
	}

	b.log.Infof("Backfill complete: %d found, %d published, %d skipped, %d failed",
		stats.Found, stats.Published, stats.Skipped, stats.Failed)
	return stats, nil
}

func (b *Backfill) record(path string, byStem map[string]domain.Episode) (*domain.PodcastTranscript, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), transcription.TranscriptExt)
	record := &domain.PodcastTranscript{
		AudioFile:     stem,
		Transcript:    string(text),
		TranscribedAt: info.ModTime().UTC(),
	}

	if ep, ok := byStem[stem]; ok {
		name, _ := audio.FilenameFromURL(ep.DownloadURL)
		record.AudioFile = name
		record.URL = ep.PageURL
		record.Title = ep.Title
		record.AudioURL = ep.DownloadURL
		record.PublishedAt = ep.PublishedAt
	}
	return record, nil
}

// transcriptFiles lists transcript files in dir, sorted by name.
func transcriptFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read transcripts directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != transcription.TranscriptExt {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// episodesByStem indexes episodes by their audio filename without extension. Later episodes
// win on collisions.
func episodesByStem(episodes []domain.Episode) map[string]domain.Episode {
	out := make(map[string]domain.Episode, len(episodes))
	for _, ep := range episodes {
		name, err := audio.FilenameFromURL(ep.DownloadURL)
		if err != nil {
			continue
		}
		out[strings.TrimSuffix(name, filepath.Ext(name))] = ep
	}
	return out
}
