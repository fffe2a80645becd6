package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"podscribe/pkg/audio"
	"podscribe/pkg/config"
	"podscribe/pkg/domain"
	"podscribe/pkg/feed"
	"podscribe/pkg/filter"
	"podscribe/pkg/pipeline"
	"podscribe/pkg/transcription"
)

const lockFileName = ".podscribe.lock"

type transcribeOptions struct {
	feedURL  string
	since    string
	match    string
	limit    int
	pending  bool
	noStream bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:         "transcribe",
		Short:       "Download and transcribe every episode of the feed",
		Annotations: map[string]string{"needsCredentials": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if opts.noStream {
				cfg.Transcription.Stream = false
			}
			if strings.TrimSpace(opts.feedURL) == "" {
				opts.feedURL = cfg.Feed.URL
			}

			filters, err := opts.filters(cfg)
			if err != nil {
				return err
			}

			unlock, err := lockDir(cfg.Paths.TranscriptsDir)
			if err != nil {
				return err
			}
			defer unlock()

			return runTranscribe(cmd.Context(), ctx, cmd.OutOrStdout(), opts.feedURL, filters)
		},
	}

	cmd.Flags().StringVarP(&opts.feedURL, "feed", "f", "", "RSS feed URL (default from config)")
	cmd.Flags().StringVar(&opts.since, "since", "", "Only episodes published on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.match, "match", "", "Only episodes whose title contains this text (case and accent insensitive)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Process at most this many episodes (0 = all)")
	cmd.Flags().BoolVar(&opts.pending, "pending", false, "Only episodes without a cached transcript, so --limit counts new work")
	cmd.Flags().BoolVar(&opts.noStream, "no-stream", false, "Request each transcript in one response instead of streaming")
	return cmd
}

func (o transcribeOptions) filters(cfg *config.Config) ([]filter.Filter, error) {
	var filters []filter.Filter
	if o.since != "" {
		since, err := time.ParseInLocation("2006-01-02", o.since, time.Local)
		if err != nil {
			return nil, fmt.Errorf("--since: expected YYYY-MM-DD: %w", err)
		}
		filters = append(filters, filter.NewSinceFilter(since))
	}
	if o.match != "" {
		filters = append(filters, filter.NewTitleFilter(o.match))
	}
	if o.pending {
		filters = append(filters, filter.NewNotCachedFilter(transcriptExists(cfg.Paths.AudioDir, cfg.Paths.TranscriptsDir)))
	}
	if o.limit > 0 {
		filters = append(filters, filter.NewLimitFilter(o.limit))
	}
	return filters, nil
}

// transcriptExists reports whether an episode's transcript is already cached, using the same
// paths the fetcher and cache resolve.
func transcriptExists(audioDir, transcriptsDir string) func(ep domain.Episode) (bool, error) {
	fetcher := audio.NewFetcher(nil, audio.Config{Dir: audioDir}, nil)
	return func(ep domain.Episode) (bool, error) {
		audioPath, err := fetcher.Path(ep.DownloadURL, "")
		if err != nil {
			// Left for the driver, which reports it as a failed episode.
			return false, nil
		}
		_, err = os.Stat(transcription.TranscriptPath(transcriptsDir, audioPath))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, fs.ErrNotExist):
			return false, nil
		default:
			return false, err
		}
	}
}

func runTranscribe(ctx context.Context, cc *commandContext, out io.Writer, feedURL string, filters []filter.Filter) error {
	cfg := cc.configValue()
	logger := cc.log()

	client, err := cc.httpClient()
	if err != nil {
		return err
	}

	episodes, err := feed.NewParser(client, logger).Parse(ctx, feedURL)
	if err != nil {
		return err
	}
	logger.Infof("Feed has %d episodes", len(episodes))

	episodes, err = filter.FilterEpisodes(ctx, episodes, filters...)
	if err != nil {
		return err
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}

	fetcherCfg := audio.Config{Dir: cfg.Paths.AudioDir, ChunkSize: cfg.Download.ChunkSize}
	if cc.showProgress() {
		fetcherCfg.Progress = os.Stderr
	}
	fetcher := audio.NewFetcher(client, fetcherCfg, logger)

	cacheCfg := transcription.CacheConfig{Dir: cfg.Paths.TranscriptsDir, Prompt: cfg.Transcription.Prompt}
	if cfg.Transcription.Echo {
		cacheCfg.Echo = out
	}
	cache := transcription.NewCache(backend, cacheCfg, logger)

	var publisher pipeline.Publisher
	if cfg.PublishingEnabled() {
		p, closeSinks, err := openPublisher(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeSinks()
		publisher = p
	}

	summary, err := pipeline.NewDriver(fetcher, cache, publisher, logger).Run(ctx, episodes)
	fmt.Fprintln(out, summary)
	return err
}

func newBackend(ctx context.Context, cfg *config.Config) (transcription.Backend, error) {
	t := cfg.Transcription
	switch t.Backend {
	case config.BackendOpenAI:
		return transcription.NewOpenAIBackend(transcription.OpenAIConfig{
			APIKey:   t.APIKey,
			Model:    t.Model,
			BaseURL:  t.BaseURL,
			Language: t.Language,
			Prompt:   t.WhisperPrompt,
		})
	default:
		return transcription.NewGeminiBackend(ctx, transcription.GeminiConfig{
			APIKey:          t.APIKey,
			Model:           t.Model,
			Stream:          t.Stream,
			MaxOutputTokens: int32(t.MaxOutputTokens),
			TopP:            float32(t.TopP),
			Safety:          t.Safety,
			PollInterval:    cfg.PollInterval(),
		})
	}
}

// lockDir takes an exclusive lock on dir so that two runs never transcribe into the same
// cache at once.
func lockDir(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcripts directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("another podscribe run is using %s", dir)
	}
	return func() { _ = lock.Unlock() }, nil
}
