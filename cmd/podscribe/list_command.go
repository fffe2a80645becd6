package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podscribe/pkg/audio"
	"podscribe/pkg/domain"
	"podscribe/pkg/export"
	"podscribe/pkg/feed"
	"podscribe/pkg/transcription"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var feedURL string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the feed's episodes and what is cached for each",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if strings.TrimSpace(feedURL) == "" {
				feedURL = cfg.Feed.URL
			}

			client, err := ctx.httpClient()
			if err != nil {
				return err
			}
			episodes, err := feed.NewParser(client, ctx.log()).Parse(cmd.Context(), feedURL)
			if err != nil {
				return err
			}

			rows := episodeRows(episodes, cfg.Paths.AudioDir, cfg.Paths.TranscriptsDir)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Published", "Title", "Audio", "Transcript"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&feedURL, "feed", "f", "", "RSS feed URL (default from config)")
	return cmd
}

func episodeRows(episodes []domain.Episode, audioDir, transcriptsDir string) [][]string {
	fetcher := audio.NewFetcher(nil, audio.Config{Dir: audioDir}, nil)

	rows := make([][]string, 0, len(episodes))
	for i, ep := range episodes {
		audioStatus, transcriptStatus := "-", "-"

		if path, err := fetcher.Path(ep.DownloadURL, ""); err == nil {
			if info, err := os.Stat(path); err == nil {
				audioStatus = export.FormatBytes(uint64(info.Size()))
			}
			transcriptStatus = transcriptState(transcription.TranscriptPath(transcriptsDir, path))
		}

		date := ""
		if !ep.PublishedAt.IsZero() {
			date = ep.PublishedAt.Format(export.DateLayout)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), date, ep.Title, audioStatus, transcriptStatus})
	}
	return rows
}

func transcriptState(path string) string {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return "-"
	case info.Size() == 0:
		return "empty"
	default:
		return export.FormatBytes(uint64(info.Size()))
	}
}
