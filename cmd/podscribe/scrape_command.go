package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"podscribe/pkg/export"
	"podscribe/pkg/feed"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var feedURL string
	var saveFile string
	var downloadSize bool

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Export a feed's episode list to CSV",
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

			if err := export.SaveCSV(saveFile, episodes); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved %d episodes to %s\n", len(episodes), saveFile)

			if !downloadSize {
				return nil
			}

			urls := make([]string, 0, len(episodes))
			for _, ep := range episodes {
				urls = append(urls, ep.DownloadURL)
			}

			estimator := export.NewSizeEstimator(client, cfg.Download.ProbeWorkers, ctx.log())
			if ctx.showProgress() {
				estimator.Progress = os.Stderr
			}
			total, err := estimator.TotalSize(cmd.Context(), urls)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Total download size: %s\n", export.FormatGB(total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&feedURL, "feed", "f", "", "RSS feed URL (default from config)")
	cmd.Flags().StringVarP(&saveFile, "save-file", "s", "", "Path to the CSV file to write")
	cmd.Flags().BoolVarP(&downloadSize, "download-size", "d", false, "Print the total download size of all episodes")
	_ = cmd.MarkFlagRequired("save-file")
	return cmd
}
