package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"podscribe/pkg/domain"
	"podscribe/pkg/feed"
	"podscribe/pkg/publish"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Copy existing transcripts to the configured databases",
		Long: "Publish reads every transcript in the transcripts directory and stores it in each configured sink " +
			"(mongo, postgres, supabase). Episode metadata comes from the feed unless --offline is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.log()
			if !cfg.PublishingEnabled() {
				return errors.New("no transcript sink configured: set mongo.uri, postgres.dsn or supabase.url")
			}

			var episodes []domain.Episode
			if !offline {
				client, err := ctx.httpClient()
				if err != nil {
					return err
				}
				if episodes, err = feed.NewParser(client, logger).Parse(cmd.Context(), cfg.Feed.URL); err != nil {
					return fmt.Errorf("%w (use --offline to publish without episode metadata)", err)
				}
			}

			sinks, err := openSinks(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer sinks.close()

			var existing func(context.Context) (map[string]bool, error)
			if !all {
				existing = sinks.existing()
			}

			stats, err := publish.NewBackfill(sinks.publisher, publish.BackfillConfig{
				Dir:      cfg.Paths.TranscriptsDir,
				Episodes: episodes,
				Existing: existing,
			}, logger).Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d transcripts: %d published, %d already stored, %d failed\n",
				stats.Found, stats.Published, stats.Skipped, stats.Failed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Republish transcripts the sinks already hold")
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not fetch the feed for episode metadata")
	return cmd
}
