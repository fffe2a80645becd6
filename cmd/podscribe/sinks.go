package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"podscribe/pkg/config"
	"podscribe/pkg/db"
	"podscribe/pkg/publish"
)

// lister reports which audio files a sink already holds.
type lister interface {
	GetTranscribedAudioFiles(ctx context.Context) (map[string]bool, error)
}

type sinkSet struct {
	publisher *publish.Publisher
	listers   []lister
	closers   []func()
}

func (s *sinkSet) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// existing returns the audio files every sink already holds. It is nil when some sink cannot
// list its contents, in which case nothing may be skipped.
func (s *sinkSet) existing() func(ctx context.Context) (map[string]bool, error) {
	if len(s.listers) == 0 || len(s.listers) != len(s.publisher.Sinks()) {
		return nil
	}
	return func(ctx context.Context) (map[string]bool, error) {
		var common map[string]bool
		for _, l := range s.listers {
			files, err := l.GetTranscribedAudioFiles(ctx)
			if err != nil {
				return nil, err
			}
			if common == nil {
				common = files
				continue
			}
			for name := range common {
				if !files[name] {
					delete(common, name)
				}
			}
		}
		return common, nil
	}
}

// openSinks connects every configured transcript sink. On error, sinks opened so far are
// closed.
func openSinks(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*sinkSet, error) {
	set := &sinkSet{}
	var sinks []publish.Sink

	fail := func(err error) (*sinkSet, error) {
		set.close()
		return nil, err
	}

	if cfg.Mongo.URI != "" {
		client, err := db.NewClient(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return fail(err)
		}
		set.closers = append(set.closers, func() { _ = client.Close(context.Background()) })
		if err := client.Connect(ctx); err != nil {
			return fail(fmt.Errorf("connect to mongo: %w", err))
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			logger.Warnf("Could not create mongo index: %v", err)
		}
		sinks = append(sinks, publish.Sink{Name: "mongo", Saver: client})
		set.listers = append(set.listers, client)
	}

	if cfg.Postgres.DSN != "" {
		client := db.NewPostgresClient(db.PostgresConfig{DSN: cfg.Postgres.DSN})
		if err := client.Connect(ctx); err != nil {
			return fail(err)
		}
		set.closers = append(set.closers, func() { _ = client.Close() })
		table := db.NewTranscriptTable(client)
		if err := table.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		sinks = append(sinks, publish.Sink{Name: "postgres", Saver: table})
		set.listers = append(set.listers, table)
	}

	if cfg.Supabase.URL != "" || cfg.Supabase.ConnectionString != "" {
		client := db.NewSupabaseClient(db.SupabaseConfig{
			ConnectionString: cfg.Supabase.ConnectionString,
			URL:              cfg.Supabase.URL,
			Key:              cfg.Supabase.Key,
			Password:         cfg.Supabase.Password,
		})
		if err := client.Connect(ctx); err != nil {
			return fail(err)
		}
		set.closers = append(set.closers, func() { _ = client.Close() })
		if client.HasDirectDB() {
			table := db.NewTranscriptTable(client)
			if err := table.EnsureSchema(ctx); err != nil {
				return fail(err)
			}
			set.listers = append(set.listers, table)
		} else {
			logger.Info("Supabase: REST mode (no database password), table must already exist")
		}
		sinks = append(sinks, publish.Sink{Name: "supabase", Saver: client})
	}

	set.publisher = publish.NewPublisher(logger, sinks...)
	logger.Infof("Publishing transcripts to %v", set.publisher.Sinks())
	return set, nil
}

func openPublisher(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*publish.Publisher, func(), error) {
	set, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return set.publisher, set.close, nil
}
