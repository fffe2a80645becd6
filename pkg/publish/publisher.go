// Package publish copies transcripts into the configured databases, either one at a time
// as they are written or as a backfill of an existing transcripts directory.
package publish

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"podscribe/pkg/db"
	"podscribe/pkg/domain"
)

// Sink is a named transcript store.
type Sink struct {
	Name  string
	Saver db.TranscriptSaver
}

// Publisher fans a transcript out to every sink.
type Publisher struct {
	sinks []Sink
	log   *zap.SugaredLogger
}

// NewPublisher creates a Publisher. With no sinks, Publish does nothing.
func NewPublisher(logger *zap.SugaredLogger, sinks ...Sink) *Publisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Publisher{sinks: sinks, log: logger}
}

// Sinks returns the sink names, in publish order.
func (p *Publisher) Sinks() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name
	}
	return names
}

// Publish saves t to every sink. A failing sink does not prevent the others from being
// tried; all failures are returned joined.
func (p *Publisher) Publish(ctx context.Context, t *domain.PodcastTranscript) error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Saver.SavePodcastTranscript(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		p.log.Debugw("Published transcript", "sink", s.Name, "audio_file", t.AudioFile)
	}
	return errors.Join(errs...)
}
