package db

import (
	"context"
	"database/sql"

	"podscribe/pkg/domain"
)

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// This allows both PostgresClient and SupabaseClient to back a TranscriptTable.
type DBProvider interface {
	DB() *sql.DB
}

// TranscriptSaver stores transcripts. Implemented by the Mongo Client, TranscriptTable and
// SupabaseClient (REST mode).
type TranscriptSaver interface {
	SavePodcastTranscript(ctx context.Context, t *domain.PodcastTranscript) error
}
