package db

import (
	"context"
	"database/sql"
	"fmt"

	"podscribe/pkg/domain"
)

// TranscriptTableName is the SQL table (and Supabase REST resource) holding transcripts.
const TranscriptTableName = "podcast_transcript"

const createTranscriptTable = `
CREATE TABLE IF NOT EXISTS podcast_transcript (
	audio_file     TEXT PRIMARY KEY,
	url            TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	audio_url      TEXT NOT NULL DEFAULT '',
	published_at   TIMESTAMPTZ,
	transcript     TEXT NOT NULL,
	partial        BOOLEAN NOT NULL DEFAULT FALSE,
	partial_reason TEXT NOT NULL DEFAULT '',
	transcribed_at TIMESTAMPTZ NOT NULL
)`

const upsertTranscript = `
INSERT INTO podcast_transcript
	(audio_file, url, title, audio_url, published_at, transcript, partial, partial_reason, transcribed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (audio_file) DO UPDATE SET
	url = EXCLUDED.url,
	title = EXCLUDED.title,
	audio_url = EXCLUDED.audio_url,
	published_at = EXCLUDED.published_at,
	transcript = EXCLUDED.transcript,
	partial = EXCLUDED.partial,
	partial_reason = EXCLUDED.partial_reason,
	transcribed_at = EXCLUDED.transcribed_at`

// TranscriptTable stores transcripts in Postgres, either a plain server or a Supabase project
// reached directly.
type TranscriptTable struct {
	provider DBProvider
}

// NewTranscriptTable wraps a connected provider.
func NewTranscriptTable(provider DBProvider) *TranscriptTable {
	return &TranscriptTable{provider: provider}
}

func (t *TranscriptTable) db() (*sql.DB, error) {
	if t.provider == nil || t.provider.DB() == nil {
		return nil, fmt.Errorf("postgres client not connected")
	}
	return t.provider.DB(), nil
}

// EnsureSchema creates the transcript table if it does not exist.
func (t *TranscriptTable) EnsureSchema(ctx context.Context) error {
	db, err := t.db()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, createTranscriptTable); err != nil {
		return fmt.Errorf("create %s table: %w", TranscriptTableName, err)
	}
	return nil
}

// SavePodcastTranscript inserts or replaces the row for tr.AudioFile.
func (t *TranscriptTable) SavePodcastTranscript(ctx context.Context, tr *domain.PodcastTranscript) error {
	db, err := t.db()
	if err != nil {
		return err
	}

	var publishedAt sql.NullTime
	if !tr.PublishedAt.IsZero() {
		publishedAt = sql.NullTime{Time: tr.PublishedAt, Valid: true}
	}

	_, err = db.ExecContext(ctx, upsertTranscript,
		tr.AudioFile, tr.URL, tr.Title, tr.AudioURL, publishedAt,
		tr.Transcript, tr.Partial, tr.PartialReason, tr.TranscribedAt)
	if err != nil {
		return fmt.Errorf("upsert transcript %s: %w", tr.AudioFile, err)
	}
	return nil
}

// GetTranscribedAudioFiles returns the audio filenames with a complete transcript row.
func (t *TranscriptTable) GetTranscribedAudioFiles(ctx context.Context) (map[string]bool, error) {
	db, err := t.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT audio_file FROM podcast_transcript WHERE NOT partial`)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	files := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		files[name] = true
	}
	return files, rows.Err()
}
