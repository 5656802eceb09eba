// Package repository provides database operations for the caption extraction audit log.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

// DefaultListLimit caps ListExtractionsByVideo when no limit is given.
const DefaultListLimit = 50

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS caption_service;

	CREATE TABLE IF NOT EXISTS caption_service.extractions (
		id UUID PRIMARY KEY,
		video_id VARCHAR(11) NOT NULL,
		language VARCHAR(35) NOT NULL,
		status VARCHAR(20) NOT NULL,
		strategy VARCHAR(32),
		reason VARCHAR(32),
		cue_count INTEGER NOT NULL DEFAULT 0,
		text_hash VARCHAR(64),
		cached BOOLEAN NOT NULL DEFAULT FALSE,
		attempts JSONB NOT NULL DEFAULT '[]'::jsonb,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_extractions_video_created
		ON caption_service.extractions (video_id, created_at DESC);
`

// Repository handles all database operations for the caption service.
type Repository struct {
	db *pgxpool.Pool
}

// New creates a new Repository instance with the provided database connection pool.
func New(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the schema, table and index if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateExtraction inserts one audit record.
func (r *Repository) CreateExtraction(ctx context.Context, rec *models.ExtractionRecord) error {
	attempts := rec.Attempts
	if attempts == nil {
		attempts = []models.StrategyAttempt{}
	}
	payload, err := json.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("failed to marshal attempts: %w", err)
	}

	query := `
		INSERT INTO caption_service.extractions
		(id, video_id, language, status, strategy, reason, cue_count, text_hash, cached, attempts, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		rec.ID, rec.VideoID, rec.Language, rec.Status, rec.Strategy, rec.Reason,
		rec.CueCount, rec.TextHash, rec.Cached, payload, rec.DurationMs, rec.CreatedAt,
	)
	return err
}

// ListExtractionsByVideo returns the newest audit records for a video.
func (r *Repository) ListExtractionsByVideo(ctx context.Context, videoID string, limit int) ([]models.ExtractionRecord, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, video_id, language, status, strategy, reason, cue_count, text_hash,
		       cached, attempts, duration_ms, created_at
		FROM caption_service.extractions
		WHERE video_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, videoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.ExtractionRecord{}
	for rows.Next() {
		var (
			rec      models.ExtractionRecord
			attempts []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.VideoID, &rec.Language, &rec.Status, &rec.Strategy, &rec.Reason,
			&rec.CueCount, &rec.TextHash, &rec.Cached, &attempts, &rec.DurationMs, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(attempts, &rec.Attempts); err != nil {
			return nil, fmt.Errorf("failed to decode attempts for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ComputeTextHash computes a SHA-256 hash of a caption text so repeated
// extractions of the same track can be recognised.
func ComputeTextHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// Ping checks the database connection health.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
