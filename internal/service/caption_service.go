// Package service provides business logic for caption extraction.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/repository"
	"github.com/ad-tracker/youtube-caption-api-go/internal/validation"
	"github.com/ad-tracker/youtube-caption-api-go/pkg/logger"
)

const sideEffectTimeout = 5 * time.Second

// ErrAuditLogDisabled is returned by ListExtractions when no audit store is configured.
var ErrAuditLogDisabled = errors.New("extraction audit log is disabled")

// Extractor runs the strategy fallback chain.
type Extractor interface {
	Extract(ctx context.Context, videoID, language string) models.ExtractionResult
}

// MetadataResolver looks up video metadata independently of caption extraction.
type MetadataResolver interface {
	Resolve(ctx context.Context, videoID string, known models.VideoMetadata) models.VideoMetadata
}

// Cache stores successful extractions.
type Cache interface {
	Get(ctx context.Context, videoID, language string) (*models.Success, error)
	Set(ctx context.Context, videoID, language string, s *models.Success) error
}

// ExtractionStore persists the extraction audit log.
type ExtractionStore interface {
	CreateExtraction(ctx context.Context, rec *models.ExtractionRecord) error
	ListExtractionsByVideo(ctx context.Context, videoID string, limit int) ([]models.ExtractionRecord, error)
}

// Publisher emits extraction events.
type Publisher interface {
	PublishExtraction(ctx context.Context, rec *models.ExtractionRecord) error
}

// CacheObserver counts cache hits and misses.
type CacheObserver interface {
	ObserveCache(hit bool)
}

// Option configures a CaptionService.
type Option func(*CaptionService)

// WithCache enables the caption cache.
func WithCache(c Cache) Option {
	return func(s *CaptionService) { s.cache = c }
}

// WithAuditLog records every extraction in store.
func WithAuditLog(store ExtractionStore) Option {
	return func(s *CaptionService) { s.store = store }
}

// WithPublisher publishes an event for every extraction.
func WithPublisher(p Publisher) Option {
	return func(s *CaptionService) { s.publisher = p }
}

// WithCacheObserver reports cache lookups.
func WithCacheObserver(o CacheObserver) Option {
	return func(s *CaptionService) { s.observer = o }
}

// CaptionService handles caption requests: validation, caching, extraction
// and the audit trail.
type CaptionService struct {
	extractor Extractor
	resolver  MetadataResolver
	validator *validation.Validator
	cache     Cache
	store     ExtractionStore
	publisher Publisher
	observer  CacheObserver
}

// NewCaptionService creates a new CaptionService instance.
func NewCaptionService(extractor Extractor, resolver MetadataResolver, validator *validation.Validator, opts ...Option) *CaptionService {
	s := &CaptionService{
		extractor: extractor,
		resolver:  resolver,
		validator: validator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract validates req and returns captions for it. Errors are
// *ValidationError for bad input and *ExtractionError when every strategy
// failed.
func (cs *CaptionService) Extract(ctx context.Context, req *models.CaptionRequestDTO) (*models.Success, error) {
	videoID, language, err := cs.validator.ValidateCaptionRequest(req)
	if err != nil {
		logger.Log.Warn("Caption request validation failed",
			zap.Error(err),
			zap.String("url", req.URL),
			zap.String("language", req.Language),
		)
		return nil, &ValidationError{Message: err.Error(), Cause: err}
	}

	started := time.Now()

	if cached := cs.lookup(ctx, videoID, language); cached != nil {
		cs.record(ctx, cs.newRecord(videoID, language, cached, started))
		return cached, nil
	}

	result := cs.extractor.Extract(ctx, videoID, language)
	cs.record(ctx, cs.newRecord(videoID, language, result, started))

	switch r := result.(type) {
	case *models.Success:
		cs.remember(ctx, videoID, language, r)
		return r, nil
	case *models.Failure:
		return nil, &ExtractionError{Failure: r}
	default:
		return nil, &ProcessingError{Message: "extraction returned no result", Cause: fmt.Errorf("unexpected result %T", result)}
	}
}

// VideoInfo returns metadata for videoID.
func (cs *CaptionService) VideoInfo(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	if !validation.IsValidVideoID(videoID) {
		return models.VideoMetadata{}, &ValidationError{
			Message: fmt.Sprintf("invalid video id %q", videoID),
			Cause:   validation.ErrInvalidURL,
		}
	}
	return cs.resolver.Resolve(ctx, videoID, models.VideoMetadata{VideoID: videoID}), nil
}

// ListExtractions returns the most recent audit records for videoID.
func (cs *CaptionService) ListExtractions(ctx context.Context, videoID string, limit int) ([]models.ExtractionRecord, error) {
	if !validation.IsValidVideoID(videoID) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid video id %q", videoID), Cause: validation.ErrInvalidURL}
	}
	if cs.store == nil {
		return nil, ErrAuditLogDisabled
	}
	if limit <= 0 || limit > repository.DefaultListLimit {
		limit = repository.DefaultListLimit
	}

	records, err := cs.store.ListExtractionsByVideo(ctx, videoID, limit)
	if err != nil {
		return nil, &ProcessingError{Message: "failed to list extractions", Cause: err}
	}
	return records, nil
}

func (cs *CaptionService) lookup(ctx context.Context, videoID, language string) *models.Success {
	if cs.cache == nil {
		return nil
	}

	cached, err := cs.cache.Get(ctx, videoID, language)
	if err != nil {
		logger.Log.Warn("Caption cache lookup failed",
			zap.Error(err),
			zap.String("videoId", videoID),
		)
		return nil
	}
	if cs.observer != nil {
		cs.observer.ObserveCache(cached != nil)
	}
	if cached != nil {
		cached.Cached = true
		logger.Log.Debug("Caption cache hit",
			zap.String("videoId", videoID),
			zap.String("language", language),
		)
	}
	return cached
}

func (cs *CaptionService) remember(ctx context.Context, videoID, language string, s *models.Success) {
	if cs.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := cs.cache.Set(ctx, videoID, language, s); err != nil {
		logger.Log.Warn("Failed to cache captions",
			zap.Error(err),
			zap.String("videoId", videoID),
		)
	}
}

func (cs *CaptionService) newRecord(videoID, language string, result models.ExtractionResult, started time.Time) *models.ExtractionRecord {
	rec := &models.ExtractionRecord{
		ID:         uuid.New(),
		VideoID:    videoID,
		Language:   language,
		DurationMs: time.Since(started).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}

	switch r := result.(type) {
	case *models.Success:
		strategy := r.Strategy
		hash := repository.ComputeTextHash(r.Track.FullText)
		rec.Status = models.ExtractionStatusSucceeded
		rec.Strategy = &strategy
		rec.CueCount = len(r.Track.Cues)
		rec.TextHash = &hash
		rec.Cached = r.Cached
		rec.Attempts = r.Attempts
	case *models.Failure:
		reason := string(r.Reason)
		rec.Status = models.ExtractionStatusFailed
		rec.Reason = &reason
		rec.Attempts = r.AttemptedStrategies
	}
	if rec.Attempts == nil {
		rec.Attempts = []models.StrategyAttempt{}
	}
	return rec
}

// record writes the audit entry and publishes the event. Failures are logged
// and never change the caption response.
func (cs *CaptionService) record(ctx context.Context, rec *models.ExtractionRecord) {
	if cs.store == nil && cs.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if cs.store != nil {
		if err := cs.store.CreateExtraction(ctx, rec); err != nil {
			logger.Log.Error("Failed to persist extraction record",
				zap.Error(err),
				zap.String("extractionId", rec.ID.String()),
				zap.String("videoId", rec.VideoID),
			)
		}
	}

	if cs.publisher != nil {
		if err := cs.publisher.PublishExtraction(ctx, rec); err != nil {
			logger.Log.Error("Failed to publish extraction event",
				zap.Error(err),
				zap.String("extractionId", rec.ID.String()),
				zap.String("videoId", rec.VideoID),
			)
		}
	}
}

// ValidationError represents a caption request validation error.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// ExtractionError wraps the terminal failure of the fallback chain.
type ExtractionError struct {
	Failure *models.Failure
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Failure.Reason, e.Failure.Message)
}

// ProcessingError represents an unexpected error while serving a request.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ProcessingError struct {
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}
