// Package extraction implements the caption fallback chain: an ordered list of
// strategies, each run inside a bounded retry loop, stopping at the first one
// that yields a parsable payload.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
	"github.com/ad-tracker/youtube-caption-api-go/pkg/logger"
)

// Limiter spaces outbound requests to the video platform.
type Limiter interface {
	Wait(ctx context.Context) error
}

// MetadataResolver fills metadata a winning strategy left unresolved. It must
// not fail; unresolved fields are returned empty or as placeholders.
type MetadataResolver interface {
	Resolve(ctx context.Context, videoID string, known models.VideoMetadata) models.VideoMetadata
}

// Recorder receives attempt and extraction outcomes, typically for metrics.
type Recorder interface {
	ObserveAttempt(strategy, outcome string, elapsed time.Duration)
	ObserveExtraction(strategy, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, string, time.Duration)    {}
func (nopRecorder) ObserveExtraction(string, string, time.Duration) {}

// Outcome labels passed to a Recorder besides ErrorKind names.
const (
	OutcomeSuccess = "success"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLimiter sets the process-wide rate limiter awaited before every attempt.
func WithLimiter(l Limiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithResolver sets the metadata resolver used after a success.
func WithResolver(r MetadataResolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.retry = p }
}

// WithLanguagePolicy overrides DefaultLanguagePolicy.
func WithLanguagePolicy(p LanguagePolicy) Option {
	return func(o *Orchestrator) { o.language = p }
}

// WithAttemptTimeout bounds each individual strategy attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// Orchestrator runs strategies in their fixed order until one succeeds.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Orchestrator struct {
	strategies     []Strategy
	limiter        Limiter
	resolver       MetadataResolver
	recorder       Recorder
	retry          RetryPolicy
	language       LanguagePolicy
	attemptTimeout time.Duration
	log            *zap.Logger
}

// NewOrchestrator creates an Orchestrator over strategies, which are tried in
// the order given.
func NewOrchestrator(strategies []Strategy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		strategies: append([]Strategy(nil), strategies...),
		recorder:   nopRecorder{},
		retry:      DefaultRetryPolicy,
		language:   DefaultLanguagePolicy,
		log:        logger.Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Strategies returns the strategy names in execution order.
func (o *Orchestrator) Strategies() []string {
	names := make([]string, 0, len(o.strategies))
	for _, s := range o.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Extract runs the fallback chain for videoID in language. It always returns
// a *models.Success or a *models.Failure.
func (o *Orchestrator) Extract(ctx context.Context, videoID, language string) models.ExtractionResult {
	started := time.Now()
	log := o.log.With(zap.String("videoId", videoID), zap.String("language", language))

	known := models.VideoMetadata{VideoID: videoID}
	var (
		failed   []models.StrategyAttempt
		reported []models.LanguageOption
	)

	for _, s := range o.strategies {
		name := s.Name()
		if err := ctx.Err(); err != nil {
			return o.cancelled(log, failed, err, started)
		}

		if cd, ok := s.(Cooldown); ok {
			if err := sleep(ctx, cd.Cooldown()); err != nil {
				return o.cancelled(log, failed, err, started)
			}
		}

		req := AttemptRequest{VideoID: videoID, Language: language, Policy: o.language, Known: known}
		track, payload, attempts, err := o.run(ctx, s, req, log)
		if err == nil {
			known = known.Merge(payload.Metadata)
			known = known.Merge(models.VideoMetadata{AvailableLanguages: payload.AvailableLanguages})
			if !known.HasCoreFields() && o.resolver != nil {
				known = known.Merge(o.resolver.Resolve(ctx, videoID, known))
			}

			log.Info("Captions extracted",
				zap.String("strategy", name),
				zap.Int("attempts", attempts),
				zap.Int("cues", len(track.Cues)),
				zap.String("servedLanguage", track.LanguageCode),
				zap.Duration("elapsed", time.Since(started)),
			)
			o.recorder.ObserveExtraction(name, OutcomeSuccess, time.Since(started))

			return &models.Success{
				Track:    track,
				Metadata: known.WithPlaceholders(),
				Strategy: name,
				Attempts: failed,
			}
		}

		if ctx.Err() != nil && IsContextError(err) {
			return o.cancelled(log, failed, ctx.Err(), started)
		}

		attempt := models.StrategyAttempt{Strategy: name, Error: err.Error(), Attempts: attempts}
		kind := KindOf(err)
		if kind.Fatal() {
			log.Warn("Video cannot be captioned, skipping remaining strategies",
				zap.String("strategy", name),
				zap.String("kind", kind.String()),
				zap.Error(err),
			)
			o.recorder.ObserveExtraction(name, kind.String(), time.Since(started))
			return &models.Failure{
				Reason:              models.ReasonVideoUnavailable,
				Message:             err.Error(),
				AttemptedStrategies: []models.StrategyAttempt{attempt},
			}
		}

		log.Info("Strategy failed, falling back",
			zap.String("strategy", name),
			zap.String("kind", kind.String()),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		failed = append(failed, attempt)
		reported = appendLanguages(reported, AvailableLanguagesOf(err))
	}

	failure := &models.Failure{
		Reason:              models.ReasonCaptionsUnavailable,
		Message:             fmt.Sprintf("no captions could be extracted for video %s", videoID),
		AttemptedStrategies: failed,
	}
	if len(reported) > 0 && !ContainsLanguage(reported, language) {
		failure.Reason = models.ReasonLanguageUnavailable
		failure.Message = fmt.Sprintf("captions are not available in %q", language)
		failure.AvailableLanguages = reported
	}
	if failure.AttemptedStrategies == nil {
		failure.AttemptedStrategies = []models.StrategyAttempt{}
	}

	log.Warn("All strategies failed",
		zap.String("reason", string(failure.Reason)),
		zap.Int("strategies", len(failed)),
		zap.Duration("elapsed", time.Since(started)),
	)
	o.recorder.ObserveExtraction("", string(failure.Reason), time.Since(started))

	return failure
}

// run executes one strategy inside the retry loop and normalizes its payload.
func (o *Orchestrator) run(ctx context.Context, s Strategy, req AttemptRequest, log *zap.Logger) (models.CaptionTrack, *Payload, int, error) {
	var (
		track   models.CaptionTrack
		payload *Payload
	)
	name := s.Name()

	attempts, err := Retry(ctx, o.retry, func(attempt int) error {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return Transient(err)
			}
		}

		began := time.Now()
		p, err := o.attempt(ctx, s, req)
		if err == nil {
			track, err = normalize(p, req.Language)
		}

		outcome := OutcomeSuccess
		if err != nil {
			outcome = KindOf(err).String()
		}
		o.recorder.ObserveAttempt(name, outcome, time.Since(began))
		log.Debug("Strategy attempt finished",
			zap.String("strategy", name),
			zap.Int("attempt", attempt),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", time.Since(began)),
		)

		if err != nil {
			return err
		}
		payload = p
		return nil
	}, func(err error, wait time.Duration, attempt int) {
		log.Info("Retrying strategy",
			zap.String("strategy", name),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})

	return track, payload, attempts, err
}

// attempt calls the strategy once, bounding it by the attempt timeout and
// converting panics into transient failures.
func (o *Orchestrator) attempt(ctx context.Context, s Strategy, req AttemptRequest) (p *Payload, err error) {
	actx := ctx
	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = Transient(fmt.Errorf("strategy %s panicked: %v", s.Name(), r))
		}
	}()

	p, err = s.Attempt(actx, req)
	if err == nil && p == nil {
		err = NoCaptions("strategy %s returned no payload", s.Name())
	}
	if err != nil && ctx.Err() == nil && IsContextError(err) {
		err = Transient(fmt.Errorf("attempt timed out: %w", err))
	}
	return p, err
}

func normalize(p *Payload, requested string) (models.CaptionTrack, error) {
	track, err := parser.Parse(p.Raw, p.Format)
	if err != nil {
		return models.CaptionTrack{}, ParseFailure(err)
	}
	if len(track.Cues) == 0 {
		return models.CaptionTrack{}, ParseFailure(errors.New("payload contained no caption cues"))
	}

	language := p.Language
	if language == "" {
		language = requested
	}
	return track.WithLanguage(language), nil
}

func (o *Orchestrator) cancelled(log *zap.Logger, failed []models.StrategyAttempt, cause error, started time.Time) *models.Failure {
	log.Warn("Extraction cancelled", zap.Error(cause), zap.Duration("elapsed", time.Since(started)))
	o.recorder.ObserveExtraction("", string(models.ReasonCancelled), time.Since(started))

	if failed == nil {
		failed = []models.StrategyAttempt{}
	}
	return &models.Failure{
		Reason:              models.ReasonCancelled,
		Message:             fmt.Sprintf("extraction cancelled: %v", cause),
		AttemptedStrategies: failed,
	}
}

func appendLanguages(dst, src []models.LanguageOption) []models.LanguageOption {
	for _, l := range src {
		if !ContainsLanguage(dst, l.Code) {
			dst = append(dst, l)
		}
	}
	return dst
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
