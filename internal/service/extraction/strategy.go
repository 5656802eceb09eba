package extraction

import (
	"context"
	"time"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
)

// Strategy is one independent technique for obtaining a caption payload.
// Implementations return a *StrategyError (or any error, which is treated as
// transient) on failure.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, req AttemptRequest) (*Payload, error)
}

// Cooldown is implemented by strategies that want a pause before they run.
type Cooldown interface {
	Cooldown() time.Duration
}

// AttemptRequest is the input of a single strategy attempt. Known carries the
// metadata gathered so far so a strategy can skip redundant lookups.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AttemptRequest struct {
	VideoID  string
	Language string
	Policy   LanguagePolicy
	Known    models.VideoMetadata
}

// Payload is the raw output of a successful attempt.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Payload struct {
	Raw                string
	Format             parser.Format
	Language           string
	Metadata           models.VideoMetadata
	AvailableLanguages []models.LanguageOption
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc struct {
	StrategyName string
	Fn           func(ctx context.Context, req AttemptRequest) (*Payload, error)
}

// Name returns the strategy name.
func (s StrategyFunc) Name() string { return s.StrategyName }

// Attempt calls Fn.
func (s StrategyFunc) Attempt(ctx context.Context, req AttemptRequest) (*Payload, error) {
	return s.Fn(ctx, req)
}
