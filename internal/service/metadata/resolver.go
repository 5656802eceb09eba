// Package metadata resolves video title, channel, thumbnail and duration from
// a chain of best-effort sources.
package metadata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/pkg/logger"
)

// Source is one place video metadata can be read from.
type Source interface {
	Name() string
	Lookup(ctx context.Context, videoID string) (models.VideoMetadata, error)
}

// Resolver queries sources in order until the core fields are known.
type Resolver struct {
	sources []Source
	timeout time.Duration
	log     *zap.Logger
}

// NewResolver creates a Resolver. Each source call is bounded by timeout
// when it is positive.
func NewResolver(timeout time.Duration, sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		timeout: timeout,
		log:     logger.Named("metadata"),
	}
}

// Resolve merges source results into known and fills whatever is still
// missing with placeholders. It never fails.
func (r *Resolver) Resolve(ctx context.Context, videoID string, known models.VideoMetadata) models.VideoMetadata {
	md := known
	if md.VideoID == "" {
		md.VideoID = videoID
	}

	for _, src := range r.sources {
		if md.HasCoreFields() || ctx.Err() != nil {
			break
		}

		found, err := r.lookup(ctx, src, videoID)
		if err != nil {
			r.log.Debug("Metadata source failed",
				zap.String("videoId", videoID),
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			continue
		}
		md = md.Merge(found)
	}

	if !md.HasCoreFields() {
		r.log.Info("Metadata incomplete, using placeholders", zap.String("videoId", videoID))
	}
	return md.WithPlaceholders()
}

func (r *Resolver) lookup(ctx context.Context, src Source, videoID string) (models.VideoMetadata, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return src.Lookup(ctx, videoID)
}
