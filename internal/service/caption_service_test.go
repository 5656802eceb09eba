package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/repository"
	"github.com/ad-tracker/youtube-caption-api-go/internal/validation"
	"github.com/ad-tracker/youtube-caption-api-go/pkg/logger"
)

func init() {
	_ = logger.Init("error", "")
}

const testVideoID = "dQw4w9WgXcQ"

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, videoID, language string) models.ExtractionResult {
	args := m.Called(ctx, videoID, language)
	return args.Get(0).(models.ExtractionResult)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, videoID string, known models.VideoMetadata) models.VideoMetadata {
	args := m.Called(ctx, videoID, known)
	return args.Get(0).(models.VideoMetadata)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, videoID, language string) (*models.Success, error) {
	args := m.Called(ctx, videoID, language)
	s, _ := args.Get(0).(*models.Success)
	return s, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, videoID, language string, s *models.Success) error {
	args := m.Called(ctx, videoID, language, s)
	return args.Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateExtraction(ctx context.Context, rec *models.ExtractionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) ListExtractionsByVideo(ctx context.Context, videoID string, limit int) ([]models.ExtractionRecord, error) {
	args := m.Called(ctx, videoID, limit)
	recs, _ := args.Get(0).([]models.ExtractionRecord)
	return recs, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishExtraction(ctx context.Context, rec *models.ExtractionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) ObserveCache(hit bool) {
	if hit {
		o.hits++
		return
	}
	o.misses++
}

func successResult() *models.Success {
	return &models.Success{
		Track: models.NewCaptionTrack([]models.CaptionCue{
			{Text: "hello", Start: 0, Duration: 1, End: 1},
			{Text: "world", Start: 1, Duration: 1, End: 2},
		}, "json3"),
		Metadata: models.VideoMetadata{VideoID: testVideoID, Title: "Video"},
		Strategy: "page_scrape",
		Attempts: []models.StrategyAttempt{{Strategy: "transcript_api", Error: "no captions", Attempts: 1}},
	}
}

func TestCaptionService_Extract_Success(t *testing.T) {
	extractor := new(mockExtractor)
	store := new(mockStore)
	publisher := new(mockPublisher)

	result := successResult()
	extractor.On("Extract", mock.Anything, testVideoID, "ko").Return(result)

	var saved *models.ExtractionRecord
	store.On("CreateExtraction", mock.Anything, mock.AnythingOfType("*models.ExtractionRecord")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.ExtractionRecord) }).
		Return(nil)
	publisher.On("PublishExtraction", mock.Anything, mock.AnythingOfType("*models.ExtractionRecord")).Return(nil)

	svc := NewCaptionService(extractor, new(mockResolver), validation.New("ko"),
		WithAuditLog(store),
		WithPublisher(publisher),
	)

	got, err := svc.Extract(context.Background(), &models.CaptionRequestDTO{URL: "https://youtu.be/" + testVideoID})
	require.NoError(t, err)
	assert.Same(t, result, got)

	require.NotNil(t, saved)
	assert.Equal(t, models.ExtractionStatusSucceeded, saved.Status)
	assert.Equal(t, testVideoID, saved.VideoID)
	assert.Equal(t, "ko", saved.Language)
	require.NotNil(t, saved.Strategy)
	assert.Equal(t, "page_scrape", *saved.Strategy)
	assert.Nil(t, saved.Reason)
	assert.Equal(t, 2, saved.CueCount)
	require.NotNil(t, saved.TextHash)
	assert.Equal(t, repository.ComputeTextHash(result.Track.FullText), *saved.TextHash)
	assert.Len(t, saved.Attempts, 1)
	assert.False(t, saved.Cached)

	extractor.AssertExpectations(t)
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCaptionService_Extract_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		req  models.CaptionRequestDTO
	}{
		{"not youtube", models.CaptionRequestDTO{URL: "https://example.com/watch?v=" + testVideoID}},
		{"empty url", models.CaptionRequestDTO{}},
		{"bad language", models.CaptionRequestDTO{URL: "https://youtu.be/" + testVideoID, Language: "not a language!"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := new(mockExtractor)
			svc := NewCaptionService(extractor, new(mockResolver), validation.New("ko"))

			_, err := svc.Extract(context.Background(), &tt.req)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCaptionService_Extract_Failure(t *testing.T) {
	extractor := new(mockExtractor)
	store := new(mockStore)

	failure := &models.Failure{
		Reason:              models.ReasonLanguageUnavailable,
		Message:             `captions are not available in "ko"`,
		AttemptedStrategies: []models.StrategyAttempt{{Strategy: "innertube", Error: "language unavailable", Attempts: 1}},
		AvailableLanguages:  []models.LanguageOption{{Code: "en", Name: "English"}},
	}
	extractor.On("Extract", mock.Anything, testVideoID, "ko").Return(failure)

	var saved *models.ExtractionRecord
	store.On("CreateExtraction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.ExtractionRecord) }).
		Return(nil)

	svc := NewCaptionService(extractor, new(mockResolver), validation.New("ko"), WithAuditLog(store))

	_, err := svc.Extract(context.Background(), &models.CaptionRequestDTO{URL: testVideoID, Language: "ko"})

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Same(t, failure, ee.Failure)
	assert.Contains(t, err.Error(), "language_unavailable")

	require.NotNil(t, saved)
	assert.Equal(t, models.ExtractionStatusFailed, saved.Status)
	require.NotNil(t, saved.Reason)
	assert.Equal(t, "language_unavailable", *saved.Reason)
	assert.Nil(t, saved.Strategy)
	assert.Nil(t, saved.TextHash)
}

func TestCaptionService_Extract_CacheHit(t *testing.T) {
	extractor := new(mockExtractor)
	cache := new(mockCache)
	store := new(mockStore)
	observer := &countingObserver{}

	cached := successResult()
	cached.Attempts = nil
	cache.On("Get", mock.Anything, testVideoID, "en").Return(cached, nil)

	var saved *models.ExtractionRecord
	store.On("CreateExtraction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.ExtractionRecord) }).
		Return(nil)

	svc := NewCaptionService(extractor, new(mockResolver), validation.New("ko"),
		WithCache(cache),
		WithAuditLog(store),
		WithCacheObserver(observer),
	)

	got, err := svc.Extract(context.Background(), &models.CaptionRequestDTO{URL: testVideoID, Language: "en"})
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Equal(t, 1, observer.hits)

	require.NotNil(t, saved)
	assert.True(t, saved.Cached)
	assert.NotNil(t, saved.Attempts)

	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCaptionService_Extract_CacheMissStoresResult(t *testing.T) {
	extractor := new(mockExtractor)
	cache := new(mockCache)
	observer := &countingObserver{}

	result := successResult()
	cache.On("Get", mock.Anything, testVideoID, "ko").Return(nil, nil)
	cache.On("Set", mock.Anything, testVideoID, "ko", result).Return(nil)
	extractor.On("Extract", mock.Anything, testVideoID, "ko").Return(result)

	svc := NewCaptionService(extractor, new(mockResolver), validation.New("ko"),
		WithCache(cache),
		WithCacheObserver(observer),
	)

	got, err := svc.Extract(context.Background(), &models.CaptionRequestDTO{URL: testVideoID})
	require.NoError(t, err)
	assert.False(t, got.Cached)
	assert.Equal(t, 1, observer.misses)

	cache.AssertExpectations(t)
	extractor.AssertExpectations(t)
}

func TestCaptionService_Extract_FailureIsNotCached(t *testing.T) {
	extractor := new(mockExtractor)
	cache := new(mockCache)

	cache.On("Get", mock.Anything, testVideoID, "ko").Return(nil, nil)
	extractor.On("Extract", mock.Anything, testVideoID, "ko").Return(&models.Failure{
		Reason:              models.ReasonCaptionsUnavailable,
		AttemptedStrategies: []models.StrategyAttempt{},
	})

	svc := NewCaptionService(extractor, new(mockResolver), validation.New("ko"), WithCache(cache))

	_, err := svc.Extract(context.Background(), &models.CaptionRequestDTO{URL: testVideoID})
	require.Error(t, err)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCaptionService_Extract_SideEffectErrorsAreIgnored(t *testing.T) {
	extractor := new(mockExtractor)
	cache := new(mockCache)
	store := new(mockStore)
	publisher := new(mockPublisher)

	result := successResult()
	cache.On("Get", mock.Anything, testVideoID, "ko").Return(nil, errors.New("redis down"))
	cache.On("Set", mock.Anything, testVideoID, "ko", result).Return(errors.New("redis down"))
	extractor.On("Extract", mock.Anything, testVideoID, "ko").Return(result)
	store.On("CreateExtraction", mock.Anything, mock.Anything).Return(errors.New("db down"))
	publisher.On("PublishExtraction", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := NewCaptionService(extractor, new(mockResolver), validation.New("ko"),
		WithCache(cache),
		WithAuditLog(store),
		WithPublisher(publisher),
	)

	got, err := svc.Extract(context.Background(), &models.CaptionRequestDTO{URL: testVideoID})
	require.NoError(t, err)
	assert.Same(t, result, got)
	publisher.AssertExpectations(t)
}

func TestCaptionService_Extract_SideEffectsOutliveCancelledRequest(t *testing.T) {
	extractor := new(mockExtractor)
	store := new(mockStore)

	ctx, cancel := context.WithCancel(context.Background())
	extractor.On("Extract", mock.Anything, testVideoID, "ko").
		Run(func(mock.Arguments) { cancel() }).
		Return(&models.Failure{Reason: models.ReasonCancelled, AttemptedStrategies: []models.StrategyAttempt{}})

	var storeCtxErr error
	store.On("CreateExtraction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { storeCtxErr = args.Get(0).(context.Context).Err() }).
		Return(nil)

	svc := NewCaptionService(extractor, new(mockResolver), validation.New("ko"), WithAuditLog(store))

	_, err := svc.Extract(ctx, &models.CaptionRequestDTO{URL: testVideoID})

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, models.ReasonCancelled, ee.Failure.Reason)
	assert.NoError(t, storeCtxErr)
}

func TestCaptionService_VideoInfo(t *testing.T) {
	resolver := new(mockResolver)
	want := models.VideoMetadata{VideoID: testVideoID, Title: "Video", ChannelName: "Channel"}
	resolver.On("Resolve", mock.Anything, testVideoID, models.VideoMetadata{VideoID: testVideoID}).Return(want)

	svc := NewCaptionService(new(mockExtractor), resolver, validation.New("ko"))

	got, err := svc.VideoInfo(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.VideoInfo(context.Background(), "https://youtu.be/"+testVideoID)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, validation.ErrInvalidURL)
}

func TestCaptionService_ListExtractions(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc := NewCaptionService(new(mockExtractor), new(mockResolver), validation.New("ko"))
		_, err := svc.ListExtractions(context.Background(), testVideoID, 10)
		assert.ErrorIs(t, err, ErrAuditLogDisabled)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := NewCaptionService(new(mockExtractor), new(mockResolver), validation.New("ko"), WithAuditLog(new(mockStore)))
		_, err := svc.ListExtractions(context.Background(), "short", 10)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("clamps limit", func(t *testing.T) {
		store := new(mockStore)
		store.On("ListExtractionsByVideo", mock.Anything, testVideoID, repository.DefaultListLimit).
			Return([]models.ExtractionRecord{{VideoID: testVideoID}}, nil)

		svc := NewCaptionService(new(mockExtractor), new(mockResolver), validation.New("ko"), WithAuditLog(store))
		got, err := svc.ListExtractions(context.Background(), testVideoID, 0)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		store.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		store := new(mockStore)
		store.On("ListExtractionsByVideo", mock.Anything, testVideoID, 5).Return(nil, errors.New("db down"))

		svc := NewCaptionService(new(mockExtractor), new(mockResolver), validation.New("ko"), WithAuditLog(store))
		_, err := svc.ListExtractions(context.Background(), testVideoID, 5)
		var pe *ProcessingError
		assert.ErrorAs(t, err, &pe)
	})
}
