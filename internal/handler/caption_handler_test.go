package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/youtube-caption-api-go/internal/middleware"
	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service"
	"github.com/ad-tracker/youtube-caption-api-go/internal/validation"
	"github.com/ad-tracker/youtube-caption-api-go/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "")
}

const testVideoID = "dQw4w9WgXcQ"

type mockCaptionService struct {
	mock.Mock
}

func (m *mockCaptionService) Extract(ctx context.Context, req *models.CaptionRequestDTO) (*models.Success, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*models.Success)
	return s, args.Error(1)
}

func (m *mockCaptionService) VideoInfo(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	args := m.Called(ctx, videoID)
	return args.Get(0).(models.VideoMetadata), args.Error(1)
}

func (m *mockCaptionService) ListExtractions(ctx context.Context, videoID string, limit int) ([]models.ExtractionRecord, error) {
	args := m.Called(ctx, videoID, limit)
	recs, _ := args.Get(0).([]models.ExtractionRecord)
	return recs, args.Error(1)
}

func newTestRouter(svc CaptionService, auditLog bool) *gin.Engine {
	return NewRouter(RouterConfig{
		Captions: NewCaptionHandler(svc, time.Minute),
		Health:   NewHealthHandler("test", nil),
		AuditLog: auditLog,
	})
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCaptionHandler_ExtractCaptions_Success(t *testing.T) {
	svc := new(mockCaptionService)
	svc.On("Extract", mock.Anything, &models.CaptionRequestDTO{URL: "https://youtu.be/" + testVideoID, Language: "en"}).
		Return(&models.Success{
			Track: models.NewCaptionTrack([]models.CaptionCue{
				{Text: "Hello", Start: 0, Duration: 1.5, End: 1.5, StartFormatted: "0:00"},
			}, "json3"),
			Metadata: models.VideoMetadata{
				VideoID:      testVideoID,
				Title:        "Title",
				ChannelName:  "Channel",
				ThumbnailURL: "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
			},
			Strategy: "innertube",
		}, nil)

	for _, path := range []string{"/captions", "/api/subtitles"} {
		t.Run(path, func(t *testing.T) {
			w := postJSON(t, newTestRouter(svc, false), path, `{"url":"https://youtu.be/dQw4w9WgXcQ","language":"en"}`)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

			var resp models.CaptionResponseDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, resp.Success)
			require.NotNil(t, resp.Data)
			assert.Equal(t, "Hello", resp.Data.Text)
			assert.Len(t, resp.Data.Cues, 1)
			assert.Equal(t, "innertube", resp.Data.Strategy)
			assert.Equal(t, "Title", resp.Data.VideoInfo.Title)
			assert.Equal(t, testVideoID, resp.Data.VideoInfo.VideoID)
		})
	}
}

func TestCaptionHandler_ExtractCaptions_CachedHeader(t *testing.T) {
	svc := new(mockCaptionService)
	svc.On("Extract", mock.Anything, mock.Anything).Return(&models.Success{
		Track:    models.NewCaptionTrack(nil, "json3"),
		Strategy: "innertube",
		Cached:   true,
	}, nil)

	w := postJSON(t, newTestRouter(svc, false), "/captions", `{"url":"dQw4w9WgXcQ"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestCaptionHandler_ExtractCaptions_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		err         error
		wantStatus  int
		wantReason  string
		wantOptions int
		wantTried   int
	}{
		{
			name:       "malformed json",
			body:       `{"url":`,
			wantStatus: http.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
		{
			name:       "missing url",
			body:       `{"language":"en"}`,
			wantStatus: http.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
		{
			name:       "invalid url",
			body:       `{"url":"https://example.com"}`,
			err:        &service.ValidationError{Message: "invalid YouTube URL", Cause: validation.ErrInvalidURL},
			wantStatus: http.StatusBadRequest,
			wantReason: ReasonInvalidURL,
		},
		{
			name:       "invalid language",
			body:       `{"url":"dQw4w9WgXcQ","language":"??"}`,
			err:        &service.ValidationError{Message: "invalid language code", Cause: validation.ErrInvalidLanguage},
			wantStatus: http.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
		{
			name: "captions unavailable",
			body: `{"url":"dQw4w9WgXcQ"}`,
			err: &service.ExtractionError{Failure: &models.Failure{
				Reason:  models.ReasonCaptionsUnavailable,
				Message: "no captions",
				AttemptedStrategies: []models.StrategyAttempt{
					{Strategy: "transcript_api", Error: "no captions", Attempts: 1},
					{Strategy: "innertube", Error: "no captions", Attempts: 1},
				},
			}},
			wantStatus: http.StatusNotFound,
			wantReason: string(models.ReasonCaptionsUnavailable),
			wantTried:  2,
		},
		{
			name: "language unavailable",
			body: `{"url":"dQw4w9WgXcQ","language":"ko"}`,
			err: &service.ExtractionError{Failure: &models.Failure{
				Reason:             models.ReasonLanguageUnavailable,
				Message:            `captions are not available in "ko"`,
				AvailableLanguages: []models.LanguageOption{{Code: "en", Name: "English"}},
			}},
			wantStatus:  http.StatusNotFound,
			wantReason:  string(models.ReasonLanguageUnavailable),
			wantOptions: 1,
		},
		{
			name:       "video unavailable",
			body:       `{"url":"dQw4w9WgXcQ"}`,
			err:        &service.ExtractionError{Failure: &models.Failure{Reason: models.ReasonVideoUnavailable}},
			wantStatus: http.StatusNotFound,
			wantReason: string(models.ReasonVideoUnavailable),
		},
		{
			name:       "cancelled",
			body:       `{"url":"dQw4w9WgXcQ"}`,
			err:        &service.ExtractionError{Failure: &models.Failure{Reason: models.ReasonCancelled}},
			wantStatus: http.StatusGatewayTimeout,
			wantReason: string(models.ReasonCancelled),
		},
		{
			name:       "unexpected",
			body:       `{"url":"dQw4w9WgXcQ"}`,
			err:        &service.ProcessingError{Message: "boom", Cause: context.Canceled},
			wantStatus: http.StatusInternalServerError,
			wantReason: ReasonInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockCaptionService)
			if tt.err != nil {
				svc.On("Extract", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			w := postJSON(t, newTestRouter(svc, false), "/captions", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantReason, resp.Reason)
			assert.Equal(t, "/captions", resp.Path)
			assert.Len(t, resp.AvailableLanguages, tt.wantOptions)
			assert.Len(t, resp.AttemptedStrategies, tt.wantTried)

			if tt.err == nil {
				svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCaptionHandler_ExtractCaptions_AppliesRequestTimeout(t *testing.T) {
	svc := new(mockCaptionService)

	var deadline time.Time
	var hasDeadline bool
	svc.On("Extract", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			deadline, hasDeadline = args.Get(0).(context.Context).Deadline()
		}).
		Return(&models.Success{Track: models.NewCaptionTrack(nil, "")}, nil)

	r := NewRouter(RouterConfig{
		Captions: NewCaptionHandler(svc, 30*time.Second),
		Health:   NewHealthHandler("test", nil),
	})
	postJSON(t, r, "/captions", `{"url":"dQw4w9WgXcQ"}`)

	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, 5*time.Second)
}

func TestCaptionHandler_GetVideoInfo(t *testing.T) {
	svc := new(mockCaptionService)
	svc.On("VideoInfo", mock.Anything, testVideoID).Return(models.VideoMetadata{
		VideoID:            testVideoID,
		Title:              "Title",
		ChannelName:        "Channel",
		DurationSeconds:    212,
		AvailableLanguages: []models.LanguageOption{{Code: "en", Name: "English"}},
	}, nil)
	svc.On("VideoInfo", mock.Anything, "bad").Return(models.VideoMetadata{},
		&service.ValidationError{Message: `invalid video id "bad"`, Cause: validation.ErrInvalidURL})

	r := newTestRouter(svc, false)

	for _, path := range []string{"/video/info", "/api/video/info"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path+"?id="+testVideoID, nil))

			require.Equal(t, http.StatusOK, w.Code)

			var resp models.VideoInfoResponseDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, resp.Success)
			assert.Equal(t, "Title", resp.Data.Title)
			assert.Equal(t, 212, resp.Data.DurationSeconds)
			assert.Len(t, resp.Data.AvailableLanguages, 1)
		})
	}

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/video/info?id=bad", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), ReasonInvalidURL)
	})
}

func TestCaptionHandler_ListExtractions(t *testing.T) {
	t.Run("route disabled without audit log", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestRouter(new(mockCaptionService), false).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+testVideoID, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("lists records", func(t *testing.T) {
		svc := new(mockCaptionService)
		svc.On("ListExtractions", mock.Anything, testVideoID, 5).Return([]models.ExtractionRecord{
			{VideoID: testVideoID, Status: models.ExtractionStatusSucceeded},
		}, nil)

		w := httptest.NewRecorder()
		newTestRouter(svc, true).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+testVideoID+"?limit=5", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp models.ExtractionListResponseDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 1)
		svc.AssertExpectations(t)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestRouter(new(mockCaptionService), true).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+testVideoID+"?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("audit log disabled", func(t *testing.T) {
		svc := new(mockCaptionService)
		svc.On("ListExtractions", mock.Anything, testVideoID, 0).Return(nil, service.ErrAuditLogDisabled)

		w := httptest.NewRecorder()
		newTestRouter(svc, true).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+testVideoID, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), ReasonNotFound)
	})
}

func TestRouter_RequiresAPIKeyWhenConfigured(t *testing.T) {
	svc := new(mockCaptionService)
	r := NewRouter(RouterConfig{
		Captions: NewCaptionHandler(svc, 0),
		Health:   NewHealthHandler("test", nil),
		Auth:     middleware.NewAPIKeyAuth([]string{"secret"}, nil),
	})

	w := postJSON(t, r, "/captions", `{"url":"dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health endpoints stay open")

	svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestRouter_Metrics(t *testing.T) {
	r := NewRouter(RouterConfig{
		Captions: NewCaptionHandler(new(mockCaptionService), 0),
		Health:   NewHealthHandler("test", nil),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("caption_api_up 1\n"))
		}),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "caption_api_up")
}
