package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-caption-api-go/internal/middleware"
	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service"
	"github.com/ad-tracker/youtube-caption-api-go/internal/validation"
	"github.com/ad-tracker/youtube-caption-api-go/pkg/logger"
)

// Error reasons that do not come from the extraction result.
const (
	ReasonInvalidURL     = "invalid_url"
	ReasonInvalidRequest = "invalid_request"
	ReasonNotFound       = "not_found"
	ReasonInternal       = "internal_error"
)

// CaptionService is the business logic behind the caption endpoints.
type CaptionService interface {
	Extract(ctx context.Context, req *models.CaptionRequestDTO) (*models.Success, error)
	VideoInfo(ctx context.Context, videoID string) (models.VideoMetadata, error)
	ListExtractions(ctx context.Context, videoID string, limit int) ([]models.ExtractionRecord, error)
}

// CaptionHandler handles caption-related HTTP requests.
type CaptionHandler struct {
	captionService CaptionService
	requestTimeout time.Duration
}

// NewCaptionHandler creates a new CaptionHandler instance. A zero
// requestTimeout leaves the request context unbounded.
func NewCaptionHandler(captionService CaptionService, requestTimeout time.Duration) *CaptionHandler {
	return &CaptionHandler{
		captionService: captionService,
		requestTimeout: requestTimeout,
	}
}

// ExtractCaptions handles POST /captions.
func (h *CaptionHandler) ExtractCaptions(c *gin.Context) {
	var req models.CaptionRequestDTO

	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Log.Warn("Invalid request payload",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		h.writeError(c, http.StatusBadRequest, ReasonInvalidRequest, "Invalid request payload: "+err.Error(), nil)
		return
	}

	logger.Log.Info("Received caption request",
		zap.String("requestId", middleware.GetRequestID(c)),
		zap.String("url", req.URL),
		zap.String("language", req.Language),
		zap.String("sourceIp", h.getClientIP(c)),
	)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.captionService.Extract(ctx, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if result.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}

	c.JSON(http.StatusOK, models.CaptionResponseDTO{
		Success: true,
		Data: &models.CaptionDataDTO{
			Text:     result.Track.FullText,
			Cues:     result.Track.Cues,
			Language: result.Track.LanguageCode,
			Strategy: result.Strategy,
			VideoInfo: models.VideoInfoDTO{
				Title:        result.Metadata.Title,
				ChannelName:  result.Metadata.ChannelName,
				ThumbnailURL: result.Metadata.ThumbnailURL,
				VideoID:      result.Metadata.VideoID,
			},
		},
	})
}

// GetVideoInfo handles GET /video/info?id=.
func (h *CaptionHandler) GetVideoInfo(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	info, err := h.captionService.VideoInfo(ctx, strings.TrimSpace(c.Query("id")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VideoInfoResponseDTO{
		Success: true,
		Data:    info,
	})
}

// ListExtractions handles GET /api/v1/extractions/:videoId.
func (h *CaptionHandler) ListExtractions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(c, http.StatusBadRequest, ReasonInvalidRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	records, err := h.captionService.ListExtractions(c.Request.Context(), c.Param("videoId"), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ExtractionListResponseDTO{
		Success: true,
		Data:    records,
	})
}

func (h *CaptionHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.requestTimeout)
}

func (h *CaptionHandler) getClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return xri
	}

	return c.ClientIP()
}

func (h *CaptionHandler) handleError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		extractionErr *service.ExtractionError
	)

	switch {
	case errors.As(err, &validationErr):
		logger.Log.Warn("Validation error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		reason := ReasonInvalidRequest
		if errors.Is(err, validation.ErrInvalidURL) {
			reason = ReasonInvalidURL
		}
		h.writeError(c, http.StatusBadRequest, reason, err.Error(), nil)

	case errors.As(err, &extractionErr):
		failure := extractionErr.Failure
		logger.Log.Info("Extraction failed",
			zap.String("reason", string(failure.Reason)),
			zap.Int("strategies", len(failure.AttemptedStrategies)),
			zap.String("path", c.Request.URL.Path),
		)
		h.writeError(c, failureStatus(failure.Reason), string(failure.Reason), failure.Message, failure)

	case errors.Is(err, service.ErrAuditLogDisabled):
		h.writeError(c, http.StatusNotFound, ReasonNotFound, err.Error(), nil)

	default:
		logger.Log.Error("Processing error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		h.writeError(c, http.StatusInternalServerError, ReasonInternal, "An unexpected error occurred", nil)
	}
}

func failureStatus(reason models.FailureReason) int {
	switch reason {
	case models.ReasonCaptionsUnavailable, models.ReasonLanguageUnavailable, models.ReasonVideoUnavailable:
		return http.StatusNotFound
	case models.ReasonCancelled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *CaptionHandler) writeError(c *gin.Context, status int, reason, message string, failure *models.Failure) {
	resp := models.ErrorResponse{
		Success:   false,
		Status:    status,
		Reason:    reason,
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	}
	if failure != nil {
		resp.AvailableLanguages = failure.AvailableLanguages
		resp.AttemptedStrategies = failure.AttemptedStrategies
	}
	c.JSON(status, resp)
}
