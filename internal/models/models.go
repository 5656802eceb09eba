// Package models contains the data models and DTOs for the YouTube caption service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionStatus is the outcome stored for an extraction request.
type ExtractionStatus string

// ExtractionStatus constants define the possible outcomes of an extraction.
const (
	ExtractionStatusSucceeded ExtractionStatus = "SUCCEEDED"
	ExtractionStatusFailed    ExtractionStatus = "FAILED"
)

// ExtractionRecord is the audit trail entry written for every caption request.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ExtractionRecord struct {
	ID         uuid.UUID         `json:"id"`
	VideoID    string            `json:"video_id"`
	Language   string            `json:"language"`
	Status     ExtractionStatus  `json:"status"`
	Strategy   *string           `json:"strategy"`
	Reason     *string           `json:"reason"`
	CueCount   int               `json:"cue_count"`
	TextHash   *string           `json:"text_hash"`
	Cached     bool              `json:"cached"`
	Attempts   []StrategyAttempt `json:"attempts"`
	DurationMs int64             `json:"duration_ms"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CaptionRequestDTO represents the caption extraction request.
type CaptionRequestDTO struct {
	URL      string `json:"url" binding:"required,max=2048"`
	Language string `json:"language" binding:"omitempty,max=35"`
}

// VideoInfoDTO is the compact video summary embedded in caption responses.
type VideoInfoDTO struct {
	Title        string `json:"title"`
	ChannelName  string `json:"channelName"`
	ThumbnailURL string `json:"thumbnailUrl"`
	VideoID      string `json:"videoId"`
}

// CaptionDataDTO is the payload of a successful caption response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CaptionDataDTO struct {
	Text      string       `json:"text"`
	Cues      []CaptionCue `json:"cues"`
	Language  string       `json:"language,omitempty"`
	Strategy  string       `json:"strategy"`
	VideoInfo VideoInfoDTO `json:"videoInfo"`
}

// CaptionResponseDTO represents a successful caption response.
type CaptionResponseDTO struct {
	Success bool            `json:"success"`
	Data    *CaptionDataDTO `json:"data"`
}

// VideoInfoResponseDTO represents a successful video info response.
type VideoInfoResponseDTO struct {
	Success bool          `json:"success"`
	Data    VideoMetadata `json:"data"`
}

// ExtractionListResponseDTO represents a page of audit records.
type ExtractionListResponseDTO struct {
	Success bool               `json:"success"`
	Data    []ExtractionRecord `json:"data"`
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Success             bool              `json:"success"`
	Status              int               `json:"status"`
	Reason              string            `json:"reason"`
	Message             string            `json:"message"`
	AvailableLanguages  []LanguageOption  `json:"availableLanguages,omitempty"`
	AttemptedStrategies []StrategyAttempt `json:"attemptedStrategies,omitempty"`
	Timestamp           time.Time         `json:"timestamp"`
	Path                string            `json:"path"`
}
