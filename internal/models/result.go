package models

// FailureReason is the machine-readable cause of a failed extraction.
type FailureReason string

// FailureReason constants.
const (
	ReasonCaptionsUnavailable FailureReason = "captions_unavailable"
	ReasonLanguageUnavailable FailureReason = "language_unavailable"
	ReasonVideoUnavailable    FailureReason = "video_unavailable"
	ReasonCancelled           FailureReason = "cancelled"
)

// StrategyAttempt records one strategy that failed during an extraction.
type StrategyAttempt struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

// ExtractionResult is either *Success or *Failure.
type ExtractionResult interface {
	isExtractionResult()
}

// Success is a normalized caption track plus the metadata gathered for it.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Success struct {
	Track    CaptionTrack      `json:"track"`
	Metadata VideoMetadata     `json:"metadata"`
	Strategy string            `json:"strategy"`
	Attempts []StrategyAttempt `json:"attempts,omitempty"`
	Cached   bool              `json:"-"`
}

// Failure is the terminal outcome when no strategy produced captions.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Failure struct {
	Reason              FailureReason     `json:"reason"`
	Message             string            `json:"message"`
	AttemptedStrategies []StrategyAttempt `json:"attemptedStrategies"`
	AvailableLanguages  []LanguageOption  `json:"availableLanguages,omitempty"`
}

func (*Success) isExtractionResult() {}
func (*Failure) isExtractionResult() {}
