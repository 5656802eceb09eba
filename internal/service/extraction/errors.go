package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

// ErrorKind classifies a strategy failure for the retry policy and the
// orchestrator's short-circuit rule.
type ErrorKind int

// ErrorKind values.
const (
	KindTransient ErrorKind = iota
	KindRateLimited
	KindParse
	KindNoCaptions
	KindLanguageUnavailable
	KindCaptionsDisabled
	KindVideoUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindParse:
		return "parse"
	case KindNoCaptions:
		return "no_captions"
	case KindLanguageUnavailable:
		return "language_unavailable"
	case KindCaptionsDisabled:
		return "captions_disabled"
	case KindVideoUnavailable:
		return "video_unavailable"
	default:
		return "unknown"
	}
}

// Retriable reports whether another attempt of the same strategy may succeed.
func (k ErrorKind) Retriable() bool {
	return k == KindTransient || k == KindRateLimited || k == KindParse
}

// Fatal reports whether no strategy can succeed for the video.
func (k ErrorKind) Fatal() bool {
	return k == KindVideoUnavailable || k == KindCaptionsDisabled
}

// StrategyError is the error type strategies return.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type StrategyError struct {
	Kind               ErrorKind
	Err                error
	AvailableLanguages []models.LanguageOption
}

func (e *StrategyError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retriable failure.
func Transient(err error) *StrategyError {
	return &StrategyError{Kind: KindTransient, Err: err}
}

// RateLimited wraps err as a rate-limit signal.
func RateLimited(err error) *StrategyError {
	return &StrategyError{Kind: KindRateLimited, Err: err}
}

// ParseFailure wraps err as a malformed payload.
func ParseFailure(err error) *StrategyError {
	return &StrategyError{Kind: KindParse, Err: err}
}

// NoCaptions reports that the strategy found no caption tracks.
func NoCaptions(format string, args ...any) *StrategyError {
	return &StrategyError{Kind: KindNoCaptions, Err: fmt.Errorf(format, args...)}
}

// VideoUnavailable reports a deleted, private or otherwise unplayable video.
func VideoUnavailable(format string, args ...any) *StrategyError {
	return &StrategyError{Kind: KindVideoUnavailable, Err: fmt.Errorf(format, args...)}
}

// CaptionsDisabled reports that the uploader turned captions off.
func CaptionsDisabled(format string, args ...any) *StrategyError {
	return &StrategyError{Kind: KindCaptionsDisabled, Err: fmt.Errorf(format, args...)}
}

// LanguageUnavailable reports that none of the offered tracks satisfied the
// language waterfall.
func LanguageUnavailable(language string, available []models.LanguageOption) *StrategyError {
	codes := make([]string, 0, len(available))
	for _, l := range available {
		codes = append(codes, l.Code)
	}
	return &StrategyError{
		Kind:               KindLanguageUnavailable,
		Err:                fmt.Errorf("no captions for language %q (available: %s)", language, strings.Join(codes, ", ")),
		AvailableLanguages: available,
	}
}

// KindOf returns the kind of err. Errors that are not a *StrategyError are
// treated as transient.
func KindOf(err error) ErrorKind {
	var se *StrategyError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// AvailableLanguagesOf returns the language list attached to err, if any.
func AvailableLanguagesOf(err error) []models.LanguageOption {
	var se *StrategyError
	if errors.As(err, &se) {
		return se.AvailableLanguages
	}
	return nil
}

// IsContextError reports whether err is the result of cancellation or an
// expired deadline.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// FromStatus classifies a non-2xx HTTP status returned by a caption source.
func FromStatus(code int, source string) *StrategyError {
	err := fmt.Errorf("%s returned HTTP %d", source, code)
	switch {
	case code == http.StatusTooManyRequests:
		return RateLimited(err)
	case stealth.IsRetryableStatus(code):
		return Transient(err)
	case code == http.StatusNotFound || code == http.StatusGone:
		return &StrategyError{Kind: KindNoCaptions, Err: err}
	default:
		return Transient(err)
	}
}

var messageKinds = []struct {
	kind    ErrorKind
	needles []string
}{
	{KindVideoUnavailable, []string{
		"video unavailable", "video is unavailable", "private video", "video is private",
		"this video has been removed", "video has been removed", "account associated with this video has been terminated",
		"not available in your country", "sign in to confirm your age",
	}},
	{KindCaptionsDisabled, []string{"subtitles are disabled", "transcripts are disabled", "captions are disabled"}},
	{KindRateLimited, []string{"too many requests", "rate limit", "sign in to confirm you're not a bot", "sign in to confirm you’re not a bot"}},
	{KindNoCaptions, []string{"captions not found", "no transcript", "no captions", "no subtitles", "there are no subtitles"}},
}

// rateLimitStatusRegex matches a 429 reported as an HTTP status, not the
// digits appearing inside an ID or a byte count.
var rateLimitStatusRegex = regexp.MustCompile(`\b(?:http|status|error|code)[\s:=/-]*(?:(?:error|code)[\s:=]*)?429\b`)

// ClassifyMessage maps a free-form error from a third-party library or
// subprocess to a StrategyError by looking for well-known phrases.
func ClassifyMessage(err error) *StrategyError {
	if err == nil {
		return nil
	}
	var se *StrategyError
	if errors.As(err, &se) {
		return se
	}

	msg := strings.ToLower(err.Error())
	if rateLimitStatusRegex.MatchString(msg) {
		return &StrategyError{Kind: KindRateLimited, Err: err}
	}
	for _, mk := range messageKinds {
		for _, needle := range mk.needles {
			if strings.Contains(msg, needle) {
				return &StrategyError{Kind: mk.kind, Err: err}
			}
		}
	}
	return Transient(err)
}
