package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

var (
	videoIDRegex  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	languageRegex = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*$`)

	// Order matters: the short-link and path forms are checked before the
	// generic query-string form.
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtu\.be/([^/?&#]+)`),
		regexp.MustCompile(`youtube(?:-nocookie)?\.com/watch\?(?:.*&)?v=([^/?&#]+)`),
		regexp.MustCompile(`youtube(?:-nocookie)?\.com/(?:embed|v|e|shorts|live)/([^/?&#]+)`),
		regexp.MustCompile(`youtube\.com/.*[?&]v=([^/?&#]+)`),
	}
)

var (
	// ErrInvalidURL is returned when no video ID can be extracted from the input.
	ErrInvalidURL = errors.New("invalid YouTube URL")
	// ErrInvalidLanguage is returned for malformed language tags.
	ErrInvalidLanguage = errors.New("invalid language code")
)

// Validator validates caption requests.
type Validator struct {
	defaultLanguage string
}

// New creates a Validator that substitutes defaultLanguage for empty language fields.
func New(defaultLanguage string) *Validator {
	return &Validator{defaultLanguage: defaultLanguage}
}

// ValidateCaptionRequest extracts the video ID and normalizes the language of a request.
func (v *Validator) ValidateCaptionRequest(req *models.CaptionRequestDTO) (videoID, language string, err error) {
	videoID, err = ExtractVideoID(req.URL)
	if err != nil {
		return "", "", err
	}

	language, err = v.NormalizeLanguage(req.Language)
	if err != nil {
		return "", "", err
	}

	return videoID, language, nil
}

// NormalizeLanguage trims lang and falls back to the default language when empty.
func (v *Validator) NormalizeLanguage(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = v.defaultLanguage
	}
	if !languageRegex.MatchString(lang) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	return lang, nil
}

// DefaultLanguage returns the language used when a request names none.
func (v *Validator) DefaultLanguage() string {
	return v.defaultLanguage
}

// IsValidVideoID reports whether id is a well-formed 11 character video ID.
func (v *Validator) IsValidVideoID(id string) bool {
	return IsValidVideoID(id)
}

// IsValidVideoID reports whether id is a well-formed 11 character video ID.
func IsValidVideoID(id string) bool {
	return videoIDRegex.MatchString(id)
}

// ExtractVideoID returns the video ID referenced by input, which may be a
// bare ID or any of the watch, short-link, embed, shorts or live URL forms.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrInvalidURL
	}

	if videoIDRegex.MatchString(input) {
		return input, nil
	}

	for _, pattern := range urlPatterns {
		m := pattern.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		if id := m[1]; videoIDRegex.MatchString(id) {
			return id, nil
		}
	}

	// Fall back to a structured parse for inputs such as "youtube.com/watch?feature=x&v=ID".
	if u, err := url.Parse(input); err == nil {
		if id := u.Query().Get("v"); videoIDRegex.MatchString(id) && strings.Contains(u.Host, "youtube") {
			return id, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidURL, input)
}
