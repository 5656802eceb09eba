package extraction

import (
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

// KindASR marks an automatically generated caption track.
const KindASR = "asr"

// Track is one caption track offered by a source.
type Track struct {
	LanguageCode string
	Name         string
	Kind         string
	URL          string
}

// AutoGenerated reports whether the track was produced by speech recognition.
func (t Track) AutoGenerated() bool {
	return t.Kind == KindASR
}

// LanguagePolicy controls how far the per-strategy language waterfall may
// fall back once the requested language is missing.
type LanguagePolicy struct {
	EnglishFallback bool
	AnyFallback     bool
}

// DefaultLanguagePolicy allows every fallback step.
var DefaultLanguagePolicy = LanguagePolicy{EnglishFallback: true, AnyFallback: true}

var englishVariants = []string{"en", "en-US", "en-GB"}

// SelectTrack picks a track for language from tracks: exact code, then base
// code, then English variants, then the first track of any language. At each
// step a manual track beats an auto-generated one.
func SelectTrack(tracks []Track, language string, policy LanguagePolicy) (Track, bool) {
	if len(tracks) == 0 {
		return Track{}, false
	}

	if t, ok := pickBest(tracks, func(code string) bool { return strings.EqualFold(code, language) }); ok {
		return t, true
	}

	base := BaseLanguage(language)
	if t, ok := pickBest(tracks, func(code string) bool { return strings.EqualFold(BaseLanguage(code), base) }); ok {
		return t, true
	}

	if policy.EnglishFallback {
		for _, variant := range englishVariants {
			if t, ok := pickBest(tracks, func(code string) bool { return strings.EqualFold(code, variant) }); ok {
				return t, true
			}
		}
		if t, ok := pickBest(tracks, func(code string) bool { return strings.EqualFold(BaseLanguage(code), "en") }); ok {
			return t, true
		}
	}

	if policy.AnyFallback {
		return pickBest(tracks, func(string) bool { return true })
	}

	return Track{}, false
}

func pickBest(tracks []Track, match func(code string) bool) (Track, bool) {
	var (
		fallback Track
		found    bool
	)
	for _, t := range tracks {
		if !match(t.LanguageCode) {
			continue
		}
		if !t.AutoGenerated() {
			return t, true
		}
		if !found {
			fallback, found = t, true
		}
	}
	return fallback, found
}

// BaseLanguage strips any region or script subtag: "en-US" becomes "en".
func BaseLanguage(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return code[:i]
	}
	return code
}

// FallbackLanguages lists the codes a strategy that cannot enumerate tracks
// should request, in waterfall order.
func FallbackLanguages(language string, policy LanguagePolicy) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(code string) {
		key := strings.ToLower(code)
		if code == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, code)
	}

	add(language)
	add(BaseLanguage(language))
	if policy.EnglishFallback {
		for _, v := range englishVariants {
			add(v)
		}
	}
	return out
}

// LanguageOptions converts tracks into the public language list. Manual
// tracks come first; an auto-generated track is only listed when no manual
// track shares its code.
func LanguageOptions(tracks []Track) []models.LanguageOption {
	seen := make(map[string]bool)
	options := make([]models.LanguageOption, 0, len(tracks))

	for _, t := range tracks {
		if t.AutoGenerated() || seen[t.LanguageCode] {
			continue
		}
		seen[t.LanguageCode] = true
		options = append(options, models.LanguageOption{Code: t.LanguageCode, Name: LanguageName(t.LanguageCode, false)})
	}
	for _, t := range tracks {
		if !t.AutoGenerated() || seen[t.LanguageCode] {
			continue
		}
		seen[t.LanguageCode] = true
		options = append(options, models.LanguageOption{Code: t.LanguageCode, Name: LanguageName(t.LanguageCode, true)})
	}
	return options
}

var languageNames = map[string]string{
	"ko":      "Korean",
	"en":      "English",
	"ja":      "Japanese",
	"zh":      "Chinese",
	"zh-Hans": "Chinese (Simplified)",
	"zh-Hant": "Chinese (Traditional)",
	"fr":      "French",
	"de":      "German",
	"es":      "Spanish",
	"ru":      "Russian",
	"it":      "Italian",
	"pt":      "Portuguese",
	"ar":      "Arabic",
	"th":      "Thai",
	"vi":      "Vietnamese",
	"id":      "Indonesian",
}

// LanguageName returns a display name for code, trying the exact code, then
// its base code, then the code itself.
func LanguageName(code string, autoGenerated bool) string {
	name, ok := languageNames[code]
	if !ok {
		name, ok = languageNames[BaseLanguage(code)]
	}
	if !ok {
		name = code
	}
	if autoGenerated {
		return "Auto-generated: " + name
	}
	return name
}

// ContainsLanguage reports whether options offers language, comparing codes
// case-insensitively.
func ContainsLanguage(options []models.LanguageOption, language string) bool {
	for _, o := range options {
		if strings.EqualFold(o.Code, language) {
			return true
		}
	}
	return false
}
