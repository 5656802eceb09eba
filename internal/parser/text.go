package parser

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRegex        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// DecodeEntities resolves HTML entities until the text stops changing, so
// double-encoded sequences such as "&amp;#39;" come out as "'". Applying it
// to its own output is a no-op. Each pass that changes the text shortens it,
// so the loop terminates.
func DecodeEntities(s string) string {
	for {
		next := html.UnescapeString(s)
		if next == s {
			return s
		}
		s = next
	}
}

// cleanText strips markup, decodes entities and collapses whitespace.
func cleanText(s string) string {
	s = tagRegex.ReplaceAllString(s, "")
	s = DecodeEntities(s)
	// Decoding can surface escaped markup such as &lt;font&gt;.
	s = tagRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// splitLines normalizes line endings and splits the payload into lines.
func splitLines(raw string) []string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}

// splitBlocks groups lines into blank-line separated blocks.
func splitBlocks(raw string) [][]string {
	var (
		blocks  [][]string
		current []string
	)

	for _, line := range splitLines(raw) {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	return blocks
}
