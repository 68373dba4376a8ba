package reporter

import (
	"regexp"
	"strings"
)

var ansiEscapePattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// stripANSI removes terminal escape sequences from runner supplied titles
// and captured console output.
func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return ansiEscapePattern.ReplaceAllString(s, "")
}

// stripIllegalXMLChars drops characters the XML 1.0 spec does not allow in
// character data, such as NUL and other control characters. Report
// consumers reject documents containing them even when escaped.
func stripIllegalXMLChars(s string) string {
	if !strings.ContainsFunc(s, isIllegalXMLChar) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isIllegalXMLChar(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isIllegalXMLChar(r rune) bool {
	legal := r == 0x9 || r == 0xA || r == 0xD ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
	return !legal
}

func sanitizeContent(s string) string {
	return stripIllegalXMLChars(stripANSI(s))
}
