// Package sanitize cleans text before it is persisted or surfaced to a
// user: terminal titles, NDJSON record text, and subprocess stderr all
// pass through here.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// Title sanitizes a terminal/window title by removing control characters
// and limiting the length.
func Title(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if b.Len() >= maxLen {
			break
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// StripANSI removes CSI, OSC, and SGR escape sequences from s. Event log
// records must never embed escape sequences: a provider's stdout is full
// of cursor moves and color codes that would otherwise corrupt the NDJSON
// stream's "one line per record" invariant.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// ToValidUTF8 decodes b as UTF-8, replacing invalid sequences with the
// Unicode replacement character. Event log writers must never emit a line
// that isn't valid UTF-8, and provider stdout is not guaranteed to be.
func ToValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
