package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"empty", "", 100, ""},
		{"normal", "backend", 100, "backend"},
		{"with control chars", "ba\x00ck\x07end", 100, "backend"},
		{"truncate", "very long title", 8, "very lon"},
		{"trim whitespace", "  hello  ", 100, "hello"},
		{"unicode", "日本語タイトル", 100, "日本語タイトル"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Title(tt.input, tt.maxLen)
			assert.Equal(t, tt.want, got, "Title(%q, %d)", tt.input, tt.maxLen)
		})
	}
}

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"sgr color", "\x1b[31mred\x1b[0m text", "red text"},
		{"cursor move", "a\x1b[2Kb", "ab"},
		{"osc title", "\x1b]0;window title\x07prompt$ ", "prompt$ "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripANSI(tt.input))
		})
	}
}

func TestToValidUTF8(t *testing.T) {
	assert.Equal(t, "hello", ToValidUTF8([]byte("hello")))
	invalid := []byte{0x68, 0x65, 0xff, 0x6c, 0x6c, 0x6f}
	got := ToValidUTF8(invalid)
	assert.Contains(t, got, "h")
	assert.Contains(t, got, "llo")
}
