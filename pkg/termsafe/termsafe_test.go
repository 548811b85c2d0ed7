package termsafe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean string", "Anomaly Detected", "Anomaly Detected"},
		{"unicode passes", "Détection → ok", "Détection → ok"},
		{"csi colour", "\x1b[31mRed\x1b[0m", "[ESC]Red[ESC]"},
		{"screen wipe", "\x1b[2J\x1b[HPWNED", "[ESC][ESC]PWNED"},
		{"osc title with bel", "\x1b]0;owned\x07after", "[ESC]after"},
		{"osc title with st", "\x1b]2;owned\x1b\\after", "[ESC]after"},
		{"lone escape", "a\x1bb", "a[ESC]"},
		{"tab and newline", "a\tb\nc", "a b c"},
		{"carriage return", "a\rb", "a[CR]b"},
		{"control", "a\x01b", "a[CTRL]b"},
		{"delete", "a\x7fb", "a[DEL]b"},
		{"c1 csi", "a\u009b31mb", "a[CTRL]31mb"},
		{"invalid utf8", "a\xffb", "a�b"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Clean(tc.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "he...", Truncate("hello world", 5))
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "", Truncate("hello", 0))
	assert.Equal(t, "→→...", Truncate("→→→→→→", 5))
}

func TestStringAndPad(t *testing.T) {
	assert.Equal(t, "[ESC]x", String("\x1b[1mx", 0))
	assert.Equal(t, "[E...", String("\x1b[1mxxxx", 5))
	assert.Equal(t, "ab   ", Pad("ab", 5))
	assert.Equal(t, "ab...", Pad("abcdefgh", 5))
}

func TestIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", IP("10.0.0.1"))
	assert.Equal(t, "10.0.0.1", IP(" 10.0.0.1 "))
	assert.Equal(t, "2001:db8::1", IP("2001:DB8::1"))
	assert.Equal(t, "N/A", IP("N/A"))
	assert.Equal(t, "[ESC]x", IP("\x1b[0mx"))
}
