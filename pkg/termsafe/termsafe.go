// Package termsafe neutralises backend-supplied strings before they reach the
// terminal. Escape sequences and control characters are replaced by visible
// markers so a hostile payload cannot move the cursor, recolour the screen or
// set the window title.
package termsafe

import (
	"net/netip"
	"strings"
	"unicode/utf8"
)

const (
	markEsc  = "[ESC]"
	markCR   = "[CR]"
	markCtrl = "[CTRL]"
	markDel  = "[DEL]"
	ellipsis = "..."
)

// Clean returns s with every control sequence replaced. Tabs and newlines
// become spaces; invalid UTF-8 becomes U+FFFD.
func Clean(s string) string {
	if !needsCleaning(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
			b.WriteRune(utf8.RuneError)
		case r == 0x1B:
			i += escapeLen(s[i:])
			b.WriteString(markEsc)
			continue
		case r == '\t', r == '\n':
			b.WriteByte(' ')
		case r == '\r':
			b.WriteString(markCR)
		case r < 0x20:
			b.WriteString(markCtrl)
		case r == 0x7F:
			b.WriteString(markDel)
		case r >= 0x80 && r <= 0x9F:
			b.WriteString(markCtrl)
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

func needsCleaning(s string) bool {
	nonASCII := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7F {
			return true
		}
		if c >= 0x80 {
			nonASCII = true
		}
	}
	// non-ASCII needs a closer look for C1 controls and bad UTF-8
	return nonASCII && (!utf8.ValidString(s) || hasC1(s))
}

func hasC1(s string) bool {
	for _, r := range s {
		if r >= 0x80 && r <= 0x9F {
			return true
		}
	}
	return false
}

// escapeLen is the byte length of the escape sequence at the start of s,
// which begins with ESC. CSI sequences run to their final byte; OSC, DCS and
// similar string sequences run to BEL or ST.
func escapeLen(s string) int {
	if len(s) < 2 {
		return len(s)
	}
	switch s[1] {
	case '[':
		for i := 2; i < len(s); i++ {
			if s[i] >= 0x40 && s[i] <= 0x7E {
				return i + 1
			}
		}
		return len(s)
	case ']', 'P', '^', '_', 'X':
		for i := 2; i < len(s); i++ {
			if s[i] == 0x07 {
				return i + 1
			}
			if s[i] == 0x1B && i+1 < len(s) && s[i+1] == '\\' {
				return i + 2
			}
		}
		return len(s)
	default:
		return 2
	}
}

// Truncate shortens s to at most width runes, marking the cut with an
// ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-len(ellipsis)]) + ellipsis
}

// String cleans s and truncates the result to width runes. A width of zero
// or less leaves the length alone.
func String(s string, width int) string {
	s = Clean(s)
	if width > 0 {
		return Truncate(s, width)
	}
	return s
}

// Pad cleans, truncates and right-pads s to exactly width runes.
func Pad(s string, width int) string {
	s = String(s, width)
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s
}

// IP returns the canonical form of s when it parses as an address and the
// cleaned string otherwise, so placeholders like "N/A" survive.
func IP(s string) string {
	if addr, err := netip.ParseAddr(strings.TrimSpace(s)); err == nil {
		return addr.String()
	}
	return Clean(s)
}
