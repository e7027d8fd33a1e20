// Package textfix repairs text that reached us through the wrong decoder.
package textfix

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Repair undoes one specific mis-decoding: UTF-8 bytes that were read as
// ISO-8859-1, one rune per byte. Each rune of s is mapped back to its
// Latin-1 byte and the result is decoded as UTF-8.
//
// If s contains a rune outside Latin-1, or the recovered bytes are not valid
// UTF-8, s is returned unchanged. Plain ASCII is a fixed point. Text that is
// already correct and contains non-ASCII Latin-1 runes may not be, so apply
// Repair only where the mismatch is expected.
func Repair(s string) string {
	if s == "" || !utf8.ValidString(s) {
		return s
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return s
	}
	if !utf8.ValidString(raw) {
		return s
	}
	return raw
}

// Mangle applies the mis-decoding that Repair undoes. It exists for tests
// and for reproducing upstream behavior in fixtures.
func Mangle(s string) string {
	out := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, rune(s[i]))
	}
	return string(out)
}
