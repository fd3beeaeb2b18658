package urlutil

import (
	"strings"

	"golang.org/x/net/idna"
)

// EncodeHostPunycode applies RFC 3492 Punycode to each dot-separated label
// of host that isn't already ASCII, prefixing encoded labels with "xn--" —
// spec.md §6 "Punycode: per-component encoding for IDN hostnames", grounded
// on `url-helpers.c`'s pcutils_punycode_encode (same per-label behavior,
// ASCII labels passed through unchanged). golang.org/x/net/idna implements
// the same RFC; this repository reaches for it rather than re-deriving the
// adapt-bias arithmetic that file hand-rolls.
func EncodeHostPunycode(host string) (string, error) {
	return idna.ToASCII(host)
}

// DecodeHostPunycode reverses EncodeHostPunycode, expanding any "xn--"
// labels back to Unicode.
func DecodeHostPunycode(host string) (string, error) {
	return idna.ToUnicode(host)
}

// IsPunycodeLabel reports whether label (one dot-separated component) is
// already in its encoded "xn--" form.
func IsPunycodeLabel(label string) bool {
	return strings.HasPrefix(strings.ToLower(label), "xn--")
}
