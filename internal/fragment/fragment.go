// Package fragment encodes selectors in the portable wire format
//
//	e=<exact>&p=<prefix>&s=<suffix>
//
// Components are percent-encoded like encodeURIComponent, except that
// Hiragana, Katakana and Han code points are written literally so that
// links quoting Japanese or Chinese text stay readable. p and s are omitted
// when the context is absent; e is mandatory.
package fragment

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/reanchor/internal/ir"
)

// Wire keys.
const (
	KeyExact  = "e"
	KeyPrefix = "p"
	KeySuffix = "s"
)

// Encode returns the wire form of sel.
func Encode(sel ir.Selector) (string, error) {
	if err := sel.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	writePair(&b, KeyExact, sel.Exact)
	if sel.HasPrefix() {
		b.WriteByte('&')
		writePair(&b, KeyPrefix, sel.Prefix)
	}
	if sel.HasSuffix() {
		b.WriteByte('&')
		writePair(&b, KeySuffix, sel.Suffix)
	}
	return b.String(), nil
}

// Decode parses the wire form into a selector.
//
// Unknown keys are ignored and the first occurrence of a key wins. A
// missing or empty e, or an invalid escape, yields ir.ErrMalformedSelector.
func Decode(s string) (ir.Selector, error) {
	var sel ir.Selector
	seen := make(map[string]bool, 3)

	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		key, raw, _ := strings.Cut(pair, "=")
		if seen[key] {
			continue
		}
		value, err := url.PathUnescape(raw)
		if err != nil {
			return ir.Selector{}, fmt.Errorf("%w: key %q: %v", ir.ErrMalformedSelector, key, err)
		}

		switch key {
		case KeyExact:
			sel.Exact = value
		case KeyPrefix:
			sel.Prefix = value
		case KeySuffix:
			sel.Suffix = value
		default:
			continue
		}
		seen[key] = true
	}

	if !seen[KeyExact] {
		return ir.Selector{}, fmt.Errorf("%w: missing %q", ir.ErrMalformedSelector, KeyExact)
	}
	if err := sel.Validate(); err != nil {
		return ir.Selector{}, err
	}
	return sel, nil
}

func writePair(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(Escape(value))
}

// Escape percent-encodes s for one wire component.
func Escape(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isLiteral(r) {
			b.WriteRune(r)
			continue
		}
		var buf [4]byte
		n := utf8.EncodeRune(buf[:], r)
		for _, c := range buf[:n] {
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0F])
		}
	}
	return b.String()
}

// isLiteral reports whether r is written unescaped.
func isLiteral(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return true
	case strings.ContainsRune("-_.!~*'()", r):
		return true
	case r > unicode.MaxASCII:
		return unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han)
	}
	return false
}
