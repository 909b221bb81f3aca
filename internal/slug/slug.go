// Package slug turns display names into URL-safe identifiers and resolves
// collisions by appending numeric suffixes.
package slug

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength bounds the normalized base so suffixed slugs stay within a varchar(255).
	MaxLength = 200
	// MaxSuffix bounds the collision search.
	MaxSuffix = 10000
)

var ErrExhausted = errors.New("slug: no free suffix")

var ligatures = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "ae", "œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o", "đ", "d", "Đ", "d", "ł", "l", "Ł", "l",
	"@", " at ",
)

// Make normalizes a name into a lowercase ASCII slug: accents are stripped and
// every run of other characters becomes a single dash.
func Make(name string) string {
	folded := ligatures.Replace(name)
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), folded)
	if err != nil {
		stripped = folded
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingDash := false
	for _, r := range strings.ToLower(stripped) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	out := b.String()
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// Valid reports whether s is already in normalized form.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}

// Resolve returns base when it is free, otherwise the first of base-1, base-2, ...
// for which taken reports false.
func Resolve(base string, taken func(candidate string) bool) (string, error) {
	if !taken(base) {
		return base, nil
	}
	for n := 1; n <= MaxSuffix; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !taken(candidate) {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}

// ResolveAgainst is Resolve over a fixed set of slugs already in use.
func ResolveAgainst(base string, existing []string) (string, error) {
	set := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		set[s] = struct{}{}
	}
	return Resolve(base, func(candidate string) bool {
		_, ok := set[candidate]
		return ok
	})
}
