// Package patterns generates candidate strings from a small regex subset and
// scores them with an entropy-based secret detector, so detection rules can
// be tuned against a reproducible corpus before they gate real commits.
package patterns

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Detection defaults, shared by the CLI and the test runner.
const (
	DefaultMinLength        = 8
	DefaultEntropyThreshold = 3.5
)

const (
	digits    = "0123456789"
	wordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"
)

// Generate produces a string matching pattern, which uses a regex subset:
// literal characters, character classes like [a-zA-Z0-9], the escapes \d and
// \w, and quantifiers {n} or {n,m} after a class or escape.
func Generate(pattern string, rng *rand.Rand) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(pattern) {
		var chars string
		switch {
		case pattern[i] == '[':
			j := strings.IndexByte(pattern[i:], ']')
			if j < 0 {
				return "", fmt.Errorf("pattern %q: unclosed character class", pattern)
			}
			chars = expandCharset(pattern[i+1 : i+j])
			if chars == "" {
				return "", fmt.Errorf("pattern %q: empty character class", pattern)
			}
			i += j + 1
		case pattern[i] == '\\' && i+1 < len(pattern) && (pattern[i+1] == 'd' || pattern[i+1] == 'w'):
			if pattern[i+1] == 'd' {
				chars = digits
			} else {
				chars = wordChars
			}
			i += 2
		default:
			out.WriteByte(pattern[i])
			i++
			continue
		}

		count := 1
		if i < len(pattern) && pattern[i] == '{' {
			j := strings.IndexByte(pattern[i:], '}')
			if j < 0 {
				return "", fmt.Errorf("pattern %q: unclosed quantifier", pattern)
			}
			lo, hi, err := parseQuantifier(pattern[i+1 : i+j])
			if err != nil {
				return "", fmt.Errorf("pattern %q: %w", pattern, err)
			}
			count = lo + rng.Intn(hi-lo+1)
			i += j + 1
		}
		for n := 0; n < count; n++ {
			out.WriteByte(chars[rng.Intn(len(chars))])
		}
	}
	return out.String(), nil
}

// expandCharset expands a class body like "a-zA-Z0-9_" into the full set.
func expandCharset(spec string) string {
	var chars strings.Builder
	i := 0
	for i < len(spec) {
		if i+2 < len(spec) && spec[i+1] == '-' {
			for c := spec[i]; c <= spec[i+2]; c++ {
				chars.WriteByte(c)
			}
			i += 3
			continue
		}
		chars.WriteByte(spec[i])
		i++
	}
	return chars.String()
}

func parseQuantifier(body string) (lo, hi int, err error) {
	parts := strings.SplitN(body, ",", 2)
	if _, err = fmt.Sscanf(parts[0], "%d", &lo); err != nil {
		return 0, 0, fmt.Errorf("bad quantifier {%s}", body)
	}
	hi = lo
	if len(parts) == 2 {
		if _, err = fmt.Sscanf(parts[1], "%d", &hi); err != nil {
			return 0, 0, fmt.Errorf("bad quantifier {%s}", body)
		}
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("bad quantifier {%s}", body)
	}
	return lo, hi, nil
}

// Entropy returns the Shannon entropy of s in bits per character.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	var e float64
	for _, n := range counts {
		p := float64(n) / float64(total)
		e -= p * math.Log2(p)
	}
	return e
}

// ExceptionClass names the exclusion a string falls into, or "" when none
// applies. Identifiers, dotted config paths and slash paths are never flagged
// regardless of entropy.
func ExceptionClass(s string) string {
	if s == "" {
		return ""
	}
	switch {
	case matchesClass(s, isAlpha):
		return "all-alpha"
	case matchesClass(s, func(c byte) bool { return isLower(c) || c == '_' }):
		return "lower_snake"
	case matchesClass(s, func(c byte) bool { return isUpper(c) || c == '_' }):
		return "UPPER_SNAKE"
	case matchesClass(s, func(c byte) bool { return isLower(c) || c == '.' }):
		return "lower_dot"
	case matchesClass(s, func(c byte) bool { return isLower(c) || c == '/' }):
		return "lower_slash"
	}
	return ""
}

func matchesClass(s string, ok func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !ok(s[i]) {
			return false
		}
	}
	return true
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isAlpha(c byte) bool { return isLower(c) || isUpper(c) }

// Verdict is the outcome of checking one string.
type Verdict struct {
	Flagged   bool
	Entropy   float64
	Exception string // exclusion class, when one matched
	Reason    string
}

// Check decides whether s looks like a secret: long enough, no exclusion
// class, and entropy above the threshold.
func Check(s string, minLen int, threshold float64) Verdict {
	v := Verdict{
		Entropy:   Entropy(s),
		Exception: ExceptionClass(s),
	}
	switch {
	case len(s) < minLen:
		v.Reason = fmt.Sprintf("len=%d<%d", len(s), minLen)
	case v.Exception != "":
		v.Reason = v.Exception
	case v.Entropy > threshold:
		v.Flagged = true
		v.Reason = fmt.Sprintf("entropy=%.2f>%.2f", v.Entropy, threshold)
	default:
		v.Reason = fmt.Sprintf("entropy=%.2f<=%.2f", v.Entropy, threshold)
	}
	return v
}
