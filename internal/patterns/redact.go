package patterns

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// knownSecretPatterns are compiled once at package init and applied by Redact
// after explicit tags.
var knownSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sk_live_[a-zA-Z0-9]+`),             // Stripe live keys
	regexp.MustCompile(`(?i)sk_test_[a-zA-Z0-9]+`),             // Stripe test keys
	regexp.MustCompile(`ghp_[a-zA-Z0-9]+`),                     // GitHub PATs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),                     // AWS access key IDs
	regexp.MustCompile(`xoxb-[a-zA-Z0-9-]+`),                   // Slack bot tokens
	regexp.MustCompile(`-----BEGIN (?:RSA )?PRIVATE KEY-----`), // Private keys
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+`), // JWT tokens
	regexp.MustCompile(`(?i)password\s*[:=]\s*["']?.+`),        // password = ...
	regexp.MustCompile(`(?i)secret\s*[:=]\s*["']?.+`),          // secret = ...
	regexp.MustCompile(`(?i)api[_-]?key\s*[:=]\s*["']?.+`),     // api_key = ...
}

// redactedTagRe matches explicit <redacted>...</redacted> pairs (including multiline).
var redactedTagRe = regexp.MustCompile(`(?s)<redacted>.*?</redacted>`)

const replacement = "[REDACTED]"

// Redact scrubs secrets from prompt or context text before it is published
// to a shared scope, in three layers:
//
//  1. Explicit <redacted>...</redacted> tags, replaced with [REDACTED] until
//     no pairs remain; orphaned opening/closing tags are then stripped.
//  2. Known secret shapes (API keys, tokens, passwords, …).
//  3. Caller-supplied extraPatterns (e.g. from LoadIgnoreFile).
func Redact(text string, extraPatterns []*regexp.Regexp) string {
	// Layer 1: explicit tags, looped until stable.
	for {
		next := redactedTagRe.ReplaceAllString(text, replacement)
		if next == text {
			break
		}
		text = next
	}
	// Strip any remaining orphaned tags.
	text = strings.ReplaceAll(text, "<redacted>", "")
	text = strings.ReplaceAll(text, "</redacted>", "")

	// Layer 2: known secret shapes.
	for _, re := range knownSecretPatterns {
		text = re.ReplaceAllString(text, replacement)
	}

	// Layer 3: caller-supplied patterns.
	for _, re := range extraPatterns {
		text = re.ReplaceAllString(text, replacement)
	}

	return text
}

// LoadIgnoreFile reads an ignore file (one regular expression per non-blank,
// non-comment line) and compiles each line.
// Returns nil (no error) if the file does not exist.
func LoadIgnoreFile(path string) ([]*regexp.Regexp, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var extra []*regexp.Regexp
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, err := regexp.Compile(line)
		if err != nil {
			return nil, err
		}
		extra = append(extra, re)
	}
	return extra, scanner.Err()
}
