package app

import (
	"os"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// RedactSecrets replaces known secret values with a placeholder. Transport
// errors embed the request URL, which carries the API key as a query
// parameter, so anything headed for a log or the transcript goes through
// here first. Only provided values and well-known env vars are replaced.
func RedactSecrets(input string, secrets ...string) string {
	if strings.TrimSpace(input) == "" {
		return input
	}

	known := append([]string{}, secrets...)
	known = append(known, os.Getenv("GEMINI_API_KEY"))

	out := input
	seen := make(map[string]bool)
	for _, s := range known {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = strings.ReplaceAll(out, s, redactedPlaceholder)
	}
	return out
}
