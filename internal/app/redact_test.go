package app

import (
	"strings"
	"testing"
)

func TestRedactSecretsReplacesProvidedValues(t *testing.T) {
	in := `Post "https://example.com/v1beta/models/m:streamGenerateContent?alt=sse&key=sk-abc123": dial tcp: timeout`
	out := RedactSecrets(in, "sk-abc123")
	if strings.Contains(out, "sk-abc123") {
		t.Fatalf("key survived redaction: %q", out)
	}
	if !strings.Contains(out, redactedPlaceholder) {
		t.Fatalf("placeholder missing: %q", out)
	}
}

func TestRedactSecretsUsesEnvKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key-9")
	out := RedactSecrets("error for key=env-key-9 here")
	if strings.Contains(out, "env-key-9") {
		t.Fatalf("env key survived: %q", out)
	}
}

func TestRedactSecretsIgnoresBlankSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	in := "plain error, nothing secret"
	if out := RedactSecrets(in, "", "   "); out != in {
		t.Fatalf("input mangled: %q", out)
	}
}
