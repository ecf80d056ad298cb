package app

import "testing"

func TestResolveModel(t *testing.T) {
	cases := map[string]string{
		"gemini-3-flash-preview":  "gemini-3-flash-preview",
		"gemini-3-pro-preview":    "gemini-3-pro-preview",
		"gemini-2.5-flash":        "gemini-2.5-flash",
		"gpt-4o":                  DefaultModel,
		"claude-3-5-sonnet":       DefaultModel,
		"llama-3-1-405b":          DefaultModel,
		"deepseek-v3":             DefaultModel,
		"":                        DefaultModel,
		"  gemini-3-pro-preview ": "gemini-3-pro-preview",
	}
	for in, want := range cases {
		if got := ResolveModel(in); got != want {
			t.Fatalf("ResolveModel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSupportsThinking(t *testing.T) {
	for _, id := range []string{"gemini-3-flash-preview", "gemini-3-pro-preview", "gemini-2.5-flash"} {
		if !SupportsThinking(id) {
			t.Fatalf("%s should support thinking", id)
		}
	}
	for _, id := range []string{"gpt-4o", "claude-3-5-sonnet", "gemini-1.5-pro", ""} {
		if SupportsThinking(id) {
			t.Fatalf("%s should not support thinking", id)
		}
	}
}

func TestNextModelCyclesCatalog(t *testing.T) {
	seen := map[string]bool{}
	id := Models[0].ID
	for range Models {
		if seen[id] {
			t.Fatalf("cycle revisited %q early", id)
		}
		seen[id] = true
		id = NextModel(id)
	}
	if id != Models[0].ID {
		t.Fatalf("cycle did not wrap: ended at %q", id)
	}
	if got := NextModel("unknown-model"); got != Models[0].ID {
		t.Fatalf("NextModel(unknown) = %q, want first entry", got)
	}
}

func TestDisplayModelFallsBack(t *testing.T) {
	if m := DisplayModel("gpt-4o"); m.ID != "gpt-4o" {
		t.Fatalf("known id not found: %+v", m)
	}
	if m := DisplayModel("made-up"); m.ID != Models[0].ID {
		t.Fatalf("fallback = %+v", m)
	}
}
