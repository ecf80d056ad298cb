package app

import "strings"

// DefaultModel is the model every request falls back to when the selected id
// is not routable. The selector deliberately lists models we cannot reach;
// picking one of those is cosmetic and the call is made with DefaultModel
// instead, without surfacing an error.
const DefaultModel = "gemini-3-flash-preview"

type ModelInfo struct {
	ID          string
	Name        string
	Provider    string
	Description string
	Available   bool
}

// Models is the catalog shown in the model selector, in display order.
var Models = []ModelInfo{
	{ID: "gemini-3-flash-preview", Name: "Gemini 3 Flash", Provider: "Google", Description: "Fast answers for everyday questions", Available: true},
	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro", Provider: "Google", Description: "Deeper reasoning, slower responses", Available: true},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "OpenAI", Description: "Multimodal flagship", Available: false},
	{ID: "claude-3-5-sonnet", Name: "Claude 3.5 Sonnet", Provider: "Anthropic", Description: "Balanced quality and speed", Available: false},
	{ID: "llama-3-1-405b", Name: "Llama 3.1 405B", Provider: "Meta", Description: "Open-weights frontier model", Available: false},
	{ID: "deepseek-v3", Name: "DeepSeek V3", Provider: "DeepSeek", Description: "Efficient mixture-of-experts", Available: false},
}

// LookupModel finds a catalog entry by id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// DisplayModel returns the catalog entry for id, falling back to the first
// entry for unknown ids so the header always has something to show.
func DisplayModel(id string) ModelInfo {
	if m, ok := LookupModel(id); ok {
		return m
	}
	return Models[0]
}

// NextModel cycles to the id after the given one in catalog order.
func NextModel(id string) string {
	for i, m := range Models {
		if m.ID == id {
			return Models[(i+1)%len(Models)].ID
		}
	}
	return Models[0].ID
}

// ResolveModel maps the user's selection to the model id actually sent to the
// backend. Only Gemini ids are routable; everything else is substituted with
// DefaultModel.
func ResolveModel(id string) string {
	if strings.HasPrefix(strings.TrimSpace(id), "gemini") {
		return strings.TrimSpace(id)
	}
	return DefaultModel
}

// SupportsThinking reports whether the model family accepts a thinking
// budget. For other models the thinking toggle stays set in the UI but is
// not forwarded.
func SupportsThinking(id string) bool {
	m := strings.ToLower(strings.TrimSpace(id))
	return strings.Contains(m, "gemini-3") || strings.Contains(m, "gemini-2.5")
}
