// File: internal/services/ai/catalog.go
package ai

import "strings"

// modelEntry carries the canonical upstream id and per-million-token pricing
// used for cost estimates.
type modelEntry struct {
	ID               string
	InputPerMillion  float64
	OutputPerMillion float64
}

// ModelCatalog resolves friendly model names to canonical provider ids and
// estimates request cost from token usage.
type ModelCatalog struct {
	defaultModel string
	entries      map[string]modelEntry
	logger       Logger
}

func NewModelCatalog(defaultModel string, logger Logger) *ModelCatalog {
	return &ModelCatalog{
		defaultModel: defaultModel,
		logger:       logger,
		entries: map[string]modelEntry{
			"gemini-2.5-flash": {ID: "google/gemini-2.5-flash", InputPerMillion: 0.30, OutputPerMillion: 2.50},
			"gemini-2.5-pro":   {ID: "google/gemini-2.5-pro", InputPerMillion: 1.25, OutputPerMillion: 10.00},
			"gpt-4o":           {ID: "openai/gpt-4o", InputPerMillion: 2.50, OutputPerMillion: 10.00},
			"gpt-4o-mini":      {ID: "openai/gpt-4o-mini", InputPerMillion: 0.15, OutputPerMillion: 0.60},
			"claude-sonnet-4":  {ID: "anthropic/claude-sonnet-4", InputPerMillion: 3.00, OutputPerMillion: 15.00},
			"llama-3.3-70b":    {ID: "meta-llama/llama-3.3-70b-instruct", InputPerMillion: 0.12, OutputPerMillion: 0.30},
			"deepseek-v3":      {ID: "deepseek/deepseek-chat", InputPerMillion: 0.27, OutputPerMillion: 1.10},
		},
	}
}

// Resolve maps a requested model name to its canonical upstream id. Names
// already containing a provider prefix ("/") pass through unchanged; unknown
// names fall back to the default model.
func (c *ModelCatalog) Resolve(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return c.defaultModel
	}
	if strings.Contains(requested, "/") {
		return requested
	}
	if entry, ok := c.entries[strings.ToLower(requested)]; ok {
		return entry.ID
	}
	c.logger.Warn("Unknown model requested, using default",
		"requested", requested,
		"default", c.defaultModel)
	return c.defaultModel
}

// EstimateCost returns the estimated USD cost for a request against the given
// canonical model id. Unknown models cost zero.
func (c *ModelCatalog) EstimateCost(modelID string, promptTokens, completionTokens int) float64 {
	for _, entry := range c.entries {
		if entry.ID == modelID {
			return float64(promptTokens)*entry.InputPerMillion/1_000_000 +
				float64(completionTokens)*entry.OutputPerMillion/1_000_000
		}
	}
	return 0
}
