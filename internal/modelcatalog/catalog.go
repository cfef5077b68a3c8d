// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package modelcatalog is the SDK's static model-capability table (§6: "the
// core also carries a static model-capability table"), re-expressed as Go
// data from the xAI ESP-IDF component's MODEL_DATABASE table.
package modelcatalog

// Info describes one Grok model's capabilities.
type Info struct {
	ID                string
	Description       string
	MaxTokens         int
	SupportsVision    bool
	SupportsTools     bool
	SupportsReasoning bool
	SupportsSearch    bool
}

// Models is the static capability table, keyed by model id.
var Models = buildTable([]Info{
	{ID: "grok-4", Description: "Grok-4 full capability model", MaxTokens: 131072, SupportsTools: true, SupportsReasoning: true, SupportsSearch: true},
	{ID: "grok-4-latest", Description: "Auto-updated to latest grok-4", MaxTokens: 131072, SupportsTools: true, SupportsReasoning: true, SupportsSearch: true},
	{ID: "grok-4-0709", Description: "Grok-4 dated release (2024-07-09)", MaxTokens: 131072, SupportsTools: true, SupportsReasoning: true, SupportsSearch: true},
	{ID: "grok-4-fast-reasoning", Description: "Fast grok-4 with thinking capability", MaxTokens: 131072, SupportsTools: true, SupportsReasoning: true, SupportsSearch: true},
	{ID: "grok-4-fast-non-reasoning", Description: "Fast grok-4 without reasoning overhead", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-code-fast-1", Description: "Code-specialized fast model", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},

	{ID: "grok-3", Description: "Grok-3 current generation", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-3-latest", Description: "Auto-updated to latest grok-3", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-3-fast", Description: "Grok-3 with lower latency", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-3-fast-latest", Description: "Auto-updated grok-3-fast", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-3-mini", Description: "Efficient small grok-3 model", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-3-mini-latest", Description: "Auto-updated grok-3-mini", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-3-mini-fast", Description: "Smallest/fastest grok-3", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-3-mini-fast-latest", Description: "Auto-updated grok-3-mini-fast", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},

	{ID: "grok-2", Description: "Grok-2 previous generation", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-2-latest", Description: "Auto-updated grok-2", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-2-1212", Description: "Grok-2 dated release (2024-12-12)", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-2-vision", Description: "Grok-2 with vision capabilities", MaxTokens: 131072, SupportsVision: true, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-2-vision-latest", Description: "Auto-updated grok-2-vision", MaxTokens: 131072, SupportsVision: true, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-2-vision-1212", Description: "Grok-2-vision dated release (2024-12-12)", MaxTokens: 131072, SupportsVision: true, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-2-image", Description: "Grok-2 image model", MaxTokens: 131072, SupportsVision: true},
	{ID: "grok-2-image-latest", Description: "Auto-updated grok-2-image", MaxTokens: 131072, SupportsVision: true},
	{ID: "grok-2-image-1212", Description: "Grok-2-image dated release (2024-12-12)", MaxTokens: 131072, SupportsVision: true},

	{ID: "grok-beta", Description: "Legacy grok beta (128K context)", MaxTokens: 131072, SupportsTools: true, SupportsSearch: true},
	{ID: "grok-vision-beta", Description: "Legacy grok vision beta", MaxTokens: 8192, SupportsVision: true},
})

func buildTable(models []Info) map[string]Info {
	t := make(map[string]Info, len(models))
	for _, m := range models {
		t[m.ID] = m
	}
	return t
}

// Lookup returns the capability record for a model id.
func Lookup(id string) (Info, bool) {
	info, ok := Models[id]
	return info, ok
}
