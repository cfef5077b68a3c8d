// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

package xai

import (
	"encoding/json"
)

// wireMessage is the JSON shape of one entry in the "messages" array.
type wireMessage struct {
	Role       Role            `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall  `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolCallFunc `json:"function"`
}

type wireToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *wireImageURL   `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type wireToolDefinition struct {
	Type     string                 `json:"type"`
	Function wireToolDefinitionFunc `json:"function"`
}

type wireToolDefinitionFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type wireSearchSource struct {
	Type SearchSourceType `json:"type"`

	AllowedWebsites  []string `json:"allowed_websites,omitempty"`
	ExcludedWebsites []string `json:"excluded_websites,omitempty"`
	SafeSearch       *bool    `json:"safe_search,omitempty"`

	Country string `json:"country,omitempty"`

	IncludedHandles          []string `json:"included_x_handles,omitempty"`
	ExcludedHandles          []string `json:"excluded_x_handles,omitempty"`
	MinFavorites             int      `json:"post_favorite_count_min,omitempty"`
	MinViews                 int      `json:"post_view_count_min,omitempty"`
	EnableImageUnderstanding *bool    `json:"enable_image_understanding,omitempty"`
	EnableVideoUnderstanding *bool    `json:"enable_video_understanding,omitempty"`

	Links []string `json:"rss_links,omitempty"`
}

type wireSearch struct {
	Mode            string             `json:"mode"`
	ReturnCitations *bool              `json:"return_citations,omitempty"`
	FromDate        string             `json:"from_date,omitempty"`
	ToDate          string             `json:"to_date,omitempty"`
	MaxResults      int                `json:"max_results,omitempty"`
	Sources         []wireSearchSource `json:"sources,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatRequest is the top-level wire body for /chat/completions and /responses.
type chatRequest struct {
	Model             string          `json:"model"`
	Messages          []wireMessage   `json:"messages"`
	Temperature       *float64        `json:"temperature,omitempty"`
	MaxTokens         *int            `json:"max_tokens,omitempty"`
	TopP              *float64        `json:"top_p,omitempty"`
	Stream            bool            `json:"stream,omitempty"`
	StreamOptions     *streamOptions  `json:"stream_options,omitempty"`
	ReasoningEffort   string          `json:"reasoning_effort,omitempty"`
	ParallelToolCalls *bool           `json:"parallel_tool_calls,omitempty"`
	Tools             []wireToolDefinition `json:"tools,omitempty"`
	ToolChoice        string          `json:"tool_choice,omitempty"`
	Search            *wireSearch     `json:"search,omitempty"`
}

// BuildChatRequest serializes messages and opts into a wire-format JSON body.
// defaultModel is used when opts.Model is empty. It never serializes
// PresencePenalty, FrequencyPenalty, Stop, or User — the upstream service
// rejects those fields, per §4.D.
func BuildChatRequest(opts RequestOptions, messages []Message, defaultModel string) ([]byte, error) {
	if len(messages) == 0 {
		return nil, NewError(KindInvalidArgument, "at least one message is required", nil)
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	req := chatRequest{Model: model}

	for _, m := range messages {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		wm, err := buildWireMessage(m)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, wm)
	}

	if opts.Temperature >= 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		mt := opts.MaxTokens
		req.MaxTokens = &mt
	}
	if opts.TopP >= 0 {
		tp := opts.TopP
		req.TopP = &tp
	}
	if opts.Stream {
		req.Stream = true
		req.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	if opts.ReasoningEffort != "" {
		req.ReasoningEffort = opts.ReasoningEffort
	}
	if opts.ParallelToolCalls {
		b := true
		req.ParallelToolCalls = &b
	}
	if opts.ToolChoice != "" {
		req.ToolChoice = string(opts.ToolChoice)
	}
	for _, td := range opts.Tools {
		req.Tools = append(req.Tools, wireToolDefinition{
			Type: "function",
			Function: wireToolDefinitionFunc{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}

	if opts.Search != nil && opts.Search.Mode != SearchOff {
		req.Search = buildWireSearch(*opts.Search)
	}

	return json.Marshal(req)
}

func buildWireMessage(m Message) (wireMessage, error) {
	wm := wireMessage{
		Role:       m.Role,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}

	for _, tc := range m.ToolCalls {
		wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: wireToolCallFunc{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}

	if len(m.Images) > 0 {
		parts := make([]wireContentPart, 0, len(m.Images)+1)
		if m.HasContent {
			parts = append(parts, wireContentPart{Type: "text", Text: m.Content})
		}
		for _, img := range m.Images {
			part := wireContentPart{Type: "image_url", ImageURL: &wireImageURL{URL: img.URL}}
			if img.Detail != "" {
				part.ImageURL.Detail = string(img.Detail)
			}
			parts = append(parts, part)
		}
		raw, err := json.Marshal(parts)
		if err != nil {
			return wireMessage{}, NewError(KindInvalidArgument, "encoding multi-modal content", err)
		}
		wm.Content = raw
		return wm, nil
	}

	if m.HasContent {
		raw, err := json.Marshal(m.Content)
		if err != nil {
			return wireMessage{}, NewError(KindInvalidArgument, "encoding message content", err)
		}
		wm.Content = raw
	}
	return wm, nil
}

func buildWireSearch(sp SearchParams) *wireSearch {
	ws := &wireSearch{
		Mode:       string(sp.Mode),
		FromDate:   sp.FromDate,
		ToDate:     sp.ToDate,
		MaxResults: sp.MaxResults,
	}
	if sp.ReturnCitations {
		b := true
		ws.ReturnCitations = &b
	}
	for _, src := range sp.Sources {
		ws.Sources = append(ws.Sources, buildWireSearchSource(src))
	}
	return ws
}

func buildWireSearchSource(src SearchSource) wireSearchSource {
	out := wireSearchSource{Type: src.Type}
	switch src.Type {
	case SourceWeb:
		if src.Web != nil {
			out.AllowedWebsites = src.Web.AllowedWebsites
			out.ExcludedWebsites = src.Web.ExcludedWebsites
			if src.Web.SafeSearch {
				b := true
				out.SafeSearch = &b
			}
		}
	case SourceNews:
		if src.News != nil {
			out.Country = src.News.Country
			out.ExcludedWebsites = src.News.ExcludedWebsites
			if src.News.SafeSearch {
				b := true
				out.SafeSearch = &b
			}
		}
	case SourceX:
		if src.X != nil {
			out.IncludedHandles = src.X.IncludedHandles
			out.ExcludedHandles = src.X.ExcludedHandles
			out.MinFavorites = src.X.MinFavorites
			out.MinViews = src.X.MinViews
			if src.X.EnableImageUnderstanding {
				b := true
				out.EnableImageUnderstanding = &b
			}
			if src.X.EnableVideoUnderstanding {
				b := true
				out.EnableVideoUnderstanding = &b
			}
		}
	case SourceRSS:
		if src.RSS != nil && src.RSS.FeedURL != "" {
			out.Links = []string{src.RSS.FeedURL}
		}
	}
	return out
}
