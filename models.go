// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

package xai

import "encoding/json"

// Role identifies the originator of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ImageDetail is a hint for how much the model should attend to an image.
type ImageDetail string

const (
	ImageDetailAuto ImageDetail = "auto"
	ImageDetailLow  ImageDetail = "low"
	ImageDetailHigh ImageDetail = "high"
)

// ImageRef is a single image attachment on a user Message, either a remote URL
// or raw bytes the caller owns. BuildChatRequest serializes only URL and
// Detail; Data is not sent on the wire.
type ImageRef struct {
	URL    string
	Data   []byte
	Detail ImageDetail
}

// ToolCall is a model-emitted request to run a named function. Arguments is
// the raw JSON-encoded argument string; this SDK never parses it — the
// caller dispatches by Name and decodes Arguments itself.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one turn of a conversation.
//
// Invariant: if Role == RoleTool, ToolCallID and Content must both be set.
// Invariant: if Images is non-empty, Role must be RoleUser.
type Message struct {
	Role       Role
	Content    string
	HasContent bool // distinguishes "" from absent content (assistant tool-only turns)
	Name       string
	ToolCallID string
	Images     []ImageRef
	ToolCalls  []ToolCall
}

// Validate checks the structural invariants §3 places on a Message.
func (m Message) Validate() error {
	if m.Role == RoleTool && (m.ToolCallID == "" || !m.HasContent) {
		return NewError(KindInvalidArgument, "tool message requires tool_call_id and content", nil)
	}
	if len(m.Images) > 0 && m.Role != RoleUser {
		return NewError(KindInvalidArgument, "images may only be attached to user messages", nil)
	}
	return nil
}

// ToolDefinition describes one callable function. Parameters is the
// caller-supplied JSON schema for its parameters, embedded verbatim (not
// stringified) into the wire request.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolChoice selects how the model may invoke tools.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// SearchMode controls whether server-side grounding/search is used.
type SearchMode string

const (
	SearchOff  SearchMode = "off"
	SearchAuto SearchMode = "auto"
	SearchOn   SearchMode = "on"
)

// WebSource restricts grounding to (or excludes) specific web domains.
type WebSource struct {
	AllowedWebsites  []string
	ExcludedWebsites []string
	SafeSearch       bool
}

// NewsSource restricts grounding to news results.
type NewsSource struct {
	Country          string
	ExcludedWebsites []string
	SafeSearch       bool
}

// XSource restricts grounding to X (Twitter) posts.
type XSource struct {
	IncludedHandles      []string
	ExcludedHandles      []string
	MinFavorites         int
	MinViews             int
	EnableImageUnderstanding bool
	EnableVideoUnderstanding bool
}

// RSSSource restricts grounding to a single RSS feed.
type RSSSource struct {
	FeedURL string
}

// SearchSource is a tagged variant; exactly one of the embedded pointers
// should be non-nil, matching its Type.
type SearchSource struct {
	Type SearchSourceType
	Web  *WebSource
	News *NewsSource
	X    *XSource
	RSS  *RSSSource
}

type SearchSourceType string

const (
	SourceWeb  SearchSourceType = "web"
	SourceNews SearchSourceType = "news"
	SourceX    SearchSourceType = "x"
	SourceRSS  SearchSourceType = "rss"
)

// SearchParams configures server-side grounding.
type SearchParams struct {
	Mode             SearchMode
	ReturnCitations  bool
	FromDate         string
	ToDate           string
	MaxResults       int
	Sources          []SearchSource
}

// RequestOptions carries per-call overrides on top of Client defaults.
//
// Temperature < 0 and MaxTokens == 0 mean "use the client default".
// PresencePenalty, FrequencyPenalty, Stop, and User exist for API symmetry
// with other chat-completion SDKs but are deliberately never serialized to
// the wire: the upstream service rejects them.
type RequestOptions struct {
	Model             string
	Temperature       float64
	MaxTokens         int
	Stream            bool
	TopP              float64
	ReasoningEffort   string
	ParallelToolCalls bool
	Tools             []ToolDefinition
	ToolChoice        ToolChoice
	Search            *SearchParams

	PresencePenalty  float64
	FrequencyPenalty float64
	Stop             []string
	User             string
}

// DefaultRequestOptions returns options with the "use client default" sentinels set.
func DefaultRequestOptions() RequestOptions {
	return RequestOptions{Temperature: -1, TopP: -1}
}

// CitationSourceType tags a Citation's origin.
type CitationSourceType string

const (
	CitationSourceURL  CitationSourceType = "url"
	CitationSourceWeb  CitationSourceType = "web"
	CitationSourceNews CitationSourceType = "news"
	CitationSourceX    CitationSourceType = "x"
	CitationSourceRSS  CitationSourceType = "rss"
)

// Citation is a single grounding source attached to a Response. Title,
// Snippet, Author, and PublishedDate are reserved and only populated when
// the server supplies them (the forward-compatible object form).
type Citation struct {
	URL           string
	SourceType    CitationSourceType
	Title         string
	Snippet       string
	Author        string
	PublishedDate string
}

// UnmarshalJSON accepts either a bare URL string (current server contract)
// or a richer object (forward-compatible path).
func (c *Citation) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		c.URL = asString
		c.SourceType = CitationSourceURL
		return nil
	}

	var obj struct {
		URL           string `json:"url"`
		SourceType    string `json:"source_type"`
		Title         string `json:"title"`
		Snippet       string `json:"snippet"`
		Author        string `json:"author"`
		PublishedDate string `json:"published_date"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.URL = obj.URL
	c.SourceType = CitationSourceType(obj.SourceType)
	if c.SourceType == "" {
		c.SourceType = CitationSourceURL
	}
	c.Title = obj.Title
	c.Snippet = obj.Snippet
	c.Author = obj.Author
	c.PublishedDate = obj.PublishedDate
	return nil
}

// Usage is the token-usage triple the server reports for a completed call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the owned result of a chat call. Unlike the C original this
// SDK is distilled from, there is no manual free — Response is a plain Go
// value and its lifetime is managed by the garbage collector.
type Response struct {
	Content          string
	HasContent       bool
	ReasoningContent string
	Model            string
	FinishReason     string
	Usage            Usage
	ToolCalls        []ToolCall
	Citations        []Citation
}

// StreamDelta is one incremental content fragment from a streaming call.
type StreamDelta struct {
	Content string
}

// ImageResponseFormat selects how GenerateImages returns generated images.
type ImageResponseFormat string

const (
	ImageFormatURL    ImageResponseFormat = "url"
	ImageFormatB64JSON ImageResponseFormat = "b64_json"
)

// ImageGenerationRequest parameterizes a text-to-image call.
type ImageGenerationRequest struct {
	Prompt         string
	Model          string
	N              int
	ResponseFormat ImageResponseFormat
}

// GeneratedImage is one image returned by GenerateImages.
type GeneratedImage struct {
	URL            string
	B64JSON        string
	RevisedPrompt  string
}

// ImageGenerationResponse is the full result of a GenerateImages call.
type ImageGenerationResponse struct {
	Created int64
	Data    []GeneratedImage
}
