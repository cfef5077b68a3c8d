// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

package xai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChatRequestEmptyMessages(t *testing.T) {
	_, err := BuildChatRequest(DefaultRequestOptions(), nil, "grok-3-latest")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidArgument, kind)
}

func TestBuildChatRequestSimpleText(t *testing.T) {
	opts := DefaultRequestOptions()
	msgs := []Message{{Role: RoleUser, Content: "Say hi.", HasContent: true}}

	body, err := BuildChatRequest(opts, msgs, "grok-3-latest")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, "grok-3-latest", decoded["model"])
	assert.NotContains(t, decoded, "temperature")
	assert.NotContains(t, decoded, "max_tokens")
	assert.NotContains(t, decoded, "presence_penalty")
	assert.NotContains(t, decoded, "frequency_penalty")
	assert.NotContains(t, decoded, "stop")
	assert.NotContains(t, decoded, "user")
}

func TestBuildChatRequestNeverSerializesExcludedFields(t *testing.T) {
	opts := RequestOptions{
		Temperature:      -1,
		TopP:             -1,
		PresencePenalty:  0.5,
		FrequencyPenalty: 0.5,
		Stop:             []string{"END"},
		User:             "user-123",
	}
	msgs := []Message{{Role: RoleUser, Content: "hi", HasContent: true}}

	body, err := BuildChatRequest(opts, msgs, "grok-3-latest")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.NotContains(t, decoded, "presence_penalty")
	assert.NotContains(t, decoded, "frequency_penalty")
	assert.NotContains(t, decoded, "stop")
	assert.NotContains(t, decoded, "user")
}

func TestBuildChatRequestImagesRewriteContent(t *testing.T) {
	opts := DefaultRequestOptions()
	msgs := []Message{{
		Role:       RoleUser,
		Content:    "what is this?",
		HasContent: true,
		Images: []ImageRef{
			{URL: "https://example.com/cat.png", Detail: ImageDetailHigh},
		},
	}}

	body, err := BuildChatRequest(opts, msgs, "grok-2-vision")
	require.NoError(t, err)

	var decoded struct {
		Messages []struct {
			Content []map[string]interface{} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded.Messages, 1)
	parts := decoded.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0]["type"])
	assert.Equal(t, "image_url", parts[1]["type"])
}

func TestBuildChatRequestToolCallsAndStreaming(t *testing.T) {
	opts := DefaultRequestOptions()
	opts.Stream = true
	msgs := []Message{
		{Role: RoleUser, Content: "what's the weather", HasContent: true},
		{
			Role: RoleAssistant,
			ToolCalls: []ToolCall{
				{ID: "call_1", Name: "get_weather", Arguments: `{"city":"SF"}`},
			},
		},
		{Role: RoleTool, ToolCallID: "call_1", Content: "72F", HasContent: true},
	}

	body, err := BuildChatRequest(opts, msgs, "grok-3-latest")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, true, decoded["stream"])
	so, ok := decoded["stream_options"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, so["include_usage"])
}

func TestBuildChatRequestRejectsInvalidToolMessage(t *testing.T) {
	msgs := []Message{{Role: RoleTool, Content: "result"}}
	_, err := BuildChatRequest(DefaultRequestOptions(), msgs, "grok-3-latest")
	require.Error(t, err)
}

func TestBuildChatRequestSearchSources(t *testing.T) {
	opts := DefaultRequestOptions()
	opts.Search = &SearchParams{
		Mode:            SearchOn,
		ReturnCitations: true,
		MaxResults:      5,
		Sources: []SearchSource{
			{Type: SourceWeb, Web: &WebSource{AllowedWebsites: []string{"example.com"}}},
			{
				Type: SourceX,
				X: &XSource{
					IncludedHandles:          []string{"xai"},
					MinFavorites:             10,
					MinViews:                 100,
					EnableImageUnderstanding: true,
					EnableVideoUnderstanding: true,
				},
			},
			{Type: SourceRSS, RSS: &RSSSource{FeedURL: "https://example.com/feed.xml"}},
		},
	}
	msgs := []Message{{Role: RoleUser, Content: "news please", HasContent: true}}

	body, err := BuildChatRequest(opts, msgs, "grok-3-latest")
	require.NoError(t, err)

	var decoded struct {
		Search struct {
			Mode            string                   `json:"mode"`
			ReturnCitations bool                     `json:"return_citations"`
			MaxResults      int                      `json:"max_results"`
			Sources         []map[string]interface{} `json:"sources"`
		} `json:"search"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "on", decoded.Search.Mode)
	assert.True(t, decoded.Search.ReturnCitations)
	assert.Equal(t, 5, decoded.Search.MaxResults)
	require.Len(t, decoded.Search.Sources, 3)

	web := decoded.Search.Sources[0]
	assert.Equal(t, []interface{}{"example.com"}, web["allowed_websites"])

	x := decoded.Search.Sources[1]
	assert.Equal(t, []interface{}{"xai"}, x["included_x_handles"])
	assert.Equal(t, float64(10), x["post_favorite_count_min"])
	assert.Equal(t, float64(100), x["post_view_count_min"])
	assert.Equal(t, true, x["enable_image_understanding"])
	assert.Equal(t, true, x["enable_video_understanding"])

	rss := decoded.Search.Sources[2]
	assert.Equal(t, []interface{}{"https://example.com/feed.xml"}, rss["rss_links"])
}

func TestBuildChatRequestSearchOffOmitted(t *testing.T) {
	opts := DefaultRequestOptions()
	opts.Search = &SearchParams{Mode: SearchOff}
	msgs := []Message{{Role: RoleUser, Content: "hi", HasContent: true}}

	body, err := BuildChatRequest(opts, msgs, "grok-3-latest")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.NotContains(t, decoded, "search")
}
