// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xai-go/xai-sdk"
)

func TestEstimateTextNonZero(t *testing.T) {
	n, err := EstimateText("The quick brown fox jumps over the lazy dog.", "grok-3-latest")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestEstimateTextEmptyIsZero(t *testing.T) {
	n, err := EstimateText("", "grok-3-latest")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEstimateMessagesCountsContentAndOverhead(t *testing.T) {
	messages := []xai.Message{
		{Role: xai.RoleUser, Content: "hello there", HasContent: true},
		{Role: xai.RoleAssistant, Content: "hi!", HasContent: true},
	}
	n, err := EstimateMessages(messages, "grok-3-latest")
	require.NoError(t, err)
	assert.Greater(t, n, 8) // at least the per-message overhead
}

func TestEstimateMessagesIncludesToolCallArguments(t *testing.T) {
	withTool := []xai.Message{
		{Role: xai.RoleAssistant, ToolCalls: []xai.ToolCall{{ID: "1", Name: "get_weather", Arguments: `{"city":"Tokyo"}`}}},
	}
	withoutTool := []xai.Message{
		{Role: xai.RoleAssistant},
	}
	withN, err := EstimateMessages(withTool, "grok-3-latest")
	require.NoError(t, err)
	withoutN, err := EstimateMessages(withoutTool, "grok-3-latest")
	require.NoError(t, err)
	assert.Greater(t, withN, withoutN)
}

func TestEstimateUnknownModelFallsBackToCl100kBase(t *testing.T) {
	n, err := EstimateText("grok models are not in tiktoken's model table", "grok-4-fast-reasoning")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}
