// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

package xai

import "encoding/json"

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponseToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireResponseMessage struct {
	Content          *string                `json:"content"`
	ReasoningContent *string                `json:"reasoning_content"`
	ToolCalls        []wireResponseToolCall `json:"tool_calls"`
}

type wireChoice struct {
	Message      wireResponseMessage `json:"message"`
	FinishReason *string             `json:"finish_reason"`
}

type wireAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type chatResponseEnvelope struct {
	Error   *wireAPIError `json:"error"`
	Model   string        `json:"model"`
	Choices []wireChoice  `json:"choices"`
	Usage   *wireUsage    `json:"usage"`
	Citations []Citation  `json:"citations"`
}

// ParseChatResponse parses a server envelope (success or error) into a
// Response, per §4.D. An error envelope is mapped through the error.type ->
// Kind table; choices == [] on a success envelope is ParseFailed.
func ParseChatResponse(body []byte) (*Response, error) {
	var env chatResponseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, NewError(KindParseFailed, "decoding chat response envelope", err)
	}

	if env.Error != nil {
		return nil, NewError(mapAPIErrorType(env.Error.Type), env.Error.Message, nil)
	}

	if len(env.Choices) == 0 {
		return nil, NewError(KindParseFailed, "response has no choices", nil)
	}

	choice := env.Choices[0]
	resp := &Response{Model: env.Model}

	if choice.Message.Content != nil {
		resp.Content = *choice.Message.Content
		resp.HasContent = true
	}
	if choice.Message.ReasoningContent != nil {
		resp.ReasoningContent = *choice.Message.ReasoningContent
	}
	if choice.FinishReason != nil {
		resp.FinishReason = *choice.FinishReason
	}

	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if env.Usage != nil {
		resp.Usage = Usage{
			PromptTokens:     env.Usage.PromptTokens,
			CompletionTokens: env.Usage.CompletionTokens,
			TotalTokens:      env.Usage.TotalTokens,
		}
	}

	resp.Citations = env.Citations

	return resp, nil
}

func mapAPIErrorType(t string) Kind {
	switch t {
	case "invalid_request_error":
		return KindInvalidArgument
	case "authentication_error":
		return KindAuthFailed
	case "rate_limit_error":
		return KindRateLimit
	default:
		return KindAPIError
	}
}

type wireStreamDelta struct {
	Content string `json:"content"`
}

type wireStreamChoice struct {
	Delta        wireStreamDelta `json:"delta"`
	FinishReason *string         `json:"finish_reason"`
}

type streamChunkEnvelope struct {
	Choices []wireStreamChoice `json:"choices"`
}

// ParseStreamChunk parses one dispatched SSE "data" payload. The returned
// bool is true when this chunk signals end-of-stream (a non-null
// finish_reason); the tokenizer layer separately signals end-of-stream for
// the literal "[DONE]" sentinel, which never reaches this function — see
// internal/sse. Tool-call deltas and other non-content deltas are out of
// scope for streaming in this revision and are silently ignored.
func ParseStreamChunk(data []byte) (*StreamDelta, bool, error) {
	var env streamChunkEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, NewError(KindParseFailed, "decoding stream chunk", err)
	}
	if len(env.Choices) == 0 {
		return nil, false, nil
	}
	choice := env.Choices[0]
	end := choice.FinishReason != nil
	if choice.Delta.Content == "" {
		return nil, end, nil
	}
	return &StreamDelta{Content: choice.Delta.Content}, end, nil
}
