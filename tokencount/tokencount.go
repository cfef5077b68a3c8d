// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package tokencount provides a fast, offline, approximate token count for
// chat messages. Grok's exact tokenizer is not public, so this package
// estimates using the cl100k_base family of encodings via tiktoken-go — the
// same family OpenAI's GPT-3.5/GPT-4 models use. Use this to budget context
// before a round trip; use (*xai.Client).CountTokens for an authoritative
// server-side count.
package tokencount

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/xai-go/xai-sdk"
)

// fallbackEncoding is used whenever the requested model has no tiktoken
// mapping, which is always true for Grok model ids.
const fallbackEncoding = "cl100k_base"

// EstimateMessages returns an approximate token count for messages as they
// would be sent in a chat completion request. model currently only affects
// which encoding is selected for future tokenizer families; today every Grok
// model id falls back to cl100k_base.
func EstimateMessages(messages []xai.Message, model string) (int, error) {
	enc, err := encodingFor(model)
	if err != nil {
		return 0, fmt.Errorf("tokencount: resolving encoding: %w", err)
	}

	var total int
	for _, m := range messages {
		// Every message carries a small fixed overhead in the wire framing
		// (role, separators) beyond its literal text content.
		total += 4
		if m.HasContent {
			total += len(enc.Encode(m.Content, nil, nil))
		}
		for _, tc := range m.ToolCalls {
			total += len(enc.Encode(tc.Name, nil, nil))
			total += len(enc.Encode(tc.Arguments, nil, nil))
		}
		// Images contribute no text tokens to this estimate; the server's
		// vision token accounting is opaque and not modeled here.
	}
	return total, nil
}

// EstimateText returns an approximate token count for a single string.
func EstimateText(text string, model string) (int, error) {
	enc, err := encodingFor(model)
	if err != nil {
		return 0, fmt.Errorf("tokencount: resolving encoding: %w", err)
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	if model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return enc, nil
		}
	}
	return tiktoken.GetEncoding(fallbackEncoding)
}
