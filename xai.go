// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package xai is the client runtime for the xAI Grok chat-completion HTTP
// API: synchronous and streaming chat completions, function calling,
// vision, search grounding, image generation, and token counting. The
// realtime voice WebSocket API is implemented by the sibling voice package.
package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	validator "github.com/go-playground/validator/v10"

	"github.com/xai-go/xai-sdk/internal/bufferpool"
	"github.com/xai-go/xai-sdk/internal/logging"
	"github.com/xai-go/xai-sdk/internal/modelcatalog"
	"github.com/xai-go/xai-sdk/internal/sse"
	"github.com/xai-go/xai-sdk/internal/transport"
)

const (
	// DefaultBaseURL is the production xAI API endpoint.
	DefaultBaseURL = "https://api.x.ai/v1"
	// DefaultModel is used when neither Config.DefaultModel nor a per-call
	// RequestOptions.Model is set.
	DefaultModel = "grok-3-latest"

	defaultTimeoutMillis = 60000
	defaultMaxRetries    = 3
	defaultMaxTokens     = 1024
	defaultTemperature   = 1.0

	scratchBufferCount    = 4
	scratchBufferCapacity = 4 * 1024
)

// Config is the immutable-after-construction Client configuration (§3).
type Config struct {
	APIKey       string `validate:"required"`
	BaseURL      string
	DefaultModel string
	TimeoutMillis int
	MaxRetries    int
	MaxTokens     int
	Temperature   float64

	Logger logging.Logger
}

// withDefaults returns a copy of cfg with every zero-valued tunable filled
// in from §6's documented defaults.
func (cfg Config) withDefaults() Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.TimeoutMillis == 0 {
		cfg.TimeoutMillis = defaultTimeoutMillis
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	return cfg
}

// Client is the Chat Client façade wiring the Buffer Pool, HTTP Transport,
// SSE Tokenizer, and JSON Codec components together. A Client is safe for
// concurrent use by multiple goroutines; its public methods take no
// client-wide lock, so concurrent calls run in parallel through the shared
// transport rather than one at a time.
type Client struct {
	cfg       Config
	logger    logging.Logger
	transport *transport.Transport
	scratch   *bufferpool.Pool
}

// NewClient validates cfg and constructs a Client. An empty APIKey returns
// an InvalidArgument error.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, NewError(KindInvalidArgument, "invalid client configuration", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	tr := transport.New(transport.Config{
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.APIKey,
		TimeoutMillis: cfg.TimeoutMillis,
		Logger:        logger,
	})

	return &Client{
		cfg:       cfg,
		logger:    logger,
		transport: tr,
		scratch:   bufferpool.New(scratchBufferCount, scratchBufferCapacity),
	}, nil
}

// Close releases resources held by the client. It is idempotent.
func (c *Client) Close() error {
	return c.logger.Sync()
}

func (c *Client) resolveOptions(opts RequestOptions) RequestOptions {
	if opts.Model == "" {
		opts.Model = c.cfg.DefaultModel
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = c.cfg.MaxTokens
	}
	if opts.Temperature < 0 {
		opts.Temperature = c.cfg.Temperature
	}
	return opts
}

// CreateChatCompletion performs a synchronous POST to /chat/completions.
func (c *Client) CreateChatCompletion(ctx context.Context, messages []Message, opts RequestOptions) (*Response, error) {
	opts = c.resolveOptions(opts)
	opts.Stream = false

	body, err := BuildChatRequest(opts, messages, c.cfg.DefaultModel)
	if err != nil {
		return nil, err
	}

	respBody, err := c.transport.Post(ctx, "/chat/completions", body)
	if err != nil {
		return nil, translateTransportErr(err)
	}
	return ParseChatResponse(respBody)
}

// CreateResponse performs a synchronous POST to /responses, used for
// server-side agentic tool execution. The request body and response
// envelope share the same shape as CreateChatCompletion (§6).
func (c *Client) CreateResponse(ctx context.Context, messages []Message, opts RequestOptions) (*Response, error) {
	opts = c.resolveOptions(opts)
	opts.Stream = false

	body, err := BuildChatRequest(opts, messages, c.cfg.DefaultModel)
	if err != nil {
		return nil, err
	}

	respBody, err := c.transport.Post(ctx, "/responses", body)
	if err != nil {
		return nil, translateTransportErr(err)
	}
	return ParseChatResponse(respBody)
}

// StreamCallback receives each incremental content delta. It is invoked with
// (delta, false) for ordinary content fragments and exactly once with
// ("", true) to signal end of stream, in the exact order events were
// received (§5).
type StreamCallback func(delta string, done bool)

// CreateChatCompletionStream performs a streaming POST to /chat/completions.
// callback is invoked on the calling goroutine's transport read path; it
// must not itself call back into this Client to avoid head-of-line
// blocking (§5).
func (c *Client) CreateChatCompletionStream(ctx context.Context, messages []Message, opts RequestOptions, callback StreamCallback) error {
	opts = c.resolveOptions(opts)
	opts.Stream = true

	body, err := BuildChatRequest(opts, messages, c.cfg.DefaultModel)
	if err != nil {
		return err
	}

	var terminated bool
	tokenizer := sse.New(func(data []byte, done bool) {
		if terminated {
			return
		}
		if done {
			terminated = true
			callback("", true)
			return
		}
		delta, end, err := ParseStreamChunk(data)
		if err != nil {
			c.logger.Errorf("xai: stream chunk parse failed: %v", err)
			return
		}
		if delta != nil && delta.Content != "" {
			callback(delta.Content, false)
		}
		if end && !terminated {
			terminated = true
			callback("", true)
		}
	}, c.logger)

	if err := c.transport.PostStream(ctx, "/chat/completions", body, tokenizer); err != nil {
		return translateTransportErr(err)
	}
	if !terminated {
		callback("", true)
	}
	return nil
}

// GenerateImages performs a synchronous POST to /images/generations.
func (c *Client) GenerateImages(ctx context.Context, req ImageGenerationRequest) (*ImageGenerationResponse, error) {
	if req.N <= 0 {
		req.N = 1
	}
	if req.N > 10 {
		return nil, NewError(KindInvalidArgument, "n must be in [1,10]", nil)
	}
	if req.Model == "" {
		req.Model = c.cfg.DefaultModel
	}
	if req.ResponseFormat == "" {
		req.ResponseFormat = ImageFormatURL
	}

	wireReq := struct {
		Model          string `json:"model"`
		Prompt         string `json:"prompt"`
		N              int    `json:"n"`
		ResponseFormat string `json:"response_format"`
	}{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              req.N,
		ResponseFormat: string(req.ResponseFormat),
	}

	body, err := c.marshalSmallJSON(wireReq)
	if err != nil {
		return nil, NewError(KindInvalidArgument, "encoding image generation request", err)
	}

	respBody, err := c.transport.Post(ctx, "/images/generations", body)
	if err != nil {
		return nil, translateTransportErr(err)
	}

	var env struct {
		Created int64 `json:"created"`
		Data    []struct {
			URL           string `json:"url"`
			B64JSON       string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := unmarshalJSON(respBody, &env); err != nil {
		return nil, NewError(KindParseFailed, "decoding image generation response", err)
	}

	out := &ImageGenerationResponse{Created: env.Created}
	for _, d := range env.Data {
		out.Data = append(out.Data, GeneratedImage{URL: d.URL, B64JSON: d.B64JSON, RevisedPrompt: d.RevisedPrompt})
	}
	return out, nil
}

// CountTokens calls /tokenize-text for an authoritative server-side count.
// For a fast, offline estimate before making a round trip, see the
// tokencount package.
func (c *Client) CountTokens(ctx context.Context, text string, model string) (int, error) {
	if model == "" {
		model = c.cfg.DefaultModel
	}
	wireReq := struct {
		Text  string `json:"text"`
		Model string `json:"model"`
	}{Text: text, Model: model}

	body, err := c.marshalSmallJSON(wireReq)
	if err != nil {
		return 0, NewError(KindInvalidArgument, "encoding tokenize-text request", err)
	}

	respBody, err := c.transport.Post(ctx, "/tokenize-text", body)
	if err != nil {
		return 0, translateTransportErr(err)
	}

	var env struct {
		TokenCount int `json:"token_count"`
	}
	if err := unmarshalJSON(respBody, &env); err != nil {
		return 0, NewError(KindParseFailed, "decoding tokenize-text response", err)
	}
	return env.TokenCount, nil
}

// ListModels calls GET /models. For the SDK's built-in static
// capability table, see ModelCapabilities.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	respBody, err := c.transport.Get(ctx, "/models")
	if err != nil {
		return nil, translateTransportErr(err)
	}
	var env struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := unmarshalJSON(respBody, &env); err != nil {
		return nil, NewError(KindParseFailed, "decoding models response", err)
	}
	ids := make([]string, 0, len(env.Data))
	for _, m := range env.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// ModelInfo describes a Grok model's context window and feature support, as
// carried by the SDK's static model-capability table (§6).
type ModelInfo struct {
	ID                string
	Description       string
	MaxTokens         int
	SupportsVision    bool
	SupportsTools     bool
	SupportsReasoning bool
	SupportsSearch    bool
}

// ModelCapabilities looks up a model id in the SDK's built-in static
// capability table. It performs no network call; the table is a point-in-time
// snapshot and may lag the server's actual /models listing for newly
// released models.
func ModelCapabilities(id string) (ModelInfo, bool) {
	info, ok := modelcatalog.Lookup(id)
	if !ok {
		return ModelInfo{}, false
	}
	return ModelInfo{
		ID:                info.ID,
		Description:       info.Description,
		MaxTokens:         info.MaxTokens,
		SupportsVision:    info.SupportsVision,
		SupportsTools:     info.SupportsTools,
		SupportsReasoning: info.SupportsReasoning,
		SupportsSearch:    info.SupportsSearch,
	}, true
}

// marshalSmallJSON encodes v using a scratch buffer from the client's
// bufferpool when one is available, falling back to a fresh allocation on
// pool exhaustion (component A's contract: exhaustion is never fatal).
func (c *Client) marshalSmallJSON(v interface{}) ([]byte, error) {
	buf, ok := c.scratch.Acquire()
	if !ok {
		return json.Marshal(v)
	}
	defer c.scratch.Release(buf)

	bb := bytes.NewBuffer(buf.Data[:0])
	if err := json.NewEncoder(bb).Encode(v); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(bb.Bytes(), "\n")
	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func translateTransportErr(err error) error {
	te, ok := err.(*transport.Error)
	if !ok {
		return NewError(KindHTTPFailed, "transport error", err)
	}
	var kind Kind
	switch te.Kind {
	case transport.KindAuthFailed:
		kind = KindAuthFailed
	case transport.KindRateLimit:
		kind = KindRateLimit
	case transport.KindAPIError:
		kind = KindAPIError
	case transport.KindTimeout:
		kind = KindTimeout
	default:
		kind = KindHTTPFailed
	}
	msg := te.Message
	if te.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, te.StatusCode)
	}
	return NewError(kind, msg, te.Cause)
}
