// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package configsrc is an optional viper-based environment/dotenv loader for
// xai.Config and voice.VoiceConfig. It lives outside the core client: the
// client and the voice session never read the environment themselves, only
// the explicit struct fields a caller passes in (§6: "every tunable is an
// explicit field on a configuration structure — no hidden global state").
package configsrc

import (
	"fmt"
	"log"
	"os"

	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/xai-go/xai-sdk"
	"github.com/xai-go/xai-sdk/voice"
)

// fileConfig mirrors xai.Config and voice.VoiceConfig fields under a flat
// env/.env namespace, following the teacher's POSTGRES__HOST-style
// double-underscore nesting for the voice sub-struct.
type fileConfig struct {
	APIKey       string  `mapstructure:"api_key" validate:"required"`
	BaseURL      string  `mapstructure:"base_url"`
	DefaultModel string  `mapstructure:"default_model"`
	TimeoutMS    int     `mapstructure:"timeout_ms"`
	MaxRetries   int     `mapstructure:"max_retries"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float64 `mapstructure:"temperature"`

	Voice struct {
		URI                    string `mapstructure:"uri"`
		APIKey                 string `mapstructure:"api_key"`
		NetworkTimeoutMS       int    `mapstructure:"network_timeout_ms"`
		ReconnectTimeoutMS     int    `mapstructure:"reconnect_timeout_ms"`
		WSRxBufferSize         int    `mapstructure:"ws_rx_buffer_size"`
		MaxMessageSize         int    `mapstructure:"max_message_size"`
		PCMBufferBytes         int    `mapstructure:"pcm_buffer_bytes"`
		PreferLargeMemoryPool  bool   `mapstructure:"prefer_large_memory_pool"`
		QueueTurnBeforeReady   bool   `mapstructure:"queue_turn_before_ready"`
		SessionVoice           string `mapstructure:"session_voice"`
		SessionInstructions    string `mapstructure:"session_instructions"`
		SessionSampleRateHz    int    `mapstructure:"session_sample_rate_hz"`
		SessionServerVAD       bool   `mapstructure:"session_server_vad"`
	} `mapstructure:"voice"`
}

// Load reads XAI_-prefixed environment variables (voice keys nest as
// XAI_VOICE__*) and an optional .env file into a *viper.Viper, following the
// teacher's InitConfig structure:
// AddConfigPath, SetDefault, then ReadInConfig with AutomaticEnv as the
// fallback source.
func Load() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.SetEnvPrefix("XAI")
	v.AutomaticEnv()

	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")
	if path := os.Getenv("XAI_ENV_PATH"); path != "" {
		v.SetConfigFile(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Printf("configsrc: error reading config file: %v", err)
		}
	}
	return v, nil
}

// setDefaults registers every recognized key with viper, including the
// empty-string/zero-value ones with no real default. Unmarshal only pulls a
// key from the environment via AutomaticEnv if the key was already
// registered some other way (default, flag, or explicit Set) — an
// unregistered env var is invisible to Unmarshal even though Get would find
// it, per the teacher's own POSTGRES__AUTH__PASSWORD placeholder-default
// workaround.
func setDefaults(v *viper.Viper) {
	v.SetDefault("API_KEY", "")
	v.SetDefault("BASE_URL", xai.DefaultBaseURL)
	v.SetDefault("DEFAULT_MODEL", xai.DefaultModel)
	v.SetDefault("TIMEOUT_MS", 60000)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("MAX_TOKENS", 1024)
	v.SetDefault("TEMPERATURE", 1.0)

	v.SetDefault("VOICE__URI", "")
	v.SetDefault("VOICE__API_KEY", "")
	v.SetDefault("VOICE__NETWORK_TIMEOUT_MS", 30000)
	v.SetDefault("VOICE__RECONNECT_TIMEOUT_MS", 5000)
	v.SetDefault("VOICE__WS_RX_BUFFER_SIZE", 65536)
	v.SetDefault("VOICE__MAX_MESSAGE_SIZE", 65536)
	v.SetDefault("VOICE__PCM_BUFFER_BYTES", 65536)
	v.SetDefault("VOICE__PREFER_LARGE_MEMORY_POOL", false)
	v.SetDefault("VOICE__QUEUE_TURN_BEFORE_READY", false)
	v.SetDefault("VOICE__SESSION_VOICE", "")
	v.SetDefault("VOICE__SESSION_INSTRUCTIONS", "")
	v.SetDefault("VOICE__SESSION_SAMPLE_RATE_HZ", 24000)
	v.SetDefault("VOICE__SESSION_SERVER_VAD", false)
}

// ClientConfig unmarshals and validates a chat-client configuration from v.
func ClientConfig(v *viper.Viper) (xai.Config, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return xai.Config{}, fmt.Errorf("configsrc: unmarshal: %w", err)
	}
	if err := validator.New().Struct(&fc); err != nil {
		return xai.Config{}, fmt.Errorf("configsrc: validate: %w", err)
	}
	return xai.Config{
		APIKey:        fc.APIKey,
		BaseURL:       fc.BaseURL,
		DefaultModel:  fc.DefaultModel,
		TimeoutMillis: fc.TimeoutMS,
		MaxRetries:    fc.MaxRetries,
		MaxTokens:     fc.MaxTokens,
		Temperature:   fc.Temperature,
	}, nil
}

// VoiceSessionConfig unmarshals a realtime voice configuration from v. It
// falls back to the chat client's APIKey (api_key) when voice__api_key is
// unset, since most deployments use a single xAI key for both surfaces.
func VoiceSessionConfig(v *viper.Viper) (voice.VoiceConfig, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return voice.VoiceConfig{}, fmt.Errorf("configsrc: unmarshal: %w", err)
	}

	apiKey := fc.Voice.APIKey
	if apiKey == "" {
		apiKey = fc.APIKey
	}

	cfg := voice.VoiceConfig{
		URI:                    fc.Voice.URI,
		APIKey:                 apiKey,
		NetworkTimeoutMillis:   fc.Voice.NetworkTimeoutMS,
		ReconnectTimeoutMillis: fc.Voice.ReconnectTimeoutMS,
		WSRxBufferSize:         fc.Voice.WSRxBufferSize,
		MaxMessageSize:         fc.Voice.MaxMessageSize,
		PCMBufferBytes:         fc.Voice.PCMBufferBytes,
		PreferLargeMemoryPool:  fc.Voice.PreferLargeMemoryPool,
		QueueTurnBeforeReady:   fc.Voice.QueueTurnBeforeReady,
		Session: voice.SessionConfig{
			Voice:        fc.Voice.SessionVoice,
			Instructions: fc.Voice.SessionInstructions,
			SampleRateHz: fc.Voice.SessionSampleRateHz,
			ServerVAD:    fc.Voice.SessionServerVAD,
		},
	}
	if cfg.APIKey == "" {
		return voice.VoiceConfig{}, fmt.Errorf("configsrc: voice api_key (or api_key) is required")
	}
	return cfg, nil
}
