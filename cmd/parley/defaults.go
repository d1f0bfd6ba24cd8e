package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/parleybot/parley/providers/openai"
	"github.com/parleybot/parley/relay"
	"github.com/parleybot/parley/telegram"
)

func initViperDefaults() {
	// Completion backend.
	viper.SetDefault("llm.endpoint", "https://api.openai.com")
	viper.SetDefault("llm.model", openai.DefaultModel)
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.request_timeout", 90*time.Second)

	// Speech synthesis shares the completion credentials unless overridden.
	viper.SetDefault("speech.endpoint", "")
	viper.SetDefault("speech.api_key", "")

	// Telegram
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.base_url", telegram.DefaultBaseURL)
	viper.SetDefault("telegram.poll_timeout", telegram.DefaultPollTimeout)
	viper.SetDefault("telegram.max_voice_bytes", int64(telegram.DefaultMaxVoiceBytes))

	// Conversation
	viper.SetDefault("history.window", 10)
	viper.SetDefault("heartbeat.interval", relay.DefaultHeartbeatInterval)
	viper.SetDefault("persona.name", "Parley")
	viper.SetDefault("persona.style", "system")
	viper.SetDefault("persona.presets_file", "")

	// Storage
	viper.SetDefault("db.dsn", "")

	// Operator console on stdin.
	viper.SetDefault("console.enabled", true)
}
