package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Clover  CloverConfig  `mapstructure:"clover"`
	Voice   VoiceConfig   `mapstructure:"voice"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	RateLimit string `mapstructure:"rate_limit"` // ulule/limiter format, e.g. "60-M"
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ChatConfig holds the dialogue engine settings.
type ChatConfig struct {
	DefaultSessionID string  `mapstructure:"default_session_id"`
	MaxHistoryPairs  int     `mapstructure:"max_history_pairs"` // user/assistant pairs kept in the prompt window
	Temperature      float64 `mapstructure:"temperature"`
}

type GeminiConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	TTSModel  string `mapstructure:"tts_model"`
	VoiceName string `mapstructure:"voice_name"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
	MaxTokens int    `mapstructure:"max_tokens"`
}

type CloverConfig struct {
	AppID       string `mapstructure:"app_id"`
	AppSecret   string `mapstructure:"app_secret"`
	BaseURL     string `mapstructure:"base_url"`
	OAuthURL    string `mapstructure:"oauth_url"`
	TokenURL    string `mapstructure:"token_url"`
	RedirectURL string `mapstructure:"redirect_uri"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
}

type VoiceConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	Channels   int `mapstructure:"channels"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
