package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "bellavista-assistant/internal/common/errors"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like GEMINI_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root so
// running from cmd/ or a test directory still picks credentials up.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bellavista-assistant"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RateLimit == "" {
		cfg.Server.RateLimit = "60-M"
	}
	if cfg.Chat.DefaultSessionID == "" {
		cfg.Chat.DefaultSessionID = "default"
	}
	if cfg.Chat.MaxHistoryPairs == 0 {
		cfg.Chat.MaxHistoryPairs = 10
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.7
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-1.5-flash"
	}
	if cfg.Gemini.TTSModel == "" {
		cfg.Gemini.TTSModel = "gemini-2.5-flash-preview-tts"
	}
	if cfg.Gemini.VoiceName == "" {
		cfg.Gemini.VoiceName = "Kore"
	}
	if cfg.Gemini.Timeout == 0 {
		cfg.Gemini.Timeout = 30000
	}
	if cfg.Gemini.MaxTokens == 0 {
		cfg.Gemini.MaxTokens = 1024
	}
	if cfg.Clover.BaseURL == "" {
		cfg.Clover.BaseURL = "https://api.clover.com"
	}
	if cfg.Clover.OAuthURL == "" {
		cfg.Clover.OAuthURL = "https://www.clover.com/oauth/authorize"
	}
	if cfg.Clover.TokenURL == "" {
		cfg.Clover.TokenURL = "https://www.clover.com/oauth/token"
	}
	if cfg.Clover.Timeout == 0 {
		cfg.Clover.Timeout = 30000
	}
	if cfg.Voice.SampleRate == 0 {
		cfg.Voice.SampleRate = 24000
	}
	if cfg.Voice.Channels == 0 {
		cfg.Voice.Channels = 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// overrideFromEnv covers the credentials that operators set as plain
// environment variables rather than through the YAML tree.
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("CLOVER_APP_ID"); v != "" {
		cfg.Clover.AppID = v
	}
	if v := os.Getenv("CLOVER_APP_SECRET"); v != "" {
		cfg.Clover.AppSecret = v
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Gemini.APIKey == "" {
		return apperrors.NewMissingCredentialsError("GEMINI_API_KEY")
	}
	if cfg.Chat.MaxHistoryPairs < 1 {
		return fmt.Errorf("invalid configuration: chat.max_history_pairs must be >= 1")
	}
	return nil
}
