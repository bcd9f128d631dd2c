package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bellavista-assistant/internal/common/errors"
)

func TestLoad_MissingModelKeyFailsFast(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()

	require.Error(t, err)
	assert.Nil(t, cfg)

	var cerr *apperrors.ChatError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, apperrors.ErrCodeMissingCredentials, cerr.Code)
	assert.Contains(t, cerr.Details, "GEMINI_API_KEY")
}

func TestLoad_WithKeyAppliesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "60-M", cfg.Server.RateLimit)
	assert.Equal(t, 10, cfg.Chat.MaxHistoryPairs)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 24000, cfg.Voice.SampleRate)
}
