// Package llm is the HTTP client for the Gemini generateContent API. The
// engine only sees the Generate method; everything about the wire format is
// validated here, once, at the decode boundary.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bellavista-assistant/internal/common/logger"
)

var (
	ErrModelTimeout    = errors.New("MODEL_TIMEOUT")
	ErrModelCallFailed = errors.New("MODEL_CALL_FAILED")
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		// No transport timeout; the per-call context bounds the request.
		client: &http.Client{},
		logger: log.With(map[string]interface{}{
			"component": "llm",
			"model":     config.Model,
		}),
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends one prompt and returns the model text. The call is bound
// by the configured timeout; no automatic retry happens here, retry policy
// belongs to the caller.
func (c *Client) Generate(ctx context.Context, promptText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: promptText}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.config.Temperature,
			MaxOutputTokens: c.config.MaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelCallFailed, err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.config.BaseURL, c.config.Model, c.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelCallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, context.Canceled) {
			return "", ErrModelTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrModelCallFailed, err)
	}
	defer resp.Body.Close()

	var apiResponse generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrModelCallFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrModelCallFailed, resp.StatusCode, apiResponse.Error.Message)
	}
	if apiResponse.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrModelCallFailed, apiResponse.Error.Message)
	}
	if len(apiResponse.Candidates) == 0 || len(apiResponse.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", ErrModelCallFailed)
	}

	text := strings.TrimSpace(apiResponse.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrModelCallFailed)
	}

	c.logger.Info("model call completed", map[string]interface{}{
		"responseChars": len(text),
	})

	return text, nil
}
