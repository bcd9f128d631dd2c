// Package voice turns assistant replies into speech through the Gemini TTS
// API. The model returns raw 16-bit PCM frames; EncodeWAV wraps them in a
// RIFF header so browsers can play the payload directly.
package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bellavista-assistant/internal/common/logger"
)

var (
	ErrSynthesisFailed  = errors.New("SPEECH_SYNTHESIS_FAILED")
	ErrSynthesisTimeout = errors.New("SPEECH_SYNTHESIS_TIMEOUT")
)

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	VoiceName  string
	SampleRate int
	Channels   int
	Timeout    time.Duration
}

// Result is the decoded synthesis output. Audio is a complete WAV payload.
type Result struct {
	Audio      []byte
	MimeType   string
	SampleRate int
}

type Synthesizer struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewSynthesizer(config *Config, log logger.Logger) *Synthesizer {
	return &Synthesizer{
		config: config,
		client: &http.Client{},
		logger: log.With(map[string]interface{}{
			"component": "voice",
			"model":     config.Model,
		}),
	}
}

type speechRequest struct {
	Contents         []speechContent `json:"contents"`
	GenerationConfig speechGenConfig `json:"generationConfig"`
}

type speechContent struct {
	Parts []speechPart `json:"parts"`
}

type speechPart struct {
	Text string `json:"text"`
}

type speechGenConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type speechResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Synthesize converts text to a playable WAV clip. The response payload is
// validated once here; callers only ever see a complete Result or an error.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	reqBody := speechRequest{
		Contents: []speechContent{{Parts: []speechPart{{Text: text}}}},
		GenerationConfig: speechGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: s.config.VoiceName},
				},
			},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", s.config.BaseURL, s.config.Model, s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, context.Canceled) {
			return Result{}, ErrSynthesisTimeout
		}
		return Result{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	var apiResponse speechResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return Result{}, fmt.Errorf("%w: decode error: %v", ErrSynthesisFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrSynthesisFailed, resp.StatusCode, apiResponse.Error.Message)
	}
	if len(apiResponse.Candidates) == 0 || len(apiResponse.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("%w: no audio candidates in response", ErrSynthesisFailed)
	}

	encoded := apiResponse.Candidates[0].Content.Parts[0].InlineData.Data
	if encoded == "" {
		return Result{}, fmt.Errorf("%w: no inline audio data in response", ErrSynthesisFailed)
	}
	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Result{}, fmt.Errorf("%w: invalid audio encoding: %v", ErrSynthesisFailed, err)
	}

	wav := EncodeWAV(pcm, s.config.SampleRate, s.config.Channels)
	s.logger.Info("speech synthesized", map[string]interface{}{
		"textChars": len(text),
		"wavBytes":  len(wav),
	})

	return Result{
		Audio:      wav,
		MimeType:   "audio/wav",
		SampleRate: s.config.SampleRate,
	}, nil
}

// EncodeWAV wraps raw 16-bit little-endian PCM frames in a 44-byte RIFF
// header.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const sampleWidth = 2 // 16-bit samples

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	// fmt chunk: size 16, PCM format, channels, sample rate, byte rate,
	// block align, bits per sample.
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*sampleWidth))
	binary.Write(buf, binary.LittleEndian, uint16(channels*sampleWidth))
	binary.Write(buf, binary.LittleEndian, uint16(sampleWidth*8))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
