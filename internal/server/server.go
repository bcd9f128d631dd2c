// Package server is the HTTP surface over the dialogue engine: the chat
// endpoints, the POS OAuth flow, text-to-speech, and the operational
// routes.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bellavista-assistant/internal/chat"
	apperrors "bellavista-assistant/internal/common/errors"
	"bellavista-assistant/internal/common/logger"
	"bellavista-assistant/internal/pos"
	"bellavista-assistant/internal/session"
	"bellavista-assistant/internal/voice"
)

// Dialogue is the engine surface the HTTP layer consumes.
type Dialogue interface {
	HandleTurn(ctx context.Context, sessionID, text string) chat.TurnResult
	History(sessionID string) []session.Turn
	ClearSession(sessionID string) bool
	RandomGreeting() string
}

// PosLinker is the OAuth and status surface of the POS client.
type PosLinker interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (pos.Merchant, error)
	Status() pos.LinkStatus
}

// Speech synthesizes one utterance into a playable WAV clip.
type Speech interface {
	Synthesize(ctx context.Context, text string) (voice.Result, error)
}

type Server struct {
	engine Dialogue
	pos    PosLinker
	speech Speech
	logger logger.Logger
}

func New(engine Dialogue, posLinker PosLinker, speech Speech, log logger.Logger) *Server {
	return &Server{
		engine: engine,
		pos:    posLinker,
		speech: speech,
		logger: log.With(map[string]interface{}{"component": "server"}),
	}
}

// Router builds the gin engine with all routes and middleware attached.
// rateLimit uses limiter's formatted notation; empty disables limiting.
func (s *Server) Router(rateLimit string) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS())

	if rateLimit != "" {
		limit, err := RateLimit(rateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(limit)
	}

	api := r.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/chat/history", s.handleHistory)
		api.POST("/chat/clear", s.handleClear)
		api.GET("/chat/starter", s.handleStarter)
		api.POST("/chat/tts", s.handleTTS)

		api.GET("/pos/auth", s.handlePosAuth)
		api.GET("/pos/callback", s.handlePosCallback)
		api.GET("/pos/status", s.handlePosStatus)
	}

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "invalid request body",
		})
		return
	}

	result := s.engine.HandleTurn(c.Request.Context(), req.SessionID, req.Message)

	status := http.StatusOK
	if result.ErrorCode == string(apperrors.ErrCodeEmptyMessage) {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

func (s *Server) handleHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	c.JSON(http.StatusOK, gin.H{
		"history":    s.engine.History(sessionID),
		"session_id": sessionID,
		"status":     "success",
	})
}

type clearRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleClear(c *gin.Context) {
	var req clearRequest
	// Body is optional; an empty body clears the default session.
	_ = c.ShouldBindJSON(&req)

	s.engine.ClearSession(req.SessionID)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Conversation cleared",
	})
}

func (s *Server) handleStarter(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"starter": s.engine.RandomGreeting(),
		"status":  "success",
	})
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTTS(c *gin.Context) {
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Text is required",
		})
		return
	}

	result, err := s.speech.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		s.logger.WithError(err).Error("speech synthesis failed", nil)
		c.JSON(http.StatusBadGateway, gin.H{
			"status": "error",
			"error":  apperrors.NewSpeechSynthesisFailedError(err).Message,
		})
		return
	}

	c.Data(http.StatusOK, result.MimeType, result.Audio)
}

func (s *Server) handlePosAuth(c *gin.Context) {
	c.Redirect(http.StatusFound, s.pos.AuthorizationURL())
}

func (s *Server) handlePosCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "missing authorization code",
		})
		return
	}

	merchant, err := s.pos.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		s.logger.WithError(err).Error("pos code exchange failed", nil)
		c.JSON(http.StatusBadGateway, gin.H{
			"status": "error",
			"error":  "token exchange failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"merchant_id":   merchant.ID,
		"merchant_name": merchant.Name,
	})
}

func (s *Server) handlePosStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.pos.Status())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
