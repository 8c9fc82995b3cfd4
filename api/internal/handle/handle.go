// Package handle serves the forecast pipeline over HTTP for clients other than Telegram.
package handle

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chart-bot/api/internal/imaging"
	"chart-bot/api/internal/pipeline"
)

type Analyzer interface {
	Run(ctx context.Context, payload imaging.Payload) pipeline.Result
}

type Handle struct {
	an    Analyzer
	token string
	log   *zap.Logger
}

// New returns handlers that require "Authorization: Bearer <token>".
func New(an Analyzer, token string, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{an: an, token: token, log: log}
}

// Register mounts the API under /v1.
func (h *Handle) Register(r gin.IRouter) {
	v1 := r.Group("/v1", h.auth)
	v1.POST("/forecast", h.Forecast)
}

func (h *Handle) auth(c *gin.Context) {
	got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || h.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}
