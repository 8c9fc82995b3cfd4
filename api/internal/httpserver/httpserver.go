package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chart-bot/api/internal/handle"
)

// Options configures the router built by New.
type Options struct {
	Logger *zap.Logger
	Debug  bool
	// HealthzBody is served by GET /healthz. Defaults to "ok".
	HealthzBody string
	// WebhookPath enables POST <WebhookPath> when non-empty.
	WebhookPath string
	// WebhookSecret, when set, must match the X-Telegram-Bot-Api-Secret-Token header.
	WebhookSecret string
	// OnUpdate receives every update posted to the webhook.
	OnUpdate func(tgbotapi.Update)
	// API mounts the token-protected /v1 routes when set.
	API *handle.Handle
}

// New builds the gin engine with recovery, request logging, health and webhook routes.
func New(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(log))

	body := opts.HealthzBody
	if body == "" {
		body = "ok"
	}
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, body)
	})
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "chart forecast bot")
	})

	if opts.WebhookPath != "" && opts.OnUpdate != nil {
		engine.POST(opts.WebhookPath, webhookHandler(log, opts.WebhookSecret, opts.OnUpdate))
	}
	if opts.API != nil {
		opts.API.Register(engine)
	}
	return engine
}

// SecretHeader carries the secret_token given to setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

func webhookHandler(log *zap.Logger, secret string, onUpdate func(tgbotapi.Update)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(SecretHeader)), []byte(secret)) != 1 {
			log.Warn("webhook call without valid secret", zap.String("client", c.ClientIP()))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		var upd tgbotapi.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			log.Warn("bad webhook payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
			return
		}
		onUpdate(upd)
		// Telegram only needs 200 to stop redelivering the update
		c.Status(http.StatusOK)
	}
}

func loggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", zap.Error(err))
		}
	}()

	log.Info("http server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShortHash derives a stable path segment from the bot token. It only hides the token from
// access logs; requests are authenticated by WebhookSecret.
func ShortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}

// WebhookPath is the route Telegram posts updates to for the given token.
func WebhookPath(token string) string {
	return "/webhook/" + ShortHash(token)
}
