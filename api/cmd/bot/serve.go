package main

import (
	"context"
	"net"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/config"
	"chart-bot/api/internal/handle"
	"chart-bot/api/internal/httpserver"
	"chart-bot/api/internal/logger"
	"chart-bot/api/internal/telegram"
)

const serveLongDesc = `Start the bot.

Updates arrive through long polling, or through a webhook when
WEBHOOK_URL is set. GET /healthz is served on PORT in both modes,
and POST /v1/forecast when FORECAST_API_TOKEN is set.`

func newServeCmd(root *rootCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.serve(cmd.Context())
		},
	}
}

func (c *rootCommander) serve(ctx context.Context) error {
	log := logger.New(c.debug)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(config.Options{EnvFile: c.envFile, RequireTelegram: true})
	if err != nil {
		log.Error("config", zap.Error(err))
		return err
	}

	pl, err := newPipeline(cfg, log)
	if err != nil {
		log.Error("pipeline", zap.Error(err))
		return err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		err = apperr.Wrap(apperr.KindTransport, "telegram.connect", "cannot authorize bot", telegram.ScrubToken(err))
		log.Error("telegram", zap.Error(err))
		return err
	}
	bot.Debug = c.debug
	log.Info("authorized", zap.String("bot", bot.Self.UserName))

	router := &telegram.Router{Bot: bot, Analyzer: pl, Logger: log}
	// every update gets its own goroutine; Wait below lets in-flight runs finish
	defer router.Wait()

	g, gctx := errgroup.WithContext(ctx)
	dispatch := func(upd tgbotapi.Update) { router.Dispatch(gctx, upd) }

	httpOpts := httpserver.Options{Logger: log, Debug: c.debug}
	if cfg.APIToken != "" {
		httpOpts.API = handle.New(pl, cfg.APIToken, log)
		log.Info("forecast api enabled", zap.String("route", "POST /v1/forecast"))
	}
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path := httpserver.WebhookPath(cfg.TelegramBotToken)
		secret := cfg.WebhookSecret
		if secret == "" {
			// rotated on every start; setWebhook below hands it to Telegram
			secret = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		if err := registerWebhook(bot, strings.TrimRight(webhookURL, "/")+path, secret); err != nil {
			log.Error("webhook", zap.Error(err))
			return err
		}
		httpOpts.WebhookPath = path
		httpOpts.WebhookSecret = secret
		httpOpts.OnUpdate = dispatch
		log.Info("webhook mode", zap.String("path", path))
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn("cannot delete webhook", zap.Error(telegram.ScrubToken(err)))
		}
		log.Info("polling mode")
		g.Go(func() error {
			telegram.RunPolling(gctx, bot, log, dispatch)
			return nil
		})
	}

	addr := net.JoinHostPort("0.0.0.0", cfg.Port)
	g.Go(func() error {
		return httpserver.Serve(gctx, addr, httpserver.New(httpOpts), log)
	})

	if err := g.Wait(); err != nil {
		log.Error("bot stopped", zap.Error(err))
		return err
	}
	log.Info("bot stopped")
	return nil
}

func registerWebhook(bot *tgbotapi.BotAPI, public, secret string) error {
	params, err := webhookParams(public, secret)
	if err != nil {
		return err
	}
	if _, err := bot.MakeRequest("setWebhook", params); err != nil {
		return apperr.Wrap(apperr.KindTransport, "telegram.webhook", "setWebhook failed", telegram.ScrubToken(err))
	}
	return nil
}

// webhookParams builds setWebhook arguments. WebhookConfig in the client library predates
// secret_token, so the call is made with raw params.
func webhookParams(public, secret string) (tgbotapi.Params, error) {
	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "telegram.webhook", "bad WEBHOOK_URL", err)
	}
	params := tgbotapi.Params{"url": wh.URL.String()}
	params.AddBool("drop_pending_updates", true)
	params.AddNonEmpty("secret_token", secret)
	return params, nil
}
