package telegram

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/imaging"
	"chart-bot/api/internal/pipeline"
)

// BotAPI is the part of *tgbotapi.BotAPI the router needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Analyzer runs a screenshot through the forecast pipeline.
type Analyzer interface {
	Run(ctx context.Context, payload imaging.Payload) pipeline.Result
}

type Router struct {
	Bot      BotAPI
	Analyzer Analyzer
	Logger   *zap.Logger
	// HTTP downloads files from Telegram. Nil means a client with a 60s timeout.
	HTTP *http.Client

	wg sync.WaitGroup
}

// Dispatch handles the update in its own goroutine. Handlers share no state, so updates from
// different chats run concurrently.
func (r *Router) Dispatch(ctx context.Context, upd tgbotapi.Update) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// a started run completes even when polling is being shut down
		r.HandleUpdate(context.WithoutCancel(ctx), upd)
	}()
}

// Wait blocks until every dispatched update has been answered.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	log := r.log().With(zap.Int("update_id", upd.UpdateID), zap.Int64("chat_id", msg.Chat.ID), zap.Int("message_id", msg.MessageID))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("handler panic", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			r.reply(msg, pipeline.ProcessingError(fmt.Errorf("%v", rec)))
		}
	}()

	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}

	att, ok, err := selectAttachment(msg)
	if !ok {
		return
	}
	if err != nil {
		log.Info("attachment rejected", zap.Error(err))
		r.reply(msg, msgSendImage)
		return
	}

	r.typing(msg.Chat.ID)
	data, err := r.fetch(ctx, att)
	if err != nil {
		log.Error("download failed", zap.String("file_id", att.FileID), zap.Error(err))
		r.reply(msg, pipeline.ProcessingError(err))
		return
	}

	res := r.Analyzer.Run(ctx, imaging.Payload{Data: data, MimeType: att.MimeType})
	log.Info("screenshot processed",
		zap.String("run_id", res.ID),
		zap.String("outcome", string(res.Outcome)),
		zap.String("kind", string(apperr.KindOf(res.Err))),
	)
	r.reply(msg, res.Reply)
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		r.reply(msg, HelpText)
	case "health":
		r.reply(msg, msgHealthy)
	default:
		r.reply(msg, msgUnknownCommand)
	}
}

func (r *Router) reply(to *tgbotapi.Message, text string) {
	m := tgbotapi.NewMessage(to.Chat.ID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyToMessageID = to.MessageID
	if _, err := r.Bot.Send(m); err != nil {
		r.log().Error("send failed", zap.Int64("chat_id", to.Chat.ID), zap.Error(err))
	}
}

func (r *Router) typing(chatID int64) {
	if _, err := r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		r.log().Debug("chat action failed", zap.Error(err))
	}
}

func (r *Router) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
