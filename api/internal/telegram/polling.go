package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UpdateSource is the part of *tgbotapi.BotAPI used for long polling.
type UpdateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

const (
	pollTimeoutSec = 30
	baseDelay      = 1 * time.Second
	maxDelay       = 15 * time.Second
)

// retryDelayFromError honours the retry_after Telegram sends with 429 and waits a little longer on timeouts.
func retryDelayFromError(err error) time.Duration {
	var apiErr *tgbotapi.Error
	var netErr net.Error
	switch {
	case err == nil:
		return 0
	case errors.As(err, &apiErr) && apiErr.RetryAfter > 0:
		return time.Duration(apiErr.RetryAfter) * time.Second
	case errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests:
		return 3 * time.Second
	case errors.As(err, &netErr) && netErr.Timeout():
		return 2 * time.Second
	}
	return baseDelay
}

func clampDelay(d time.Duration) time.Duration {
	if d < baseDelay {
		return baseDelay
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// RunPolling long-polls Telegram until ctx is cancelled and hands every update to handle.
func RunPolling(ctx context.Context, src UpdateSource, log *zap.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("polling stopped")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = pollTimeoutSec

		updates, err := src.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err))
			log.Warn("polling error", zap.Error(ScrubToken(err)), zap.Duration("retry_in", d))
			if !sleep(ctx, d) {
				log.Info("polling stopped")
				return
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 && !sleep(ctx, 200*time.Millisecond) {
			log.Info("polling stopped")
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
