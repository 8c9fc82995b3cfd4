package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chart-bot/api/internal/apperr"
)

// maxDownloadBytes matches the Bot API getFile limit.
const maxDownloadBytes = 20 << 20

type attachment struct {
	FileID   string
	MimeType string
}

// selectAttachment picks the image to analyze. ok is false when the message carries no photo or document.
func selectAttachment(msg *tgbotapi.Message) (att attachment, ok bool, err error) {
	if len(msg.Photo) > 0 {
		// Telegram lists sizes from smallest to largest
		ph := msg.Photo[len(msg.Photo)-1]
		return attachment{FileID: ph.FileID, MimeType: "image/jpeg"}, true, nil
	}
	if msg.Document != nil {
		if !isImageMIME(msg.Document.MimeType) {
			return attachment{}, true, apperr.New(apperr.KindUnsupportedAttachment, "telegram.attachment",
				fmt.Sprintf("document %q has type %q", msg.Document.FileName, msg.Document.MimeType))
		}
		return attachment{FileID: msg.Document.FileID, MimeType: msg.Document.MimeType}, true, nil
	}
	return attachment{}, false, nil
}

func isImageMIME(m string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m)), "image/")
}

// fetch downloads the attachment. Errors never carry the file link: it embeds the bot token.
func (r *Router) fetch(ctx context.Context, att attachment) ([]byte, error) {
	link, err := r.Bot.GetFileDirectURL(att.FileID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "telegram.getfile", "cannot resolve file", ScrubToken(err))
	}
	b, err := download(ctx, r.httpClient(), link)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "telegram.download", "cannot download file", ScrubToken(err))
	}
	return b, nil
}

var reBotToken = regexp.MustCompile(`bot\d+:[A-Za-z0-9_-]+`)

// ScrubToken drops the request URL from transport errors and masks any bot token left in the text.
func ScrubToken(err error) error {
	if err == nil {
		return nil
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		err = fmt.Errorf("%s: %w", strings.ToLower(ue.Op), ue.Err)
	}
	if msg := err.Error(); reBotToken.MatchString(msg) {
		return errors.New(reBotToken.ReplaceAllString(msg, "bot<redacted>"))
	}
	return err
}

func download(ctx context.Context, c *http.Client, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxDownloadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxDownloadBytes)
	}
	return b, nil
}

func (r *Router) httpClient() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return &http.Client{Timeout: 60 * time.Second}
}
