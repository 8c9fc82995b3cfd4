package handle

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/forecast"
	"chart-bot/api/internal/imaging"
	"chart-bot/api/internal/pipeline"
)

const (
	defaultDeadline = 180 * time.Second
	maxUploadBytes  = 20 << 20
)

// maxBodyBytes fits a base64 image of maxUploadBytes plus the JSON or multipart envelope.
var maxBodyBytes int64 = maxUploadBytes*4/3 + 64<<10

var errBodyTooLarge = errors.New("request body is too large")

// ForecastRequest is the JSON form of POST /v1/forecast. ImageB64 may be a data URL.
type ForecastRequest struct {
	ImageB64 string `json:"image_b64" binding:"required"`
	MimeType string `json:"mime_type"`
}

type ForecastResponse struct {
	RunID      string           `json:"run_id"`
	Outcome    pipeline.Outcome `json:"outcome"`
	Extraction string           `json:"extraction"`
	Fields     forecast.Fields  `json:"fields,omitempty"`
	Forecast   *forecast.Record `json:"forecast,omitempty"`
	Reply      string           `json:"reply"`
	Error      string           `json:"error,omitempty"`
}

// Forecast accepts either a JSON body or a multipart upload with an "image" file.
func (h *Handle) Forecast(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	payload, err := readPayload(c)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), deadline(c))
	defer cancel()

	res := h.an.Run(ctx, payload)
	h.log.Info("http forecast",
		zap.String("run_id", res.ID),
		zap.String("outcome", string(res.Outcome)),
		zap.String("client", c.ClientIP()),
	)

	out := ForecastResponse{
		RunID:      res.ID,
		Outcome:    res.Outcome,
		Extraction: res.Extraction.Outcome.String(),
		Fields:     res.Extraction.Fields,
		Forecast:   res.Record,
		Reply:      res.Reply,
	}
	if res.Err != nil {
		out.Error = apperr.Cause(res.Err)
	}
	c.JSON(statusFor(res.Outcome), out)
}

func statusFor(o pipeline.Outcome) int {
	switch o {
	case pipeline.OutcomeRendered:
		return http.StatusOK
	case pipeline.OutcomeUnsupportedImage:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func readPayload(c *gin.Context) (imaging.Payload, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		if err != nil {
			if tooLarge(err) {
				return imaging.Payload{}, errBodyTooLarge
			}
			return imaging.Payload{}, errors.New("multipart field \"image\" is required")
		}
		if fh.Size > maxUploadBytes {
			return imaging.Payload{}, errors.New("image is too large")
		}
		f, err := fh.Open()
		if err != nil {
			return imaging.Payload{}, err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			return imaging.Payload{}, err
		}
		return imaging.Payload{Data: data, MimeType: pickMIME(fh.Header.Get("Content-Type"), "", data)}, nil
	}

	var req ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if tooLarge(err) {
			return imaging.Payload{}, errBodyTooLarge
		}
		return imaging.Payload{}, errors.New("bad json: " + err.Error())
	}
	data, hint, err := decodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(data) == 0 {
		return imaging.Payload{}, errors.New("bad image_b64")
	}
	return imaging.Payload{Data: data, MimeType: pickMIME(req.MimeType, hint, data)}, nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// decodeBase64MaybeDataURL also returns the MIME type of a data: URL prefix.
func decodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hint string
	if strings.HasPrefix(s, "data:") {
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			hint, _, _ = strings.Cut(meta, ";")
			s = s[idx+1:]
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, hint, nil
	}
	if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hint, nil
	}
	return nil, "", err
}

// pickMIME prefers the explicit type, then the data URL hint, then sniffing.
func pickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" && exp != "application/octet-stream" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	return http.DetectContentType(data)
}

// deadline reads X-Request-Timeout or ?timeoutSec=, in seconds.
func deadline(c *gin.Context) time.Duration {
	for _, ts := range []string{c.GetHeader("X-Request-Timeout"), c.Query("timeoutSec")} {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return defaultDeadline
}
