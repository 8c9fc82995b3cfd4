// Package imaging turns an incoming screenshot into a compact JPEG suitable for a multimodal request.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"chart-bot/api/internal/apperr"
)

const (
	DefaultQuality = 85
	DefaultMaxEdge = 2048

	MimeJPEG = "image/jpeg"

	// MaxSourcePixels bounds the decoded source bitmap (about 200 MB as RGBA).
	MaxSourcePixels = 50_000_000
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// Payload is the raw attachment as received from the chat.
type Payload struct {
	Data     []byte
	MimeType string
}

type Options struct {
	// Quality is the JPEG quality, 1..100.
	Quality int
	// MaxEdge caps the longest side in pixels. 0 keeps the source size.
	MaxEdge int
}

func DefaultOptions() Options {
	return Options{Quality: DefaultQuality, MaxEdge: DefaultMaxEdge}
}

// Normalized is the re-encoded image. It is owned by the request that embeds it.
type Normalized struct {
	Bytes  []byte
	Base64 string
	Width  int
	Height int
}

func (n Normalized) MimeType() string { return MimeJPEG }

func (n Normalized) DataURL() string {
	return MakeDataURL(MimeJPEG, n.Base64)
}

func MakeDataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}

// Normalize decodes the payload, flattens it to opaque RGB, caps its size and re-encodes it as JPEG.
func Normalize(p Payload, opt Options) (Normalized, error) {
	if len(p.Data) == 0 {
		return Normalized{}, apperr.New(apperr.KindUnsupportedImage, "imaging.normalize", "empty image")
	}
	if opt.Quality < 1 || opt.Quality > 100 {
		opt.Quality = DefaultQuality
	}
	if opt.MaxEdge < 0 {
		opt.MaxEdge = 0
	}

	src, err := decode(p.Data)
	if err != nil {
		return Normalized{}, apperr.Wrap(apperr.KindUnsupportedImage, "imaging.normalize", "cannot decode image", err)
	}
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return Normalized{}, apperr.New(apperr.KindUnsupportedImage, "imaging.normalize", "empty image bounds")
	}

	w, h := fitWithin(sb.Dx(), sb.Dy(), opt.MaxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: opt.Quality}); err != nil {
		return Normalized{}, apperr.Wrap(apperr.KindUnsupportedImage, "imaging.normalize", "cannot encode jpeg", err)
	}

	b := out.Bytes()
	return Normalized{
		Bytes:  b,
		Base64: base64.StdEncoding.EncodeToString(b),
		Width:  w,
		Height: h,
	}, nil
}

func decode(b []byte) (image.Image, error) {
	if err := checkSize(b); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err == nil {
		return img, nil
	}
	// some clients send files whose header confuses format sniffing
	switch sniff(b) {
	case "jpeg":
		if img, err2 := jpeg.Decode(bytes.NewReader(b)); err2 == nil {
			return img, nil
		}
	case "png":
		if img, err2 := png.Decode(bytes.NewReader(b)); err2 == nil {
			return img, nil
		}
	}
	return nil, err
}

// checkSize reads only the header so a tiny file declaring a huge canvas is rejected before any
// pixel buffer is allocated.
func checkSize(b []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		switch sniff(b) {
		case "jpeg":
			cfg, err = jpeg.DecodeConfig(bytes.NewReader(b))
		case "png":
			cfg, err = png.DecodeConfig(bytes.NewReader(b))
		}
	}
	if err != nil {
		// unreadable header, the full decode reports the error
		return nil
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxSourcePixels {
		return fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, MaxSourcePixels)
	}
	return nil
}

func sniff(b []byte) string {
	switch {
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8:
		return "jpeg"
	case len(b) >= 8 && bytes.Equal(b[:8], pngSignature):
		return "png"
	}
	return ""
}

// fitWithin keeps the aspect ratio and never upscales.
func fitWithin(w, h, maxEdge int) (int, int) {
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return w, h
	}
	if w >= h {
		nh := int(float64(h)*float64(maxEdge)/float64(w) + 0.5)
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := int(float64(w)*float64(maxEdge)/float64(h) + 0.5)
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}
