// Package proof turns remote proof-of-delivery photos into small PNG
// thumbnails for the report overlay.
package proof

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	MaxWidth       = 640
	maxSourceBytes = 15 << 20
	// MaxPixels bounds width × height of a source image before decoding.
	MaxPixels = 40_000_000
)

var (
	ErrUnsupportedSource = errors.New("proof source must be an absolute http or https URL")
	ErrDecode            = errors.New("unable to decode proof image")
	ErrTooLarge          = errors.New("proof image dimensions too large")
)

// Thumbnailer fetches proof images and scales them down.
type Thumbnailer struct {
	client   *http.Client
	maxWidth int
}

func NewThumbnailer(timeout time.Duration) *Thumbnailer {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Thumbnailer{client: &http.Client{Timeout: timeout}, maxWidth: MaxWidth}
}

// CheckSource rejects anything that is not an absolute http(s) URL.
func CheckSource(src string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil || u.Host == "" {
		return nil, ErrUnsupportedSource
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, nil
	default:
		return nil, ErrUnsupportedSource
	}
}

// Thumbnail returns PNG bytes no wider than the configured maximum.
func (t *Thumbnailer) Thumbnail(ctx context.Context, src string) ([]byte, error) {
	u, err := CheckSource(src)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("prepare proof request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch proof: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch proof: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("read proof: %w", err)
	}
	return Resize(raw, t.maxWidth)
}

// Resize decodes PNG, JPEG, GIF or WebP and scales it to at most maxWidth
// pixels wide, keeping the aspect ratio. The result is always PNG.
func Resize(raw []byte, maxWidth int) ([]byte, error) {
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, ErrDecode
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrDecode
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, ErrTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, webpErr := webp.Decode(bytes.NewReader(raw))
		if webpErr != nil {
			return nil, ErrDecode
		}
		img = decoded
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrDecode
	}

	out := img
	if maxWidth > 0 && width > maxWidth {
		targetHeight := max(1, height*maxWidth/width)
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, targetHeight))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeConfig reads only the image header.
func decodeConfig(raw []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err == nil {
		return cfg, nil
	}
	return webp.DecodeConfig(bytes.NewReader(raw))
}

var placeholderPNG = func() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	fill := color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	line := color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
	for y := 0; y < 120; y++ {
		for x := 0; x < 160; x++ {
			img.Set(x, y, fill)
		}
	}
	for i := 0; i < 120; i++ {
		x := i * 160 / 120
		img.Set(x, i, line)
		img.Set(159-x, i, line)
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}()

// Placeholder is the image served when a proof cannot be shown.
func Placeholder() []byte {
	return placeholderPNG
}

// Serve writes a thumbnail of src, or the placeholder when src is empty,
// unreachable or not a usable image. Callers decide which sources are
// allowed; src must come from trusted report data.
func (t *Thumbnailer) Serve(w http.ResponseWriter, r *http.Request, src string) {
	body := Placeholder()
	if src != "" {
		thumb, err := t.Thumbnail(r.Context(), src)
		if err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("proof thumbnail unavailable")
		} else {
			body = thumb
		}
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(body)
}
