package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	_ "golang.org/x/image/webp"

	"github.com/chaos-io/bgremover/rembg"
)

var removalDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "bgremover_removal_duration_seconds",
		Help:    "Time spent removing backgrounds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// DefaultMaxPixels is the decoded size above which uploads are refused, the same bound PIL uses
// for its decompression bomb check.
const DefaultMaxPixels = 89_478_485

// ErrTooManyPixels rejects images whose header declares more pixels than the handler decodes.
var ErrTooManyPixels = errors.New("image too large")

type Handler struct {
	remover   rembg.Remover
	maxUpload int64
	maxPixels int64
	logger    *slog.Logger
}

type HandlerOption func(*Handler)

// WithMaxPixels bounds width*height of the images the handler is willing to decode.
func WithMaxPixels(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxPixels = n
	}
}

func NewHandler(remover rembg.Remover, maxUpload int64, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		remover:   remover,
		maxUpload: maxUpload,
		maxPixels: DefaultMaxPixels,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (h *Handler) tooLarge() string {
	return fmt.Sprintf("File size must be less than %dMB", h.maxUpload>>20)
}

// RemoveBG handles POST /api/remove-bg with a multipart "image" field and answers with a PNG.
func (h *Handler) RemoveBG(c *gin.Context) {
	// leave room for the multipart envelope
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+(1<<20))

	fh, err := c.FormFile(rembg.FieldName)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			detail(c, http.StatusBadRequest, h.tooLarge())
			return
		}
		detail(c, http.StatusBadRequest, "image field is required")
		return
	}

	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		detail(c, http.StatusBadRequest, "File must be an image")
		return
	}
	if fh.Size > h.maxUpload {
		detail(c, http.StatusBadRequest, h.tooLarge())
		return
	}

	f, err := fh.Open()
	if err != nil {
		detail(c, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		detail(c, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}
	if int64(len(data)) > h.maxUpload {
		detail(c, http.StatusBadRequest, h.tooLarge())
		return
	}

	// the declared type is the client's word; check the bytes too
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		detail(c, http.StatusBadRequest, "File must be an image")
		return
	}

	out, err := h.process(c, data)
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "remove background failed", "name", fh.Filename, "error", err)
		detail(c, http.StatusInternalServerError, "Error processing image: "+err.Error())
		return
	}

	c.Data(http.StatusOK, "image/png", out)
}

func (h *Handler) process(c *gin.Context, data []byte) ([]byte, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		removalDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > h.maxPixels {
		return nil, ErrTooManyPixels
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	result, err := h.remover.Remove(c.Request.Context(), img)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	outcome = "ok"
	return buf.Bytes(), nil
}
