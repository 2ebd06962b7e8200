package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chaos-io/bgremover/preview"
	"github.com/chaos-io/bgremover/widget"
)

const (
	cookieName = "bgr_session"

	// DefaultMaxFormBytes bounds how much of an upload is read. Past the widget limit
	// the bytes are only counted.
	DefaultMaxFormBytes = 64 << 20
)

type errorView struct {
	Kind    widget.ErrorKind `json:"kind"`
	Code    string           `json:"code,omitempty"`
	Status  int              `json:"status,omitempty"`
	Message string           `json:"message"`
}

type stateView struct {
	Input   *preview.Reference `json:"input"`
	Output  *preview.Reference `json:"output"`
	Loading bool               `json:"loading"`
	Error   *errorView         `json:"error"`
}

type pageData struct {
	stateView
	Accept string
}

func newStateView(st widget.State) stateView {
	v := stateView{Input: st.Input, Output: st.Output, Loading: st.Loading}
	if st.Err == nil {
		return v
	}

	ev := &errorView{Kind: widget.KindOf(st.Err), Message: st.ErrorMessage()}
	var ve *widget.ValidationError
	var re *widget.RequestError
	switch {
	case errors.As(st.Err, &ve):
		ev.Code = string(ve.Reason)
	case errors.As(st.Err, &re):
		ev.Status = re.Status
	}
	v.Error = ev
	return v
}

type Handler struct {
	sessions     *Sessions
	store        *preview.Store
	maxFormBytes int64
	logger       *slog.Logger
}

type HandlerOption func(*Handler)

func WithMaxFormBytes(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxFormBytes = n
	}
}

func NewHandler(sessions *Sessions, store *preview.Store, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		sessions:     sessions,
		store:        store,
		maxFormBytes: DefaultMaxFormBytes,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) session(c *gin.Context) (string, *widget.Widget) {
	id, _ := c.Cookie(cookieName)
	id, w := h.sessions.Get(id)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, id, 0, "/", "", false, true)
	return id, w
}

// state reads the session state; a session swept in the meantime is replaced.
func (h *Handler) state(c *gin.Context) (*widget.Widget, widget.State, error) {
	id, w := h.session(c)
	st, err := w.State(c.Request.Context())
	if errors.Is(err, widget.ErrClosed) {
		h.sessions.Drop(id)
		_, w = h.session(c)
		st, err = w.State(c.Request.Context())
	}
	return w, st, err
}

// Index handles GET /.
func (h *Handler) Index(c *gin.Context) {
	_, st, err := h.state(c)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.HTML(http.StatusOK, "index.html", pageData{stateView: newStateView(st), Accept: widget.AcceptHint})
}

// State handles GET /state.
func (h *Handler) State(c *gin.Context) {
	_, st, err := h.state(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newStateView(st))
}

// Select handles POST /select (multipart/form-data, field "file").
func (h *Handler) Select(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFormBytes)
	files, err := readSelection(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, _, err := h.state(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	selErr := w.Select(c.Request.Context(), files...)

	if !strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	st, err := w.State(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusAccepted
	if selErr != nil {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, newStateView(st))
}

// readSelection streams the form and returns the first non-empty "file" part, if any.
func readSelection(r *http.Request) ([]widget.SelectedFile, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		if part.FormName() != "file" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		sf, err := readPart(part)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		return []widget.SelectedFile{sf}, nil
	}
}

// readPart keeps the bytes of files within the widget limit. Larger files are only
// counted: the widget rejects them on size alone. A body cut off by the form limit
// still reports the bytes seen, which already exceed the widget limit.
func readPart(part *multipart.Part) (widget.SelectedFile, error) {
	sf := widget.SelectedFile{
		Name:     part.FileName(),
		MIMEType: part.Header.Get("Content-Type"),
	}

	data, err := io.ReadAll(io.LimitReader(part, widget.MaxFileSize+1))
	sf.Size = int64(len(data))
	if err != nil {
		return sf, fmt.Errorf("read upload: %w", err)
	}
	if sf.Size <= widget.MaxFileSize {
		sf.Data = data
		return sf, nil
	}

	n, err := io.Copy(io.Discard, part)
	sf.Size += n
	var mbe *http.MaxBytesError
	if err != nil && !errors.As(err, &mbe) {
		return sf, fmt.Errorf("read upload: %w", err)
	}
	return sf, nil
}

// Preview handles GET /preview/:id.
func (h *Handler) Preview(c *gin.Context) {
	data, ct, err := h.store.Open(c.Param("id"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, ct, data)
}
