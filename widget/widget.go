// Package widget implements the background remover widget: pick a file, validate it,
// preview it, send it to a remove-bg endpoint and preview the result.
//
// All state belongs to a single loop goroutine. Public methods hand closures to that
// loop and wait for them, so the widget behaves like a UI component driven by discrete
// events: selections, request resolutions and teardown.
package widget

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chaos-io/bgremover/preview"
	"github.com/chaos-io/bgremover/rembg"
)

type Invoker interface {
	Submit(ctx context.Context, img rembg.Image) (rembg.Image, error)
}

type State struct {
	Input   *preview.Reference
	Output  *preview.Reference
	Err     error
	Loading bool
}

// ErrorMessage is the text shown by the error surface, empty when there is none.
func (s State) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

type Option func(*Widget)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Widget) {
		w.logger = logger
	}
}

type Widget struct {
	invoker Invoker
	logger  *slog.Logger

	events    chan func()
	done      chan struct{}
	closeOnce sync.Once

	// owned by the loop goroutine
	base     context.Context
	stop     context.CancelFunc
	scope    *preview.Scope
	input    *preview.Slot
	output   *preview.Slot
	err      error
	loading  bool
	token    uint64
	cancel   context.CancelFunc
	changed  chan struct{}
	closed   bool
	closeErr error
}

func New(invoker Invoker, store *preview.Store, opts ...Option) *Widget {
	base, stop := context.WithCancel(context.Background())
	scope := preview.NewScope(store)

	w := &Widget{
		invoker: invoker,
		logger:  slog.Default(),
		events:  make(chan func()),
		done:    make(chan struct{}),
		base:    base,
		stop:    stop,
		scope:   scope,
		input:   scope.Slot(preview.RoleInput),
		output:  scope.Slot(preview.RoleOutput),
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()
	return w
}

func (w *Widget) run() {
	defer close(w.done)
	for fn := range w.events {
		fn()
		if w.closed {
			return
		}
	}
}

// do runs fn on the loop and waits for it.
func (w *Widget) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case w.events <- func() { fn(); close(ran) }:
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

// post queues fn without waiting; it is dropped once the widget is gone.
func (w *Widget) post(fn func()) {
	select {
	case w.events <- fn:
	case <-w.done:
	}
}

// Select handles a file-pick event. Only the first file is considered and an empty
// pick is ignored. A ValidationError is returned (and shown) for a rejected file; an
// accepted file starts a new submission and Select returns without waiting for it.
func (w *Widget) Select(ctx context.Context, files ...SelectedFile) error {
	if len(files) == 0 {
		return nil
	}
	if len(files) > 1 {
		w.logger.Debug("ignoring extra files", "count", len(files)-1)
	}

	file := files[0]
	var result error
	if err := w.do(ctx, func() { result = w.accept(file) }); err != nil {
		return err
	}
	return result
}

func (w *Widget) accept(file SelectedFile) error {
	if err := Validate(file); err != nil {
		w.logger.Info("file rejected", "name", file.Name, "mime", file.MIMEType, "size", file.Size, "error", err)
		w.err = err
		w.notify()
		return err
	}

	w.err = nil
	if _, err := w.input.Set(file.Data, file.MIMEType); err != nil {
		w.logger.Error("hold input preview", "error", err)
		w.err = &PreviewError{Role: preview.RoleInput, Err: err}
		w.notify()
		return w.err
	}
	// a stale result is never shown next to a new input
	if err := w.output.Clear(); err != nil {
		w.logger.Warn("release output preview", "error", err)
	}

	if w.cancel != nil {
		w.cancel()
	}
	w.token++
	ctx, cancel := context.WithCancel(w.base)
	w.cancel = cancel
	w.loading = true
	w.notify()

	token := w.token
	img := rembg.Image{Name: file.Name, ContentType: file.MIMEType, Data: file.Data}
	w.logger.Info("submission started", "token", token, "name", file.Name, "size", file.Size)

	go func() {
		out, err := w.invoker.Submit(ctx, img)
		w.post(func() { w.resolve(token, out, err) })
	}()
	return nil
}

func (w *Widget) resolve(token uint64, out rembg.Image, err error) {
	if token != w.token {
		w.logger.Debug("discarding stale result", "token", token, "current", w.token)
		return
	}

	defer func() {
		w.loading = false
		w.cancel()
		w.cancel = nil
		w.notify()
	}()

	if err != nil {
		w.err = newRequestError(err)
		w.logger.Warn("submission failed", "token", token, "error", err)
		if cerr := w.output.Clear(); cerr != nil {
			w.logger.Warn("release output preview", "error", cerr)
		}
		return
	}

	if _, err := w.output.Set(out.Data, out.ContentType); err != nil {
		w.logger.Error("hold output preview", "token", token, "error", err)
		w.err = &PreviewError{Role: preview.RoleOutput, Err: err}
		return
	}
	w.logger.Info("submission done", "token", token, "content_type", out.ContentType, "bytes", len(out.Data))
}

func (w *Widget) notify() {
	close(w.changed)
	w.changed = make(chan struct{})
}

func (w *Widget) snapshot() State {
	return State{
		Input:   w.input.Current(),
		Output:  w.output.Current(),
		Err:     w.err,
		Loading: w.loading,
	}
}

func (w *Widget) State(ctx context.Context) (State, error) {
	var st State
	if err := w.do(ctx, func() { st = w.snapshot() }); err != nil {
		return State{}, err
	}
	return st, nil
}

// WaitIdle blocks until no submission is in flight and returns the state at that point.
func (w *Widget) WaitIdle(ctx context.Context) (State, error) {
	for {
		var st State
		var changed <-chan struct{}
		if err := w.do(ctx, func() { st, changed = w.snapshot(), w.changed }); err != nil {
			return State{}, err
		}
		if !st.Loading {
			return st, nil
		}

		select {
		case <-changed:
		case <-w.done:
			return State{}, ErrClosed
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Close tears the widget down: in-flight requests are cancelled and both previews are
// released. Results arriving afterwards are dropped. Close is safe to call repeatedly.
func (w *Widget) Close() error {
	w.closeOnce.Do(func() {
		_ = w.do(context.Background(), w.teardown)
	})
	<-w.done
	return w.closeErr
}

func (w *Widget) teardown() {
	w.closed = true
	w.loading = false
	w.stop()
	w.closeErr = w.scope.Close()
	w.notify()
	w.logger.Debug("widget closed")
}
