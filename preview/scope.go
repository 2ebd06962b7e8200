package preview

import (
	"errors"
	"fmt"
	"sync"
)

var ErrScopeClosed = errors.New("preview scope closed")

// Scope tracks every handle acquired through it. Close releases whatever is still held.
type Scope struct {
	store *Store

	mu      sync.Mutex
	handles map[*Handle]struct{}
	closed  bool
}

func NewScope(store *Store) *Scope {
	return &Scope{
		store:   store,
		handles: make(map[*Handle]struct{}),
	}
}

// Handle is one acquired reference. Release revokes it exactly once.
type Handle struct {
	ref   Reference
	scope *Scope
	once  sync.Once
	err   error
}

func (h *Handle) Reference() Reference {
	return h.ref
}

func (h *Handle) Release() error {
	h.once.Do(func() {
		h.scope.forget(h)
		if err := h.scope.store.Revoke(h.ref.ID); err != nil {
			h.err = fmt.Errorf("revoke preview %s: %w", h.ref.ID, err)
		}
	})
	return h.err
}

func (sc *Scope) Acquire(data []byte, contentType string) (*Handle, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return nil, ErrScopeClosed
	}
	h := &Handle{ref: sc.store.Create(data, contentType), scope: sc}
	sc.handles[h] = struct{}{}
	return h, nil
}

// Held reports how many handles are still outstanding.
func (sc *Scope) Held() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.handles)
}

func (sc *Scope) Close() error {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return nil
	}
	sc.closed = true
	held := make([]*Handle, 0, len(sc.handles))
	for h := range sc.handles {
		held = append(held, h)
	}
	sc.mu.Unlock()

	var errs []error
	for _, h := range held {
		if err := h.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (sc *Scope) forget(h *Handle) {
	sc.mu.Lock()
	delete(sc.handles, h)
	sc.mu.Unlock()
}
