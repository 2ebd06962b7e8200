package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/bgremover/widget"
)

// Sessions keeps one widget per browser session and tears down the idle ones.
type Sessions struct {
	newWidget func() *widget.Widget
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu    sync.Mutex
	items map[string]*session
}

type session struct {
	widget   *widget.Widget
	lastSeen time.Time
}

func NewSessions(newWidget func() *widget.Widget, ttl time.Duration, logger *slog.Logger) *Sessions {
	return &Sessions{
		newWidget: newWidget,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
		items:     make(map[string]*session),
	}
}

// Get returns the widget for id, starting a new session when id is unknown.
// The returned id is the one the client should keep.
func (s *Sessions) Get(id string) (string, *widget.Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.items[id]; ok {
		sess.lastSeen = s.now()
		return id, sess.widget
	}

	id = ksuid.New().String()
	sess := &session{widget: s.newWidget(), lastSeen: s.now()}
	s.items[id] = sess
	s.logger.Debug("session started", "session", id)
	return id, sess.widget
}

// Drop closes and forgets one session.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	sess, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()

	if ok {
		s.close(id, sess)
	}
}

// Sweep closes every session idle for longer than the TTL and reports how many went.
func (s *Sessions) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	expired := make(map[string]*session)
	for id, sess := range s.items {
		if sess.lastSeen.Before(cutoff) {
			expired[id] = sess
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for id, sess := range expired {
		s.close(id, sess)
	}
	if len(expired) > 0 {
		s.logger.Info("idle sessions swept", "count", len(expired))
	}
	return len(expired)
}

// Schedule registers Sweep on c using a cron spec such as "@every 1m".
func (s *Sessions) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() { s.Sweep() })
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close tears down every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	items := s.items
	s.items = make(map[string]*session)
	s.mu.Unlock()

	for id, sess := range items {
		s.close(id, sess)
	}
}

func (s *Sessions) close(id string, sess *session) {
	if err := sess.widget.Close(); err != nil {
		s.logger.Warn("close session widget", "session", id, "error", err)
	}
}
