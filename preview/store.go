// Package preview hands out revocable references to displayable image bytes.
//
// A Store owns the bytes and is shared by every widget of a process. A Scope groups the
// handles acquired by one owner and releases them all when it closes; a Slot keeps the
// single current handle of one role and releases the previous one on replacement.
package preview

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/ksuid"
)

// ErrRevoked is returned for references that were revoked or never existed.
var ErrRevoked = errors.New("preview reference revoked")

var previewsLive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "bgremover_previews_live",
	Help: "Number of preview references not yet revoked",
})

type Reference struct {
	ID          string `json:"id"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

type Stats struct {
	Created int `json:"created"`
	Revoked int `json:"revoked"`
	Live    int `json:"live"`
}

type entry struct {
	data        []byte
	contentType string
}

type Store struct {
	mu      sync.RWMutex
	items   map[string]entry
	created int
	revoked int
}

func NewStore() *Store {
	return &Store{items: make(map[string]entry)}
}

// Create registers data and returns a fresh reference to it. data must not be modified afterwards.
func (s *Store) Create(data []byte, contentType string) Reference {
	ref := Reference{
		ID:          ksuid.New().String(),
		ContentType: contentType,
		Size:        len(data),
	}

	s.mu.Lock()
	s.items[ref.ID] = entry{data: data, contentType: contentType}
	s.created++
	s.mu.Unlock()

	previewsLive.Inc()
	return ref
}

func (s *Store) Open(id string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[id]
	if !ok {
		return nil, "", ErrRevoked
	}
	return e.data, e.contentType, nil
}

func (s *Store) Revoke(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrRevoked
	}
	delete(s.items, id)
	s.revoked++
	previewsLive.Dec()
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Created: s.created, Revoked: s.revoked, Live: len(s.items)}
}
