package preview

type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// Slot holds the current handle for one role. It is not safe for concurrent use;
// the owning widget serialises access.
type Slot struct {
	role  Role
	scope *Scope
	cur   *Handle
}

func (sc *Scope) Slot(role Role) *Slot {
	return &Slot{role: role, scope: sc}
}

func (s *Slot) Role() Role {
	return s.role
}

// Set acquires a reference for data and releases the previous one before assigning it.
func (s *Slot) Set(data []byte, contentType string) (Reference, error) {
	h, err := s.scope.Acquire(data, contentType)
	if err != nil {
		return Reference{}, err
	}

	prev := s.cur
	s.cur = nil
	if prev != nil {
		if err := prev.Release(); err != nil {
			_ = h.Release()
			return Reference{}, err
		}
	}
	s.cur = h
	return h.Reference(), nil
}

// Clear releases the current reference, leaving the slot empty.
func (s *Slot) Clear() error {
	if s.cur == nil {
		return nil
	}
	h := s.cur
	s.cur = nil
	return h.Release()
}

// Current returns the held reference or nil.
func (s *Slot) Current() *Reference {
	if s.cur == nil {
		return nil
	}
	ref := s.cur.Reference()
	return &ref
}
