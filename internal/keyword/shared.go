package keyword

import (
	"errors"
	"sync"
)

// Shared is a keyword index handed out to several readers at once. Close retires it: the
// Bleve index stays open until the last Acquire is released, and is then closed and its
// directory removed.
type Shared struct {
	*BleveIndex
	path string

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
}

// NewShared wraps idx, which lives at path.
func NewShared(idx *BleveIndex, path string) *Shared {
	return &Shared{BleveIndex: idx, path: path}
}

// Path returns the index directory.
func (s *Shared) Path() string { return s.path }

// Acquire takes a hold on the index. It reports false once the index has been closed.
func (s *Shared) Acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.refs++
	return true
}

// Release drops a hold taken by Acquire, closing a retired index when it was the last one.
func (s *Shared) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs > 0 {
		s.refs--
	}
	if s.retired && s.refs == 0 {
		return s.closeLocked(true)
	}
	return nil
}

// Revive cancels a pending retirement so the index can be published again. It reports
// false when the index has already been closed.
func (s *Shared) Revive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.retired = false
	return true
}

// Close retires the index. Holders keep a working index until they release it.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retired = true
	if s.refs == 0 {
		return s.closeLocked(true)
	}
	return nil
}

// Shutdown closes the index now, whatever its holders, and keeps it on disk for reuse.
func (s *Shared) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(false)
}

// Closed reports whether the Bleve index has been closed.
func (s *Shared) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Shared) closeLocked(remove bool) error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.BleveIndex.Close()
	if remove {
		err = errors.Join(err, Remove(s.path))
	}
	return err
}
