// Package store implements the Order Store component of spec.md §4.1: a
// keyed mapping from order id to resting-order record, plus the active
// flag that governs the retirement sequence.
package store

import (
	"fmt"
	"sync"

	"github.com/Aidin1998/ratiomatch/internal/matching/errs"
	"github.com/Aidin1998/ratiomatch/internal/matching/model"
)

// Store owns order lifecycle: allocation of dense ids, storage of records,
// and the active/inactive flag that gates reads and mutations.
type Store struct {
	mu      sync.RWMutex
	nextID  uint64
	orders  map[uint64]*model.Order
}

// New returns a Store whose next allocated id is model.FirstOrderID (2);
// ids 0 and 1 are reserved sentinels and are never issued.
func New() *Store {
	return &Store{
		nextID: model.FirstOrderID,
		orders: make(map[uint64]*model.Order),
	}
}

// AllocateID returns the next monotonic order id.
func (s *Store) AllocateID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

// Put inserts a new, active order record under its id.
func (s *Store) Put(o *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.Active = true
	s.orders[o.ID] = o
}

// Get returns the record for id. It is an error to read an id that is not
// active, unless the caller is mid-retirement (use GetRaw for that case).
func (s *Store) Get(id uint64) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok || !o.Active {
		return nil, fmt.Errorf("%w: id=%d", errs.ErrInactiveOrder, id)
	}
	return o, nil
}

// GetRaw returns the record for id regardless of its active flag, and
// reports whether a record exists under id at all.
func (s *Store) GetRaw(id uint64) (*model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// IsActive reports the active flag for id.
func (s *Store) IsActive(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return ok && o.Active
}

// SetActive flips the active flag for id. It does not remove the record;
// Remove does that once the book has unlinked it.
func (s *Store) SetActive(id uint64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.Active = active
	}
}

// Remove deletes the record for id entirely. Callers must have already
// unlinked id from the book and cleared its active flag.
func (s *Store) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
}
