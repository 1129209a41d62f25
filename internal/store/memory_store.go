package store

import (
	"context"
	"sort"
	"sync"

	"roombook/pkg/domain"
)

// MemoryStore keeps reservations in-process. It backs tests and local
// development; the mutex gives it the same check-then-write atomicity the
// Postgres store gets from a serializable transaction.
type MemoryStore struct {
	mu           sync.RWMutex
	reservations map[int64]domain.Reservation
	nextID       int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations: make(map[int64]domain.Reservation),
		nextID:       1,
	}
}

// CreateChecked inserts the reservation if its slot is free, assigning the
// next sequential ID.
func (m *MemoryStore) CreateChecked(_ context.Context, r *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.slotFree(*r, 0) {
		return ErrConflict
	}
	r.ID = m.nextID
	m.nextID++
	m.reservations[r.ID] = *r
	return nil
}

// UpdateChecked rewrites the reservation if its new slot is free, ignoring
// its own prior interval.
func (m *MemoryStore) UpdateChecked(_ context.Context, r *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[r.ID]; !ok {
		return ErrNotFound
	}
	if !m.slotFree(*r, r.ID) {
		return ErrConflict
	}
	m.reservations[r.ID] = *r
	return nil
}

func (m *MemoryStore) slotFree(r domain.Reservation, excludeID int64) bool {
	for _, existing := range m.reservations {
		if existing.ID == excludeID || existing.Room != r.Room || existing.Date != r.Date {
			continue
		}
		if existing.OverlapsSlot(r.StartTime, r.EndTime) {
			return false
		}
	}
	return true
}

// Get retrieves a reservation by ID.
func (m *MemoryStore) Get(_ context.Context, id int64) (domain.Reservation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	return r, ok, nil
}

// Delete removes a reservation, reporting whether it existed.
func (m *MemoryStore) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[id]; !ok {
		return false, nil
	}
	delete(m.reservations, id)
	return true, nil
}

// ListForSlot returns same-room same-day reservations.
func (m *MemoryStore) ListForSlot(_ context.Context, room domain.Room, date domain.Date, excludeID int64) ([]domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Reservation
	for _, r := range m.reservations {
		if r.ID == excludeID || r.Room != room || r.Date != date {
			continue
		}
		res = append(res, r)
	}
	sortByDateStart(res)
	return res, nil
}

// ListUpcoming returns reservations starting at or after the reference point.
func (m *MemoryStore) ListUpcoming(_ context.Context, today domain.Date, now domain.TimeOfDay) ([]domain.Reservation, error) {
	return m.listSplit(today, now, true), nil
}

// ListPast returns reservations that started before the reference point.
func (m *MemoryStore) ListPast(_ context.Context, today domain.Date, now domain.TimeOfDay) ([]domain.Reservation, error) {
	return m.listSplit(today, now, false), nil
}

func (m *MemoryStore) listSplit(today domain.Date, now domain.TimeOfDay, upcoming bool) []domain.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		started := r.Date.Before(today) || (r.Date == today && r.StartTime < now)
		if started != upcoming {
			res = append(res, r)
		}
	}
	sortByDateStart(res)
	return res
}

func sortByDateStart(res []domain.Reservation) {
	sort.Slice(res, func(i, j int) bool {
		if res[i].Date != res[j].Date {
			return res[i].Date.Before(res[j].Date)
		}
		return res[i].StartTime < res[j].StartTime
	})
}
