package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dan9191/commission-scheduler/internal/apperror"
	"github.com/Dan9191/commission-scheduler/internal/models"
)

// MemoryStore keeps schedules in process memory, in insertion order
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*models.Schedule
	locks   map[string]*sync.Mutex
}

// NewMemoryStore initializes an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.Schedule),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Create stores a copy of schedule under a fresh id
func (m *MemoryStore) Create(ctx context.Context, schedule *models.Schedule) (string, error) {
	if err := validateSchedule(schedule); err != nil {
		return "", err
	}

	record := schedule.Clone()
	record.ID = newScheduleID()
	record.Version = 1

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	m.locks[record.ID] = &sync.Mutex{}
	m.order = append(m.order, record.ID)
	return record.ID, nil
}

// Get returns a copy of the schedule with the given id
func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, apperror.ErrNotFound)
	}
	return record.Clone(), nil
}

// Update applies mutate while holding the per-id lock
func (m *MemoryStore) Update(ctx context.Context, id string, mutate func(*models.Schedule) error) (*models.Schedule, error) {
	unlock, err := m.lockID(id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(current); err != nil {
		return nil, err
	}
	if err := validateSchedule(current); err != nil {
		return nil, err
	}
	current.ID = id
	current.Version++

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return nil, fmt.Errorf("update %s: %w", id, apperror.ErrNotFound)
	}
	m.records[id] = current.Clone()
	return current, nil
}

// Delete removes the schedule with the given id
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	unlock, err := m.lockID(id)
	if err != nil {
		return err
	}
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, apperror.ErrNotFound)
	}
	delete(m.records, id)
	delete(m.locks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns copies of the schedules matching filter in insertion order
func (m *MemoryStore) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	schedules := make([]models.Schedule, 0, len(m.order))
	for _, id := range m.order {
		record := m.records[id]
		if filter.Matches(record) {
			schedules = append(schedules, *record.Clone())
		}
	}
	return schedules, nil
}

func (m *MemoryStore) lockID(id string) (func(), error) {
	m.mu.RLock()
	lock, ok := m.locks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", id, apperror.ErrNotFound)
	}
	lock.Lock()
	return lock.Unlock, nil
}
