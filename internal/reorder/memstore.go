package reorder

import (
	"context"
	"sync"

	"github.com/hylla/dragboard/internal/domain"
)

// MemoryStore is an in-process TaskStore guarded by a mutex.
type MemoryStore struct {
	mu    sync.Mutex
	tasks []domain.Task
	calls int
}

// NewMemoryStore returns a store holding a copy of tasks.
func NewMemoryStore(tasks []domain.Task) *MemoryStore {
	return &MemoryStore{tasks: domain.CloneTasks(tasks)}
}

// Tasks returns a copy of the stored tasks.
func (m *MemoryStore) Tasks(context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneTasks(m.tasks), nil
}

// ApplyUpdate replaces the collection with update's result.
func (m *MemoryStore) ApplyUpdate(_ context.Context, update func([]domain.Task) ([]domain.Task, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	next, err := update(domain.CloneTasks(m.tasks))
	if err != nil {
		return err
	}
	m.tasks = domain.CloneTasks(next)
	return nil
}

// Updates returns how many times ApplyUpdate ran.
func (m *MemoryStore) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
