// AngelaMos | 2026
// memory.go

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

// Memory keeps licenses in a map. Records are cloned on the way in and out
// so callers never share state with the store.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*license.License
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]*license.License),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, code string) (*license.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.items[code]
	if !ok {
		return nil, fmt.Errorf("get license: %w", core.ErrNotFound)
	}
	return l.Clone(), nil
}

func (m *Memory) Create(_ context.Context, l *license.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[l.Code]; ok {
		return fmt.Errorf("create license: %w", core.ErrDuplicateKey)
	}
	m.items[l.Code] = l.Clone()
	return nil
}


func (m *Memory) Put(_ context.Context, l *license.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[l.Code] = l.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[code]; !ok {
		return fmt.Errorf("delete license: %w", core.ErrNotFound)
	}
	delete(m.items, code)
	return nil
}

func (m *Memory) List(_ context.Context) ([]license.License, error) {
	m.mu.RLock()
	out := make([]license.License, 0, len(m.items))
	for _, l := range m.items {
		out = append(out, *l.Clone())
	}
	m.mu.RUnlock()

	sortLicenses(out)
	return out, nil
}

func (m *Memory) AddUsage(
	_ context.Context,
	code string,
	delta int,
) (*license.License, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.items[code]
	if !ok {
		return nil, fmt.Errorf("add usage: %w", core.ErrNotFound)
	}

	l.QuestionsUsed = clampUsage(l.QuestionsUsed + delta)
	l.UpdatedAt = m.now().UTC()
	return l.Clone(), nil
}

func (m *Memory) MarkActivated(
	_ context.Context,
	code string,
	at time.Time,
) (*license.License, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.items[code]
	if !ok {
		return nil, false, fmt.Errorf("mark activated: %w", core.ErrNotFound)
	}
	stamped := l.StampActivation(at)
	return l.Clone(), stamped, nil
}

func (m *Memory) SetStatus(
	_ context.Context,
	code string,
	status license.RecordStatus,
) (*license.License, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.items[code]
	if !ok {
		return nil, false, fmt.Errorf("set status: %w", core.ErrNotFound)
	}
	changed := l.ChangeStatus(status, m.now())
	return l.Clone(), changed, nil
}

func clampUsage(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// sortLicenses orders listings by creation time, then code.
func sortLicenses(ls []license.License) {
	sort.Slice(ls, func(i, j int) bool {
		if !ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].CreatedAt.Before(ls[j].CreatedAt)
		}
		return ls[i].Code < ls[j].Code
	})
}
