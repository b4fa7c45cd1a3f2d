package licenses

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
)

// MemoryStore keeps everything in process memory. It backs the "memory"
// storage driver and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.License
	events  map[string][]models.LicenseEvent
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.License),
		events:  make(map[string][]models.LicenseEvent),
	}
}

func (m *MemoryStore) Create(ctx context.Context, lic *models.License, ev models.LicenseEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[lic.Username]; ok {
		return common.ErrUsernameTaken
	}
	m.records[lic.Username] = lic.Clone()
	m.appendEvent(ev)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, username string) (*models.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lic, ok := m.records[username]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return lic.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, lic *models.License, ev models.LicenseEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.records[lic.Username]
	if !ok {
		return common.ErrUserNotFound
	}
	cur.ViewsRemaining = lic.ViewsRemaining
	cur.ExpiresAt = lic.ExpiresAt
	m.appendEvent(ev)
	return nil
}

func (m *MemoryStore) Events(ctx context.Context, username string, limit int) ([]models.LicenseEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.events[username]
	out := make([]models.LicenseEvent, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// appendEvent must be called with mu held.
func (m *MemoryStore) appendEvent(ev models.LicenseEvent) {
	m.nextID++
	ev.ID = m.nextID
	m.events[ev.Username] = append(m.events[ev.Username], ev)
}
