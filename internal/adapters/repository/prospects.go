package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
)

// Prospects stores prospects. Implementations never hand out pointers to
// their internal state: values passed in and returned are copies.
type Prospects interface {
	// Create stores p, assigning an id when empty. Returns ErrConflict if
	// the id is taken.
	Create(ctx context.Context, p *model.Prospect) (string, error)

	// Get returns the prospect or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Prospect, error)

	// List returns every prospect ordered by creation time.
	List(ctx context.Context) ([]*model.Prospect, error)

	// Update applies fn to the stored prospect atomically and persists the
	// result. An error from fn aborts the update and is returned as is.
	Update(ctx context.Context, id string, fn func(*model.Prospect) error) (*model.Prospect, error)

	// Count returns the number of stored prospects.
	Count(ctx context.Context) (int, error)
}

// prepareCreate fills defaults shared by every Prospects implementation.
func prepareCreate(p *model.Prospect, now time.Time) (*model.Prospect, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil prospect", model.ErrInvalidProspect)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cp := p.Clone()
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.DealStage == "" {
		cp.DealStage = model.StageDiscovered
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	return cp, nil
}

// MemoryProspects is a Prospects backed by a map.
type MemoryProspects struct {
	mu   sync.RWMutex
	byID map[string]*model.Prospect
}

// NewMemoryProspects creates an empty in-memory store.
func NewMemoryProspects() *MemoryProspects {
	return &MemoryProspects{byID: make(map[string]*model.Prospect)}
}

func (m *MemoryProspects) Create(_ context.Context, p *model.Prospect) (string, error) {
	cp, err := prepareCreate(p, time.Now().UTC())
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[cp.ID]; ok {
		return "", fmt.Errorf("prospect %s: %w", cp.ID, ErrConflict)
	}
	m.byID[cp.ID] = cp
	return cp.ID, nil
}

func (m *MemoryProspects) Get(_ context.Context, id string) (*model.Prospect, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("prospect %s: %w", id, ErrNotFound)
	}
	return p.Clone(), nil
}

func (m *MemoryProspects) List(_ context.Context) ([]*model.Prospect, error) {
	m.mu.RLock()
	out := make([]*model.Prospect, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryProspects) Update(_ context.Context, id string, fn func(*model.Prospect) error) (*model.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("prospect %s: %w", id, ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	m.byID[id] = next
	return next.Clone(), nil
}

func (m *MemoryProspects) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID), nil
}

var _ Prospects = (*MemoryProspects)(nil)
