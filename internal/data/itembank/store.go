package itembank

import (
	"container/list"
	"context"
	"sync"
	"time"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
)

// Store is the item bank contract. Get reports ok=false for an item without
// calibrated parameters. Evict drops the item from this store only.
type Store interface {
	Get(ctx context.Context, itemID string) (*psy.ItemParameters, bool, error)
	Set(ctx context.Context, params *psy.ItemParameters) error
	Evict(ctx context.Context, itemID string) error
}

type memoryEntry struct {
	params    psy.ItemParameters
	expiresAt time.Time
}

// MemoryStore is a process-local store. With a capacity it evicts the least
// recently used item, and with a ttl entries expire so writes made by other
// processes become visible once the local copy ages out.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

// NewMemoryStore returns an unbounded store whose entries never expire.
func NewMemoryStore() *MemoryStore {
	return NewBoundedMemoryStore(0, 0)
}

// NewBoundedMemoryStore keeps at most capacity items for at most ttl each.
// Zero disables either bound.
func NewBoundedMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity < 0 {
		capacity = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryStore{
		capacity: capacity,
		ttl:      ttl,
		items:    map[string]*list.Element{},
		order:    list.New(),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, itemID string) (*psy.ItemParameters, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.items[itemID]
	if !ok {
		return nil, false, nil
	}
	e := elem.Value.(*memoryEntry)
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.removeLocked(elem)
		return nil, false, nil
	}
	s.order.MoveToFront(elem)
	p := e.params
	return &p, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, params *psy.ItemParameters) error {
	if params == nil || params.ItemID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}
	if elem, ok := s.items[params.ItemID]; ok {
		elem.Value = &memoryEntry{params: *params, expiresAt: expiresAt}
		s.order.MoveToFront(elem)
		return nil
	}
	s.items[params.ItemID] = s.order.PushFront(&memoryEntry{params: *params, expiresAt: expiresAt})
	if s.capacity > 0 && s.order.Len() > s.capacity {
		if oldest := s.order.Back(); oldest != nil {
			s.removeLocked(oldest)
		}
	}
	return nil
}

func (s *MemoryStore) Evict(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.items[itemID]; ok {
		s.removeLocked(elem)
	}
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryStore) removeLocked(elem *list.Element) {
	s.order.Remove(elem)
	delete(s.items, elem.Value.(*memoryEntry).params.ItemID)
}
