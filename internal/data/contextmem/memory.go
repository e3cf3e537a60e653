package contextmem

import (
	"context"
	"sync"

	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/attention"
)

// Memory holds each learner's bounded interaction context. Implementations
// keep at most their capacity of records per learner, evicting the oldest.
type Memory interface {
	Append(ctx context.Context, learnerID string, rec attention.InteractionRecord) error
	Recent(ctx context.Context, learnerID string) ([]attention.InteractionRecord, error)
}

type learnerContext struct {
	mu  sync.Mutex
	ctx *attention.InteractionContext
}

// InMemory keeps contexts in process. Learners never contend with each other.
type InMemory struct {
	capacity int

	mu       sync.Mutex
	learners map[string]*learnerContext
}

func NewInMemory(capacity int) *InMemory {
	if capacity < 1 {
		capacity = attention.DefaultCapacity
	}
	return &InMemory{capacity: capacity, learners: map[string]*learnerContext{}}
}

func (m *InMemory) entry(learnerID string) *learnerContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	lc, ok := m.learners[learnerID]
	if !ok {
		lc = &learnerContext{ctx: attention.NewInteractionContext(m.capacity)}
		m.learners[learnerID] = lc
	}
	return lc
}

func (m *InMemory) Append(ctx context.Context, learnerID string, rec attention.InteractionRecord) error {
	lc := m.entry(learnerID)
	lc.mu.Lock()
	lc.ctx.Append(rec)
	lc.mu.Unlock()
	return nil
}

// Recent never creates an entry; unknown learners have an empty context.
func (m *InMemory) Recent(ctx context.Context, learnerID string) ([]attention.InteractionRecord, error) {
	m.mu.Lock()
	lc, ok := m.learners[learnerID]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.ctx.Records(), nil
}

// Len reports how many learners have a stored context.
func (m *InMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.learners)
}
