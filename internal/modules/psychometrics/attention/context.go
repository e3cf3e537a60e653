package attention

import "time"

const DefaultCapacity = 20

// InteractionRecord is one completed interaction remembered for attention.
type InteractionRecord struct {
	ChallengeID string    `json:"challengeId,omitempty"`
	Features    Features  `json:"features"`
	Outcome     *Outcome  `json:"outcome,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// InteractionContext is a bounded FIFO of a learner's recent interactions.
// It is not safe for concurrent use; callers serialize per learner.
type InteractionContext struct {
	capacity int
	records  []InteractionRecord
}

func NewInteractionContext(capacity int) *InteractionContext {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &InteractionContext{capacity: capacity, records: make([]InteractionRecord, 0, capacity)}
}

// Append adds rec and evicts the oldest entries beyond capacity. It returns
// the number of evicted records.
func (c *InteractionContext) Append(rec InteractionRecord) int {
	c.records = append(c.records, rec)
	over := len(c.records) - c.capacity
	if over <= 0 {
		return 0
	}
	kept := make([]InteractionRecord, c.capacity)
	copy(kept, c.records[over:])
	c.records = kept
	return over
}

// Records returns a copy, oldest first.
func (c *InteractionContext) Records() []InteractionRecord {
	out := make([]InteractionRecord, len(c.records))
	copy(out, c.records)
	return out
}

func (c *InteractionContext) Len() int      { return len(c.records) }
func (c *InteractionContext) Capacity() int { return c.capacity }
