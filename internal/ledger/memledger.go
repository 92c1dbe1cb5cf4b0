package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemLedger is an in-memory Ledger for tests and ledger-less runs.
type MemLedger struct {
	mu          sync.Mutex
	batches     map[string]*Batch
	order       []string
	transitions map[string][]Transition
	nextID      int64
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		batches:     make(map[string]*Batch),
		transitions: make(map[string][]Transition),
	}
}

func (m *MemLedger) BeginBatch(calPath string, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.batches[id] = &Batch{ID: id, CalPath: calPath, StartedAt: at.UTC(), Status: StatusRunning}
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemLedger) FinishBatch(id string, at time.Time, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return fmt.Errorf("finish batch %s: %w", id, ErrUnknownBatch)
	}
	b.FinishedAt = at.UTC()
	b.Status, b.Error = finishStatus(runErr)
	return nil
}

func (m *MemLedger) RecordTransition(t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[t.BatchID]; !ok {
		return fmt.Errorf("record transition for batch %s: %w", t.BatchID, ErrUnknownBatch)
	}
	m.nextID++
	t.ID = m.nextID
	t.At = t.At.UTC()
	m.transitions[t.BatchID] = append(m.transitions[t.BatchID], t)
	return nil
}

func (m *MemLedger) ListBatches() ([]Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Batch, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, *m.batches[m.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *MemLedger) ListTransitions(batchID string) ([]Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[batchID]; !ok {
		return nil, fmt.Errorf("list transitions for batch %s: %w", batchID, ErrUnknownBatch)
	}
	return append([]Transition(nil), m.transitions[batchID]...), nil
}

func (m *MemLedger) Close() error { return nil }

var _ Ledger = (*MemLedger)(nil)
