package agent

import (
	"sync"

	"github.com/user/docchat/internal/types"
	"github.com/user/docchat/pkg/llm"
)

// HistoryStore keeps per-thread conversation history for the lifetime of the
// process. It is an owned registry, not ambient state: created at startup,
// mutated only through these methods. History is append-only within a turn
// and is never evicted (the prompt builder bounds what reaches the model).
type HistoryStore struct {
	mu      sync.RWMutex
	threads map[types.ThreadID][]llm.Message
}

// NewHistoryStore creates an empty history registry.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{threads: make(map[types.ThreadID][]llm.Message)}
}

// Get returns a copy of the thread's history in chronological order.
func (h *HistoryStore) Get(id types.ThreadID) []llm.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msgs := h.threads[id]
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Append adds messages to the end of the thread's history, creating the
// thread on first use.
func (h *HistoryStore) Append(id types.ThreadID, msgs ...llm.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threads[id] = append(h.threads[id], msgs...)
}

// Len returns the number of messages stored for the thread.
func (h *HistoryStore) Len(id types.ThreadID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.threads[id])
}
