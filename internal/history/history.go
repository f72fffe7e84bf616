// Package history keeps the append-only list of analyses produced in a
// session. Entries are never edited or removed once appended.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"call-insights-go/internal/types"
)

// Entry statuses.
const (
	StatusAnalyzed = "analyzed"
	StatusUnparsed = "unparsed"
)

var ErrNoSession = errors.New("history: session id required")

type Entry struct {
	ID         string              `json:"id"`
	CreatedAt  time.Time           `json:"created_at"`
	Filename   string              `json:"filename,omitempty"`
	Status     string              `json:"status"`
	Transcript string              `json:"transcript"`
	Analysis   *types.CallAnalysis `json:"analysis,omitempty"`
	RawReply   string              `json:"raw_reply,omitempty"`
	Usage      types.Usage         `json:"usage"`
}

// Clone returns a copy that shares no mutable state with e.
func (e Entry) Clone() Entry {
	if e.Analysis != nil {
		a := e.Analysis.Clone()
		e.Analysis = &a
	}
	return e
}

// Store is safe for concurrent use.
type Store interface {
	Append(ctx context.Context, session string, e Entry) error
	List(ctx context.Context, session string) ([]Entry, error)
}

// MemoryStore holds history in process memory; it is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]Entry{}}
}

func (m *MemoryStore) Append(ctx context.Context, session string, e Entry) error {
	if session == "" {
		return ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session] = append(m.sessions[session], e.Clone())
	return nil
}

func (m *MemoryStore) List(ctx context.Context, session string) ([]Entry, error) {
	if session == "" {
		return nil, ErrNoSession
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.sessions[session]
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out, nil
}
