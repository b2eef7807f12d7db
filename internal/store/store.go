// Package store persists interview transcripts keyed by thread.
package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

// ErrThreadRequired reports a persist call without a thread id.
var ErrThreadRequired = errors.New("thread id is required")

// Turn is one durable transcript record. Role is "human" for candidate turns
// and the provider identifier for interviewer turns. Timestamp is a unix
// millisecond string; when empty the store stamps the current time.
type Turn struct {
	ThreadID  string
	UserID    string
	Role      string
	Content   string
	Phase     int
	Timestamp string
}

// TurnStore is the transcript persistence boundary.
type TurnStore interface {
	PersistTurn(ctx context.Context, turn Turn) error
}

// NowMillis returns the current unix timestamp in milliseconds as a string,
// the format used to key messages within a thread.
func NowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// MemoryStore keeps transcripts in process memory, suitable for development
// and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

// NewMemoryStore bootstraps the in-memory transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]Turn)}
}

// PersistTurn appends a turn to its thread's transcript.
func (s *MemoryStore) PersistTurn(_ context.Context, turn Turn) error {
	if turn.ThreadID == "" {
		return ErrThreadRequired
	}
	if turn.Timestamp == "" {
		turn.Timestamp = NowMillis()
	}

	s.mu.Lock()
	s.turns[turn.ThreadID] = append(s.turns[turn.ThreadID], turn)
	s.mu.Unlock()
	return nil
}

// Transcript returns stored turns for a thread in persist order.
func (s *MemoryStore) Transcript(threadID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[threadID]
	copied := make([]Turn, len(turns))
	copy(copied, turns)
	return copied
}
