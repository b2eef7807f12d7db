// Package registry tracks live connections: their session identity, the
// in-flight dialogue turn, the transcription link and buffered recording data.
package registry

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/caseprep/interview-live/internal/model/session"
)

type record struct {
	session    *session.Session
	turnToken  uint64
	cancelTurn context.CancelFunc
	stopSTT    func()
	audio      bytes.Buffer
}

// Registry is the process-wide connection table. Each entry is only mutated
// by its own connection's handlers plus the disconnect path; the lock guards
// the table across connections.
type Registry struct {
	mu        sync.Mutex
	conns     map[string]*record
	nextToken uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{conns: make(map[string]*record)}
}

// Register creates the session entry for a freshly validated connection.
func (r *Registry) Register(connID, userID, threadID, agentID string) *session.Session {
	now := time.Now()
	sess := &session.Session{
		ConnID:    connID,
		UserID:    userID,
		ThreadID:  threadID,
		AgentID:   agentID,
		CreatedAt: now,
		Recording: session.RecordingMeta{
			ThreadID:      threadID,
			ConnID:        connID,
			ConnStartedAt: now.UnixMilli(),
		},
	}

	r.mu.Lock()
	r.conns[connID] = &record{session: sess}
	r.mu.Unlock()
	return sess
}

// Lookup returns the session for a connection, if registered.
func (r *Registry) Lookup(connID string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return rec.session, true
}

// AttachSTT stores the teardown hook for the connection's transcription link.
func (r *Registry) AttachSTT(connID string, stop func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.conns[connID]; ok {
		rec.stopSTT = stop
	}
}

// StartTurn records a new in-flight turn, cancelling any turn still running
// on the same connection (cancel-and-replace: at most one turn per connection
// is live, and a newer utterance supersedes an older one). The returned token
// identifies the turn for FinishTurn.
func (r *Registry) StartTurn(connID string, cancel context.CancelFunc) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok {
		return 0, false
	}

	if rec.cancelTurn != nil {
		rec.cancelTurn()
	}

	r.nextToken++
	rec.turnToken = r.nextToken
	rec.cancelTurn = cancel
	return r.nextToken, true
}

// FinishTurn clears the in-flight turn if it is still the one identified by
// token. A turn that was already replaced or torn down is left alone.
func (r *Registry) FinishTurn(connID string, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok || rec.turnToken != token {
		return
	}
	rec.cancelTurn = nil
	rec.turnToken = 0
}

// AppendAudio buffers a captured audio packet and stamps recording metadata.
func (r *Registry) AppendAudio(connID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok {
		return
	}
	rec.audio.Write(data)
	rec.session.Recording.MarkAudio(time.Now().UnixMilli())
}

// CancelAndClear tears a connection down: cancels any in-flight turn and the
// transcription link, removes the entry, and hands back the session with its
// buffered audio for a best-effort recording flush. Safe to call more than
// once; later calls find nothing.
func (r *Registry) CancelAndClear(connID string) (*session.Session, []byte, bool) {
	r.mu.Lock()
	rec, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return nil, nil, false
	}
	delete(r.conns, connID)
	r.mu.Unlock()

	if rec.cancelTurn != nil {
		rec.cancelTurn()
	}
	if rec.stopSTT != nil {
		rec.stopSTT()
	}

	rec.session.Recording.ConnFinishedAt = time.Now().UnixMilli()
	return rec.session, rec.audio.Bytes(), true
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
