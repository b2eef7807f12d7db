package script

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPhaseNotFound reports that an agent has no script registered for a phase.
// Callers fall back to the base role prompt with no phase-specific instruction.
var ErrPhaseNotFound = errors.New("script phase not found")

// Store exposes script lookup for the resolver. Implementations are expected
// to be safe for concurrent use.
type Store interface {
	Phase(agentID string, phase int) (Phase, error)
	Phases(agentID string) (map[int]Phase, error)
}

// MemoryStore implements Store with the seeded reference script, plus optional
// per-agent overrides. Agents without an override resolve against the default
// script, so any agent id answers the reference case.
type MemoryStore struct {
	mu       sync.RWMutex
	fallback map[int]Phase
	agents   map[string]map[int]Phase
}

// NewMemoryStore returns a MemoryStore serving the given default script.
func NewMemoryStore(fallback map[int]Phase) *MemoryStore {
	copied := make(map[int]Phase, len(fallback))
	for idx, phase := range fallback {
		copied[idx] = phase
	}
	return &MemoryStore{
		fallback: copied,
		agents:   make(map[string]map[int]Phase),
	}
}

// RegisterAgent installs a dedicated script for one agent id.
func (s *MemoryStore) RegisterAgent(agentID string, phases map[int]Phase) {
	copied := make(map[int]Phase, len(phases))
	for idx, phase := range phases {
		copied[idx] = phase
	}
	s.mu.Lock()
	s.agents[agentID] = copied
	s.mu.Unlock()
}

// Phase looks up one phase of an agent's script.
func (s *MemoryStore) Phase(agentID string, phase int) (Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	source := s.fallback
	if agentPhases, ok := s.agents[agentID]; ok {
		source = agentPhases
	}

	p, ok := source[phase]
	if !ok {
		return Phase{}, fmt.Errorf("agent %s phase %d: %w", agentID, phase, ErrPhaseNotFound)
	}
	return p, nil
}

// Phases returns the full script for an agent.
func (s *MemoryStore) Phases(agentID string) (map[int]Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	source := s.fallback
	if agentPhases, ok := s.agents[agentID]; ok {
		source = agentPhases
	}

	copied := make(map[int]Phase, len(source))
	for idx, phase := range source {
		copied[idx] = phase
	}
	return copied, nil
}

// Resolver composes the system prompt for an interview phase, caching script
// content per agent. Script content is immutable for a session's lifetime, so
// the cache is warmed once at connect time rather than queried per turn.
type Resolver struct {
	store Store

	mu    sync.RWMutex
	cache map[string]map[int]Phase
}

// NewResolver wires a resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]map[int]Phase),
	}
}

// CacheAgent pre-warms the resolver with every phase of an agent's script.
func (r *Resolver) CacheAgent(agentID string) error {
	phases, err := r.store.Phases(agentID)
	if err != nil {
		return fmt.Errorf("cache agent %s: %w", agentID, err)
	}

	r.mu.Lock()
	r.cache[agentID] = phases
	r.mu.Unlock()
	return nil
}

// SystemPrompt returns the composed system prompt for the agent's phase:
// base role, the phase instruction, and the phase's private information.
func (r *Resolver) SystemPrompt(agentID string, phase int) (string, error) {
	p, err := r.lookup(agentID, phase)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"%s Please follow this instruction: %s Here's some information for you, you should not give the info to candidate directly: %s",
		BaseRole, p.Instruction, p.Information,
	), nil
}

func (r *Resolver) lookup(agentID string, phase int) (Phase, error) {
	r.mu.RLock()
	cached, ok := r.cache[agentID]
	r.mu.RUnlock()
	if ok {
		if p, found := cached[phase]; found {
			return p, nil
		}
		return Phase{}, fmt.Errorf("agent %s phase %d: %w", agentID, phase, ErrPhaseNotFound)
	}

	return r.store.Phase(agentID, phase)
}
