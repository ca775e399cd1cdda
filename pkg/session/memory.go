package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps sessions and transcripts in process memory (for tests and local runs)
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	active   map[string]uuid.UUID               // owner -> active session
	entries  map[uuid.UUID][]*ConversationEntry // session -> transcript
	nextID   uint
}

// NewInMemoryStore creates an empty in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[uuid.UUID]*Session),
		active:   make(map[string]uuid.UUID),
		entries:  make(map[uuid.UUID][]*ConversationEntry),
	}
}

// CreateSession creates an active session; check and insert share one critical section
func (s *InMemoryStore) CreateSession(ctx context.Context, ownerID string, subject Subject) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[ownerID]; exists {
		return nil, ErrAlreadyActive
	}

	session := NewSession(ownerID, subject)
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	s.sessions[session.ID] = session
	s.active[ownerID] = session.ID

	return cloneSession(session), nil
}

// GetSession retrieves a session by ID
func (s *InMemoryStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrNotFound
	}

	return cloneSession(session), nil
}

// FindActive retrieves the owner's active session
func (s *InMemoryStore) FindActive(ctx context.Context, ownerID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.active[ownerID]
	if !exists {
		return nil, ErrNotFound
	}

	return cloneSession(s.sessions[id]), nil
}

// CompleteSession moves an active session to completed
func (s *InMemoryStore) CompleteSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrNotFound
	}
	if !session.Active() {
		return nil, ErrInvalidState
	}

	now := time.Now().UTC()
	session.Status = StatusCompleted
	session.ActiveOwner = nil
	session.CompletedAt = &now
	session.UpdatedAt = now
	delete(s.active, session.OwnerID)

	return cloneSession(session), nil
}

// AppendEntry saves a conversation entry, assigning its ID and creation time
func (s *InMemoryStore) AppendEntry(ctx context.Context, entry *ConversationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[entry.SessionID]; !exists {
		return ErrNotFound
	}

	s.nextID++
	entry.ID = s.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	stored := *entry
	s.entries[entry.SessionID] = append(s.entries[entry.SessionID], &stored)

	return nil
}

// ListEntries retrieves a session's transcript ordered by creation time, then ID
func (s *InMemoryStore) ListEntries(ctx context.Context, sessionID uuid.UUID) ([]*ConversationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*ConversationEntry, 0, len(s.entries[sessionID]))
	for _, entry := range s.entries[sessionID] {
		copied := *entry
		entries = append(entries, &copied)
	}

	slices.SortStableFunc(entries, func(a, b *ConversationEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.ID) - int(b.ID)
	})

	return entries, nil
}

// cloneSession copies a session so callers cannot mutate stored state
func cloneSession(session *Session) *Session {
	copied := *session
	if session.ActiveOwner != nil {
		owner := *session.ActiveOwner
		copied.ActiveOwner = &owner
	}
	if session.CompletedAt != nil {
		completed := *session.CompletedAt
		copied.CompletedAt = &completed
	}
	return &copied
}
