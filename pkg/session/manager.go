package session

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultConfirmationPhrase is the literal a trainee types to start a new rehearsal
const DefaultConfirmationPhrase = "start new simulation"

// ManagerOptions configures a Manager
type ManagerOptions struct {
	// ConfirmationPhrase defaults to DefaultConfirmationPhrase
	ConfirmationPhrase string

	// Pick returns an index in [0, n); defaults to rand.IntN
	Pick func(n int) int

	Logger logrus.FieldLogger
}

// Manager runs the session lifecycle: (none) -> active -> completed
type Manager struct {
	store   Store
	catalog Catalog
	phrase  string
	pick    func(n int) int
	log     *logrus.Entry
}

// NewManager creates a session manager over a store and a subject catalog
func NewManager(store Store, catalog Catalog, opts ManagerOptions) *Manager {
	m := &Manager{
		store:   store,
		catalog: catalog,
		phrase:  opts.ConfirmationPhrase,
		pick:    opts.Pick,
		log:     utils.Component(opts.Logger, "session"),
	}
	if m.phrase == "" {
		m.phrase = DefaultConfirmationPhrase
	}
	if m.pick == nil {
		m.pick = rand.IntN
	}
	return m
}

// Start creates an active session with a random subject. The phrase must match exactly
func (m *Manager) Start(ctx context.Context, ownerID, confirmationPhrase string) (*Session, error) {
	if confirmationPhrase != m.phrase {
		return nil, ErrConfirmationMismatch
	}

	subject, err := m.randomSubject(ctx)
	if err != nil {
		return nil, err
	}

	session, err := m.store.CreateSession(ctx, ownerID, subject)
	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"owner":   ownerID,
		"session": session.ID,
		"machine": subject.MachineModel,
	}).Info("session started")

	return session, nil
}

// Complete moves an active session to completed. Unknown sessions fail with ErrNotFound and
// sessions that are already completed fail with ErrInvalidState
func (m *Manager) Complete(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	session, err := m.store.CompleteSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	m.log.WithField("session", sessionID).Info("session completed")
	return session, nil
}

// GetActive returns the owner's active session, or ErrNotFound when there is none
func (m *Manager) GetActive(ctx context.Context, ownerID string) (*Session, error) {
	return m.store.FindActive(ctx, ownerID)
}

// Get returns a session by ID
func (m *Manager) Get(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	return m.store.GetSession(ctx, sessionID)
}

// Transcript returns the session's conversation entries in chronological order
func (m *Manager) Transcript(ctx context.Context, sessionID uuid.UUID) ([]*ConversationEntry, error) {
	if _, err := m.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return m.store.ListEntries(ctx, sessionID)
}

// Append adds an entry to the session transcript
func (m *Manager) Append(ctx context.Context, sessionID uuid.UUID, sender Sender, message string) (*ConversationEntry, error) {
	entry := NewEntry(sessionID, sender, message)
	if err := m.store.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// randomSubject picks uniformly among the complete subjects in the catalog
func (m *Manager) randomSubject(ctx context.Context) (Subject, error) {
	subjects, err := m.catalog.Subjects(ctx)
	if err != nil {
		return Subject{}, fmt.Errorf("failed to load subjects: %w", err)
	}

	usable := subjects[:0:0]
	for _, subject := range subjects {
		if subject.Complete() {
			usable = append(usable, subject)
		}
	}
	if len(usable) == 0 {
		return Subject{}, ErrNoSubjectsAvailable
	}

	return usable[m.pick(len(usable))], nil
}
