package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSubjects = SubjectList{
	{MachineModel: "310SL Backhoe", PartDescription: "Hydraulic filter", PartID: "AT12345", Breadcrumb: "Hydraulics > Filters > Return filter"},
	{MachineModel: "644K Loader", PartDescription: "Fuel pump", PartID: "RE54321", Breadcrumb: "Engine > Fuel system"},
}

func newTestManager(t *testing.T) (*Manager, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	return NewManager(store, testSubjects, ManagerOptions{Pick: func(n int) int { return n - 1 }}), store
}

func TestManager_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("creates active session with subject", func(t *testing.T) {
		manager, _ := newTestManager(t)

		session, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, session.ID)
		assert.Equal(t, StatusActive, session.Status)
		assert.Equal(t, "owner-1", session.OwnerID)
		assert.Equal(t, testSubjects[1], session.Subject)
	})

	t.Run("confirmation must match exactly", func(t *testing.T) {
		manager, _ := newTestManager(t)

		for _, phrase := range []string{"", "Start new simulation", "start new simulation ", "start"} {
			_, err := manager.Start(ctx, "owner-1", phrase)
			assert.ErrorIs(t, err, ErrConfirmationMismatch, phrase)
		}

		_, err := manager.GetActive(ctx, "owner-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("custom confirmation phrase", func(t *testing.T) {
		manager := NewManager(NewInMemoryStore(), testSubjects, ManagerOptions{ConfirmationPhrase: "begin"})

		_, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
		assert.ErrorIs(t, err, ErrConfirmationMismatch)

		_, err = manager.Start(ctx, "owner-1", "begin")
		assert.NoError(t, err)
	})

	t.Run("second start fails and keeps the first session", func(t *testing.T) {
		manager, _ := newTestManager(t)

		first, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
		require.NoError(t, err)

		_, err = manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
		assert.ErrorIs(t, err, ErrAlreadyActive)

		active, err := manager.GetActive(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, active.ID)
	})

	t.Run("owners are independent", func(t *testing.T) {
		manager, _ := newTestManager(t)

		_, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
		require.NoError(t, err)
		_, err = manager.Start(ctx, "owner-2", DefaultConfirmationPhrase)
		assert.NoError(t, err)
	})

	t.Run("no subjects", func(t *testing.T) {
		incomplete := SubjectList{{MachineModel: "310SL Backhoe", PartID: "AT12345"}}
		for _, catalog := range []Catalog{SubjectList{}, incomplete} {
			manager := NewManager(NewInMemoryStore(), catalog, ManagerOptions{})

			_, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
			assert.ErrorIs(t, err, ErrNoSubjectsAvailable)
		}
	})

	t.Run("catalog error", func(t *testing.T) {
		manager := NewManager(NewInMemoryStore(), failingCatalog{}, ManagerOptions{})

		_, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
		assert.ErrorContains(t, err, "catalog offline")
	})
}

func TestManager_ConcurrentStart(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyActive):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func TestManager_Complete(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	session, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
	require.NoError(t, err)

	completed, err := manager.Complete(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	t.Run("completed session is not active", func(t *testing.T) {
		_, err := manager.GetActive(ctx, "owner-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("completing twice is invalid", func(t *testing.T) {
		_, err := manager.Complete(ctx, session.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := manager.Complete(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("owner can start again", func(t *testing.T) {
		next, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
		require.NoError(t, err)
		assert.NotEqual(t, session.ID, next.ID)
	})
}

func TestManager_Transcript(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	session, err := manager.Start(ctx, "owner-1", DefaultConfirmationPhrase)
	require.NoError(t, err)

	_, err = manager.Append(ctx, session.ID, SenderUser, "Hi, what do you need?")
	require.NoError(t, err)
	_, err = manager.Append(ctx, session.ID, SenderAI, "A filter, I think.")
	require.NoError(t, err)

	entries, err := manager.Transcript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user: Hi, what do you need?", entries[0].Line())
	assert.Equal(t, "ai: A filter, I think.", entries[1].Line())

	_, err = manager.Transcript(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = manager.Append(ctx, uuid.New(), SenderUser, "orphan")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingCatalog struct{}

func (failingCatalog) Subjects(ctx context.Context) ([]Subject, error) {
	return nil, errors.New("catalog offline")
}
