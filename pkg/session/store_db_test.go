package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDBStore runs the gorm store against a throwaway SQLite file. One open connection
// keeps writes serialized the way row locks would on MySQL
func newTestDBStore(t *testing.T) *MySqlStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "callsim.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store, err := NewMySqlStoreFromDB(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMySqlStore_CreateSession(t *testing.T) {
	ctx := context.Background()
	store := newTestDBStore(t)

	session, err := store.CreateSession(ctx, "owner-1", testSubjects[0])
	require.NoError(t, err)
	assert.Equal(t, StatusActive, session.Status)

	active, err := store.FindActive(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, active.ID)
	assert.Equal(t, testSubjects[0], active.Subject)

	t.Run("unique active owner", func(t *testing.T) {
		_, err := store.CreateSession(ctx, "owner-1", testSubjects[1])
		assert.ErrorIs(t, err, ErrAlreadyActive)

		active, err := store.FindActive(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, session.ID, active.ID)
	})

	t.Run("other owner", func(t *testing.T) {
		_, err := store.CreateSession(ctx, "owner-2", testSubjects[1])
		assert.NoError(t, err)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := store.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "owner-1", got.OwnerID)

		_, err = store.GetSession(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.FindActive(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMySqlStore_ConcurrentStart(t *testing.T) {
	store := newTestDBStore(t)
	manager := NewManager(store, testSubjects, ManagerOptions{})
	ctx := context.Background()

	const attempts = 10
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

func TestMySqlStore_CompleteSession(t *testing.T) {
	ctx := context.Background()
	store := newTestDBStore(t)

	session, err := store.CreateSession(ctx, "owner-1", testSubjects[0])
	require.NoError(t, err)

	completed, err := store.CompleteSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Nil(t, completed.ActiveOwner)
	require.NotNil(t, completed.CompletedAt)

	stored, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Nil(t, stored.ActiveOwner)

	_, err = store.CompleteSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = store.CompleteSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindActive(ctx, "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Completed sessions release the owner's active slot
	next, err := store.CreateSession(ctx, "owner-1", testSubjects[1])
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, next.ID)
}

func TestMySqlStore_EntryOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestDBStore(t)

	session, err := store.CreateSession(ctx, "owner-1", testSubjects[0])
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	later := NewEntry(session.ID, SenderAI, "second")
	later.CreatedAt = base.Add(time.Second)
	earlier := NewEntry(session.ID, SenderUser, "first")
	earlier.CreatedAt = base
	tie := NewEntry(session.ID, SenderUser, "third")
	tie.CreatedAt = base.Add(time.Second)

	require.NoError(t, store.AppendEntry(ctx, later))
	require.NoError(t, store.AppendEntry(ctx, earlier))
	require.NoError(t, store.AppendEntry(ctx, tie))

	entries, err := store.ListEntries(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
	assert.Equal(t, "third", entries[2].Message)
	assert.Equal(t, SenderUser, entries[0].Sender)

	empty, err := store.ListEntries(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMySqlStore_Catalog(t *testing.T) {
	ctx := context.Background()
	store := newTestDBStore(t)

	catalog, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	require.NoError(t, store.SaveMachines(ctx, catalog.Machines()))

	subjects, err := store.Subjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 3)
	assert.Equal(t, Subject{
		MachineModel:    "310SL Backhoe",
		PartDescription: "Hydraulic filter",
		PartID:          "AT12345",
		Breadcrumb:      "Hydraulics > Filters > Return filter",
	}, subjects[0])

	t.Run("saving again replaces parts", func(t *testing.T) {
		updated, err := ParseCatalog([]byte(`
machines:
  - model: 644K Loader
    pin_low: 1DW644KX
    parts:
      - part_id: RE11111
        description: Air filter
        breadcrumb: Engine > Intake
`))
		require.NoError(t, err)
		require.NoError(t, store.SaveMachines(ctx, updated.Machines()))

		subjects, err := store.Subjects(ctx)
		require.NoError(t, err)
		require.Len(t, subjects, 3)

		var loaderParts []string
		for _, subject := range subjects {
			if subject.MachineModel == "644K Loader" {
				loaderParts = append(loaderParts, subject.PartID)
			}
		}
		assert.Equal(t, []string{"RE11111"}, loaderParts)
	})
}
