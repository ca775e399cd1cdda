package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MySQL error numbers for unique index violations and deadlock victims
const (
	mysqlDuplicateEntry = 1062
	mysqlDeadlock       = 1213
)

// Store persists sessions and their conversation transcripts
type Store interface {
	// CreateSession atomically creates an active session unless the owner already has one,
	// in which case it returns ErrAlreadyActive
	CreateSession(ctx context.Context, ownerID string, subject Subject) (*Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	FindActive(ctx context.Context, ownerID string) (*Session, error)
	CompleteSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)

	AppendEntry(ctx context.Context, entry *ConversationEntry) error
	ListEntries(ctx context.Context, sessionID uuid.UUID) ([]*ConversationEntry, error)
}

// MySqlStore handles session persistence using GORM
type MySqlStore struct {
	db *gorm.DB
}

// NewMySqlStore opens a GORM connection and migrates the session, transcript and catalog tables
func NewMySqlStore(dsn string) (*MySqlStore, error) {
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return NewMySqlStoreFromDB(db)
}

// NewMySqlStoreFromDB wraps an existing GORM connection
func NewMySqlStoreFromDB(db *gorm.DB) (*MySqlStore, error) {
	if err := db.AutoMigrate(&Session{}, &ConversationEntry{}, &Machine{}, &Part{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &MySqlStore{db: db}, nil
}

// CreateSession inserts a new active session. The active_owner unique index is the only guard,
// so of two concurrent starts for one owner exactly one insert succeeds
func (s *MySqlStore) CreateSession(ctx context.Context, ownerID string, subject Subject) (*Session, error) {
	session := NewSession(ownerID, subject)

	err := s.db.WithContext(ctx).Create(session).Error
	switch {
	case err == nil:
		return session, nil
	case isDuplicateKey(err):
		return nil, ErrAlreadyActive
	case isDeadlock(err):
		// Victim of a concurrent start for the same owner
		if _, findErr := s.FindActive(ctx, ownerID); findErr == nil {
			return nil, ErrAlreadyActive
		}
	}

	return nil, fmt.Errorf("failed to create session: %w", err)
}

// GetSession retrieves a session by ID
func (s *MySqlStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	var session Session
	result := s.db.WithContext(ctx).First(&session, "id = ?", sessionID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", result.Error)
	}

	return &session, nil
}

// FindActive retrieves the owner's active session
func (s *MySqlStore) FindActive(ctx context.Context, ownerID string) (*Session, error) {
	var session Session
	result := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, StatusActive).
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active session: %w", result.Error)
	}

	return &session, nil
}

// CompleteSession moves an active session to completed and frees the owner's active slot
func (s *MySqlStore) CompleteSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	var session Session

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, "id = ?", sessionID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get session: %w", result.Error)
		}
		if !session.Active() {
			return ErrInvalidState
		}

		now := time.Now().UTC()
		err := tx.Model(&session).Updates(map[string]any{
			"status":       StatusCompleted,
			"active_owner": nil,
			"completed_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}

		session.Status = StatusCompleted
		session.ActiveOwner = nil
		session.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// AppendEntry saves a conversation entry
func (s *MySqlStore) AppendEntry(ctx context.Context, entry *ConversationEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to save conversation entry: %w", err)
	}

	return nil
}

// ListEntries retrieves a session's transcript in chronological order
func (s *MySqlStore) ListEntries(ctx context.Context, sessionID uuid.UUID) ([]*ConversationEntry, error) {
	var entries []*ConversationEntry
	result := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").Order("id ASC").
		Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query conversation entries: %w", result.Error)
	}

	return entries, nil
}

// Subjects returns one subject per catalog part, implementing Catalog
func (s *MySqlStore) Subjects(ctx context.Context) ([]Subject, error) {
	var subjects []Subject
	result := s.db.WithContext(ctx).
		Table("parts").
		Select("machines.model AS machine_model, parts.description AS part_description, parts.part_id AS part_id, parts.breadcrumb AS breadcrumb").
		Joins("JOIN machines ON machines.id = parts.machine_id").
		Order("parts.id ASC").
		Scan(&subjects)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", result.Error)
	}

	return subjects, nil
}

// SaveMachines upserts catalog machines and replaces their parts
func (s *MySqlStore) SaveMachines(ctx context.Context, machines []Machine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range machines {
			machine := machines[i]
			parts := machine.Parts
			machine.Parts = nil

			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "model"}},
				DoUpdates: clause.AssignmentColumns([]string{"pin_low", "pin_high"}),
			}).Create(&machine).Error
			if err != nil {
				return fmt.Errorf("failed to save machine %s: %w", machine.Model, err)
			}

			// MySQL does not report the ID of an updated row, so read it back
			if err := tx.Where("model = ?", machine.Model).First(&machine).Error; err != nil {
				return fmt.Errorf("failed to reload machine %s: %w", machine.Model, err)
			}
			if err := tx.Where("machine_id = ?", machine.ID).Delete(&Part{}).Error; err != nil {
				return fmt.Errorf("failed to clear parts for %s: %w", machine.Model, err)
			}
			for j := range parts {
				parts[j].ID = 0
				parts[j].MachineID = machine.ID
			}
			if len(parts) > 0 {
				if err := tx.Create(&parts).Error; err != nil {
					return fmt.Errorf("failed to save parts for %s: %w", machine.Model, err)
				}
			}
		}
		return nil
	})
}

// Close closes the database connection
func (s *MySqlStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}

// isDuplicateKey detects unique index violations with or without GORM's error translation
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// isDeadlock detects a transaction chosen as a deadlock victim
func isDeadlock(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDeadlock
}
