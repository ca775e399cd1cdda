package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a rehearsal session
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Sender identifies who produced a conversation entry
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// breadcrumbSeparator splits location breadcrumbs such as "Engine > Cooling > Radiator"
const breadcrumbSeparator = " > "

// Subject is the machine and part the simulated customer is asking about. PartID is the
// answer the trainee has to find
type Subject struct {
	MachineModel    string `json:"machine_model" yaml:"machine_model" gorm:"size:255"`
	PartDescription string `json:"part_description" yaml:"part_description" gorm:"size:512"`
	PartID          string `json:"part_id" yaml:"part_id" gorm:"size:128"`
	Breadcrumb      string `json:"breadcrumb" yaml:"breadcrumb" gorm:"size:1024"`
}

// Complete reports whether every field needed to run a rehearsal is present
func (s Subject) Complete() bool {
	return s.MachineModel != "" && s.PartDescription != "" && s.PartID != "" && s.Breadcrumb != ""
}

// FirstBreadcrumb returns the top level of the location breadcrumb
func (s Subject) FirstBreadcrumb() string {
	first, _, _ := strings.Cut(s.Breadcrumb, breadcrumbSeparator)
	return strings.TrimSpace(first)
}

// Session is one rehearsal attempt. ActiveOwner mirrors OwnerID while the session is active and is
// NULL afterwards; its unique index is what keeps an owner to a single active session
type Session struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	OwnerID     string  `json:"owner_id" gorm:"size:255;not null;index"`
	Status      Status  `json:"status" gorm:"size:20;not null;index"`
	ActiveOwner *string `json:"-" gorm:"size:255;uniqueIndex"`

	Subject Subject `json:"subject" gorm:"embedded;embeddedPrefix:subject_"`
}

// NewSession creates an active session for an owner with a generated UUID
func NewSession(ownerID string, subject Subject) *Session {
	owner := ownerID
	return &Session{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Status:      StatusActive,
		ActiveOwner: &owner,
		Subject:     subject,
	}
}

// Active reports whether the session is still accepting turns
func (s *Session) Active() bool {
	return s.Status == StatusActive
}

// ConversationEntry is one utterance in a session transcript. Entries are never updated
// and are ordered by creation time, then ID
type ConversationEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	SessionID uuid.UUID `json:"session_id" gorm:"type:char(36);not null;index"`
	Session   *Session  `json:"-" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`

	Sender  Sender `json:"sender" gorm:"size:10;not null"`
	Message string `json:"message" gorm:"type:text;not null"`
}

// NewEntry creates a conversation entry for a session
func NewEntry(sessionID uuid.UUID, sender Sender, message string) *ConversationEntry {
	return &ConversationEntry{
		SessionID: sessionID,
		Sender:    sender,
		Message:   message,
	}
}

// Line renders the entry the way transcripts are fed to reply models
func (e *ConversationEntry) Line() string {
	return fmt.Sprintf("%s: %s", e.Sender, e.Message)
}

// Machine is a catalog machine model
type Machine struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Model   string `json:"model" yaml:"model" gorm:"size:255;not null;uniqueIndex"`
	PinLow  string `json:"pin_low,omitempty" yaml:"pin_low" gorm:"size:64"`
	PinHigh string `json:"pin_high,omitempty" yaml:"pin_high" gorm:"size:64"`
	Parts   []Part `json:"parts" yaml:"parts" gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE"`
}

// Part is a catalog part belonging to a machine
type Part struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	MachineID   uint   `json:"machine_id" yaml:"-" gorm:"not null;index"`
	PartID      string `json:"part_id" yaml:"part_id" gorm:"size:128;not null"`
	Description string `json:"description" yaml:"description" gorm:"size:512;not null"`
	Breadcrumb  string `json:"breadcrumb" yaml:"breadcrumb" gorm:"size:1024"`
}
