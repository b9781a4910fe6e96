package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Case record status constants
const (
	CaseStatusOpen    = "OPEN"
	CaseStatusPending = "PENDING"
	CaseStatusClosed  = "CLOSED"
)

// Priority need constants
const (
	PriorityNeedNone          = "NONE"
	PriorityNeedVulnerable    = "VULNERABLE"
	PriorityNeedDependents    = "DEPENDENTS"
	PriorityNeedRoughSleeper  = "ROUGH_SLEEPER"
	PriorityNeedDomesticAbuse = "DOMESTIC_ABUSE"
)

// CaseRecord tracks a person a case worker is supporting
type CaseRecord struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Client account, if the person has one
	ClientID   *string `gorm:"type:uuid;index" json:"clientId,omitempty"`
	PersonName string  `gorm:"not null" json:"personName"`
	Summary    string  `gorm:"type:text" json:"summary"`

	PriorityNeed string `gorm:"size:32;not null;default:NONE" json:"priorityNeed"`

	// Status and lifecycle
	Status   string     `gorm:"size:16;not null;default:OPEN;index" json:"status"`
	OpenedAt time.Time  `gorm:"not null" json:"openedAt"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`
	ClosedBy *string    `gorm:"type:uuid" json:"closedBy,omitempty"`
	Outcome  string     `gorm:"type:text" json:"outcome,omitempty"`

	// Assignment
	AssignedToID *string `gorm:"type:uuid;index" json:"assignedToId,omitempty"`
	AssignedTo   *User   `gorm:"foreignKey:AssignedToID" json:"-"`

	// Relationships
	WelfareChecks []WelfareCheck `gorm:"foreignKey:CaseID" json:"welfareChecks,omitempty"`
	Documents     []CaseDocument `gorm:"foreignKey:CaseID" json:"documents,omitempty"`
}

// BeforeCreate hook to generate UUID and set OpenedAt
func (c *CaseRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.OpenedAt.IsZero() {
		c.OpenedAt = time.Now()
	}
	return nil
}

func (c *CaseRecord) GetID() string { return c.ID }

// TableName specifies the table name for CaseRecord model
func (CaseRecord) TableName() string {
	return "case_records"
}

// IsClosed checks if the case is closed
func (c *CaseRecord) IsClosed() bool {
	return c.Status == CaseStatusClosed
}

// IsValidPriorityNeed checks if the priority need is valid
func IsValidPriorityNeed(need string) bool {
	switch need {
	case PriorityNeedNone, PriorityNeedVulnerable, PriorityNeedDependents, PriorityNeedRoughSleeper, PriorityNeedDomesticAbuse:
		return true
	}
	return false
}

// WelfareCheck is a scheduled check-in on the person behind a case
type WelfareCheck struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	CaseID       string     `gorm:"type:uuid;not null;index" json:"caseId"`
	ScheduledFor time.Time  `gorm:"not null;index" json:"scheduledFor"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	Outcome      string     `gorm:"type:text" json:"outcome,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (w *WelfareCheck) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

func (w *WelfareCheck) GetID() string { return w.ID }

func (WelfareCheck) TableName() string {
	return "welfare_checks"
}

// CaseDocument is a document reference attached to a case. File contents
// live outside this system; only the reference is stored.
type CaseDocument struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	CaseID    string `gorm:"type:uuid;not null;index" json:"caseId"`
	Name      string `gorm:"not null" json:"name"`
	Reference string `json:"reference,omitempty"`
}

func (d *CaseDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (d *CaseDocument) GetID() string { return d.ID }

func (CaseDocument) TableName() string {
	return "case_documents"
}
