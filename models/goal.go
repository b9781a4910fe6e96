package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Goal status constants
const (
	GoalStatusOpen      = "OPEN"
	GoalStatusCompleted = "COMPLETED"
)

// Milestone status constants
const (
	MilestoneStatusPending   = "PENDING"
	MilestoneStatusCompleted = "COMPLETED"
)

// Goal is a personal goal (ID documents, bank account, tenancy) split into milestones
type Goal struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	OwnerID     string `gorm:"type:uuid;not null;index" json:"ownerId"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Status      string     `gorm:"size:16;not null;default:OPEN" json:"status"`
	Progress    int        `gorm:"not null;default:0" json:"progress"` // percent
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Milestones []GoalMilestone `gorm:"foreignKey:GoalID" json:"milestones,omitempty"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return nil
}

func (g *Goal) GetID() string { return g.ID }

func (Goal) TableName() string {
	return "goals"
}

// GoalMilestone is a step towards a goal
type GoalMilestone struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	GoalID    string `gorm:"type:uuid;not null;index:idx_goal_milestone" json:"goalId"`
	Title     string `gorm:"not null" json:"title"`
	SortOrder int    `gorm:"not null;default:0" json:"sortOrder"`

	Status      string     `gorm:"size:16;not null;default:PENDING" json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy *string    `gorm:"type:uuid" json:"completedBy,omitempty"`
}

func (m *GoalMilestone) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (m *GoalMilestone) GetID() string { return m.ID }

func (GoalMilestone) TableName() string {
	return "goal_milestones"
}

func (m *GoalMilestone) IsCompleted() bool {
	return m.Status == MilestoneStatusCompleted
}
