package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification priority tiers
const (
	NotificationPriorityLow    = "low"
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
	NotificationPriorityUrgent = "urgent"
)

// Notification is only ever created by the notification dispatcher as a
// side effect of a qualifying state transition.
type Notification struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	// Targeting
	RecipientID string `gorm:"type:uuid;not null;index" json:"recipientId"`

	// Context
	EntityType string `gorm:"size:32;not null;index:idx_notification_entity" json:"entityType"`
	EntityID   string `gorm:"type:uuid;not null;index:idx_notification_entity" json:"entityId"`
	Rule       string `gorm:"size:64;not null" json:"rule"`

	// Content
	Title    string            `gorm:"not null" json:"title"`
	Message  string            `gorm:"type:text" json:"message"`
	Priority string            `gorm:"size:8;not null;default:normal" json:"priority"`
	Metadata datatypes.JSONMap `json:"metadata,omitempty"`

	// Delivery
	ScheduledFor *time.Time `gorm:"index" json:"scheduledFor,omitempty"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (n *Notification) GetID() string { return n.ID }

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// IsUrgent reports whether the notification should go out on every channel
func (n *Notification) IsUrgent() bool {
	return n.Priority == NotificationPriorityHigh || n.Priority == NotificationPriorityUrgent
}
