package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityAction represents the type of write recorded
type ActivityAction string

const (
	ActivityActionCreate       ActivityAction = "CREATE"
	ActivityActionUpdate       ActivityAction = "UPDATE"
	ActivityActionDelete       ActivityAction = "DELETE"
	ActivityActionStatusChange ActivityAction = "STATUS_CHANGE"
	ActivityActionDeactivate   ActivityAction = "DEACTIVATE"
	ActivityActionVerify       ActivityAction = "VERIFY"
)

// ActivityLog is an immutable record of one write to personal or directory
// data. Exactly one row is appended per write, inside the write's transaction.
type ActivityLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_activity_created_at" json:"createdAt"`

	// Actor identification, denormalized for historical accuracy
	ActorID   *string `gorm:"type:uuid;index:idx_activity_actor" json:"actorId,omitempty"`
	ActorName string  `json:"actorName"`
	ActorRole string  `json:"actorRole"`

	// Target entity
	EntityType string `gorm:"size:32;not null;index:idx_activity_entity" json:"entityType"`
	EntityID   string `gorm:"type:uuid;not null;index:idx_activity_entity" json:"entityId"`

	// Operation details
	Action      ActivityAction `gorm:"size:16;not null;index" json:"action"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	OldValues   datatypes.JSON `json:"oldValues,omitempty"`
	NewValues   datatypes.JSON `json:"newValues,omitempty"`

	// Request metadata
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// ActivityChange represents a single field change
type ActivityChange struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Changes diffs OldValues against NewValues, sorted by field name
func (a *ActivityLog) Changes() []ActivityChange {
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})
	if len(a.OldValues) > 0 {
		_ = json.Unmarshal(a.OldValues, &oldMap)
	}
	if len(a.NewValues) > 0 {
		_ = json.Unmarshal(a.NewValues, &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	var changes []ActivityChange
	for k := range keys {
		if !reflect.DeepEqual(oldMap[k], newMap[k]) {
			changes = append(changes, ActivityChange{Field: k, Old: oldMap[k], New: newMap[k]})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of activity logs
func (a *ActivityLog) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// BeforeDelete prevents deletion of activity logs
func (a *ActivityLog) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

func (a *ActivityLog) GetID() string { return a.ID }

func (ActivityLog) TableName() string {
	return "activity_logs"
}
