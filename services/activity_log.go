package services

import (
	"context"
	"encoding/json"
	"time"

	"support_directory_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actor identifies the caller performing an operation. The zero value is an
// anonymous caller.
type Actor struct {
	UserID    string
	Name      string
	Role      string
	IPAddress string
	UserAgent string
}

// SystemActor records writes made by the server itself or operator tooling
var SystemActor = Actor{Name: "system", Role: "system"}

// ActorFromUser builds an actor for an authenticated user
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, Name: u.Name, Role: u.Role}
}

func (a Actor) IsAnonymous() bool { return a.UserID == "" }

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// IsStaff reports whether the actor is an admin or case worker
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RoleCaseworker
}

// Activity is the final step of a write sequence: it appends exactly one
// activity log row for the write. entityID resolves the subject id from
// earlier step results.
func Activity(
	actor Actor,
	action models.ActivityAction,
	entityType string,
	entityID func(prior WriteResults) string,
	description string,
	oldValues interface{},
	newValues interface{},
) WriteStep {
	return Insert("activity", func(prior WriteResults) (models.Record, error) {
		entry := &models.ActivityLog{
			ActorID:     ptrIfNotEmpty(actor.UserID),
			ActorName:   actor.Name,
			ActorRole:   actor.Role,
			EntityType:  entityType,
			EntityID:    entityID(prior),
			Action:      action,
			Description: description,
			OldValues:   marshalActivityValues(oldValues),
			NewValues:   marshalActivityValues(newValues),
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
		}
		if entry.EntityID == "" {
			return nil, NewValidationError("activity entry for %s has no entity id", entityType)
		}
		return entry, nil
	})
}

// StepID resolves an entity id from a named prior step
func StepID(step string) func(WriteResults) string {
	return func(prior WriteResults) string { return prior.ID(step) }
}

// FixedID resolves to a known entity id
func FixedID(id string) func(WriteResults) string {
	return func(WriteResults) string { return id }
}

func marshalActivityValues(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ActivityFilters contains filter options for activity log queries
type ActivityFilters struct {
	ActorID    string
	EntityType string
	Action     string
	DateFrom   time.Time
	DateTo     time.Time
}

// GetEntityActivity retrieves the activity history of one entity, newest first
func GetEntityActivity(ctx context.Context, db *gorm.DB, entityType, entityID string) ([]models.ActivityLog, error) {
	var logs []models.ActivityLog
	err := db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// ListActivity retrieves paginated activity logs
func ListActivity(ctx context.Context, db *gorm.DB, filters ActivityFilters, page, pageSize int) ([]models.ActivityLog, int64, error) {
	query := db.WithContext(ctx).Model(&models.ActivityLog{})

	if filters.ActorID != "" {
		query = query.Where("actor_id = ?", filters.ActorID)
	}
	if filters.EntityType != "" {
		query = query.Where("entity_type = ?", filters.EntityType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	var logs []models.ActivityLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error

	return logs, total, err
}
