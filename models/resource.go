package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a WGS84 coordinate pair
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Record is implemented by every row the transactional writer inserts
type Record interface {
	GetID() string
}

// Resource is implemented by every directory domain model
type Resource interface {
	Record
	Base() *ResourceBase
	AttributeRows() []ResourceAttribute
	TableName() string
}

// ResourceBase holds the columns shared by every directory resource.
// Resources are never hard-deleted; IsActive gates visibility.
type ResourceBase struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"dateAdded"`
	UpdatedAt time.Time `json:"lastUpdated"`

	Name        string `gorm:"not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Address     string `json:"address,omitempty"`
	Postcode    string `gorm:"size:10;index" json:"postcode,omitempty"`
	Phone       string `gorm:"size:32" json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`

	// Nil for non-geocoded resources
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	IsActive   bool `gorm:"not null;default:true;index" json:"isActive"`
	IsVerified bool `gorm:"not null;default:false" json:"isVerified"`

	// Computed per discovery request, never persisted
	Distance *float64 `gorm:"-" json:"distance,omitempty"`
	// Attribute rows grouped by category JSON name
	Attributes map[string][]string `gorm:"-" json:"attributes,omitempty"`
}

// GetID returns the resource id
func (b *ResourceBase) GetID() string {
	return b.ID
}

// Base exposes the shared columns of a domain resource
func (b *ResourceBase) Base() *ResourceBase {
	return b
}

// Location returns the resource coordinates, if geocoded
func (b *ResourceBase) Location() (Location, bool) {
	if b.Latitude == nil || b.Longitude == nil {
		return Location{}, false
	}
	return Location{Latitude: *b.Latitude, Longitude: *b.Longitude}, true
}

// SetLocation stores the coordinates on the resource
func (b *ResourceBase) SetLocation(loc Location) {
	lat, lng := loc.Latitude, loc.Longitude
	b.Latitude = &lat
	b.Longitude = &lng
}

// ResourceAttribute is a one-to-many attribute row (services offered,
// accessibility features, tags) attached to any resource domain.
type ResourceAttribute struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	ResourceType string `gorm:"size:32;not null;index:idx_resource_attribute_owner" json:"resourceType"`
	ResourceID   string `gorm:"type:uuid;not null;index:idx_resource_attribute_owner" json:"resourceId"`
	Category     string `gorm:"size:64;not null;index" json:"category"`
	Value        string `gorm:"not null" json:"value"`
	SortOrder    int    `gorm:"not null;default:0" json:"sortOrder"`
}

// BeforeCreate hook to generate UUID
func (a *ResourceAttribute) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// GetID returns the attribute id
func (a *ResourceAttribute) GetID() string {
	return a.ID
}

// TableName specifies the table name for ResourceAttribute model
func (ResourceAttribute) TableName() string {
	return "resource_attributes"
}

func newResourceID(b *ResourceBase) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
}
