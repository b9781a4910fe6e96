package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application status constants
const (
	ApplicationStatusPending  = "PENDING"
	ApplicationStatusInReview = "IN_REVIEW"
	ApplicationStatusApproved = "APPROVED"
	ApplicationStatusRejected = "REJECTED"
	ApplicationStatusClosed   = "CLOSED"
)

// Benefit type constants
const (
	BenefitUniversalCredit = "UNIVERSAL_CREDIT"
	BenefitPIP             = "PIP"
	BenefitHousingBenefit  = "HOUSING_BENEFIT"
	BenefitCrisisGrant     = "CRISIS_GRANT"
	BenefitHardshipFund    = "HARDSHIP_FUND"
)

// Application is a benefit or grant application made by (or for) a client
type Application struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ApplicantID string  `gorm:"type:uuid;not null;index" json:"applicantId"`
	Applicant   *User   `gorm:"foreignKey:ApplicantID" json:"-"`
	AdvisorID   *string `gorm:"type:uuid;index" json:"advisorId,omitempty"` // benefit_advisors.id

	BenefitType string   `gorm:"size:32;not null" json:"benefitType"`
	Amount      *float64 `json:"amount,omitempty"`
	Notes       string   `gorm:"type:text" json:"notes,omitempty"`

	// Status and lifecycle
	Status        string     `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	DecisionNotes string     `gorm:"type:text" json:"decisionNotes,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	DecidedBy     *string    `gorm:"type:uuid" json:"decidedBy,omitempty"`

	// Relationships
	Documents []ApplicationDocument `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
	Payments  []Payment             `gorm:"foreignKey:ApplicationID" json:"payments,omitempty"`
}

// BeforeCreate hook to generate UUID
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (a *Application) GetID() string { return a.ID }

// TableName specifies the table name for Application model
func (Application) TableName() string {
	return "benefit_applications"
}

// IsValidBenefitType checks if the benefit type is valid
func IsValidBenefitType(benefitType string) bool {
	switch benefitType {
	case BenefitUniversalCredit, BenefitPIP, BenefitHousingBenefit, BenefitCrisisGrant, BenefitHardshipFund:
		return true
	}
	return false
}

// ApplicationDocument is a document an applicant must supply
type ApplicationDocument struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	ApplicationID string `gorm:"type:uuid;not null;index" json:"applicationId"`
	Name          string `gorm:"not null" json:"name"`
	IsReceived    bool   `gorm:"not null;default:false" json:"isReceived"`
}

func (d *ApplicationDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (d *ApplicationDocument) GetID() string { return d.ID }

func (ApplicationDocument) TableName() string {
	return "application_documents"
}

// Payment status constants
const (
	PaymentStatusScheduled = "SCHEDULED"
	PaymentStatusPaid      = "PAID"
)

// Payment is scheduled when an application with an amount is approved
type Payment struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	ApplicationID string    `gorm:"type:uuid;not null;index" json:"applicationId"`
	Amount        float64   `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"size:3;not null;default:GBP" json:"currency"`
	DueDate       time.Time `gorm:"not null" json:"dueDate"`
	Status        string    `gorm:"size:16;not null;default:SCHEDULED" json:"status"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (p *Payment) GetID() string { return p.ID }

func (Payment) TableName() string {
	return "payments"
}
