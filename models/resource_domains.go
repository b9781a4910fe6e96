package models

import "gorm.io/gorm"

// Resource domain keys, also stored as ResourceAttribute.ResourceType
const (
	DomainHealthcare   = "healthcare"
	DomainMentalHealth = "mental_health"
	DomainAddiction    = "addiction"
	DomainHousing      = "housing"
	DomainServiceDog   = "service_dog"
	DomainEducation    = "education"
	DomainBenefits     = "benefits"
)

// HealthcareProvider is a GP, dentist, pharmacy or clinic
type HealthcareProvider struct {
	ResourceBase
	ProviderType         string `gorm:"size:32;index" json:"providerType"`
	NHSFunded            bool   `gorm:"not null;default:false" json:"nhsFunded"`
	AcceptingNewPatients bool   `gorm:"not null;default:false" json:"acceptingNewPatients"`
	AcceptsWalkIns       bool   `gorm:"not null;default:false" json:"acceptsWalkIns"`
	Emergency            bool   `gorm:"not null;default:false" json:"emergency"`
	NoFixedAddressOK     bool   `gorm:"not null;default:false" json:"noFixedAddressOk"`

	AttributeRecords []ResourceAttribute `gorm:"polymorphic:Resource;polymorphicValue:healthcare" json:"-"`
}

func (r *HealthcareProvider) BeforeCreate(tx *gorm.DB) error {
	newResourceID(&r.ResourceBase)
	return nil
}

func (r *HealthcareProvider) AttributeRows() []ResourceAttribute { return r.AttributeRecords }

func (HealthcareProvider) TableName() string {
	return "healthcare_providers"
}

// MentalHealthService covers crisis lines, counselling and peer support
type MentalHealthService struct {
	ResourceBase
	ServiceType    string `gorm:"size:32;index" json:"serviceType"`
	NHSFunded      bool   `gorm:"not null;default:false" json:"nhsFunded"`
	SelfReferral   bool   `gorm:"not null;default:false" json:"selfReferral"`
	AcceptsWalkIns bool   `gorm:"not null;default:false" json:"acceptsWalkIns"`
	Emergency      bool   `gorm:"not null;default:false" json:"emergency"`

	AttributeRecords []ResourceAttribute `gorm:"polymorphic:Resource;polymorphicValue:mental_health" json:"-"`
}

func (r *MentalHealthService) BeforeCreate(tx *gorm.DB) error {
	newResourceID(&r.ResourceBase)
	return nil
}

func (r *MentalHealthService) AttributeRows() []ResourceAttribute { return r.AttributeRecords }

func (MentalHealthService) TableName() string {
	return "mental_health_services"
}

// AddictionService covers drug, alcohol and gambling support
type AddictionService struct {
	ResourceBase
	SubstanceFocus string `gorm:"size:32;index" json:"substanceFocus"`
	NHSFunded      bool   `gorm:"not null;default:false" json:"nhsFunded"`
	Residential    bool   `gorm:"not null;default:false" json:"residential"`
	HarmReduction  bool   `gorm:"not null;default:false" json:"harmReduction"`
	AcceptsWalkIns bool   `gorm:"not null;default:false" json:"acceptsWalkIns"`

	AttributeRecords []ResourceAttribute `gorm:"polymorphic:Resource;polymorphicValue:addiction" json:"-"`
}

func (r *AddictionService) BeforeCreate(tx *gorm.DB) error {
	newResourceID(&r.ResourceBase)
	return nil
}

func (r *AddictionService) AttributeRows() []ResourceAttribute { return r.AttributeRecords }

func (AddictionService) TableName() string {
	return "addiction_services"
}

// HousingResource is a shelter, hostel, day centre or supported housing scheme.
// Sensitive resources (refuges) may only be written by admins.
type HousingResource struct {
	ResourceBase
	HousingType    string `gorm:"size:32;index" json:"housingType"`
	Emergency      bool   `gorm:"not null;default:false" json:"emergency"`
	AcceptsDogs    bool   `gorm:"not null;default:false" json:"acceptsDogs"`
	AcceptsCouples bool   `gorm:"not null;default:false" json:"acceptsCouples"`
	IsAvailable    bool   `gorm:"not null;default:false" json:"isAvailable"`
	BedsAvailable  int    `gorm:"not null;default:0" json:"bedsAvailable"`
	IsSensitive    bool   `gorm:"not null;default:false" json:"isSensitive"`

	AttributeRecords []ResourceAttribute `gorm:"polymorphic:Resource;polymorphicValue:housing" json:"-"`
}

func (r *HousingResource) BeforeCreate(tx *gorm.DB) error {
	newResourceID(&r.ResourceBase)
	return nil
}

func (r *HousingResource) AttributeRows() []ResourceAttribute { return r.AttributeRecords }

func (HousingResource) TableName() string {
	return "housing_resources"
}

// ServiceDogProvider is a vet, trainer, kennel or pet food bank
type ServiceDogProvider struct {
	ResourceBase
	ProviderType   string `gorm:"size:32;index" json:"providerType"`
	FreeOfCharge   bool   `gorm:"not null;default:false" json:"freeOfCharge"`
	Emergency      bool   `gorm:"not null;default:false" json:"emergency"`
	AcceptsWalkIns bool   `gorm:"not null;default:false" json:"acceptsWalkIns"`

	AttributeRecords []ResourceAttribute `gorm:"polymorphic:Resource;polymorphicValue:service_dog" json:"-"`
}

func (r *ServiceDogProvider) BeforeCreate(tx *gorm.DB) error {
	newResourceID(&r.ResourceBase)
	return nil
}

func (r *ServiceDogProvider) AttributeRows() []ResourceAttribute { return r.AttributeRecords }

func (ServiceDogProvider) TableName() string {
	return "service_dog_providers"
}

// EducationProvider offers courses and training
type EducationProvider struct {
	ResourceBase
	CourseType   string `gorm:"size:32;index" json:"courseType"`
	FreeOfCharge bool   `gorm:"not null;default:false" json:"freeOfCharge"`
	Accredited   bool   `gorm:"not null;default:false" json:"accredited"`
	Online       bool   `gorm:"not null;default:false" json:"online"`

	AttributeRecords []ResourceAttribute `gorm:"polymorphic:Resource;polymorphicValue:education" json:"-"`
}

func (r *EducationProvider) BeforeCreate(tx *gorm.DB) error {
	newResourceID(&r.ResourceBase)
	return nil
}

func (r *EducationProvider) AttributeRows() []ResourceAttribute { return r.AttributeRecords }

func (EducationProvider) TableName() string {
	return "education_providers"
}

// BenefitAdvisor gives welfare benefits and debt advice
type BenefitAdvisor struct {
	ResourceBase
	AdviceType         string `gorm:"size:32;index" json:"adviceType"`
	FreeOfCharge       bool   `gorm:"not null;default:false" json:"freeOfCharge"`
	AcceptsWalkIns     bool   `gorm:"not null;default:false" json:"acceptsWalkIns"`
	OffersAppointments bool   `gorm:"not null;default:false" json:"offersAppointments"`

	AttributeRecords []ResourceAttribute `gorm:"polymorphic:Resource;polymorphicValue:benefits" json:"-"`
}

func (r *BenefitAdvisor) BeforeCreate(tx *gorm.DB) error {
	newResourceID(&r.ResourceBase)
	return nil
}

func (r *BenefitAdvisor) AttributeRows() []ResourceAttribute { return r.AttributeRecords }

func (BenefitAdvisor) TableName() string {
	return "benefit_advisors"
}
