package models

// All returns every persisted model, in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&HealthcareProvider{},
		&MentalHealthService{},
		&AddictionService{},
		&HousingResource{},
		&ServiceDogProvider{},
		&EducationProvider{},
		&BenefitAdvisor{},
		&ResourceAttribute{},
		&Application{},
		&ApplicationDocument{},
		&Payment{},
		&CaseRecord{},
		&WelfareCheck{},
		&CaseDocument{},
		&Goal{},
		&GoalMilestone{},
		&Notification{},
		&ActivityLog{},
	}
}
