package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"support_directory_go/models"

	"gorm.io/gorm"
)

// PaymentLeadTime is how far ahead an approval schedules its payment
const PaymentLeadTime = 7 * 24 * time.Hour

const maxRequiredDocuments = 20

type ApplicationService struct {
	deps *Dependencies
}

func NewApplicationService(deps *Dependencies) *ApplicationService {
	return &ApplicationService{deps: deps}
}

// CreateApplicationInput is the payload of a new application. ApplicantID
// defaults to the caller.
type CreateApplicationInput struct {
	ApplicantID string   `json:"applicantId"`
	AdvisorID   *string  `json:"advisorId"`
	BenefitType string   `json:"benefitType"`
	Amount      *float64 `json:"amount"`
	Notes       string   `json:"notes"`
	Documents   []string `json:"documents"`
}

// TransitionInput requests a status change
type TransitionInput struct {
	Status        string `json:"status"`
	DecisionNotes string `json:"decisionNotes"`
}

func applicationState(a *models.Application) State {
	s := State{
		"status":        a.Status,
		"benefitType":   a.BenefitType,
		"applicantId":   a.ApplicantID,
		"decisionNotes": a.DecisionNotes,
	}
	if a.Amount != nil {
		s["amount"] = *a.Amount
	}
	return s
}

// Create records an application with its required documents
func (s *ApplicationService) Create(ctx context.Context, actor Actor, in CreateApplicationInput) (*models.Application, error) {
	if in.ApplicantID == "" {
		in.ApplicantID = actor.UserID
	}
	if !models.IsValidBenefitType(in.BenefitType) {
		return nil, NewValidationError("unknown benefit type %q", in.BenefitType)
	}
	if in.Amount != nil && (math.IsNaN(*in.Amount) || math.IsInf(*in.Amount, 0) || *in.Amount <= 0) {
		return nil, NewValidationError("amount must be a positive number")
	}
	documents := SanitizeValues(in.Documents)
	if len(documents) > maxRequiredDocuments {
		return nil, NewValidationError("too many required documents")
	}

	if _, err := s.deps.Guard.CheckSubject(ctx, actor, in.ApplicantID); err != nil {
		return nil, err
	}
	if in.AdvisorID != nil && *in.AdvisorID != "" {
		if err := s.checkAdvisor(ctx, *in.AdvisorID); err != nil {
			return nil, err
		}
	} else {
		in.AdvisorID = nil
	}

	app := &models.Application{
		ApplicantID: in.ApplicantID,
		AdvisorID:   in.AdvisorID,
		BenefitType: in.BenefitType,
		Amount:      in.Amount,
		Notes:       SanitizeText(in.Notes),
		Status:      models.ApplicationStatusPending,
	}

	steps := []WriteStep{
		Insert("application", func(WriteResults) (models.Record, error) { return app, nil }),
	}
	for i, name := range documents {
		steps = append(steps, Insert(fmt.Sprintf("document.%d", i), func(prior WriteResults) (models.Record, error) {
			return &models.ApplicationDocument{ApplicationID: prior.ID("application"), Name: name}, nil
		}))
	}
	steps = append(steps, Activity(actor, models.ActivityActionCreate, EntityApplication, StepID("application"),
		fmt.Sprintf("Created %s application", app.BenefitType), nil, applicationState(app)))

	results, err := s.deps.Writer.Execute(ctx, steps...)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, results.ID("application"))
}

func (s *ApplicationService) checkAdvisor(ctx context.Context, advisorID string) error {
	var count int64
	err := retryRead(ctx, s.deps.Logger, s.deps.Metrics, s.deps.ReadAttempts, "check advisor", func() error {
		return s.deps.DB.WithContext(ctx).Model(&models.BenefitAdvisor{}).
			Where("id = ? AND is_active = ?", advisorID, true).
			Count(&count).Error
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return NewValidationError("unknown benefit advisor %s", advisorID)
	}
	return nil
}

// Transition moves an application through its lifecycle. Approving an
// application with an amount schedules exactly one payment in the same
// write. The applicant is notified after commit.
func (s *ApplicationService) Transition(ctx context.Context, actor Actor, id string, in TransitionInput) (*models.Application, error) {
	if err := s.deps.Guard.RequireStaff(actor); err != nil {
		return nil, err
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Guard.CheckSubject(ctx, actor, existing.ApplicantID); err != nil {
		return nil, err
	}
	if err := ApplicationLifecycle.Check(existing.Status, in.Status); err != nil {
		return nil, err
	}

	now := time.Now()
	updated := *existing
	updated.Status = in.Status
	updates := map[string]interface{}{"status": in.Status}
	if in.Status == models.ApplicationStatusApproved || in.Status == models.ApplicationStatusRejected {
		updated.DecisionNotes = SanitizeText(in.DecisionNotes)
		updated.DecidedAt = &now
		updated.DecidedBy = ptrIfNotEmpty(actor.UserID)
		updates["decision_notes"] = updated.DecisionNotes
		updates["decided_at"] = now
		updates["decided_by"] = updated.DecidedBy
	}

	steps := []WriteStep{
		Exec("application", func(tx *gorm.DB, _ WriteResults) (int64, error) {
			res := tx.Model(&models.Application{}).
				Where("id = ? AND status = ?", id, existing.Status).
				Updates(updates)
			if res.Error != nil {
				return 0, res.Error
			}
			if res.RowsAffected == 0 {
				return 0, NewConflictError("application %s was changed concurrently", id)
			}
			return res.RowsAffected, nil
		}),
	}
	if in.Status == models.ApplicationStatusApproved && existing.Amount != nil {
		steps = append(steps, Insert("payment", func(WriteResults) (models.Record, error) {
			return &models.Payment{
				ApplicationID: id,
				Amount:        *existing.Amount,
				Currency:      "GBP",
				DueDate:       now.Add(PaymentLeadTime),
				Status:        models.PaymentStatusScheduled,
			}, nil
		}))
	}
	steps = append(steps, Activity(actor, models.ActivityActionStatusChange, EntityApplication, FixedID(id),
		fmt.Sprintf("Application moved from %s to %s", existing.Status, in.Status),
		map[string]interface{}{"status": existing.Status},
		map[string]interface{}{"status": in.Status}))

	if _, err := s.deps.Writer.Execute(ctx, steps...); err != nil {
		return nil, err
	}

	s.deps.Dispatcher.OnWriteCompleted(ctx, Transition{
		EntityType: EntityApplication,
		EntityID:   id,
		Event:      EventStatusChanged,
		Previous:   applicationState(existing),
		Current:    applicationState(&updated),
	}, Recipients{Owner: existing.ApplicantID})

	return s.load(ctx, id)
}

// Get returns an application to its applicant or to staff
func (s *ApplicationService) Get(ctx context.Context, actor Actor, id string) (*models.Application, error) {
	if err := s.deps.Guard.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID == actor.UserID {
		return app, nil
	}
	if err := s.deps.Guard.RequireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.deps.Guard.CheckSubject(ctx, actor, app.ApplicantID); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) load(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	err := retryRead(ctx, s.deps.Logger, s.deps.Metrics, s.deps.ReadAttempts, "get application", func() error {
		app = models.Application{}
		return s.deps.DB.WithContext(ctx).
			Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
			Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("due_date ASC") }).
			Where("id = ?", id).
			First(&app).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(EntityApplication, id)
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}
