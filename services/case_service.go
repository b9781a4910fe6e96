package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"support_directory_go/models"

	"gorm.io/gorm"
)

const maxCaseChildren = 20

type CaseService struct {
	deps *Dependencies
}

func NewCaseService(deps *Dependencies) *CaseService {
	return &CaseService{deps: deps}
}

// WelfareCheckInput schedules one welfare check
type WelfareCheckInput struct {
	ScheduledFor time.Time `json:"scheduledFor"`
	Notes        string    `json:"notes"`
}

// CaseDocumentInput references a document held outside the system
type CaseDocumentInput struct {
	Name      string `json:"name"`
	Reference string `json:"reference"`
}

// OpenCaseInput is the payload of a new case record
type OpenCaseInput struct {
	ClientID      *string             `json:"clientId"`
	PersonName    string              `json:"personName"`
	Summary       string              `json:"summary"`
	PriorityNeed  string              `json:"priorityNeed"`
	AssignedToID  *string             `json:"assignedToId"`
	WelfareChecks []WelfareCheckInput `json:"welfareChecks"`
	Documents     []CaseDocumentInput `json:"documents"`
}

func caseState(c *models.CaseRecord) State {
	s := State{
		"status":       c.Status,
		"personName":   c.PersonName,
		"priorityNeed": c.PriorityNeed,
		"outcome":      c.Outcome,
		"assignedToId": "",
		"clientId":     "",
	}
	if c.AssignedToID != nil {
		s["assignedToId"] = *c.AssignedToID
	}
	if c.ClientID != nil {
		s["clientId"] = *c.ClientID
	}
	return s
}

func caseRecipients(c *models.CaseRecord) Recipients {
	var r Recipients
	if c.ClientID != nil {
		r.Owner = *c.ClientID
	}
	if c.AssignedToID != nil {
		r.Assignee = *c.AssignedToID
	}
	return r
}

// Open creates a case with its welfare checks and document references
func (s *CaseService) Open(ctx context.Context, actor Actor, in OpenCaseInput) (*models.CaseRecord, error) {
	if err := s.deps.Guard.RequireStaff(actor); err != nil {
		return nil, err
	}

	if in.PriorityNeed == "" {
		in.PriorityNeed = models.PriorityNeedNone
	}
	if !models.IsValidPriorityNeed(in.PriorityNeed) {
		return nil, NewValidationError("unknown priority need %q", in.PriorityNeed)
	}
	if len(in.WelfareChecks) > maxCaseChildren || len(in.Documents) > maxCaseChildren {
		return nil, NewValidationError("too many welfare checks or documents")
	}
	for i, w := range in.WelfareChecks {
		if w.ScheduledFor.IsZero() {
			return nil, NewValidationError("welfare check %d needs a scheduled time", i+1)
		}
	}
	for i, d := range in.Documents {
		if SanitizeText(d.Name) == "" {
			return nil, NewValidationError("document %d needs a name", i+1)
		}
	}

	record := &models.CaseRecord{
		PersonName:   SanitizeText(in.PersonName),
		Summary:      SanitizeText(in.Summary),
		PriorityNeed: in.PriorityNeed,
		Status:       models.CaseStatusOpen,
	}

	if in.ClientID != nil && *in.ClientID != "" {
		client, err := s.deps.Guard.CheckSubject(ctx, actor, *in.ClientID)
		if err != nil {
			return nil, err
		}
		record.ClientID = &client.ID
		if record.PersonName == "" {
			record.PersonName = client.Name
		}
	}
	if record.PersonName == "" {
		return nil, NewValidationError("personName is required")
	}

	assignee := actor.UserID
	if in.AssignedToID != nil && *in.AssignedToID != "" {
		assignee = *in.AssignedToID
	}
	if err := s.checkAssignee(ctx, assignee); err != nil {
		return nil, err
	}
	record.AssignedToID = &assignee

	steps := []WriteStep{
		Insert("case", func(WriteResults) (models.Record, error) { return record, nil }),
	}
	for i, w := range in.WelfareChecks {
		steps = append(steps, Insert(fmt.Sprintf("welfare.%d", i), func(prior WriteResults) (models.Record, error) {
			return &models.WelfareCheck{
				CaseID:       prior.ID("case"),
				ScheduledFor: w.ScheduledFor,
				Notes:        SanitizeText(w.Notes),
			}, nil
		}))
	}
	for i, d := range in.Documents {
		steps = append(steps, Insert(fmt.Sprintf("document.%d", i), func(prior WriteResults) (models.Record, error) {
			return &models.CaseDocument{
				CaseID:    prior.ID("case"),
				Name:      SanitizeText(d.Name),
				Reference: SanitizeText(d.Reference),
			}, nil
		}))
	}
	steps = append(steps, Activity(actor, models.ActivityActionCreate, EntityCase, StepID("case"),
		fmt.Sprintf("Opened case for %s", record.PersonName), nil, caseState(record)))

	results, err := s.deps.Writer.Execute(ctx, steps...)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, results.ID("case"))
}

// Reassign moves a case to another case worker. Reassigning to the current
// assignee writes nothing.
func (s *CaseService) Reassign(ctx context.Context, actor Actor, id, assigneeID string) (*models.CaseRecord, error) {
	existing, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if assigneeID == "" {
		return nil, NewValidationError("assigneeId is required")
	}
	if existing.IsClosed() {
		return nil, NewConflictError("closed cases cannot be reassigned")
	}
	if existing.AssignedToID != nil && *existing.AssignedToID == assigneeID {
		return existing, nil
	}
	if err := s.checkAssignee(ctx, assigneeID); err != nil {
		return nil, err
	}

	updated := *existing
	updated.AssignedToID = &assigneeID
	previous := caseState(existing)
	current := caseState(&updated)

	_, err = s.deps.Writer.Execute(ctx,
		Exec("case", func(tx *gorm.DB, _ WriteResults) (int64, error) {
			res := tx.Model(&models.CaseRecord{}).
				Where("id = ? AND status <> ?", id, models.CaseStatusClosed).
				Update("assigned_to_id", assigneeID)
			if res.Error != nil {
				return 0, res.Error
			}
			if res.RowsAffected == 0 {
				return 0, NewConflictError("case %s was closed concurrently", id)
			}
			return res.RowsAffected, nil
		}),
		Activity(actor, models.ActivityActionUpdate, EntityCase, FixedID(id),
			fmt.Sprintf("Reassigned case for %s", existing.PersonName),
			map[string]interface{}{"assignedToId": previous["assignedToId"]},
			map[string]interface{}{"assignedToId": assigneeID}),
	)
	if err != nil {
		return nil, err
	}

	s.deps.Dispatcher.OnWriteCompleted(ctx, Transition{
		EntityType: EntityCase,
		EntityID:   id,
		Event:      EventReassigned,
		Previous:   previous,
		Current:    current,
	}, caseRecipients(&updated))

	return s.load(ctx, id)
}

// Close closes a case and records its outcome
func (s *CaseService) Close(ctx context.Context, actor Actor, id, outcome string) (*models.CaseRecord, error) {
	existing, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := CaseLifecycle.Check(existing.Status, models.CaseStatusClosed); err != nil {
		return nil, err
	}

	now := time.Now()
	updated := *existing
	updated.Status = models.CaseStatusClosed
	updated.Outcome = SanitizeText(outcome)

	_, err = s.deps.Writer.Execute(ctx,
		s.statusStep(id, existing.Status, map[string]interface{}{
			"status":    models.CaseStatusClosed,
			"closed_at": now,
			"closed_by": ptrIfNotEmpty(actor.UserID),
			"outcome":   updated.Outcome,
		}),
		Activity(actor, models.ActivityActionStatusChange, EntityCase, FixedID(id),
			fmt.Sprintf("Closed case for %s", existing.PersonName),
			map[string]interface{}{"status": existing.Status},
			map[string]interface{}{"status": models.CaseStatusClosed, "outcome": updated.Outcome}),
	)
	if err != nil {
		return nil, err
	}

	s.deps.Dispatcher.OnWriteCompleted(ctx, Transition{
		EntityType: EntityCase,
		EntityID:   id,
		Event:      EventStatusChanged,
		Previous:   caseState(existing),
		Current:    caseState(&updated),
	}, caseRecipients(existing))

	return s.load(ctx, id)
}

// SetStatus moves a case between OPEN and PENDING. Closing goes through Close.
func (s *CaseService) SetStatus(ctx context.Context, actor Actor, id, status string) (*models.CaseRecord, error) {
	if status == models.CaseStatusClosed {
		return s.Close(ctx, actor, id, "")
	}
	existing, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := CaseLifecycle.Check(existing.Status, status); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Status = status

	_, err = s.deps.Writer.Execute(ctx,
		s.statusStep(id, existing.Status, map[string]interface{}{"status": status}),
		Activity(actor, models.ActivityActionStatusChange, EntityCase, FixedID(id),
			fmt.Sprintf("Case moved from %s to %s", existing.Status, status),
			map[string]interface{}{"status": existing.Status},
			map[string]interface{}{"status": status}),
	)
	if err != nil {
		return nil, err
	}

	s.deps.Dispatcher.OnWriteCompleted(ctx, Transition{
		EntityType: EntityCase,
		EntityID:   id,
		Event:      EventStatusChanged,
		Previous:   caseState(existing),
		Current:    caseState(&updated),
	}, caseRecipients(existing))

	return s.load(ctx, id)
}

// ScheduleWelfareCheck adds a welfare check to an open case
func (s *CaseService) ScheduleWelfareCheck(ctx context.Context, actor Actor, id string, in WelfareCheckInput) (*models.WelfareCheck, error) {
	existing, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if existing.IsClosed() {
		return nil, NewConflictError("closed cases cannot take welfare checks")
	}
	if in.ScheduledFor.IsZero() {
		return nil, NewValidationError("scheduledFor is required")
	}

	check := &models.WelfareCheck{
		CaseID:       id,
		ScheduledFor: in.ScheduledFor,
		Notes:        SanitizeText(in.Notes),
	}
	_, err = s.deps.Writer.Execute(ctx,
		Insert("welfare_check", func(WriteResults) (models.Record, error) { return check, nil }),
		Activity(actor, models.ActivityActionUpdate, EntityCase, FixedID(id),
			fmt.Sprintf("Scheduled welfare check for %s", existing.PersonName),
			nil, map[string]interface{}{"welfareCheck": in.ScheduledFor.UTC().Format(time.RFC3339)}),
	)
	if err != nil {
		return nil, err
	}
	return check, nil
}

// Get returns a case to staff allowed to see its client, or to the client
func (s *CaseService) Get(ctx context.Context, actor Actor, id string) (*models.CaseRecord, error) {
	if err := s.deps.Guard.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.ClientID != nil && *record.ClientID == actor.UserID {
		return record, nil
	}
	if err := s.authorize(ctx, actor, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *CaseService) authorizeWrite(ctx context.Context, actor Actor, id string) (*models.CaseRecord, error) {
	if err := s.deps.Guard.RequireStaff(actor); err != nil {
		return nil, err
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, record); err != nil {
		return nil, err
	}
	return record, nil
}

// authorize applies the client's visibility to staff access
func (s *CaseService) authorize(ctx context.Context, actor Actor, record *models.CaseRecord) error {
	if err := s.deps.Guard.RequireStaff(actor); err != nil {
		return err
	}
	if record.ClientID == nil {
		return nil
	}
	_, err := s.deps.Guard.CheckSubject(ctx, actor, *record.ClientID)
	if IsKind(err, KindNotFound) {
		return NewNotFoundError(EntityCase, record.ID)
	}
	return err
}

func (s *CaseService) checkAssignee(ctx context.Context, userID string) error {
	user, err := s.deps.Guard.LoadUser(ctx, userID)
	if IsKind(err, KindNotFound) {
		return NewValidationError("unknown case worker %s", userID)
	}
	if err != nil {
		return err
	}
	if !user.IsStaff() {
		return NewValidationError("%s is not a case worker", user.Name)
	}
	return nil
}

// statusStep updates a case only while it is still in status from
func (s *CaseService) statusStep(id, from string, updates map[string]interface{}) WriteStep {
	return Exec("case", func(tx *gorm.DB, _ WriteResults) (int64, error) {
		res := tx.Model(&models.CaseRecord{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, NewConflictError("case %s was changed concurrently", id)
		}
		return res.RowsAffected, nil
	})
}

func (s *CaseService) load(ctx context.Context, id string) (*models.CaseRecord, error) {
	var record models.CaseRecord
	err := retryRead(ctx, s.deps.Logger, s.deps.Metrics, s.deps.ReadAttempts, "get case", func() error {
		record = models.CaseRecord{}
		return s.deps.DB.WithContext(ctx).
			Preload("WelfareChecks", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_for ASC") }).
			Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
			Where("id = ?", id).
			First(&record).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(EntityCase, id)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
