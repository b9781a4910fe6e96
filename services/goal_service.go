package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"support_directory_go/models"

	"gorm.io/gorm"
)

const maxGoalMilestones = 50

type GoalService struct {
	deps *Dependencies
}

func NewGoalService(deps *Dependencies) *GoalService {
	return &GoalService{deps: deps}
}

// CreateGoalInput is the payload of a new goal. OwnerID defaults to the caller.
type CreateGoalInput struct {
	OwnerID     string   `json:"ownerId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Milestones  []string `json:"milestones"`
}

func goalState(g *models.Goal) State {
	return State{
		"title":    g.Title,
		"status":   g.Status,
		"progress": g.Progress,
		"ownerId":  g.OwnerID,
	}
}

// Create records a goal and its milestones
func (s *GoalService) Create(ctx context.Context, actor Actor, in CreateGoalInput) (*models.Goal, error) {
	if in.OwnerID == "" {
		in.OwnerID = actor.UserID
	}
	title := SanitizeText(in.Title)
	if title == "" {
		return nil, NewValidationError("title is required")
	}
	milestones := SanitizeValues(in.Milestones)
	if len(milestones) > maxGoalMilestones {
		return nil, NewValidationError("too many milestones")
	}
	if _, err := s.deps.Guard.CheckSubject(ctx, actor, in.OwnerID); err != nil {
		return nil, err
	}

	goal := &models.Goal{
		OwnerID:     in.OwnerID,
		Title:       title,
		Description: SanitizeText(in.Description),
		Status:      models.GoalStatusOpen,
	}

	steps := []WriteStep{
		Insert("goal", func(WriteResults) (models.Record, error) { return goal, nil }),
	}
	for i, name := range milestones {
		steps = append(steps, Insert(fmt.Sprintf("milestone.%d", i), func(prior WriteResults) (models.Record, error) {
			return &models.GoalMilestone{
				GoalID:    prior.ID("goal"),
				Title:     name,
				SortOrder: i,
				Status:    models.MilestoneStatusPending,
			}, nil
		}))
	}
	steps = append(steps, Activity(actor, models.ActivityActionCreate, EntityGoal, StepID("goal"),
		fmt.Sprintf("Created goal %q", title), nil, goalState(goal)))

	results, err := s.deps.Writer.Execute(ctx, steps...)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, results.ID("goal"))
}

// CompleteMilestone completes one milestone and recomputes the goal's
// progress in the same write. Reaching 100% completes the goal and
// notifies its owner.
func (s *GoalService) CompleteMilestone(ctx context.Context, actor Actor, goalID, milestoneID string) (*models.Goal, error) {
	goal, err := s.authorize(ctx, actor, goalID)
	if err != nil {
		return nil, err
	}

	var milestone *models.GoalMilestone
	for i := range goal.Milestones {
		if goal.Milestones[i].ID == milestoneID {
			milestone = &goal.Milestones[i]
		}
	}
	if milestone == nil {
		return nil, NewNotFoundError("goal milestone", milestoneID)
	}
	if milestone.IsCompleted() {
		return nil, NewConflictError("milestone %q is already completed", milestone.Title)
	}

	now := time.Now()
	oldValues := map[string]interface{}{"progress": goal.Progress, "status": goal.Status}
	newValues := map[string]interface{}{"milestone": milestone.Title}
	updated := *goal

	_, err = s.deps.Writer.Execute(ctx,
		Exec("milestone", func(tx *gorm.DB, _ WriteResults) (int64, error) {
			res := tx.Model(&models.GoalMilestone{}).
				Where("id = ? AND goal_id = ? AND status = ?", milestoneID, goalID, models.MilestoneStatusPending).
				Updates(map[string]interface{}{
					"status":       models.MilestoneStatusCompleted,
					"completed_at": now,
					"completed_by": ptrIfNotEmpty(actor.UserID),
				})
			if res.Error != nil {
				return 0, res.Error
			}
			if res.RowsAffected == 0 {
				return 0, NewConflictError("milestone %s was completed concurrently", milestoneID)
			}
			return res.RowsAffected, nil
		}),
		Exec("goal", func(tx *gorm.DB, _ WriteResults) (int64, error) {
			var total, completed int64
			scope := tx.Model(&models.GoalMilestone{}).Where("goal_id = ?", goalID)
			if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
				return 0, err
			}
			if err := scope.Session(&gorm.Session{}).Where("status = ?", models.MilestoneStatusCompleted).Count(&completed).Error; err != nil {
				return 0, err
			}

			updated.Progress = progressPercent(completed, total)
			updates := map[string]interface{}{"progress": updated.Progress}
			if updated.Progress >= 100 && goal.Status == models.GoalStatusOpen {
				if err := GoalLifecycle.Check(goal.Status, models.GoalStatusCompleted); err != nil {
					return 0, err
				}
				updated.Status = models.GoalStatusCompleted
				updated.CompletedAt = &now
				updates["status"] = updated.Status
				updates["completed_at"] = now
			}
			newValues["progress"] = updated.Progress
			newValues["status"] = updated.Status

			res := tx.Model(&models.Goal{}).Where("id = ?", goalID).Updates(updates)
			return res.RowsAffected, res.Error
		}),
		Activity(actor, models.ActivityActionUpdate, EntityGoal, FixedID(goalID),
			fmt.Sprintf("Completed milestone %q of goal %q", milestone.Title, goal.Title),
			oldValues, newValues),
	)
	if err != nil {
		return nil, err
	}

	s.deps.Dispatcher.OnWriteCompleted(ctx, Transition{
		EntityType: EntityGoal,
		EntityID:   goalID,
		Event:      EventProgress,
		Previous:   goalState(goal),
		Current:    goalState(&updated),
	}, Recipients{Owner: goal.OwnerID})

	return s.load(ctx, goalID)
}

// Progress returns the goal's completion percentage
func (s *GoalService) Progress(ctx context.Context, actor Actor, goalID string) (int, error) {
	goal, err := s.Get(ctx, actor, goalID)
	if err != nil {
		return 0, err
	}
	return goal.Progress, nil
}

// Get returns a goal to its owner or to staff allowed to see the owner
func (s *GoalService) Get(ctx context.Context, actor Actor, id string) (*models.Goal, error) {
	return s.authorize(ctx, actor, id)
}

func (s *GoalService) authorize(ctx context.Context, actor Actor, id string) (*models.Goal, error) {
	if err := s.deps.Guard.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	goal, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.OwnerID == actor.UserID {
		return goal, nil
	}
	_, err = s.deps.Guard.CheckSubject(ctx, actor, goal.OwnerID)
	if IsKind(err, KindNotFound) {
		return nil, NewNotFoundError(EntityGoal, id)
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func progressPercent(completed, total int64) int {
	if total == 0 {
		return 0
	}
	return int(completed * 100 / total)
}

func (s *GoalService) load(ctx context.Context, id string) (*models.Goal, error) {
	var goal models.Goal
	err := retryRead(ctx, s.deps.Logger, s.deps.Metrics, s.deps.ReadAttempts, "get goal", func() error {
		goal = models.Goal{}
		return s.deps.DB.WithContext(ctx).
			Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
			Where("id = ?", id).
			First(&goal).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(EntityGoal, id)
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}
