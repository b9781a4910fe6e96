package services

import (
	"context"
	"errors"

	"support_directory_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccessGuard decides whether an actor may perform a write. Subject users
// are re-read from the store on every check so a role or visibility change
// applies immediately.
type AccessGuard struct {
	db           *gorm.DB
	logger       *zap.Logger
	metrics      *EngineMetrics
	readAttempts int
}

func NewAccessGuard(db *gorm.DB, logger *zap.Logger, metrics *EngineMetrics) *AccessGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessGuard{db: db, logger: logger, metrics: metrics, readAttempts: defaultReadAttempts}
}

// RequireAuthenticated rejects anonymous callers
func (g *AccessGuard) RequireAuthenticated(actor Actor) error {
	if actor.IsAnonymous() {
		return NewUnauthenticatedError("authentication required")
	}
	return nil
}

// RequireStaff allows admins and case workers
func (g *AccessGuard) RequireStaff(actor Actor) error {
	if err := g.RequireAuthenticated(actor); err != nil {
		return err
	}
	if !actor.IsStaff() {
		return NewForbiddenError("staff access required")
	}
	return nil
}

// RequireAdmin allows admins only
func (g *AccessGuard) RequireAdmin(actor Actor) error {
	if err := g.RequireAuthenticated(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return NewForbiddenError("admin access required")
	}
	return nil
}

// CheckResourceWrite allows staff to write directory resources; resources
// the domain marks restricted (sensitive housing) are admin-only
func (g *AccessGuard) CheckResourceWrite(actor Actor, domain ResourceDomain, resource models.Resource) error {
	if err := g.RequireStaff(actor); err != nil {
		return err
	}
	if domain.RequiresAdmin != nil && domain.RequiresAdmin(resource) && !actor.IsAdmin() {
		return NewForbiddenError("only admins may change this resource")
	}
	return nil
}

// LoadUser reads an active user
func (g *AccessGuard) LoadUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := retryRead(ctx, g.logger, g.metrics, g.readAttempts, "load user", func() error {
		return g.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckSubject authorizes a write touching a user's personal data. Users
// may always act for themselves. Hidden members are otherwise writable only
// by admins and their assigned case worker; other members by any staff.
func (g *AccessGuard) CheckSubject(ctx context.Context, actor Actor, subjectID string) (*models.User, error) {
	if err := g.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	subject, err := g.LoadUser(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if actor.UserID == subject.ID || actor.IsAdmin() {
		return subject, nil
	}
	if !actor.IsStaff() {
		return nil, NewForbiddenError("not allowed to act for this member")
	}
	if !subject.IsHidden {
		return subject, nil
	}

	assigned, err := g.isAssignedCaseworker(ctx, actor.UserID, subject.ID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		// Hidden members are indistinguishable from missing ones
		return nil, NewNotFoundError("user", subjectID)
	}
	return subject, nil
}

func (g *AccessGuard) isAssignedCaseworker(ctx context.Context, caseworkerID, subjectID string) (bool, error) {
	var count int64
	err := retryRead(ctx, g.logger, g.metrics, g.readAttempts, "check case assignment", func() error {
		return g.db.WithContext(ctx).Model(&models.CaseRecord{}).
			Where("client_id = ? AND assigned_to_id = ? AND status <> ?", subjectID, caseworkerID, models.CaseStatusClosed).
			Count(&count).Error
	})
	return count > 0, err
}

// StaffRecipients returns the ids of every active staff member
func (g *AccessGuard) StaffRecipients(ctx context.Context) ([]string, error) {
	var ids []string
	err := retryRead(ctx, g.logger, g.metrics, g.readAttempts, "list staff", func() error {
		ids = nil
		return g.db.WithContext(ctx).Model(&models.User{}).
			Where("role IN ? AND is_active = ?", []string{models.RoleAdmin, models.RoleCaseworker}, true).
			Order("id").
			Pluck("id", &ids).Error
	})
	return ids, err
}
