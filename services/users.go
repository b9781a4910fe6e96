package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"support_directory_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 12

// ValidatePassword requires MinPasswordLength characters with upper and
// lower case letters, a number and a symbol
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError("password must be at least %d characters long", MinPasswordLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return NewValidationError("password must contain an uppercase letter")
	case !hasLower:
		return NewValidationError("password must contain a lowercase letter")
	case !hasNumber:
		return NewValidationError("password must contain a number")
	case !hasSpecial:
		return NewValidationError("password must contain a special character")
	}
	return nil
}

// NewUserInput describes a caller to provision
type NewUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Hidden   bool
}

// ProvisionUser validates and creates a caller account, recording the
// creation in the activity log under actor
func ProvisionUser(ctx context.Context, db *gorm.DB, actor Actor, in NewUserInput) (*models.User, error) {
	name := SanitizeText(in.Name)
	if name == "" {
		return nil, NewValidationError("name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, NewValidationError("invalid email address")
	}
	if !models.IsValidRole(in.Role) {
		return nil, NewValidationError("role must be one of %s, %s, %s", models.RoleAdmin, models.RoleCaseworker, models.RoleClient)
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	email := strings.ToLower(addr.Address)
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, NewStoreError("check email", err)
	}
	if count > 0 {
		return nil, NewConflictError("a user with email %s already exists", email)
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     in.Role,
		IsActive: true,
		IsHidden: in.Hidden,
	}
	writer := NewTransactionalWriter(db, nil, nil)
	_, err = writer.Execute(ctx,
		Insert("user", func(WriteResults) (models.Record, error) { return user, nil }),
		Activity(actor, models.ActivityActionCreate, EntityUser, StepID("user"),
			fmt.Sprintf("Provisioned %s %q", user.Role, user.Name), nil,
			map[string]interface{}{"name": user.Name, "email": user.Email, "role": user.Role, "isHidden": user.IsHidden}),
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SeedAdmin creates the first admin when none exists. Empty credentials
// skip seeding.
func SeedAdmin(ctx context.Context, db *gorm.DB, logger *zap.Logger, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if name == "" {
		name = "Administrator"
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Debug("Admin user already exists, skipping seed")
		return nil
	}

	user, err := ProvisionUser(ctx, db, SystemActor, NewUserInput{Name: name, Email: email, Password: password, Role: models.RoleAdmin})
	if errors.Is(err, ErrConflict) {
		logger.Warn("Seed email already belongs to a non-admin user, skipping seed", zap.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Seeded admin user", zap.String("email", user.Email))
	return nil
}
