package services

import (
	"context"
	"testing"

	"support_directory_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"Valid", "Correct-Horse-9", ""},
		{"TooShort", "Sh0rt!", "at least 12"},
		{"NoUpper", "correct-horse-9", "uppercase"},
		{"NoLower", "CORRECT-HORSE-9", "lowercase"},
		{"NoNumber", "Correct-Horse-X", "number"},
		{"NoSpecial", "CorrectHorse99", "special"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsKind(err, KindValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProvisionUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	admin := actorFor(createTestUser(t, db, "Ada Admin", models.RoleAdmin))

	user, err := ProvisionUser(ctx, db, admin, NewUserInput{
		Name:     " <b>Wendy</b> Worker ",
		Email:    "Wendy Worker <Wendy@Example.ORG>",
		Password: "Correct-Horse-9",
		Role:     models.RoleCaseworker,
		Hidden:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Wendy Worker", user.Name)
	assert.Equal(t, "wendy@example.org", user.Email)
	assert.True(t, user.IsActive)
	assert.True(t, user.IsHidden)
	assert.True(t, VerifyPassword(user.Password, "Correct-Horse-9"))

	t.Run("RecordsOneActivityRow", func(t *testing.T) {
		var entries []models.ActivityLog
		require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", EntityUser, user.ID).Find(&entries).Error)
		require.Len(t, entries, 1)
		assert.Equal(t, models.ActivityActionCreate, entries[0].Action)
		require.NotNil(t, entries[0].ActorID)
		assert.Equal(t, admin.UserID, *entries[0].ActorID)
		assert.Contains(t, string(entries[0].NewValues), `"isHidden":true`)
		assert.NotContains(t, string(entries[0].NewValues), user.Password)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := ProvisionUser(ctx, db, admin, NewUserInput{
			Name:     "Other",
			Email:    "WENDY@example.org",
			Password: "Correct-Horse-9",
			Role:     models.RoleClient,
		})
		assert.True(t, IsKind(err, KindConflict))
	})

	invalid := []struct {
		name string
		in   NewUserInput
	}{
		{"BlankName", NewUserInput{Name: "<i></i>", Email: "a@example.org", Password: "Correct-Horse-9", Role: models.RoleClient}},
		{"BadEmail", NewUserInput{Name: "A", Email: "not-an-email", Password: "Correct-Horse-9", Role: models.RoleClient}},
		{"UnknownRole", NewUserInput{Name: "A", Email: "a@example.org", Password: "Correct-Horse-9", Role: "volunteer"}},
		{"WeakPassword", NewUserInput{Name: "A", Email: "a@example.org", Password: "password", Role: models.RoleClient}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProvisionUser(ctx, db, admin, tt.in)
			assert.True(t, IsKind(err, KindValidation), "got %v", err)
		})
	}
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("SkipsWithoutCredentials", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, SeedAdmin(ctx, db, zap.NewNop(), "", "", ""))

		var count int64
		db.Model(&models.User{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("CreatesOnce", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, SeedAdmin(ctx, db, zap.NewNop(), "", "root@example.org", "Correct-Horse-9"))
		require.NoError(t, SeedAdmin(ctx, db, zap.NewNop(), "Second", "second@example.org", "Correct-Horse-9"))

		var admins []models.User
		require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
		require.Len(t, admins, 1)
		assert.Equal(t, "Administrator", admins[0].Name)
		assert.Equal(t, "root@example.org", admins[0].Email)

		var entries []models.ActivityLog
		require.NoError(t, db.Where("entity_id = ?", admins[0].ID).Find(&entries).Error)
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].ActorID)
		assert.Equal(t, SystemActor.Name, entries[0].ActorName)
	})

	t.Run("EmailTakenByNonAdmin", func(t *testing.T) {
		db := setupTestDB(t)
		client := createTestUser(t, db, "Root", models.RoleClient)

		core, logs := observer.New(zapcore.WarnLevel)
		require.NoError(t, SeedAdmin(ctx, db, zap.New(core), "Root", client.Email, "Correct-Horse-9"))

		assert.Equal(t, 1, logs.FilterMessageSnippet("skipping seed").Len())
		var count int64
		db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("WeakPasswordFails", func(t *testing.T) {
		db := setupTestDB(t)
		err := SeedAdmin(ctx, db, zap.NewNop(), "", "root@example.org", "short")
		assert.True(t, IsKind(err, KindValidation))
	})
}
