package services

import (
	"context"
	"testing"

	"support_directory_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSubjectHiddenMember(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	db := engine.Deps.DB
	guard := engine.Deps.Guard

	admin := createTestUser(t, db, "Ada Admin", models.RoleAdmin)
	assigned := createTestUser(t, db, "Carl Worker", models.RoleCaseworker)
	unassigned := createTestUser(t, db, "Olive Worker", models.RoleCaseworker)
	client := createTestUser(t, db, "Other Client", models.RoleClient)
	hidden := models.User{Name: "Hana Hidden", Email: "hana@example.org", Password: "x", Role: models.RoleClient, IsActive: true, IsHidden: true}
	require.NoError(t, db.Create(&hidden).Error)

	_, err := engine.Cases.Open(ctx, actorFor(admin), OpenCaseInput{ClientID: &hidden.ID, AssignedToID: &assigned.ID})
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor Actor
		kind  ErrorKind
	}{
		{"Self", actorFor(hidden), ""},
		{"Admin", actorFor(admin), ""},
		{"AssignedCaseworker", actorFor(assigned), ""},
		{"UnassignedCaseworker", actorFor(unassigned), KindNotFound},
		{"Client", actorFor(client), KindAuthorization},
		{"Anonymous", Actor{}, KindAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, err := guard.CheckSubject(ctx, tt.actor, hidden.ID)
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, hidden.ID, subject.ID)
				return
			}
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}

	t.Run("UnassignedSeesSameErrorAsMissingUser", func(t *testing.T) {
		_, hiddenErr := guard.CheckSubject(ctx, actorFor(unassigned), hidden.ID)
		_, missingErr := guard.CheckSubject(ctx, actorFor(unassigned), "7e57d004-2b97-4e7a-b45c-000000000000")
		assert.Equal(t, AsEngineError("", hiddenErr).Code, AsEngineError("", missingErr).Code)
	})

	t.Run("ClosingTheCaseRevokesAccess", func(t *testing.T) {
		var record models.CaseRecord
		require.NoError(t, db.Where("client_id = ?", hidden.ID).First(&record).Error)
		_, err := engine.Cases.Close(ctx, actorFor(admin), record.ID, "Resolved")
		require.NoError(t, err)

		_, err = guard.CheckSubject(ctx, actorFor(assigned), hidden.ID)
		assert.True(t, IsKind(err, KindNotFound))
	})

	t.Run("HiddenCaseLooksMissing", func(t *testing.T) {
		record, err := engine.Cases.Open(ctx, actorFor(admin), OpenCaseInput{ClientID: &hidden.ID, AssignedToID: &assigned.ID})
		require.NoError(t, err)
		_, err = engine.Cases.Get(ctx, actorFor(unassigned), record.ID)
		assert.True(t, IsKind(err, KindNotFound))
	})
}

func TestCheckSubjectInactiveUser(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	db := engine.Deps.DB
	admin := createTestUser(t, db, "Ada Admin", models.RoleAdmin)
	gone := createTestUser(t, db, "Gone User", models.RoleClient)
	require.NoError(t, db.Model(&gone).Update("is_active", false).Error)

	_, err := engine.Deps.Guard.CheckSubject(ctx, actorFor(admin), gone.ID)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestStaffRecipients(t *testing.T) {
	engine, _ := newTestEngine(t)
	db := engine.Deps.DB
	admin := createTestUser(t, db, "Ada Admin", models.RoleAdmin)
	worker := createTestUser(t, db, "Carl Worker", models.RoleCaseworker)
	createTestUser(t, db, "Cleo Client", models.RoleClient)

	ids, err := engine.Deps.Guard.StaffRecipients(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{admin.ID, worker.ID}, ids)
}

func TestCheckResourceWrite(t *testing.T) {
	guard := NewAccessGuard(setupTestDB(t), nil, nil)
	housing := mustDomain(models.DomainHousing)
	sensitive := &models.HousingResource{IsSensitive: true}
	ordinary := &models.HousingResource{}

	admin := Actor{UserID: "a", Role: models.RoleAdmin}
	worker := Actor{UserID: "w", Role: models.RoleCaseworker}
	client := Actor{UserID: "c", Role: models.RoleClient}

	assert.NoError(t, guard.CheckResourceWrite(admin, housing, sensitive))
	assert.NoError(t, guard.CheckResourceWrite(worker, housing, ordinary))
	assert.True(t, IsKind(guard.CheckResourceWrite(worker, housing, sensitive), KindAuthorization))
	assert.True(t, IsKind(guard.CheckResourceWrite(client, housing, ordinary), KindAuthorization))
	assert.True(t, IsKind(guard.CheckResourceWrite(Actor{}, housing, ordinary), KindAuthorization))
}
