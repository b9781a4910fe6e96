package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginLogout(t *testing.T) {
	s := setupServer(t)

	hash, err := services.HashPassword("correct horse battery")
	require.NoError(t, err)
	user := models.User{Name: "Casey Worker", Email: "casey@example.org", Password: hash, Role: models.RoleCaseworker, IsActive: true}
	require.NoError(t, s.db.Create(&user).Error)

	t.Run("MissingFields", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/login", "", jsonBody(`{"email":"casey@example.org"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/login", "", jsonBody(`{"email":"casey@example.org","password":"nope"}`))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rec.Body.Bytes()).Code)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/login", "", jsonBody(`{"email":"nobody@example.org","password":"whatever"}`))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("SuccessThenLogout", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/login", "", jsonBody(`{"email":" Casey@Example.org ","password":"correct horse battery"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp loginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, user.ID, resp.UserID)
		assert.Equal(t, models.RoleCaseworker, resp.Role)

		rec = s.do(http.MethodGet, "/api/notifications", resp.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(http.MethodPost, "/api/logout", resp.Token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = s.do(http.MethodGet, "/api/notifications", resp.Token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestActivityEndpoint(t *testing.T) {
	s := setupServer(t)
	_, adminToken := s.createUser(t, "Ada Admin", models.RoleAdmin)
	_, workerToken := s.createUser(t, "Casey Worker", models.RoleCaseworker)

	rec := s.do(http.MethodPost, "/api/education", adminToken, jsonBody(`{"name":"Read Easy","courseType":"literacy"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/activity", workerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/activity?entityType="+models.DomainEducation, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp activityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, models.ActivityActionCreate, resp.Entries[0].Action)

	rec = s.do(http.MethodGet, "/api/activity?from=yesterday", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
