package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = testDB.AutoMigrate(&models.User{}, &models.Session{})
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return testDB
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestAuthenticate(t *testing.T) {
	testDB := setupTestDB(t)
	e := echo.New()

	user := models.User{Name: "Casey Worker", Email: "casey@example.org", Password: "x", Role: models.RoleCaseworker, IsActive: true}
	require.NoError(t, testDB.Create(&user).Error)

	session, err := services.CreateSession(testDB, user.ID, "127.0.0.1", "test-agent", time.Hour)
	require.NoError(t, err)

	t.Run("ValidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+session.Token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := Authenticate(testDB)(okHandler)(c)
		assert.NoError(t, err)
		require.NotNil(t, GetCurrentUser(c))
		assert.Equal(t, user.ID, GetCurrentUser(c).ID)
	})

	t.Run("NoToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := Authenticate(testDB)(okHandler)(c)
		assert.NoError(t, err)
		assert.Nil(t, GetCurrentUser(c))
	})

	t.Run("InvalidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer nope")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := Authenticate(testDB)(okHandler)(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		expired, err := services.CreateSession(testDB, user.ID, "", "", time.Hour)
		require.NoError(t, err)
		testDB.Model(&models.Session{}).Where("id = ?", expired.ID).Update("expires_at", time.Now().Add(-time.Minute))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+expired.Token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err = Authenticate(testDB)(okHandler)(c)
		assert.Error(t, err)
	})

	t.Run("NonBearerScheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Basic "+session.Token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		assert.NoError(t, Authenticate(testDB)(okHandler)(c))
		assert.Nil(t, GetCurrentUser(c))
	})
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole(models.RoleAdmin, models.RoleCaseworker)(okHandler)

	t.Run("Allowed", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(ContextKeyUser, &models.User{ID: "u1", Role: models.RoleCaseworker})
		assert.NoError(t, handler(c))
	})

	t.Run("WrongRole", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(ContextKeyUser, &models.User{ID: "u2", Role: models.RoleClient})
		he, ok := handler(c).(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, he.Code)
	})

	t.Run("Anonymous", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		he, ok := handler(c).(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	he, ok := RequireAuth()(okHandler)(c).(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(ContextKeyUser, &models.User{ID: "u1", Role: models.RoleClient})
	assert.NoError(t, RequireAuth()(okHandler)(c))
}
