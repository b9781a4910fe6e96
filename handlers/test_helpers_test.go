package handlers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"support_directory_go/config"
	"support_directory_go/db"
	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	// One connection keeps every query on the same in-memory database
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(testDB))
	return testDB
}

type testServer struct {
	e       *echo.Echo
	db      *gorm.DB
	engine  *services.Engine
	handler *Handler
}

func setupServer(t *testing.T) *testServer {
	testDB := setupTestDB(t)
	engine, err := services.NewEngine(testDB, services.EngineOptions{})
	require.NoError(t, err)

	cfg := &config.Config{SessionDuration: time.Hour}
	h := New(engine, cfg, nil)

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(h.Logger)
	h.RegisterRoutes(e, nil)

	return &testServer{e: e, db: testDB, engine: engine, handler: h}
}

// createUser inserts an active user and returns it with a bearer token
func (s *testServer) createUser(t *testing.T, name, role string) (models.User, string) {
	user := models.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.org",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, s.db.Create(&user).Error)

	session, err := services.CreateSession(s.db, user.ID, "127.0.0.1", "test", time.Hour)
	require.NoError(t, err)
	return user, session.Token
}

func (s *testServer) do(method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func floatPtr(f float64) *float64 { return &f }

