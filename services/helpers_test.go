package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"support_directory_go/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	// A single connection keeps the in-memory database shared by every query
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// recordingPublisher captures published notifications
type recordingPublisher struct {
	mu        sync.Mutex
	published []models.Notification
	err       error
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, notifications []models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, notifications...)
	return p.err
}

func newTestEngine(t *testing.T) (*Engine, *recordingPublisher) {
	db := setupTestDB(t)
	pub := &recordingPublisher{}
	engine, err := NewEngine(db, EngineOptions{Publishers: []NotificationPublisher{pub}, ReadAttempts: 1})
	require.NoError(t, err)
	return engine, pub
}

func createTestUser(t *testing.T, db *gorm.DB, name, role string) models.User {
	user := models.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.org",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func actorFor(u models.User) Actor {
	return ActorFromUser(&u)
}

func float64Ptr(f float64) *float64 { return &f }

func stringPtr(s string) *string { return &s }
