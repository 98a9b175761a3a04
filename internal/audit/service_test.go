package audit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/mrlokans/authsvc/internal/database/audit"
	"github.com/mrlokans/authsvc/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	repo := auditRepo.NewRepository(db)
	svc := NewService(repo, nil)

	return svc, db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    "user-1",
		EventType: entities.AuditEventRegister,
		Status:    entities.AuditStatusSuccess,
	}

	err := svc.Log(context.Background(), event)
	require.NoError(t, err)

	var saved entities.AuditEvent
	err = db.Where("id = ?", event.ID).First(&saved).Error
	require.NoError(t, err)
	assert.Equal(t, entities.AuditEventRegister, saved.EventType)
}

func TestService_LogAuth(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("records client info from context", func(t *testing.T) {
		ctx := WithClientInfo(context.Background(), "203.0.113.7", "test-agent/1.0")
		svc.LogAuth(ctx, &entities.AuditEvent{
			UserID:     "user-1",
			EventType:  entities.AuditEventLogin,
			Identifier: "alice",
			SessionRef: "0123456789abcdef",
			Status:     entities.AuditStatusSuccess,
		})
		svc.Wait()

		var event entities.AuditEvent
		err := db.Where("event_type = ?", entities.AuditEventLogin).First(&event).Error
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.7", event.IPAddress)
		assert.Equal(t, "test-agent/1.0", event.UserAgent)
		assert.Equal(t, "alice", event.Identifier)
		assert.Equal(t, "0123456789abcdef", event.SessionRef)
	})

	t.Run("failed attempt without client info", func(t *testing.T) {
		svc.LogAuth(context.Background(), &entities.AuditEvent{
			EventType:  entities.AuditEventLogout,
			Status:     entities.AuditStatusFailed,
			Reason:     "store_unavailable",
			Identifier: strings.Repeat("x", 300),
		})
		svc.Wait()

		var event entities.AuditEvent
		err := db.Where("event_type = ?", entities.AuditEventLogout).First(&event).Error
		require.NoError(t, err)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Empty(t, event.IPAddress)
		assert.Len(t, event.Identifier, 254)
	})

	t.Run("canceled request context does not drop the event", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		svc.LogAuth(ctx, &entities.AuditEvent{
			EventType: entities.AuditEventRevoke,
			Status:    entities.AuditStatusSuccess,
		})
		svc.Wait()

		var count int64
		require.NoError(t, db.Model(&entities.AuditEvent{}).Where("event_type = ?", entities.AuditEventRevoke).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "this is...", truncate("this is too long", 10))
}
