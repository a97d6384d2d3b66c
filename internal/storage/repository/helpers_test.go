package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/fitness-membership/internal/entitlement"
	"github.com/magabrotheeeer/fitness-membership/internal/migrations"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(connStr)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(storage))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateAccount создает учётную запись с бесплатным планом
func (f *TestDataFactory) CreateAccount(t *testing.T, username string, role models.Role) *models.Account {
	t.Helper()
	a := &models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
		Tier:         models.TierFree,
		Subscription: models.Subscription{PlanName: entitlement.FreePlanName},
		IsActive:     true,
	}
	require.NoError(t, f.storage.CreateAccount(context.Background(), a))
	return a
}

// SendMessage сохраняет сообщение с заданным временем
func (f *TestDataFactory) SendMessage(t *testing.T, from, to, text string, at time.Time) models.Message {
	t.Helper()
	m := models.Message{ID: uuid.NewString(), SenderID: from, ReceiverID: to, Text: text}
	require.NoError(t, f.storage.InsertMessage(context.Background(), &m, at))
	return m
}
