// Package storage описывает контракт хранилища учётных записей и сообщений.
// Реализации: repository (PostgreSQL) и memory (локальный режим и тесты).
package storage

import (
	"context"
	"time"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// Accounts описывает операции над учётными записями.
type Accounts interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	UpdateAccount(ctx context.Context, a *models.Account) error
	UpdateProfile(ctx context.Context, id, username, profilePicture string) error
	UpdateFitnessProfile(ctx context.Context, id string, p models.FitnessProfile) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	ListTrainers(ctx context.Context) ([]*models.Account, error)
	ListPremium(ctx context.Context) ([]*models.Account, error)
}

// Messages описывает операции над перепиской.
type Messages interface {
	InsertMessage(ctx context.Context, msg *models.Message, now time.Time) error
	History(ctx context.Context, a, b string, page models.Page) ([]models.Message, error)
	ConversationsFor(ctx context.Context, accountID string) ([]models.ConversationSummary, error)
}

// Store объединяет все операции хранилища.
type Store interface {
	Accounts
	Messages
	Close() error
}
