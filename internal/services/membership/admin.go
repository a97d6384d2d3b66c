package membership

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// ListPremium возвращает участников с платным активным уровнем.
func (s *Service) ListPremium(ctx context.Context) ([]*models.Account, error) {
	const op = "membership.ListPremium"
	accs, err := s.accounts.ListPremium(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return accs, nil
}

// CancelByUsername отменяет подписку по username.
func (s *Service) CancelByUsername(ctx context.Context, username string) (*Status, error) {
	const op = "membership.CancelByUsername"
	acc, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st, err := s.Cancel(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// SetActiveByUsername включает или мягко отключает учётную запись.
// Отключённая учётная запись не может войти и не проходит проверку доступа к чату.
func (s *Service) SetActiveByUsername(ctx context.Context, username string, active bool) error {
	const op = "membership.SetActiveByUsername"
	acc, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.accounts.SetActive(ctx, acc.ID, active); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account activity changed",
		slog.String("account_id", acc.ID),
		slog.Bool("active", active),
	)
	return nil
}
