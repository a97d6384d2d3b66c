package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/fitness-membership/internal/entitlement"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// Причины отказа для метрик.
const (
	denyNotFound        = "not_found"
	denyPremiumRequired = "premium_required"
	denyDisabled        = "disabled"
	denyWrongRole       = "wrong_role"
)

// CanMessage сообщает, может ли пара (участник, тренер) переписываться.
// Проверка всегда выполняется по правам участника, независимо от того, кто пишет.
func CanMessage(member, trainer *models.Account) bool {
	if member == nil || trainer == nil {
		return false
	}
	return trainer.IsTrainer() &&
		member.IsMember() &&
		entitlement.IsPremium(member) &&
		member.IsActive &&
		trainer.IsActive
}

// Pair хранит участников переписки после проверки ролей.
type Pair struct {
	Caller      *models.Account
	Counterpart *models.Account
	Member      *models.Account
	Trainer     *models.Account
}

// resolve загружает вызывающего и собеседника и раскладывает их по ролям.
// Роль вызывающего явно выбирает направление: участник пишет тренеру, тренер пишет участнику.
func (s *Service) resolve(ctx context.Context, callerID, counterpartID string) (*Pair, error) {
	caller, err := s.accounts.GetAccountByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsActive {
		s.metrics.GateDenied(denyDisabled)
		return nil, models.ErrAccountDisabled
	}

	switch caller.Role {
	case models.RoleMember:
		trainer, err := s.counterpart(ctx, counterpartID, models.RoleTrainer, models.ErrTrainerNotFound)
		if err != nil {
			return nil, err
		}
		return &Pair{Caller: caller, Counterpart: trainer, Member: caller, Trainer: trainer}, nil
	case models.RoleTrainer:
		member, err := s.counterpart(ctx, counterpartID, models.RoleMember, models.ErrMemberNotFound)
		if err != nil {
			return nil, err
		}
		return &Pair{Caller: caller, Counterpart: member, Member: member, Trainer: caller}, nil
	default:
		s.metrics.GateDenied(denyWrongRole)
		return nil, models.ErrWrongRole
	}
}

func (s *Service) counterpart(ctx context.Context, id string, role models.Role, notFound error) (*models.Account, error) {
	if uuid.Validate(id) != nil {
		s.metrics.GateDenied(denyNotFound)
		return nil, notFound
	}
	acc, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			s.metrics.GateDenied(denyNotFound)
			return nil, notFound
		}
		return nil, err
	}
	if acc.Role != role {
		s.metrics.GateDenied(denyNotFound)
		return nil, notFound
	}
	return acc, nil
}

// AuthorizeSend проверяет право отправить сообщение. Решение не кэшируется:
// подписка могла закончиться между вызовами.
func (s *Service) AuthorizeSend(ctx context.Context, callerID, counterpartID string) (*Pair, error) {
	p, err := s.resolve(ctx, callerID, counterpartID)
	if err != nil {
		return nil, err
	}
	if !p.Counterpart.IsActive {
		s.metrics.GateDenied(denyDisabled)
		return nil, models.ErrAccountDisabled
	}
	if !CanMessage(p.Member, p.Trainer) {
		s.metrics.GateDenied(denyPremiumRequired)
		return nil, models.ErrPremiumRequired
	}
	return p, nil
}

// AuthorizeRead проверяет право читать историю: нужны только существующий собеседник
// с подходящей ролью и активный вызывающий. Премиум для чтения не требуется.
func (s *Service) AuthorizeRead(ctx context.Context, callerID, counterpartID string) (*Pair, error) {
	return s.resolve(ctx, callerID, counterpartID)
}
