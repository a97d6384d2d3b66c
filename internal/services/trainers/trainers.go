// Package trainers отдаёт справочник активных тренеров с кэшированием в redis.
package trainers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

const (
	cacheKey   = "trainers:directory"
	DefaultTTL = 5 * time.Minute
)

// Repository отдаёт список тренеров.
type Repository interface {
	ListTrainers(ctx context.Context) ([]*models.Account, error)
}

// Cache описывает контракт кэша.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Service возвращает справочник тренеров.
type Service struct {
	log   *slog.Logger
	repo  Repository
	cache Cache
	ttl   time.Duration
}

// NewService создаёт Service. cache может быть nil: тогда каждый вызов идёт в хранилище.
func NewService(log *slog.Logger, repo Repository, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{log: log, repo: repo, cache: cache, ttl: ttl}
}

// List возвращает активных тренеров, отсортированных по username.
// Ошибки кэша не прерывают запрос.
func (s *Service) List(ctx context.Context) ([]models.Participant, error) {
	const op = "trainers.List"

	if s.cache != nil {
		var cached []models.Participant
		found, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.log.Warn("failed to read trainers from cache", sl.Op(op), sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	accs, err := s.repo.ListTrainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := make([]models.Participant, 0, len(accs))
	for _, a := range accs {
		result = append(result, a.AsParticipant())
	}

	if s.cache != nil {
		if err = s.cache.Set(ctx, cacheKey, result, s.ttl); err != nil {
			s.log.Warn("failed to cache trainers", sl.Op(op), sl.Err(err))
		}
	}
	return result, nil
}

// Invalidate сбрасывает кэш справочника, например после отключения тренера.
func (s *Service) Invalidate(ctx context.Context) error {
	const op = "trainers.Invalidate"
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, cacheKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
