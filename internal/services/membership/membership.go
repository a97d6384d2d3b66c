// Package membership управляет жизненным циклом подписки участника:
// покупка уровня, отмена, учёт тренировок и чтение текущего статуса.
//
// Права не хранятся: статус всегда вычисляется из пары (Tier, Subscription.Active).
// Все изменения учётной записи идут через read-modify-write с проверкой версии строки
// и ограниченным числом повторов при конфликте.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/magabrotheeeer/fitness-membership/internal/config"
	"github.com/magabrotheeeer/fitness-membership/internal/entitlement"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/metrics"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
	"github.com/magabrotheeeer/fitness-membership/internal/notify"
	"github.com/magabrotheeeer/fitness-membership/internal/paymentprovider"
)

// Границы параметров запросов.
const (
	DefaultDurationDays  = 30
	MinDurationDays      = 1
	MaxDurationDays      = 365
	DefaultWorkoutHours  = 1.0
	MinWorkoutHours      = 0.1
	MaxWorkoutHours      = 24.0
	DefaultUpdateRetries = 3
)

// AccountRepository описывает контракт хранилища учётных записей.
type AccountRepository interface {
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	UpdateAccount(ctx context.Context, a *models.Account) error
	SetActive(ctx context.Context, id string, active bool) error
	ListPremium(ctx context.Context) ([]*models.Account, error)
}

// PaymentGateway проверяет способ оплаты и проводит списание.
type PaymentGateway interface {
	Supports(method string) bool
	Charge(ctx context.Context, req paymentprovider.ChargeRequest) (*paymentprovider.ChargeResult, error)
}

// UpgradeRequest описывает покупку уровня. Нулевой DurationDays означает значение по умолчанию.
type UpgradeRequest struct {
	Tier          string
	DurationDays  int
	PaymentMethod string
	AutoRenew     *bool
}

// WorkoutRequest описывает тренировку. DurationHours == nil означает 1 час.
type WorkoutRequest struct {
	DurationHours *float64
	WorkoutType   string
}

// Status описывает текущее состояние подписки с вычисленным набором возможностей.
type Status struct {
	IsPremium     bool                   `json:"is_premium"`
	Tier          models.Tier            `json:"tier"`
	Subscription  models.Subscription    `json:"subscription"`
	Features      entitlement.FeatureSet `json:"features"`
	ActivityStats models.ActivityStats   `json:"activity_stats"`
}

// StatusOf строит Status по учётной записи.
func StatusOf(acc *models.Account) *Status {
	return &Status{
		IsPremium:     entitlement.IsPremium(acc),
		Tier:          acc.Tier,
		Subscription:  acc.Subscription,
		Features:      entitlement.Features(acc),
		ActivityStats: acc.Stats,
	}
}

// Service реализует операции жизненного цикла подписки.
type Service struct {
	log             *slog.Logger
	accounts        AccountRepository
	gateway         PaymentGateway
	notifier        notify.Notifier
	metrics         *metrics.Metrics
	defaultDuration int
	maxRetries      int
	now             func() time.Time
}

// NewService создаёт Service. metrics может быть nil.
func NewService(
	log *slog.Logger,
	accounts AccountRepository,
	gateway PaymentGateway,
	notifier notify.Notifier,
	m *metrics.Metrics,
	cfg config.Membership,
) *Service {
	s := &Service{
		log:             log,
		accounts:        accounts,
		gateway:         gateway,
		notifier:        notifier,
		metrics:         m,
		defaultDuration: cfg.DefaultDurationDays,
		maxRetries:      cfg.MaxUpdateRetries,
		now:             time.Now,
	}
	if s.defaultDuration < MinDurationDays || s.defaultDuration > MaxDurationDays {
		s.defaultDuration = DefaultDurationDays
	}
	if s.maxRetries < 1 {
		s.maxRetries = DefaultUpdateRetries
	}
	return s
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// mutate перечитывает учётную запись, применяет fn и сохраняет её с проверкой версии.
// При конфликте версий попытка повторяется до maxRetries раз.
func (s *Service) mutate(ctx context.Context, accountID string, fn func(acc *models.Account) error) (*models.Account, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		acc, err := s.accounts.GetAccountByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if err = fn(acc); err != nil {
			return nil, err
		}
		err = s.accounts.UpdateAccount(ctx, acc)
		if err == nil {
			return acc, nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		s.log.Debug("version conflict, retrying",
			slog.String("account_id", accountID),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

func (s *Service) validateUpgrade(req UpgradeRequest) (models.Tier, int, string, error) {
	tier, ok := entitlement.ParseTier(req.Tier)
	if !ok || !entitlement.IsPaid(tier) {
		return "", 0, "", models.ErrInvalidPlan
	}
	days := req.DurationDays
	if days == 0 {
		days = s.defaultDuration
	}
	if days < MinDurationDays || days > MaxDurationDays {
		return "", 0, "", fmt.Errorf("%w: duration must be between %d and %d days",
			models.ErrValidation, MinDurationDays, MaxDurationDays)
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" || !s.gateway.Supports(method) {
		return "", 0, "", models.ErrUnsupportedPaymentMethod
	}
	return tier, days, method, nil
}

// Upgrade покупает уровень подписки. При отказе в оплате состояние не меняется.
// Понижение уровня через Upgrade разрешено: новый уровень просто перезаписывает старый.
func (s *Service) Upgrade(ctx context.Context, accountID string, req UpgradeRequest) (*Status, error) {
	const op = "membership.Upgrade"
	log := s.log.With(sl.Op(op), slog.String("account_id", accountID))

	tier, days, method, err := s.validateUpgrade(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = checkSubscriber(acc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	charge, err := s.gateway.Charge(ctx, paymentprovider.ChargeRequest{
		AccountID:    accountID,
		Tier:         tier,
		Method:       method,
		Amount:       entitlement.Price(tier, days),
		DurationDays: days,
	})
	if err != nil {
		s.metrics.Payment(method, paymentResult(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Payment(method, "approved")

	updated, err := s.mutate(ctx, accountID, func(acc *models.Account) error {
		if err := checkSubscriber(acc); err != nil {
			return err
		}
		now := s.now().UTC()
		end := now.AddDate(0, 0, days)
		acc.Tier = tier
		acc.Subscription.Active = true
		acc.Subscription.PlanName = entitlement.PlanName(tier)
		acc.Subscription.StartDate = &now
		acc.Subscription.EndDate = &end
		acc.Subscription.PaymentMethod = method
		acc.Subscription.LastPaymentDate = &now
		acc.Subscription.NextPaymentDate = &end
		if req.AutoRenew != nil {
			acc.Subscription.AutoRenew = *req.AutoRenew
		}
		return nil
	})
	if err != nil {
		log.Error("payment captured but membership was not updated",
			slog.String("transaction_id", charge.TransactionID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Upgrade(string(tier))
	if err := s.notifier.MembershipUpgraded(ctx, notify.MembershipEvent{
		AccountID:     updated.ID,
		Username:      updated.Username,
		Tier:          updated.Tier,
		PlanName:      updated.Subscription.PlanName,
		PaymentMethod: method,
		EndDate:       updated.Subscription.EndDate,
		OccurredAt:    s.now().UTC(),
	}); err != nil {
		log.Warn("failed to publish membership event", sl.Err(err))
	}
	log.Info("membership upgraded",
		slog.String("tier", string(tier)),
		slog.Int("days", days),
		slog.String("transaction_id", charge.TransactionID),
	)
	return StatusOf(updated), nil
}

func checkSubscriber(acc *models.Account) error {
	if !acc.IsMember() {
		return models.ErrWrongRole
	}
	if !acc.IsActive {
		return models.ErrAccountDisabled
	}
	return nil
}

func paymentResult(err error) string {
	switch {
	case errors.Is(err, models.ErrPaymentRejected):
		return "declined"
	case errors.Is(err, models.ErrPaymentUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// Cancel переводит учётную запись на бесплатный уровень. История оплат сохраняется.
// Повторная отмена ничего не меняет и завершается успешно.
func (s *Service) Cancel(ctx context.Context, accountID string) (*Status, error) {
	const op = "membership.Cancel"

	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if isCancelled(acc) {
		return StatusOf(acc), nil
	}

	wasPremium := entitlement.IsPremium(acc)
	updated, err := s.mutate(ctx, accountID, func(acc *models.Account) error {
		acc.Tier = models.TierFree
		acc.Subscription.Active = false
		acc.Subscription.AutoRenew = false
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Cancel()
	if wasPremium {
		if err := s.notifier.MembershipCancelled(ctx, notify.MembershipEvent{
			AccountID:  updated.ID,
			Username:   updated.Username,
			Tier:       updated.Tier,
			PlanName:   updated.Subscription.PlanName,
			OccurredAt: s.now().UTC(),
		}); err != nil {
			s.log.Warn("failed to publish membership event", sl.Op(op), sl.Err(err))
		}
	}
	s.log.Info("membership cancelled", sl.Op(op), slog.String("account_id", accountID))
	return StatusOf(updated), nil
}

func isCancelled(acc *models.Account) bool {
	return acc.Tier == models.TierFree && !acc.Subscription.Active && !acc.Subscription.AutoRenew
}

// RecordWorkout учитывает тренировку и обновляет серию дней подряд.
// Серия считается по предыдущей дате тренировки: не больше суток назад значит продолжение,
// иначе серия начинается заново. Первая тренировка всегда даёт серию 1.
func (s *Service) RecordWorkout(ctx context.Context, accountID string, req WorkoutRequest) (*models.ActivityStats, error) {
	const op = "membership.RecordWorkout"

	hours := DefaultWorkoutHours
	if req.DurationHours != nil {
		hours = *req.DurationHours
	}
	if math.IsNaN(hours) || hours < MinWorkoutHours || hours > MaxWorkoutHours {
		return nil, fmt.Errorf("%s: %w: duration must be between %.1f and %.0f hours",
			op, models.ErrValidation, MinWorkoutHours, MaxWorkoutHours)
	}

	updated, err := s.mutate(ctx, accountID, func(acc *models.Account) error {
		if !acc.IsActive {
			return models.ErrAccountDisabled
		}
		now := s.now().UTC()
		st := &acc.Stats
		prev := st.LastWorkoutDate

		st.TotalWorkouts++
		st.TotalHours += hours
		st.LastWorkoutDate = &now
		if prev == nil {
			st.CurrentStreak = 1
		} else if daysBetween(*prev, now) <= 1 {
			st.CurrentStreak++
		} else {
			st.CurrentStreak = 1
		}
		if st.CurrentStreak > st.LongestStreak {
			st.LongestStreak = st.CurrentStreak
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Workout()
	s.log.Debug("workout recorded",
		slog.String("account_id", accountID),
		slog.String("workout_type", strings.TrimSpace(req.WorkoutType)),
		slog.Float64("hours", hours),
	)
	return &updated.Stats, nil
}

// daysBetween возвращает число полных суток между from и to.
func daysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// Status возвращает текущий статус подписки.
func (s *Service) Status(ctx context.Context, accountID string) (*Status, error) {
	const op = "membership.Status"
	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return StatusOf(acc), nil
}

// Features возвращает текущий набор возможностей.
func (s *Service) Features(ctx context.Context, accountID string) (entitlement.FeatureSet, error) {
	const op = "membership.Features"
	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return entitlement.FeatureSet{}, fmt.Errorf("%s: %w", op, err)
	}
	return entitlement.Features(acc), nil
}
