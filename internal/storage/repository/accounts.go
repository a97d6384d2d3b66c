package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

const accountColumns = `id, username, password_hash, role, profile_picture, tier,
	sub_active, plan_name, start_date, end_date, auto_renew, payment_method,
	last_payment_date, next_payment_date,
	total_workouts, total_hours, current_streak, longest_streak, last_workout_date,
	fitness_profile, is_active, last_login, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a                                         models.Account
		start, end, lastPay, nextPay, lastWorkout sql.NullTime
		lastLogin                                 sql.NullTime
		fitness                                   []byte
	)
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.ProfilePicture, &a.Tier,
		&a.Subscription.Active, &a.Subscription.PlanName, &start, &end,
		&a.Subscription.AutoRenew, &a.Subscription.PaymentMethod, &lastPay, &nextPay,
		&a.Stats.TotalWorkouts, &a.Stats.TotalHours, &a.Stats.CurrentStreak,
		&a.Stats.LongestStreak, &lastWorkout,
		&fitness, &a.IsActive, &lastLogin, &a.CreatedAt, &a.UpdatedAt, &a.Version)
	if err != nil {
		return nil, err
	}
	a.Subscription.StartDate = timePtr(start)
	a.Subscription.EndDate = timePtr(end)
	a.Subscription.LastPaymentDate = timePtr(lastPay)
	a.Subscription.NextPaymentDate = timePtr(nextPay)
	a.Stats.LastWorkoutDate = timePtr(lastWorkout)
	a.LastLogin = timePtr(lastLogin)
	if a.Fitness, err = decodeFitness(fitness); err != nil {
		return nil, err
	}
	return &a, nil
}

func decodeFitness(raw []byte) (models.FitnessProfile, error) {
	p := models.DefaultFitnessProfile()
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.FitnessProfile{}, fmt.Errorf("decode fitness profile: %w", err)
	}
	if p.FitnessLevel == "" {
		p.FitnessLevel = models.FitnessBeginner
	}
	if p.Goals == nil {
		p.Goals = []models.FitnessGoal{}
	}
	if p.MedicalConditions == nil {
		p.MedicalConditions = []string{}
	}
	return p, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CreateAccount сохраняет новую учётную запись. ID задаётся вызывающей стороной.
func (s *Storage) CreateAccount(ctx context.Context, a *models.Account) error {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	fitness, err := json.Marshal(a.Fitness)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO accounts (id, username, password_hash, role, profile_picture, tier,
			      sub_active, plan_name, is_active, fitness_profile)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING created_at, updated_at, version`
	err = s.DB.QueryRowContext(ctx, query,
		a.ID, a.Username, a.PasswordHash, string(a.Role), a.ProfilePicture, string(a.Tier),
		a.Subscription.Active, a.Subscription.PlanName, a.IsActive, fitness,
	).Scan(&a.CreatedAt, &a.UpdatedAt, &a.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, models.ErrDuplicateUsername)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetAccountByID возвращает учётную запись по её ID.
func (s *Storage) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.GetAccountByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// GetAccountByUsername возвращает учётную запись по username.
func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	const op = "storage.GetAccountByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// UpdateAccount записывает подписку и статистику одним запросом.
// Запись проходит только если версия строки совпадает с a.Version,
// иначе возвращается models.ErrVersionConflict.
func (s *Storage) UpdateAccount(ctx context.Context, a *models.Account) error {
	const op = "storage.UpdateAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET tier = $1, sub_active = $2, plan_name = $3, start_date = $4, end_date = $5,
			      auto_renew = $6, payment_method = $7, last_payment_date = $8, next_payment_date = $9,
			      total_workouts = $10, total_hours = $11, current_streak = $12,
			      longest_streak = $13, last_workout_date = $14,
			      updated_at = NOW(), version = version + 1
			  WHERE id = $15 AND version = $16
			  RETURNING updated_at, version`
	sub, st := a.Subscription, a.Stats
	err := s.DB.QueryRowContext(ctx, query,
		string(a.Tier), sub.Active, sub.PlanName, nullTime(sub.StartDate), nullTime(sub.EndDate),
		sub.AutoRenew, sub.PaymentMethod, nullTime(sub.LastPaymentDate), nullTime(sub.NextPaymentDate),
		st.TotalWorkouts, st.TotalHours, st.CurrentStreak, st.LongestStreak, nullTime(st.LastWorkoutDate),
		a.ID, a.Version,
	).Scan(&a.UpdatedAt, &a.Version)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var exists bool
	if err = s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	return fmt.Errorf("%s: %w", op, models.ErrVersionConflict)
}

// UpdateProfile меняет username и картинку профиля.
func (s *Storage) UpdateProfile(ctx context.Context, id, username, profilePicture string) error {
	const op = "storage.UpdateProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE accounts SET username = $1, profile_picture = $2, updated_at = NOW(), version = version + 1
		 WHERE id = $3`,
		username, profilePicture, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, models.ErrDuplicateUsername)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkAffected(op, res)
}

// UpdateFitnessProfile целиком перезаписывает анкету.
func (s *Storage) UpdateFitnessProfile(ctx context.Context, id string, p models.FitnessProfile) error {
	const op = "storage.UpdateFitnessProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE accounts SET fitness_profile = $1, updated_at = NOW(), version = version + 1
		 WHERE id = $2`, raw, id)
	if err != nil {
		if isInvalidText(err) {
			return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkAffected(op, res)
}

// UpdatePasswordHash сохраняет новый хэш пароля.
func (s *Storage) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const op = "storage.UpdatePasswordHash"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkAffected(op, res)
}

// TouchLogin обновляет время последнего входа.
func (s *Storage) TouchLogin(ctx context.Context, id string, at time.Time) error {
	const op = "storage.TouchLogin"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE accounts SET last_login = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkAffected(op, res)
}

// SetActive включает или мягко отключает учётную запись.
func (s *Storage) SetActive(ctx context.Context, id string, active bool) error {
	const op = "storage.SetActive"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE accounts SET is_active = $1, updated_at = NOW(), version = version + 1 WHERE id = $2`,
		active, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return checkAffected(op, res)
}

// ListTrainers возвращает активных тренеров, отсортированных по username.
func (s *Storage) ListTrainers(ctx context.Context) ([]*models.Account, error) {
	const op = "storage.ListTrainers"
	query := `SELECT ` + accountColumns + ` FROM accounts
			  WHERE role = 'trainer' AND is_active
			  ORDER BY username`
	return s.listAccounts(ctx, op, query)
}

// ListPremium возвращает участников с действующей платной подпиской.
func (s *Storage) ListPremium(ctx context.Context) ([]*models.Account, error) {
	const op = "storage.ListPremium"
	query := `SELECT ` + accountColumns + ` FROM accounts
			  WHERE tier <> 'free' AND sub_active
			  ORDER BY username`
	return s.listAccounts(ctx, op, query)
}

func (s *Storage) listAccounts(ctx context.Context, op, query string, args ...any) ([]*models.Account, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func checkAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	return nil
}
