// Package auth отвечает за регистрацию, вход, проверку JWT и профиль учётной записи.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/fitness-membership/internal/entitlement"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/jwt"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/password"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// MinPasswordLen задаёт минимальную длину пароля.
const MinPasswordLen = 6

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// AccountRepository описывает контракт хранилища учётных записей.
type AccountRepository interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id, username, profilePicture string) error
	UpdateFitnessProfile(ctx context.Context, id string, p models.FitnessProfile) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// TrainerDirectory сбрасывает кэш справочника тренеров.
type TrainerDirectory interface {
	Invalidate(ctx context.Context) error
}

// Identity содержит данные учётной записи из проверенного токена.
type Identity struct {
	AccountID string
	Username  string
	Role      models.Role
}

// RegisterInput содержит данные для регистрации. Пустая роль означает участника.
type RegisterInput struct {
	Username       string
	Password       string
	Role           models.Role
	ProfilePicture string
}

// ProfileUpdate содержит изменяемые поля профиля; nil означает «не менять».
type ProfileUpdate struct {
	Username       *string
	ProfilePicture *string
}

// FitnessUpdate содержит изменяемые поля анкеты. Nil означает «не менять»,
// пустой срез очищает список.
type FitnessUpdate struct {
	FitnessLevel      *models.FitnessLevel
	Goals             []models.FitnessGoal
	MedicalConditions []string
	EmergencyContact  *models.EmergencyContact
}

const (
	maxMedicalConditions = 20
	maxMedicalCondLen    = 200
)

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	log       *slog.Logger
	accounts  AccountRepository
	jwtMaker  jwt.Maker
	directory TrainerDirectory
	now       func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(log *slog.Logger, accounts AccountRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		log:      log,
		accounts: accounts,
		jwtMaker: jwtMaker,
		now:      time.Now,
	}
}

// WithTrainerDirectory подключает справочник тренеров, кэш которого
// сбрасывается при регистрации тренера и изменении его профиля.
func (s *Service) WithTrainerDirectory(d TrainerDirectory) *Service {
	s.directory = d
	return s
}

func (s *Service) invalidateTrainers(ctx context.Context, op string, acc *models.Account) {
	if s.directory == nil || !acc.IsTrainer() {
		return
	}
	if err := s.directory.Invalidate(ctx); err != nil {
		s.log.Warn("failed to invalidate trainers cache",
			sl.Op(op),
			slog.String("account_id", acc.ID),
			sl.Err(err),
		)
	}
}

// ValidateUsername проверяет формат username.
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-30 letters, digits or underscores", models.ErrValidation)
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", models.ErrValidation, MinPasswordLen)
	}
	return nil
}

// Register создаёт учётную запись с бесплатным планом и сразу выдаёт токен.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Account, string, error) {
	const op = "auth.Register"

	in.Username = strings.TrimSpace(in.Username)
	if err := ValidateUsername(in.Username); err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	if in.Role == "" {
		in.Role = models.RoleMember
	}
	if !in.Role.Valid() {
		return nil, "", fmt.Errorf("%s: %w: invalid role %q", op, models.ErrValidation, in.Role)
	}

	hashed, err := password.GetHash(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	acc := &models.Account{
		ID:             uuid.NewString(),
		Username:       in.Username,
		PasswordHash:   hashed,
		Role:           in.Role,
		ProfilePicture: strings.TrimSpace(in.ProfilePicture),
		Tier:           models.TierFree,
		Subscription:   models.Subscription{PlanName: entitlement.FreePlanName},
		Fitness:        models.DefaultFitnessProfile(),
		IsActive:       true,
	}
	if err = s.accounts.CreateAccount(ctx, acc); err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(acc.ID, acc.Username, string(acc.Role))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	s.touch(ctx, acc)
	s.invalidateTrainers(ctx, op, acc)

	s.log.Info("account registered",
		slog.String("account_id", acc.ID),
		slog.String("role", string(acc.Role)),
	)
	return acc, token, nil
}

// Login проверяет пароль и выдаёт JWT. Неизвестный username и неверный пароль
// неразличимы для клиента.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (*models.Account, string, error) {
	const op = "auth.Login"

	acc, err := s.accounts.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	if !password.Verify(rawPassword, acc.PasswordHash) {
		return nil, "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if !acc.IsActive {
		return nil, "", fmt.Errorf("%s: %w", op, models.ErrAccountDisabled)
	}

	token, err := s.jwtMaker.GenerateToken(acc.ID, acc.Username, string(acc.Role))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	s.touch(ctx, acc)
	return acc, token, nil
}

// touch обновляет время последнего входа; ошибка только логируется.
func (s *Service) touch(ctx context.Context, acc *models.Account) {
	now := s.now().UTC()
	if err := s.accounts.TouchLogin(ctx, acc.ID, now); err != nil {
		s.log.Warn("failed to update last login", slog.String("account_id", acc.ID), sl.Err(err))
		return
	}
	acc.LastLogin = &now
}

// ValidateToken проверяет JWT и возвращает данные учётной записи из него.
func (s *Service) ValidateToken(_ context.Context, token string) (*Identity, error) {
	const op = "auth.ValidateToken"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrInvalidToken, err)
	}
	role := models.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown role", op, models.ErrInvalidToken)
	}
	return &Identity{
		AccountID: claims.AccountID,
		Username:  claims.Username,
		Role:      role,
	}, nil
}

// Profile возвращает учётную запись по ID.
func (s *Service) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	const op = "auth.Profile"
	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// UpdateProfile меняет username и/или картинку профиля.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (*models.Account, error) {
	const op = "auth.UpdateProfile"

	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	username, picture := acc.Username, acc.ProfilePicture
	if upd.Username != nil {
		username = strings.TrimSpace(*upd.Username)
		if err = ValidateUsername(username); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if upd.ProfilePicture != nil {
		picture = strings.TrimSpace(*upd.ProfilePicture)
	}

	if err = s.accounts.UpdateProfile(ctx, accountID, username, picture); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	acc.Username, acc.ProfilePicture = username, picture
	s.invalidateTrainers(ctx, op, acc)
	return acc, nil
}

// UpdateFitnessProfile меняет переданные поля анкеты и возвращает её новое состояние.
func (s *Service) UpdateFitnessProfile(ctx context.Context, accountID string, upd FitnessUpdate) (*models.FitnessProfile, error) {
	const op = "auth.UpdateFitnessProfile"

	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := acc.Fitness.Clone()
	if p.FitnessLevel == "" {
		p.FitnessLevel = models.FitnessBeginner
	}

	if upd.FitnessLevel != nil {
		if !upd.FitnessLevel.Valid() {
			return nil, fmt.Errorf("%s: %w: invalid fitness level %q", op, models.ErrValidation, *upd.FitnessLevel)
		}
		p.FitnessLevel = *upd.FitnessLevel
	}
	if upd.Goals != nil {
		goals := make([]models.FitnessGoal, 0, len(upd.Goals))
		seen := make(map[models.FitnessGoal]bool, len(upd.Goals))
		for _, g := range upd.Goals {
			if !g.Valid() {
				return nil, fmt.Errorf("%s: %w: invalid goal %q", op, models.ErrValidation, g)
			}
			if !seen[g] {
				seen[g] = true
				goals = append(goals, g)
			}
		}
		p.Goals = goals
	}
	if upd.MedicalConditions != nil {
		conds := make([]string, 0, len(upd.MedicalConditions))
		for _, c := range upd.MedicalConditions {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if len(c) > maxMedicalCondLen {
				return nil, fmt.Errorf("%s: %w: medical condition is longer than %d characters", op, models.ErrValidation, maxMedicalCondLen)
			}
			conds = append(conds, c)
		}
		if len(conds) > maxMedicalConditions {
			return nil, fmt.Errorf("%s: %w: at most %d medical conditions allowed", op, models.ErrValidation, maxMedicalConditions)
		}
		p.MedicalConditions = conds
	}
	if upd.EmergencyContact != nil {
		p.EmergencyContact = models.EmergencyContact{
			Name:         strings.TrimSpace(upd.EmergencyContact.Name),
			Phone:        strings.TrimSpace(upd.EmergencyContact.Phone),
			Relationship: strings.TrimSpace(upd.EmergencyContact.Relationship),
		}
	}

	if err = s.accounts.UpdateFitnessProfile(ctx, accountID, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("fitness profile updated",
		slog.String("account_id", accountID),
		slog.String("fitness_level", string(p.FitnessLevel)),
	)
	return &p, nil
}

// ChangePassword меняет пароль после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, accountID, current, next string) error {
	const op = "auth.ChangePassword"

	if err := validatePassword(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	acc, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !password.Verify(current, acc.PasswordHash) {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	hashed, err := password.GetHash(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.accounts.UpdatePasswordHash(ctx, accountID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password changed", slog.String("account_id", accountID))
	return nil
}
