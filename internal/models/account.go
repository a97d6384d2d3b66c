// Package models содержит доменные структуры сервиса: учётную запись участника или тренера,
// состояние подписки, статистику тренировок и сообщения чата.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// Role определяет роль учётной записи.
type Role string

const (
	// RoleMember обозначает участника клуба, который может оформлять подписку.
	RoleMember Role = "member"
	// RoleTrainer обозначает тренера, который отвечает участникам в чате.
	RoleTrainer Role = "trainer"
)

// Valid сообщает, является ли роль допустимой.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleTrainer
}

// Tier задаёт уровень подписки. Нулевой уровень равен free.
type Tier string

const (
	TierFree     Tier = "free"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Subscription хранит состояние подписки участника.
// Поля с датами и способом оплаты носят описательный характер:
// текущие права определяются только парой (Tier, Active).
type Subscription struct {
	Active          bool       `json:"active"`
	PlanName        string     `json:"plan_name"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	AutoRenew       bool       `json:"auto_renew"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
	NextPaymentDate *time.Time `json:"next_payment_date,omitempty"`
}

// ActivityStats хранит статистику тренировок и не связана с подпиской.
type ActivityStats struct {
	TotalWorkouts   int        `json:"total_workouts"`
	TotalHours      float64    `json:"total_hours"`
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	LastWorkoutDate *time.Time `json:"last_workout_date,omitempty"`
}

// Account представляет зарегистрированного участника или тренера.
type Account struct {
	ID             string         `json:"id"`
	Username       string         `json:"username"`
	PasswordHash   string         `json:"-"`
	Role           Role           `json:"role"`
	ProfilePicture string         `json:"profile_picture,omitempty"`
	Tier           Tier           `json:"tier"`
	Subscription   Subscription   `json:"subscription"`
	Stats          ActivityStats  `json:"activity_stats"`
	Fitness        FitnessProfile `json:"fitness_profile"`
	IsActive       bool           `json:"is_active"` // мягкая деактивация, не путать с Subscription.Active
	LastLogin      *time.Time     `json:"last_login,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Version        int            `json:"-"` // версия строки для оптимистичной блокировки
}

// IsTrainer сообщает, является ли учётная запись тренером.
func (a *Account) IsTrainer() bool {
	return a.Role == RoleTrainer
}

// IsMember сообщает, является ли учётная запись участником.
func (a *Account) IsMember() bool {
	return a.Role == RoleMember
}

// Participant содержит публичные поля учётной записи, которые отдаются вместе с сообщениями.
type Participant struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Role           Role   `json:"role"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// AsParticipant возвращает публичное представление учётной записи.
func (a *Account) AsParticipant() Participant {
	return Participant{
		ID:             a.ID,
		Username:       a.Username,
		Role:           a.Role,
		ProfilePicture: a.ProfilePicture,
	}
}
