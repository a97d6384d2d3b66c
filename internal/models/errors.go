package models

import "errors"

// Ошибки валидации: запрос отклоняется, состояние не меняется.
var (
	ErrValidation               = errors.New("validation failed")
	ErrInvalidPlan              = errors.New("invalid plan selected")
	ErrEmptyMessage             = errors.New("message text is required")
	ErrUnsupportedPaymentMethod = errors.New("invalid or missing payment method")
)

// Ошибки поиска.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrTrainerNotFound = errors.New("trainer not found")
	ErrMemberNotFound  = errors.New("member not found")
)

// Ошибки доступа.
var (
	ErrPremiumRequired    = errors.New("premium membership required to chat with trainers")
	ErrWrongRole          = errors.New("operation not allowed for this role")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Конфликты и оплата.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrVersionConflict    = errors.New("account was modified concurrently")
	ErrPaymentRejected    = errors.New("payment failed")
	ErrPaymentUnavailable = errors.New("payment gateway temporarily unavailable")
)
