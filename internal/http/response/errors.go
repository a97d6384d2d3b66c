package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

type exposeKey struct{}

// ExposeInternal возвращает middleware, которое разрешает отдавать клиенту
// текст внутренних ошибок. Включается только в локальном окружении.
func ExposeInternal(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), exposeKey{}, enabled)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var statuses = []struct {
	err    error
	status int
}{
	{models.ErrValidation, http.StatusUnprocessableEntity},
	{models.ErrInvalidPlan, http.StatusBadRequest},
	{models.ErrEmptyMessage, http.StatusBadRequest},
	{models.ErrUnsupportedPaymentMethod, http.StatusBadRequest},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrInvalidToken, http.StatusUnauthorized},
	{models.ErrPaymentRejected, http.StatusPaymentRequired},
	{models.ErrPremiumRequired, http.StatusForbidden},
	{models.ErrWrongRole, http.StatusForbidden},
	{models.ErrAccountDisabled, http.StatusForbidden},
	{models.ErrAccountNotFound, http.StatusNotFound},
	{models.ErrTrainerNotFound, http.StatusNotFound},
	{models.ErrMemberNotFound, http.StatusNotFound},
	{models.ErrDuplicateUsername, http.StatusConflict},
	{models.ErrVersionConflict, http.StatusConflict},
	{models.ErrPaymentUnavailable, http.StatusServiceUnavailable},
}

// StatusFor возвращает HTTP-статус и сообщение для клиента.
// Для известных ошибок сообщение начинается с текста ошибки домена без префиксов операций.
// Для неизвестных возвращается 500 и общее сообщение.
func StatusFor(err error) (int, string) {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			msg := err.Error()
			if i := strings.Index(msg, s.err.Error()); i >= 0 {
				msg = msg[i:]
			}
			return s.status, msg
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// Fail пишет ответ с ошибкой. Ошибки 5xx логируются на уровне Error, остальные на Info.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
		if expose, _ := r.Context().Value(exposeKey{}).(bool); expose && status == http.StatusInternalServerError {
			msg = err.Error()
		}
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}

// BadRequest пишет 400 с сообщением.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error(msg))
}

// Invalid пишет 422 с описанием ошибок валидации.
func Invalid(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusUnprocessableEntity)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		render.JSON(w, r, ValidationError(verrs))
		return
	}
	render.JSON(w, r, Error(err.Error()))
}
