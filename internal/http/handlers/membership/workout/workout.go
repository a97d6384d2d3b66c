// Package workout реализует HTTP-обработчик учёта тренировки.
package workout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fitness-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
	"github.com/magabrotheeeer/fitness-membership/internal/services/membership"
)

// Request содержит данные тренировки. Пустое тело означает часовую тренировку.
type Request struct {
	DurationHours *float64 `json:"duration_hours,omitempty" example:"1.5"`
	WorkoutType   string   `json:"workout_type,omitempty" validate:"max=50" example:"strength"`
}

// Handler обрабатывает учёт тренировки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс учёта тренировки.
type Service interface {
	RecordWorkout(ctx context.Context, accountID string, req membership.WorkoutRequest) (*models.ActivityStats, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Записать тренировку
// @Description Увеличивает счётчики тренировок и обновляет серию дней подряд.
// @Tags Activity
// @Accept  json
// @Produce  json
// @Param request body Request false "Длительность и тип тренировки"
// @Success 200 {object} models.ActivityStats "Обновлённая статистика"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Длительность вне диапазона"
// @Router /workouts [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.workout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := middlewarectx.AccountIDFrom(r.Context())
	if !ok {
		log.Error("account id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	stats, err := h.service.RecordWorkout(r.Context(), accountID, membership.WorkoutRequest{
		DurationHours: req.DurationHours,
		WorkoutType:   req.WorkoutType,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(stats))
}
