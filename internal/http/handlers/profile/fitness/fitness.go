// Package fitness реализует HTTP-обработчик изменения фитнес-анкеты.
package fitness

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fitness-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
	"github.com/magabrotheeeer/fitness-membership/internal/services/auth"
)

// EmergencyContact содержит контакт для экстренной связи.
type EmergencyContact struct {
	Name         string `json:"name" validate:"max=100"`
	Phone        string `json:"phone" validate:"max=30"`
	Relationship string `json:"relationship" validate:"max=50"`
}

// Request содержит поля анкеты. Отсутствующее поле не меняется,
// пустой список очищает сохранённый.
type Request struct {
	FitnessLevel      *string           `json:"fitness_level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced elite"`
	Goals             []string          `json:"goals,omitempty" validate:"omitempty,max=6,dive,oneof=weight_loss muscle_gain endurance flexibility strength general_fitness"`
	MedicalConditions []string          `json:"medical_conditions,omitempty" validate:"omitempty,max=20,dive,max=200"`
	EmergencyContact  *EmergencyContact `json:"emergency_contact,omitempty"`
}

// Handler обрабатывает изменение анкеты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс изменения анкеты.
type Service interface {
	UpdateFitnessProfile(ctx context.Context, accountID string, upd auth.FitnessUpdate) (*models.FitnessProfile, error)
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
// @Summary Изменить фитнес-анкету
// @Description Меняет уровень подготовки, цели, медицинские ограничения и экстренный контакт.
// @Tags Profile
// @Accept  json
// @Produce  json
// @Param request body Request true "Новые значения"
// @Success 200 {object} models.FitnessProfile "Обновлённая анкета"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Учётная запись не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /profile/fitness [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.fitness"
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
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	profile, err := h.service.UpdateFitnessProfile(r.Context(), accountID, req.toUpdate())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("fitness profile updated", slog.String("account_id", accountID))
	render.JSON(w, r, response.OKWithData(profile))
}

func (req Request) toUpdate() auth.FitnessUpdate {
	var upd auth.FitnessUpdate
	if req.FitnessLevel != nil {
		level := models.FitnessLevel(*req.FitnessLevel)
		upd.FitnessLevel = &level
	}
	if req.Goals != nil {
		upd.Goals = make([]models.FitnessGoal, len(req.Goals))
		for i, g := range req.Goals {
			upd.Goals[i] = models.FitnessGoal(g)
		}
	}
	upd.MedicalConditions = req.MedicalConditions
	if req.EmergencyContact != nil {
		upd.EmergencyContact = &models.EmergencyContact{
			Name:         req.EmergencyContact.Name,
			Phone:        req.EmergencyContact.Phone,
			Relationship: req.EmergencyContact.Relationship,
		}
	}
	return upd
}
