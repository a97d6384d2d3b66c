// Package register реализует HTTP-обработчик регистрации новой учётной записи.
//
// Новая учётная запись получает бесплатный план; в ответе возвращается JWT,
// чтобы клиент мог сразу работать с защищёнными маршрутами.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
	"github.com/magabrotheeeer/fitness-membership/internal/services/auth"
)

// Request содержит входные данные для регистрации. Пустая роль означает участника.
type Request struct {
	Username       string `json:"username" validate:"required,min=3,max=30"`
	Password       string `json:"password" validate:"required,min=6,max=72"`
	Role           string `json:"role,omitempty" validate:"omitempty,oneof=member trainer"`
	ProfilePicture string `json:"profile_picture,omitempty" validate:"omitempty,max=255"`
}

// Handler обрабатывает HTTP-запросы на регистрацию.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (*models.Account, string, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация
// @Description Создаёт участника или тренера с бесплатным планом и возвращает JWT.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные новой учётной записи"
// @Success 201 {object} map[string]any "Учётная запись создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Имя пользователя занято"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	log.Info("request body decoded", slog.String("username", req.Username), slog.String("role", req.Role))

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	acc, token, err := h.service.Register(r.Context(), auth.RegisterInput{
		Username:       req.Username,
		Password:       req.Password,
		Role:           models.Role(req.Role),
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("account registered", slog.String("account_id", acc.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":   token,
		"account": acc,
	}))
}
