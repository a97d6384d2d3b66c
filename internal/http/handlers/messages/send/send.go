// Package send реализует HTTP-обработчик отправки сообщения собеседнику.
//
// Право на отправку проверяется при каждом запросе: участник без активного
// платного уровня получает 403.
package send

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fitness-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// Request содержит текст сообщения.
type Request struct {
	Text string `json:"text" validate:"max=2000" example:"Hi! Can you adjust my plan?"`
}

// Handler обрабатывает отправку сообщения.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс отправки сообщения.
type Service interface {
	Send(ctx context.Context, callerID, counterpartID, text string) (*models.MessageView, error)
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
// @Summary Отправить сообщение
// @Description Участник пишет тренеру или тренер пишет участнику.
// @Tags Messages
// @Accept  json
// @Produce  json
// @Param counterpartID path string true "ID собеседника"
// @Param request body Request true "Текст сообщения"
// @Success 201 {object} models.MessageView "Отправленное сообщение"
// @Failure 400 {object} response.ErrorResponse "Пустое сообщение"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нужна премиум-подписка"
// @Failure 404 {object} response.ErrorResponse "Собеседник не найден"
// @Router /messages/{counterpartID} [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.messages.send"
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
	counterpartID := chi.URLParam(r, "counterpartID")

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

	msg, err := h.service.Send(r.Context(), accountID, counterpartID, req.Text)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("message sent", slog.String("message_id", msg.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(msg))
}
