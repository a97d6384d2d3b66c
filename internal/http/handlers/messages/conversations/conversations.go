// Package conversations реализует HTTP-обработчик списка переписок тренера.
package conversations

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fitness-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// Handler возвращает переписки тренера.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс списка переписок.
type Service interface {
	ConversationsFor(ctx context.Context, callerID string) ([]models.ConversationSummary, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Переписки тренера
// @Description Последнее сообщение и число сообщений по каждому собеседнику, свежие сверху.
// @Tags Messages
// @Produce  json
// @Success 200 {array} models.ConversationSummary "Переписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Доступно только тренерам"
// @Router /conversations [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.messages.conversations"
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

	convs, err := h.service.ConversationsFor(r.Context(), accountID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(convs))
}
