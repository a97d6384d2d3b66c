// Package cancel реализует HTTP-обработчик отмены подписки. Повторная отмена успешна.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fitness-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/services/membership"
)

// Handler обрабатывает отмену подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс отмены подписки.
type Service interface {
	Cancel(ctx context.Context, accountID string) (*membership.Status, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Переводит учётную запись на бесплатный уровень. История оплат сохраняется.
// @Tags Membership
// @Produce  json
// @Success 200 {object} membership.Status "Статус после отмены"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Конкурентное изменение"
// @Router /membership/cancel [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.cancel"
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

	st, err := h.service.Cancel(r.Context(), accountID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("membership cancelled", slog.String("account_id", accountID))
	render.JSON(w, r, response.OKWithData(st))
}
