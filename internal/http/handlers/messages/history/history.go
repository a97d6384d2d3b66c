// Package history реализует HTTP-обработчик чтения переписки с собеседником.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fitness-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// Handler возвращает историю сообщений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения истории.
type Service interface {
	History(ctx context.Context, callerID, counterpartID string, page models.Page) ([]models.MessageView, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История переписки
// @Description Сообщения в обе стороны в порядке отправки. Премиум для чтения не требуется.
// @Tags Messages
// @Produce  json
// @Param counterpartID path string true "ID собеседника"
// @Param limit query int false "Размер страницы, по умолчанию 50, максимум 200"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.MessageView "Сообщения"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Собеседник не найден"
// @Router /messages/{counterpartID} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.messages.history"
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

	page, err := parsePage(r)
	if err != nil {
		log.Info("invalid paging parameters", sl.Err(err))
		response.BadRequest(w, r, "invalid limit or offset")
		return
	}

	msgs, err := h.service.History(r.Context(), accountID, chi.URLParam(r, "counterpartID"), page)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(msgs))
}

func parsePage(r *http.Request) (models.Page, error) {
	var page models.Page
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, err
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, err
		}
		page.Offset = n
	}
	return page, nil
}
