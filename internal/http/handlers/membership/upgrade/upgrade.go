// Package upgrade реализует HTTP-обработчик покупки уровня подписки.
//
// Уровень и способ оплаты проверяет сервис: неизвестный уровень даёт 400 "invalid plan selected",
// пустой или неподдерживаемый способ оплаты даёт 400 "invalid or missing payment method".
package upgrade

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
	"github.com/magabrotheeeer/fitness-membership/internal/services/membership"
)

// Request описывает покупку уровня. duration_days по умолчанию 30.
type Request struct {
	Tier          string `json:"tier" example:"gold"`
	DurationDays  int    `json:"duration_days,omitempty" validate:"gte=0,lte=365" example:"30"`
	PaymentMethod string `json:"payment_method" example:"esewa"`
	AutoRenew     *bool  `json:"auto_renew,omitempty"`
}

// Handler обрабатывает покупку уровня.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс покупки уровня.
type Service interface {
	Upgrade(ctx context.Context, accountID string, req membership.UpgradeRequest) (*membership.Status, error)
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
// @Summary Купить уровень подписки
// @Description Списывает оплату и активирует уровень silver, gold или platinum.
// @Tags Membership
// @Accept  json
// @Produce  json
// @Param request body Request true "Уровень, срок и способ оплаты"
// @Success 200 {object} membership.Status "Новый статус подписки"
// @Failure 400 {object} response.ErrorResponse "Неизвестный уровень или способ оплаты"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Оплата отклонена"
// @Failure 403 {object} response.ErrorResponse "Роль не может оформить подписку"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 503 {object} response.ErrorResponse "Платёжный шлюз недоступен"
// @Router /membership/upgrade [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.upgrade"
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
	log.Info("request body decoded", slog.String("tier", req.Tier), slog.String("payment_method", req.PaymentMethod))

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	st, err := h.service.Upgrade(r.Context(), accountID, membership.UpgradeRequest{
		Tier:          req.Tier,
		DurationDays:  req.DurationDays,
		PaymentMethod: req.PaymentMethod,
		AutoRenew:     req.AutoRenew,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("membership upgraded", slog.String("tier", string(st.Tier)))
	render.JSON(w, r, response.OKWithData(st))
}
