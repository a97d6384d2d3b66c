// Package health реализует проверку работоспособности сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Gateway сообщает состояние платёжного шлюза.
type Gateway interface {
	State() string
	Methods() []string
}

// Handler отдаёт состояние зависимостей.
type Handler struct {
	log     *slog.Logger
	db      Pinger
	gateway Gateway
}

// New создает новый Handler. db может быть nil для хранилища в памяти.
func New(log *slog.Logger, db Pinger, gateway Gateway) *Handler {
	return &Handler{log: log, db: db, gateway: gateway}
}

// ServeHTTP godoc
// @Summary Проверка работоспособности
// @Tags Health
// @Produce  json
// @Success 200 {object} map[string]any "Сервис работает"
// @Failure 503 {object} map[string]any "Хранилище недоступно"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	resp := response.OKWithData(nil)
	storage := "ok"
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.log.Error("storage is unavailable", slog.String("op", op), sl.Err(err))
			storage = "unavailable"
			resp.Status = response.StatusError
			render.Status(r, http.StatusServiceUnavailable)
		}
	}

	resp.Data = map[string]any{
		"storage":         storage,
		"payment_gateway": h.gateway.State(),
		"payment_methods": h.gateway.Methods(),
	}
	render.JSON(w, r, resp)
}
