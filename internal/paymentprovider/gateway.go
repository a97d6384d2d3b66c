// Package paymentprovider реализует платёжный шлюз с настраиваемым списком способов оплаты.
// Реальные провайдеры не подключены: списание выполняет Processor,
// вызовы к нему идут через circuit breaker.
package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/magabrotheeeer/fitness-membership/internal/config"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// Gateway проверяет способ оплаты и проводит списание через Processor.
type Gateway struct {
	log     *slog.Logger
	methods map[string]struct{}
	proc    Processor
	breaker *gobreaker.CircuitBreaker[*ChargeResult]
}

// New создаёт шлюз. Способы оплаты сравниваются без учёта регистра.
func New(log *slog.Logger, cfg config.Payment, proc Processor) *Gateway {
	methods := make(map[string]struct{}, len(cfg.Methods))
	for _, m := range cfg.Methods {
		m = normalize(m)
		if m != "" {
			methods[m] = struct{}{}
		}
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	openDelay := cfg.BreakerOpenDelay
	if openDelay <= 0 {
		openDelay = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     openDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Gateway{
		log:     log,
		methods: methods,
		proc:    proc,
		breaker: gobreaker.NewCircuitBreaker[*ChargeResult](settings),
	}
}

func normalize(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}

// Supports сообщает, настроен ли способ оплаты.
func (g *Gateway) Supports(method string) bool {
	_, ok := g.methods[normalize(method)]
	return ok
}

// Methods возвращает настроенные способы оплаты по алфавиту.
func (g *Gateway) Methods() []string {
	out := make([]string, 0, len(g.methods))
	for m := range g.methods {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Charge проводит списание. Отказ процессора возвращает models.ErrPaymentRejected,
// открытый breaker возвращает models.ErrPaymentUnavailable.
func (g *Gateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	const op = "paymentprovider.Charge"

	if !g.Supports(req.Method) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnsupportedPaymentMethod)
	}
	req.Method = normalize(req.Method)

	res, err := g.breaker.Execute(func() (*ChargeResult, error) {
		return g.proc.Process(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !res.Approved {
		g.log.Info("payment declined",
			slog.String("account_id", req.AccountID),
			slog.String("method", req.Method),
			slog.Int64("amount", req.Amount),
		)
		return res, fmt.Errorf("%s: %w", op, models.ErrPaymentRejected)
	}
	return res, nil
}

// State возвращает текущее состояние breaker для /health.
func (g *Gateway) State() string {
	return g.breaker.State().String()
}
