// Package metrics содержит prometheus-метрики сервиса.
// Все методы безопасны для nil-получателя, чтобы сервисы работали без метрик в тестах.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fitness"

// Metrics объединяет счётчики и гистограммы сервиса.
type Metrics struct {
	upgrades      *prometheus.CounterVec
	cancellations prometheus.Counter
	payments      *prometheus.CounterVec
	workouts      prometheus.Counter
	messages      prometheus.Counter
	gateDenials   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_upgrades_total",
			Help:      "Successful membership upgrades by tier.",
		}, []string{"tier"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_cancellations_total",
			Help:      "Membership cancellations.",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment attempts by method and result.",
		}, []string{"method", "result"}),
		workouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workouts_recorded_total",
			Help:      "Recorded workouts.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages accepted by the conversation store.",
		}),
		gateDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messaging_gate_denials_total",
			Help:      "Messaging attempts rejected by the access gate.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.upgrades, m.cancellations, m.payments, m.workouts,
		m.messages, m.gateDenials, m.httpRequests, m.httpDuration)
	return m
}

func (m *Metrics) Upgrade(tier string) {
	if m == nil {
		return
	}
	m.upgrades.WithLabelValues(tier).Inc()
}

func (m *Metrics) Cancel() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

// Payment учитывает попытку оплаты; result принимает значения approved, declined или error.
func (m *Metrics) Payment(method, result string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method, result).Inc()
}

func (m *Metrics) Workout() {
	if m == nil {
		return
	}
	m.workouts.Inc()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messages.Inc()
}

func (m *Metrics) GateDenied(reason string) {
	if m == nil {
		return
	}
	m.gateDenials.WithLabelValues(reason).Inc()
}

// Middleware считает запросы по шаблону маршрута chi, а не по фактическому пути.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
