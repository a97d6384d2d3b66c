// Package notify публикует доменные события: изменения подписки и новые сообщения.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/fitness-membership/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// MembershipEvent описывает изменение подписки.
type MembershipEvent struct {
	AccountID     string      `json:"account_id"`
	Username      string      `json:"username"`
	Tier          models.Tier `json:"tier"`
	PlanName      string      `json:"plan_name"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	EndDate       *time.Time  `json:"end_date,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// MessageEvent описывает новое сообщение. Текст сообщения в событие не попадает.
type MessageEvent struct {
	MessageID  string    `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notifier публикует события. Ошибка публикации не отменяет уже выполненную операцию.
type Notifier interface {
	MembershipUpgraded(ctx context.Context, e MembershipEvent) error
	MembershipCancelled(ctx context.Context, e MembershipEvent) error
	MessageSent(ctx context.Context, e MessageEvent) error
}

// Publisher отправляет сообщение по ключу маршрутизации.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// BrokerNotifier публикует события в RabbitMQ.
type BrokerNotifier struct {
	pub Publisher
}

// NewBrokerNotifier создаёт Notifier поверх публикатора RabbitMQ.
func NewBrokerNotifier(pub Publisher) *BrokerNotifier {
	return &BrokerNotifier{pub: pub}
}

func (n *BrokerNotifier) publish(ctx context.Context, op, key string, e any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := n.pub.Publish(key, e); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (n *BrokerNotifier) MembershipUpgraded(ctx context.Context, e MembershipEvent) error {
	return n.publish(ctx, "notify.MembershipUpgraded", rabbitmq.RoutingMembershipUpgraded, e)
}

func (n *BrokerNotifier) MembershipCancelled(ctx context.Context, e MembershipEvent) error {
	return n.publish(ctx, "notify.MembershipCancelled", rabbitmq.RoutingMembershipCancelled, e)
}

func (n *BrokerNotifier) MessageSent(ctx context.Context, e MessageEvent) error {
	return n.publish(ctx, "notify.MessageSent", rabbitmq.RoutingMessageSent, e)
}

// LogNotifier пишет события в лог. Используется, когда брокер выключен.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier создаёт Notifier, пишущий в log.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) MembershipUpgraded(_ context.Context, e MembershipEvent) error {
	n.log.Info("membership upgraded",
		slog.String("account_id", e.AccountID),
		slog.String("tier", string(e.Tier)),
		slog.String("payment_method", e.PaymentMethod),
	)
	return nil
}

func (n *LogNotifier) MembershipCancelled(_ context.Context, e MembershipEvent) error {
	n.log.Info("membership cancelled", slog.String("account_id", e.AccountID))
	return nil
}

func (n *LogNotifier) MessageSent(_ context.Context, e MessageEvent) error {
	n.log.Debug("message sent",
		slog.String("message_id", e.MessageID),
		slog.String("sender_id", e.SenderID),
		slog.String("receiver_id", e.ReceiverID),
	)
	return nil
}

// Safe оборачивает Notifier так, что ошибки публикации только логируются.
func Safe(log *slog.Logger, n Notifier) Notifier {
	return &safeNotifier{log: log, next: n}
}

type safeNotifier struct {
	log  *slog.Logger
	next Notifier
}

func (s *safeNotifier) report(kind string, err error) error {
	if err != nil {
		s.log.Warn("failed to publish event", slog.String("event", kind), sl.Err(err))
	}
	return nil
}

func (s *safeNotifier) MembershipUpgraded(ctx context.Context, e MembershipEvent) error {
	return s.report(rabbitmq.RoutingMembershipUpgraded, s.next.MembershipUpgraded(ctx, e))
}

func (s *safeNotifier) MembershipCancelled(ctx context.Context, e MembershipEvent) error {
	return s.report(rabbitmq.RoutingMembershipCancelled, s.next.MembershipCancelled(ctx, e))
}

func (s *safeNotifier) MessageSent(ctx context.Context, e MessageEvent) error {
	return s.report(rabbitmq.RoutingMessageSent, s.next.MessageSent(ctx, e))
}
