// Package messaging реализует переписку участника с тренером и проверку доступа к ней.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/metrics"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
	"github.com/magabrotheeeer/fitness-membership/internal/notify"
)

// Ограничения на текст и выборку истории.
const (
	MaxTextLen   = 2000
	DefaultLimit = 50
	MaxLimit     = 200
)

// AccountReader читает учётные записи.
type AccountReader interface {
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
}

// MessageStore хранит переписку.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message, now time.Time) error
	History(ctx context.Context, a, b string, page models.Page) ([]models.Message, error)
	ConversationsFor(ctx context.Context, accountID string) ([]models.ConversationSummary, error)
}

// Service отправляет и читает сообщения.
type Service struct {
	log      *slog.Logger
	accounts AccountReader
	messages MessageStore
	notifier notify.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService создаёт Service. metrics может быть nil.
func NewService(
	log *slog.Logger,
	accounts AccountReader,
	messages MessageStore,
	notifier notify.Notifier,
	m *metrics.Metrics,
) *Service {
	return &Service{
		log:      log,
		accounts: accounts,
		messages: messages,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Send отправляет сообщение собеседнику. Перед записью доступ проверяется заново.
func (s *Service) Send(ctx context.Context, callerID, counterpartID, text string) (*models.MessageView, error) {
	const op = "messaging.Send"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrEmptyMessage)
	}
	if utf8.RuneCountInString(text) > MaxTextLen {
		return nil, fmt.Errorf("%s: %w: message is longer than %d characters", op, models.ErrValidation, MaxTextLen)
	}

	p, err := s.AuthorizeSend(ctx, callerID, counterpartID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   p.Caller.ID,
		ReceiverID: p.Counterpart.ID,
		Text:       text,
	}
	if err = s.messages.InsertMessage(ctx, msg, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.MessageSent()
	if err := s.notifier.MessageSent(ctx, notify.MessageEvent{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		CreatedAt:  msg.CreatedAt,
	}); err != nil {
		s.log.Warn("failed to publish message event", sl.Op(op), sl.Err(err))
	}
	s.log.Debug("message sent",
		sl.Op(op),
		slog.String("message_id", msg.ID),
		slog.String("sender_id", msg.SenderID),
		slog.String("receiver_id", msg.ReceiverID),
	)

	return &models.MessageView{
		Message:  *msg,
		Sender:   p.Caller.AsParticipant(),
		Receiver: p.Counterpart.AsParticipant(),
	}, nil
}

// NormalizePage подставляет значения по умолчанию и проверяет границы окна выборки.
func NormalizePage(page models.Page) (models.Page, error) {
	if page.Limit < 0 || page.Offset < 0 {
		return page, fmt.Errorf("%w: limit and offset must not be negative", models.ErrValidation)
	}
	if page.Limit == 0 {
		page.Limit = DefaultLimit
	}
	if page.Limit > MaxLimit {
		page.Limit = MaxLimit
	}
	return page, nil
}

// History возвращает переписку вызывающего с собеседником в порядке отправки.
// Результат не зависит от того, кто из двоих запрашивает историю.
func (s *Service) History(ctx context.Context, callerID, counterpartID string, page models.Page) ([]models.MessageView, error) {
	const op = "messaging.History"

	page, err := NormalizePage(page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.AuthorizeRead(ctx, callerID, counterpartID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	msgs, err := s.messages.History(ctx, p.Caller.ID, p.Counterpart.ID, page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byID := map[string]models.Participant{
		p.Caller.ID:      p.Caller.AsParticipant(),
		p.Counterpart.ID: p.Counterpart.AsParticipant(),
	}
	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.MessageView{
			Message:  m,
			Sender:   byID[m.SenderID],
			Receiver: byID[m.ReceiverID],
		})
	}
	return views, nil
}

// ConversationsFor возвращает переписки тренера, начиная с самой свежей.
func (s *Service) ConversationsFor(ctx context.Context, callerID string) ([]models.ConversationSummary, error) {
	const op = "messaging.ConversationsFor"

	caller, err := s.accounts.GetAccountByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !caller.IsTrainer() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrWrongRole)
	}

	convs, err := s.messages.ConversationsFor(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return convs, nil
}
