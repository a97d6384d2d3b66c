package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// InsertMessage сохраняет сообщение и заполняет msg.Seq и msg.CreatedAt.
// Время сообщения не может быть раньше последнего сообщения той же переписки:
// вставки в одну переписку сериализуются advisory-блокировкой по ключу пары.
func (s *Storage) InsertMessage(ctx context.Context, msg *models.Message, now time.Time) error {
	const op = "storage.InsertMessage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	pairKey := models.PairKey(msg.SenderID, msg.ReceiverID)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pairKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO messages (id, pair_key, sender_id, receiver_id, text, created_at)
			  VALUES ($1, $2, $3, $4, $5, GREATEST($6::timestamptz,
			      COALESCE((SELECT MAX(created_at) FROM messages WHERE pair_key = $2), $6::timestamptz)))
			  RETURNING seq, created_at`
	if err = tx.QueryRowContext(ctx, query,
		msg.ID, pairKey, msg.SenderID, msg.ReceiverID, msg.Text, now,
	).Scan(&msg.Seq, &msg.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// History возвращает переписку двух учётных записей в обоих направлениях,
// упорядоченную по (created_at, seq). Нулевой page.Limit снимает ограничение.
func (s *Storage) History(ctx context.Context, a, b string, page models.Page) ([]models.Message, error) {
	const op = "storage.History"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, seq, sender_id, receiver_id, text, created_at
			  FROM messages
			  WHERE pair_key = $1
			  ORDER BY created_at ASC, seq ASC
			  LIMIT NULLIF($2::bigint, 0) OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, models.PairKey(a, b), page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err = rows.Scan(&m.ID, &m.Seq, &m.SenderID, &m.ReceiverID, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ConversationsFor группирует сообщения учётной записи по собеседникам.
// Сортировка: время последнего сообщения по убыванию, затем ID собеседника.
func (s *Storage) ConversationsFor(ctx context.Context, accountID string) ([]models.ConversationSummary, error) {
	const op = "storage.ConversationsFor"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `WITH conv AS (
			      SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS counterpart_id,
			             id, seq, sender_id, receiver_id, text, created_at
			      FROM messages
			      WHERE sender_id = $1 OR receiver_id = $1
			  ), ranked AS (
			      SELECT conv.*,
			             COUNT(*) OVER (PARTITION BY counterpart_id) AS cnt,
			             ROW_NUMBER() OVER (PARTITION BY counterpart_id
			                                ORDER BY created_at DESC, seq DESC) AS rn
			      FROM conv
			  )
			  SELECT r.counterpart_id, a.username, a.role, a.profile_picture,
			         r.id, r.seq, r.sender_id, r.receiver_id, r.text, r.created_at, r.cnt
			  FROM ranked r
			  JOIN accounts a ON a.id = r.counterpart_id
			  WHERE r.rn = 1
			  ORDER BY r.created_at DESC, r.counterpart_id ASC`
	rows, err := s.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var c models.ConversationSummary
		m := &c.LastMessage
		if err = rows.Scan(&c.CounterpartID, &c.Counterpart.Username, &c.Counterpart.Role,
			&c.Counterpart.ProfilePicture, &m.ID, &m.Seq, &m.SenderID, &m.ReceiverID, &m.Text,
			&m.CreatedAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.Counterpart.ID = c.CounterpartID
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
