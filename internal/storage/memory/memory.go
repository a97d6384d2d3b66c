// Package memory реализует хранилище в памяти процесса с той же семантикой, что и repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// Storage хранит учётные записи и сообщения в памяти. Безопасно для конкурентного использования.
type Storage struct {
	mu         sync.RWMutex
	accounts   map[string]*models.Account
	byUsername map[string]string
	messages   []models.Message
	seq        int64
	now        func() time.Time
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		accounts:   make(map[string]*models.Account),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

// Close ничего не делает.
func (s *Storage) Close() error { return nil }

func clone(a *models.Account) *models.Account {
	c := *a
	c.Fitness = a.Fitness.Clone()
	return &c
}

func (s *Storage) CreateAccount(ctx context.Context, a *models.Account) error {
	const op = "memory.CreateAccount"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[a.Username]; ok {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicateUsername)
	}
	now := s.now().UTC()
	a.CreatedAt, a.UpdatedAt, a.Version = now, now, 1
	s.accounts[a.ID] = clone(a)
	s.byUsername[a.Username] = a.ID
	return nil
}

func (s *Storage) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "memory.GetAccountByID"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	return clone(a), nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	const op = "memory.GetAccountByUsername"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	return clone(s.accounts[id]), nil
}

// UpdateAccount перезаписывает подписку и статистику при совпадении версии.
func (s *Storage) UpdateAccount(ctx context.Context, a *models.Account) error {
	const op = "memory.UpdateAccount"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[a.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	if cur.Version != a.Version {
		return fmt.Errorf("%s: %w", op, models.ErrVersionConflict)
	}
	cur.Tier = a.Tier
	cur.Subscription = a.Subscription
	cur.Stats = a.Stats
	cur.UpdatedAt = s.now().UTC()
	cur.Version++

	a.UpdatedAt, a.Version = cur.UpdatedAt, cur.Version
	return nil
}

func (s *Storage) UpdateProfile(ctx context.Context, id, username, profilePicture string) error {
	const op = "memory.UpdateProfile"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	if owner, taken := s.byUsername[username]; taken && owner != id {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicateUsername)
	}
	delete(s.byUsername, cur.Username)
	s.byUsername[username] = id
	cur.Username = username
	cur.ProfilePicture = profilePicture
	cur.UpdatedAt = s.now().UTC()
	cur.Version++
	return nil
}

func (s *Storage) UpdateFitnessProfile(ctx context.Context, id string, p models.FitnessProfile) error {
	const op = "memory.UpdateFitnessProfile"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	cur.Fitness = p.Clone()
	cur.UpdatedAt = s.now().UTC()
	cur.Version++
	return nil
}

func (s *Storage) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const op = "memory.UpdatePasswordHash"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	cur.PasswordHash = hash
	cur.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Storage) TouchLogin(ctx context.Context, id string, at time.Time) error {
	const op = "memory.TouchLogin"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	cur.LastLogin = &at
	return nil
}

func (s *Storage) SetActive(ctx context.Context, id string, active bool) error {
	const op = "memory.SetActive"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	cur.IsActive = active
	cur.UpdatedAt = s.now().UTC()
	cur.Version++
	return nil
}

func (s *Storage) ListTrainers(ctx context.Context) ([]*models.Account, error) {
	return s.list(ctx, "memory.ListTrainers", func(a *models.Account) bool {
		return a.IsTrainer() && a.IsActive
	})
}

func (s *Storage) ListPremium(ctx context.Context) ([]*models.Account, error) {
	return s.list(ctx, "memory.ListPremium", func(a *models.Account) bool {
		return a.Tier != models.TierFree && a.Subscription.Active
	})
}

func (s *Storage) list(ctx context.Context, op string, keep func(*models.Account) bool) ([]*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Account
	for _, a := range s.accounts {
		if keep(a) {
			result = append(result, clone(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// InsertMessage сохраняет сообщение; время не уходит назад внутри переписки.
func (s *Storage) InsertMessage(ctx context.Context, msg *models.Message, now time.Time) error {
	const op = "memory.InsertMessage"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[msg.SenderID]; !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}
	if _, ok := s.accounts[msg.ReceiverID]; !ok {
		return fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
	}

	key := models.PairKey(msg.SenderID, msg.ReceiverID)
	ts := now
	for i := range s.messages {
		m := &s.messages[i]
		if models.PairKey(m.SenderID, m.ReceiverID) == key && m.CreatedAt.After(ts) {
			ts = m.CreatedAt
		}
	}
	s.seq++
	msg.Seq = s.seq
	msg.CreatedAt = ts
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *Storage) History(ctx context.Context, a, b string, page models.Page) ([]models.Message, error) {
	const op = "memory.History"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := models.PairKey(a, b)
	all := make([]models.Message, 0)
	for _, m := range s.messages {
		if models.PairKey(m.SenderID, m.ReceiverID) == key {
			all = append(all, m)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return messageLess(all[i], all[j]) })

	if page.Offset >= len(all) {
		return []models.Message{}, nil
	}
	all = all[page.Offset:]
	if page.Limit > 0 && page.Limit < len(all) {
		all = all[:page.Limit]
	}
	return all, nil
}

func (s *Storage) ConversationsFor(ctx context.Context, accountID string) ([]models.ConversationSummary, error) {
	const op = "memory.ConversationsFor"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCounterpart := make(map[string]*models.ConversationSummary)
	for _, m := range s.messages {
		var other string
		switch accountID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		c, ok := byCounterpart[other]
		if !ok {
			c = &models.ConversationSummary{CounterpartID: other}
			if acc, found := s.accounts[other]; found {
				c.Counterpart = acc.AsParticipant()
			}
			byCounterpart[other] = c
		}
		c.MessageCount++
		if c.MessageCount == 1 || messageLess(c.LastMessage, m) {
			c.LastMessage = m
		}
	}

	result := make([]models.ConversationSummary, 0, len(byCounterpart))
	for _, c := range byCounterpart {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		ti, tj := result[i].LastMessage.CreatedAt, result[j].LastMessage.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return result[i].CounterpartID < result[j].CounterpartID
	})
	return result, nil
}

func messageLess(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}
