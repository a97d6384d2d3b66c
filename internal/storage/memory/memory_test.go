package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
	"github.com/magabrotheeeer/fitness-membership/internal/storage"
)

var _ storage.Store = (*Storage)(nil)

func newAccount(id, username string, role models.Role) *models.Account {
	return &models.Account{ID: id, Username: username, Role: role, Tier: models.TierFree, IsActive: true}
}

func TestStorage_Accounts(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := newAccount("a1", "alice", models.RoleMember)
	require.NoError(t, s.CreateAccount(ctx, a))
	assert.Equal(t, 1, a.Version)

	err := s.CreateAccount(ctx, newAccount("a2", "alice", models.RoleTrainer))
	require.ErrorIs(t, err, models.ErrDuplicateUsername)

	got, err := s.GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	got.Tier = models.TierGold
	fresh, err := s.GetAccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, fresh.Tier, "returned accounts must be copies")

	_, err = s.GetAccountByID(ctx, "missing")
	require.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestStorage_UpdateAccount_Version(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateAccount(ctx, newAccount("a1", "alice", models.RoleMember)))

	first, _ := s.GetAccountByID(ctx, "a1")
	second, _ := s.GetAccountByID(ctx, "a1")

	first.Tier = models.TierSilver
	first.Subscription.Active = true
	require.NoError(t, s.UpdateAccount(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Stats.TotalWorkouts = 3
	require.ErrorIs(t, s.UpdateAccount(ctx, second), models.ErrVersionConflict)

	require.ErrorIs(t, s.UpdateAccount(ctx, &models.Account{ID: "x"}), models.ErrAccountNotFound)
}

func TestStorage_UpdateProfileAndPassword(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateAccount(ctx, newAccount("a1", "alice", models.RoleMember)))
	require.NoError(t, s.CreateAccount(ctx, newAccount("a2", "bob", models.RoleMember)))

	require.ErrorIs(t, s.UpdateProfile(ctx, "a1", "bob", ""), models.ErrDuplicateUsername)
	require.NoError(t, s.UpdateProfile(ctx, "a1", "alice", "pic.png"))
	require.NoError(t, s.UpdateProfile(ctx, "a1", "alice_fit", "pic.png"))

	_, err := s.GetAccountByUsername(ctx, "alice")
	require.ErrorIs(t, err, models.ErrAccountNotFound)
	got, err := s.GetAccountByUsername(ctx, "alice_fit")
	require.NoError(t, err)
	assert.Equal(t, "pic.png", got.ProfilePicture)

	require.NoError(t, s.UpdatePasswordHash(ctx, "a1", "new-hash"))
	got, _ = s.GetAccountByID(ctx, "a1")
	assert.Equal(t, "new-hash", got.PasswordHash)

	require.ErrorIs(t, s.UpdatePasswordHash(ctx, "zz", "h"), models.ErrAccountNotFound)
	require.ErrorIs(t, s.UpdateProfile(ctx, "zz", "zz", ""), models.ErrAccountNotFound)
}

func TestStorage_UpdateFitnessProfile(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateAccount(ctx, newAccount("a1", "alice", models.RoleMember)))

	p := models.FitnessProfile{
		FitnessLevel:      models.FitnessAdvanced,
		Goals:             []models.FitnessGoal{models.GoalStrength},
		MedicalConditions: []string{"asthma"},
		EmergencyContact:  models.EmergencyContact{Name: "Bob", Phone: "+100"},
	}
	require.NoError(t, s.UpdateFitnessProfile(ctx, "a1", p))
	p.Goals[0] = models.GoalEndurance

	got, err := s.GetAccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.FitnessAdvanced, got.Fitness.FitnessLevel)
	assert.Equal(t, []models.FitnessGoal{models.GoalStrength}, got.Fitness.Goals)
	assert.Equal(t, "Bob", got.Fitness.EmergencyContact.Name)

	got.Fitness.MedicalConditions[0] = "changed"
	again, _ := s.GetAccountByID(ctx, "a1")
	assert.Equal(t, []string{"asthma"}, again.Fitness.MedicalConditions)

	require.ErrorIs(t, s.UpdateFitnessProfile(ctx, "zz", p), models.ErrAccountNotFound)
}

func TestStorage_SetActiveAndLists(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateAccount(ctx, newAccount("t2", "zed", models.RoleTrainer)))
	require.NoError(t, s.CreateAccount(ctx, newAccount("t1", "amy", models.RoleTrainer)))
	require.NoError(t, s.CreateAccount(ctx, newAccount("t3", "old", models.RoleTrainer)))
	require.NoError(t, s.SetActive(ctx, "t3", false))

	m := newAccount("m1", "bob", models.RoleMember)
	require.NoError(t, s.CreateAccount(ctx, m))
	m.Tier = models.TierPlatinum
	m.Subscription.Active = true
	require.NoError(t, s.UpdateAccount(ctx, m))

	trainers, err := s.ListTrainers(ctx)
	require.NoError(t, err)
	require.Len(t, trainers, 2)
	assert.Equal(t, "amy", trainers[0].Username)

	premium, err := s.ListPremium(ctx)
	require.NoError(t, err)
	require.Len(t, premium, 1)
	assert.Equal(t, "bob", premium[0].Username)

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchLogin(ctx, "m1", at))
	got, _ := s.GetAccountByID(ctx, "m1")
	require.NotNil(t, got.LastLogin)
	assert.True(t, at.Equal(*got.LastLogin))

	require.ErrorIs(t, s.SetActive(ctx, "nope", true), models.ErrAccountNotFound)
}

func TestStorage_Messages(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateAccount(ctx, newAccount("m1", "alice", models.RoleMember)))
	require.NoError(t, s.CreateAccount(ctx, newAccount("m2", "bob", models.RoleMember)))
	require.NoError(t, s.CreateAccount(ctx, newAccount("t1", "coach", models.RoleTrainer)))

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	send := func(from, to, text string, at time.Time) models.Message {
		msg := models.Message{ID: text, SenderID: from, ReceiverID: to, Text: text}
		require.NoError(t, s.InsertMessage(ctx, &msg, at))
		return msg
	}

	first := send("m1", "t1", "one", base.Add(time.Minute))
	second := send("t1", "m1", "two", base) // часы отстали
	send("m2", "t1", "three", base.Add(2*time.Minute))

	assert.False(t, second.CreatedAt.Before(first.CreatedAt))
	assert.Greater(t, second.Seq, first.Seq)

	ab, err := s.History(ctx, "m1", "t1", models.Page{})
	require.NoError(t, err)
	ba, err := s.History(ctx, "t1", "m1", models.Page{})
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	require.Len(t, ab, 2)
	assert.Equal(t, "one", ab[0].Text)
	assert.Equal(t, "two", ab[1].Text)

	page, err := s.History(ctx, "m1", "t1", models.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Text)

	beyond, err := s.History(ctx, "m1", "t1", models.Page{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	convs, err := s.ConversationsFor(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "m2", convs[0].CounterpartID)
	assert.Equal(t, "bob", convs[0].Counterpart.Username)
	assert.Equal(t, 1, convs[0].MessageCount)
	assert.Equal(t, "m1", convs[1].CounterpartID)
	assert.Equal(t, 2, convs[1].MessageCount)
	assert.Equal(t, "two", convs[1].LastMessage.Text)

	err = s.InsertMessage(ctx, &models.Message{SenderID: "ghost", ReceiverID: "t1", Text: "x"}, base)
	require.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestStorage_ConversationsFor_TieBreak(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateAccount(ctx, newAccount("t1", "coach", models.RoleTrainer)))
	for _, id := range []string{"zz", "mm", "aa"} {
		require.NoError(t, s.CreateAccount(ctx, newAccount(id, "member_"+id, models.RoleMember)))
	}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"zz", "mm", "aa"} {
		msg := models.Message{ID: "msg-" + id, SenderID: id, ReceiverID: "t1", Text: "hi"}
		require.NoError(t, s.InsertMessage(ctx, &msg, at))
	}

	convs, err := s.ConversationsFor(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, convs, 3)
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		assert.True(t, c.LastMessage.CreatedAt.Equal(at))
		ids = append(ids, c.CounterpartID)
	}
	assert.Equal(t, []string{"aa", "mm", "zz"}, ids)
}

func TestStorage_ConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateAccount(ctx, newAccount("m1", "alice", models.RoleMember)))
	require.NoError(t, s.CreateAccount(ctx, newAccount("t1", "coach", models.RoleTrainer)))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := models.Message{ID: fmt.Sprint(i), SenderID: "m1", ReceiverID: "t1", Text: "hi"}
			_ = s.InsertMessage(ctx, &msg, time.Now())
		}(i)
	}
	wg.Wait()

	hist, err := s.History(ctx, "m1", "t1", models.Page{})
	require.NoError(t, err)
	require.Len(t, hist, 20)
	for i := 1; i < len(hist); i++ {
		assert.False(t, hist[i].CreatedAt.Before(hist[i-1].CreatedAt))
		assert.Greater(t, hist[i].Seq, hist[i-1].Seq)
	}
}

func TestStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()

	require.ErrorIs(t, s.CreateAccount(ctx, newAccount("a", "a", models.RoleMember)), context.Canceled)
	_, err := s.History(ctx, "a", "b", models.Page{})
	require.ErrorIs(t, err, context.Canceled)
}
