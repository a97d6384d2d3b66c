package membership_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitness-membership/internal/config"
	"github.com/magabrotheeeer/fitness-membership/internal/entitlement"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
	"github.com/magabrotheeeer/fitness-membership/internal/notify"
	"github.com/magabrotheeeer/fitness-membership/internal/paymentprovider"
	"github.com/magabrotheeeer/fitness-membership/internal/services/membership"
	"github.com/magabrotheeeer/fitness-membership/internal/storage/memory"
)

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) Supports(method string) bool {
	return method == "khalti" || method == "esewa"
}

func (m *GatewayMock) Charge(ctx context.Context, req paymentprovider.ChargeRequest) (*paymentprovider.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.ChargeResult), args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) MembershipUpgraded(ctx context.Context, e notify.MembershipEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *NotifierMock) MembershipCancelled(ctx context.Context, e notify.MembershipEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *NotifierMock) MessageSent(ctx context.Context, e notify.MessageEvent) error {
	return m.Called(ctx, e).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Storage
	gateway  *GatewayMock
	notifier *NotifierMock
	svc      *membership.Service
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		gateway:  new(GatewayMock),
		notifier: new(NotifierMock),
	}
	now := fixedNow
	f.clock = &now
	f.svc = membership.NewService(newNoopLogger(), f.store, f.gateway, f.notifier, nil,
		config.Membership{DefaultDurationDays: 30, MaxUpdateRetries: 3}).
		WithClock(func() time.Time { return *f.clock })
	return f
}

func (f *fixture) account(t *testing.T, username string, role models.Role) *models.Account {
	t.Helper()
	acc := &models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         role,
		Tier:         models.TierFree,
		Subscription: models.Subscription{PlanName: entitlement.FreePlanName},
		IsActive:     true,
	}
	require.NoError(t, f.store.CreateAccount(context.Background(), acc))
	return acc
}

func (f *fixture) approveAll() {
	f.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&paymentprovider.ChargeResult{TransactionID: "tx", Approved: true}, nil)
	f.notifier.On("MembershipUpgraded", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("MembershipCancelled", mock.Anything, mock.Anything).Return(nil)
}

func (f *fixture) load(t *testing.T, id string) *models.Account {
	t.Helper()
	acc, err := f.store.GetAccountByID(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func TestService_Upgrade_Success(t *testing.T) {
	f := newFixture(t)
	alice := f.account(t, "alice", models.RoleMember)

	f.gateway.On("Charge", mock.Anything, paymentprovider.ChargeRequest{
		AccountID: alice.ID, Tier: models.TierGold, Method: "khalti", Amount: 3500, DurationDays: 30,
	}).Return(&paymentprovider.ChargeResult{TransactionID: "tx-1", Approved: true}, nil).Once()
	f.notifier.On("MembershipUpgraded", mock.Anything, mock.MatchedBy(func(e notify.MembershipEvent) bool {
		return e.AccountID == alice.ID && e.Tier == models.TierGold && e.PaymentMethod == "khalti"
	})).Return(nil).Once()

	st, err := f.svc.Upgrade(context.Background(), alice.ID, membership.UpgradeRequest{
		Tier: "Gold", PaymentMethod: " Khalti ",
	})
	require.NoError(t, err)

	assert.True(t, st.IsPremium)
	assert.Equal(t, models.TierGold, st.Tier)
	assert.Equal(t, entitlement.DeriveFeatures(models.TierGold, true), st.Features)

	stored := f.load(t, alice.ID)
	sub := stored.Subscription
	assert.True(t, sub.Active)
	assert.Equal(t, "Gold Package", sub.PlanName)
	assert.Equal(t, "khalti", sub.PaymentMethod)
	require.NotNil(t, sub.StartDate)
	require.NotNil(t, sub.EndDate)
	require.NotNil(t, sub.LastPaymentDate)
	require.NotNil(t, sub.NextPaymentDate)
	assert.True(t, fixedNow.Equal(*sub.StartDate))
	assert.True(t, fixedNow.AddDate(0, 0, 30).Equal(*sub.EndDate))
	assert.True(t, sub.EndDate.Equal(*sub.NextPaymentDate))
	assert.Equal(t, entitlement.DeriveFeatures(stored.Tier, stored.Subscription.Active), entitlement.Features(stored))

	f.gateway.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestService_Upgrade_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     membership.UpgradeRequest
		wantErr error
	}{
		{name: "free tier", req: membership.UpgradeRequest{Tier: "free", PaymentMethod: "khalti"}, wantErr: models.ErrInvalidPlan},
		{name: "unknown tier", req: membership.UpgradeRequest{Tier: "diamond", PaymentMethod: "khalti"}, wantErr: models.ErrInvalidPlan},
		{name: "empty tier", req: membership.UpgradeRequest{PaymentMethod: "khalti"}, wantErr: models.ErrInvalidPlan},
		{name: "duration too long", req: membership.UpgradeRequest{Tier: "silver", DurationDays: 366, PaymentMethod: "khalti"}, wantErr: models.ErrValidation},
		{name: "negative duration", req: membership.UpgradeRequest{Tier: "silver", DurationDays: -1, PaymentMethod: "khalti"}, wantErr: models.ErrValidation},
		{name: "missing method", req: membership.UpgradeRequest{Tier: "silver"}, wantErr: models.ErrUnsupportedPaymentMethod},
		{name: "unknown method", req: membership.UpgradeRequest{Tier: "silver", PaymentMethod: "paypal"}, wantErr: models.ErrUnsupportedPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			alice := f.account(t, "alice", models.RoleMember)

			_, err := f.svc.Upgrade(context.Background(), alice.ID, tt.req)
			require.ErrorIs(t, err, tt.wantErr)

			f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
			assert.Equal(t, models.TierFree, f.load(t, alice.ID).Tier)
		})
	}
}

func TestService_Upgrade_PaymentRejectedLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	alice := f.account(t, "alice", models.RoleMember)
	before := f.load(t, alice.ID)

	f.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&paymentprovider.ChargeResult{Approved: false}, models.ErrPaymentRejected).Once()

	_, err := f.svc.Upgrade(context.Background(), alice.ID, membership.UpgradeRequest{
		Tier: "platinum", PaymentMethod: "esewa",
	})
	require.ErrorIs(t, err, models.ErrPaymentRejected)

	after := f.load(t, alice.ID)
	assert.Equal(t, before, after)
	f.notifier.AssertNotCalled(t, "MembershipUpgraded", mock.Anything, mock.Anything)
}

func TestService_Upgrade_Roles(t *testing.T) {
	f := newFixture(t)
	coach := f.account(t, "coach", models.RoleTrainer)
	ghost := f.account(t, "ghost", models.RoleMember)
	require.NoError(t, f.store.SetActive(context.Background(), ghost.ID, false))

	req := membership.UpgradeRequest{Tier: "silver", PaymentMethod: "khalti"}

	_, err := f.svc.Upgrade(context.Background(), coach.ID, req)
	require.ErrorIs(t, err, models.ErrWrongRole)

	_, err = f.svc.Upgrade(context.Background(), ghost.ID, req)
	require.ErrorIs(t, err, models.ErrAccountDisabled)

	_, err = f.svc.Upgrade(context.Background(), "missing", req)
	require.ErrorIs(t, err, models.ErrAccountNotFound)

	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestService_Upgrade_DowngradeOverwrites(t *testing.T) {
	f := newFixture(t)
	f.approveAll()
	alice := f.account(t, "alice", models.RoleMember)
	ctx := context.Background()

	_, err := f.svc.Upgrade(ctx, alice.ID, membership.UpgradeRequest{Tier: "platinum", PaymentMethod: "khalti", DurationDays: 90})
	require.NoError(t, err)

	*f.clock = fixedNow.Add(24 * time.Hour)
	st, err := f.svc.Upgrade(ctx, alice.ID, membership.UpgradeRequest{Tier: "silver", PaymentMethod: "esewa"})
	require.NoError(t, err)

	assert.Equal(t, models.TierSilver, st.Tier)
	assert.False(t, st.Features.VideoConsult)
	assert.Equal(t, "Silver Package", st.Subscription.PlanName)
	assert.True(t, f.clock.AddDate(0, 0, 30).Equal(*st.Subscription.EndDate))
}

func TestService_NotifierErrorIsLoggedNotReturned(t *testing.T) {
	var logs bytes.Buffer
	store := memory.New()
	gateway := new(GatewayMock)
	notifier := new(NotifierMock)
	svc := membership.NewService(slog.New(slog.NewTextHandler(&logs, nil)), store, gateway, notifier, nil,
		config.Membership{DefaultDurationDays: 30, MaxUpdateRetries: 3})

	alice := &models.Account{
		ID: uuid.NewString(), Username: "alice", Role: models.RoleMember,
		Tier: models.TierFree, Subscription: models.Subscription{PlanName: entitlement.FreePlanName}, IsActive: true,
	}
	require.NoError(t, store.CreateAccount(context.Background(), alice))

	gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&paymentprovider.ChargeResult{TransactionID: "tx", Approved: true}, nil)
	notifier.On("MembershipUpgraded", mock.Anything, mock.Anything).Return(errors.New("broker unreachable")).Once()
	notifier.On("MembershipCancelled", mock.Anything, mock.Anything).Return(errors.New("broker unreachable")).Once()

	st, err := svc.Upgrade(context.Background(), alice.ID, membership.UpgradeRequest{Tier: "silver", PaymentMethod: "esewa"})
	require.NoError(t, err)
	assert.True(t, st.IsPremium)

	st, err = svc.Cancel(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.False(t, st.IsPremium)

	assert.Equal(t, 2, strings.Count(logs.String(), "failed to publish membership event"))
	assert.Contains(t, logs.String(), "broker unreachable")
	notifier.AssertExpectations(t)
}

func TestService_Cancel(t *testing.T) {
	f := newFixture(t)
	f.approveAll()
	alice := f.account(t, "alice", models.RoleMember)
	ctx := context.Background()

	autoRenew := true
	_, err := f.svc.Upgrade(ctx, alice.ID, membership.UpgradeRequest{
		Tier: "gold", PaymentMethod: "khalti", AutoRenew: &autoRenew,
	})
	require.NoError(t, err)

	st, err := f.svc.Cancel(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, st.IsPremium)
	assert.Equal(t, models.TierFree, st.Tier)
	assert.Equal(t, entitlement.DeriveFeatures(models.TierFree, false), st.Features)

	stored := f.load(t, alice.ID)
	assert.False(t, stored.Subscription.Active)
	assert.False(t, stored.Subscription.AutoRenew)
	assert.Equal(t, "Gold Package", stored.Subscription.PlanName, "billing history is kept")
	assert.NotNil(t, stored.Subscription.EndDate)
	assert.Equal(t, "khalti", stored.Subscription.PaymentMethod)

	version := stored.Version
	again, err := f.svc.Cancel(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, st.Tier, again.Tier)
	assert.Equal(t, st.Features, again.Features)
	assert.Equal(t, version, f.load(t, alice.ID).Version, "second cancel is a no-op")

	f.notifier.AssertNumberOfCalls(t, "MembershipCancelled", 1)
}

func TestService_Cancel_FreeAccountIsNoop(t *testing.T) {
	f := newFixture(t)
	bob := f.account(t, "bob", models.RoleMember)

	st, err := f.svc.Cancel(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, st.Tier)
	f.notifier.AssertNotCalled(t, "MembershipCancelled", mock.Anything, mock.Anything)

	_, err = f.svc.Cancel(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestService_RecordWorkout_Streak(t *testing.T) {
	f := newFixture(t)
	alice := f.account(t, "alice", models.RoleMember)
	ctx := context.Background()

	record := func(at time.Time) *models.ActivityStats {
		*f.clock = at
		st, err := f.svc.RecordWorkout(ctx, alice.ID, membership.WorkoutRequest{WorkoutType: "cardio"})
		require.NoError(t, err)
		return st
	}

	st := record(fixedNow)
	assert.Equal(t, 1, st.CurrentStreak, "first workout starts a streak")
	assert.Equal(t, 1, st.LongestStreak)

	record(fixedNow.AddDate(0, 0, 1))
	st = record(fixedNow.AddDate(0, 0, 2))
	assert.Equal(t, 3, st.CurrentStreak)
	assert.Equal(t, 3, st.LongestStreak)
	assert.Equal(t, 3, st.TotalWorkouts)
	assert.InDelta(t, 3.0, st.TotalHours, 1e-9)

	st = record(fixedNow.AddDate(0, 0, 5))
	assert.Equal(t, 1, st.CurrentStreak, "three day gap resets the streak")
	assert.Equal(t, 3, st.LongestStreak, "longest streak never decreases")
	require.NotNil(t, st.LastWorkoutDate)
	assert.True(t, fixedNow.AddDate(0, 0, 5).Equal(*st.LastWorkoutDate))
}

func TestService_RecordWorkout_Duration(t *testing.T) {
	f := newFixture(t)
	alice := f.account(t, "alice", models.RoleMember)
	ctx := context.Background()

	hours := 2.5
	st, err := f.svc.RecordWorkout(ctx, alice.ID, membership.WorkoutRequest{DurationHours: &hours})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, st.TotalHours, 1e-9)

	for _, bad := range []float64{0, 0.05, 24.5, -1} {
		bad := bad
		_, err = f.svc.RecordWorkout(ctx, alice.ID, membership.WorkoutRequest{DurationHours: &bad})
		require.ErrorIs(t, err, models.ErrValidation, "hours=%v", bad)
	}
	assert.Equal(t, 1, f.load(t, alice.ID).Stats.TotalWorkouts)
}

func TestService_RecordWorkout_DoesNotTouchEntitlement(t *testing.T) {
	f := newFixture(t)
	f.approveAll()
	alice := f.account(t, "alice", models.RoleMember)
	ctx := context.Background()

	before, err := f.svc.Upgrade(ctx, alice.ID, membership.UpgradeRequest{Tier: "silver", PaymentMethod: "khalti"})
	require.NoError(t, err)
	_, err = f.svc.RecordWorkout(ctx, alice.ID, membership.WorkoutRequest{})
	require.NoError(t, err)

	after, err := f.svc.Status(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Tier, after.Tier)
	assert.Equal(t, before.Subscription, after.Subscription)
	assert.Equal(t, before.Features, after.Features)
	assert.Equal(t, 1, after.ActivityStats.TotalWorkouts)

	features, err := f.svc.Features(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.DeriveFeatures(models.TierSilver, true), features)
}

func TestService_Admin(t *testing.T) {
	f := newFixture(t)
	f.approveAll()
	ctx := context.Background()
	alice := f.account(t, "alice", models.RoleMember)
	f.account(t, "bob", models.RoleMember)

	_, err := f.svc.Upgrade(ctx, alice.ID, membership.UpgradeRequest{Tier: "gold", PaymentMethod: "esewa"})
	require.NoError(t, err)

	premium, err := f.svc.ListPremium(ctx)
	require.NoError(t, err)
	require.Len(t, premium, 1)
	assert.Equal(t, "alice", premium[0].Username)

	_, err = f.svc.CancelByUsername(ctx, "alice")
	require.NoError(t, err)
	premium, err = f.svc.ListPremium(ctx)
	require.NoError(t, err)
	assert.Empty(t, premium)

	require.NoError(t, f.svc.SetActiveByUsername(ctx, "bob", false))
	bob, err := f.store.GetAccountByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, bob.IsActive)

	_, err = f.svc.CancelByUsername(ctx, "nobody")
	require.ErrorIs(t, err, models.ErrAccountNotFound)
	require.ErrorIs(t, f.svc.SetActiveByUsername(ctx, "nobody", true), models.ErrAccountNotFound)
}
