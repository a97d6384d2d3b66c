package paymentprovider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitness-membership/internal/config"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*ChargeResult)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testConfig() config.Payment {
	return config.Payment{
		Methods:          []string{"khalti", " eSewa "},
		BreakerFailures:  2,
		BreakerOpenDelay: time.Minute,
	}
}

func TestGateway_Supports(t *testing.T) {
	g := New(newNoopLogger(), testConfig(), NewSimulatedProcessor(true))

	assert.True(t, g.Supports("khalti"))
	assert.True(t, g.Supports("ESEWA"))
	assert.False(t, g.Supports(""))
	assert.False(t, g.Supports("paypal"))
	assert.Equal(t, []string{"esewa", "khalti"}, g.Methods())
}

func TestGateway_Charge(t *testing.T) {
	tests := []struct {
		name    string
		approve bool
		method  string
		wantErr error
	}{
		{name: "approved", approve: true, method: "khalti"},
		{name: "declined", approve: false, method: "esewa", wantErr: models.ErrPaymentRejected},
		{name: "unsupported method", approve: true, method: "cash", wantErr: models.ErrUnsupportedPaymentMethod},
		{name: "empty method", approve: true, method: "", wantErr: models.ErrUnsupportedPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(newNoopLogger(), testConfig(), NewSimulatedProcessor(tt.approve))
			res, err := g.Charge(context.Background(), ChargeRequest{
				AccountID: "a1", Tier: models.TierGold, Method: tt.method, Amount: 3500, DurationDays: 30,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Approved)
			assert.Equal(t, int64(3500), res.Amount)
			assert.NotEmpty(t, res.TransactionID)
		})
	}
}

func TestGateway_BreakerOpensAfterFailures(t *testing.T) {
	proc := new(mockProcessor)
	proc.On("Process", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	g := New(newNoopLogger(), testConfig(), proc)
	req := ChargeRequest{AccountID: "a1", Tier: models.TierSilver, Method: "khalti", Amount: 2500}

	for range 2 {
		_, err := g.Charge(context.Background(), req)
		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrPaymentUnavailable)
	}

	_, err := g.Charge(context.Background(), req)
	require.ErrorIs(t, err, models.ErrPaymentUnavailable)
	assert.Equal(t, "open", g.State())
	proc.AssertNumberOfCalls(t, "Process", 2)
}

func TestGateway_DeclineDoesNotTripBreaker(t *testing.T) {
	g := New(newNoopLogger(), testConfig(), NewSimulatedProcessor(false))
	req := ChargeRequest{AccountID: "a1", Tier: models.TierSilver, Method: "khalti"}

	for range 5 {
		_, err := g.Charge(context.Background(), req)
		require.ErrorIs(t, err, models.ErrPaymentRejected)
	}
	assert.Equal(t, "closed", g.State())
}

func TestSimulatedProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulatedProcessor(true).Process(ctx, ChargeRequest{})
	require.ErrorIs(t, err, context.Canceled)
}
