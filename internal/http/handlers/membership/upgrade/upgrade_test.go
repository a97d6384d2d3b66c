package upgrade

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitness-membership/internal/entitlement"
	"github.com/magabrotheeeer/fitness-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitness-membership/internal/models"
	"github.com/magabrotheeeer/fitness-membership/internal/services/membership"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Upgrade(ctx context.Context, accountID string, req membership.UpgradeRequest) (*membership.Status, error) {
	args := m.Called(ctx, accountID, req)
	st, _ := args.Get(0).(*membership.Status)
	return st, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestUpgradeHandler_ServeHTTP(t *testing.T) {
	gold := &membership.Status{
		IsPremium: true,
		Tier:      models.TierGold,
		Features:  entitlement.DeriveFeatures(models.TierGold, true),
	}

	tests := []struct {
		name      string
		accountID string
		body      string
		setupMock func(m *ServiceMock)
		wantCode  int
		wantError string
	}{
		{
			name:      "upgrade to gold",
			accountID: "acc-1",
			body:      `{"tier":"gold","duration_days":30,"payment_method":"esewa"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Upgrade", mock.Anything, "acc-1", membership.UpgradeRequest{
					Tier: "gold", DurationDays: 30, PaymentMethod: "esewa",
				}).Return(gold, nil).Once()
			},
			wantCode: http.StatusOK,
		},
		{
			name:      "invalid plan",
			accountID: "acc-1",
			body:      `{"tier":"diamond","payment_method":"esewa"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Upgrade", mock.Anything, "acc-1", mock.Anything).Return(nil, models.ErrInvalidPlan).Once()
			},
			wantCode:  http.StatusBadRequest,
			wantError: "invalid plan selected",
		},
		{
			name:      "missing payment method",
			accountID: "acc-1",
			body:      `{"tier":"gold"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Upgrade", mock.Anything, "acc-1", mock.Anything).Return(nil, models.ErrUnsupportedPaymentMethod).Once()
			},
			wantCode:  http.StatusBadRequest,
			wantError: "invalid or missing payment method",
		},
		{
			name:      "payment declined",
			accountID: "acc-1",
			body:      `{"tier":"gold","payment_method":"khalti"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Upgrade", mock.Anything, "acc-1", mock.Anything).Return(nil, models.ErrPaymentRejected).Once()
			},
			wantCode:  http.StatusPaymentRequired,
			wantError: "payment failed",
		},
		{
			name:      "trainer cannot subscribe",
			accountID: "acc-1",
			body:      `{"tier":"gold","payment_method":"khalti"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Upgrade", mock.Anything, "acc-1", mock.Anything).Return(nil, models.ErrWrongRole).Once()
			},
			wantCode:  http.StatusForbidden,
			wantError: "operation not allowed for this role",
		},
		{
			name:      "duration out of range",
			accountID: "acc-1",
			body:      `{"tier":"gold","duration_days":400,"payment_method":"khalti"}`,
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "field DurationDays is out of range",
		},
		{
			name:      "broken json",
			accountID: "acc-1",
			body:      `{"tier":`,
			wantCode:  http.StatusBadRequest,
			wantError: "invalid request body",
		},
		{
			name:      "no account in context",
			body:      `{"tier":"gold","payment_method":"khalti"}`,
			wantCode:  http.StatusUnauthorized,
			wantError: "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			req := httptest.NewRequest(http.MethodPost, "/membership/upgrade", bytes.NewReader([]byte(tt.body)))
			if tt.accountID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.AccountID, tt.accountID))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, "Error", got["status"])
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				assert.Equal(t, "OK", got["status"])
				data := got["data"].(map[string]any)
				assert.Equal(t, true, data["is_premium"])
				assert.Equal(t, "gold", data["tier"])
				features := data["features"].(map[string]any)
				assert.Equal(t, true, features["live_qna"])
				assert.Equal(t, false, features["video_consult"])
			}
			svc.AssertExpectations(t)
		})
	}
}
