package cancel

import (
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

func (m *ServiceMock) Cancel(ctx context.Context, accountID string) (*membership.Status, error) {
	args := m.Called(ctx, accountID)
	st, _ := args.Get(0).(*membership.Status)
	return st, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCancelHandler_ServeHTTP(t *testing.T) {
	free := &membership.Status{
		Tier:     models.TierFree,
		Features: entitlement.DeriveFeatures(models.TierFree, false),
	}

	tests := []struct {
		name      string
		accountID string
		setupMock func(m *ServiceMock)
		wantCode  int
		wantError string
	}{
		{
			name:      "cancelled",
			accountID: "acc-1",
			setupMock: func(m *ServiceMock) {
				m.On("Cancel", mock.Anything, "acc-1").Return(free, nil).Once()
			},
			wantCode: http.StatusOK,
		},
		{
			name:      "concurrent change",
			accountID: "acc-1",
			setupMock: func(m *ServiceMock) {
				m.On("Cancel", mock.Anything, "acc-1").Return(nil, models.ErrVersionConflict).Once()
			},
			wantCode:  http.StatusConflict,
			wantError: "account was modified concurrently",
		},
		{
			name:      "trainer",
			accountID: "acc-1",
			setupMock: func(m *ServiceMock) {
				m.On("Cancel", mock.Anything, "acc-1").Return(nil, models.ErrWrongRole).Once()
			},
			wantCode:  http.StatusForbidden,
			wantError: "operation not allowed for this role",
		},
		{
			name:      "no account in context",
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

			req := httptest.NewRequest(http.MethodPost, "/membership/cancel", nil)
			if tt.accountID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.AccountID, tt.accountID))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				data := got["data"].(map[string]any)
				assert.Equal(t, false, data["is_premium"])
				assert.Equal(t, "free", data["tier"])
				features := data["features"].(map[string]any)
				assert.Equal(t, false, features["contact_trainer"])
			}
			svc.AssertExpectations(t)
		})
	}
}
