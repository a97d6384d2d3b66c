package paymentprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Processor выполняет списание у конкретного провайдера.
type Processor interface {
	Process(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// SimulatedProcessor имитирует провайдера: все платежи одобряются
// или отклоняются в зависимости от approve.
type SimulatedProcessor struct {
	approve bool
	now     func() time.Time
}

// NewSimulatedProcessor создаёт процессор-заглушку.
func NewSimulatedProcessor(approve bool) *SimulatedProcessor {
	return &SimulatedProcessor{approve: approve, now: time.Now}
}

// Process возвращает результат без обращения к внешним системам.
func (p *SimulatedProcessor) Process(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	const op = "paymentprovider.SimulatedProcessor.Process"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ChargeResult{
		TransactionID: uuid.NewString(),
		Approved:      p.approve,
		Amount:        req.Amount,
		ChargedAt:     p.now().UTC(),
	}, nil
}
