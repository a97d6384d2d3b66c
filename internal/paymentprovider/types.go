package paymentprovider

import (
	"time"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// ChargeRequest описывает списание за уровень подписки.
type ChargeRequest struct {
	AccountID    string
	Tier         models.Tier
	Method       string
	Amount       int64 // в рупиях
	DurationDays int
}

// ChargeResult содержит ответ процессора. Approved=false означает отказ в оплате,
// а не сбой процессора.
type ChargeResult struct {
	TransactionID string
	Approved      bool
	Amount        int64
	ChargedAt     time.Time
}
