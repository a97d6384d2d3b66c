// Package entitlement вычисляет права участника по уровню подписки.
//
// Все функции чистые: одинаковые входные данные всегда дают одинаковый результат,
// скрытого состояния нет. Набор возможностей не хранится в базе, а вычисляется
// при каждом чтении из пары (уровень, активность).
package entitlement

import (
	"strings"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

// Cadence задаёт периодичность проверок прогресса или поддержки.
type Cadence string

const (
	CadenceNone     Cadence = "none"
	CadenceMonthly  Cadence = "monthly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceWeekly   Cadence = "weekly"
	CadencePriority Cadence = "priority"
)

// FeatureSet описывает набор возможностей, доступных при данной паре (уровень, активность).
type FeatureSet struct {
	ContactTrainer    bool    `json:"contact_trainer"`
	DietPlan          bool    `json:"diet_plan"`
	WorkoutPlan       bool    `json:"workout_plan"`
	ProgressCheck     Cadence `json:"progress_check"`
	Support           Cadence `json:"support"`
	LiveQnA           bool    `json:"live_qna"`
	VideoConsult      bool    `json:"video_consult"`
	LifestyleCoaching bool    `json:"lifestyle_coaching"`
}

type plan struct {
	name         string
	monthlyPrice int64 // рупии за 30 дней
	features     FeatureSet
}

var freeFeatures = FeatureSet{
	ProgressCheck: CadenceNone,
	Support:       CadenceNone,
}

// FreePlanName задаёт название плана для бесплатного уровня.
const FreePlanName = "Free Plan"

var plans = map[models.Tier]plan{
	models.TierSilver: {
		name:         "Silver Package",
		monthlyPrice: 2500,
		features: FeatureSet{
			ContactTrainer: true,
			DietPlan:       true,
			WorkoutPlan:    true,
			ProgressCheck:  CadenceMonthly,
			Support:        CadenceWeekly,
		},
	},
	models.TierGold: {
		name:         "Gold Package",
		monthlyPrice: 3500,
		features: FeatureSet{
			ContactTrainer: true,
			DietPlan:       true,
			WorkoutPlan:    true,
			ProgressCheck:  CadenceBiweekly,
			Support:        CadenceBiweekly,
			LiveQnA:        true,
		},
	},
	models.TierPlatinum: {
		name:         "Platinum Package",
		monthlyPrice: 5000,
		features: FeatureSet{
			ContactTrainer:    true,
			DietPlan:          true,
			WorkoutPlan:       true,
			ProgressCheck:     CadenceWeekly,
			Support:           CadencePriority,
			LiveQnA:           true,
			VideoConsult:      true,
			LifestyleCoaching: true,
		},
	},
}

var tierRank = map[models.Tier]int{
	models.TierFree:     0,
	models.TierSilver:   1,
	models.TierGold:     2,
	models.TierPlatinum: 3,
}

// DeriveFeatures возвращает набор возможностей для уровня и признака активности.
// Неактивная подписка любого уровня даёт бесплатный набор.
func DeriveFeatures(tier models.Tier, active bool) FeatureSet {
	if !active {
		return freeFeatures
	}
	p, ok := plans[tier]
	if !ok {
		return freeFeatures
	}
	return p.features
}

// IsPremium сообщает, есть ли у учётной записи платный активный уровень.
func IsPremium(acc *models.Account) bool {
	if acc == nil {
		return false
	}
	return acc.Tier != models.TierFree && acc.Subscription.Active
}

// Features возвращает текущий набор возможностей учётной записи.
func Features(acc *models.Account) FeatureSet {
	if acc == nil {
		return freeFeatures
	}
	return DeriveFeatures(acc.Tier, acc.Subscription.Active)
}

// PlanName возвращает отображаемое название плана.
func PlanName(tier models.Tier) string {
	if p, ok := plans[tier]; ok {
		return p.name
	}
	return FreePlanName
}

// Price возвращает стоимость уровня за days дней, пропорционально месячной цене
// с округлением вверх. Для бесплатного и неизвестного уровня цена равна 0.
func Price(tier models.Tier, days int) int64 {
	p, ok := plans[tier]
	if !ok || days <= 0 {
		return 0
	}
	return (p.monthlyPrice*int64(days) + 29) / 30
}

// ParseTier разбирает строку уровня без учёта регистра.
func ParseTier(s string) (models.Tier, bool) {
	t := models.Tier(strings.ToLower(strings.TrimSpace(s)))
	_, ok := tierRank[t]
	return t, ok
}

// IsPaid сообщает, можно ли купить уровень.
func IsPaid(tier models.Tier) bool {
	_, ok := plans[tier]
	return ok
}

// Rank возвращает порядковый номер уровня; у free он равен 0, у неизвестного уровня -1.
func Rank(tier models.Tier) int {
	if r, ok := tierRank[tier]; ok {
		return r
	}
	return -1
}

// Tiers возвращает все уровни по возрастанию.
func Tiers() []models.Tier {
	return []models.Tier{models.TierFree, models.TierSilver, models.TierGold, models.TierPlatinum}
}
