package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/fitness-membership/internal/models"
)

func TestIsPremium(t *testing.T) {
	tests := []struct {
		tier   models.Tier
		active bool
		want   bool
	}{
		{models.TierFree, false, false},
		{models.TierFree, true, false},
		{models.TierSilver, false, false},
		{models.TierSilver, true, true},
		{models.TierGold, false, false},
		{models.TierGold, true, true},
		{models.TierPlatinum, false, false},
		{models.TierPlatinum, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			acc := &models.Account{Tier: tt.tier, Subscription: models.Subscription{Active: tt.active}}
			assert.Equal(t, tt.want, IsPremium(acc))
		})
	}

	assert.False(t, IsPremium(nil))
}

func TestDeriveFeatures_InactiveIsFree(t *testing.T) {
	free := DeriveFeatures(models.TierFree, true)
	assert.Equal(t, freeFeatures, free)

	for _, tier := range []models.Tier{models.TierSilver, models.TierGold, models.TierPlatinum} {
		assert.Equal(t, free, DeriveFeatures(tier, false), "tier %s", tier)
	}
	assert.Equal(t, CadenceNone, free.ProgressCheck)
	assert.Equal(t, CadenceNone, free.Support)
}

func TestDeriveFeatures_Table(t *testing.T) {
	silver := DeriveFeatures(models.TierSilver, true)
	assert.True(t, silver.ContactTrainer)
	assert.True(t, silver.DietPlan)
	assert.True(t, silver.WorkoutPlan)
	assert.Equal(t, CadenceMonthly, silver.ProgressCheck)
	assert.Equal(t, CadenceWeekly, silver.Support)
	assert.False(t, silver.LiveQnA)

	gold := DeriveFeatures(models.TierGold, true)
	assert.True(t, gold.LiveQnA)
	assert.False(t, gold.VideoConsult)
	assert.False(t, gold.LifestyleCoaching)
	assert.Equal(t, CadenceBiweekly, gold.ProgressCheck)
	assert.Equal(t, CadenceBiweekly, gold.Support)

	platinum := DeriveFeatures(models.TierPlatinum, true)
	assert.True(t, platinum.VideoConsult)
	assert.True(t, platinum.LifestyleCoaching)
	assert.Equal(t, CadenceWeekly, platinum.ProgressCheck)
	assert.Equal(t, CadencePriority, platinum.Support)
}

func boolFlags(f FeatureSet) []bool {
	return []bool{f.ContactTrainer, f.DietPlan, f.WorkoutPlan, f.LiveQnA, f.VideoConsult, f.LifestyleCoaching}
}

func TestDeriveFeatures_MonotoneByTier(t *testing.T) {
	tiers := Tiers()
	for i := 1; i < len(tiers); i++ {
		lower := boolFlags(DeriveFeatures(tiers[i-1], true))
		higher := boolFlags(DeriveFeatures(tiers[i], true))
		for j := range lower {
			if lower[j] {
				assert.True(t, higher[j], "%s must keep flag %d of %s", tiers[i], j, tiers[i-1])
			}
		}
	}

	// Видеоконсультации и лайфстайл-коучинг есть только у platinum.
	for _, tier := range []models.Tier{models.TierFree, models.TierSilver, models.TierGold} {
		f := DeriveFeatures(tier, true)
		assert.False(t, f.VideoConsult)
		assert.False(t, f.LifestyleCoaching)
	}
	// Live Q&A есть только у gold и platinum.
	assert.False(t, DeriveFeatures(models.TierSilver, true).LiveQnA)
}

func TestDeriveFeatures_Deterministic(t *testing.T) {
	for _, tier := range Tiers() {
		for _, active := range []bool{true, false} {
			assert.Equal(t, DeriveFeatures(tier, active), DeriveFeatures(tier, active))
		}
	}
	assert.Equal(t, freeFeatures, DeriveFeatures(models.Tier("diamond"), true))
}

func TestParseTierAndPlanName(t *testing.T) {
	tier, ok := ParseTier(" Gold ")
	assert.True(t, ok)
	assert.Equal(t, models.TierGold, tier)

	_, ok = ParseTier("ultimate")
	assert.False(t, ok)

	assert.Equal(t, "Gold Package", PlanName(models.TierGold))
	assert.Equal(t, FreePlanName, PlanName(models.TierFree))
	assert.True(t, IsPaid(models.TierSilver))
	assert.False(t, IsPaid(models.TierFree))
	assert.Equal(t, 3, Rank(models.TierPlatinum))
	assert.Equal(t, -1, Rank(models.Tier("x")))
}

func TestPrice(t *testing.T) {
	tests := []struct {
		tier models.Tier
		days int
		want int64
	}{
		{models.TierSilver, 30, 2500},
		{models.TierGold, 30, 3500},
		{models.TierPlatinum, 30, 5000},
		{models.TierPlatinum, 60, 10000},
		{models.TierSilver, 1, 84},
		{models.TierFree, 30, 0},
		{models.Tier("diamond"), 30, 0},
		{models.TierGold, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Price(tt.tier, tt.days), "%s/%d", tt.tier, tt.days)
	}
}
