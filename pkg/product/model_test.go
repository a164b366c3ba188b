package product

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPermissionFamily(t *testing.T) {
	assert.Equal(t, FamilyFund, (&Product{Family: FamilyFund}).PermissionFamily())
	assert.Equal(t, FamilyContractSH, (&Product{Family: FamilyContract, Market: MarketSH}).PermissionFamily())
	assert.Equal(t, FamilyContractHK, (&Product{Family: FamilyContract, Market: MarketHK}).PermissionFamily())
	assert.Equal(t, FamilyContract, (&Product{Family: FamilyContract}).PermissionFamily())
}

func TestEffectiveFeeRate(t *testing.T) {
	assert.True(t, DefaultBlockFeeRate.Equal((&Product{Family: FamilyBlock}).EffectiveFeeRate()))
	assert.True(t, DefaultBlockFeeRateHK.Equal((&Product{Family: FamilyBlock, Market: MarketHK}).EffectiveFeeRate()))

	custom := decimal.RequireFromString("0.002")
	assert.True(t, custom.Equal((&Product{Family: FamilyBlock, FeeRate: custom}).EffectiveFeeRate()))
}

func TestSubscriptionOpen(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	end := start.Add(72 * time.Hour)
	p := &Product{Family: FamilyIPO, SubscriptionStart: start, SubscriptionEnd: end}

	assert.False(t, p.SubscriptionOpen(start.Add(-time.Second)))
	assert.True(t, p.SubscriptionOpen(start))
	assert.True(t, p.SubscriptionOpen(end.Add(-time.Second)))
	assert.False(t, p.SubscriptionOpen(end))

	assert.True(t, (&Product{Family: FamilyIPO}).SubscriptionOpen(start))
}

func TestByFamily(t *testing.T) {
	groups := ByFamily([]*Product{
		{ID: 1, Family: FamilyFund},
		{ID: 2, Family: FamilyContractHK},
		{ID: 3, Family: FamilyContract},
	})
	assert.Len(t, groups[FamilyFund], 1)
	assert.Len(t, groups[FamilyContract], 2)
	assert.True(t, FamilyContractSH.Valid())
	assert.False(t, Family("crypto").Valid())
}
