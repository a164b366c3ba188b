package order

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"sim.com/pkg/product"
)

func TestNumberGenerator_TenThousandUnique(t *testing.T) {
	gen := NewNumberGenerator(rand.New(rand.NewSource(7)), nil)
	ctx := context.Background()
	at := time.Date(2026, 1, 5, 10, 0, 0, 0, time.Local) // 同一毫秒，最容易撞号

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		no, err := gen.Next(ctx, product.FamilyFund, at)
		require.NoError(t, err)
		_, dup := seen[no]
		require.False(t, dup, "duplicate %s", no)
		seen[no] = struct{}{}
	}
	assert.Equal(t, 10000, gen.Issued())
}

func TestNumberGenerator_Format(t *testing.T) {
	gen := NewNumberGenerator(rand.New(rand.NewSource(1)), nil)
	at := time.UnixMilli(1767225600000)

	no, err := gen.Next(context.Background(), product.FamilyContractHK, at)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(no, "CT1767225600000"), no)
	assert.Len(t, no, len("CT")+13+4+1)
}

func TestNumberGenerator_GuardRejectsReissue(t *testing.T) {
	ctx := context.Background()
	at := time.UnixMilli(1767225600000)

	first := NewNumberGenerator(rand.New(rand.NewSource(3)), nil)
	no, err := first.Next(ctx, product.FamilyOption, at)
	require.NoError(t, err)

	// 同种子重跑，上一轮的订单号已被登记
	guard := NewMemoryGuard()
	guard.Reserve(no)
	rerun := NewNumberGenerator(rand.New(rand.NewSource(3)), guard)

	_, err = rerun.Next(ctx, product.FamilyOption, at)
	assert.ErrorIs(t, err, ErrDuplicateOrderNo)
}

func TestNumberGenerator_Unique_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		n := rapid.IntRange(1, 500).Draw(t, "n")
		gen := NewNumberGenerator(rand.New(rand.NewSource(seed)), NewMemoryGuard())

		seen := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			ms := rapid.Int64Range(1_600_000_000_000, 1_600_000_000_010).Draw(t, "ms")
			fam := rapid.SampledFrom([]product.Family{product.FamilyFund, product.FamilyOption, product.FamilyContract}).Draw(t, "family")
			no, err := gen.Next(context.Background(), fam, time.UnixMilli(ms))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, dup := seen[no]; dup {
				t.Fatalf("duplicate order number %s", no)
			}
			seen[no] = struct{}{}
		}
	})
}

func TestOrder_CountedAmount(t *testing.T) {
	fund := &Order{Family: product.FamilyFund, Principal: decimal.NewFromInt(600)}
	assert.True(t, decimal.NewFromInt(600).Equal(fund.CountedAmount()))

	contract := &Order{
		Family:       product.FamilyContractSH,
		Principal:    decimal.NewFromInt(70000),
		MarginAmount: decimal.NewFromInt(7000),
	}
	assert.True(t, decimal.NewFromInt(7000).Equal(contract.CountedAmount()))
}

func TestOrder_Settle(t *testing.T) {
	o := &Order{Status: StatusOpen}
	require.True(t, o.IsActive())
	require.False(t, o.ResultAmount.Valid)

	at := time.Now()
	o.Settle(decimal.NewFromInt(-100), at, StatusClosed)

	assert.False(t, o.IsActive())
	assert.True(t, o.ResultAmount.Valid)
	assert.Equal(t, "-100", o.ResultAmount.Decimal.String())
	assert.Equal(t, at, *o.ClosedAt)
}

func TestIDGen(t *testing.T) {
	gen, err := NewIDGen(1)
	require.NoError(t, err)
	a, b := gen.Next(), gen.Next()
	assert.NotEqual(t, a, b)

	_, err = NewIDGen(4096)
	assert.Error(t, err)
}
