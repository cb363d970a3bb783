package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPreviousCycle(t *testing.T) {
	cases := []struct {
		year, month         int
		wantYear, wantMonth int
	}{
		{2024, 1, 2023, 12},
		{2024, 2, 2024, 1},
		{2024, 12, 2024, 11},
		{2000, 3, 2000, 2},
	}
	for _, tc := range cases {
		y, m := PreviousCycle(tc.year, tc.month)
		assert.Equal(t, tc.wantYear, y)
		assert.Equal(t, tc.wantMonth, m)
	}
}

func TestValidateCycle(t *testing.T) {
	assert.NoError(t, ValidateCycle(2024, 1))
	assert.NoError(t, ValidateCycle(2024, 12))
	assert.True(t, errors.Is(ValidateCycle(0, 1), ErrMissingBatchContext))
	assert.True(t, errors.Is(ValidateCycle(2024, 0), ErrMissingBatchContext))
	assert.True(t, errors.Is(ValidateCycle(2024, 13), ErrMissingBatchContext))
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, DaysBetween(&start, &end))
	assert.Equal(t, 0, DaysBetween(nil, &end))
	assert.Equal(t, 0, DaysBetween(&start, nil))

	leapStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	leapEnd := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 29, DaysBetween(&leapStart, &leapEnd))
}

func TestCycleIndexOrdersAcrossYears(t *testing.T) {
	assert.Less(t, CycleIndex(2023, 12), CycleIndex(2024, 1))
	assert.Equal(t, CycleIndex(2024, 1)-1, CycleIndex(PreviousCycle(2024, 1)))
}

func TestMoneyHelpers(t *testing.T) {
	assert.True(t, Amount(decimal.NullDecimal{}).IsZero())
	assert.True(t, Amount(Known(decimal.RequireFromString("12.5"))).Equal(decimal.RequireFromString("12.5")))

	assert.Equal(t, "2.35", Round2(decimal.RequireFromString("2.345")).StringFixed(2))
	assert.Equal(t, "-2.35", Round2(decimal.RequireFromString("-2.345")).StringFixed(2))
	assert.Equal(t, "2.34", Round2(decimal.RequireFromString("2.3449")).StringFixed(2))

	assert.True(t, ClampZero(decimal.RequireFromString("-0.01")).IsZero())
	assert.True(t, ClampZero(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
}
