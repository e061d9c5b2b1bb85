package rates

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardRates() map[int]decimal.Decimal {
	rates := map[int]decimal.Decimal{
		1: decimal.NewFromInt(20),
		2: decimal.NewFromInt(10),
	}
	for level := 3; level <= MaxLevel; level++ {
		rates[level] = decimal.NewFromInt(5)
	}
	return rates
}

func TestRateForLevel(t *testing.T) {
	table, err := NewTable(standardRates())
	require.NoError(t, err)
	require.True(t, table.Complete())

	pct, err := table.RateForLevel(1)
	require.NoError(t, err)
	assert.Equal(t, "20", pct.String())

	pct, err = table.RateForLevel(9)
	require.NoError(t, err)
	assert.Equal(t, "5", pct.String())
}

func TestRateForLevelOutOfRange(t *testing.T) {
	table, err := NewTable(standardRates())
	require.NoError(t, err)

	for _, level := range []int{0, 10, -1} {
		_, err := table.RateForLevel(level)
		if !errors.Is(err, ErrLevelOutOfRange) {
			t.Fatalf("level %d: expected ErrLevelOutOfRange, got %v", level, err)
		}
	}
}

func TestRateForLevelMissingIsConfigurationError(t *testing.T) {
	rates := standardRates()
	delete(rates, 6)
	table, err := NewTable(rates)
	require.NoError(t, err)
	assert.False(t, table.Complete())

	_, err = table.RateForLevel(6)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestNewTableRejectsInvalidInput(t *testing.T) {
	_, err := NewTable(map[int]decimal.Decimal{10: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrLevelOutOfRange)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewTable(map[int]decimal.Decimal{1: decimal.NewFromInt(101)})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewTable(map[int]decimal.Decimal{1: decimal.NewFromInt(-1)})
	require.Error(t, err)

	_, err = NewTable(map[int]decimal.Decimal{1: decimal.RequireFromString("5.125")})
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewTable(map[int]decimal.Decimal{1: decimal.RequireFromString("5.250")})
	require.NoError(t, err)
}

func TestNewTableCopiesInput(t *testing.T) {
	rates := standardRates()
	table, err := NewTable(rates)
	require.NoError(t, err)

	rates[1] = decimal.NewFromInt(99)
	pct, err := table.RateForLevel(1)
	require.NoError(t, err)
	assert.Equal(t, "20", pct.String())
}

func TestRatesSorted(t *testing.T) {
	table, err := NewTable(standardRates())
	require.NoError(t, err)

	listed := table.Rates()
	require.Len(t, listed, MaxLevel)
	for i, rate := range listed {
		assert.Equal(t, i+1, rate.Level)
	}
}
