package rates

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	// MinLevel is the direct referrer.
	MinLevel = 1
	// MaxLevel is the deepest ancestor that can earn a commission.
	MaxLevel = 9
)

var (
	ErrConfiguration   = errors.New("commission rate not configured")
	ErrLevelOutOfRange = errors.New("level out of range")
)

var hundred = decimal.NewFromInt(100)

// Table is an immutable level -> percentage mapping.
type Table struct {
	rates map[int]decimal.Decimal
}

// Rate is one level of a table, used for listings.
type Rate struct {
	Level      int             `json:"level"`
	Percentage decimal.Decimal `json:"percentage"`
}

// NewTable copies rates into a table. Levels must be within 1..9 and
// percentages within 0..100 with at most two decimals. Missing levels are allowed here and surface as
// ErrConfiguration when looked up.
func NewTable(rates map[int]decimal.Decimal) (*Table, error) {
	copied := make(map[int]decimal.Decimal, len(rates))
	for level, pct := range rates {
		if level < MinLevel || level > MaxLevel {
			return nil, fmt.Errorf("%w: %w: %d", ErrConfiguration, ErrLevelOutOfRange, level)
		}
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: level %d percentage %s outside 0..100", ErrConfiguration, level, pct.String())
		}
		if !pct.Equal(pct.Round(2)) {
			return nil, fmt.Errorf("%w: level %d percentage %s has more than two decimals", ErrConfiguration, level, pct.String())
		}
		copied[level] = pct
	}
	return &Table{rates: copied}, nil
}

// RateForLevel returns the percentage configured for level.
func (t *Table) RateForLevel(level int) (decimal.Decimal, error) {
	if level < MinLevel || level > MaxLevel {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrLevelOutOfRange, level)
	}
	if t == nil {
		return decimal.Zero, fmt.Errorf("%w: level %d", ErrConfiguration, level)
	}
	pct, ok := t.rates[level]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: level %d", ErrConfiguration, level)
	}
	return pct, nil
}

// Complete reports whether every level 1..9 has a rate.
func (t *Table) Complete() bool {
	if t == nil {
		return false
	}
	for level := MinLevel; level <= MaxLevel; level++ {
		if _, ok := t.rates[level]; !ok {
			return false
		}
	}
	return true
}

// Len returns the number of configured levels.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rates)
}

// Rates lists the configured levels in ascending order.
func (t *Table) Rates() []Rate {
	if t == nil {
		return nil
	}
	out := make([]Rate, 0, len(t.rates))
	for level, pct := range t.rates {
		out = append(out, Rate{Level: level, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}
