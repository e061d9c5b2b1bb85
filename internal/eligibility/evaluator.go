package eligibility

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commission-engine/internal/rates"
	"github.com/angelmondragon/commission-engine/internal/upline"
)

// Reason names the rule an ancestor failed.
type Reason string

const (
	ReasonEligible        Reason = ""
	ReasonNotActivated    Reason = "not_activated"
	ReasonSelfCredit      Reason = "self_credit"
	ReasonLevelOutOfRange Reason = "level_out_of_range"
	ReasonBelowMinimum    Reason = "below_minimum_deposit"
)

// Deposit is the part of a deposit the rules look at.
type Deposit struct {
	DepositorID int64
	Amount      decimal.Decimal
}

// Evaluator decides whether an ancestor earns a commission on a deposit.
type Evaluator struct {
	minimumDeposit decimal.Decimal
}

// NewEvaluator returns an evaluator. A zero minimum disables the deposit floor.
func NewEvaluator(minimumDeposit decimal.Decimal) *Evaluator {
	if minimumDeposit.IsNegative() {
		minimumDeposit = decimal.Zero
	}
	return &Evaluator{minimumDeposit: minimumDeposit}
}

// IsEligible reports whether every rule passes.
func (e *Evaluator) IsEligible(dep Deposit, ancestor upline.Ancestor, level int) bool {
	return e.Evaluate(dep, ancestor, level) == ReasonEligible
}

// Evaluate returns the first failing rule, or ReasonEligible.
func (e *Evaluator) Evaluate(dep Deposit, ancestor upline.Ancestor, level int) Reason {
	switch {
	case !ancestor.IsActivated:
		return ReasonNotActivated
	case ancestor.UserID == dep.DepositorID:
		return ReasonSelfCredit
	case level < rates.MinLevel || level > rates.MaxLevel:
		return ReasonLevelOutOfRange
	case dep.Amount.LessThan(e.minimumDeposit):
		return ReasonBelowMinimum
	default:
		return ReasonEligible
	}
}
