package domain

import (
	"fmt"
	"strings"
)

// enumName returns the canonical name for index i or "unknown".
func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

// parseEnum resolves a case-insensitive name against names.
func parseEnum(kind string, names []string, s string) (int, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "-", "_")
	for i, name := range names {
		if name == n {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s: %q", kind, s)
}

// TaxStatus is the tax treatment of an investment account
type TaxStatus int

const (
	Taxable TaxStatus = iota
	TaxDeferred
	TaxFree
)

var taxStatusNames = []string{"taxable", "tax_deferred", "tax_free"}

func (s TaxStatus) String() string                { return enumName(taxStatusNames, int(s)) }
func (s TaxStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseTaxStatus parses "taxable", "tax_deferred" or "tax_free".
func ParseTaxStatus(s string) (TaxStatus, error) {
	i, err := parseEnum("tax status", taxStatusNames, s)
	return TaxStatus(i), err
}

// ContributionPeriod is the window a contribution limit applies to
type ContributionPeriod int

const (
	Yearly ContributionPeriod = iota
	Monthly
)

var contributionPeriodNames = []string{"yearly", "monthly"}

func (p ContributionPeriod) String() string                { return enumName(contributionPeriodNames, int(p)) }
func (p ContributionPeriod) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func ParseContributionPeriod(s string) (ContributionPeriod, error) {
	i, err := parseEnum("contribution period", contributionPeriodNames, s)
	return ContributionPeriod(i), err
}

// RepeatInterval is the spacing between occurrences of a repeating event
type RepeatInterval int

const (
	Never RepeatInterval = iota
	Weekly
	BiWeekly
	MonthlyInterval
	Quarterly
	YearlyInterval
)

var repeatIntervalNames = []string{"never", "weekly", "biweekly", "monthly", "quarterly", "yearly"}

func (r RepeatInterval) String() string                { return enumName(repeatIntervalNames, int(r)) }
func (r RepeatInterval) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func ParseRepeatInterval(s string) (RepeatInterval, error) {
	i, err := parseEnum("repeat interval", repeatIntervalNames, s)
	return RepeatInterval(i), err
}

// OffsetUnit is the unit of a RelativeToEvent offset
type OffsetUnit int

const (
	OffsetDays OffsetUnit = iota
	OffsetMonths
	OffsetYears
)

var offsetUnitNames = []string{"days", "months", "years"}

func (u OffsetUnit) String() string                { return enumName(offsetUnitNames, int(u)) }
func (u OffsetUnit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func ParseOffsetUnit(s string) (OffsetUnit, error) {
	i, err := parseEnum("offset unit", offsetUnitNames, s)
	return OffsetUnit(i), err
}

// ThresholdOp is the comparison used by balance triggers
type ThresholdOp int

const (
	GreaterOrEqual ThresholdOp = iota
	LessOrEqual
)

var thresholdOpNames = []string{"gte", "lte"}

func (o ThresholdOp) String() string                { return enumName(thresholdOpNames, int(o)) }
func (o ThresholdOp) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func ParseThresholdOp(s string) (ThresholdOp, error) {
	switch strings.TrimSpace(s) {
	case ">=", "greater_or_equal":
		return GreaterOrEqual, nil
	case "<=", "less_or_equal":
		return LessOrEqual, nil
	}
	i, err := parseEnum("threshold operator", thresholdOpNames, s)
	return ThresholdOp(i), err
}

// AmountMode says whether an amount is before (gross) or after (net) tax
type AmountMode int

const (
	Net AmountMode = iota
	Gross
)

var amountModeNames = []string{"net", "gross"}

func (m AmountMode) String() string                { return enumName(amountModeNames, int(m)) }
func (m AmountMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func ParseAmountMode(s string) (AmountMode, error) {
	i, err := parseEnum("amount mode", amountModeNames, s)
	return AmountMode(i), err
}

// IncomeType says whether income is subject to ordinary income tax
type IncomeType int

const (
	TaxableIncome IncomeType = iota
	TaxFreeIncome
)

var incomeTypeNames = []string{"taxable", "tax_free"}

func (t IncomeType) String() string                { return enumName(incomeTypeNames, int(t)) }
func (t IncomeType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func ParseIncomeType(s string) (IncomeType, error) {
	i, err := parseEnum("income type", incomeTypeNames, s)
	return IncomeType(i), err
}

// LotMethod selects which lots are consumed first when selling
type LotMethod int

const (
	FIFO LotMethod = iota
	LIFO
	HighestCost
	LowestCost
	AverageCost
)

var lotMethodNames = []string{"fifo", "lifo", "highest_cost", "lowest_cost", "average_cost"}

func (m LotMethod) String() string                { return enumName(lotMethodNames, int(m)) }
func (m LotMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func ParseLotMethod(s string) (LotMethod, error) {
	i, err := parseEnum("lot method", lotMethodNames, s)
	return LotMethod(i), err
}

// WithdrawalOrder orders accounts for a strategy-driven sweep
type WithdrawalOrder int

const (
	// TaxEfficientEarly draws Taxable, then TaxDeferred, then TaxFree.
	TaxEfficientEarly WithdrawalOrder = iota
	TaxDeferredFirst
	TaxFreeFirst
	// ProRata draws from every eligible account in proportion to its balance.
	ProRata
	// PenaltyAware avoids tax-deferred accounts before the early withdrawal age.
	PenaltyAware
	// Sequential keeps account id order.
	Sequential
)

var withdrawalOrderNames = []string{"tax_efficient_early", "tax_deferred_first", "tax_free_first", "pro_rata", "penalty_aware", "sequential"}

func (o WithdrawalOrder) String() string                { return enumName(withdrawalOrderNames, int(o)) }
func (o WithdrawalOrder) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func ParseWithdrawalOrder(s string) (WithdrawalOrder, error) {
	i, err := parseEnum("withdrawal order", withdrawalOrderNames, s)
	return WithdrawalOrder(i), err
}

// CashFlowKind classifies cash credits and debits for reporting
type CashFlowKind int

const (
	FlowIncome CashFlowKind = iota
	FlowExpense
	FlowContribution
	FlowInvestmentPurchase
	FlowLiquidationProceeds
	FlowAppreciation
	FlowRmdWithdrawal
	FlowTransfer
)

var cashFlowKindNames = []string{"income", "expense", "contribution", "investment_purchase", "liquidation_proceeds", "appreciation", "rmd_withdrawal", "transfer"}

func (k CashFlowKind) String() string                { return enumName(cashFlowKindNames, int(k)) }
func (k CashFlowKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// WarningKind classifies non-fatal simulation diagnostics
type WarningKind int

const (
	WarningLookupFailed WarningKind = iota
	WarningApplyFailed
	WarningChainDepthExceeded
	WarningIterationLimitHit
)

var warningKindNames = []string{"lookup_failed", "apply_failed", "chain_depth_exceeded", "iteration_limit_hit"}

func (k WarningKind) String() string                { return enumName(warningKindNames, int(k)) }
func (k WarningKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
