package domain

import (
	"github.com/shopspring/decimal"
)

// TaxBracket is a marginal rate applying to income at or above Threshold
type TaxBracket struct {
	Threshold decimal.Decimal `yaml:"threshold" json:"threshold"`
	Rate      decimal.Decimal `yaml:"rate" json:"rate"`
}

// TaxConfig holds the simplified tax model: progressive federal brackets in
// ascending threshold order plus flat state, capital gains and penalty rates.
type TaxConfig struct {
	FederalBrackets            []TaxBracket    `json:"federal_brackets"`
	StateRate                  decimal.Decimal `json:"state_rate"`
	CapitalGainsRate           decimal.Decimal `json:"capital_gains_rate"`
	EarlyWithdrawalPenaltyRate decimal.Decimal `json:"early_withdrawal_penalty_rate"`
}

// DefaultTaxConfig returns 2024 single-filer federal brackets with a 5% state
// rate, 15% long-term capital gains and the 10% early withdrawal penalty.
func DefaultTaxConfig() TaxConfig {
	return TaxConfig{
		FederalBrackets: []TaxBracket{
			{decimal.Zero, decimal.NewFromFloat(0.10)},
			{decimal.NewFromInt(11600), decimal.NewFromFloat(0.12)},
			{decimal.NewFromInt(47150), decimal.NewFromFloat(0.22)},
			{decimal.NewFromInt(100525), decimal.NewFromFloat(0.24)},
			{decimal.NewFromInt(191950), decimal.NewFromFloat(0.32)},
			{decimal.NewFromInt(243725), decimal.NewFromFloat(0.35)},
			{decimal.NewFromInt(609350), decimal.NewFromFloat(0.37)},
		},
		StateRate:                  decimal.NewFromFloat(0.05),
		CapitalGainsRate:           decimal.NewFromFloat(0.15),
		EarlyWithdrawalPenaltyRate: decimal.NewFromFloat(0.10),
	}
}

// TaxSummary accumulates one calendar year of taxes
type TaxSummary struct {
	Year                     int             `json:"year"`
	OrdinaryIncome           decimal.Decimal `json:"ordinary_income"`
	CapitalGains             decimal.Decimal `json:"capital_gains"`
	FederalTax               decimal.Decimal `json:"federal_tax"`
	StateTax                 decimal.Decimal `json:"state_tax"`
	EarlyWithdrawalPenalties decimal.Decimal `json:"early_withdrawal_penalties"`
	TotalTax                 decimal.Decimal `json:"total_tax"`
}

// HasActivity reports whether anything was taxed this year
func (s TaxSummary) HasActivity() bool {
	return !s.OrdinaryIncome.IsZero() || !s.CapitalGains.IsZero() ||
		!s.FederalTax.IsZero() || !s.StateTax.IsZero() || !s.EarlyWithdrawalPenalties.IsZero()
}
