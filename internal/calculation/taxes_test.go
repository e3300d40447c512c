package calculation

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFederalTax(t *testing.T) {
	brackets := simpleTax().FederalBrackets

	tests := []struct {
		name     string
		income   decimal.Decimal
		expected decimal.Decimal
	}{
		{name: "zero income", income: d("0"), expected: d("0")},
		{name: "negative income", income: d("-500"), expected: d("0")},
		{name: "first bracket only", income: d("5000"), expected: d("500")},
		{name: "exactly at a threshold", income: d("10000"), expected: d("1000")},
		{name: "three brackets", income: d("50000"), expected: d("6800")},
		{name: "top bracket", income: d("100000"), expected: d("18000")}, // 1000 + 3600 + 11000 + 2400
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.expected.Equal(FederalTax(tt.income, brackets)),
				"expected %s, got %s", tt.expected, FederalTax(tt.income, brackets))
		})
	}
}

func TestFederalTax_NoBrackets(t *testing.T) {
	assert.True(t, FederalTax(d("50000"), nil).IsZero())
}

func TestMarginalTax_StacksOnYearToDate(t *testing.T) {
	// 10000 on top of 35000 spans 5000 at 12% and 5000 at 22%
	assertMoney(t, "1700", MarginalTax(d("10000"), d("35000"), simpleTax().FederalBrackets))
}

func TestTaxCalculator_IncomeTax(t *testing.T) {
	tc := NewTaxCalculator(simpleTax())

	tax := tc.IncomeTax(d("20000"), decimal.Zero)
	assertMoney(t, "2200", tax.Federal)
	assertMoney(t, "1000", tax.State)
	assertMoney(t, "16800", tax.Net())

	assert.True(t, tc.IncomeTax(d("-10"), decimal.Zero).Total().IsZero(), "negative income is untaxed")
}

func TestGrossFromNet(t *testing.T) {
	tc := NewTaxCalculator(simpleTax())

	assertMoney(t, "20000", tc.GrossFromNet(d("16800"), decimal.Zero))
	assert.True(t, tc.GrossFromNet(d("0"), decimal.Zero).IsZero())

	// Without brackets only the state rate is grossed up
	assertMoney(t, "1000", GrossFromNet(d("950"), decimal.Zero, nil, d("0.05")))
}

func TestRealizedGainsTax(t *testing.T) {
	tc := NewTaxCalculator(simpleTax())

	tax := tc.RealizedGainsTax(d("1000"), d("4000"), d("35000"))
	assertMoney(t, "120", tax.ShortTermFederal)
	assertMoney(t, "50", tax.ShortTermState)
	assertMoney(t, "600", tax.LongTermFederal)
	assertMoney(t, "200", tax.LongTermState)
	assertMoney(t, "970", tax.Total())

	losses := tc.RealizedGainsTax(d("-1000"), d("-4000"), decimal.Zero)
	assert.True(t, losses.Total().IsZero(), "losses are not deducted")
}

func TestTaxDeferredWithdrawalTax(t *testing.T) {
	tc := NewTaxCalculator(simpleTax())

	tests := []struct {
		name    string
		age     decimal.Decimal
		penalty string
		net     string
	}{
		{name: "before 59.5 pays the penalty", age: d("55"), penalty: "1000", net: "7500"},
		{name: "at 59 and 5 months still penalized", age: d("59.4166666667"), penalty: "1000", net: "7500"},
		{name: "at 59.5 no penalty", age: d("59.5"), penalty: "0", net: "8500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax := tc.TaxDeferredWithdrawalTax(d("10000"), decimal.Zero, tt.age)
			assertMoney(t, tt.penalty, tax.Penalty)
			assertMoney(t, tt.net, tax.Net())
		})
	}
}

func TestTaxProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	tc := NewTaxCalculator(simpleTax())

	properties.Property("federal tax never decreases with income", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := decimal.NewFromFloat(min(a, b)), decimal.NewFromFloat(max(a, b))
			return FederalTax(lo, tc.Config.FederalBrackets).LessThanOrEqual(FederalTax(hi, tc.Config.FederalBrackets))
		},
		gen.Float64Range(0, 1_000_000),
		gen.Float64Range(0, 1_000_000),
	))

	properties.Property("gross from net round trips through income tax", prop.ForAll(
		func(net, ytd float64) bool {
			n := decimal.NewFromFloat(net).Round(2)
			y := decimal.NewFromFloat(ytd).Round(2)
			gross := tc.GrossFromNet(n, y)
			back := tc.IncomeTax(gross, y).Net()
			return back.Sub(n).Abs().LessThan(d("0.01"))
		},
		gen.Float64Range(1, 500_000),
		gen.Float64Range(0, 300_000),
	))

	properties.TestingRun(t)
}
