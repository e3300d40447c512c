package output

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	money "github.com/rpgo/finplan/pkg/decimal"
)

// FormatCurrency formats a decimal as grouped USD, e.g. "$1,234.57".
// Kept here so it can be reused by multiple formatters and unit tested in isolation.
func FormatCurrency(amount decimal.Decimal) string { return money.FormatDecimal(amount) }

// FormatPercentage formats a decimal already in percent with 2 decimals.
func FormatPercentage(amount decimal.Decimal) string { return amount.StringFixed(2) + "%" }

// FormatRatio formats a fraction (0.25) as a percentage ("25.00%").
func FormatRatio(ratio decimal.Decimal) string { return FormatPercentage(ratio.Mul(decimalHundred)) }

// formatRate formats a float fraction with one decimal, e.g. "7.0%"
func formatRate(rate float64) string { return fmt.Sprintf("%.1f%%", rate*100) }

func intToString(i int) string { return strconv.Itoa(i) }

func boolToString(b bool) string { return strconv.FormatBool(b) }

var decimalHundred = decimal.NewFromInt(100)
