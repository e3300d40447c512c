package calculation

import (
	"github.com/shopspring/decimal"
)

// RMDStartAge is the first age with a required minimum distribution
const RMDStartAge = 73

// uniformLifetimeTable is the IRS Uniform Lifetime Table (2024), ages 73 to 120.
var uniformLifetimeTable = []float64{
	26.5, 25.5, 24.6, 23.7, 22.9, 22.0, 21.1, 20.2, 19.4, 18.5,
	17.7, 16.8, 16.0, 15.2, 14.4, 13.7, 12.9, 12.2, 11.5, 10.8,
	10.1, 9.5, 8.9, 8.4, 7.8, 7.3, 6.8, 6.4, 6.0, 5.6,
	5.2, 4.9, 4.6, 4.3, 4.1, 3.9, 3.7, 3.5, 3.4, 3.3,
	3.1, 3.0, 2.9, 2.8, 2.7, 2.5, 2.3, 2.0,
}

// RMDDivisor returns the distribution period for age. Ages past the end of
// the table use the age-120 divisor.
func RMDDivisor(age int) (decimal.Decimal, bool) {
	if age < RMDStartAge {
		return decimal.Zero, false
	}
	idx := min(age-RMDStartAge, len(uniformLifetimeTable)-1)
	return decimal.NewFromFloat(uniformLifetimeTable[idx]), true
}

// RequiredMinimumDistribution returns balance / divisor for age, or zero
// below the start age
func RequiredMinimumDistribution(priorYearBalance decimal.Decimal, age int) decimal.Decimal {
	divisor, ok := RMDDivisor(age)
	if !ok || !priorYearBalance.IsPositive() {
		return decimal.Zero
	}
	return priorYearBalance.Div(divisor)
}
