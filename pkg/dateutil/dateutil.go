package dateutil

import (
	"time"
)

// Date returns the civil date y-m-d at UTC midnight
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock from t, keeping its civil date
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// Age calculates the age in whole years at a given date
func Age(birthDate, atDate time.Time) int {
	age := atDate.Year() - birthDate.Year()
	if atDate.Month() < birthDate.Month() ||
		(atDate.Month() == birthDate.Month() && atDate.Day() < birthDate.Day()) {
		age--
	}
	return age
}

// AgeYearsMonths returns the completed years and months since birthDate
func AgeYearsMonths(birthDate, atDate time.Time) (int, int) {
	months := (atDate.Year()-birthDate.Year())*12 + int(atDate.Month()) - int(birthDate.Month())
	if atDate.Day() < birthDate.Day() {
		months--
	}
	if months < 0 {
		return 0, 0
	}
	return months / 12, months % 12
}

// AgeInYears returns the age as a fraction, years plus completed months/12
func AgeInYears(birthDate, atDate time.Time) float64 {
	y, m := AgeYearsMonths(birthDate, atDate)
	return float64(y) + float64(m)/12
}

// DateAtAge returns the first date on which the holder is years+months old
func DateAtAge(birthDate time.Time, years, months int) time.Time {
	return AddMonthsClamped(birthDate, years*12+months)
}

// IsLeapYear checks if a year is a leap year
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns the number of days in a given year
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// DaysInMonth returns the number of days in month of year
func DaysInMonth(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// AddMonthsClamped adds months, clamping the day to the end of the target
// month so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonthsClamped(date time.Time, months int) time.Time {
	total := int(date.Month()) - 1 + months
	year := date.Year() + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	day := min(date.Day(), DaysInMonth(year, month))
	return Date(year, month, day)
}

// AddYearsClamped adds years, mapping Feb 29 to Feb 28 in non-leap years
func AddYearsClamped(date time.Time, years int) time.Time {
	return AddMonthsClamped(date, years*12)
}

// DaysBetween returns whole days from a to b (negative when b is before a)
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

// YearsBetween returns completed anniversaries from start to end
func YearsBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return Age(start, end)
}

// LastAnniversary returns the most recent anniversary of start on or before end
func LastAnniversary(start, end time.Time) time.Time {
	return AddYearsClamped(start, YearsBetween(start, end))
}

// EndOfYear returns December 31 of the date's year
func EndOfYear(date time.Time) time.Time {
	return Date(date.Year(), time.December, 31)
}

// BeginningOfYear returns the first day of the year for a given date
func BeginningOfYear(date time.Time) time.Time {
	return Date(date.Year(), time.January, 1)
}

// IsYearEnd reports whether date is December 31
func IsYearEnd(date time.Time) bool {
	return date.Month() == time.December && date.Day() == 31
}

// MinDate returns the earliest of the given dates
func MinDate(first time.Time, rest ...time.Time) time.Time {
	m := first
	for _, d := range rest {
		if d.Before(m) {
			m = d
		}
	}
	return m
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
