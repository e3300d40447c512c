package output

import (
	"bytes"
	"encoding/csv"

	"github.com/rpgo/finplan/internal/domain"
)

// CSVYearlySummarizer implements the yearly summary CSV output (one row per calendar year).
type CSVYearlySummarizer struct{}

func (c CSVYearlySummarizer) Name() string { return "csv" }

func (c CSVYearlySummarizer) Format(report *Report) ([]byte, error) {
	if err := report.requireResult(c.Name()); err != nil {
		return nil, err
	}
	r := report.Result

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Year", "YearEndNetWorth", "Income", "Expenses", "Contributions", "Withdrawals", "Appreciation", "NetCashFlow",
		"OrdinaryIncome", "CapitalGains", "FederalTax", "StateTax", "EarlyWithdrawalPenalties", "TotalTax"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	flows := make(map[int]domain.YearlyCashFlow, len(r.YearlyCashFlows))
	for _, cf := range r.YearlyCashFlows {
		flows[cf.Year] = cf
	}
	for _, year := range reportYears(r) {
		cf := flows[year]
		tax := r.TaxesFor(year)
		netWorth := ""
		if nw, ok := r.YearEndNetWorth[year]; ok {
			netWorth = nw.StringFixed(2)
		}
		row := []string{
			intToString(year),
			netWorth,
			cf.Income.StringFixed(2),
			cf.Expenses.StringFixed(2),
			cf.Contributions.StringFixed(2),
			cf.Withdrawals.StringFixed(2),
			cf.Appreciation.StringFixed(2),
			cf.NetCashFlow.StringFixed(2),
			tax.OrdinaryIncome.StringFixed(2),
			tax.CapitalGains.StringFixed(2),
			tax.FederalTax.StringFixed(2),
			tax.StateTax.StringFixed(2),
			tax.EarlyWithdrawalPenalties.StringFixed(2),
			tax.TotalTax.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
