package output

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// HTMLFormatter produces a self-contained HTML report with a net worth chart.
type HTMLFormatter struct{}

func (h HTMLFormatter) Name() string { return "html" }

//go:embed templates/report.html.tmpl
var htmlTemplateSource string

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"curr":  FormatCurrency,
	"ratio": FormatRatio,
	"date":  func(d interface{ Format(string) string }) string { return d.Format("2006-01-02") },
	"json": func(v interface{}) template.JS {
		b, _ := json.Marshal(v)
		return template.JS(b)
	},
}).Parse(htmlTemplateSource))

type htmlYear struct {
	Year          int
	NetWorth      decimal.Decimal
	HasNetWorth   bool
	Income        decimal.Decimal
	Expenses      decimal.Decimal
	Contributions decimal.Decimal
	Withdrawals   decimal.Decimal
	Taxes         decimal.Decimal
}

type htmlAccount struct {
	Name  string
	Value decimal.Decimal
	// Share of final gross assets, zero for liabilities
	Share decimal.Decimal
}

type htmlWarning struct {
	Date    string
	Kind    string
	Event   string
	Message string
}

type htmlChart struct {
	Labels []int     `json:"labels"`
	Values []float64 `json:"values"`
	Label  string    `json:"label"`
}

type htmlData struct {
	Title       string
	RunID       string
	Assumptions []string
	Result      *domain.SimulationResult
	Highlights  Highlights
	Years       []htmlYear
	Accounts    []htmlAccount
	Warnings    []htmlWarning
	MonteCarlo  *domain.MonteCarloSummary
	Chart       *htmlChart
}

func (h HTMLFormatter) Format(report *Report) ([]byte, error) {
	if report.Result == nil && report.MonteCarlo == nil {
		return nil, fmt.Errorf("%w: nothing to render", ErrMissingData)
	}
	data := htmlData{
		Title:       report.Title(),
		RunID:       report.RunID,
		Assumptions: GenerateAssumptions(report.Config),
		Result:      report.Result,
		MonteCarlo:  report.MonteCarlo,
	}

	if r := report.Result; r != nil {
		data.Highlights = AnalyzeResult(r)
		data.Years = htmlYears(r)
		data.Accounts = htmlAccounts(report, r.FinalBalances)
		for _, w := range r.Warnings {
			hw := htmlWarning{Date: w.Date.Format("2006-01-02"), Kind: w.Kind.String(), Message: w.Message}
			if w.Event != nil {
				hw.Event = report.EventName(*w.Event)
			}
			data.Warnings = append(data.Warnings, hw)
		}
		data.Chart = netWorthChart(r.YearEndNetWorth, "Year-end net worth")
	} else {
		data.Chart = netWorthChart(report.MonteCarlo.MeanYearEndNetWorth, "Mean year-end net worth")
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func htmlYears(r *domain.SimulationResult) []htmlYear {
	flows := make(map[int]domain.YearlyCashFlow, len(r.YearlyCashFlows))
	for _, cf := range r.YearlyCashFlows {
		flows[cf.Year] = cf
	}
	var years []htmlYear
	for _, year := range reportYears(r) {
		cf := flows[year]
		nw, ok := r.YearEndNetWorth[year]
		years = append(years, htmlYear{
			Year:          year,
			NetWorth:      nw,
			HasNetWorth:   ok,
			Income:        cf.Income,
			Expenses:      cf.Expenses,
			Contributions: cf.Contributions,
			Withdrawals:   cf.Withdrawals,
			Taxes:         r.TaxesFor(year).TotalTax,
		})
	}
	return years
}

func htmlAccounts(report *Report, snapshots []domain.AccountSnapshot) []htmlAccount {
	gross := decimal.Zero
	for _, a := range snapshots {
		if a.TotalValue.IsPositive() {
			gross = gross.Add(a.TotalValue)
		}
	}
	accounts := make([]htmlAccount, 0, len(snapshots))
	for _, a := range snapshots {
		name := a.Name
		if name == "" {
			name = report.AccountName(a.Account)
		}
		share := decimal.Zero
		if a.TotalValue.IsPositive() {
			share = ratioOf(a.TotalValue, gross)
		}
		accounts = append(accounts, htmlAccount{Name: name, Value: a.TotalValue, Share: share})
	}
	return accounts
}

func netWorthChart(values map[int]decimal.Decimal, label string) *htmlChart {
	if len(values) == 0 {
		return nil
	}
	chart := &htmlChart{Label: label}
	for _, year := range sortedYears(values) {
		chart.Labels = append(chart.Labels, year)
		chart.Values = append(chart.Values, values[year].Round(2).InexactFloat64())
	}
	return chart
}
