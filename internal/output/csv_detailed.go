package output

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// CSVLedgerExporter writes every recorded state change, one row per ledger
// entry. The run must have been made with the ledger enabled.
type CSVLedgerExporter struct{}

func (c CSVLedgerExporter) Name() string { return "csv-ledger" }

func (c CSVLedgerExporter) Format(report *Report) ([]byte, error) {
	if err := report.requireResult(c.Name()); err != nil {
		return nil, err
	}
	if len(report.Result.Ledger) == 0 {
		return nil, fmt.Errorf("%w: run has no ledger (enable collect_ledger)", ErrMissingData)
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Date", "SourceEvent", "Kind", "Account", "Amount", "Detail"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, entry := range report.Result.Ledger {
		source := ""
		if entry.SourceEvent != nil {
			source = report.EventName(*entry.SourceEvent)
		}
		line := describeStateEvent(report, entry.Event)
		amount := ""
		if line.hasAmount {
			amount = line.amount.StringFixed(2)
		}
		row := []string{
			entry.Date.Format("2006-01-02"),
			source,
			entry.Event.Kind(),
			line.account,
			amount,
			line.detail,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ledgerLine is the human readable form of one state event
type ledgerLine struct {
	account   string
	amount    decimal.Decimal
	hasAmount bool
	detail    string
}

func withAmount(account string, amount decimal.Decimal, detail string) ledgerLine {
	return ledgerLine{account: account, amount: amount, hasAmount: true, detail: detail}
}

func describeStateEvent(report *Report, ev domain.StateEvent) ledgerLine {
	account := report.AccountName
	switch e := ev.(type) {
	case domain.TimeAdvance:
		return ledgerLine{detail: fmt.Sprintf("%s to %s (%d days)", e.From.Format("2006-01-02"), e.To.Format("2006-01-02"), e.Days)}
	case domain.AccountCreated:
		if e.Account == nil {
			return ledgerLine{}
		}
		return ledgerLine{account: e.Account.Name, detail: "created"}
	case domain.AccountDeleted:
		return ledgerLine{account: account(e.Account), detail: "deleted"}
	case domain.CashCredit:
		return withAmount(account(e.To), e.Amount, e.Flow.String())
	case domain.CashDebit:
		return withAmount(account(e.From), e.Amount.Neg(), e.Flow.String())
	case domain.ContributionRecorded:
		return withAmount(account(e.Account), e.Amount, "counts toward the contribution limit")
	case domain.CashAppreciation:
		return withAmount(account(e.Account), e.New.Sub(e.Previous), fmt.Sprintf("%s to %s over %d days", e.Previous.StringFixed(2), e.New.StringFixed(2), e.Days))
	case domain.LiabilityInterestAccrual:
		return withAmount(account(e.Account), e.New.Sub(e.Previous), fmt.Sprintf("interest at %s over %d days", FormatRatio(e.InterestRate), e.Days))
	case domain.AssetPurchased:
		return withAmount(account(e.Asset.AccountID), e.CostBasis,
			fmt.Sprintf("bought %s %s at %s", e.Units.Round(6), report.AssetName(e.Asset.AssetID), e.PricePerUnit.StringFixed(2)))
	case domain.AssetSold:
		return withAmount(account(e.Asset.AccountID), e.Proceeds,
			fmt.Sprintf("sold %s %s from lot of %s, short term gain %s, long term gain %s", e.Units.Round(6), report.AssetName(e.Asset.AssetID),
				e.LotDate.Format("2006-01-02"), e.ShortTermGain.StringFixed(2), e.LongTermGain.StringFixed(2)))
	case domain.IncomeTax:
		return withAmount("", e.Federal.Add(e.State), fmt.Sprintf("on %s gross", e.Gross.StringFixed(2)))
	case domain.ShortTermCapitalGainsTax:
		return withAmount("", e.Federal.Add(e.State), fmt.Sprintf("on %s short term gain", e.Gain.StringFixed(2)))
	case domain.LongTermCapitalGainsTax:
		return withAmount("", e.Federal.Add(e.State), fmt.Sprintf("on %s long term gain", e.Gain.StringFixed(2)))
	case domain.EarlyWithdrawalPenalty:
		return withAmount("", e.Penalty, fmt.Sprintf("%s of %s withdrawn early", FormatRatio(e.Rate), e.Gross.StringFixed(2)))
	case domain.BalanceAdjusted:
		return withAmount(account(e.Account), e.New.Sub(e.Previous), fmt.Sprintf("%s to %s", e.Previous.StringFixed(2), e.New.StringFixed(2)))
	case domain.EventTriggered:
		return ledgerLine{detail: report.EventName(e.Event)}
	case domain.EventPaused:
		return ledgerLine{detail: report.EventName(e.Event)}
	case domain.EventResumed:
		return ledgerLine{detail: report.EventName(e.Event)}
	case domain.EventTerminated:
		return ledgerLine{detail: report.EventName(e.Event)}
	case domain.ChainedTriggerRequested:
		return ledgerLine{detail: report.EventName(e.Event)}
	case domain.YearRollover:
		return ledgerLine{detail: fmt.Sprintf("%d to %d", e.FromYear, e.ToYear)}
	case domain.RmdWithdrawal:
		return withAmount(account(e.Account), e.Actual,
			fmt.Sprintf("age %d, required %s (%s / %s)", e.Age, e.Required.StringFixed(2), e.PriorYearBalance.StringFixed(2), e.Divisor))
	default:
		return ledgerLine{detail: fmt.Sprintf("%T", ev)}
	}
}
