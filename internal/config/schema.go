package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpgo/finplan/pkg/dateutil"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// File is the YAML form of a simulation configuration. Accounts, assets,
// events and return profiles are referenced by name.
type File struct {
	Name          string `yaml:"name"`
	StartDate     Date   `yaml:"start_date"`
	BirthDate     Date   `yaml:"birth_date"`
	DurationYears int    `yaml:"duration_years"`
	CollectLedger bool   `yaml:"collect_ledger"`

	Inflation      *InflationSpec      `yaml:"inflation"`
	ReturnProfiles []ReturnProfileSpec `yaml:"return_profiles"`
	Assets         []AssetSpec         `yaml:"assets"`
	Accounts       []AccountSpec       `yaml:"accounts"`
	Events         []EventSpec         `yaml:"events"`
	Tax            *TaxSpec            `yaml:"tax"`
}

// Date is a civil date written as 2006-01-02 (RFC 3339 timestamps are
// accepted and truncated)
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a date", node.Line)
	}
	value := strings.TrimSpace(node.Value)
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, value); err != nil {
			return fmt.Errorf("line %d: invalid date %q, expected YYYY-MM-DD", node.Line, node.Value)
		}
	}
	d.Time = dateutil.Truncate(t)
	return nil
}

// Number is an exact decimal. A trailing % divides by 100. Set records
// whether the key was present.
type Number struct {
	decimal.Decimal
	Set bool
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := parseNumber(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	n.Decimal, n.Set = v, true
	return nil
}

// Float returns the number as a float64 rate
func (n Number) Float() float64 {
	return n.InexactFloat64()
}

func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid percentage %q", s)
		}
		return v.Div(decimal.NewFromInt(100)), nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// ReturnProfileSpec is a named return distribution. Type is one of none,
// fixed, normal, lognormal, student_t, regime_switching, bootstrap or preset.
type ReturnProfileSpec struct {
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Preset      string             `yaml:"preset"`
	Rate        Number             `yaml:"rate"`
	Mean        Number             `yaml:"mean"`
	StdDev      Number             `yaml:"std_dev"`
	Scale       Number             `yaml:"scale"`
	DF          Number             `yaml:"df"`
	Bull        *ReturnProfileSpec `yaml:"bull"`
	Bear        *ReturnProfileSpec `yaml:"bear"`
	BullToBear  Number             `yaml:"bull_to_bear"`
	BearToBull  Number             `yaml:"bear_to_bull"`
	History     []Number           `yaml:"history"`
	HistoryFile string             `yaml:"history_file"`
	BlockSize   int                `yaml:"block_size"`
}

// InflationSpec is the run's inflation distribution. Type is one of none,
// fixed, normal, lognormal, bootstrap or preset.
type InflationSpec struct {
	Type        string   `yaml:"type"`
	Preset      string   `yaml:"preset"`
	Rate        Number   `yaml:"rate"`
	Mean        Number   `yaml:"mean"`
	StdDev      Number   `yaml:"std_dev"`
	History     []Number `yaml:"history"`
	HistoryFile string   `yaml:"history_file"`
	BlockSize   int      `yaml:"block_size"`
}

// AssetSpec prices an asset on the start date and names the profile it
// grows at
type AssetSpec struct {
	Name    string `yaml:"name"`
	Price   Number `yaml:"price"`
	Returns string `yaml:"returns"`
}

// AccountSpec describes one account. Type is bank, investment, property or
// liability; only the fields of that type are read.
type AccountSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	Cash        Number `yaml:"cash"`
	CashReturns string `yaml:"cash_returns"`

	TaxStatus         string     `yaml:"tax_status"`
	Positions         []LotSpec  `yaml:"positions"`
	ContributionLimit *LimitSpec `yaml:"contribution_limit"`

	// Property. Asset defaults to an asset named after the account.
	Asset   string `yaml:"asset"`
	Value   Number `yaml:"value"`
	Returns string `yaml:"returns"`

	Principal    Number `yaml:"principal"`
	InterestRate Number `yaml:"interest_rate"`
}

type LotSpec struct {
	Asset        string `yaml:"asset"`
	PurchaseDate Date   `yaml:"purchase_date"`
	Units        Number `yaml:"units"`
	CostBasis    Number `yaml:"cost_basis"`
}

type LimitSpec struct {
	Amount Number `yaml:"amount"`
	Period string `yaml:"period"`
}

// EventSpec is a named trigger and its effects. Once defaults to true for
// every trigger except repeating.
type EventSpec struct {
	Name    string       `yaml:"name"`
	Once    *bool        `yaml:"once"`
	Trigger TriggerSpec  `yaml:"trigger"`
	Effects []EffectSpec `yaml:"effects"`
}

// TriggerSpec is one trigger expression. A bare scalar is shorthand for
// {type: <scalar>}, so "trigger: immediate" works.
type TriggerSpec struct {
	Type           string        `yaml:"type"`
	Date           Date          `yaml:"date"`
	Years          int           `yaml:"years"`
	Months         int           `yaml:"months"`
	Account        string        `yaml:"account"`
	Asset          string        `yaml:"asset"`
	Op             string        `yaml:"op"`
	Value          Number        `yaml:"value"`
	Interval       string        `yaml:"interval"`
	Start          *TriggerSpec  `yaml:"start"`
	End            *TriggerSpec  `yaml:"end"`
	MaxOccurrences int           `yaml:"max_occurrences"`
	Event          string        `yaml:"event"`
	Offset         OffsetSpec    `yaml:"offset"`
	Triggers       []TriggerSpec `yaml:"triggers"`
}

func (t *TriggerSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.Type = strings.TrimSpace(node.Value)
		return nil
	}
	type plain TriggerSpec
	return node.Decode((*plain)(t))
}

type OffsetSpec struct {
	Unit string `yaml:"unit"`
	N    int    `yaml:"n"`
}

// AmountSpec is one amount expression. A bare number is a fixed amount and
// a bare word is a type with no parameters, such as source_balance.
type AmountSpec struct {
	Type    string      `yaml:"type"`
	Value   Number      `yaml:"value"`
	Target  Number      `yaml:"target"`
	Account string      `yaml:"account"`
	Asset   string      `yaml:"asset"`
	Percent Number      `yaml:"percent"`
	Amount  *AmountSpec `yaml:"amount"`
	Left    *AmountSpec `yaml:"left"`
	Right   *AmountSpec `yaml:"right"`
}

func (a *AmountSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if v, err := parseNumber(node.Value); err == nil {
			a.Type = "fixed"
			a.Value = Number{Decimal: v, Set: true}
			return nil
		}
		a.Type = strings.TrimSpace(node.Value)
		return nil
	}
	type plain AmountSpec
	return node.Decode((*plain)(a))
}

// SourcesSpec picks the positions a sweep liquidates. A bare scalar is a
// strategy order, such as "sources: tax_deferred_first".
type SourcesSpec struct {
	Type    string         `yaml:"type"`
	Account string         `yaml:"account"`
	Asset   string         `yaml:"asset"`
	Order   string         `yaml:"order"`
	Exclude []string       `yaml:"exclude"`
	Assets  []PositionSpec `yaml:"assets"`
}

func (s *SourcesSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Type = "strategy"
		s.Order = strings.TrimSpace(node.Value)
		return nil
	}
	type plain SourcesSpec
	return node.Decode((*plain)(s))
}

type PositionSpec struct {
	Account string `yaml:"account"`
	Asset   string `yaml:"asset"`
}

// AccountRef is an account name or, for create_account, a full account
// definition
type AccountRef struct {
	Name       string
	Definition *AccountSpec
}

func (r *AccountRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.Name = strings.TrimSpace(node.Value)
		return nil
	case yaml.MappingNode:
		var spec AccountSpec
		if err := node.Decode(&spec); err != nil {
			return err
		}
		r.Name, r.Definition = spec.Name, &spec
		return nil
	default:
		return fmt.Errorf("line %d: expected an account name or definition", node.Line)
	}
}

// EffectSpec is one effect. Which fields apply depends on Type.
type EffectSpec struct {
	Type        string       `yaml:"type"`
	Account     AccountRef   `yaml:"account"`
	From        string       `yaml:"from"`
	To          string       `yaml:"to"`
	Destination string       `yaml:"destination"`
	Asset       string       `yaml:"asset"`
	Amount      *AmountSpec  `yaml:"amount"`
	Mode        string       `yaml:"mode"`
	IncomeType  string       `yaml:"income_type"`
	LotMethod   string       `yaml:"lot_method"`
	Sources     *SourcesSpec `yaml:"sources"`
	Units       Number       `yaml:"units"`
	SellToCover bool         `yaml:"sell_to_cover"`
	Event       string       `yaml:"event"`
}

// TaxSpec overrides parts of the default tax model
type TaxSpec struct {
	FederalBrackets            []BracketSpec `yaml:"federal_brackets"`
	StateRate                  Number        `yaml:"state_rate"`
	CapitalGainsRate           Number        `yaml:"capital_gains_rate"`
	EarlyWithdrawalPenaltyRate Number        `yaml:"early_withdrawal_penalty_rate"`
}

type BracketSpec struct {
	Threshold Number `yaml:"threshold"`
	Rate      Number `yaml:"rate"`
}
