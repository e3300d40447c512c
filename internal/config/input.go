package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rpgo/finplan/internal/calculation"
	"github.com/rpgo/finplan/internal/domain"
	"gopkg.in/yaml.v3"
)

// ExampleYAML is a complete worked configuration, printed by the example
// command and used by CreateExampleConfiguration
//
//go:embed example.yaml
var ExampleYAML []byte

// InputParser handles parsing of input configuration files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads and validates a YAML configuration file. Relative
// history_file paths are read from the file's directory.
func (ip *InputParser) LoadFromFile(filename string) (*domain.SimulationConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.parse(data, filepath.Dir(filename))
}

// Parse loads and validates a YAML configuration held in memory
func (ip *InputParser) Parse(data []byte) (*domain.SimulationConfig, error) {
	return ip.parse(data, "")
}

func (ip *InputParser) parse(data []byte, baseDir string) (*domain.SimulationConfig, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg, err := newResolver(baseDir).resolve(&file)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configuration: %w", err)
	}

	if err := ip.ValidateConfiguration(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ValidateConfiguration checks a resolved configuration, including every
// account, asset and event a trigger or effect refers to
func (ip *InputParser) ValidateConfiguration(cfg *domain.SimulationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := validateProfiles(cfg); err != nil {
		return fmt.Errorf("return profile validation failed: %w", err)
	}
	if err := validateAccounts(cfg); err != nil {
		return fmt.Errorf("account validation failed: %w", err)
	}
	if err := validateTax(cfg.Tax); err != nil {
		return fmt.Errorf("tax validation failed: %w", err)
	}

	refs := newReferences(cfg)
	for _, e := range cfg.Events {
		if err := refs.trigger(e.Trigger); err != nil {
			return fmt.Errorf("event %s trigger: %w", eventLabel(e), err)
		}
		for i, eff := range e.Effects {
			if err := refs.effect(eff); err != nil {
				return fmt.Errorf("event %s effect %d: %w", eventLabel(e), i+1, err)
			}
		}
	}
	return nil
}

func eventLabel(e *domain.Event) string {
	if e.Name != "" {
		return fmt.Sprintf("%q", e.Name)
	}
	return fmt.Sprintf("#%d", e.ID)
}

// validateProfiles draws one year from every distribution, which rejects
// invalid parameters the same way a run would
func validateProfiles(cfg *domain.SimulationConfig) error {
	rng := rand.New(rand.NewSource(1))
	for id, p := range cfg.ReturnProfiles {
		if _, err := calculation.SampleReturnSequence(rng, p, 1); err != nil {
			return fmt.Errorf("profile %d: %w", id, err)
		}
	}
	if cfg.InflationProfile != nil {
		if _, err := calculation.SampleInflationSequence(rng, cfg.InflationProfile, 1); err != nil {
			return fmt.Errorf("inflation: %w", err)
		}
	}
	for asset, id := range cfg.AssetReturns {
		if _, ok := cfg.ReturnProfiles[id]; !ok {
			return fmt.Errorf("asset %s grows at unknown profile %d", cfg.AssetName(asset), id)
		}
	}
	return nil
}

func validateAccount(cfg *domain.SimulationConfig, a *domain.Account) error {
	checkCash := func(c domain.Cash) error {
		if c.ReturnProfileID != 0 {
			if _, ok := cfg.ReturnProfiles[c.ReturnProfileID]; !ok {
				return fmt.Errorf("cash grows at unknown profile %d", c.ReturnProfileID)
			}
		}
		return nil
	}

	switch f := a.Flavor.(type) {
	case *domain.Bank:
		return checkCash(f.Cash)
	case *domain.Investment:
		if err := checkCash(f.Cash); err != nil {
			return err
		}
		for i, lot := range f.Positions {
			if lot.Units.IsNegative() || lot.CostBasis.IsNegative() {
				return fmt.Errorf("position %d has negative units or cost basis", i+1)
			}
			if lot.PurchaseDate.After(cfg.StartDate) {
				return fmt.Errorf("position %d was bought after the start date", i+1)
			}
		}
		if f.ContributionLimit != nil && f.ContributionLimit.Amount.IsNegative() {
			return fmt.Errorf("contribution limit must not be negative")
		}
	case *domain.Property:
		if f.Value.IsNegative() {
			return fmt.Errorf("property value must not be negative")
		}
	case *domain.Liability:
		if f.Principal.IsNegative() {
			return fmt.Errorf("principal must not be negative")
		}
		if f.InterestRate.IsNegative() {
			return fmt.Errorf("interest rate must not be negative")
		}
	}
	return nil
}

func validateAccounts(cfg *domain.SimulationConfig) error {
	for _, a := range cfg.Accounts {
		if err := validateAccount(cfg, a); err != nil {
			return fmt.Errorf("account %q: %w", a.Name, err)
		}
	}
	return nil
}

func validateTax(tax domain.TaxConfig) error {
	if len(tax.FederalBrackets) == 0 {
		return fmt.Errorf("at least one federal bracket is required")
	}
	if !tax.FederalBrackets[0].Threshold.IsZero() {
		return fmt.Errorf("the first federal bracket must start at zero")
	}
	rates := map[string]float64{
		"state rate":                    tax.StateRate.InexactFloat64(),
		"capital gains rate":            tax.CapitalGainsRate.InexactFloat64(),
		"early withdrawal penalty rate": tax.EarlyWithdrawalPenaltyRate.InexactFloat64(),
	}
	for i, b := range tax.FederalBrackets {
		rates[fmt.Sprintf("federal bracket %d rate", i+1)] = b.Rate.InexactFloat64()
	}
	for name, rate := range rates {
		if rate < 0 || rate >= 1 {
			return fmt.Errorf("%s must be in [0, 1), got %v", name, rate)
		}
	}
	return nil
}

// references is the set of ids a configuration may refer to. Accounts
// created by an effect count as known.
type references struct {
	accounts map[domain.AccountID]bool
	events   map[domain.EventID]bool
	assets   map[domain.AssetID]bool
}

func newReferences(cfg *domain.SimulationConfig) *references {
	refs := &references{
		accounts: make(map[domain.AccountID]bool),
		events:   make(map[domain.EventID]bool),
		assets:   make(map[domain.AssetID]bool),
	}
	addAccount := func(a *domain.Account) {
		refs.accounts[a.ID] = true
		switch f := a.Flavor.(type) {
		case *domain.Investment:
			for _, lot := range f.Positions {
				refs.assets[lot.AssetID] = true
			}
		case *domain.Property:
			refs.assets[f.AssetID] = true
		}
	}
	for _, a := range cfg.Accounts {
		addAccount(a)
	}
	for _, e := range cfg.Events {
		refs.events[e.ID] = true
		for _, eff := range e.Effects {
			if c, ok := eff.(domain.CreateAccount); ok && c.Account != nil {
				addAccount(c.Account)
			}
		}
	}
	for id := range cfg.AssetPrices {
		refs.assets[id] = true
	}
	for id := range cfg.AssetReturns {
		refs.assets[id] = true
	}
	for id := range cfg.AssetNames {
		refs.assets[id] = true
	}
	return refs
}

func (r *references) account(id domain.AccountID) error {
	if !r.accounts[id] {
		return fmt.Errorf("unknown account %d", id)
	}
	return nil
}

func (r *references) event(id domain.EventID) error {
	if !r.events[id] {
		return fmt.Errorf("unknown event %d", id)
	}
	return nil
}

func (r *references) position(c domain.AssetCoord) error {
	if err := r.account(c.AccountID); err != nil {
		return err
	}
	if !r.assets[c.AssetID] {
		return fmt.Errorf("unknown asset %d", c.AssetID)
	}
	return nil
}

func (r *references) trigger(t domain.Trigger) error {
	switch t := t.(type) {
	case nil:
		return fmt.Errorf("missing trigger")
	case domain.AccountBalance:
		return r.account(t.Account)
	case domain.AssetBalance:
		return r.position(t.Asset)
	case domain.RelativeToEvent:
		return r.event(t.Event)
	case domain.Repeating:
		if t.Interval == domain.Never {
			return fmt.Errorf("repeating trigger needs an interval")
		}
		if t.MaxOccurrences < 0 {
			return fmt.Errorf("max occurrences must not be negative")
		}
		if t.Start != nil {
			if err := r.trigger(t.Start); err != nil {
				return err
			}
		}
		if t.End != nil {
			return r.trigger(t.End)
		}
	case domain.And:
		return r.triggers(t.Triggers)
	case domain.Or:
		return r.triggers(t.Triggers)
	}
	return nil
}

func (r *references) triggers(ts []domain.Trigger) error {
	for _, t := range ts {
		if err := r.trigger(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *references) amount(a domain.Amount) error {
	switch a := a.(type) {
	case nil:
		return fmt.Errorf("missing amount")
	case domain.AssetBalanceAmount:
		return r.position(a.Asset)
	case domain.AccountTotalBalance:
		return r.account(a.Account)
	case domain.AccountCashBalance:
		return r.account(a.Account)
	case domain.PercentOfBalance:
		return r.account(a.Account)
	case domain.InflationAdjusted:
		return r.amount(a.Amount)
	case domain.MinOf:
		return r.amounts(a.Left, a.Right)
	case domain.MaxOf:
		return r.amounts(a.Left, a.Right)
	case domain.Sum:
		return r.amounts(a.Left, a.Right)
	case domain.Difference:
		return r.amounts(a.Left, a.Right)
	case domain.Product:
		return r.amounts(a.Left, a.Right)
	}
	return nil
}

func (r *references) amounts(left, right domain.Amount) error {
	if err := r.amount(left); err != nil {
		return err
	}
	return r.amount(right)
}

func (r *references) sources(s domain.WithdrawalSources) error {
	switch s := s.(type) {
	case nil:
		return fmt.Errorf("missing withdrawal sources")
	case domain.SingleAsset:
		return r.position(s.Asset)
	case domain.SingleAccount:
		return r.account(s.Account)
	case domain.Strategy:
		for _, id := range s.Exclude {
			if err := r.account(id); err != nil {
				return err
			}
		}
	case domain.CustomSources:
		for _, c := range s.Assets {
			if err := r.position(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *references) effect(e domain.Effect) error {
	switch e := e.(type) {
	case domain.CreateAccount:
		if e.Account == nil || e.Account.Flavor == nil {
			return fmt.Errorf("create account needs an account definition")
		}
	case domain.DeleteAccount:
		return r.account(e.Account)
	case domain.Income:
		return r.all(r.account(e.To), r.amount(e.Amount))
	case domain.Expense:
		return r.all(r.account(e.From), r.amount(e.Amount))
	case domain.AssetPurchase:
		return r.all(r.account(e.From), r.position(e.To), r.amount(e.Amount))
	case domain.AssetSale:
		if e.Asset != nil && !r.assets[*e.Asset] {
			return fmt.Errorf("unknown asset %d", *e.Asset)
		}
		return r.all(r.account(e.From), r.amount(e.Amount))
	case domain.Sweep:
		return r.all(r.account(e.To), r.sources(e.Sources), r.amount(e.Amount))
	case domain.ApplyRMD:
		return r.account(e.Destination)
	case domain.CashTransfer:
		return r.all(r.account(e.From), r.account(e.To), r.amount(e.Amount))
	case domain.AdjustBalance:
		return r.all(r.account(e.Account), r.amount(e.Amount))
	case domain.RsuVesting:
		if !e.Units.IsPositive() {
			return fmt.Errorf("vesting units must be positive")
		}
		return r.position(e.To)
	case domain.TriggerEvent:
		return r.event(e.Event)
	case domain.PauseEvent:
		return r.event(e.Event)
	case domain.ResumeEvent:
		return r.event(e.Event)
	case domain.TerminateEvent:
		return r.event(e.Event)
	case nil:
		return fmt.Errorf("missing effect")
	}
	return nil
}

// all returns the first non-nil error
func (r *references) all(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateExampleConfiguration returns the resolved ExampleYAML configuration
func (ip *InputParser) CreateExampleConfiguration() (*domain.SimulationConfig, error) {
	return ip.Parse(ExampleYAML)
}
