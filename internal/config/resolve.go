package config

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/rpgo/finplan/internal/calculation"
	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// resolver turns a File into a domain.SimulationConfig, numbering accounts,
// assets, events and return profiles from 1 in declaration order
type resolver struct {
	baseDir string

	profiles map[string]domain.ReturnProfileID
	assets   map[string]domain.AssetID
	accounts map[string]domain.AccountID
	events   map[string]domain.EventID
}

func newResolver(baseDir string) *resolver {
	return &resolver{
		baseDir:  baseDir,
		profiles: make(map[string]domain.ReturnProfileID),
		assets:   make(map[string]domain.AssetID),
		accounts: make(map[string]domain.AccountID),
		events:   make(map[string]domain.EventID),
	}
}

// register assigns the next id to name in names
func register[ID ~uint16](names map[string]ID, kind, name string) (ID, error) {
	if name == "" {
		return 0, fmt.Errorf("%s without a name", kind)
	}
	if _, dup := names[name]; dup {
		return 0, fmt.Errorf("duplicate %s name %q", kind, name)
	}
	if len(names) >= math.MaxUint16 {
		return 0, fmt.Errorf("too many %ss", kind)
	}
	id := ID(len(names) + 1)
	names[name] = id
	return id, nil
}

func lookup[ID ~uint16](names map[string]ID, kind, name string) (ID, error) {
	id, ok := names[name]
	if !ok {
		if name == "" {
			return 0, fmt.Errorf("missing %s reference", kind)
		}
		return 0, fmt.Errorf("unknown %s %q", kind, name)
	}
	return id, nil
}

func (r *resolver) resolve(f *File) (*domain.SimulationConfig, error) {
	cfg := &domain.SimulationConfig{
		Name:           f.Name,
		StartDate:      f.StartDate.Time,
		BirthDate:      f.BirthDate.Time,
		DurationYears:  f.DurationYears,
		CollectLedger:  f.CollectLedger,
		ReturnProfiles: make(map[domain.ReturnProfileID]domain.ReturnProfile),
		AssetPrices:    make(map[domain.AssetID]decimal.Decimal),
		AssetReturns:   make(map[domain.AssetID]domain.ReturnProfileID),
		AssetNames:     make(map[domain.AssetID]string),
	}

	for _, spec := range f.ReturnProfiles {
		id, err := register(r.profiles, "return profile", spec.Name)
		if err != nil {
			return nil, err
		}
		profile, err := r.returnProfile(&spec)
		if err != nil {
			return nil, fmt.Errorf("return profile %q: %w", spec.Name, err)
		}
		cfg.ReturnProfiles[id] = profile
	}

	inflation, err := r.inflationProfile(f.Inflation)
	if err != nil {
		return nil, fmt.Errorf("inflation: %w", err)
	}
	cfg.InflationProfile = inflation

	for _, spec := range f.Assets {
		if err := r.asset(cfg, spec); err != nil {
			return nil, fmt.Errorf("asset %q: %w", spec.Name, err)
		}
	}

	// account names first, so events can refer to accounts created later
	for _, spec := range f.Accounts {
		if _, err := register(r.accounts, "account", spec.Name); err != nil {
			return nil, err
		}
	}
	for _, ev := range f.Events {
		for _, eff := range ev.Effects {
			if eff.Type == "create_account" && eff.Account.Definition != nil {
				if _, err := register(r.accounts, "account", eff.Account.Name); err != nil {
					return nil, fmt.Errorf("event %q: %w", ev.Name, err)
				}
			}
		}
	}
	for _, ev := range f.Events {
		if _, err := register(r.events, "event", ev.Name); err != nil {
			return nil, err
		}
	}

	for _, spec := range f.Accounts {
		account, err := r.account(cfg, &spec)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", spec.Name, err)
		}
		cfg.Accounts = append(cfg.Accounts, account)
	}

	for _, spec := range f.Events {
		event, err := r.event(cfg, &spec)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", spec.Name, err)
		}
		cfg.Events = append(cfg.Events, event)
	}

	cfg.Tax = r.tax(f.Tax)
	return cfg, nil
}

func (r *resolver) asset(cfg *domain.SimulationConfig, spec AssetSpec) error {
	id, err := register(r.assets, "asset", spec.Name)
	if err != nil {
		return err
	}
	cfg.AssetNames[id] = spec.Name
	if spec.Price.Set {
		if !spec.Price.IsPositive() {
			return fmt.Errorf("price must be positive, got %s", spec.Price)
		}
		cfg.AssetPrices[id] = spec.Price.Decimal
	}
	if spec.Returns != "" {
		profile, err := lookup(r.profiles, "return profile", spec.Returns)
		if err != nil {
			return err
		}
		cfg.AssetReturns[id] = profile
	}
	return nil
}

func (r *resolver) historyFile(path string) ([]float64, error) {
	if !filepath.IsAbs(path) && r.baseDir != "" {
		path = filepath.Join(r.baseDir, path)
	}
	series, err := calculation.LoadHistoricalSeries(path, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return series.Values(), nil
}

func (r *resolver) history(values []Number, file string) ([]float64, error) {
	if file != "" {
		return r.historyFile(file)
	}
	history := make([]float64, len(values))
	for i, v := range values {
		history[i] = v.Float()
	}
	return history, nil
}

func (r *resolver) returnProfile(spec *ReturnProfileSpec) (domain.ReturnProfile, error) {
	switch spec.Type {
	case "none", "":
		return domain.NoReturn{}, nil
	case "fixed":
		return domain.FixedReturn{Rate: spec.Rate.Float()}, nil
	case "normal":
		return domain.NormalReturn{Mean: spec.Mean.Float(), StdDev: spec.StdDev.Float()}, nil
	case "lognormal":
		return domain.LogNormalReturn{Mean: spec.Mean.Float(), StdDev: spec.StdDev.Float()}, nil
	case "student_t":
		return domain.StudentTReturn{Mean: spec.Mean.Float(), Scale: spec.Scale.Float(), DF: spec.DF.Float()}, nil
	case "regime_switching":
		if spec.Bull == nil || spec.Bear == nil {
			return nil, fmt.Errorf("regime switching needs bull and bear profiles")
		}
		bull, err := r.returnProfile(spec.Bull)
		if err != nil {
			return nil, fmt.Errorf("bull: %w", err)
		}
		bear, err := r.returnProfile(spec.Bear)
		if err != nil {
			return nil, fmt.Errorf("bear: %w", err)
		}
		return domain.RegimeSwitchingReturn{
			Bull:       bull,
			Bear:       bear,
			BullToBear: spec.BullToBear.Float(),
			BearToBull: spec.BearToBull.Float(),
		}, nil
	case "bootstrap":
		history, err := r.history(spec.History, spec.HistoryFile)
		if err != nil {
			return nil, err
		}
		return domain.BootstrapReturn{History: history, BlockSize: spec.BlockSize}, nil
	case "preset":
		p, ok := domain.ReturnPreset(spec.Preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", spec.Preset)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown return profile type %q", spec.Type)
	}
}

var inflationPresets = map[string]domain.InflationProfile{
	"us_fixed":  domain.USInflationFixed,
	"us_normal": domain.USInflationNormal,
}

func (r *resolver) inflationProfile(spec *InflationSpec) (domain.InflationProfile, error) {
	if spec == nil {
		return domain.NoInflation{}, nil
	}
	switch spec.Type {
	case "none", "":
		return domain.NoInflation{}, nil
	case "fixed":
		return domain.FixedInflation{Rate: spec.Rate.Float()}, nil
	case "normal":
		return domain.NormalInflation{Mean: spec.Mean.Float(), StdDev: spec.StdDev.Float()}, nil
	case "lognormal":
		return domain.LogNormalInflation{Mean: spec.Mean.Float(), StdDev: spec.StdDev.Float()}, nil
	case "bootstrap":
		history, err := r.history(spec.History, spec.HistoryFile)
		if err != nil {
			return nil, err
		}
		return domain.BootstrapInflation{History: history, BlockSize: spec.BlockSize}, nil
	case "preset":
		p, ok := inflationPresets[spec.Preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", spec.Preset)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown inflation type %q", spec.Type)
	}
}

func (r *resolver) cash(spec *AccountSpec) (domain.Cash, error) {
	cash := domain.Cash{Value: spec.Cash.Decimal}
	if spec.CashReturns != "" {
		profile, err := lookup(r.profiles, "return profile", spec.CashReturns)
		if err != nil {
			return cash, err
		}
		cash.ReturnProfileID = profile
	}
	return cash, nil
}

func (r *resolver) account(cfg *domain.SimulationConfig, spec *AccountSpec) (*domain.Account, error) {
	id, err := lookup(r.accounts, "account", spec.Name)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{ID: id, Name: spec.Name}

	switch spec.Type {
	case "bank":
		cash, err := r.cash(spec)
		if err != nil {
			return nil, err
		}
		account.Flavor = &domain.Bank{Cash: cash}

	case "investment":
		cash, err := r.cash(spec)
		if err != nil {
			return nil, err
		}
		status, err := parseEnum(spec.TaxStatus, domain.ParseTaxStatus)
		if err != nil {
			return nil, err
		}
		inv := &domain.Investment{TaxStatus: status, Cash: cash}
		for i, lot := range spec.Positions {
			asset, err := lookup(r.assets, "asset", lot.Asset)
			if err != nil {
				return nil, fmt.Errorf("position %d: %w", i+1, err)
			}
			if lot.PurchaseDate.IsZero() {
				return nil, fmt.Errorf("position %d: purchase_date is required", i+1)
			}
			inv.Positions = append(inv.Positions, domain.Lot{
				AssetID:      asset,
				PurchaseDate: lot.PurchaseDate.Time,
				Units:        lot.Units.Decimal,
				CostBasis:    lot.CostBasis.Decimal,
			})
		}
		if spec.ContributionLimit != nil {
			period, err := parseEnum(spec.ContributionLimit.Period, domain.ParseContributionPeriod)
			if err != nil {
				return nil, fmt.Errorf("contribution limit: %w", err)
			}
			inv.ContributionLimit = &domain.ContributionLimit{Amount: spec.ContributionLimit.Amount.Decimal, Period: period}
		}
		account.Flavor = inv

	case "property":
		asset, err := r.propertyAsset(cfg, spec)
		if err != nil {
			return nil, err
		}
		account.Flavor = &domain.Property{AssetID: asset, Value: spec.Value.Decimal}

	case "liability":
		account.Flavor = &domain.Liability{Principal: spec.Principal.Decimal, InterestRate: spec.InterestRate.Decimal}

	default:
		return nil, fmt.Errorf("unknown account type %q", spec.Type)
	}
	return account, nil
}

// propertyAsset returns the asset a property is priced by, declaring one
// named after the account when none is given
func (r *resolver) propertyAsset(cfg *domain.SimulationConfig, spec *AccountSpec) (domain.AssetID, error) {
	name := spec.Asset
	if name == "" {
		name = spec.Name
	}
	if id, ok := r.assets[name]; ok {
		return id, nil
	}
	if spec.Asset != "" {
		return 0, fmt.Errorf("unknown asset %q", spec.Asset)
	}
	if err := r.asset(cfg, AssetSpec{Name: name, Returns: spec.Returns}); err != nil {
		return 0, err
	}
	return r.assets[name], nil
}

func (r *resolver) position(account, asset string) (domain.AssetCoord, error) {
	accountID, err := lookup(r.accounts, "account", account)
	if err != nil {
		return domain.AssetCoord{}, err
	}
	assetID, err := lookup(r.assets, "asset", asset)
	if err != nil {
		return domain.AssetCoord{}, err
	}
	return domain.AssetCoord{AccountID: accountID, AssetID: assetID}, nil
}

func (r *resolver) event(cfg *domain.SimulationConfig, spec *EventSpec) (*domain.Event, error) {
	id, err := lookup(r.events, "event", spec.Name)
	if err != nil {
		return nil, err
	}
	trigger, err := r.trigger(&spec.Trigger)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	_, repeating := trigger.(domain.Repeating)
	once := !repeating
	if spec.Once != nil {
		once = *spec.Once
	}

	event := &domain.Event{ID: id, Name: spec.Name, Trigger: trigger, Once: once}
	for i := range spec.Effects {
		effect, err := r.effect(cfg, &spec.Effects[i])
		if err != nil {
			return nil, fmt.Errorf("effect %d (%s): %w", i+1, spec.Effects[i].Type, err)
		}
		event.Effects = append(event.Effects, effect)
	}
	return event, nil
}

func (r *resolver) threshold(spec *TriggerSpec) (domain.Threshold, error) {
	op, err := parseEnum(spec.Op, domain.ParseThresholdOp)
	if err != nil {
		return domain.Threshold{}, err
	}
	if !spec.Value.Set {
		return domain.Threshold{}, fmt.Errorf("threshold value is required")
	}
	return domain.Threshold{Op: op, Value: spec.Value.Decimal}, nil
}

func (r *resolver) trigger(spec *TriggerSpec) (domain.Trigger, error) {
	switch spec.Type {
	case "immediate":
		return domain.Immediate{}, nil
	case "manual":
		return domain.Manual{}, nil
	case "date":
		if spec.Date.IsZero() {
			return nil, fmt.Errorf("date is required")
		}
		return domain.OnDate{Date: spec.Date.Time}, nil
	case "age":
		return domain.AtAge{Years: spec.Years, Months: spec.Months}, nil
	case "account_balance":
		account, err := lookup(r.accounts, "account", spec.Account)
		if err != nil {
			return nil, err
		}
		th, err := r.threshold(spec)
		if err != nil {
			return nil, err
		}
		return domain.AccountBalance{Account: account, Threshold: th}, nil
	case "asset_balance":
		pos, err := r.position(spec.Account, spec.Asset)
		if err != nil {
			return nil, err
		}
		th, err := r.threshold(spec)
		if err != nil {
			return nil, err
		}
		return domain.AssetBalance{Asset: pos, Threshold: th}, nil
	case "net_worth":
		th, err := r.threshold(spec)
		if err != nil {
			return nil, err
		}
		return domain.NetWorth{Threshold: th}, nil
	case "repeating":
		interval, err := parseEnum(spec.Interval, domain.ParseRepeatInterval)
		if err != nil {
			return nil, err
		}
		rep := domain.Repeating{Interval: interval, MaxOccurrences: spec.MaxOccurrences}
		if spec.Start != nil {
			if rep.Start, err = r.trigger(spec.Start); err != nil {
				return nil, fmt.Errorf("start: %w", err)
			}
		}
		if spec.End != nil {
			if rep.End, err = r.trigger(spec.End); err != nil {
				return nil, fmt.Errorf("end: %w", err)
			}
		}
		return rep, nil
	case "relative":
		event, err := lookup(r.events, "event", spec.Event)
		if err != nil {
			return nil, err
		}
		unit, err := parseEnum(spec.Offset.Unit, domain.ParseOffsetUnit)
		if err != nil {
			return nil, err
		}
		return domain.RelativeToEvent{Event: event, Offset: domain.Offset{Unit: unit, N: spec.Offset.N}}, nil
	case "and", "or":
		if len(spec.Triggers) == 0 {
			return nil, fmt.Errorf("%s needs at least one trigger", spec.Type)
		}
		triggers := make([]domain.Trigger, 0, len(spec.Triggers))
		for i := range spec.Triggers {
			t, err := r.trigger(&spec.Triggers[i])
			if err != nil {
				return nil, err
			}
			triggers = append(triggers, t)
		}
		if spec.Type == "and" {
			return domain.And{Triggers: triggers}, nil
		}
		return domain.Or{Triggers: triggers}, nil
	case "":
		return nil, fmt.Errorf("trigger type is required")
	default:
		return nil, fmt.Errorf("unknown trigger type %q", spec.Type)
	}
}

func (r *resolver) amount(spec *AmountSpec) (domain.Amount, error) {
	if spec == nil {
		return nil, fmt.Errorf("amount is required")
	}
	pair := func() (domain.Amount, domain.Amount, error) {
		if spec.Left == nil || spec.Right == nil {
			return nil, nil, fmt.Errorf("%s needs left and right amounts", spec.Type)
		}
		left, err := r.amount(spec.Left)
		if err != nil {
			return nil, nil, err
		}
		right, err := r.amount(spec.Right)
		if err != nil {
			return nil, nil, err
		}
		return left, right, nil
	}

	switch spec.Type {
	case "fixed":
		return domain.Fixed{Value: spec.Value.Decimal}, nil
	case "source_balance":
		return domain.SourceBalance{}, nil
	case "target_balance":
		return domain.ZeroTargetBalance{}, nil
	case "target_to_balance":
		return domain.TargetToBalance{Target: spec.Target.Decimal}, nil
	case "asset_balance":
		pos, err := r.position(spec.Account, spec.Asset)
		if err != nil {
			return nil, err
		}
		return domain.AssetBalanceAmount{Asset: pos}, nil
	case "account_balance":
		account, err := lookup(r.accounts, "account", spec.Account)
		if err != nil {
			return nil, err
		}
		return domain.AccountTotalBalance{Account: account}, nil
	case "account_cash":
		account, err := lookup(r.accounts, "account", spec.Account)
		if err != nil {
			return nil, err
		}
		return domain.AccountCashBalance{Account: account}, nil
	case "percent_of_balance":
		account, err := lookup(r.accounts, "account", spec.Account)
		if err != nil {
			return nil, err
		}
		return domain.PercentOfBalance{Account: account, Percent: spec.Percent.Decimal}, nil
	case "inflation_adjusted":
		inner, err := r.amount(spec.Amount)
		if err != nil {
			return nil, err
		}
		return domain.InflationAdjusted{Amount: inner}, nil
	case "min", "max", "sum", "difference", "product":
		left, right, err := pair()
		if err != nil {
			return nil, err
		}
		switch spec.Type {
		case "min":
			return domain.MinOf{Left: left, Right: right}, nil
		case "max":
			return domain.MaxOf{Left: left, Right: right}, nil
		case "sum":
			return domain.Sum{Left: left, Right: right}, nil
		case "difference":
			return domain.Difference{Left: left, Right: right}, nil
		default:
			return domain.Product{Left: left, Right: right}, nil
		}
	default:
		return nil, fmt.Errorf("unknown amount type %q", spec.Type)
	}
}

func (r *resolver) sources(spec *SourcesSpec) (domain.WithdrawalSources, error) {
	if spec == nil {
		return domain.Strategy{}, nil
	}
	switch spec.Type {
	case "strategy", "":
		order, err := parseEnum(spec.Order, domain.ParseWithdrawalOrder)
		if err != nil {
			return nil, err
		}
		strategy := domain.Strategy{Order: order}
		for _, name := range spec.Exclude {
			id, err := lookup(r.accounts, "account", name)
			if err != nil {
				return nil, err
			}
			strategy.Exclude = append(strategy.Exclude, id)
		}
		return strategy, nil
	case "single_asset":
		pos, err := r.position(spec.Account, spec.Asset)
		if err != nil {
			return nil, err
		}
		return domain.SingleAsset{Asset: pos}, nil
	case "single_account":
		id, err := lookup(r.accounts, "account", spec.Account)
		if err != nil {
			return nil, err
		}
		return domain.SingleAccount{Account: id}, nil
	case "custom":
		custom := domain.CustomSources{}
		for _, p := range spec.Assets {
			pos, err := r.position(p.Account, p.Asset)
			if err != nil {
				return nil, err
			}
			custom.Assets = append(custom.Assets, pos)
		}
		return custom, nil
	default:
		return nil, fmt.Errorf("unknown sources type %q", spec.Type)
	}
}

func (r *resolver) effect(cfg *domain.SimulationConfig, spec *EffectSpec) (domain.Effect, error) {
	account := func(name string) (domain.AccountID, error) {
		return lookup(r.accounts, "account", name)
	}
	event := func() (domain.EventID, error) {
		return lookup(r.events, "event", spec.Event)
	}

	switch spec.Type {
	case "create_account":
		if spec.Account.Definition == nil {
			return nil, fmt.Errorf("account definition is required")
		}
		a, err := r.account(cfg, spec.Account.Definition)
		if err != nil {
			return nil, err
		}
		return domain.CreateAccount{Account: a}, nil

	case "delete_account":
		id, err := account(spec.Account.Name)
		if err != nil {
			return nil, err
		}
		return domain.DeleteAccount{Account: id}, nil

	case "income":
		to, err := account(spec.To)
		if err != nil {
			return nil, err
		}
		amount, err := r.amount(spec.Amount)
		if err != nil {
			return nil, err
		}
		mode, err := parseEnum(spec.Mode, domain.ParseAmountMode)
		if err != nil {
			return nil, err
		}
		incomeType, err := parseEnum(spec.IncomeType, domain.ParseIncomeType)
		if err != nil {
			return nil, err
		}
		return domain.Income{To: to, Amount: amount, Mode: mode, IncomeType: incomeType}, nil

	case "expense":
		from, err := account(spec.From)
		if err != nil {
			return nil, err
		}
		amount, err := r.amount(spec.Amount)
		if err != nil {
			return nil, err
		}
		return domain.Expense{From: from, Amount: amount}, nil

	case "asset_purchase":
		from, err := account(spec.From)
		if err != nil {
			return nil, err
		}
		to, err := r.position(spec.To, spec.Asset)
		if err != nil {
			return nil, err
		}
		amount, err := r.amount(spec.Amount)
		if err != nil {
			return nil, err
		}
		return domain.AssetPurchase{From: from, To: to, Amount: amount}, nil

	case "asset_sale":
		from, err := account(spec.From)
		if err != nil {
			return nil, err
		}
		sale := domain.AssetSale{From: from}
		if spec.Asset != "" {
			asset, err := lookup(r.assets, "asset", spec.Asset)
			if err != nil {
				return nil, err
			}
			sale.Asset = &asset
		}
		if sale.Amount, err = r.amount(spec.Amount); err != nil {
			return nil, err
		}
		if sale.Mode, err = parseEnum(spec.Mode, domain.ParseAmountMode); err != nil {
			return nil, err
		}
		if sale.LotMethod, err = parseEnum(spec.LotMethod, domain.ParseLotMethod); err != nil {
			return nil, err
		}
		return sale, nil

	case "sweep":
		to, err := account(spec.To)
		if err != nil {
			return nil, err
		}
		sweep := domain.Sweep{To: to}
		if sweep.Sources, err = r.sources(spec.Sources); err != nil {
			return nil, fmt.Errorf("sources: %w", err)
		}
		if sweep.Amount, err = r.amount(spec.Amount); err != nil {
			return nil, err
		}
		if sweep.Mode, err = parseEnum(spec.Mode, domain.ParseAmountMode); err != nil {
			return nil, err
		}
		if sweep.LotMethod, err = parseEnum(spec.LotMethod, domain.ParseLotMethod); err != nil {
			return nil, err
		}
		return sweep, nil

	case "apply_rmd":
		dest, err := account(spec.Destination)
		if err != nil {
			return nil, err
		}
		method, err := parseEnum(spec.LotMethod, domain.ParseLotMethod)
		if err != nil {
			return nil, err
		}
		return domain.ApplyRMD{Destination: dest, LotMethod: method}, nil

	case "cash_transfer":
		from, err := account(spec.From)
		if err != nil {
			return nil, err
		}
		to, err := account(spec.To)
		if err != nil {
			return nil, err
		}
		amount, err := r.amount(spec.Amount)
		if err != nil {
			return nil, err
		}
		return domain.CashTransfer{From: from, To: to, Amount: amount}, nil

	case "adjust_balance":
		id, err := account(spec.Account.Name)
		if err != nil {
			return nil, err
		}
		amount, err := r.amount(spec.Amount)
		if err != nil {
			return nil, err
		}
		return domain.AdjustBalance{Account: id, Amount: amount}, nil

	case "rsu_vesting":
		to, err := r.position(spec.To, spec.Asset)
		if err != nil {
			return nil, err
		}
		method, err := parseEnum(spec.LotMethod, domain.ParseLotMethod)
		if err != nil {
			return nil, err
		}
		return domain.RsuVesting{To: to, Units: spec.Units.Decimal, SellToCover: spec.SellToCover, LotMethod: method}, nil

	case "trigger_event", "pause_event", "resume_event", "terminate_event":
		id, err := event()
		if err != nil {
			return nil, err
		}
		switch spec.Type {
		case "trigger_event":
			return domain.TriggerEvent{Event: id}, nil
		case "pause_event":
			return domain.PauseEvent{Event: id}, nil
		case "resume_event":
			return domain.ResumeEvent{Event: id}, nil
		default:
			return domain.TerminateEvent{Event: id}, nil
		}

	default:
		return nil, fmt.Errorf("unknown effect type %q", spec.Type)
	}
}

// tax starts from the default model and overrides what the file sets
func (r *resolver) tax(spec *TaxSpec) domain.TaxConfig {
	tax := domain.DefaultTaxConfig()
	if spec == nil {
		return tax
	}
	if len(spec.FederalBrackets) > 0 {
		tax.FederalBrackets = make([]domain.TaxBracket, len(spec.FederalBrackets))
		for i, b := range spec.FederalBrackets {
			tax.FederalBrackets[i] = domain.TaxBracket{Threshold: b.Threshold.Decimal, Rate: b.Rate.Decimal}
		}
	}
	if spec.StateRate.Set {
		tax.StateRate = spec.StateRate.Decimal
	}
	if spec.CapitalGainsRate.Set {
		tax.CapitalGainsRate = spec.CapitalGainsRate.Decimal
	}
	if spec.EarlyWithdrawalPenaltyRate.Set {
		tax.EarlyWithdrawalPenaltyRate = spec.EarlyWithdrawalPenaltyRate.Decimal
	}
	return tax
}

// parseEnum parses s with parse, leaving the zero value when s is empty
func parseEnum[T any](s string, parse func(string) (T, error)) (T, error) {
	var zero T
	if s == "" {
		return zero, nil
	}
	return parse(s)
}
