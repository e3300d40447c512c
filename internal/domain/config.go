package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SimulationConfig is the complete, id-resolved input to one simulation run
type SimulationConfig struct {
	Name          string    `json:"name"`
	StartDate     time.Time `json:"start_date"`
	BirthDate     time.Time `json:"birth_date"`
	DurationYears int       `json:"duration_years"`

	Accounts []*Account `json:"accounts"`
	Events   []*Event   `json:"events"`

	ReturnProfiles   map[ReturnProfileID]ReturnProfile `json:"-"`
	InflationProfile InflationProfile                  `json:"-"`

	// AssetPrices is the price per unit on the start date; assets without an
	// entry start at 1.0.
	AssetPrices  map[AssetID]decimal.Decimal `json:"asset_prices"`
	AssetReturns map[AssetID]ReturnProfileID `json:"asset_returns"`
	AssetNames   map[AssetID]string          `json:"asset_names,omitempty"`

	Tax TaxConfig `json:"tax"`

	CollectLedger bool `json:"collect_ledger"`
}

// EndDate is the start date plus DurationYears
func (c *SimulationConfig) EndDate() time.Time {
	return c.StartDate.AddDate(c.DurationYears, 0, 0)
}

// Account returns the configured account with id
func (c *SimulationConfig) Account(id AccountID) (*Account, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Event returns the configured event with id
func (c *SimulationConfig) Event(id EventID) (*Event, bool) {
	for _, e := range c.Events {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// AssetName returns a display name for asset
func (c *SimulationConfig) AssetName(asset AssetID) string {
	if name, ok := c.AssetNames[asset]; ok {
		return name
	}
	return fmt.Sprintf("asset-%d", asset)
}

// Validate checks the structural invariants the engine relies on. It does
// not check cross references inside triggers and effects; those surface as
// warnings during the run.
func (c *SimulationConfig) Validate() error {
	if c.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if c.DurationYears <= 0 {
		return fmt.Errorf("duration must be positive, got %d years", c.DurationYears)
	}
	if !c.BirthDate.IsZero() && c.BirthDate.After(c.StartDate) {
		return fmt.Errorf("birth date %s is after start date %s",
			c.BirthDate.Format("2006-01-02"), c.StartDate.Format("2006-01-02"))
	}

	accounts := make(map[AccountID]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a == nil || a.Flavor == nil {
			return fmt.Errorf("account without a flavor")
		}
		if accounts[a.ID] {
			return fmt.Errorf("duplicate account id %d", a.ID)
		}
		accounts[a.ID] = true
	}

	events := make(map[EventID]bool, len(c.Events))
	for _, e := range c.Events {
		if e == nil || e.Trigger == nil {
			return fmt.Errorf("event without a trigger")
		}
		if events[e.ID] {
			return fmt.Errorf("duplicate event id %d", e.ID)
		}
		events[e.ID] = true
	}

	for i := 1; i < len(c.Tax.FederalBrackets); i++ {
		if c.Tax.FederalBrackets[i].Threshold.LessThanOrEqual(c.Tax.FederalBrackets[i-1].Threshold) {
			return fmt.Errorf("federal brackets must be in ascending threshold order")
		}
	}
	return nil
}
