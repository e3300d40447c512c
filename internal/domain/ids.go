package domain

import "fmt"

// AccountID identifies an account within one simulation configuration
type AccountID uint16

// AssetID identifies a priced asset (a fund, a stock, a house)
type AssetID uint16

// EventID identifies an event within one simulation configuration
type EventID uint16

// ReturnProfileID identifies a return profile in the market
type ReturnProfileID uint16

// AssetCoord addresses one asset held inside one investment account
type AssetCoord struct {
	AccountID AccountID `yaml:"account_id" json:"account_id"`
	AssetID   AssetID   `yaml:"asset_id" json:"asset_id"`
}

func (c AssetCoord) String() string {
	return fmt.Sprintf("account %d/asset %d", c.AccountID, c.AssetID)
}
