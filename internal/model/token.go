package model

import "github.com/shopspring/decimal"

// Token is an ERC20 seen by any pair, gauge or bribe.
type Token struct {
	Address        string          `json:"address"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Decimals       uint8           `json:"decimals"`
	DerivedUSD     decimal.Decimal `json:"derived_usd"`
	// PriceSource is the pair that last set DerivedUSD; PriceHops counts
	// pairs between this token and a USD token along that path.
	PriceSource    string          `json:"price_source,omitempty"`
	PriceHops      uint64          `json:"price_hops,omitempty"`
	TradeVolume    decimal.Decimal `json:"trade_volume"`
	TradeVolumeUSD decimal.Decimal `json:"trade_volume_usd"`
	TxCount        uint64          `json:"tx_count"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"`
	Updated
}

func (t *Token) EntityKind() Kind { return KindToken }
func (t *Token) EntityID() string { return t.Address }

// Price returns the reference USD price, or nil when the token is unpriced.
func (t *Token) Price() *decimal.Decimal {
	if t == nil || !t.DerivedUSD.IsPositive() {
		return nil
	}
	p := t.DerivedUSD
	return &p
}
