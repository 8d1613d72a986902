package model

// Fallbacks applied when ERC20 metadata reads revert.
const (
	UnknownSymbol   = "UNKNOWN"
	UnknownName     = "UNKNOWN"
	DefaultDecimals = uint8(18)
)

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// WithDefaults fills empty text fields with the registry fallbacks. Decimals
// are left alone since zero is a legal value; readers set DefaultDecimals on
// a failed call.
func (m TokenMeta) WithDefaults() TokenMeta {
	if m.Symbol == "" {
		m.Symbol = UnknownSymbol
	}
	if m.Name == "" {
		m.Name = UnknownName
	}
	return m
}
