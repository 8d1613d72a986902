package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lithosScope/internal/pricegraph"
)

// QuoteTable is the manual price table read from YAML:
//
//	quotes:
//	  - {base: LITH, quote: USDT, price: 0.096}
//	symbol-aliases:
//	  WXPL: XPL
//	address-aliases:
//	  "0xabb4...": LITH
type QuoteTable struct {
	Quotes             []pricegraph.Quote `yaml:"quotes"`
	pricegraph.Aliases `yaml:",inline"`
}

// LoadQuotes reads a quote table. An empty path yields an empty table.
func LoadQuotes(path string) (QuoteTable, error) {
	if path == "" {
		return QuoteTable{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return QuoteTable{}, fmt.Errorf("read quotes: %w", err)
	}
	var table QuoteTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return QuoteTable{}, fmt.Errorf("parse quotes %s: %w", path, err)
	}
	return table, nil
}

// Graph builds the price graph, layering the table's symbol aliases over
// the built-in ones.
func (t QuoteTable) Graph() *pricegraph.Graph {
	symbols := pricegraph.DefaultSymbolAliases()
	for k, v := range t.Symbols {
		symbols[k] = v
	}
	return pricegraph.New(t.Quotes, pricegraph.Aliases{Symbols: symbols, Addresses: t.Addresses})
}
