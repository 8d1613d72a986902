// Package pricegraph converts amounts between tokens through a sparse table
// of manual quotes, walking multi-hop paths when no direct quote exists.
package pricegraph

import (
	"math"
	"strings"
)

// Quote states that one unit of Base is worth Price units of Quote.
type Quote struct {
	Base  string  `yaml:"base" json:"base"`
	Quote string  `yaml:"quote" json:"quote"`
	Price float64 `yaml:"price" json:"price"`
}

// Aliases map alternative names onto canonical token keys. Symbol aliases
// are matched case-insensitively; address aliases by lowercase address.
type Aliases struct {
	Symbols   map[string]string `yaml:"symbol-aliases" json:"symbol_aliases"`
	Addresses map[string]string `yaml:"address-aliases" json:"address_aliases"`
}

// DefaultSymbolAliases folds wrapped and bridged tickers onto their base.
func DefaultSymbolAliases() map[string]string {
	return map[string]string{
		"WXPL":  "XPL",
		"USDT0": "USDT",
		"USD₮0": "USDT",
		"USDt":  "USDT",
	}
}

type edge struct {
	to     string
	factor float64
}

// Graph is immutable once built and safe for concurrent readers.
type Graph struct {
	edges     map[string][]edge
	symbols   map[string]string
	addresses map[string]string
}

// New builds a graph with two edges per valid quote: price forward and its
// inverse back. Quotes with a blank side or a non-finite or non-positive
// price are dropped.
func New(quotes []Quote, aliases Aliases) *Graph {
	g := &Graph{
		edges:     make(map[string][]edge),
		symbols:   make(map[string]string, len(aliases.Symbols)),
		addresses: make(map[string]string, len(aliases.Addresses)),
	}
	for from, to := range aliases.Symbols {
		g.symbols[strings.ToUpper(strings.TrimSpace(from))] = strings.ToUpper(strings.TrimSpace(to))
	}
	for addr, to := range aliases.Addresses {
		g.addresses[strings.ToLower(strings.TrimSpace(addr))] = strings.ToUpper(strings.TrimSpace(to))
	}

	for _, q := range quotes {
		if !usable(q.Price) {
			continue
		}
		base, quote := g.Key(q.Base), g.Key(q.Quote)
		if base == "" || quote == "" {
			continue
		}
		g.edges[base] = append(g.edges[base], edge{to: quote, factor: q.Price})
		g.edges[quote] = append(g.edges[quote], edge{to: base, factor: 1 / q.Price})
	}
	return g
}

// Key normalizes a symbol into the graph's key space.
func (g *Graph) Key(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if alias, ok := g.symbols[upper]; ok {
		return alias
	}
	return upper
}

// TokenKey prefers an address alias and falls back to the symbol.
func (g *Graph) TokenKey(address, symbol string) string {
	if alias, ok := g.addresses[strings.ToLower(strings.TrimSpace(address))]; ok {
		return alias
	}
	return g.Key(symbol)
}

// Resolve returns how many units of to one unit of from is worth. Paths
// are explored breadth first in quote insertion order and the first path
// reaching to wins.
func (g *Graph) Resolve(from, to string) (float64, bool) {
	from, to = g.Key(from), g.Key(to)
	if from == "" || to == "" {
		return 0, false
	}
	if from == to {
		return 1, true
	}

	type hop struct {
		token  string
		factor float64
	}
	queue := []hop{{token: from, factor: 1}}
	visited := make(map[string]struct{})
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.token == to {
			return cur.factor, true
		}
		if _, ok := visited[cur.token]; ok {
			continue
		}
		visited[cur.token] = struct{}{}

		for _, e := range g.edges[cur.token] {
			if !usable(e.factor) {
				continue
			}
			queue = append(queue, hop{token: e.to, factor: cur.factor * e.factor})
		}
	}
	return 0, false
}

// Has reports whether any quote mentions the token.
func (g *Graph) Has(symbol string) bool {
	_, ok := g.edges[g.Key(symbol)]
	return ok
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
