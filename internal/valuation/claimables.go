package valuation

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
	"lithosScope/internal/pricegraph"
)

// ClaimableReader reads live bribe state. *dex.ContractReader satisfies it.
type ClaimableReader interface {
	BribeRewardTokens(ctx context.Context, bribe string) ([]string, error)
	Earned(ctx context.Context, bribe string, tokenID *big.Int, token string) (*big.Int, error)
}

// ClaimableLeg is what a veNFT can claim now from one bribe in one token.
type ClaimableLeg struct {
	Bribe  string          `json:"bribe"`
	Type   string          `json:"type"`
	Pair   string          `json:"pair,omitempty"`
	Token  string          `json:"token"`
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	Value  decimal.Decimal `json:"value"`
	Priced bool            `json:"priced"`
}

// ClaimablesReport is a veNFT's currently claimable bribe rewards as the
// contracts report them.
type ClaimablesReport struct {
	TokenID    string          `json:"token_id"`
	Unit       string          `json:"unit"`
	Legs       []ClaimableLeg  `json:"legs"`
	Totals     []TokenTotal    `json:"totals"`
	TotalValue decimal.Decimal `json:"total_value"`
	Unpriced   []string        `json:"unpriced,omitempty"`
	Unreadable []string        `json:"unreadable,omitempty"`
}

type bribeClaims struct {
	bribe  *model.Bribe
	tokens []string
	raw    []*big.Int
	err    error
}

// OnchainClaimables asks every indexed bribe what tokenID has earned. Up to
// parallel bribes are read at once. A bribe whose reads fail is listed in
// Unreadable; zero balances are left out.
func OnchainClaimables(ctx context.Context, store RewardStore, reader ClaimableReader, graph *pricegraph.Graph, tokenID, unit string, parallel int) (*ClaimablesReport, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid token id %q", tokenID)
	}
	if parallel <= 0 {
		parallel = 1
	}

	bribes, err := scanKind[model.Bribe](ctx, store, func(*model.Bribe) bool { return true })
	if err != nil {
		return nil, err
	}
	sort.Slice(bribes, func(i, j int) bool { return bribes[i].Address < bribes[j].Address })

	claims := make([]bribeClaims, len(bribes))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)
	for i, b := range bribes {
		i, b := i, b
		group.Go(func() error {
			claims[i] = readClaims(gctx, reader, b, id)
			return gctx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	report := &ClaimablesReport{
		TokenID:    tokenID,
		Unit:       graph.Key(unit),
		TotalValue: decimal.Zero,
	}
	totals := make(map[string]*TokenTotal)
	unpriced := make(map[string]struct{})
	for _, c := range claims {
		if c.err != nil {
			report.Unreadable = append(report.Unreadable, c.bribe.Address)
			continue
		}
		for i, token := range c.tokens {
			if c.raw[i].Sign() <= 0 {
				continue
			}
			meta, err := entity.Get[model.Token](ctx, store, token)
			if err != nil {
				return nil, err
			}
			leg := ClaimableLeg{
				Bribe:  c.bribe.Address,
				Type:   c.bribe.Type.String(),
				Pair:   c.bribe.Pair,
				Token:  token,
				Symbol: model.UnknownSymbol,
			}
			decimals := model.DefaultDecimals
			if meta != nil {
				leg.Symbol = meta.Symbol
				decimals = meta.Decimals
			}
			leg.Amount = decimal.NewFromBigInt(c.raw[i], -int32(decimals))

			key := graph.TokenKey(token, leg.Symbol)
			if f, ok := graph.Resolve(key, unit); ok {
				leg.Priced = true
				leg.Value = leg.Amount.Mul(decimal.NewFromFloat(f))
				report.TotalValue = report.TotalValue.Add(leg.Value)
			} else {
				unpriced[key] = struct{}{}
			}
			report.Legs = append(report.Legs, leg)

			t, ok := totals[token]
			if !ok {
				t = &TokenTotal{Token: token, Symbol: leg.Symbol}
				totals[token] = t
			}
			t.Amount = t.Amount.Add(leg.Amount)
		}
	}

	for _, t := range totals {
		report.Totals = append(report.Totals, *t)
	}
	sort.Slice(report.Totals, func(i, j int) bool { return report.Totals[i].Token < report.Totals[j].Token })
	for key := range unpriced {
		report.Unpriced = append(report.Unpriced, key)
	}
	sort.Strings(report.Unpriced)
	return report, nil
}

func readClaims(ctx context.Context, reader ClaimableReader, bribe *model.Bribe, tokenID *big.Int) bribeClaims {
	out := bribeClaims{bribe: bribe}
	out.tokens, out.err = reader.BribeRewardTokens(ctx, bribe.Address)
	if out.err != nil {
		return out
	}
	out.raw = make([]*big.Int, len(out.tokens))
	for i, token := range out.tokens {
		amount, err := reader.Earned(ctx, bribe.Address, tokenID, token)
		if err != nil {
			out.err = fmt.Errorf("earned %s: %w", token, err)
			return out
		}
		out.raw[i] = amount
	}
	return out
}
