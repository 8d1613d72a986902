package valuation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
	"lithosScope/internal/pricegraph"
)

// RewardStore is what the rewards report reads from.
type RewardStore interface {
	entity.Store
	entity.Scanner
}

// RewardLeg is the expected payout of one token from one bribe.
type RewardLeg struct {
	Bribe  string          `json:"bribe"`
	Type   string          `json:"type"`
	Token  string          `json:"token"`
	Symbol string          `json:"symbol"`
	Share  decimal.Decimal `json:"share"`
	Amount decimal.Decimal `json:"amount"`
	Value  decimal.Decimal `json:"value"`
	Priced bool            `json:"priced"`
}

// TokenTotal sums expected amounts of one token across bribes.
type TokenTotal struct {
	Token  string          `json:"token"`
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

// RewardsReport is a veNFT's expected bribe rewards for one epoch.
type RewardsReport struct {
	TokenID    string          `json:"token_id"`
	EpochStart uint64          `json:"epoch_start"`
	Unit       string          `json:"unit"`
	Legs       []RewardLeg     `json:"legs"`
	Totals     []TokenTotal    `json:"totals"`
	TotalValue decimal.Decimal `json:"total_value"`
	Unpriced   []string        `json:"unpriced,omitempty"`
}

// ExpectedRewards estimates what tokenID earns from every bribe it staked
// into for the epoch: weight / epochTotalWeight of each reward notified for
// that epoch. Priced legs are totalled in unit; unpriced legs are listed.
func ExpectedRewards(ctx context.Context, store RewardStore, graph *pricegraph.Graph, tokenID string, epochStart uint64, unit string) (*RewardsReport, error) {
	stakes, err := scanKind[model.BribeEpochVeStake](ctx, store, func(s *model.BribeEpochVeStake) bool {
		return s.TokenID == tokenID && s.EpochStart == epochStart && s.Weight.IsPositive()
	})
	if err != nil {
		return nil, err
	}

	report := &RewardsReport{
		TokenID:    tokenID,
		EpochStart: epochStart,
		Unit:       graph.Key(unit),
		TotalValue: decimal.Zero,
	}
	if len(stakes) == 0 {
		return report, nil
	}

	byBribe := make(map[string]decimal.Decimal, len(stakes))
	for _, s := range stakes {
		total, err := entity.Get[model.BribeEpochStake](ctx, store, s.EpochStake)
		if err != nil {
			return nil, err
		}
		if total == nil || !total.TotalWeight.IsPositive() {
			continue
		}
		byBribe[s.Bribe] = s.Weight.Div(total.TotalWeight)
	}

	rewards, err := scanKind[model.BribeEpochReward](ctx, store, func(r *model.BribeEpochReward) bool {
		_, staked := byBribe[r.Bribe]
		return staked && r.EpochStart == epochStart && r.Reward.IsPositive()
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*TokenTotal)
	unpriced := make(map[string]struct{})
	for _, r := range rewards {
		bribe, err := entity.Get[model.Bribe](ctx, store, r.Bribe)
		if err != nil {
			return nil, err
		}
		leg := RewardLeg{
			Bribe:  r.Bribe,
			Token:  r.Token,
			Share:  byBribe[r.Bribe],
			Amount: r.Reward.Mul(byBribe[r.Bribe]),
		}
		if bribe != nil {
			leg.Type = bribe.Type.String()
		}
		token, err := entity.Get[model.Token](ctx, store, r.Token)
		if err != nil {
			return nil, err
		}
		leg.Symbol = model.UnknownSymbol
		if token != nil {
			leg.Symbol = token.Symbol
		}

		key := graph.TokenKey(r.Token, leg.Symbol)
		if f, ok := graph.Resolve(key, unit); ok {
			leg.Priced = true
			leg.Value = leg.Amount.Mul(decimal.NewFromFloat(f))
			report.TotalValue = report.TotalValue.Add(leg.Value)
		} else {
			unpriced[key] = struct{}{}
		}
		report.Legs = append(report.Legs, leg)

		t, ok := totals[r.Token]
		if !ok {
			t = &TokenTotal{Token: r.Token, Symbol: leg.Symbol}
			totals[r.Token] = t
		}
		t.Amount = t.Amount.Add(leg.Amount)
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

// scanKind decodes every row of T's kind that keep accepts.
func scanKind[T any, P interface {
	*T
	model.Entity
}](ctx context.Context, s entity.Scanner, keep func(P) bool) ([]P, error) {
	kind := entity.KindOf[T, P]()
	var out []P
	err := s.Scan(ctx, kind, func(id string, data []byte) error {
		row := P(new(T))
		if err := entity.Decode(data, row); err != nil {
			return fmt.Errorf("%s %s: %w", kind, id, err)
		}
		if keep(row) {
			out = append(out, row)
		}
		return nil
	})
	return out, err
}
