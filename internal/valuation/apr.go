// Package valuation prices aggregated state into reports: gauge APR and a
// veNFT's expected bribe rewards. Prices come from a pricegraph.Graph;
// anything the graph cannot reach is reported as unpriced instead of
// failing the report.
package valuation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lithosScope/internal/entity"
	"lithosScope/internal/epoch"
	"lithosScope/internal/model"
	"lithosScope/internal/pricegraph"
)

// SecondsPerYear is the annualization factor for reward rates.
const SecondsPerYear = 31_536_000

// UnablePrice marks a report whose value legs could not be priced.
const UnablePrice = "unable to price"

var hundred = decimal.NewFromInt(100)

// APRRequest selects a gauge and the units to express its APR in.
type APRRequest struct {
	Gauge string
	// Unit is the graph key values are expressed in, e.g. "USDT".
	Unit string
	// RewardKey is the graph key of the emitted token, e.g. "LITH".
	RewardKey string
	// RewardRate overrides the per-second emission in reward tokens. When
	// zero it is taken from the gauge's rewards in Epoch.
	RewardRate decimal.Decimal
	// Epoch selects the reward bucket; zero means the epoch of Now.
	Epoch uint64
	Now   uint64
}

// APRReport is the gauge APR in percent plus its inputs.
type APRReport struct {
	Gauge          string          `json:"gauge"`
	Pair           string          `json:"pair"`
	Unit           string          `json:"unit"`
	EpochStart     uint64          `json:"epoch_start"`
	RewardRate     decimal.Decimal `json:"reward_rate"`
	StakedLP       decimal.Decimal `json:"staked_lp"`
	LPPrice        decimal.Decimal `json:"lp_price"`
	StakedValue    decimal.Decimal `json:"staked_value"`
	RewardsPerYear decimal.Decimal `json:"rewards_per_year"`
	APR            decimal.Decimal `json:"apr_percent"`
	Unpriced       []string        `json:"unpriced,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

// GaugeAPR computes
//
//	stakedValue = stakedLP / totalSupply * reserveValue
//	APR = rewardRate * SecondsPerYear * rewardPrice / stakedValue * 100
//
// A leg the graph cannot price yields a report with Reason UnablePrice.
func GaugeAPR(ctx context.Context, store entity.Store, graph *pricegraph.Graph, req APRRequest) (*APRReport, error) {
	gauge, err := entity.MustGet[model.Gauge](ctx, store, req.Gauge)
	if err != nil {
		return nil, err
	}
	pair, err := entity.MustGet[model.Pair](ctx, store, gauge.Pool)
	if err != nil {
		return nil, fmt.Errorf("gauge %s pool: %w", gauge.Address, err)
	}

	start := req.Epoch
	if start == 0 {
		start = epoch.Start(req.Now)
	}
	report := &APRReport{
		Gauge:      gauge.Address,
		Pair:       pair.Address,
		Unit:       graph.Key(req.Unit),
		EpochStart: start,
		StakedLP:   gauge.TotalStaked,
		RewardRate: req.RewardRate,
		APR:        decimal.Zero,
	}
	if report.RewardRate.IsZero() {
		rate, err := epochRewardRate(ctx, store, gauge.Address, start)
		if err != nil {
			return nil, err
		}
		report.RewardRate = rate
	}

	lpPrice, missing, err := lpValue(ctx, store, graph, pair, req.Unit)
	if err != nil {
		return nil, err
	}
	rewardPrice, ok := graph.Resolve(req.RewardKey, req.Unit)
	if !ok {
		missing = append(missing, graph.Key(req.RewardKey))
	}
	if len(missing) > 0 {
		report.Unpriced = missing
		report.Reason = UnablePrice
		return report, nil
	}

	report.LPPrice = lpPrice
	report.StakedValue = gauge.TotalStaked.Mul(lpPrice)
	report.RewardsPerYear = report.RewardRate.
		Mul(decimal.NewFromInt(SecondsPerYear)).
		Mul(decimal.NewFromFloat(rewardPrice))
	if report.StakedValue.IsPositive() {
		report.APR = report.RewardsPerYear.Div(report.StakedValue).Mul(hundred)
	}
	return report, nil
}

// epochRewardRate spreads the gauge's epoch rewards over the week.
func epochRewardRate(ctx context.Context, store entity.Store, gauge string, start uint64) (decimal.Decimal, error) {
	bucket, err := entity.Get[model.EpochBucket](ctx, store, model.EpochBucketID(model.SubjectGauge, gauge, start))
	if err != nil {
		return decimal.Zero, err
	}
	if bucket == nil {
		return decimal.Zero, nil
	}
	return bucket.Rewards.Div(decimal.NewFromInt(int64(epoch.Week))), nil
}

// lpValue prices one LP token of pair in unit. When only one side is in the
// graph, the other is priced through the pair's own reserve ratio.
func lpValue(ctx context.Context, store entity.Store, graph *pricegraph.Graph, pair *model.Pair, unit string) (decimal.Decimal, []string, error) {
	if !pair.TotalSupply.IsPositive() {
		return decimal.Zero, []string{pair.Address}, nil
	}
	key0, err := tokenKey(ctx, store, graph, pair.Token0)
	if err != nil {
		return decimal.Zero, nil, err
	}
	key1, err := tokenKey(ctx, store, graph, pair.Token1)
	if err != nil {
		return decimal.Zero, nil, err
	}

	p0, ok0 := price(graph, key0, unit)
	p1, ok1 := price(graph, key1, unit)
	bothReserves := pair.Reserve0.IsPositive() && pair.Reserve1.IsPositive()
	if !ok0 && ok1 && bothReserves {
		p0, ok0 = pair.Reserve1.Div(pair.Reserve0).Mul(p1), true
	}
	if !ok1 && ok0 && bothReserves {
		p1, ok1 = pair.Reserve0.Div(pair.Reserve1).Mul(p0), true
	}

	var missing []string
	if !ok0 {
		missing = append(missing, key0)
	}
	if !ok1 {
		missing = append(missing, key1)
	}
	if len(missing) > 0 {
		return decimal.Zero, missing, nil
	}

	reserveValue := pair.Reserve0.Mul(p0).Add(pair.Reserve1.Mul(p1))
	return reserveValue.Div(pair.TotalSupply), nil, nil
}

func price(graph *pricegraph.Graph, key, unit string) (decimal.Decimal, bool) {
	f, ok := graph.Resolve(key, unit)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// tokenKey resolves a token address to its graph key using the address
// alias table first and the stored symbol second.
func tokenKey(ctx context.Context, store entity.Store, graph *pricegraph.Graph, address string) (string, error) {
	token, err := entity.Get[model.Token](ctx, store, address)
	if err != nil {
		return "", err
	}
	symbol := model.UnknownSymbol
	if token != nil {
		symbol = token.Symbol
	}
	return graph.TokenKey(address, symbol), nil
}
