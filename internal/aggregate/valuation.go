package aggregate

import "github.com/shopspring/decimal"

var two = decimal.NewFromInt(2)

// TrackedVolumeUSD values a two-sided amount with whatever prices are
// known: the average of both legs, the single priced leg, or zero. A nil
// price means unknown.
func TrackedVolumeUSD(amount0 decimal.Decimal, price0 *decimal.Decimal, amount1 decimal.Decimal, price1 *decimal.Decimal) decimal.Decimal {
	switch {
	case price0 != nil && price1 != nil:
		return amount0.Mul(*price0).Add(amount1.Mul(*price1)).Div(two)
	case price0 != nil:
		return amount0.Mul(*price0)
	case price1 != nil:
		return amount1.Mul(*price1)
	default:
		return decimal.Zero
	}
}

// TrackedLiquidityUSD values pool reserves: the sum of both legs, twice the
// single priced leg, or zero.
func TrackedLiquidityUSD(reserve0 decimal.Decimal, price0 *decimal.Decimal, reserve1 decimal.Decimal, price1 *decimal.Decimal) decimal.Decimal {
	switch {
	case price0 != nil && price1 != nil:
		return reserve0.Mul(*price0).Add(reserve1.Mul(*price1))
	case price0 != nil:
		return reserve0.Mul(*price0).Mul(two)
	case price1 != nil:
		return reserve1.Mul(*price1).Mul(two)
	default:
		return decimal.Zero
	}
}
