package aggregate

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"lithosScope/internal/model"
)

// lpDecimals is the precision of pair LP tokens, gauge stakes and escrow
// locks.
const lpDecimals = 18

// toDecimal scales a raw integer amount by its token decimals.
func toDecimal(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}

// rawDecimal keeps an integer amount unscaled.
func rawDecimal(value *big.Int) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, 0)
}

func isZeroAddress(addr string) bool {
	return addr == "" || addr == zeroAddress
}

const zeroAddress = "0x0000000000000000000000000000000000000000"

// paramReader reads several params and remembers the first failure.
type paramReader struct {
	params model.Params
	err    error
}

func (b *paramReader) bigInt(key string) *big.Int {
	if b.err != nil {
		return nil
	}
	v, err := b.params.BigInt(key)
	if err != nil {
		b.err = err
		return nil
	}
	return v
}

func (b *paramReader) address(key string) string {
	if b.err != nil {
		return ""
	}
	v, err := b.params.Address(key)
	if err != nil {
		b.err = err
		return ""
	}
	return v
}

func errOutOfRange(key string, v *big.Int) error {
	return fmt.Errorf("param %q: %s out of range", key, v)
}
