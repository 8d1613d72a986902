package model

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Params are the decoded event arguments keyed by ABI name.
type Params map[string]string

func (p Params) raw(key string) (string, error) {
	val, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing param %q", key)
	}
	return val, nil
}

// Address returns the lowercase hex address stored under key.
func (p Params) Address(key string) (string, error) {
	val, err := p.raw(key)
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(val) {
		return "", fmt.Errorf("param %q: invalid address %q", key, val)
	}
	return strings.ToLower(common.HexToAddress(val).Hex()), nil
}

// BigInt parses a base-10 integer param.
func (p Params) BigInt(key string) (*big.Int, error) {
	val, err := p.raw(key)
	if err != nil {
		return nil, err
	}
	out, ok := new(big.Int).SetString(val, 10)
	if !ok {
		return nil, fmt.Errorf("param %q: invalid integer %q", key, val)
	}
	return out, nil
}

// Uint64 parses an integer param that must fit in 64 bits.
func (p Params) Uint64(key string) (uint64, error) {
	val, err := p.BigInt(key)
	if err != nil {
		return 0, err
	}
	if val.Sign() < 0 || !val.IsUint64() {
		return 0, fmt.Errorf("param %q: %s out of uint64 range", key, val)
	}
	return val.Uint64(), nil
}

// Bool parses a boolean param.
func (p Params) Bool(key string) (bool, error) {
	val, err := p.raw(key)
	if err != nil {
		return false, err
	}
	out, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("param %q: %w", key, err)
	}
	return out, nil
}
