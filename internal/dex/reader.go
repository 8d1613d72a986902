package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lithosScope/internal/model"
)

// Caller executes read-only contract calls. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
}

// TokenMetaCache caches token metadata by lowercase address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[string]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[string]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address string) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[strings.ToLower(address)]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address string, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[strings.ToLower(address)] = meta
	c.mu.Unlock()
}

// ContractReader performs the protocol view calls the aggregation engine
// needs. Reads pinned to a block retry against latest state when the node
// has pruned it.
type ContractReader struct {
	caller Caller
	tokens *TokenMetaCache
	logger *zap.Logger
}

// NewContractReader builds a reader over caller.
func NewContractReader(caller Caller, logger *zap.Logger) *ContractReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContractReader{caller: caller, tokens: NewTokenMetaCache(), logger: logger}
}

func (r *ContractReader) call(ctx context.Context, target string, lazy *lazyABI, block uint64, method string, args ...interface{}) ([]interface{}, error) {
	if r.caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	if !common.IsHexAddress(target) {
		return nil, fmt.Errorf("invalid address %q", target)
	}
	parsed, err := lazy.get()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, common.HexToAddress(target), parsed, method, blockArg(block), args...)
	if err == nil || block == 0 {
		return values, err
	}
	r.logger.Debug("call at block failed, retrying latest",
		zap.String("address", target),
		zap.String("method", method),
		zap.Uint64("block", block),
		zap.Error(err),
	)
	return callMethod(ctx, r.caller, common.HexToAddress(target), parsed, method, nil, args...)
}

func callMethod(ctx context.Context, caller Caller, target common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func blockArg(block uint64) *big.Int {
	if block == 0 {
		return nil
	}
	return new(big.Int).SetUint64(block)
}

func (r *ContractReader) callUint(ctx context.Context, target string, lazy *lazyABI, block uint64, method string, args ...interface{}) (*big.Int, error) {
	values, err := r.call(ctx, target, lazy, block, method, args...)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func (r *ContractReader) callAddress(ctx context.Context, target string, lazy *lazyABI, block uint64, method string, args ...interface{}) (string, error) {
	values, err := r.call(ctx, target, lazy, block, method, args...)
	if err != nil {
		return "", err
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Hex()), nil
}

// TokenMeta loads ERC20 metadata. Failed reads fall back to the registry
// defaults so the result is always usable.
func (r *ContractReader) TokenMeta(ctx context.Context, token string) model.TokenMeta {
	if meta, ok := r.tokens.Get(token); ok {
		return meta
	}

	meta := model.TokenMeta{Address: strings.ToLower(token), Decimals: model.DefaultDecimals}
	if values, err := r.call(ctx, token, erc20StringABI, 0, "decimals"); err == nil {
		if decimals, err := asUint8(values[0]); err == nil {
			meta.Decimals = decimals
		}
	} else {
		r.logger.Debug("decimals call failed", zap.String("token", token), zap.Error(err))
	}
	meta.Symbol = r.tokenText(ctx, token, "symbol")
	meta.Name = r.tokenText(ctx, token, "name")

	meta = meta.WithDefaults()
	r.tokens.Set(token, meta)
	return meta
}

func (r *ContractReader) tokenText(ctx context.Context, token, method string) string {
	if values, err := r.call(ctx, token, erc20StringABI, 0, method); err == nil {
		if text, ok := values[0].(string); ok {
			return text
		}
	}
	values, err := r.call(ctx, token, erc20Bytes32ABI, 0, method)
	if err != nil {
		r.logger.Debug(method+" call failed", zap.String("token", token), zap.Error(err))
		return ""
	}
	text, _ := bytes32ToString(values[0])
	return text
}

// TotalSupply reads a pair's LP token supply.
func (r *ContractReader) TotalSupply(ctx context.Context, pair string, block uint64) (*big.Int, error) {
	return r.callUint(ctx, pair, pairABI, block, "totalSupply")
}

// FeePolicy reads the referral and staking fee shares in basis points.
func (r *ContractReader) FeePolicy(ctx context.Context, factory string, block uint64) (referralBps, stakingBps uint64, err error) {
	ref, err := r.callUint(ctx, factory, pairFactoryABI, block, "MAX_REFERRAL_FEE")
	if err != nil {
		return 0, 0, err
	}
	stake, err := r.callUint(ctx, factory, pairFactoryABI, block, "stakingNFTFee")
	if err != nil {
		return 0, 0, err
	}
	if !ref.IsUint64() || !stake.IsUint64() {
		return 0, 0, fmt.Errorf("fee out of range: referral %s staking %s", ref, stake)
	}
	return ref.Uint64(), stake.Uint64(), nil
}

// NextEpochStart reads the start of the epoch a bribe credits new stakes to.
func (r *ContractReader) NextEpochStart(ctx context.Context, bribe string, block uint64) (uint64, error) {
	next, err := r.callUint(ctx, bribe, bribeABI, block, "getNextEpochStart")
	if err != nil {
		return 0, err
	}
	if !next.IsUint64() {
		return 0, fmt.Errorf("epoch start out of range: %s", next)
	}
	return next.Uint64(), nil
}

// PoolVotes reads the pools a veNFT currently votes for and the weight on
// each, in the order the voter contract stores them.
func (r *ContractReader) PoolVotes(ctx context.Context, voter string, tokenID *big.Int, block uint64) ([]model.PoolVote, error) {
	length, err := r.callUint(ctx, voter, voterABI, block, "poolVoteLength", tokenID)
	if err != nil {
		return nil, err
	}
	if !length.IsUint64() {
		return nil, fmt.Errorf("pool vote length out of range: %s", length)
	}

	out := make([]model.PoolVote, 0, length.Uint64())
	for i := uint64(0); i < length.Uint64(); i++ {
		pool, err := r.callAddress(ctx, voter, voterABI, block, "poolVote", tokenID, new(big.Int).SetUint64(i))
		if err != nil {
			return nil, fmt.Errorf("pool vote %d: %w", i, err)
		}
		weight, err := r.callUint(ctx, voter, voterABI, block, "votes", tokenID, common.HexToAddress(pool))
		if err != nil {
			return nil, fmt.Errorf("votes %s: %w", pool, err)
		}
		out = append(out, model.PoolVote{Pool: pool, Weight: decimal.NewFromBigInt(weight, 0)})
	}
	return out, nil
}

// PoolWeight reads the total vote weight on a pool.
func (r *ContractReader) PoolWeight(ctx context.Context, voter, pool string, block uint64) (*big.Int, error) {
	return r.callUint(ctx, voter, voterABI, block, "weights", common.HexToAddress(pool))
}

// GaugeForPool reads the gauge registered for a pool. The zero address is
// reported as an error.
func (r *ContractReader) GaugeForPool(ctx context.Context, voter, pool string, block uint64) (string, error) {
	gauge, err := r.callAddress(ctx, voter, voterABI, block, "gauges", common.HexToAddress(pool))
	if err != nil {
		return "", err
	}
	if common.HexToAddress(gauge) == (common.Address{}) {
		return "", fmt.Errorf("no gauge for pool %s", pool)
	}
	return gauge, nil
}

// BribeRewardTokens lists the reward tokens registered on a bribe at
// latest state.
func (r *ContractReader) BribeRewardTokens(ctx context.Context, bribe string) ([]string, error) {
	length, err := r.callUint(ctx, bribe, bribeABI, 0, "rewardsListLength")
	if err != nil {
		return nil, err
	}
	if !length.IsUint64() {
		return nil, fmt.Errorf("rewards list length out of range: %s", length)
	}
	out := make([]string, 0, length.Uint64())
	for i := uint64(0); i < length.Uint64(); i++ {
		token, err := r.callAddress(ctx, bribe, bribeABI, 0, "rewardTokens", new(big.Int).SetUint64(i))
		if err != nil {
			return nil, fmt.Errorf("reward token %d: %w", i, err)
		}
		out = append(out, token)
	}
	return out, nil
}

// Earned reads what a veNFT can claim now from a bribe in one token.
func (r *ContractReader) Earned(ctx context.Context, bribe string, tokenID *big.Int, token string) (*big.Int, error) {
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("invalid address %q", token)
	}
	return r.callUint(ctx, bribe, bribeABI, 0, "earned", tokenID, common.HexToAddress(token))
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
