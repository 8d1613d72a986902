package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCaller struct {
	t         *testing.T
	responses map[string]func(args []interface{}, block *big.Int) ([]byte, error)
	parsed    []abi.ABI
	calls     int
}

func newFakeCaller(t *testing.T, lazies ...*lazyABI) *fakeCaller {
	f := &fakeCaller{t: t, responses: make(map[string]func([]interface{}, *big.Int) ([]byte, error))}
	for _, l := range lazies {
		parsed, err := l.get()
		if err != nil {
			t.Fatalf("abi parse: %v", err)
		}
		f.parsed = append(f.parsed, parsed)
	}
	return f
}

func (f *fakeCaller) on(method string, fn func(args []interface{}, block *big.Int) ([]byte, error)) {
	f.responses[method] = fn
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.calls++
	for _, parsed := range f.parsed {
		method, err := parsed.MethodById(msg.Data[:4])
		if err != nil {
			continue
		}
		fn, ok := f.responses[method.Name]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			f.t.Fatalf("unpack args: %v", err)
		}
		return fn(args, block)
	}
	return nil, errors.New("unknown selector")
}

func packOutputs(t *testing.T, l *lazyABI, method string, values ...interface{}) []byte {
	t.Helper()
	parsed, err := l.get()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	out, err := parsed.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return out
}

func TestContractReaderTokenMetaFallbacks(t *testing.T) {
	caller := newFakeCaller(t, erc20StringABI)
	caller.on("symbol", func([]interface{}, *big.Int) ([]byte, error) {
		return packOutputs(t, erc20StringABI, "symbol", "LITH"), nil
	})
	reader := NewContractReader(caller, nil)

	meta := reader.TokenMeta(context.Background(), "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if meta.Symbol != "LITH" {
		t.Fatalf("symbol mismatch: %s", meta.Symbol)
	}
	if meta.Name != "UNKNOWN" || meta.Decimals != 18 {
		t.Fatalf("defaults not applied: %+v", meta)
	}

	calls := caller.calls
	_ = reader.TokenMeta(context.Background(), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if caller.calls != calls {
		t.Fatalf("expected cached metadata")
	}
}

func TestContractReaderRetriesLatest(t *testing.T) {
	caller := newFakeCaller(t, pairABI)
	caller.on("totalSupply", func(_ []interface{}, block *big.Int) ([]byte, error) {
		if block != nil {
			return nil, errors.New("missing trie node")
		}
		return packOutputs(t, pairABI, "totalSupply", big.NewInt(5000)), nil
	})
	reader := NewContractReader(caller, nil)

	supply, err := reader.TotalSupply(context.Background(), "0x1111111111111111111111111111111111111111", 100)
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply.Int64() != 5000 {
		t.Fatalf("supply mismatch: %s", supply)
	}
}

func TestContractReaderPoolVotes(t *testing.T) {
	poolA := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	poolB := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pools := []common.Address{poolA, poolB}
	weights := map[common.Address]int64{poolA: 30, poolB: 70}

	caller := newFakeCaller(t, voterABI)
	caller.on("poolVoteLength", func([]interface{}, *big.Int) ([]byte, error) {
		return packOutputs(t, voterABI, "poolVoteLength", big.NewInt(2)), nil
	})
	caller.on("poolVote", func(args []interface{}, _ *big.Int) ([]byte, error) {
		idx := args[1].(*big.Int).Int64()
		return packOutputs(t, voterABI, "poolVote", pools[idx]), nil
	})
	caller.on("votes", func(args []interface{}, _ *big.Int) ([]byte, error) {
		return packOutputs(t, voterABI, "votes", big.NewInt(weights[args[1].(common.Address)])), nil
	})
	reader := NewContractReader(caller, nil)

	votes, err := reader.PoolVotes(context.Background(), "0x9999999999999999999999999999999999999999", big.NewInt(7), 0)
	if err != nil {
		t.Fatalf("pool votes: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("expected 2 votes, got %d", len(votes))
	}
	if votes[0].Pool != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" || votes[0].Weight.IntPart() != 30 {
		t.Fatalf("vote 0 mismatch: %+v", votes[0])
	}
	if votes[1].Weight.IntPart() != 70 {
		t.Fatalf("vote 1 mismatch: %+v", votes[1])
	}
}

func TestContractReaderGaugeForPoolZero(t *testing.T) {
	caller := newFakeCaller(t, voterABI)
	caller.on("gauges", func([]interface{}, *big.Int) ([]byte, error) {
		return packOutputs(t, voterABI, "gauges", common.Address{}), nil
	})
	reader := NewContractReader(caller, nil)

	if _, err := reader.GaugeForPool(context.Background(), "0x9999999999999999999999999999999999999999", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 0); err == nil {
		t.Fatalf("expected error for unregistered pool")
	}
}

func TestContractReaderFeePolicy(t *testing.T) {
	caller := newFakeCaller(t, pairFactoryABI)
	caller.on("MAX_REFERRAL_FEE", func([]interface{}, *big.Int) ([]byte, error) {
		return packOutputs(t, pairFactoryABI, "MAX_REFERRAL_FEE", big.NewInt(1500)), nil
	})
	caller.on("stakingNFTFee", func([]interface{}, *big.Int) ([]byte, error) {
		return packOutputs(t, pairFactoryABI, "stakingNFTFee", big.NewInt(2500)), nil
	})
	reader := NewContractReader(caller, nil)

	ref, stake, err := reader.FeePolicy(context.Background(), "0x9999999999999999999999999999999999999999", 10)
	if err != nil {
		t.Fatalf("factory fees: %v", err)
	}
	if ref != 1500 || stake != 2500 {
		t.Fatalf("fees mismatch: %d %d", ref, stake)
	}
}

func TestContractReaderBribeClaimables(t *testing.T) {
	tokens := []common.Address{
		common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
	}
	earned := map[common.Address]int64{tokens[0]: 0, tokens[1]: 42}

	caller := newFakeCaller(t, bribeABI)
	caller.on("rewardsListLength", func([]interface{}, *big.Int) ([]byte, error) {
		return packOutputs(t, bribeABI, "rewardsListLength", big.NewInt(2)), nil
	})
	caller.on("rewardTokens", func(args []interface{}, _ *big.Int) ([]byte, error) {
		return packOutputs(t, bribeABI, "rewardTokens", tokens[args[0].(*big.Int).Int64()]), nil
	})
	caller.on("earned", func(args []interface{}, block *big.Int) ([]byte, error) {
		if block != nil {
			t.Fatalf("earned must read latest state, got block %s", block)
		}
		if args[0].(*big.Int).Int64() != 7 {
			t.Fatalf("token id mismatch: %v", args[0])
		}
		return packOutputs(t, bribeABI, "earned", big.NewInt(earned[args[1].(common.Address)])), nil
	})
	reader := NewContractReader(caller, nil)
	bribe := "0x9999999999999999999999999999999999999999"

	list, err := reader.BribeRewardTokens(context.Background(), bribe)
	if err != nil {
		t.Fatalf("reward tokens: %v", err)
	}
	if len(list) != 2 || list[1] != "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Fatalf("reward tokens mismatch: %v", list)
	}

	amount, err := reader.Earned(context.Background(), bribe, big.NewInt(7), list[1])
	if err != nil {
		t.Fatalf("earned: %v", err)
	}
	if amount.Int64() != 42 {
		t.Fatalf("earned mismatch: %s", amount)
	}
	if _, err := reader.Earned(context.Background(), bribe, big.NewInt(7), "nope"); err == nil {
		t.Fatalf("expected error for invalid token address")
	}
}
