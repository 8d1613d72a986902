package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"lithosScope/internal/model"
)

const pairABIJSON = `[
  {"anonymous": false, "name": "Mint", "type": "event", "inputs": [
    {"indexed": true, "name": "sender", "type": "address"},
    {"indexed": false, "name": "amount0", "type": "uint256"},
    {"indexed": false, "name": "amount1", "type": "uint256"}]},
  {"anonymous": false, "name": "Burn", "type": "event", "inputs": [
    {"indexed": true, "name": "sender", "type": "address"},
    {"indexed": false, "name": "amount0", "type": "uint256"},
    {"indexed": false, "name": "amount1", "type": "uint256"},
    {"indexed": true, "name": "to", "type": "address"}]},
  {"anonymous": false, "name": "Swap", "type": "event", "inputs": [
    {"indexed": true, "name": "sender", "type": "address"},
    {"indexed": false, "name": "amount0In", "type": "uint256"},
    {"indexed": false, "name": "amount1In", "type": "uint256"},
    {"indexed": false, "name": "amount0Out", "type": "uint256"},
    {"indexed": false, "name": "amount1Out", "type": "uint256"},
    {"indexed": true, "name": "to", "type": "address"}]},
  {"anonymous": false, "name": "Sync", "type": "event", "inputs": [
    {"indexed": false, "name": "reserve0", "type": "uint256"},
    {"indexed": false, "name": "reserve1", "type": "uint256"}]},
  {"anonymous": false, "name": "Fees", "type": "event", "inputs": [
    {"indexed": true, "name": "sender", "type": "address"},
    {"indexed": false, "name": "amount0", "type": "uint256"},
    {"indexed": false, "name": "amount1", "type": "uint256"}]},
  {"anonymous": false, "name": "Claim", "type": "event", "inputs": [
    {"indexed": true, "name": "sender", "type": "address"},
    {"indexed": true, "name": "recipient", "type": "address"},
    {"indexed": false, "name": "amount0", "type": "uint256"},
    {"indexed": false, "name": "amount1", "type": "uint256"}]},
  {"anonymous": false, "name": "Transfer", "type": "event", "inputs": [
    {"indexed": true, "name": "from", "type": "address"},
    {"indexed": true, "name": "to", "type": "address"},
    {"indexed": false, "name": "amount", "type": "uint256"}]},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const pairFactoryABIJSON = `[
  {"anonymous": false, "name": "PairCreated", "type": "event", "inputs": [
    {"indexed": true, "name": "token0", "type": "address"},
    {"indexed": true, "name": "token1", "type": "address"},
    {"indexed": false, "name": "stable", "type": "bool"},
    {"indexed": false, "name": "pair", "type": "address"},
    {"indexed": false, "name": "index", "type": "uint256"}]},
  {"inputs": [], "name": "MAX_REFERRAL_FEE", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "stakingNFTFee", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const voterABIJSON = `[
  {"anonymous": false, "name": "GaugeCreated", "type": "event", "inputs": [
    {"indexed": true, "name": "gauge", "type": "address"},
    {"indexed": false, "name": "creator", "type": "address"},
    {"indexed": false, "name": "internal_bribe", "type": "address"},
    {"indexed": true, "name": "external_bribe", "type": "address"},
    {"indexed": true, "name": "pool", "type": "address"}]},
  {"anonymous": false, "name": "Voted", "type": "event", "inputs": [
    {"indexed": true, "name": "voter", "type": "address"},
    {"indexed": false, "name": "tokenId", "type": "uint256"},
    {"indexed": false, "name": "weight", "type": "uint256"}]},
  {"anonymous": false, "name": "Abstained", "type": "event", "inputs": [
    {"indexed": false, "name": "tokenId", "type": "uint256"},
    {"indexed": false, "name": "weight", "type": "uint256"}]},
  {"inputs": [{"name": "tokenId", "type": "uint256"}], "name": "poolVoteLength", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "tokenId", "type": "uint256"}, {"name": "index", "type": "uint256"}], "name": "poolVote", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "tokenId", "type": "uint256"}, {"name": "pool", "type": "address"}], "name": "votes", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "pool", "type": "address"}], "name": "weights", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "pool", "type": "address"}], "name": "gauges", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

const gaugeABIJSON = `[
  {"anonymous": false, "name": "Deposit", "type": "event", "inputs": [
    {"indexed": true, "name": "user", "type": "address"},
    {"indexed": false, "name": "amount", "type": "uint256"}]},
  {"anonymous": false, "name": "Withdraw", "type": "event", "inputs": [
    {"indexed": true, "name": "user", "type": "address"},
    {"indexed": false, "name": "amount", "type": "uint256"}]},
  {"anonymous": false, "name": "Harvest", "type": "event", "inputs": [
    {"indexed": true, "name": "user", "type": "address"},
    {"indexed": false, "name": "reward", "type": "uint256"}]},
  {"anonymous": false, "name": "RewardAdded", "type": "event", "inputs": [
    {"indexed": false, "name": "reward", "type": "uint256"}]},
  {"anonymous": false, "name": "ClaimFees", "type": "event", "inputs": [
    {"indexed": true, "name": "from", "type": "address"},
    {"indexed": false, "name": "claimed0", "type": "uint256"},
    {"indexed": false, "name": "claimed1", "type": "uint256"}]},
  {"anonymous": false, "name": "EmergencyActivated", "type": "event", "inputs": [
    {"indexed": true, "name": "gauge", "type": "address"},
    {"indexed": false, "name": "timestamp", "type": "uint256"}]},
  {"anonymous": false, "name": "EmergencyDeactivated", "type": "event", "inputs": [
    {"indexed": true, "name": "gauge", "type": "address"},
    {"indexed": false, "name": "timestamp", "type": "uint256"}]}
]`

const bribeABIJSON = `[
  {"anonymous": false, "name": "RewardAdded", "type": "event", "inputs": [
    {"indexed": true, "name": "rewardToken", "type": "address"},
    {"indexed": false, "name": "reward", "type": "uint256"},
    {"indexed": false, "name": "startTimestamp", "type": "uint256"}]},
  {"anonymous": false, "name": "Staked", "type": "event", "inputs": [
    {"indexed": true, "name": "tokenId", "type": "uint256"},
    {"indexed": false, "name": "amount", "type": "uint256"}]},
  {"anonymous": false, "name": "Withdrawn", "type": "event", "inputs": [
    {"indexed": true, "name": "tokenId", "type": "uint256"},
    {"indexed": false, "name": "amount", "type": "uint256"}]},
  {"anonymous": false, "name": "RewardPaid", "type": "event", "inputs": [
    {"indexed": true, "name": "user", "type": "address"},
    {"indexed": true, "name": "rewardsToken", "type": "address"},
    {"indexed": false, "name": "reward", "type": "uint256"}]},
  {"anonymous": false, "name": "SetOwner", "type": "event", "inputs": [
    {"indexed": true, "name": "_owner", "type": "address"}]},
  {"inputs": [], "name": "getNextEpochStart", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "rewardsListLength", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "index", "type": "uint256"}], "name": "rewardTokens", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "tokenId", "type": "uint256"}, {"name": "_rewardToken", "type": "address"}], "name": "earned", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const votingEscrowABIJSON = `[
  {"anonymous": false, "name": "Deposit", "type": "event", "inputs": [
    {"indexed": true, "name": "provider", "type": "address"},
    {"indexed": false, "name": "tokenId", "type": "uint256"},
    {"indexed": false, "name": "value", "type": "uint256"},
    {"indexed": true, "name": "locktime", "type": "uint256"},
    {"indexed": false, "name": "deposit_type", "type": "uint8"},
    {"indexed": false, "name": "ts", "type": "uint256"}]},
  {"anonymous": false, "name": "Withdraw", "type": "event", "inputs": [
    {"indexed": true, "name": "provider", "type": "address"},
    {"indexed": false, "name": "tokenId", "type": "uint256"},
    {"indexed": false, "name": "value", "type": "uint256"},
    {"indexed": false, "name": "ts", "type": "uint256"}]},
  {"anonymous": false, "name": "Supply", "type": "event", "inputs": [
    {"indexed": false, "name": "prevSupply", "type": "uint256"},
    {"indexed": false, "name": "supply", "type": "uint256"}]},
  {"anonymous": false, "name": "Transfer", "type": "event", "inputs": [
    {"indexed": true, "name": "from", "type": "address"},
    {"indexed": true, "name": "to", "type": "address"},
    {"indexed": true, "name": "tokenId", "type": "uint256"}]},
  {"anonymous": false, "name": "DelegateChanged", "type": "event", "inputs": [
    {"indexed": true, "name": "delegator", "type": "address"},
    {"indexed": true, "name": "fromDelegate", "type": "address"},
    {"indexed": true, "name": "toDelegate", "type": "address"}]},
  {"anonymous": false, "name": "DelegateVotesChanged", "type": "event", "inputs": [
    {"indexed": true, "name": "delegate", "type": "address"},
    {"indexed": false, "name": "previousVotes", "type": "uint256"},
    {"indexed": false, "name": "newVotes", "type": "uint256"}]}
]`

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

// lazyABI parses its JSON once on first use.
type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	pairABI         = &lazyABI{json: pairABIJSON}
	pairFactoryABI  = &lazyABI{json: pairFactoryABIJSON}
	voterABI        = &lazyABI{json: voterABIJSON}
	gaugeABI        = &lazyABI{json: gaugeABIJSON}
	bribeABI        = &lazyABI{json: bribeABIJSON}
	votingEscrowABI = &lazyABI{json: votingEscrowABIJSON}
	erc20StringABI  = &lazyABI{json: erc20ABIStringJSON}
	erc20Bytes32ABI = &lazyABI{json: erc20ABIBytes32JSON}
)

var contractABIs = map[model.ContractKind]*lazyABI{
	model.ContractPair:         pairABI,
	model.ContractPairFactory:  pairFactoryABI,
	model.ContractVoter:        voterABI,
	model.ContractGauge:        gaugeABI,
	model.ContractBribe:        bribeABI,
	model.ContractVotingEscrow: votingEscrowABI,
}

// ContractABI returns the parsed ABI of a protocol contract kind.
func ContractABI(kind model.ContractKind) (abi.ABI, error) {
	l, ok := contractABIs[kind]
	if !ok {
		return abi.ABI{}, errUnknownKind(kind)
	}
	return l.get()
}
