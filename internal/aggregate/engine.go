package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

var (
	// ErrUnsupportedEvent is returned for events no handler is registered for.
	ErrUnsupportedEvent = errors.New("unsupported event")
	// ErrInvalidEvent marks events whose params cannot be parsed.
	ErrInvalidEvent = errors.New("invalid event")
)

// ChainReader is the set of contract reads the handlers depend on. Every
// read may fail; handlers fall back instead of aborting.
type ChainReader interface {
	TokenMeta(ctx context.Context, token string) model.TokenMeta
	TotalSupply(ctx context.Context, pair string, block uint64) (*big.Int, error)
	FeePolicy(ctx context.Context, factory string, block uint64) (referralBps, stakingBps uint64, err error)
	NextEpochStart(ctx context.Context, bribe string, block uint64) (uint64, error)
	PoolVotes(ctx context.Context, voter string, tokenID *big.Int, block uint64) ([]model.PoolVote, error)
	PoolWeight(ctx context.Context, voter, pool string, block uint64) (*big.Int, error)
	GaugeForPool(ctx context.Context, voter, pool string, block uint64) (string, error)
}

// Config controls engine behavior.
type Config struct {
	FactoryAddress string
	ReferralFeeBps uint64
	StakingFeeBps  uint64
	// USDTokens are priced at exactly 1 and anchor derived prices.
	USDTokens []string
}

type handlerFunc func(ctx context.Context, ev model.TypedEvent) error

// Engine folds typed events into analytics entities.
type Engine struct {
	cfg      Config
	store    entity.Store
	reader   ChainReader
	logger   *zap.Logger
	usd      map[string]struct{}
	handlers map[string]handlerFunc
}

// NewEngine wires an engine over store and reader.
func NewEngine(cfg Config, store entity.Store, reader ChainReader, logger *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("chain reader is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cfg:    cfg,
		store:  store,
		reader: reader,
		logger: logger,
		usd:    make(map[string]struct{}, len(cfg.USDTokens)),
	}
	for _, token := range cfg.USDTokens {
		e.usd[strings.ToLower(token)] = struct{}{}
	}

	e.handlers = map[string]handlerFunc{
		route(model.ContractPairFactory, "PairCreated"): e.handlePairCreated,

		route(model.ContractPair, "Sync"):     e.handleSync,
		route(model.ContractPair, "Mint"):     e.handleMint,
		route(model.ContractPair, "Burn"):     e.handleBurn,
		route(model.ContractPair, "Swap"):     e.handleSwap,
		route(model.ContractPair, "Fees"):     e.handleFees,
		route(model.ContractPair, "Transfer"): e.handleTransfer,
		route(model.ContractPair, "Claim"):    e.handleClaim,

		route(model.ContractVoter, "GaugeCreated"): e.handleGaugeCreated,
		route(model.ContractVoter, "Voted"):        e.handleVote,
		route(model.ContractVoter, "Abstained"):    e.handleVote,

		route(model.ContractGauge, "Deposit"):     e.handleGaugeDeposit,
		route(model.ContractGauge, "Withdraw"):    e.handleGaugeWithdraw,
		route(model.ContractGauge, "Harvest"):     e.handleGaugeHarvest,
		route(model.ContractGauge, "RewardAdded"): e.handleGaugeRewardAdded,
		route(model.ContractGauge, "ClaimFees"):   e.handleGaugeClaimFees,

		route(model.ContractGauge, "EmergencyActivated"):   e.handleGaugeEmergencyActivated,
		route(model.ContractGauge, "EmergencyDeactivated"): e.handleGaugeEmergencyDeactivated,

		route(model.ContractBribe, "Staked"):      e.handleBribeStaked,
		route(model.ContractBribe, "Withdrawn"):   e.handleBribeWithdrawn,
		route(model.ContractBribe, "RewardAdded"): e.handleBribeRewardAdded,
		route(model.ContractBribe, "RewardPaid"):  e.handleBribeRewardPaid,
		route(model.ContractBribe, "SetOwner"):    e.handleBribeSetOwner,

		route(model.ContractVotingEscrow, "Deposit"):  e.handleEscrowDeposit,
		route(model.ContractVotingEscrow, "Withdraw"): e.handleEscrowWithdraw,
		route(model.ContractVotingEscrow, "Supply"):   e.handleEscrowSupply,
		route(model.ContractVotingEscrow, "Transfer"): e.handleEscrowTransfer,

		route(model.ContractVotingEscrow, "DelegateChanged"):      e.handleEscrowDelegateChanged,
		route(model.ContractVotingEscrow, "DelegateVotesChanged"): e.handleEscrowDelegateVotesChanged,
	}
	return e, nil
}

func route(kind model.ContractKind, event string) string {
	return string(kind) + "." + event
}

// Init creates the factory singleton with the configured fee policy. It
// never overwrites an existing row.
func (e *Engine) Init(ctx context.Context) error {
	ref, stake := e.cfg.ReferralFeeBps, e.cfg.StakingFeeBps
	if ref == 0 && stake == 0 {
		ref, stake = model.DefaultReferralFeeBps, model.DefaultStakingFeeBps
	}
	created, err := e.store.EnsureExists(ctx, model.NewFactory(strings.ToLower(e.cfg.FactoryAddress), ref, stake))
	if err != nil {
		return fmt.Errorf("init factory: %w", err)
	}
	if created {
		e.logger.Info("factory initialized",
			zap.Uint64("referral_fee_bps", ref),
			zap.Uint64("staking_fee_bps", stake),
		)
	}
	return nil
}

// Supports reports whether a handler exists for the event's route.
func (e *Engine) Supports(ev model.TypedEvent) bool {
	_, ok := e.handlers[ev.Route()]
	return ok
}

// Handle applies one event.
func (e *Engine) Handle(ctx context.Context, ev model.TypedEvent) error {
	h, ok := e.handlers[ev.Route()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, ev.Route())
	}
	if err := h(ctx, ev); err != nil {
		return fmt.Errorf("%s %s: %w", ev.Route(), ev.ID(), err)
	}
	return nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
}

// batchUpserter is implemented by stores that can write several rows in
// one round trip.
type batchUpserter interface {
	UpsertBatch(ctx context.Context, entities []model.Entity) error
}

// upsert writes entities in order and stops at the first failure.
func (e *Engine) upsert(ctx context.Context, entities ...model.Entity) error {
	if b, ok := e.store.(batchUpserter); ok && len(entities) > 1 {
		return b.UpsertBatch(ctx, entities)
	}
	for _, ent := range entities {
		if ent == nil {
			continue
		}
		if err := e.store.Upsert(ctx, ent); err != nil {
			return err
		}
	}
	return nil
}

// clampSub returns a-b floored at zero.
func (e *Engine) clampSub(a, b decimal.Decimal, what, id string) decimal.Decimal {
	out := a.Sub(b)
	if out.IsNegative() {
		e.logger.Debug("negative balance clamped",
			zap.String("field", what),
			zap.String("id", id),
			zap.String("current", a.String()),
			zap.String("delta", b.String()),
		)
		return decimal.Zero
	}
	return out
}

func (e *Engine) factory(ctx context.Context) (*model.Factory, error) {
	return entity.MustGet[model.Factory](ctx, e.store, model.FactoryID)
}
