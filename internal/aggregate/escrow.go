package aggregate

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

func (e *Engine) votingEscrow(ctx context.Context, address string) (*model.VotingEscrow, error) {
	ve, _, err := entity.GetOrCreate[model.VotingEscrow](ctx, e.store, address, func() *model.VotingEscrow {
		return &model.VotingEscrow{Address: address}
	})
	return ve, err
}

// veNFT loads a lock, creating it and counting it on the escrow when new.
func (e *Engine) veNFT(ctx context.Context, escrow *model.VotingEscrow, tokenID *big.Int, owner string) (*model.VeNFT, error) {
	id := tokenID.String()
	nft, created, err := entity.GetOrCreate[model.VeNFT](ctx, e.store, id, func() *model.VeNFT {
		return &model.VeNFT{TokenID: id, Escrow: escrow.Address, Owner: owner, Active: true}
	})
	if err != nil {
		return nil, err
	}
	if created {
		escrow.TotalNFTs++
	}
	return nft, nil
}

func (e *Engine) handleEscrowDeposit(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	provider := p.address("provider")
	tokenID := p.bigInt("tokenId")
	raw := p.bigInt("value")
	locktime := p.bigInt("locktime")
	if p.err != nil {
		return invalid(p.err)
	}

	escrow, err := e.votingEscrow(ctx, ev.Contract())
	if err != nil {
		return err
	}
	nft, err := e.veNFT(ctx, escrow, tokenID, provider)
	if err != nil {
		return err
	}

	value := toDecimal(raw, lpDecimals)
	nft.Value = nft.Value.Add(value)
	nft.Active = true
	if locktime.Sign() > 0 && locktime.IsUint64() {
		nft.LockEnd = locktime.Uint64()
	}
	escrow.TotalLocked = escrow.TotalLocked.Add(value)
	nft.Touch(ev.BlockNumber, ev.Timestamp)
	escrow.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, nft, escrow)
}

func (e *Engine) handleEscrowWithdraw(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	provider := p.address("provider")
	tokenID := p.bigInt("tokenId")
	raw := p.bigInt("value")
	if p.err != nil {
		return invalid(p.err)
	}

	escrow, err := e.votingEscrow(ctx, ev.Contract())
	if err != nil {
		return err
	}
	nft, err := e.veNFT(ctx, escrow, tokenID, provider)
	if err != nil {
		return err
	}

	value := toDecimal(raw, lpDecimals)
	nft.Value = decimal.Zero
	nft.Active = false
	nft.LockEnd = 0
	escrow.TotalLocked = e.clampSub(escrow.TotalLocked, value, "escrow_total_locked", escrow.Address)
	nft.Touch(ev.BlockNumber, ev.Timestamp)
	escrow.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, nft, escrow)
}

func (e *Engine) handleEscrowSupply(ctx context.Context, ev model.TypedEvent) error {
	supply, err := ev.Params.BigInt("supply")
	if err != nil {
		return invalid(err)
	}
	escrow, err := e.votingEscrow(ctx, ev.Contract())
	if err != nil {
		return err
	}
	escrow.TotalSupply = toDecimal(supply, lpDecimals)
	escrow.Touch(ev.BlockNumber, ev.Timestamp)
	return e.store.Upsert(ctx, escrow)
}

func (e *Engine) handleEscrowTransfer(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	to := p.address("to")
	tokenID := p.bigInt("tokenId")
	if p.err != nil {
		return invalid(p.err)
	}

	escrow, err := e.votingEscrow(ctx, ev.Contract())
	if err != nil {
		return err
	}
	nft, err := e.veNFT(ctx, escrow, tokenID, to)
	if err != nil {
		return err
	}
	nft.Owner = to
	if isZeroAddress(to) {
		nft.Active = false
	}
	nft.Touch(ev.BlockNumber, ev.Timestamp)
	escrow.Touch(ev.BlockNumber, ev.Timestamp)

	return e.upsert(ctx, nft, escrow)
}

func (e *Engine) user(ctx context.Context, address string) (*model.User, error) {
	u, _, err := entity.GetOrCreate[model.User](ctx, e.store, address, func() *model.User {
		return &model.User{Address: address}
	})
	return u, err
}

func (e *Engine) handleEscrowDelegateChanged(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	delegator := p.address("delegator")
	from := p.address("fromDelegate")
	to := p.address("toDelegate")
	if p.err != nil {
		return invalid(p.err)
	}
	if isZeroAddress(from) {
		from = ""
	}
	if isZeroAddress(to) {
		to = ""
	}

	escrow, err := e.votingEscrow(ctx, ev.Contract())
	if err != nil {
		return err
	}
	user, err := e.user(ctx, delegator)
	if err != nil {
		return err
	}
	user.DelegatedTo = to
	user.Touch(ev.BlockNumber, ev.Timestamp)
	escrow.Touch(ev.BlockNumber, ev.Timestamp)

	record := &model.VeDelegation{
		ID:           ev.ID(),
		Escrow:       escrow.Address,
		Delegator:    delegator,
		FromDelegate: from,
		ToDelegate:   to,
		Block:        ev.BlockNumber,
		Timestamp:    ev.Timestamp,
	}
	return e.upsert(ctx, record, user, escrow)
}

// handleEscrowDelegateVotesChanged overwrites the delegate's voting power
// with the post-change balance.
func (e *Engine) handleEscrowDelegateVotesChanged(ctx context.Context, ev model.TypedEvent) error {
	p := paramReader{params: ev.Params}
	delegate := p.address("delegate")
	votes := p.bigInt("newVotes")
	if p.err != nil {
		return invalid(p.err)
	}

	user, err := e.user(ctx, delegate)
	if err != nil {
		return err
	}
	user.DelegatedVotingPower = toDecimal(votes, lpDecimals)
	user.Touch(ev.BlockNumber, ev.Timestamp)
	return e.store.Upsert(ctx, user)
}
