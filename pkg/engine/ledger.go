package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// The escrow ledger is the single source of truth for funds owed. Sale
// proceeds, fee shares, and outbid refunds are credited here and leave only
// through the explicit withdrawals below; entries are deleted outright on
// withdrawal so storage stays proportional to outstanding claims.

// WithdrawPaymentTokens pays out the caller's full escrow balance for one
// payment token. The ledger entry is removed, not zeroed.
func (e *Engine) WithdrawPaymentTokens(call types.Call, paymentToken common.Address) (*types.WithdrawPaymentTokensEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireNotPaused(g); err != nil {
		return nil, err
	}
	if err := e.access.requireAllowedUser(g, call.Sender); err != nil {
		return nil, err
	}

	g.check("HasEscrowBalance")
	amount := e.st.escrowOf(call.Sender, paymentToken)
	if amount.IsZero() {
		return nil, g.fail(CodeAccountNotFound, "%s has no balance in %s", call.Sender.Hex(), paymentToken.Hex())
	}

	pay, err := e.tokens.Payment(paymentToken)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// Push first, then drop the entry: a failed push leaves the credit
	// intact for a later attempt.
	if err := pay.Transfer(e.addr, call.Sender, amount); err != nil {
		return nil, errors.Wrap(err, "withdrawal transfer")
	}
	e.st.takeEscrow(call.Sender, paymentToken)

	if err := e.persist(func(p Persister) error {
		return p.DeleteEscrow(call.Sender, paymentToken)
	}); err != nil {
		return nil, err
	}

	ev := &types.WithdrawPaymentTokensEvent{Account: call.Sender, PaymentToken: paymentToken}
	ev.Amount.Set(amount)
	e.emit(*ev)
	return ev, nil
}

// WithdrawAsset releases a claimable token from engine custody to the
// caller.
func (e *Engine) WithdrawAsset(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.WithdrawAssetEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireNotPaused(g); err != nil {
		return nil, err
	}
	if err := e.access.requireAllowedUser(g, call.Sender); err != nil {
		return nil, err
	}

	tok := types.TokenKey{Asset: asset}
	tok.TokenID.Set(tokenID)

	g.check("HasAssetClaim")
	if !e.st.hasClaim(call.Sender, tok) {
		return nil, g.fail(CodeAssetNotFound, "%s has no claim on %s", call.Sender.Hex(), tok)
	}

	nft, err := e.tokens.Asset(asset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := nft.TransferFrom(e.addr, e.addr, call.Sender, tokenID); err != nil {
		return nil, errors.Wrap(err, "asset withdrawal")
	}
	e.st.takeClaim(call.Sender, tok)

	if err := e.persist(func(p Persister) error {
		return p.DeleteClaim(types.AssetClaim{Account: call.Sender, Token: tok})
	}); err != nil {
		return nil, err
	}

	ev := &types.WithdrawAssetEvent{Account: call.Sender, Token: tok}
	e.emit(*ev)
	return ev, nil
}

// EscrowEntries returns every outstanding credit for an account.
func (e *Engine) EscrowEntries(account common.Address) []types.EscrowEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []types.EscrowEntry
	for k, v := range e.st.Escrow {
		if k.Account != account {
			continue
		}
		entry := types.EscrowEntry{Account: k.Account, PaymentToken: k.PaymentToken}
		entry.Amount.Set(v)
		out = append(out, entry)
	}
	return out
}

// AssetClaims returns every claimable token for an account.
func (e *Engine) AssetClaims(account common.Address) []types.AssetClaim {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []types.AssetClaim
	for k := range e.st.Claims {
		if k.Account == account {
			out = append(out, types.AssetClaim{Account: k.Account, Token: k.Token})
		}
	}
	return out
}

// TotalEscrowed sums all credits for one payment token. The invariant that
// this never exceeds the engine's actual holdings is what the pull-based
// model protects.
func (e *Engine) TotalEscrowed(payment common.Address) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := uint256.NewInt(0)
	for k, v := range e.st.Escrow {
		if k.PaymentToken == payment {
			total.Add(total, v)
		}
	}
	return total
}
