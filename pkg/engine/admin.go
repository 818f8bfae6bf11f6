package engine

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// Administrative transitions. All are owner-only and touch configuration,
// never orders or escrow.

// Pause blocks every mutating entry point until Unpause.
func (e *Engine) Pause(call types.Call) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	if err := e.access.requireNotPaused(g); err != nil {
		return err
	}
	e.st.Paused = true
	if err := e.persistConfig(); err != nil {
		return err
	}
	e.emit(types.PausedEvent{By: call.Sender})
	return nil
}

// Unpause lifts the global pause flag.
func (e *Engine) Unpause(call types.Call) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	if err := e.access.requirePaused(g); err != nil {
		return err
	}
	e.st.Paused = false
	if err := e.persistConfig(); err != nil {
		return err
	}
	e.emit(types.UnpausedEvent{By: call.Sender})
	return nil
}

// SetAllowlist adds an address to the allow-list.
func (e *Engine) SetAllowlist(call types.Call, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	e.st.Allowlist[addr] = struct{}{}
	return e.persistConfig()
}

// RemoveFromAllowlist removes an address from the allow-list.
func (e *Engine) RemoveFromAllowlist(call types.Call, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	delete(e.st.Allowlist, addr)
	return e.persistConfig()
}

// AllowPaymentTokenAddress adds a fungible token to the allowed payment
// rails. The native currency (zero address) needs no registration.
func (e *Engine) AllowPaymentTokenAddress(call types.Call, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	e.st.AllowedPayment[addr] = struct{}{}
	return e.persistConfig()
}

// DisallowPaymentTokenAddress removes a payment rail. In-flight orders and
// listings that already reference it are untouched.
func (e *Engine) DisallowPaymentTokenAddress(call types.Call, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	delete(e.st.AllowedPayment, addr)
	return e.persistConfig()
}

// SetServiceFee configures the platform fee routing for future settlements.
// Auctions already started keep their frozen rates.
func (e *Engine) SetServiceFee(call types.Call, recipient common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	g.check("IsValidBps")
	if !validBps(bps) {
		return g.fail(CodeInvalidBps, "service fee %d bps exceeds %d", bps, types.BpsDenominator)
	}
	e.st.ServiceFeeRecipient = recipient
	e.st.ServiceFeeBps = bps
	return e.persistConfig()
}

// SetRoyalty configures the creator share routing for one asset contract.
func (e *Engine) SetRoyalty(call types.Call, asset, recipient common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	g.check("IsValidBps")
	if !validBps(bps) {
		return g.fail(CodeInvalidBps, "royalty %d bps exceeds %d", bps, types.BpsDenominator)
	}
	e.st.Royalties[asset] = types.RoyaltyConfig{Recipient: recipient, Bps: bps}
	return e.persistConfig()
}

// TransferOwnership hands the contract-owner role to another address.
func (e *Engine) TransferOwnership(call types.Call, newOwner common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	g.check("IsValidDestination")
	if newOwner == (common.Address{}) {
		return g.fail(CodeZeroAddressDestination, "new owner is the zero address")
	}
	e.st.Owner = newOwner
	return e.persistConfig()
}
