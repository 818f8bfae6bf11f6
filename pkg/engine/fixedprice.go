package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/zrcswap/zrcswap/pkg/token"
	"github.com/zrcswap/zrcswap/pkg/types"
)

// SetOrder creates or replaces the fixed-price order for the identity key.
// Re-invocation with the same key overwrites maker and expiry in place,
// which makers use to renew an order cheaply. The key, not the maker, is
// the order's identity: a later caller who passes the same preconditions
// takes over the slot. On the sell side that restricts displacement to the
// token's current owner; on the buy side any cover-checked buyer may
// displace a standing buy order, last writer wins. CreateOrder is the same
// operation under its other historical name.
func (e *Engine) SetOrder(call types.Call, ord types.FixedOrder) (*types.SetOrderEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireNotPaused(g); err != nil {
		return nil, err
	}
	if err := e.access.requireAllowedUser(g, call.Sender); err != nil {
		return nil, err
	}

	g.check("IsNotExpired")
	if e.expired(ord.ExpirationBlock) {
		return nil, g.fail(CodeExpired, "expiration %d is not after current height %d", ord.ExpirationBlock, e.height())
	}
	if err := e.access.requireAllowedPayment(g, ord.Key.PaymentToken); err != nil {
		return nil, err
	}

	nft, err := e.tokens.Asset(ord.Key.Asset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	owner, err := nft.OwnerOf(&ord.Key.TokenID)
	if err != nil {
		return nil, errors.Wrap(err, "owner lookup")
	}

	switch ord.Key.Side {
	case types.Sell:
		g.check("IsTokenOwner")
		if owner != call.Sender {
			return nil, g.fail(CodeNotTokenOwner, "%s does not own %s", call.Sender.Hex(), ord.Key.Token())
		}
		if err := e.requireSpender(g, nft, &ord.Key.TokenID); err != nil {
			return nil, err
		}
	case types.Buy:
		g.check("IsNotTokenOwner")
		if owner == call.Sender {
			return nil, g.fail(CodeTokenOwner, "%s already owns %s", call.Sender.Hex(), ord.Key.Token())
		}
		if ord.Key.PaymentToken == types.NativeToken {
			g.check("IsEqualAmount")
			if !call.AttachedValue().Eq(&ord.Key.Price) {
				return nil, g.fail(CodeNotEqualAmount, "attached %s, sale price %s",
					call.AttachedValue().Dec(), ord.Key.Price.Dec())
			}
		} else {
			pay, err := e.tokens.Payment(ord.Key.PaymentToken)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			g.check("IsSufficientAllowance")
			if pay.Allowance(call.Sender, e.addr).Lt(&ord.Key.Price) {
				return nil, g.fail(CodeInsufficientAllowance, "buy order needs allowance of at least %s", ord.Key.Price.Dec())
			}
		}
	}

	stored := &types.FixedOrder{
		Key:             ord.Key,
		Maker:           call.Sender,
		ExpirationBlock: ord.ExpirationBlock,
	}
	e.st.FixedOrders[ord.Key] = stored
	if err := e.persist(func(p Persister) error {
		return p.PutFixedOrder(stored)
	}); err != nil {
		return nil, err
	}

	ev := &types.SetOrderEvent{Order: *stored}
	e.emit(*ev)
	return ev, nil
}

// CreateOrder is the alias entry point kept for wire compatibility.
func (e *Engine) CreateOrder(call types.Call, ord types.FixedOrder) (*types.SetOrderEvent, error) {
	return e.SetOrder(call, ord)
}

// FulfillOrder atomically matches the standing order identified by
// (asset, tokenID, paymentToken, price, side). The side argument names the
// side of the STANDING order: fulfilling a Sell order buys the asset for
// the caller (delivered to dest); fulfilling a Buy order sells the caller's
// asset to the order maker (seller share paid to dest). Every transfer is
// dispatched synchronously; any failure aborts the whole call.
func (e *Engine) FulfillOrder(call types.Call, asset common.Address, tokenID *uint256.Int,
	paymentToken common.Address, price *uint256.Int, side types.Side, dest common.Address) (*types.FulfillOrderEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireNotPaused(g); err != nil {
		return nil, err
	}
	if err := e.access.requireAllowedUser(g, call.Sender); err != nil {
		return nil, err
	}

	key := types.FixedOrderKey{Asset: asset, PaymentToken: paymentToken, Side: side}
	key.TokenID.Set(tokenID)
	key.Price.Set(price)

	g.check("OrderExists")
	ord, ok := e.st.FixedOrders[key]
	if !ok {
		if side == types.Sell {
			return nil, g.fail(CodeSellOrderNotFound, "no sell order at %s for %s", price.Dec(), key.Token())
		}
		return nil, g.fail(CodeBuyOrderNotFound, "no buy order at %s for %s", price.Dec(), key.Token())
	}

	g.check("IsNotExpired")
	if e.expired(ord.ExpirationBlock) {
		return nil, g.fail(CodeExpired, "order expired at height %d", ord.ExpirationBlock)
	}

	g.check("IsValidDestination")
	if dest == (common.Address{}) {
		return nil, g.fail(CodeZeroAddressDestination, "destination is the zero address")
	}
	if dest == e.addr {
		return nil, g.fail(CodeThisAddressDestination, "destination is the marketplace itself")
	}

	nft, err := e.tokens.Asset(asset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	pay, err := e.tokens.Payment(paymentToken)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var seller, buyer, assetTo, payTo common.Address
	switch side {
	case types.Sell:
		seller, buyer = ord.Maker, call.Sender
		assetTo, payTo = dest, seller
		if paymentToken == types.NativeToken {
			g.check("IsEqualAmount")
			if !call.AttachedValue().Eq(price) {
				return nil, g.fail(CodeNotEqualAmount, "attached %s, sale price %s", call.AttachedValue().Dec(), price.Dec())
			}
		} else {
			g.check("IsSufficientAllowance")
			if pay.Allowance(buyer, e.addr).Lt(price) {
				return nil, g.fail(CodeInsufficientAllowance, "buyer allowance below %s", price.Dec())
			}
		}
	case types.Buy:
		seller, buyer = call.Sender, ord.Maker
		assetTo, payTo = buyer, dest
		g.check("IsNotSelfTrade")
		if seller == buyer {
			return nil, g.fail(CodeSelf, "cannot fulfill own buy order")
		}
		if paymentToken != types.NativeToken {
			g.check("IsSufficientAllowance")
			if pay.Allowance(buyer, e.addr).Lt(price) {
				return nil, g.fail(CodeInsufficientAllowance, "buy order maker allowance below %s", price.Dec())
			}
		}
	}

	// The asset side is re-validated at fulfillment time: ownership or
	// approval may have changed since the order was placed.
	owner, err := nft.OwnerOf(tokenID)
	if err != nil {
		return nil, errors.Wrap(err, "owner lookup")
	}
	g.check("IsTokenOwner")
	if owner != seller {
		return nil, g.fail(CodeNotTokenOwner, "%s no longer owns %s", seller.Hex(), key.Token())
	}
	if err := e.requireSpender(g, nft, tokenID); err != nil {
		return nil, err
	}

	// Fixed-price sales settle at the current rates; their sum must leave a
	// non-negative seller share.
	royalty := e.st.royaltyFor(asset)
	g.check("IsValidBps")
	if !validBps(royalty.Bps, e.st.ServiceFeeBps) {
		return nil, g.fail(CodeInvalidBps, "combined fee rates %d bps exceed %d",
			royalty.Bps+e.st.ServiceFeeBps, types.BpsDenominator)
	}
	sp := splitPrice(price, royalty.Bps, e.st.ServiceFeeBps, 0)

	// All checks passed: dispatch the three payment legs and the asset leg.
	if err := e.payOut(pay, buyer, royalty.Recipient, &sp.Royalty); err != nil {
		return nil, errors.Wrap(err, "royalty transfer")
	}
	if err := e.payOut(pay, buyer, e.st.ServiceFeeRecipient, &sp.Service); err != nil {
		return nil, errors.Wrap(err, "service fee transfer")
	}
	if err := e.payOut(pay, buyer, payTo, &sp.Seller); err != nil {
		return nil, errors.Wrap(err, "seller payment")
	}
	if err := nft.TransferFrom(e.addr, seller, assetTo, tokenID); err != nil {
		return nil, errors.Wrap(err, "asset transfer")
	}

	delete(e.st.FixedOrders, key)
	if err := e.persist(func(p Persister) error {
		return p.DeleteFixedOrder(key)
	}); err != nil {
		return nil, err
	}

	ev := &types.FulfillOrderEvent{
		Key:              key,
		Seller:           seller,
		Buyer:            buyer,
		AssetRecipient:   assetTo,
		PaymentRecipient: payTo,
		RoyaltyRecipient: royalty.Recipient,
		ServiceRecipient: e.st.ServiceFeeRecipient,
	}
	ev.Price.Set(price)
	ev.RoyaltyAmount.Set(&sp.Royalty)
	ev.ServiceFee.Set(&sp.Service)
	ev.SellerShare.Set(&sp.Seller)
	e.emit(*ev)
	return ev, nil
}

// CancelOrder removes the caller's standing order. Only the maker may
// cancel. No funds move: buy-order payment is only ever taken at
// fulfillment, so cancellation is a pure state removal.
func (e *Engine) CancelOrder(call types.Call, asset common.Address, tokenID *uint256.Int,
	paymentToken common.Address, price *uint256.Int, side types.Side) (*types.CancelOrderEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireNotPaused(g); err != nil {
		return nil, err
	}
	if err := e.access.requireAllowedUser(g, call.Sender); err != nil {
		return nil, err
	}

	key := types.FixedOrderKey{Asset: asset, PaymentToken: paymentToken, Side: side}
	key.TokenID.Set(tokenID)
	key.Price.Set(price)

	g.check("OrderExists")
	ord, ok := e.st.FixedOrders[key]
	if !ok {
		if side == types.Sell {
			return nil, g.fail(CodeSellOrderNotFound, "no sell order at %s for %s", price.Dec(), key.Token())
		}
		return nil, g.fail(CodeBuyOrderNotFound, "no buy order at %s for %s", price.Dec(), key.Token())
	}

	g.check("IsMaker")
	if ord.Maker != call.Sender {
		return nil, g.fail(CodeNotAllowedToCancelOrder, "%s is not the maker", call.Sender.Hex())
	}

	delete(e.st.FixedOrders, key)
	if err := e.persist(func(p Persister) error {
		return p.DeleteFixedOrder(key)
	}); err != nil {
		return nil, err
	}

	ev := &types.CancelOrderEvent{Key: key, Maker: ord.Maker}
	e.emit(*ev)
	return ev, nil
}

// requireSpender checks that the engine is the approved transfer spender
// for a token.
func (e *Engine) requireSpender(g *guard, nft token.NonFungible, tokenID *uint256.Int) error {
	g.check("IsApprovedSpender")
	spender, ok := nft.Spender(tokenID)
	if !ok || spender != e.addr {
		return g.fail(CodeNotSpender, "marketplace is not the approved spender for token %s", tokenID.Dec())
	}
	return nil
}

// payOut moves one payment leg from payer to recipient, skipping zero
// amounts so settlement never creates empty balance entries.
func (e *Engine) payOut(pay token.Fungible, payer, recipient common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	return pay.TransferFrom(e.addr, payer, recipient, amount)
}
