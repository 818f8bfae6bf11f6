package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// Start lists a token for English auction: Unlisted → Listed. The asset is
// pulled into engine custody and every fee rate (royalty, service fee, and
// collection commission if the item is registered) is frozen on the listing
// so later fee-config changes never reprice an in-flight auction.
func (e *Engine) Start(call types.Call, param types.ListingParam) (*types.StartEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireNotPaused(g); err != nil {
		return nil, err
	}
	if err := e.access.requireAllowedUser(g, call.Sender); err != nil {
		return nil, err
	}

	tok := types.TokenKey{Asset: param.Asset}
	tok.TokenID.Set(&param.TokenID)

	g.check("NoActiveListing")
	if _, ok := e.st.Listings[tok]; ok {
		return nil, g.fail(CodeSellOrderFound, "token %s is already listed", tok)
	}

	g.check("IsNotExpired")
	if e.expired(param.ExpirationBlock) {
		return nil, g.fail(CodeExpired, "expiration %d is not after current height %d", param.ExpirationBlock, e.height())
	}
	if err := e.access.requireAllowedPayment(g, param.PaymentToken); err != nil {
		return nil, err
	}

	nft, err := e.tokens.Asset(param.Asset)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	owner, err := nft.OwnerOf(&param.TokenID)
	if err != nil {
		return nil, errors.Wrap(err, "owner lookup")
	}
	g.check("IsTokenOwner")
	if owner != call.Sender {
		return nil, g.fail(CodeNotTokenOwner, "%s does not own %s", call.Sender.Hex(), tok)
	}
	if err := e.requireSpender(g, nft, &param.TokenID); err != nil {
		return nil, err
	}

	// The rates frozen here must be settleable: each one is bounded at its
	// setter, but only their sum at freeze time bounds the total take.
	royalty := e.st.royaltyFor(param.Asset)
	commTo, commBps := e.st.commissionFor(tok, e.addr)
	g.check("IsValidBps")
	if !validBps(royalty.Bps, e.st.ServiceFeeBps, commBps) {
		return nil, g.fail(CodeInvalidBps, "combined fee rates %d bps exceed %d",
			royalty.Bps+e.st.ServiceFeeBps+commBps, types.BpsDenominator)
	}

	// Custody transfer happens before the listing is recorded; a failure
	// here aborts the whole call with no state change.
	if err := nft.TransferFrom(e.addr, call.Sender, e.addr, &param.TokenID); err != nil {
		return nil, errors.Wrap(err, "custody transfer")
	}

	listing := &types.Listing{
		Token:               tok,
		Seller:              call.Sender,
		PaymentToken:        param.PaymentToken,
		ExpirationBlock:     param.ExpirationBlock,
		RoyaltyRecipient:    royalty.Recipient,
		RoyaltyBps:          royalty.Bps,
		ServiceFeeRecipient: e.st.ServiceFeeRecipient,
		ServiceFeeBps:       e.st.ServiceFeeBps,
		CommissionRecipient: commTo,
		CommissionBps:       commBps,
	}
	listing.StartAmount.Set(&param.StartAmount)
	e.st.Listings[tok] = listing
	if err := e.persist(func(p Persister) error {
		return p.PutListing(listing)
	}); err != nil {
		return nil, err
	}

	ev := &types.StartEvent{Listing: *listing}
	e.emit(*ev)
	return ev, nil
}

// Bid places a competitive bid: Listed → Listed-with-Bid, or replaces the
// current top bid. The engine pulls the new bid into custody first, then
// credits the displaced bidder's escrow balance. Refunds are never pushed
// synchronously to an arbitrary address on the bidding path: a broken
// receive path on the old bidder's side must not fail the new bid.
func (e *Engine) Bid(call types.Call, asset common.Address, tokenID *uint256.Int,
	amount *uint256.Int, dest common.Address) (*types.BidEvent, error) {
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

	g.check("ListingExists")
	listing, ok := e.st.Listings[tok]
	if !ok {
		return nil, g.fail(CodeSellOrderNotFound, "token %s is not listed", tok)
	}

	g.check("IsNotExpired")
	if e.expired(listing.ExpirationBlock) {
		return nil, g.fail(CodeExpired, "auction expired at height %d", listing.ExpirationBlock)
	}

	g.check("IsValidDestination")
	if dest == (common.Address{}) {
		return nil, g.fail(CodeZeroAddressDestination, "beneficiary is the zero address")
	}
	if dest == e.addr {
		return nil, g.fail(CodeThisAddressDestination, "beneficiary is the marketplace itself")
	}

	if listing.PaymentToken == types.NativeToken {
		g.check("IsEqualAmount")
		if !call.AttachedValue().Eq(amount) {
			return nil, g.fail(CodeNotEqualAmount, "attached %s, bid %s", call.AttachedValue().Dec(), amount.Dec())
		}
	}

	prev := e.st.Bids[tok]
	g.check("IsAboveMinBid")
	if amount.Lt(&listing.StartAmount) {
		return nil, g.fail(CodeLessThanMinBid, "bid %s below start amount %s", amount.Dec(), listing.StartAmount.Dec())
	}
	if prev != nil && !prev.Amount.Lt(amount) {
		return nil, g.fail(CodeLessThanMinBid, "bid %s does not exceed current bid %s", amount.Dec(), prev.Amount.Dec())
	}

	pay, err := e.tokens.Payment(listing.PaymentToken)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if listing.PaymentToken != types.NativeToken {
		g.check("IsSufficientAllowance")
		if pay.Allowance(call.Sender, e.addr).Lt(amount) {
			return nil, g.fail(CodeInsufficientAllowance, "bidder allowance below %s", amount.Dec())
		}
	}

	// Pull the new bid into custody. Only after the pull succeeds is the
	// outbid amount credited; both are one atomic transition here.
	if err := pay.TransferFrom(e.addr, call.Sender, e.addr, amount); err != nil {
		return nil, errors.Wrap(err, "bid transfer")
	}

	ev := &types.BidEvent{
		Token:       tok,
		Bidder:      call.Sender,
		Beneficiary: dest,
	}
	ev.Amount.Set(amount)
	if prev != nil {
		e.st.creditEscrow(prev.Bidder, listing.PaymentToken, &prev.Amount)
		ev.PrevBidder = prev.Bidder
		ev.RefundCredited.Set(&prev.Amount)
	}

	e.st.BidSequence++
	bid := &types.TopBid{
		Token:       tok,
		Bidder:      call.Sender,
		Beneficiary: dest,
		Sequence:    e.st.BidSequence,
	}
	bid.Amount.Set(amount)
	e.st.Bids[tok] = bid
	ev.Sequence = bid.Sequence

	if err := e.persist(func(p Persister) error {
		if err := p.PutBid(bid); err != nil {
			return err
		}
		if prev != nil {
			entry := types.EscrowEntry{Account: prev.Bidder, PaymentToken: listing.PaymentToken}
			entry.Amount.Set(e.st.escrowOf(prev.Bidder, listing.PaymentToken))
			if err := p.PutEscrow(entry); err != nil {
				return err
			}
		}
		return p.PutConfig(e.configRecord())
	}); err != nil {
		return nil, err
	}

	e.emit(*ev)
	return ev, nil
}

// Cancel withdraws a listing before expiry: seller or contract owner only.
// An existing bid is refunded by escrow credit and the asset becomes
// claimable by the seller; nothing is pushed.
func (e *Engine) Cancel(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.CancelEvent, error) {
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

	g.check("ListingExists")
	listing, ok := e.st.Listings[tok]
	if !ok {
		return nil, g.fail(CodeSellOrderNotFound, "token %s is not listed", tok)
	}

	g.check("IsSellerOrOwner")
	if call.Sender != listing.Seller && call.Sender != e.st.Owner {
		return nil, g.fail(CodeNotAllowedToCancelOrder, "%s may not cancel this listing", call.Sender.Hex())
	}

	// Cancellation is a pre-expiry action; after expiry the only exit is End.
	g.check("IsNotExpired")
	if e.expired(listing.ExpirationBlock) {
		return nil, g.fail(CodeExpired, "auction expired at height %d", listing.ExpirationBlock)
	}

	ev := &types.CancelEvent{Token: tok, Seller: listing.Seller}
	bid := e.st.Bids[tok]
	if bid != nil {
		e.st.creditEscrow(bid.Bidder, listing.PaymentToken, &bid.Amount)
		ev.Bidder = bid.Bidder
		ev.RefundCredited.Set(&bid.Amount)
		delete(e.st.Bids, tok)
	}
	e.st.grantClaim(listing.Seller, tok)
	delete(e.st.Listings, tok)

	if err := e.persist(func(p Persister) error {
		if err := p.DeleteListing(tok); err != nil {
			return err
		}
		if bid != nil {
			if err := p.DeleteBid(tok); err != nil {
				return err
			}
			entry := types.EscrowEntry{Account: bid.Bidder, PaymentToken: listing.PaymentToken}
			entry.Amount.Set(e.st.escrowOf(bid.Bidder, listing.PaymentToken))
			if err := p.PutEscrow(entry); err != nil {
				return err
			}
		}
		return p.PutClaim(types.AssetClaim{Account: listing.Seller, Token: tok})
	}); err != nil {
		return nil, err
	}

	e.emit(*ev)
	return ev, nil
}

// End finalizes an auction. After expiry anyone may call it; before expiry
// only the seller or the current winning bidder may settle early, and a
// caller with no stake in the auction gets NotExpiredError (no bid) or
// NotAllowedToEndError (someone else's live bid). With a bid, the price is
// split into royalty, service fee, commission (registered items only), and
// seller share — all credited to escrow, never pushed — and the asset claim
// goes to the bid's beneficiary. With no bid the asset claim returns to the
// seller.
func (e *Engine) End(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.EndEvent, error) {
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

	g.check("ListingExists")
	listing, ok := e.st.Listings[tok]
	if !ok {
		return nil, g.fail(CodeSellOrderNotFound, "token %s is not listed", tok)
	}

	bid := e.st.Bids[tok]
	if !e.expired(listing.ExpirationBlock) {
		g.check("MayEndEarly")
		interested := call.Sender == listing.Seller || (bid != nil && call.Sender == bid.Bidder)
		if !interested {
			if bid == nil {
				return nil, g.fail(CodeNotExpired, "auction runs until height %d", listing.ExpirationBlock)
			}
			return nil, g.fail(CodeNotAllowedToEnd, "%s has no stake in this auction", call.Sender.Hex())
		}
		if bid == nil {
			// Nothing to settle early; the seller's pre-expiry exit is Cancel.
			return nil, g.fail(CodeNotExpired, "auction runs until height %d", listing.ExpirationBlock)
		}
	}

	ev := &types.EndEvent{
		Token:               tok,
		Seller:              listing.Seller,
		PaymentToken:        listing.PaymentToken,
		RoyaltyRecipient:    listing.RoyaltyRecipient,
		ServiceRecipient:    listing.ServiceFeeRecipient,
		CommissionRecipient: listing.CommissionRecipient,
	}

	var touched []types.EscrowEntry
	if bid != nil {
		sp := splitPrice(&bid.Amount, listing.RoyaltyBps, listing.ServiceFeeBps, listing.CommissionBps)

		e.st.creditEscrow(listing.RoyaltyRecipient, listing.PaymentToken, &sp.Royalty)
		e.st.creditEscrow(listing.ServiceFeeRecipient, listing.PaymentToken, &sp.Service)
		e.st.creditEscrow(listing.CommissionRecipient, listing.PaymentToken, &sp.Commission)
		e.st.creditEscrow(listing.Seller, listing.PaymentToken, &sp.Seller)
		e.st.grantClaim(bid.Beneficiary, tok)

		for _, acct := range []common.Address{
			listing.RoyaltyRecipient, listing.ServiceFeeRecipient, listing.CommissionRecipient, listing.Seller,
		} {
			entry := types.EscrowEntry{Account: acct, PaymentToken: listing.PaymentToken}
			entry.Amount.Set(e.st.escrowOf(acct, listing.PaymentToken))
			if !entry.Amount.IsZero() {
				touched = append(touched, entry)
			}
		}

		ev.Sold = true
		ev.Buyer = bid.Bidder
		ev.Beneficiary = bid.Beneficiary
		ev.Price.Set(&bid.Amount)
		ev.RoyaltyAmount.Set(&sp.Royalty)
		ev.ServiceFee.Set(&sp.Service)
		ev.CommissionAmount.Set(&sp.Commission)
		ev.SellerShare.Set(&sp.Seller)
		delete(e.st.Bids, tok)
	} else {
		e.st.grantClaim(listing.Seller, tok)
		ev.Beneficiary = listing.Seller
	}
	delete(e.st.Listings, tok)

	claimant := ev.Beneficiary
	if err := e.persist(func(p Persister) error {
		if err := p.DeleteListing(tok); err != nil {
			return err
		}
		if bid != nil {
			if err := p.DeleteBid(tok); err != nil {
				return err
			}
		}
		for _, entry := range touched {
			if err := p.PutEscrow(entry); err != nil {
				return err
			}
		}
		return p.PutClaim(types.AssetClaim{Account: claimant, Token: tok})
	}); err != nil {
		return nil, err
	}

	e.emit(*ev)
	return ev, nil
}
