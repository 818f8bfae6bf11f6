package engine

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/zrcswap/zrcswap/pkg/types"
)

func TestStart_TakesCustodyAndFreezesFees(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	if err := f.eng.SetRoyalty(call(ownerAddr), assetAddr, royaltyAcct, 1000); err != nil {
		t.Fatalf("SetRoyalty: %v", err)
	}

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The asset sits in engine custody for the life of the auction.
	if owner, _ := f.nft.OwnerOf(id); owner != marketAddr {
		t.Fatalf("custody owner = %s, want engine", owner.Hex())
	}

	listing, _, ok := f.eng.Listing(tokKey(id))
	if !ok {
		t.Fatal("listing missing")
	}
	if listing.RoyaltyBps != 1000 || listing.ServiceFeeBps != 250 {
		t.Fatalf("frozen rates = %d/%d, want 1000/250", listing.RoyaltyBps, listing.ServiceFeeBps)
	}

	// A fee change after Start must not touch the frozen listing.
	if err := f.eng.SetRoyalty(call(ownerAddr), assetAddr, royaltyAcct, 5000); err != nil {
		t.Fatalf("SetRoyalty: %v", err)
	}
	listing, _, _ = f.eng.Listing(tokKey(id))
	if listing.RoyaltyBps != 1000 {
		t.Fatalf("frozen royalty changed to %d", listing.RoyaltyBps)
	}
}

func TestStart_RejectsCombinedRatesAbovePrice(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	// Each rate passes its own setter; together they exceed the price.
	if err := f.eng.SetRoyalty(call(ownerAddr), assetAddr, royaltyAcct, 9000); err != nil {
		t.Fatalf("SetRoyalty: %v", err)
	}
	if err := f.eng.SetServiceFee(call(ownerAddr), feeAcct, 2000); err != nil {
		t.Fatalf("SetServiceFee: %v", err)
	}

	_, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200))
	expectCode(t, err, CodeInvalidBps)

	// The refusal happens before custody: the asset never moved.
	if owner, _ := f.nft.OwnerOf(id); owner != alice {
		t.Fatalf("asset owner = %s, want alice", owner.Hex())
	}
	if _, _, ok := f.eng.Listing(tokKey(id)); ok {
		t.Fatal("no listing should be recorded")
	}
}

func TestStart_SingleActiveListingPerToken(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200))
	expectCode(t, err, CodeSellOrderFound)
}

func TestStart_RequiresOwnershipAndApproval(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	_, err := f.eng.Start(call(bob), f.listingParam(id, 500, 200))
	expectCode(t, err, CodeNotTokenOwner)

	id2 := uint256.NewInt(2)
	if err := f.nft.Mint(alice, id2); err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = f.eng.Start(call(alice), f.listingParam(id2, 500, 200))
	expectCode(t, err, CodeNotSpender)
}

func TestBid_MonotonicallyIncreasing(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 10_000)
	f.fund(carol, 10_000)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Below the start amount.
	_, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(499), bob)
	expectCode(t, err, CodeLessThanMinBid)

	// The start amount itself is a valid opening bid.
	if _, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(500), bob); err != nil {
		t.Fatalf("opening bid: %v", err)
	}

	// Equal to the standing bid is not an outbid.
	_, err = f.eng.Bid(call(carol), assetAddr, id, uint256.NewInt(500), carol)
	expectCode(t, err, CodeLessThanMinBid)

	ev, err := f.eng.Bid(call(carol), assetAddr, id, uint256.NewInt(501), carol)
	if err != nil {
		t.Fatalf("outbid: %v", err)
	}
	if ev.PrevBidder != bob || !ev.RefundCredited.Eq(uint256.NewInt(500)) {
		t.Fatalf("outbid event = %s/%s, want bob/500", ev.PrevBidder.Hex(), ev.RefundCredited.Dec())
	}
}

func TestBid_OutbidRefundGoesToEscrowNotWallet(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 1000)
	f.fund(carol, 2000)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(1000), bob); err != nil {
		t.Fatalf("bid: %v", err)
	}
	expectBalance(t, f.cash, bob, 0)

	if _, err := f.eng.Bid(call(carol), assetAddr, id, uint256.NewInt(2000), carol); err != nil {
		t.Fatalf("outbid: %v", err)
	}

	// bob's refund is an escrow credit; his wallet is untouched until he
	// withdraws.
	expectBalance(t, f.cash, bob, 0)
	expectEscrow(t, f.eng, bob, 1000)

	if _, err := f.eng.WithdrawPaymentTokens(call(bob), cashAddr); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	expectBalance(t, f.cash, bob, 1000)
	expectEscrow(t, f.eng, bob, 0)
}

func TestBid_SequenceIncreasesAcrossAuctions(t *testing.T) {
	f := newFixture(t)
	id1 := f.mintApproved(alice, 1)
	id2 := f.mintApproved(alice, 2)
	f.fund(bob, 10_000)

	for _, id := range []*uint256.Int{id1, id2} {
		if _, err := f.eng.Start(call(alice), f.listingParam(id, 100, 200)); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}

	ev1, err := f.eng.Bid(call(bob), assetAddr, id1, uint256.NewInt(100), bob)
	if err != nil {
		t.Fatalf("bid 1: %v", err)
	}
	ev2, err := f.eng.Bid(call(bob), assetAddr, id2, uint256.NewInt(100), bob)
	if err != nil {
		t.Fatalf("bid 2: %v", err)
	}
	if ev2.Sequence <= ev1.Sequence {
		t.Fatalf("sequence not increasing: %d then %d", ev1.Sequence, ev2.Sequence)
	}
}

func TestBid_DestinationAndExpiry(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 1000)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(500), types.NativeToken)
	expectCode(t, err, CodeZeroAddressDestination)
	_, err = f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(500), marketAddr)
	expectCode(t, err, CodeThisAddressDestination)

	// At expiration height the auction no longer accepts bids.
	f.blocks.h = 200
	_, err = f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(500), bob)
	expectCode(t, err, CodeExpired)
}

func TestBid_UnlistedToken(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 1000)

	_, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(500), bob)
	expectCode(t, err, CodeSellOrderNotFound)
}

func TestCancel_RoundTripWithoutBid(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.eng.Cancel(call(alice), assetAddr, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, _, ok := f.eng.Listing(tokKey(id)); ok {
		t.Fatal("listing should be gone")
	}
	if !f.eng.HasAssetClaim(alice, tokKey(id)) {
		t.Fatal("seller should hold the asset claim")
	}
	if _, err := f.eng.WithdrawAsset(call(alice), assetAddr, id); err != nil {
		t.Fatalf("WithdrawAsset: %v", err)
	}
	if owner, _ := f.nft.OwnerOf(id); owner != alice {
		t.Fatalf("asset owner = %s, want alice", owner.Hex())
	}
}

func TestCancel_RefundsBidderThroughEscrow(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 1000)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(1000), bob); err != nil {
		t.Fatalf("bid: %v", err)
	}

	ev, err := f.eng.Cancel(call(alice), assetAddr, id)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if ev.Bidder != bob || !ev.RefundCredited.Eq(uint256.NewInt(1000)) {
		t.Fatalf("cancel event = %s/%s, want bob/1000", ev.Bidder.Hex(), ev.RefundCredited.Dec())
	}
	expectEscrow(t, f.eng, bob, 1000)
	if !f.eng.HasAssetClaim(alice, tokKey(id)) {
		t.Fatal("seller should reclaim the asset")
	}
}

func TestCancel_Authorization(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := f.eng.Cancel(call(bob), assetAddr, id)
	expectCode(t, err, CodeNotAllowedToCancelOrder)

	// The contract owner may force-cancel any listing.
	if _, err := f.eng.Cancel(call(ownerAddr), assetAddr, id); err != nil {
		t.Fatalf("owner Cancel: %v", err)
	}
	if !f.eng.HasAssetClaim(alice, tokKey(id)) {
		t.Fatal("claim should still go to the seller on owner cancel")
	}
}

func TestCancel_RejectedAfterExpiry(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.blocks.h = 200
	_, err := f.eng.Cancel(call(alice), assetAddr, id)
	expectCode(t, err, CodeExpired)
}

func TestEnd_SettlesWithFullFeeSplit(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 10_000)

	if err := f.eng.SetRoyalty(call(ownerAddr), assetAddr, royaltyAcct, 1000); err != nil {
		t.Fatalf("SetRoyalty: %v", err)
	}
	// Register the item under a brand collection and authorize this
	// marketplace for commission routing.
	col, err := f.eng.CreateCollection(call(brandAcct), 500)
	if err == nil {
		t.Fatal("brand is not allow-listed yet; expected failure")
	}
	if err := f.eng.SetAllowlist(call(ownerAddr), brandAcct); err != nil {
		t.Fatalf("allow brand: %v", err)
	}
	col, err = f.eng.CreateCollection(call(brandAcct), 500)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := f.eng.AddToCollection(call(brandAcct), assetAddr, id, col.ID); err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}
	if err := f.eng.RegisterMarketplaceAddress(call(ownerAddr), marketAddr); err != nil {
		t.Fatalf("RegisterMarketplaceAddress: %v", err)
	}

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(10_000), bob); err != nil {
		t.Fatalf("bid: %v", err)
	}

	f.blocks.h = 200
	ev, err := f.eng.End(call(carol), assetAddr, id)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if !ev.Sold {
		t.Fatal("auction should settle as sold")
	}

	// 10% royalty + 2.5% service + 5% commission, remainder to the seller,
	// all as escrow credits.
	expectEscrow(t, f.eng, royaltyAcct, 1000)
	expectEscrow(t, f.eng, feeAcct, 250)
	expectEscrow(t, f.eng, brandAcct, 500)
	expectEscrow(t, f.eng, alice, 8250)

	if !f.eng.HasAssetClaim(bob, tokKey(id)) {
		t.Fatal("winner should hold the asset claim")
	}
	if _, err := f.eng.WithdrawAsset(call(bob), assetAddr, id); err != nil {
		t.Fatalf("winner WithdrawAsset: %v", err)
	}
	if owner, _ := f.nft.OwnerOf(id); owner != bob {
		t.Fatalf("asset owner = %s, want bob", owner.Hex())
	}
}

func TestEnd_NoBidReturnsAssetToSeller(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.blocks.h = 200
	ev, err := f.eng.End(call(bob), assetAddr, id)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ev.Sold {
		t.Fatal("no-bid auction should not settle as sold")
	}
	if !ev.Price.IsZero() || !ev.SellerShare.IsZero() {
		t.Fatal("no-bid settlement should carry zero amounts")
	}
	if !f.eng.HasAssetClaim(alice, tokKey(id)) {
		t.Fatal("asset should return to the seller")
	}
}

func TestEnd_EarlyTerminationPolicy(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 1000)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Pre-expiry, no bid: nobody may end, not even the seller (Cancel is
	// the seller's exit).
	_, err := f.eng.End(call(alice), assetAddr, id)
	expectCode(t, err, CodeNotExpired)
	_, err = f.eng.End(call(carol), assetAddr, id)
	expectCode(t, err, CodeNotExpired)

	if _, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(1000), bob); err != nil {
		t.Fatalf("bid: %v", err)
	}

	// Pre-expiry with a live bid: an unrelated caller is refused, but
	// seller and winning bidder may settle early.
	_, err = f.eng.End(call(carol), assetAddr, id)
	expectCode(t, err, CodeNotAllowedToEnd)

	if _, err := f.eng.End(call(bob), assetAddr, id); err != nil {
		t.Fatalf("bidder early End: %v", err)
	}
	expectEscrow(t, f.eng, alice, 975)
	if !f.eng.HasAssetClaim(bob, tokKey(id)) {
		t.Fatal("winner should hold the asset claim")
	}
}

func TestEnd_ExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.blocks.h = 199
	_, err := f.eng.End(call(carol), assetAddr, id)
	expectCode(t, err, CodeNotExpired)

	f.blocks.h = 200
	if _, err := f.eng.End(call(carol), assetAddr, id); err != nil {
		t.Fatalf("End at expiration height: %v", err)
	}
}

func TestEnd_BeneficiaryReceivesClaim(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 1000)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// bob bids with carol as the delivery beneficiary.
	if _, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(1000), carol); err != nil {
		t.Fatalf("bid: %v", err)
	}

	f.blocks.h = 200
	ev, err := f.eng.End(call(alice), assetAddr, id)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ev.Beneficiary != carol {
		t.Fatalf("beneficiary = %s, want carol", ev.Beneficiary.Hex())
	}
	if !f.eng.HasAssetClaim(carol, tokKey(id)) {
		t.Fatal("claim should belong to the beneficiary, not the bidder")
	}
	if f.eng.HasAssetClaim(bob, tokKey(id)) {
		t.Fatal("bidder should not hold a claim")
	}
}

func TestCommissionRequiresRegisteredMarketplace(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	if err := f.eng.SetAllowlist(call(ownerAddr), brandAcct); err != nil {
		t.Fatalf("allow brand: %v", err)
	}
	col, err := f.eng.CreateCollection(call(brandAcct), 500)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := f.eng.AddToCollection(call(brandAcct), assetAddr, id, col.ID); err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}

	// The marketplace was never registered by the collection side, so the
	// listing freezes a zero commission.
	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	listing, _, _ := f.eng.Listing(tokKey(id))
	if listing.CommissionBps != 0 {
		t.Fatalf("commission bps = %d, want 0 for unregistered marketplace", listing.CommissionBps)
	}
}
