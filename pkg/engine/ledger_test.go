package engine

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestWithdrawPaymentTokens_DrainsFullBalance(t *testing.T) {
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
	if _, err := f.eng.Bid(call(carol), assetAddr, id, uint256.NewInt(2000), carol); err != nil {
		t.Fatalf("outbid: %v", err)
	}

	ev, err := f.eng.WithdrawPaymentTokens(call(bob), cashAddr)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !ev.Amount.Eq(uint256.NewInt(1000)) {
		t.Fatalf("withdrawn = %s, want 1000", ev.Amount.Dec())
	}
	expectBalance(t, f.cash, bob, 1000)

	// The entry is gone, not zeroed: a second withdrawal finds no account.
	_, err = f.eng.WithdrawPaymentTokens(call(bob), cashAddr)
	expectCode(t, err, CodeAccountNotFound)
}

func TestWithdrawPaymentTokens_NoBalance(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.WithdrawPaymentTokens(call(alice), cashAddr)
	expectCode(t, err, CodeAccountNotFound)
}

func TestWithdrawAsset_RequiresClaim(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)

	_, err := f.eng.WithdrawAsset(call(bob), assetAddr, id)
	expectCode(t, err, CodeAssetNotFound)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.eng.Cancel(call(alice), assetAddr, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// The claim belongs to the seller; nobody else can pull the asset out.
	_, err = f.eng.WithdrawAsset(call(bob), assetAddr, id)
	expectCode(t, err, CodeAssetNotFound)

	if _, err := f.eng.WithdrawAsset(call(alice), assetAddr, id); err != nil {
		t.Fatalf("WithdrawAsset: %v", err)
	}
	if owner, _ := f.nft.OwnerOf(id); owner != alice {
		t.Fatalf("asset owner = %s, want alice", owner.Hex())
	}

	// The claim is consumed.
	_, err = f.eng.WithdrawAsset(call(alice), assetAddr, id)
	expectCode(t, err, CodeAssetNotFound)
}

func TestEscrowEntriesAndClaimsEnumeration(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 1000)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(1000), bob); err != nil {
		t.Fatalf("bid: %v", err)
	}
	f.blocks.h = 200
	if _, err := f.eng.End(call(carol), assetAddr, id); err != nil {
		t.Fatalf("End: %v", err)
	}

	entries := f.eng.EscrowEntries(alice)
	if len(entries) != 1 {
		t.Fatalf("escrow entries = %d, want 1", len(entries))
	}
	if entries[0].PaymentToken != cashAddr || !entries[0].Amount.Eq(uint256.NewInt(975)) {
		t.Fatalf("entry = %s/%s, want cash/975", entries[0].PaymentToken.Hex(), entries[0].Amount.Dec())
	}

	claims := f.eng.AssetClaims(bob)
	if len(claims) != 1 || claims[0].Token != tokKey(id) {
		t.Fatalf("claims = %v, want one claim on token 1", claims)
	}
	if got := f.eng.AssetClaims(mallory); len(got) != 0 {
		t.Fatalf("mallory claims = %d, want 0", len(got))
	}
}

func TestTotalEscrowedMatchesOutstandingCredits(t *testing.T) {
	f := newFixture(t)
	id := f.mintApproved(alice, 1)
	f.fund(bob, 1000)

	if _, err := f.eng.Start(call(alice), f.listingParam(id, 500, 200)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.eng.Bid(call(bob), assetAddr, id, uint256.NewInt(1000), bob); err != nil {
		t.Fatalf("bid: %v", err)
	}
	f.blocks.h = 200
	if _, err := f.eng.End(call(alice), assetAddr, id); err != nil {
		t.Fatalf("End: %v", err)
	}

	// Seller share plus service fee covers the whole price.
	if got := f.eng.TotalEscrowed(cashAddr); !got.Eq(uint256.NewInt(1000)) {
		t.Fatalf("total escrowed = %s, want 1000", got.Dec())
	}

	if _, err := f.eng.WithdrawPaymentTokens(call(alice), cashAddr); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := f.eng.TotalEscrowed(cashAddr); !got.Eq(uint256.NewInt(25)) {
		t.Fatalf("total escrowed after withdrawal = %s, want 25", got.Dec())
	}
}
