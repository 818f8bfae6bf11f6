package storage

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/zrcswap/zrcswap/pkg/engine"
	"github.com/zrcswap/zrcswap/pkg/token"
	"github.com/zrcswap/zrcswap/pkg/types"
)

var (
	tMarket = common.HexToAddress("0x00000000000000000000000000000000000000EE")
	tOwner  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tFee    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tAlice  = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	tBob    = common.HexToAddress("0xBB00000000000000000000000000000000000000")
	tAsset  = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	tCash   = common.HexToAddress("0x00000000000000000000000000000000000000F1")
)

type fixedBlocks struct{ h uint64 }

func (b *fixedBlocks) Height() uint64 { return b.h }

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(dir, "market"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

// newEngine wires an engine over fresh token backends with the store
// attached, seeding the allowlist and payment rail through owner calls so
// the records land on disk the same way they would in production.
func newEngine(t *testing.T, s *Store, st *engine.State) (*engine.Engine, *token.NFT, *token.Ledger) {
	t.Helper()
	cash := token.NewLedger()
	nft := token.NewNFT()
	reg := token.NewRegistry(token.NewNative())
	reg.RegisterPayment(tCash, cash)
	reg.RegisterAsset(tAsset, nft)
	blocks := &fixedBlocks{h: 100}

	var eng *engine.Engine
	if st != nil {
		eng = engine.NewWithState(st, tMarket, reg, blocks, s, nil)
		return eng, nft, cash
	}

	eng = engine.New(engine.Params{
		Address:             tMarket,
		Owner:               tOwner,
		ServiceFeeRecipient: tFee,
		ServiceFeeBps:       250,
	}, reg, blocks, s, nil)

	ownerCall := types.Call{Sender: tOwner}
	for _, a := range []common.Address{tAlice, tBob} {
		if err := eng.SetAllowlist(ownerCall, a); err != nil {
			t.Fatalf("seed allowlist: %v", err)
		}
	}
	if err := eng.AllowPaymentTokenAddress(ownerCall, tCash); err != nil {
		t.Fatalf("allow payment token: %v", err)
	}
	return eng, nft, cash
}

func TestLoadStateEmptyStore(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()

	st, ok, err := s.LoadState()
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if ok || st != nil {
		t.Fatal("fresh store should report no persisted state")
	}
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	eng, nft, cash := newEngine(t, s, nil)

	id := uint256.NewInt(7)
	if err := nft.Mint(tAlice, id); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := nft.SetSpender(tAlice, tMarket, id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	cash.Mint(tBob, uint256.NewInt(5000))
	if err := cash.IncreaseAllowance(tBob, tMarket, uint256.NewInt(5000)); err != nil {
		t.Fatalf("allowance: %v", err)
	}

	// One standing fixed-price order on a second token.
	id2 := uint256.NewInt(8)
	if err := nft.Mint(tAlice, id2); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := nft.SetSpender(tAlice, tMarket, id2); err != nil {
		t.Fatalf("approve: %v", err)
	}
	ord := types.FixedOrder{
		Key:             types.FixedOrderKey{Asset: tAsset, PaymentToken: tCash, Side: types.Sell},
		Maker:           tAlice,
		ExpirationBlock: 300,
	}
	ord.Key.TokenID.Set(id2)
	ord.Key.Price.Set(uint256.NewInt(900))
	if _, err := eng.SetOrder(types.Call{Sender: tAlice}, ord); err != nil {
		t.Fatalf("SetOrder: %v", err)
	}

	// A live auction with a standing bid, plus a brand registration.
	col, err := eng.CreateCollection(types.Call{Sender: tAlice}, 500)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := eng.AddToCollection(types.Call{Sender: tAlice}, tAsset, id, col.ID); err != nil {
		t.Fatalf("AddToCollection: %v", err)
	}
	param := types.ListingParam{Asset: tAsset, PaymentToken: tCash, ExpirationBlock: 200}
	param.TokenID.Set(id)
	param.StartAmount.Set(uint256.NewInt(1000))
	if _, err := eng.Start(types.Call{Sender: tAlice}, param); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Bid(types.Call{Sender: tBob}, tAsset, id, uint256.NewInt(2000), tBob); err != nil {
		t.Fatalf("bid: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen and rebuild; the restored state must carry everything the live
	// engine held.
	s2 := openStore(t, dir)
	defer s2.Close()
	st, ok, err := s2.LoadState()
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted state")
	}

	restored, _, _ := newEngine(t, s2, st)

	cfg := restored.Config()
	if cfg.Owner != tOwner || cfg.ServiceFeeBps != 250 || cfg.ServiceFeeRecipient != tFee {
		t.Fatalf("restored config = %+v", cfg)
	}
	if !restored.IsAllowed(tAlice) || !restored.IsAllowed(tBob) {
		t.Fatal("allowlist should survive restart")
	}

	if got, ok := restored.FixedOrder(ord.Key); !ok || got.Maker != tAlice || got.ExpirationBlock != 300 {
		t.Fatalf("restored order = %+v, ok=%v", got, ok)
	}

	tok := types.TokenKey{Asset: tAsset}
	tok.TokenID.Set(id)
	listing, bid, ok := restored.Listing(tok)
	if !ok {
		t.Fatal("restored listing missing")
	}
	if listing.Seller != tAlice || listing.ServiceFeeBps != 250 {
		t.Fatalf("restored listing = %+v", listing)
	}
	if listing.CommissionBps != 0 {
		// The marketplace was never registered with the collection side.
		t.Fatalf("restored commission = %d, want 0", listing.CommissionBps)
	}
	if bid == nil || bid.Bidder != tBob || !bid.Amount.Eq(uint256.NewInt(2000)) {
		t.Fatalf("restored bid = %+v", bid)
	}

	if c, ok := restored.Collection(col.ID); !ok || c.BrandOwner != tAlice || c.CommissionBps != 500 {
		t.Fatalf("restored collection = %+v, ok=%v", c, ok)
	}
	if c, ok := restored.CollectionOf(tok); !ok || c.ID != col.ID {
		t.Fatalf("restored item registration = %+v, ok=%v", c, ok)
	}
}

func TestEscrowAndClaimSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	eng, nft, cash := newEngine(t, s, nil)

	id := uint256.NewInt(1)
	if err := nft.Mint(tAlice, id); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := nft.SetSpender(tAlice, tMarket, id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	cash.Mint(tBob, uint256.NewInt(1000))
	if err := cash.IncreaseAllowance(tBob, tMarket, uint256.NewInt(1000)); err != nil {
		t.Fatalf("allowance: %v", err)
	}

	param := types.ListingParam{Asset: tAsset, PaymentToken: tCash, ExpirationBlock: 200}
	param.TokenID.Set(id)
	param.StartAmount.Set(uint256.NewInt(500))
	if _, err := eng.Start(types.Call{Sender: tAlice}, param); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Bid(types.Call{Sender: tBob}, tAsset, id, uint256.NewInt(1000), tBob); err != nil {
		t.Fatalf("bid: %v", err)
	}
	// Early settlement by the bidder: escrow credits and the asset claim are
	// the records that must survive the restart.
	if _, err := eng.End(types.Call{Sender: tBob}, tAsset, id); err != nil {
		t.Fatalf("End: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s2 := openStore(t, dir)
	defer s2.Close()
	st, ok, err := s2.LoadState()
	if err != nil || !ok {
		t.Fatalf("LoadState: ok=%v err=%v", ok, err)
	}
	restored, _, _ := newEngine(t, s2, st)

	if got := restored.EscrowBalance(tAlice, tCash); !got.Eq(uint256.NewInt(975)) {
		t.Fatalf("restored seller escrow = %s, want 975", got.Dec())
	}
	if got := restored.EscrowBalance(tFee, tCash); !got.Eq(uint256.NewInt(25)) {
		t.Fatalf("restored fee escrow = %s, want 25", got.Dec())
	}
	tok := types.TokenKey{Asset: tAsset}
	tok.TokenID.Set(id)
	if !restored.HasAssetClaim(tBob, tok) {
		t.Fatal("asset claim should survive restart")
	}
	if _, _, ok := restored.Listing(tok); ok {
		t.Fatal("settled listing should not reappear")
	}
}

func TestDeletedRecordsStayDeleted(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	eng, nft, _ := newEngine(t, s, nil)

	id := uint256.NewInt(1)
	if err := nft.Mint(tAlice, id); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := nft.SetSpender(tAlice, tMarket, id); err != nil {
		t.Fatalf("approve: %v", err)
	}

	ord := types.FixedOrder{
		Key:             types.FixedOrderKey{Asset: tAsset, PaymentToken: tCash, Side: types.Sell},
		Maker:           tAlice,
		ExpirationBlock: 300,
	}
	ord.Key.TokenID.Set(id)
	ord.Key.Price.Set(uint256.NewInt(100))
	if _, err := eng.SetOrder(types.Call{Sender: tAlice}, ord); err != nil {
		t.Fatalf("SetOrder: %v", err)
	}
	if _, err := eng.CancelOrder(types.Call{Sender: tAlice},
		ord.Key.Asset, &ord.Key.TokenID, ord.Key.PaymentToken, &ord.Key.Price, ord.Key.Side); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s2 := openStore(t, dir)
	defer s2.Close()
	st, ok, err := s2.LoadState()
	if err != nil || !ok {
		t.Fatalf("LoadState: ok=%v err=%v", ok, err)
	}
	restored, _, _ := newEngine(t, s2, st)

	if _, ok := restored.FixedOrder(ord.Key); ok {
		t.Fatal("cancelled order should not survive restart")
	}
}
