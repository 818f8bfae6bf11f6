package engine

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/zrcswap/zrcswap/pkg/token"
	"github.com/zrcswap/zrcswap/pkg/types"
)

var (
	marketAddr  = common.HexToAddress("0x00000000000000000000000000000000000000EE")
	ownerAddr   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	feeAcct     = common.HexToAddress("0x0000000000000000000000000000000000000002")
	royaltyAcct = common.HexToAddress("0x0000000000000000000000000000000000000003")
	brandAcct   = common.HexToAddress("0x0000000000000000000000000000000000000004")
	alice       = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob         = common.HexToAddress("0xBB00000000000000000000000000000000000000")
	carol       = common.HexToAddress("0xCC00000000000000000000000000000000000000")
	mallory     = common.HexToAddress("0xDD00000000000000000000000000000000000000")
	assetAddr   = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	cashAddr    = common.HexToAddress("0x00000000000000000000000000000000000000F1")
)

type manualBlocks struct{ h uint64 }

func (m *manualBlocks) Height() uint64 { return m.h }

// fixture is a fully wired engine over in-memory token backends: one
// fungible payment token, one asset contract, no persistence.
type fixture struct {
	t      *testing.T
	eng    *Engine
	blocks *manualBlocks
	native *token.Ledger
	cash   *token.Ledger
	nft    *token.NFT
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	native := token.NewNative()
	cash := token.NewLedger()
	nft := token.NewNFT()
	reg := token.NewRegistry(native)
	reg.RegisterPayment(cashAddr, cash)
	reg.RegisterAsset(assetAddr, nft)

	blocks := &manualBlocks{h: 100}
	eng := New(Params{
		Address:             marketAddr,
		Owner:               ownerAddr,
		ServiceFeeRecipient: feeAcct,
		ServiceFeeBps:       250,
	}, reg, blocks, nil, nil)

	ownerCall := types.Call{Sender: ownerAddr}
	for _, a := range []common.Address{alice, bob, carol} {
		if err := eng.SetAllowlist(ownerCall, a); err != nil {
			t.Fatalf("seed allowlist: %v", err)
		}
	}
	if err := eng.AllowPaymentTokenAddress(ownerCall, cashAddr); err != nil {
		t.Fatalf("allow payment token: %v", err)
	}

	return &fixture{t: t, eng: eng, blocks: blocks, native: native, cash: cash, nft: nft}
}

// mintApproved mints a token and approves the marketplace as spender.
func (f *fixture) mintApproved(to common.Address, id uint64) *uint256.Int {
	f.t.Helper()
	tid := uint256.NewInt(id)
	if err := f.nft.Mint(to, tid); err != nil {
		f.t.Fatalf("mint: %v", err)
	}
	if err := f.nft.SetSpender(to, marketAddr, tid); err != nil {
		f.t.Fatalf("approve: %v", err)
	}
	return tid
}

// fund mints payment tokens and grants the marketplace a matching allowance.
func (f *fixture) fund(acct common.Address, amount uint64) {
	f.t.Helper()
	f.cash.Mint(acct, uint256.NewInt(amount))
	if err := f.cash.IncreaseAllowance(acct, marketAddr, uint256.NewInt(amount)); err != nil {
		f.t.Fatalf("allowance: %v", err)
	}
}

func (f *fixture) sellOrder(maker common.Address, id *uint256.Int, price uint64, expiration uint64) types.FixedOrder {
	key := types.FixedOrderKey{Asset: assetAddr, PaymentToken: cashAddr, Side: types.Sell}
	key.TokenID.Set(id)
	key.Price.Set(uint256.NewInt(price))
	return types.FixedOrder{Key: key, Maker: maker, ExpirationBlock: expiration}
}

func (f *fixture) buyOrder(maker common.Address, id *uint256.Int, price uint64, expiration uint64) types.FixedOrder {
	ord := f.sellOrder(maker, id, price, expiration)
	ord.Key.Side = types.Buy
	return ord
}

func (f *fixture) listingParam(id *uint256.Int, start uint64, expiration uint64) types.ListingParam {
	p := types.ListingParam{Asset: assetAddr, PaymentToken: cashAddr, ExpirationBlock: expiration}
	p.TokenID.Set(id)
	p.StartAmount.Set(uint256.NewInt(start))
	return p
}

func tokKey(id *uint256.Int) types.TokenKey {
	tok := types.TokenKey{Asset: assetAddr}
	tok.TokenID.Set(id)
	return tok
}

func call(sender common.Address) types.Call { return types.Call{Sender: sender} }

func callWithValue(sender common.Address, value uint64) types.Call {
	return types.Call{Sender: sender, Value: uint256.NewInt(value)}
}

func expectCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil error", code)
	}
	if got := CodeOf(err); got != code {
		t.Fatalf("expected %s, got %v (%v)", code, got, err)
	}
}

func expectBalance(t *testing.T, l *token.Ledger, acct common.Address, want uint64) {
	t.Helper()
	if got := l.BalanceOf(acct); !got.Eq(uint256.NewInt(want)) {
		t.Fatalf("balance of %s = %s, want %d", acct.Hex(), got.Dec(), want)
	}
}

func expectEscrow(t *testing.T, eng *Engine, acct common.Address, want uint64) {
	t.Helper()
	if got := eng.EscrowBalance(acct, cashAddr); !got.Eq(uint256.NewInt(want)) {
		t.Fatalf("escrow of %s = %s, want %d", acct.Hex(), got.Dec(), want)
	}
}
