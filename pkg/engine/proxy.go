package engine

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// Logic is the full transition surface of the settlement engine. The proxy
// forwards to whichever Logic is current; outside a blockchain deployment
// the address-level indirection collapses to a swappable interface value,
// which is all the upgradability the state/logic split actually needs.
type Logic interface {
	SetOrder(call types.Call, ord types.FixedOrder) (*types.SetOrderEvent, error)
	CreateOrder(call types.Call, ord types.FixedOrder) (*types.SetOrderEvent, error)
	FulfillOrder(call types.Call, asset common.Address, tokenID *uint256.Int,
		paymentToken common.Address, price *uint256.Int, side types.Side, dest common.Address) (*types.FulfillOrderEvent, error)
	CancelOrder(call types.Call, asset common.Address, tokenID *uint256.Int,
		paymentToken common.Address, price *uint256.Int, side types.Side) (*types.CancelOrderEvent, error)

	Start(call types.Call, param types.ListingParam) (*types.StartEvent, error)
	Bid(call types.Call, asset common.Address, tokenID *uint256.Int, amount *uint256.Int, dest common.Address) (*types.BidEvent, error)
	Cancel(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.CancelEvent, error)
	End(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.EndEvent, error)

	WithdrawPaymentTokens(call types.Call, paymentToken common.Address) (*types.WithdrawPaymentTokensEvent, error)
	WithdrawAsset(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.WithdrawAssetEvent, error)

	Pause(call types.Call) error
	Unpause(call types.Call) error
	SetAllowlist(call types.Call, addr common.Address) error
	RemoveFromAllowlist(call types.Call, addr common.Address) error
	AllowPaymentTokenAddress(call types.Call, addr common.Address) error
	DisallowPaymentTokenAddress(call types.Call, addr common.Address) error
	SetServiceFee(call types.Call, recipient common.Address, bps uint64) error
	SetRoyalty(call types.Call, asset, recipient common.Address, bps uint64) error
	TransferOwnership(call types.Call, newOwner common.Address) error
	RegisterMarketplaceAddress(call types.Call, addr common.Address) error
	CreateCollection(call types.Call, commissionBps uint64) (*types.Collection, error)
	AddToCollection(call types.Call, asset common.Address, tokenID *uint256.Int, collectionID uint64) error
}

var _ Logic = (*Engine)(nil)

// Proxy is the thin forwarding layer in front of the settlement logic. It
// holds no business rules: it forwards each call with the caller identity
// untouched and lets Upgrade swap the logic pointer while the underlying
// State — the escrow ledger being the costliest thing to lose — stays put.
type Proxy struct {
	mu    sync.RWMutex
	logic Logic
}

func NewProxy(l Logic) *Proxy {
	return &Proxy{logic: l}
}

// Upgrade swaps in replacement logic. The new logic must have been built
// over the same State handle (see NewWithState); the proxy cannot check
// that, it only performs the swap.
func (p *Proxy) Upgrade(l Logic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logic = l
}

// Current returns the active logic, for introspection.
func (p *Proxy) Current() Logic {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logic
}

func (p *Proxy) SetOrder(call types.Call, ord types.FixedOrder) (*types.SetOrderEvent, error) {
	return p.Current().SetOrder(call, ord)
}

func (p *Proxy) CreateOrder(call types.Call, ord types.FixedOrder) (*types.SetOrderEvent, error) {
	return p.Current().CreateOrder(call, ord)
}

func (p *Proxy) FulfillOrder(call types.Call, asset common.Address, tokenID *uint256.Int,
	paymentToken common.Address, price *uint256.Int, side types.Side, dest common.Address) (*types.FulfillOrderEvent, error) {
	return p.Current().FulfillOrder(call, asset, tokenID, paymentToken, price, side, dest)
}

func (p *Proxy) CancelOrder(call types.Call, asset common.Address, tokenID *uint256.Int,
	paymentToken common.Address, price *uint256.Int, side types.Side) (*types.CancelOrderEvent, error) {
	return p.Current().CancelOrder(call, asset, tokenID, paymentToken, price, side)
}

func (p *Proxy) Start(call types.Call, param types.ListingParam) (*types.StartEvent, error) {
	return p.Current().Start(call, param)
}

func (p *Proxy) Bid(call types.Call, asset common.Address, tokenID *uint256.Int, amount *uint256.Int, dest common.Address) (*types.BidEvent, error) {
	return p.Current().Bid(call, asset, tokenID, amount, dest)
}

func (p *Proxy) Cancel(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.CancelEvent, error) {
	return p.Current().Cancel(call, asset, tokenID)
}

func (p *Proxy) End(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.EndEvent, error) {
	return p.Current().End(call, asset, tokenID)
}

func (p *Proxy) WithdrawPaymentTokens(call types.Call, paymentToken common.Address) (*types.WithdrawPaymentTokensEvent, error) {
	return p.Current().WithdrawPaymentTokens(call, paymentToken)
}

func (p *Proxy) WithdrawAsset(call types.Call, asset common.Address, tokenID *uint256.Int) (*types.WithdrawAssetEvent, error) {
	return p.Current().WithdrawAsset(call, asset, tokenID)
}

func (p *Proxy) Pause(call types.Call) error   { return p.Current().Pause(call) }
func (p *Proxy) Unpause(call types.Call) error { return p.Current().Unpause(call) }

func (p *Proxy) SetAllowlist(call types.Call, addr common.Address) error {
	return p.Current().SetAllowlist(call, addr)
}

func (p *Proxy) RemoveFromAllowlist(call types.Call, addr common.Address) error {
	return p.Current().RemoveFromAllowlist(call, addr)
}

func (p *Proxy) AllowPaymentTokenAddress(call types.Call, addr common.Address) error {
	return p.Current().AllowPaymentTokenAddress(call, addr)
}

func (p *Proxy) DisallowPaymentTokenAddress(call types.Call, addr common.Address) error {
	return p.Current().DisallowPaymentTokenAddress(call, addr)
}

func (p *Proxy) SetServiceFee(call types.Call, recipient common.Address, bps uint64) error {
	return p.Current().SetServiceFee(call, recipient, bps)
}

func (p *Proxy) SetRoyalty(call types.Call, asset, recipient common.Address, bps uint64) error {
	return p.Current().SetRoyalty(call, asset, recipient, bps)
}

func (p *Proxy) TransferOwnership(call types.Call, newOwner common.Address) error {
	return p.Current().TransferOwnership(call, newOwner)
}

func (p *Proxy) RegisterMarketplaceAddress(call types.Call, addr common.Address) error {
	return p.Current().RegisterMarketplaceAddress(call, addr)
}

func (p *Proxy) CreateCollection(call types.Call, commissionBps uint64) (*types.Collection, error) {
	return p.Current().CreateCollection(call, commissionBps)
}

func (p *Proxy) AddToCollection(call types.Call, asset common.Address, tokenID *uint256.Int, collectionID uint64) error {
	return p.Current().AddToCollection(call, asset, tokenID, collectionID)
}

var _ Logic = (*Proxy)(nil)
