// Package engine implements the marketplace settlement core: fixed-price
// order matching, English auctions, the escrow ledger, collection commission
// routing, and the access-control gates, over a swappable logic/state split.
package engine

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/zrcswap/zrcswap/pkg/token"
	"github.com/zrcswap/zrcswap/pkg/types"
)

// BlockSource supplies the canonical block height. "Expired" is a pure
// function of (current height, stored expiration height); there is no wall
// clock anywhere in the engine.
type BlockSource interface {
	Height() uint64
}

// Persister receives targeted record writes after each successful
// transition. A nil Persister runs the engine purely in memory (tests).
type Persister interface {
	PutFixedOrder(*types.FixedOrder) error
	DeleteFixedOrder(types.FixedOrderKey) error
	PutListing(*types.Listing) error
	DeleteListing(types.TokenKey) error
	PutBid(*types.TopBid) error
	DeleteBid(types.TokenKey) error
	PutEscrow(types.EscrowEntry) error
	DeleteEscrow(account, payment common.Address) error
	PutClaim(types.AssetClaim) error
	DeleteClaim(types.AssetClaim) error
	PutItem(types.TokenKey, uint64) error
	PutCollection(*types.Collection) error
	PutConfig(types.MarketConfig) error
}

// Params is the construction-time wiring of an Engine.
type Params struct {
	// Address the engine acts under when it calls token contracts: asset
	// custody and escrow payouts all originate here.
	Address common.Address
	Owner   common.Address

	ServiceFeeRecipient common.Address
	ServiceFeeBps       uint64
}

// Engine is the settlement logic bound to an injected State. All business
// rules live here; swapping the Engine (see Proxy) keeps the State and with
// it every accumulated escrow balance.
//
// One mutex serializes transitions, standing in for the source ledger's
// one-call-at-a-time execution. Each transition re-validates its entire
// precondition set under the lock; there is no separate observe step.
type Engine struct {
	mu sync.RWMutex

	st     *State
	access *AccessControl
	tokens *token.Registry
	blocks BlockSource
	store  Persister

	addr common.Address
	log  *zap.SugaredLogger
	bus  *eventBus

	journal []types.Event
}

// New creates an engine over a fresh State seeded from params.
func New(p Params, tokens *token.Registry, blocks BlockSource, store Persister, log *zap.SugaredLogger) *Engine {
	st := NewState(p.Owner)
	st.ServiceFeeRecipient = p.ServiceFeeRecipient
	st.ServiceFeeBps = p.ServiceFeeBps
	return NewWithState(st, p.Address, tokens, blocks, store, log)
}

// NewWithState binds new logic to an existing State. This is the upgrade
// path: build a replacement Engine over the running State and swap it into
// the Proxy without touching the ledger.
func NewWithState(st *State, addr common.Address, tokens *token.Registry, blocks BlockSource, store Persister, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e := &Engine{
		st:     st,
		access: NewAccessControl(st),
		tokens: tokens,
		blocks: blocks,
		store:  store,
		addr:   addr,
		log:    log,
		bus:    newEventBus(),
	}
	return e
}

// State exposes the underlying state handle for upgrades and tests.
func (e *Engine) State() *State { return e.st }

// Address returns the engine's own account address.
func (e *Engine) Address() common.Address { return e.addr }

// Subscribe returns a channel of future settlement events.
func (e *Engine) Subscribe() <-chan types.Event {
	return e.bus.Subscribe()
}

// Events returns a snapshot of the event journal.
func (e *Engine) Events() []types.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Event, len(e.journal))
	copy(out, e.journal)
	return out
}

func (e *Engine) emit(ev types.Event) {
	e.journal = append(e.journal, ev)
	e.bus.publish(ev)
	e.log.Infow("event", "kind", ev.Kind())
}

func (e *Engine) height() uint64 { return e.blocks.Height() }

// expired reports whether a stored expiration height has passed: a height
// of exactly expiration is already expired.
func (e *Engine) expired(expiration uint64) bool {
	return e.height() >= expiration
}

// persist runs targeted record writes when a store is attached. The store
// write happens after the in-memory mutation; a write failure is surfaced
// to the caller and logged, matching the durability model of the account
// ledger this engine grew out of.
func (e *Engine) persist(f func(p Persister) error) error {
	if e.store == nil {
		return nil
	}
	if err := f(e.store); err != nil {
		e.log.Errorw("persist failed", "err", err)
		return err
	}
	return nil
}

func (e *Engine) persistConfig() error {
	return e.persist(func(p Persister) error {
		return p.PutConfig(e.configRecord())
	})
}

func (e *Engine) configRecord() types.MarketConfig {
	cfg := types.MarketConfig{
		Owner:               e.st.Owner,
		Paused:              e.st.Paused,
		ServiceFeeRecipient: e.st.ServiceFeeRecipient,
		ServiceFeeBps:       e.st.ServiceFeeBps,
		Royalties:           make(map[common.Address]types.RoyaltyConfig, len(e.st.Royalties)),
		NextCollectionID:    e.st.NextCollectionID,
		BidSequence:         e.st.BidSequence,
	}
	for a := range e.st.Allowlist {
		cfg.Allowlist = append(cfg.Allowlist, a)
	}
	for a := range e.st.AllowedPayment {
		cfg.AllowedPayment = append(cfg.AllowedPayment, a)
	}
	for a := range e.st.Marketplaces {
		cfg.Marketplaces = append(cfg.Marketplaces, a)
	}
	for a, rc := range e.st.Royalties {
		cfg.Royalties[a] = rc
	}
	return cfg
}

// ---- read surface ----

// FixedOrder returns the standing order for an identity key, if any.
func (e *Engine) FixedOrder(key types.FixedOrderKey) (*types.FixedOrder, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	o, ok := e.st.FixedOrders[key]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

// OrdersForToken returns every standing fixed-price order on a token.
func (e *Engine) OrdersForToken(tok types.TokenKey) []*types.FixedOrder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*types.FixedOrder
	for k, o := range e.st.FixedOrders {
		if k.Token() == tok {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out
}

// Listing returns the active auction listing and top bid for a token.
func (e *Engine) Listing(tok types.TokenKey) (*types.Listing, *types.TopBid, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.st.Listings[tok]
	if !ok {
		return nil, nil, false
	}
	lc := *l
	if b, ok := e.st.Bids[tok]; ok {
		bc := *b
		return &lc, &bc, true
	}
	return &lc, nil, true
}

// EscrowBalance returns the amount owed to an account in a payment token.
func (e *Engine) EscrowBalance(account, payment common.Address) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.escrowOf(account, payment)
}

// HasAssetClaim reports whether an account can withdraw a token.
func (e *Engine) HasAssetClaim(account common.Address, tok types.TokenKey) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.hasClaim(account, tok)
}

// CollectionOf resolves the collection an item is registered under.
func (e *Engine) CollectionOf(tok types.TokenKey) (*types.Collection, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.st.Items[tok]
	if !ok {
		return nil, false
	}
	col, ok := e.st.Collections[id]
	if !ok {
		return nil, false
	}
	cp := *col
	return &cp, true
}

// Collection returns a registered collection by id.
func (e *Engine) Collection(id uint64) (*types.Collection, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	col, ok := e.st.Collections[id]
	if !ok {
		return nil, false
	}
	cp := *col
	return &cp, true
}

// IsPaused reports the global pause flag.
func (e *Engine) IsPaused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.Paused
}

// IsAllowed reports allow-list membership for an address.
func (e *Engine) IsAllowed(addr common.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.access.IsAllowed(addr)
}

// Config returns a snapshot of the administrative state.
func (e *Engine) Config() types.MarketConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.configRecord()
}
