package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// State is the persisted ledger side of the logic/state split. It holds the
// order books, escrow credits, asset claims, and marketplace configuration,
// and nothing else: all business rules live in the Engine so that logic can
// be swapped without migrating accumulated escrow.
//
// Keys are flattened comparable structs rather than nested maps; when the
// last record under a composite key is removed, the key disappears with it.
type State struct {
	Owner  common.Address
	Paused bool

	Allowlist      map[common.Address]struct{}
	AllowedPayment map[common.Address]struct{}

	ServiceFeeRecipient common.Address
	ServiceFeeBps       uint64
	Royalties           map[common.Address]types.RoyaltyConfig

	FixedOrders map[types.FixedOrderKey]*types.FixedOrder
	Listings    map[types.TokenKey]*types.Listing
	Bids        map[types.TokenKey]*types.TopBid

	// Escrow and claims use flattened keys so inner maps never exist.
	Escrow map[escrowKey]*uint256.Int
	Claims map[claimKey]struct{}

	Items            map[types.TokenKey]uint64
	Collections      map[uint64]*types.Collection
	NextCollectionID uint64

	// Marketplace addresses the collection side has authorized to route
	// brand commissions.
	Marketplaces map[common.Address]struct{}

	BidSequence uint64
}

type escrowKey struct {
	Account      common.Address
	PaymentToken common.Address
}

type claimKey struct {
	Account common.Address
	Token   types.TokenKey
}

// NewState creates an empty state owned by the given address.
func NewState(owner common.Address) *State {
	return &State{
		Owner:          owner,
		Allowlist:      make(map[common.Address]struct{}),
		AllowedPayment: make(map[common.Address]struct{}),
		Royalties:      make(map[common.Address]types.RoyaltyConfig),
		FixedOrders:    make(map[types.FixedOrderKey]*types.FixedOrder),
		Listings:       make(map[types.TokenKey]*types.Listing),
		Bids:           make(map[types.TokenKey]*types.TopBid),
		Escrow:         make(map[escrowKey]*uint256.Int),
		Claims:         make(map[claimKey]struct{}),
		Items:          make(map[types.TokenKey]uint64),
		Collections:    make(map[uint64]*types.Collection),
		Marketplaces:   make(map[common.Address]struct{}),
	}
}

// creditEscrow adds to an account's owed balance, creating the entry lazily.
func (s *State) creditEscrow(account, payment common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	k := escrowKey{Account: account, PaymentToken: payment}
	if cur, ok := s.Escrow[k]; ok {
		cur.Add(cur, amount)
		return
	}
	s.Escrow[k] = amount.Clone()
}

// takeEscrow removes and returns an account's full owed balance.
func (s *State) takeEscrow(account, payment common.Address) (*uint256.Int, bool) {
	k := escrowKey{Account: account, PaymentToken: payment}
	cur, ok := s.Escrow[k]
	if !ok {
		return nil, false
	}
	delete(s.Escrow, k)
	return cur, true
}

func (s *State) escrowOf(account, payment common.Address) *uint256.Int {
	if cur, ok := s.Escrow[escrowKey{Account: account, PaymentToken: payment}]; ok {
		return cur.Clone()
	}
	return uint256.NewInt(0)
}

func (s *State) grantClaim(account common.Address, tok types.TokenKey) {
	s.Claims[claimKey{Account: account, Token: tok}] = struct{}{}
}

func (s *State) takeClaim(account common.Address, tok types.TokenKey) bool {
	k := claimKey{Account: account, Token: tok}
	if _, ok := s.Claims[k]; !ok {
		return false
	}
	delete(s.Claims, k)
	return true
}

func (s *State) hasClaim(account common.Address, tok types.TokenKey) bool {
	_, ok := s.Claims[claimKey{Account: account, Token: tok}]
	return ok
}

// RestoreEscrow seeds an owed balance while rebuilding state from disk.
func (s *State) RestoreEscrow(account, payment common.Address, amount *uint256.Int) {
	s.creditEscrow(account, payment, amount)
}

// RestoreClaim seeds an asset claim while rebuilding state from disk.
func (s *State) RestoreClaim(account common.Address, tok types.TokenKey) {
	s.grantClaim(account, tok)
}

// ApplyConfig overwrites the administrative slice of state from a persisted
// record.
func (s *State) ApplyConfig(cfg types.MarketConfig) {
	s.Owner = cfg.Owner
	s.Paused = cfg.Paused
	s.ServiceFeeRecipient = cfg.ServiceFeeRecipient
	s.ServiceFeeBps = cfg.ServiceFeeBps
	s.NextCollectionID = cfg.NextCollectionID
	s.BidSequence = cfg.BidSequence
	for _, a := range cfg.Allowlist {
		s.Allowlist[a] = struct{}{}
	}
	for _, a := range cfg.AllowedPayment {
		s.AllowedPayment[a] = struct{}{}
	}
	for _, a := range cfg.Marketplaces {
		s.Marketplaces[a] = struct{}{}
	}
	for a, rc := range cfg.Royalties {
		s.Royalties[a] = rc
	}
}

// royaltyFor returns the royalty routing for an asset contract; a missing
// entry means no royalty share.
func (s *State) royaltyFor(asset common.Address) types.RoyaltyConfig {
	if rc, ok := s.Royalties[asset]; ok {
		return rc
	}
	return types.RoyaltyConfig{}
}

// commissionFor resolves the frozen commission routing for a token at
// listing time: a registered item under a collection routes a brand share,
// but only while this marketplace is authorized by the collection side.
func (s *State) commissionFor(tok types.TokenKey, marketplace common.Address) (common.Address, uint64) {
	if _, ok := s.Marketplaces[marketplace]; !ok {
		return common.Address{}, 0
	}
	id, ok := s.Items[tok]
	if !ok {
		return common.Address{}, 0
	}
	col, ok := s.Collections[id]
	if !ok {
		return common.Address{}, 0
	}
	return col.BrandOwner, col.CommissionBps
}
