package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// The collection registry groups assets under brands. Registration is
// optional: an item outside any collection simply settles without a
// commission share. Commission rates are read at listing time and frozen on
// the listing, so registry edits never reprice a live auction.

// CreateCollection registers a new brand collection owned by the caller.
func (e *Engine) CreateCollection(call types.Call, commissionBps uint64) (*types.Collection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireNotPaused(g); err != nil {
		return nil, err
	}
	if err := e.access.requireAllowedUser(g, call.Sender); err != nil {
		return nil, err
	}
	g.check("IsValidBps")
	if !validBps(commissionBps) {
		return nil, g.fail(CodeInvalidBps, "commission %d bps exceeds %d", commissionBps, types.BpsDenominator)
	}

	e.st.NextCollectionID++
	col := &types.Collection{
		ID:            e.st.NextCollectionID,
		BrandOwner:    call.Sender,
		CommissionBps: commissionBps,
	}
	e.st.Collections[col.ID] = col

	if err := e.persist(func(p Persister) error {
		if err := p.PutCollection(col); err != nil {
			return err
		}
		return p.PutConfig(e.configRecord())
	}); err != nil {
		return nil, err
	}
	cp := *col
	return &cp, nil
}

// AddToCollection places an item under a collection. Only the brand owner
// may register items against their collection.
func (e *Engine) AddToCollection(call types.Call, asset common.Address, tokenID *uint256.Int, collectionID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireNotPaused(g); err != nil {
		return err
	}
	if err := e.access.requireAllowedUser(g, call.Sender); err != nil {
		return err
	}

	g.check("CollectionExists")
	col, ok := e.st.Collections[collectionID]
	if !ok {
		return g.fail(CodeCollectionNotFound, "collection %d does not exist", collectionID)
	}
	g.check("IsBrandOwner")
	if col.BrandOwner != call.Sender {
		return g.fail(CodeNotBrandOwner, "%s does not own collection %d", call.Sender.Hex(), collectionID)
	}

	tok := types.TokenKey{Asset: asset}
	tok.TokenID.Set(tokenID)
	e.st.Items[tok] = collectionID

	return e.persist(func(p Persister) error {
		return p.PutItem(tok, collectionID)
	})
}

// RegisterMarketplaceAddress is the collection-side authorization of a
// marketplace: commission routing only applies while the settling
// marketplace address is registered here.
func (e *Engine) RegisterMarketplaceAddress(call types.Call, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &guard{}
	if err := e.access.requireOwner(g, call.Sender); err != nil {
		return err
	}
	e.st.Marketplaces[addr] = struct{}{}
	return e.persistConfig()
}
