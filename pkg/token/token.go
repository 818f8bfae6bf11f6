// Package token defines the interfaces the settlement engine uses to talk
// to external token contracts, plus in-memory reference backends for tests
// and the devnet daemon. The engine never reimplements a token standard; it
// consumes transfer-and-callback semantics through these interfaces.
package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Fungible is a ZRC2-style payment token viewed from the engine. Calls are
// synchronous; a non-nil error means nothing moved.
type Fungible interface {
	BalanceOf(addr common.Address) *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	// Transfer moves caller's own funds to another account.
	Transfer(caller, to common.Address, amount *uint256.Int) error
	// TransferFrom spends caller's allowance on from's funds.
	TransferFrom(caller, from, to common.Address, amount *uint256.Int) error
	// IncreaseAllowance raises spender's allowance over caller's funds.
	IncreaseAllowance(caller, spender common.Address, amount *uint256.Int) error
}

// NonFungible is a ZRC6-style asset contract viewed from the engine.
type NonFungible interface {
	OwnerOf(tokenID *uint256.Int) (common.Address, error)
	// Spender returns the approved transfer spender for a token, if any.
	Spender(tokenID *uint256.Int) (common.Address, bool)
	// SetSpender approves spender for a single token; caller must own it.
	SetSpender(caller, spender common.Address, tokenID *uint256.Int) error
	// TransferFrom moves a token; caller must be the owner or its spender.
	TransferFrom(caller, from, to common.Address, tokenID *uint256.Int) error
}

// Registry resolves payment-token and asset-contract addresses to their
// backends. The zero address always resolves to the native-currency backend.
type Registry struct {
	native   Fungible
	payments map[common.Address]Fungible
	assets   map[common.Address]NonFungible
}

func NewRegistry(native Fungible) *Registry {
	return &Registry{
		native:   native,
		payments: make(map[common.Address]Fungible),
		assets:   make(map[common.Address]NonFungible),
	}
}

func (r *Registry) RegisterPayment(addr common.Address, f Fungible) {
	r.payments[addr] = f
}

func (r *Registry) RegisterAsset(addr common.Address, n NonFungible) {
	r.assets[addr] = n
}

// Payment resolves a payment-token address; the zero address yields the
// native backend.
func (r *Registry) Payment(addr common.Address) (Fungible, error) {
	if addr == (common.Address{}) {
		return r.native, nil
	}
	f, ok := r.payments[addr]
	if !ok {
		return nil, errors.Errorf("payment token %s has no backend", addr.Hex())
	}
	return f, nil
}

func (r *Registry) Asset(addr common.Address) (NonFungible, error) {
	n, ok := r.assets[addr]
	if !ok {
		return nil, errors.Errorf("asset contract %s has no backend", addr.Hex())
	}
	return n, nil
}
