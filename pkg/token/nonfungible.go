package token

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// NFT is the in-memory reference NonFungible: single owner and at most one
// approved spender per token.
type NFT struct {
	mu       sync.Mutex
	owners   map[uint256.Int]common.Address
	spenders map[uint256.Int]common.Address
}

func NewNFT() *NFT {
	return &NFT{
		owners:   make(map[uint256.Int]common.Address),
		spenders: make(map[uint256.Int]common.Address),
	}
}

// Mint assigns a fresh token to an owner. Test and fixture use only.
func (n *NFT) Mint(to common.Address, tokenID *uint256.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.owners[*tokenID]; ok {
		return errors.Errorf("token %s already minted", tokenID.Dec())
	}
	n.owners[*tokenID] = to
	return nil
}

func (n *NFT) OwnerOf(tokenID *uint256.Int) (common.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	owner, ok := n.owners[*tokenID]
	if !ok {
		return common.Address{}, errors.Errorf("token %s does not exist", tokenID.Dec())
	}
	return owner, nil
}

func (n *NFT) Spender(tokenID *uint256.Int) (common.Address, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.spenders[*tokenID]
	return s, ok
}

func (n *NFT) SetSpender(caller, spender common.Address, tokenID *uint256.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	owner, ok := n.owners[*tokenID]
	if !ok {
		return errors.Errorf("token %s does not exist", tokenID.Dec())
	}
	if owner != caller {
		return errors.Errorf("%s is not the owner of token %s", caller.Hex(), tokenID.Dec())
	}
	n.spenders[*tokenID] = spender
	return nil
}

func (n *NFT) TransferFrom(caller, from, to common.Address, tokenID *uint256.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	owner, ok := n.owners[*tokenID]
	if !ok {
		return errors.Errorf("token %s does not exist", tokenID.Dec())
	}
	if owner != from {
		return errors.Errorf("%s does not own token %s", from.Hex(), tokenID.Dec())
	}
	spender, approved := n.spenders[*tokenID]
	if caller != owner && (!approved || spender != caller) {
		return errors.Errorf("%s is neither owner nor spender of token %s", caller.Hex(), tokenID.Dec())
	}
	n.owners[*tokenID] = to
	// Approval does not survive a transfer.
	delete(n.spenders, *tokenID)
	return nil
}
