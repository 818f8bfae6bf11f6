package token

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// allowanceKey flattens (owner, spender) into one comparable key so that a
// fully spent allowance is deleted outright instead of lingering as a zero.
type allowanceKey struct {
	Owner   common.Address
	Spender common.Address
}

// Ledger is the in-memory reference Fungible. It enforces balance and
// allowance checks exactly; devnet faucets mint into it directly.
type Ledger struct {
	mu         sync.Mutex
	balances   map[common.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int

	// attached relaxes TransferFrom for the native backend: value attached
	// to a call stands in for an explicit allowance grant.
	attached bool
}

// NewLedger creates a fungible token backend with allowance enforcement.
func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
}

// NewNative creates the native-currency backend. Attaching value to a call
// is the native analogue of an allowance, so TransferFrom only checks the
// payer's balance.
func NewNative() *Ledger {
	l := NewLedger()
	l.attached = true
	return l
}

// Mint credits an account out of thin air. Test and faucet use only.
func (l *Ledger) Mint(to common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
}

func (l *Ledger) BalanceOf(addr common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[addr]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.allowances[allowanceKey{owner, spender}]; ok {
		return a.Clone()
	}
	return uint256.NewInt(0)
}

func (l *Ledger) IncreaseAllowance(caller, spender common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := allowanceKey{caller, spender}
	sum := new(uint256.Int)
	if cur, ok := l.allowances[k]; ok {
		sum.Set(cur)
	}
	// Stored state is untouched until the addition is known to fit.
	if _, overflow := sum.AddOverflow(sum, amount); overflow {
		return errors.New("allowance overflow")
	}
	l.allowances[k] = sum
	return nil
}

func (l *Ledger) Transfer(caller, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(caller, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

func (l *Ledger) TransferFrom(caller, from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.attached && caller != from {
		k := allowanceKey{from, caller}
		allow, ok := l.allowances[k]
		if !ok || allow.Lt(amount) {
			return errors.Errorf("insufficient allowance: %s granted %s to %s, need %s",
				from.Hex(), l.allowanceLocked(from, caller).Dec(), caller.Hex(), amount.Dec())
		}
		allow.Sub(allow, amount)
		if allow.IsZero() {
			delete(l.allowances, k)
		}
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

func (l *Ledger) allowanceLocked(owner, spender common.Address) *uint256.Int {
	if a, ok := l.allowances[allowanceKey{owner, spender}]; ok {
		return a
	}
	return uint256.NewInt(0)
}

func (l *Ledger) credit(to common.Address, amount *uint256.Int) {
	if b, ok := l.balances[to]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[to] = amount.Clone()
}

func (l *Ledger) debit(from common.Address, amount *uint256.Int) error {
	b, ok := l.balances[from]
	if !ok || b.Lt(amount) {
		return errors.Errorf("insufficient balance: %s has %s, need %s",
			from.Hex(), l.balanceLocked(from).Dec(), amount.Dec())
	}
	b.Sub(b, amount)
	if b.IsZero() {
		delete(l.balances, from)
	}
	return nil
}

func (l *Ledger) balanceLocked(addr common.Address) *uint256.Int {
	if b, ok := l.balances[addr]; ok {
		return b
	}
	return uint256.NewInt(0)
}
