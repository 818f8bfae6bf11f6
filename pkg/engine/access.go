package engine

import (
	"github.com/ethereum/go-ethereum/common"
)

// AccessControl is the allow-list gate consulted by every mutating
// operation. Checks are pure reads; pause and membership changes are
// owner-only administrative mutations handled by the Engine.
type AccessControl struct {
	st *State
}

func NewAccessControl(st *State) *AccessControl {
	return &AccessControl{st: st}
}

// IsAllowed reports allow-list membership. The contract owner is always
// allowed.
func (a *AccessControl) IsAllowed(addr common.Address) bool {
	if addr == a.st.Owner {
		return true
	}
	_, ok := a.st.Allowlist[addr]
	return ok
}

func (a *AccessControl) requireNotPaused(g *guard) error {
	g.check("IsNotPaused")
	if a.st.Paused {
		return g.fail(CodePaused, "marketplace is paused")
	}
	return nil
}

func (a *AccessControl) requirePaused(g *guard) error {
	g.check("IsPaused")
	if !a.st.Paused {
		return g.fail(CodeNotPaused, "marketplace is not paused")
	}
	return nil
}

func (a *AccessControl) requireAllowedUser(g *guard, addr common.Address) error {
	g.check("IsAllowedUser")
	if !a.IsAllowed(addr) {
		return g.fail(CodeNotAllowedUser, "%s is not on the allowlist", addr.Hex())
	}
	return nil
}

func (a *AccessControl) requireOwner(g *guard, addr common.Address) error {
	g.check("IsContractOwner")
	if addr != a.st.Owner {
		return g.fail(CodeNotContractOwner, "%s is not the contract owner", addr.Hex())
	}
	return nil
}

func (a *AccessControl) requireAllowedPayment(g *guard, payment common.Address) error {
	g.check("IsAllowedPaymentToken")
	if payment == (common.Address{}) {
		// Native currency is always an allowed payment rail.
		return nil
	}
	if _, ok := a.st.AllowedPayment[payment]; !ok {
		return g.fail(CodeNotAllowedPaymentToken, "payment token %s is not allowed", payment.Hex())
	}
	return nil
}
