package engine

import (
	"github.com/holiman/uint256"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// Split is the exact division of a sale price. Integer floor division is
// used for every fee share; the rounding remainder always stays with the
// seller, so Royalty + Service + Commission + Seller == Price holds for
// every settlement.
type Split struct {
	Royalty    uint256.Int
	Service    uint256.Int
	Commission uint256.Int
	Seller     uint256.Int
}

// bpsShare computes price * bps / 10000 with floor division.
func bpsShare(price *uint256.Int, bps uint64) *uint256.Int {
	v := new(uint256.Int).Mul(price, uint256.NewInt(bps))
	return v.Div(v, uint256.NewInt(types.BpsDenominator))
}

// splitPrice divides price between royalty, service fee, commission, and
// seller share. Callers pass commissionBps == 0 when no commission layer
// applies (fixed-price sales, unregistered items).
func splitPrice(price *uint256.Int, royaltyBps, serviceBps, commissionBps uint64) Split {
	var sp Split
	sp.Royalty.Set(bpsShare(price, royaltyBps))
	sp.Service.Set(bpsShare(price, serviceBps))
	sp.Commission.Set(bpsShare(price, commissionBps))

	seller := new(uint256.Int).Set(price)
	seller.Sub(seller, &sp.Royalty)
	seller.Sub(seller, &sp.Service)
	seller.Sub(seller, &sp.Commission)
	sp.Seller.Set(seller)
	return sp
}

// validBps bounds a fee configuration so that the combined rates can never
// exceed the price.
func validBps(bps ...uint64) bool {
	var total uint64
	for _, b := range bps {
		total += b
	}
	return total <= types.BpsDenominator
}
