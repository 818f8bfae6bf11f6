package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// Key schema for the Pebble store. One record per live entity, keyed by
// its identity so targeted writes and deletes need no read-modify cycle:
//
//   ord:<asset>:<tokenID>:<payment>:<price>:<side> → FixedOrder
//   lst:<asset>:<tokenID>                          → Listing
//   bid:<asset>:<tokenID>                          → TopBid
//   esc:<account>:<payment>                        → EscrowEntry
//   clm:<account>:<asset>:<tokenID>                → AssetClaim
//   itm:<asset>:<tokenID>                          → item record
//   col:<id>                                       → Collection
//   cfg                                            → MarketConfig

const (
	prefixOrder      = "ord:"
	prefixListing    = "lst:"
	prefixBid        = "bid:"
	prefixEscrow     = "esc:"
	prefixClaim      = "clm:"
	prefixItem       = "itm:"
	prefixCollection = "col:"
)

func orderKey(k types.FixedOrderKey) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s:%s:%d",
		prefixOrder, k.Asset.Hex(), k.TokenID.Dec(), k.PaymentToken.Hex(), k.Price.Dec(), k.Side))
}

func listingKey(tok types.TokenKey) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixListing, tok.Asset.Hex(), tok.TokenID.Dec()))
}

func bidKey(tok types.TokenKey) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBid, tok.Asset.Hex(), tok.TokenID.Dec()))
}

func escrowKey(account, payment common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixEscrow, account.Hex(), payment.Hex()))
}

func claimKey(c types.AssetClaim) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixClaim, c.Account.Hex(), c.Token.Asset.Hex(), c.Token.TokenID.Dec()))
}

func itemKey(tok types.TokenKey) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixItem, tok.Asset.Hex(), tok.TokenID.Dec()))
}

func collectionKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixCollection, id))
}

func configKey() []byte { return []byte("cfg") }

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// itemRecord is the stored form of an item-to-collection registration; the
// key already carries the token identity.
type itemRecord struct {
	Token        types.TokenKey `json:"token"`
	CollectionID uint64         `json:"collection_id"`
}
