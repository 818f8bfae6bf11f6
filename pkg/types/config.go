package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// MarketConfig is the administrative slice of engine state: ownership,
// pause flag, allow-lists, fee routing, and the monotonic counters. It is
// persisted as a single record because it is small and changes atomically
// with the transition that touches it.
type MarketConfig struct {
	Owner               common.Address                   `json:"owner"`
	Paused              bool                             `json:"paused"`
	Allowlist           []common.Address                 `json:"allowlist"`
	AllowedPayment      []common.Address                 `json:"allowed_payment"`
	Marketplaces        []common.Address                 `json:"marketplaces"`
	ServiceFeeRecipient common.Address                   `json:"service_fee_recipient"`
	ServiceFeeBps       uint64                           `json:"service_fee_bps"`
	Royalties           map[common.Address]RoyaltyConfig `json:"royalties"`
	NextCollectionID    uint64                           `json:"next_collection_id"`
	BidSequence         uint64                           `json:"bid_sequence"`
}
