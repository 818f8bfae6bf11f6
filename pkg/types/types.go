// Package types holds the domain model shared by the settlement engine,
// its storage layer, and the API surface.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Side is the direction of a fixed-price order.
// A Sell order offers the asset; a Buy order bids to acquire it.
type Side uint8

const (
	Sell Side = iota
	Buy
)

func (s Side) String() string {
	switch s {
	case Sell:
		return "sell"
	case Buy:
		return "buy"
	default:
		return "unknown"
	}
}

// ParseSide converts the wire representation back into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "sell":
		return Sell, nil
	case "buy":
		return Buy, nil
	default:
		return 0, fmt.Errorf("invalid side %q", s)
	}
}

// BpsDenominator is the basis-point denominator for every fee rate.
const BpsDenominator = 10_000

// NativeToken is the payment-token sentinel for the chain's native currency.
var NativeToken = common.Address{}

// TokenKey identifies a single non-fungible token: (asset contract, token id).
// It is a comparable value type used directly as a map key; nested maps keyed
// by asset then token id are deliberately avoided so that removing the last
// entry never leaves an empty inner map behind.
type TokenKey struct {
	Asset   common.Address `json:"asset"`
	TokenID uint256.Int    `json:"token_id"`
}

func (k TokenKey) String() string {
	return fmt.Sprintf("%s/%s", k.Asset.Hex(), k.TokenID.Dec())
}

// FixedOrderKey is the identity of a fixed-price order. Side is part of the
// identity: a maker may hold a sell and a buy on the same token at the same
// price simultaneously, but never two sells at the same price.
type FixedOrderKey struct {
	Asset        common.Address `json:"asset"`
	TokenID      uint256.Int    `json:"token_id"`
	PaymentToken common.Address `json:"payment_token"`
	Price        uint256.Int    `json:"price"`
	Side         Side           `json:"side"`
}

// Token returns the (asset, token id) pair the order refers to.
func (k FixedOrderKey) Token() TokenKey {
	return TokenKey{Asset: k.Asset, TokenID: k.TokenID}
}

// FixedOrder is a standing fixed-price intent. Re-submitting the same
// identity key overwrites Maker and ExpirationBlock in place; makers use
// this to renew an order without a cancel/recreate round trip.
type FixedOrder struct {
	Key             FixedOrderKey  `json:"key"`
	Maker           common.Address `json:"maker"`
	ExpirationBlock uint64         `json:"expiration_block"`
}

// ListingParam is the caller-supplied part of an auction listing.
type ListingParam struct {
	Asset           common.Address `json:"asset"`
	TokenID         uint256.Int    `json:"token_id"`
	PaymentToken    common.Address `json:"payment_token"`
	StartAmount     uint256.Int    `json:"start_amount"`
	ExpirationBlock uint64         `json:"expiration_block"`
}

// Listing is an active English-auction sell order. At most one exists per
// (asset, token id). Fee rates and recipients are frozen at Start time so a
// later fee-config change never retroactively reprices an in-flight auction.
type Listing struct {
	Token               TokenKey       `json:"token"`
	Seller              common.Address `json:"seller"`
	PaymentToken        common.Address `json:"payment_token"`
	StartAmount         uint256.Int    `json:"start_amount"`
	ExpirationBlock     uint64         `json:"expiration_block"`
	RoyaltyRecipient    common.Address `json:"royalty_recipient"`
	RoyaltyBps          uint64         `json:"royalty_bps"`
	ServiceFeeRecipient common.Address `json:"service_fee_recipient"`
	ServiceFeeBps       uint64         `json:"service_fee_bps"`
	CommissionRecipient common.Address `json:"commission_recipient"`
	CommissionBps       uint64         `json:"commission_bps"`
}

// TopBid is the current highest bid on a listing. At most one exists per
// listed token; an incoming higher bid replaces it and the displaced amount
// is credited to the old bidder's escrow balance.
type TopBid struct {
	Token       TokenKey       `json:"token"`
	Bidder      common.Address `json:"bidder"`
	Amount      uint256.Int    `json:"amount"`
	Beneficiary common.Address `json:"beneficiary"`
	Sequence    uint64         `json:"sequence"`
}

// RoyaltyConfig routes the creator share of a sale for one asset contract.
type RoyaltyConfig struct {
	Recipient common.Address `json:"recipient"`
	Bps       uint64         `json:"bps"`
}

// Collection groups assets under a brand. A registered item routes an extra
// commission share to the brand owner when its auction settles.
type Collection struct {
	ID            uint64         `json:"id"`
	BrandOwner    common.Address `json:"brand_owner"`
	CommissionBps uint64         `json:"commission_bps"`
}

// EscrowEntry is one (account, payment token) → amount record of funds owed.
type EscrowEntry struct {
	Account      common.Address `json:"account"`
	PaymentToken common.Address `json:"payment_token"`
	Amount       uint256.Int    `json:"amount"`
}

// AssetClaim marks an asset withdrawable by an account, e.g. after a
// cancelled or settled auction.
type AssetClaim struct {
	Account common.Address `json:"account"`
	Token   TokenKey       `json:"token"`
}

// Call carries the identity of the external caller through every transition.
// Value is the native currency attached to the call; nil means zero. The
// proxy forwards Call untouched so upgrades never change caller identity.
type Call struct {
	Sender common.Address
	Value  *uint256.Int
}

// AttachedValue returns the native amount attached to the call.
func (c Call) AttachedValue() *uint256.Int {
	if c.Value == nil {
		return uint256.NewInt(0)
	}
	return c.Value
}
