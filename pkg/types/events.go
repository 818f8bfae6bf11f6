package types

import (
	"encoding/json"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Event is a settlement-engine event. Every event carries the full set of
// computed amounts, not just the inputs, so an off-chain observer can
// reconcile fee splits without recomputing them.
type Event interface {
	Kind() string
}

// Envelope is the wire form of an event: a kind tag plus the payload.
type Envelope struct {
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
}

// WrapEvent builds the wire envelope for an event. Marshaling goes through
// an addressable copy so that pointer-receiver marshalers on amount fields
// (uint256.Int) apply; events held as interface values would otherwise
// serialize amounts as raw words.
func WrapEvent(ev Event) (Envelope, error) {
	pv := reflect.New(reflect.TypeOf(ev))
	pv.Elem().Set(reflect.ValueOf(ev))
	raw, err := json.Marshal(pv.Interface())
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: ev.Kind(), Event: raw}, nil
}

// SetOrderEvent reports a created or replaced fixed-price order.
type SetOrderEvent struct {
	Order FixedOrder `json:"order"`
}

func (SetOrderEvent) Kind() string { return "SetOrder" }

// FulfillOrderEvent reports an atomically settled fixed-price trade.
type FulfillOrderEvent struct {
	Key              FixedOrderKey  `json:"key"`
	Seller           common.Address `json:"seller"`
	Buyer            common.Address `json:"buyer"`
	AssetRecipient   common.Address `json:"asset_recipient"`
	PaymentRecipient common.Address `json:"payment_recipient"`
	Price            uint256.Int    `json:"price"`
	RoyaltyRecipient common.Address `json:"royalty_recipient"`
	RoyaltyAmount    uint256.Int    `json:"royalty_amount"`
	ServiceRecipient common.Address `json:"service_fee_recipient"`
	ServiceFee       uint256.Int    `json:"service_fee"`
	SellerShare      uint256.Int    `json:"seller_share"`
}

func (FulfillOrderEvent) Kind() string { return "FulfillOrder" }

// CancelOrderEvent reports a maker-cancelled fixed-price order.
type CancelOrderEvent struct {
	Key   FixedOrderKey  `json:"key"`
	Maker common.Address `json:"maker"`
}

func (CancelOrderEvent) Kind() string { return "CancelOrder" }

// StartEvent reports a new auction listing, including the fee rates frozen
// for its lifetime.
type StartEvent struct {
	Listing Listing `json:"listing"`
}

func (StartEvent) Kind() string { return "Start" }

// BidEvent reports an accepted bid and the escrow credit made for the
// displaced bidder, if any.
type BidEvent struct {
	Token          TokenKey       `json:"token"`
	Bidder         common.Address `json:"bidder"`
	Amount         uint256.Int    `json:"amount"`
	Beneficiary    common.Address `json:"beneficiary"`
	Sequence       uint64         `json:"sequence"`
	PrevBidder     common.Address `json:"prev_bidder"`
	RefundCredited uint256.Int    `json:"refund_credited"`
}

func (BidEvent) Kind() string { return "Bid" }

// CancelEvent reports a cancelled auction listing.
type CancelEvent struct {
	Token          TokenKey       `json:"token"`
	Seller         common.Address `json:"seller"`
	Bidder         common.Address `json:"bidder"`
	RefundCredited uint256.Int    `json:"refund_credited"`
}

func (CancelEvent) Kind() string { return "Cancel" }

// EndEvent reports a finalized auction with every computed share. A sale
// that never attracted a bid ends with all amounts zero and the asset claim
// returned to the seller.
type EndEvent struct {
	Token               TokenKey       `json:"token"`
	Seller              common.Address `json:"seller"`
	Buyer               common.Address `json:"buyer"`
	Beneficiary         common.Address `json:"beneficiary"`
	PaymentToken        common.Address `json:"payment_token"`
	Price               uint256.Int    `json:"price"`
	RoyaltyRecipient    common.Address `json:"royalty_recipient"`
	RoyaltyAmount       uint256.Int    `json:"royalty_amount"`
	ServiceRecipient    common.Address `json:"service_fee_recipient"`
	ServiceFee          uint256.Int    `json:"service_fee"`
	CommissionRecipient common.Address `json:"commission_recipient"`
	CommissionAmount    uint256.Int    `json:"commission_amount"`
	SellerShare         uint256.Int    `json:"seller_share"`
	Sold                bool           `json:"sold"`
}

func (EndEvent) Kind() string { return "End" }

// WithdrawPaymentTokensEvent reports a completed escrow withdrawal.
type WithdrawPaymentTokensEvent struct {
	Account      common.Address `json:"account"`
	PaymentToken common.Address `json:"payment_token"`
	Amount       uint256.Int    `json:"amount"`
}

func (WithdrawPaymentTokensEvent) Kind() string { return "WithdrawPaymentTokens" }

// WithdrawAssetEvent reports a completed asset-claim withdrawal.
type WithdrawAssetEvent struct {
	Account common.Address `json:"account"`
	Token   TokenKey       `json:"token"`
}

func (WithdrawAssetEvent) Kind() string { return "WithdrawAsset" }

// PausedEvent and UnpausedEvent report pause-flag flips.
type PausedEvent struct {
	By common.Address `json:"by"`
}

func (PausedEvent) Kind() string { return "Paused" }

type UnpausedEvent struct {
	By common.Address `json:"by"`
}

func (UnpausedEvent) Kind() string { return "Unpaused" }
