package api

// Wire types for the REST endpoints and WebSocket stream. Amounts travel as
// base-unit decimal strings plus a human-scaled rendering.

// ==============================
// REST Response Types
// ==============================

// OrderInfo is one standing fixed-price order.
type OrderInfo struct {
	Asset           string `json:"asset"`
	TokenID         string `json:"tokenId"`
	PaymentToken    string `json:"paymentToken"`
	Price           string `json:"price"`
	PriceScaled     string `json:"priceScaled"`
	Side            string `json:"side"`
	Maker           string `json:"maker"`
	ExpirationBlock uint64 `json:"expirationBlock"`
}

// AuctionInfo is an active listing, with the fee rates frozen at start and
// the current top bid if one exists.
type AuctionInfo struct {
	Asset               string   `json:"asset"`
	TokenID             string   `json:"tokenId"`
	Seller              string   `json:"seller"`
	PaymentToken        string   `json:"paymentToken"`
	StartAmount         string   `json:"startAmount"`
	StartAmountScaled   string   `json:"startAmountScaled"`
	ExpirationBlock     uint64   `json:"expirationBlock"`
	RoyaltyRecipient    string   `json:"royaltyRecipient"`
	RoyaltyBps          uint64   `json:"royaltyBps"`
	ServiceFeeRecipient string   `json:"serviceFeeRecipient"`
	ServiceFeeBps       uint64   `json:"serviceFeeBps"`
	CommissionRecipient string   `json:"commissionRecipient"`
	CommissionBps       uint64   `json:"commissionBps"`
	TopBid              *BidInfo `json:"topBid,omitempty"`
}

// BidInfo is the current highest bid on an auction.
type BidInfo struct {
	Bidder       string `json:"bidder"`
	Amount       string `json:"amount"`
	AmountScaled string `json:"amountScaled"`
	Beneficiary  string `json:"beneficiary"`
	Sequence     uint64 `json:"sequence"`
}

// EscrowInfo is one outstanding payment credit owed to an account.
type EscrowInfo struct {
	PaymentToken string `json:"paymentToken"`
	Amount       string `json:"amount"`
	AmountScaled string `json:"amountScaled"`
}

// ClaimInfo is one asset an account may withdraw from custody.
type ClaimInfo struct {
	Asset   string `json:"asset"`
	TokenID string `json:"tokenId"`
}

// CollectionInfo is a registered brand collection.
type CollectionInfo struct {
	ID            uint64 `json:"id"`
	BrandOwner    string `json:"brandOwner"`
	CommissionBps uint64 `json:"commissionBps"`
}

// StatusInfo reports the market's liveness view.
type StatusInfo struct {
	Height uint64 `json:"height"`
	Paused bool   `json:"paused"`
}

// ErrorResponse carries a settlement failure to the client: the stable code
// name plus the precondition chain that tripped.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Checks  []string `json:"checks,omitempty"`
	Message string   `json:"message,omitempty"`
}

// ==============================
// REST Request Types
// ==============================

// CallFields identifies the caller on every mutating request. Value is the
// native currency attached to the call, in base units.
//
// Signature verification is out of scope here: the settlement engine trusts
// the declared sender the way it would trust msg.sender on chain.
type CallFields struct {
	Sender string `json:"sender"`
	Value  string `json:"value,omitempty"`
}

type SetOrderRequest struct {
	CallFields
	Asset           string `json:"asset"`
	TokenID         string `json:"tokenId"`
	PaymentToken    string `json:"paymentToken"`
	Price           string `json:"price"`
	Side            string `json:"side"`
	ExpirationBlock uint64 `json:"expirationBlock"`
}

type FulfillOrderRequest struct {
	CallFields
	Asset        string `json:"asset"`
	TokenID      string `json:"tokenId"`
	PaymentToken string `json:"paymentToken"`
	Price        string `json:"price"`
	Side         string `json:"side"`
	Destination  string `json:"destination"`
}

type CancelOrderRequest struct {
	CallFields
	Asset        string `json:"asset"`
	TokenID      string `json:"tokenId"`
	PaymentToken string `json:"paymentToken"`
	Price        string `json:"price"`
	Side         string `json:"side"`
}

type StartAuctionRequest struct {
	CallFields
	Asset           string `json:"asset"`
	TokenID         string `json:"tokenId"`
	PaymentToken    string `json:"paymentToken"`
	StartAmount     string `json:"startAmount"`
	ExpirationBlock uint64 `json:"expirationBlock"`
}

type BidRequest struct {
	CallFields
	Asset       string `json:"asset"`
	TokenID     string `json:"tokenId"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
}

// AuctionTokenRequest covers cancel and end, which only name the token.
type AuctionTokenRequest struct {
	CallFields
	Asset   string `json:"asset"`
	TokenID string `json:"tokenId"`
}

type WithdrawPaymentsRequest struct {
	CallFields
	PaymentToken string `json:"paymentToken"`
}

type WithdrawAssetRequest struct {
	CallFields
	Asset   string `json:"asset"`
	TokenID string `json:"tokenId"`
}

// AdminAddressRequest covers the owner operations that take one address:
// allow-list edits, payment-token edits, marketplace registration, and
// ownership transfer.
type AdminAddressRequest struct {
	CallFields
	Address string `json:"address"`
}

type ServiceFeeRequest struct {
	CallFields
	Recipient string `json:"recipient"`
	Bps       uint64 `json:"bps"`
}

type RoyaltyRequest struct {
	CallFields
	Asset     string `json:"asset"`
	Recipient string `json:"recipient"`
	Bps       uint64 `json:"bps"`
}

type CreateCollectionRequest struct {
	CallFields
	CommissionBps uint64 `json:"commissionBps"`
}

type AddToCollectionRequest struct {
	CallFields
	Asset        string `json:"asset"`
	TokenID      string `json:"tokenId"`
	CollectionID uint64 `json:"collectionId"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by a client to follow event kinds. An empty
// channel list subscribes to every event.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}
