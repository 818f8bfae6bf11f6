package types

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestWrapEventEncodesAmountsAsStrings(t *testing.T) {
	ev := BidEvent{
		Token:       TokenKey{Asset: common.HexToAddress("0x00000000000000000000000000000000000000A1")},
		Bidder:      common.HexToAddress("0xBB00000000000000000000000000000000000000"),
		Beneficiary: common.HexToAddress("0xCC00000000000000000000000000000000000000"),
		Sequence:    3,
	}
	ev.Token.TokenID.Set(uint256.NewInt(7))
	ev.Amount.Set(uint256.NewInt(10_000))
	ev.RefundCredited.Set(uint256.NewInt(500))

	env, err := WrapEvent(ev)
	if err != nil {
		t.Fatalf("WrapEvent: %v", err)
	}
	if env.Kind != "Bid" {
		t.Fatalf("kind = %q, want Bid", env.Kind)
	}

	// Amounts must land on the wire in their string form, not as raw words.
	var fields map[string]interface{}
	if err := json.Unmarshal(env.Event, &fields); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	for _, name := range []string{"amount", "refund_credited"} {
		if _, ok := fields[name].(string); !ok {
			t.Fatalf("%s encoded as %T, want string", name, fields[name])
		}
	}

	var back BidEvent
	if err := json.Unmarshal(env.Event, &back); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !back.Amount.Eq(&ev.Amount) || !back.RefundCredited.Eq(&ev.RefundCredited) {
		t.Fatalf("amounts = %s/%s, want %s/%s",
			back.Amount.Dec(), back.RefundCredited.Dec(), ev.Amount.Dec(), ev.RefundCredited.Dec())
	}
	if back.Token != ev.Token || back.Bidder != ev.Bidder || back.Sequence != ev.Sequence {
		t.Fatalf("round-tripped event = %+v, want %+v", back, ev)
	}
}

func TestWrapEventEnvelopeRoundTrip(t *testing.T) {
	ev := EndEvent{
		Seller: common.HexToAddress("0xAA00000000000000000000000000000000000000"),
		Sold:   true,
	}
	ev.Price.Set(uint256.NewInt(123_456))
	ev.SellerShare.Set(uint256.NewInt(120_000))

	env, err := WrapEvent(ev)
	if err != nil {
		t.Fatalf("WrapEvent: %v", err)
	}
	line, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(line, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if decoded.Kind != "End" {
		t.Fatalf("kind = %q, want End", decoded.Kind)
	}
	var back EndEvent
	if err := json.Unmarshal(decoded.Event, &back); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if !back.Price.Eq(&ev.Price) || !back.SellerShare.Eq(&ev.SellerShare) || !back.Sold {
		t.Fatalf("round-tripped end event = %+v", back)
	}
}
