package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode is the structured failure code surfaced to callers. Every
// precondition failure aborts the whole call with no partial mutation; the
// caller decides whether to resubmit with corrected parameters.
type ErrorCode int

const (
	// Access control: checked first, blocks any state mutation.
	CodeNotAllowedUser ErrorCode = iota + 1
	CodePaused
	CodeNotPaused
	CodeNotContractOwner

	// Not found: the caller referenced a non-existent entity.
	CodeSellOrderNotFound
	CodeBuyOrderNotFound
	CodeAccountNotFound
	CodeAssetNotFound
	CodeCollectionNotFound

	// Validation: malformed intent rejected before any transfer.
	CodeNotAllowedPaymentToken
	CodeNotEqualAmount
	CodeLessThanMinBid
	CodeInsufficientAllowance
	CodeNotTokenOwner
	CodeTokenOwner
	CodeNotSpender
	CodeSelf
	CodeZeroAddressDestination
	CodeThisAddressDestination
	CodeSellOrderFound
	CodeInvalidBps

	// Temporal: gates on block height.
	CodeExpired
	CodeNotExpired

	// Authorization of action: an allowed user, but not the right one for
	// this specific order.
	CodeNotAllowedToCancelOrder
	CodeNotAllowedToEnd
	CodeNotBrandOwner
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNotAllowedUser:
		return "NotAllowedUserError"
	case CodePaused:
		return "PausedError"
	case CodeNotPaused:
		return "NotPausedError"
	case CodeNotContractOwner:
		return "NotContractOwnerError"
	case CodeSellOrderNotFound:
		return "SellOrderNotFoundError"
	case CodeBuyOrderNotFound:
		return "BuyOrderNotFoundError"
	case CodeAccountNotFound:
		return "AccountNotFoundError"
	case CodeAssetNotFound:
		return "AssetNotFoundError"
	case CodeCollectionNotFound:
		return "CollectionNotFoundError"
	case CodeNotAllowedPaymentToken:
		return "NotAllowedPaymentTokenError"
	case CodeNotEqualAmount:
		return "NotEqualAmountError"
	case CodeLessThanMinBid:
		return "LessThanMinBidError"
	case CodeInsufficientAllowance:
		return "InsufficientAllowanceError"
	case CodeNotTokenOwner:
		return "NotTokenOwnerError"
	case CodeTokenOwner:
		return "TokenOwnerError"
	case CodeNotSpender:
		return "NotSpenderError"
	case CodeSelf:
		return "NotSelfError"
	case CodeZeroAddressDestination:
		return "ZeroAddressDestinationError"
	case CodeThisAddressDestination:
		return "ThisAddressDestinationError"
	case CodeSellOrderFound:
		return "SellOrderFoundError"
	case CodeInvalidBps:
		return "InvalidBpsError"
	case CodeExpired:
		return "ExpiredError"
	case CodeNotExpired:
		return "NotExpiredError"
	case CodeNotAllowedToCancelOrder:
		return "NotAllowedToCancelOrder"
	case CodeNotAllowedToEnd:
		return "NotAllowedToEndError"
	case CodeNotBrandOwner:
		return "NotBrandOwnerError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is a structured settlement failure: a code plus the chain of
// precondition names evaluated when the guard tripped.
type Error struct {
	Code   ErrorCode
	Checks []string
	Detail string
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if len(e.Checks) > 0 {
		msg += fmt.Sprintf(" (checks: %v)", e.Checks)
	}
	return msg
}

// failf builds an Error carrying the precondition chain recorded so far.
func failf(code ErrorCode, checks []string, format string, args ...interface{}) error {
	return errors.WithStack(&Error{
		Code:   code,
		Checks: append([]string(nil), checks...),
		Detail: fmt.Sprintf(format, args...),
	})
}

// CodeOf extracts the structured code from any error in a wrap chain.
// Returns 0 when the error is not a settlement failure.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// guard accumulates the names of preconditions as they are evaluated so a
// failure can report which check in the chain tripped.
type guard struct {
	checks []string
}

func (g *guard) check(name string) {
	g.checks = append(g.checks, name)
}

func (g *guard) fail(code ErrorCode, format string, args ...interface{}) error {
	return failf(code, g.checks, format, args...)
}
