package orchestrator

import (
	"errors"
	"fmt"
)

// ErrMintInProgress is returned when Mint is called while another mint is in flight.
// Nothing is submitted or routed.
var ErrMintInProgress = errors.New("mint already in progress")

// Kind classifies why a mint failed
type Kind int

const (
	KindNotConnected Kind = iota + 1
	KindInvalidQuantity
	KindPaymentSubmissionFailed
	KindConfirmationTimeout
	KindTransactionFailed
	KindIssuanceFailed
)

// Sentinels for errors.Is against a *MintError
var (
	ErrNotConnected            = errors.New("not connected")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrPaymentSubmissionFailed = errors.New("payment submission failed")
	ErrConfirmationTimeout     = errors.New("confirmation timeout")
	ErrTransactionFailed       = errors.New("transaction failed")
	ErrIssuanceFailed          = errors.New("issuance failed")
)

var kindInfo = map[Kind]struct {
	name     string
	sentinel error
}{
	KindNotConnected:            {"not_connected", ErrNotConnected},
	KindInvalidQuantity:         {"invalid_quantity", ErrInvalidQuantity},
	KindPaymentSubmissionFailed: {"payment_submission_failed", ErrPaymentSubmissionFailed},
	KindConfirmationTimeout:     {"confirmation_timeout", ErrConfirmationTimeout},
	KindTransactionFailed:       {"transaction_failed", ErrTransactionFailed},
	KindIssuanceFailed:          {"issuance_failed", ErrIssuanceFailed},
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MintError is the failure carried by an Outcome
type MintError struct {
	Kind Kind
	Err  error
	// TxHash is set once the payment was submitted
	TxHash string
}

func (e *MintError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *MintError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *MintError) Is(target error) bool {
	info, ok := kindInfo[e.Kind]
	return ok && target == info.sentinel
}

// Message is the text shown to the user for this failure
func (e *MintError) Message() string {
	reason := "unknown error"
	if e.Err != nil {
		reason = e.Err.Error()
	}

	switch e.Kind {
	case KindNotConnected:
		return "Connect your wallet first."
	case KindPaymentSubmissionFailed:
		return "Payment failed: " + reason
	case KindConfirmationTimeout:
		return fmt.Sprintf("Transaction %s was not confirmed in time. It may still be mined; check your wallet before trying again.", e.TxHash)
	case KindIssuanceFailed:
		return fmt.Sprintf("Mint failed after payment %s was confirmed: issuance failed: %s. Contact support with this transaction hash.", e.TxHash, reason)
	default:
		return "Transaction failed: " + reason
	}
}
