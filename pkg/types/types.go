package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sigweihq/rafflemint/pkg/constants"
)

// PaymentMethod selects how a mint is paid for
type PaymentMethod int

const (
	// PaymentNative pays in the chain's native currency (AVAX)
	PaymentNative PaymentMethod = iota
	// PaymentToken pays with the BALLN ERC-20 token
	PaymentToken
)

// Wire names used by the issuance service
const (
	PaymentMethodAVAX  = "avax"
	PaymentMethodBALLN = "balln"
)

// PaymentMethods lists every valid payment method in display order
var PaymentMethods = []PaymentMethod{PaymentNative, PaymentToken}

// String returns the wire name of the payment method
func (m PaymentMethod) String() string {
	switch m {
	case PaymentNative:
		return PaymentMethodAVAX
	case PaymentToken:
		return PaymentMethodBALLN
	default:
		return fmt.Sprintf("PaymentMethod(%d)", int(m))
	}
}

// Valid reports whether m is one of the known payment methods
func (m PaymentMethod) Valid() bool {
	return m == PaymentNative || m == PaymentToken
}

// ParsePaymentMethod converts a wire name ("avax", "balln") into a PaymentMethod
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case PaymentMethodAVAX:
		return PaymentNative, nil
	case PaymentMethodBALLN:
		return PaymentToken, nil
	}
	return 0, fmt.Errorf("unknown payment method: %q", s)
}

// MarshalJSON encodes the payment method using its wire name
func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid payment method %d", int(m))
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a wire name into the payment method
func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePaymentMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Quantity is the number of raffle tickets bought in one mint
type Quantity int

// DefaultQuantity is the quantity a new session starts with
const DefaultQuantity Quantity = 1

// Valid reports whether q is one of constants.AllowedQuantities
func (q Quantity) Valid() bool {
	return slices.Contains(constants.AllowedQuantities, int(q))
}

// MintRequest is the body sent to the issuance service
type MintRequest struct {
	Address       string        `json:"address"`
	Quantity      Quantity      `json:"quantity"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	// TransactionHash references the confirmed payment so the backend can verify it
	TransactionHash string `json:"transactionHash,omitempty"`
}

// MintResponse is the issuance service's reply
type MintResponse struct {
	Success  bool     `json:"success"`
	TokenIDs []uint64 `json:"tokenIds,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// MintRecord is a ledger view of a single mint attempt
type MintRecord struct {
	AttemptID       string        `json:"attemptId"`
	Address         string        `json:"address"`
	Quantity        Quantity      `json:"quantity"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	Amount          string        `json:"amount"` // minimal units as string
	TransactionHash string        `json:"transactionHash,omitempty"`
	Stage           string        `json:"stage"`
	Status          string        `json:"status"`
	TokenIDs        []uint64      `json:"tokenIds,omitempty"`
	Error           string        `json:"error,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}
