package pricing

import (
	"errors"
	"fmt"
	"math/big"

	x402types "github.com/coinbase/x402/go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sigweihq/rafflemint/pkg/constants"
	"github.com/sigweihq/rafflemint/pkg/types"
)

var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// requirementsTimeoutSeconds mirrors constants.DefaultConfirmationTimeout
const requirementsTimeoutSeconds = 300

var nativeUnitPrice = decimal.RequireFromString(constants.NativeUnitPrice)

// Config holds the addresses injected from configuration
type Config struct {
	Recipient     common.Address // deployer wallet receiving payments
	TokenAddress  common.Address // BALLN ERC-20 contract
	TokenDecimals int32          // defaults to constants.TokenDecimals when zero
}

// Instruction is a concrete payment to perform on-chain
type Instruction struct {
	Kind         types.PaymentMethod
	Recipient    common.Address
	TokenAddress common.Address // zero for native payments
	Amount       *big.Int       // minimal units (wei or token base units)
	Decimals     int32
}

// IsToken reports whether the instruction is an ERC-20 transfer
func (i *Instruction) IsToken() bool {
	return i.Kind == types.PaymentToken
}

// HumanAmount renders the amount in whole units, e.g. "0.255 AVAX" or "30 BALLN"
func (i *Instruction) HumanAmount() string {
	symbol := constants.NativeSymbol
	if i.IsToken() {
		symbol = constants.TokenSymbol
	}
	return decimal.NewFromBigInt(i.Amount, -i.Decimals).String() + " " + symbol
}

// Requirements expresses the instruction as x402 payment requirements for network
func (i *Instruction) Requirements(network string) *x402types.PaymentRequirements {
	asset := ""
	if i.IsToken() {
		asset = i.TokenAddress.Hex()
	}
	return &x402types.PaymentRequirements{
		Scheme:            "exact",
		Network:           network,
		MaxAmountRequired: i.Amount.String(),
		Description:       fmt.Sprintf("Raffle ticket mint paid in %s", i.Kind),
		MimeType:          "application/json",
		PayTo:             i.Recipient.Hex(),
		MaxTimeoutSeconds: requirementsTimeoutSeconds,
		Asset:             asset,
	}
}

// Resolver maps a (quantity, payment method) selection to a payment instruction.
// Resolve is pure: the same inputs always yield an equal instruction.
type Resolver struct {
	config Config
}

// NewResolver creates a resolver for the given recipient and token contract
func NewResolver(config Config) (*Resolver, error) {
	if config.Recipient == (common.Address{}) {
		return nil, fmt.Errorf("recipient address is required")
	}
	if config.TokenAddress == (common.Address{}) {
		return nil, fmt.Errorf("token contract address is required")
	}
	if config.TokenDecimals == 0 {
		config.TokenDecimals = constants.TokenDecimals
	}
	return &Resolver{config: config}, nil
}

// Resolve computes the payment instruction for quantity tickets paid with method
func (r *Resolver) Resolve(quantity types.Quantity, method types.PaymentMethod) (*Instruction, error) {
	if !quantity.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	switch method {
	case types.PaymentNative:
		return &Instruction{
			Kind:      types.PaymentNative,
			Recipient: r.config.Recipient,
			Amount:    NativeAmount(quantity),
			Decimals:  constants.NativeDecimals,
		}, nil
	case types.PaymentToken:
		return &Instruction{
			Kind:         types.PaymentToken,
			Recipient:    r.config.Recipient,
			TokenAddress: r.config.TokenAddress,
			Amount:       TokenAmount(quantity, r.config.TokenDecimals),
			Decimals:     r.config.TokenDecimals,
		}, nil
	}

	return nil, fmt.Errorf("%w: %d", ErrInvalidPaymentMethod, int(method))
}

// NativeAmount returns the wei price of quantity tickets.
// The total is rounded to constants.NativePricePrecision digits before scaling.
func NativeAmount(quantity types.Quantity) *big.Int {
	total := nativeUnitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(constants.NativePricePrecision)
	return total.Shift(constants.NativeDecimals).BigInt()
}

// TokenAmount returns the token base-unit price of quantity tickets
func TokenAmount(quantity types.Quantity, decimals int32) *big.Int {
	total := decimal.NewFromInt(int64(constants.TokenUnitPrice) * int64(quantity))
	return total.Shift(decimals).BigInt()
}
