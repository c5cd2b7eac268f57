package evm

import (
	"fmt"
	"math/big"
	"strings"

	x402types "github.com/coinbase/x402/go/pkg/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sigweihq/rafflemint/pkg/chains"
)

// TransactionValidator implements chains.TransactionValidator for EVM chains
type TransactionValidator struct{}

func NewTransactionValidator() *TransactionValidator {
	return &TransactionValidator{}
}

var _ chains.TransactionValidator = (*TransactionValidator)(nil)

// ValidateTransaction implements chains.TransactionValidator
// Native payments are checked against the mined transaction, token payments
// against the Transfer event in the receipt.
func (v *TransactionValidator) ValidateTransaction(
	receipt chains.TransactionReceipt,
	pending *chains.PendingTx,
	requirements *x402types.PaymentRequirements,
) error {
	if receipt == nil || pending == nil || requirements == nil {
		return fmt.Errorf("receipt, pending transaction and requirements are required")
	}

	// Verify transaction succeeded
	if !receipt.IsSuccessful() {
		return fmt.Errorf("transaction failed on blockchain")
	}

	if !strings.EqualFold(receipt.TxHash(), pending.Hash) {
		return fmt.Errorf("receipt hash mismatch: got %s, expected %s", receipt.TxHash(), pending.Hash)
	}

	expectedValue, ok := new(big.Int).SetString(requirements.MaxAmountRequired, 10)
	if !ok {
		return fmt.Errorf("invalid value format in payment requirements: %s", requirements.MaxAmountRequired)
	}
	expectedTo := common.HexToAddress(requirements.PayTo)

	if requirements.Asset == "" {
		return validateNative(receipt, pending, expectedTo, expectedValue)
	}

	// Get transfer event from receipt
	transferEvent, err := receipt.GetTransferEvent()
	if err != nil {
		return fmt.Errorf("no transfer event found in transaction: %w", err)
	}

	actualFrom := common.HexToAddress(transferEvent.From)
	actualTo := common.HexToAddress(transferEvent.To)
	actualValue, ok := new(big.Int).SetString(transferEvent.Value, 10)
	if !ok {
		return fmt.Errorf("invalid value format in transfer event: %s", transferEvent.Value)
	}

	// Verify FROM address (the wallet that signed)
	expectedFrom := common.HexToAddress(pending.From)
	if actualFrom != expectedFrom {
		return fmt.Errorf("transaction from address mismatch: got %s, expected %s",
			actualFrom.Hex(), expectedFrom.Hex())
	}

	if actualTo != expectedTo {
		return fmt.Errorf("transaction to address mismatch: got %s, expected %s",
			actualTo.Hex(), expectedTo.Hex())
	}

	if actualValue.Cmp(expectedValue) != 0 {
		return fmt.Errorf("transaction value mismatch: got %s, expected %s",
			actualValue.String(), expectedValue.String())
	}

	expectedAsset := common.HexToAddress(requirements.Asset)
	actualAsset := common.HexToAddress(transferEvent.Asset)
	if actualAsset != expectedAsset {
		return fmt.Errorf("token contract mismatch: got %s, expected %s",
			actualAsset.Hex(), expectedAsset.Hex())
	}

	return nil
}

// validateNative checks the transaction as mined, not as requested
func validateNative(receipt chains.TransactionReceipt, pending *chains.PendingTx, expectedTo common.Address, expectedValue *big.Int) error {
	reader, ok := receipt.(chains.NativeTransferReader)
	if !ok {
		return fmt.Errorf("receipt %s does not carry the mined transaction", receipt.TxHash())
	}
	mined, err := reader.GetNativeTransfer()
	if err != nil {
		return err
	}

	actualValue, ok := new(big.Int).SetString(mined.Value, 10)
	if !ok {
		return fmt.Errorf("invalid value format in mined transaction: %s", mined.Value)
	}
	if common.HexToAddress(mined.From) != common.HexToAddress(pending.From) {
		return fmt.Errorf("transaction from address mismatch: got %s, expected %s", mined.From, pending.From)
	}
	if common.HexToAddress(mined.To) != expectedTo {
		return fmt.Errorf("transaction to address mismatch: got %s, expected %s", mined.To, expectedTo.Hex())
	}
	if actualValue.Cmp(expectedValue) != 0 {
		return fmt.Errorf("transaction value mismatch: got %s, expected %s", actualValue.String(), expectedValue.String())
	}
	return nil
}

// AddressesEqual implements chains.TransactionValidator
// EVM addresses are case-insensitive due to EIP-55 checksumming
func (v *TransactionValidator) AddressesEqual(addr1, addr2 string) bool {
	return strings.EqualFold(addr1, addr2)
}
