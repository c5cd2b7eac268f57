package chains

import (
	"context"
	"errors"
	"math/big"
	"time"

	x402types "github.com/coinbase/x402/go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// Design inspired by renproject/multichain
// https://github.com/renproject/multichain

var (
	// ErrReceiptNotFound is returned while a transaction is not yet included in a block
	ErrReceiptNotFound = errors.New("transaction receipt not found")
	// ErrTransactionReverted is returned when a mined transaction did not succeed
	ErrTransactionReverted = errors.New("transaction reverted")
	// ErrConfirmationTimeout is returned when the confirmation wait exceeds its deadline
	ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")
	// ErrNoAccount is returned when a wallet has no account to sign with
	ErrNoAccount = errors.New("wallet not connected")
)

// ChainAdapter provides blockchain-specific operations for a single network
type ChainAdapter interface {
	// Network returns the network name (e.g., "avalanche", "avalanche-fuji")
	Network() string

	// ChainID returns the numeric chain ID used for transaction signing
	ChainID() int64

	// RPCClient returns the RPC client manager for this chain
	RPCClient() RPCClient

	// SignatureScheme returns the signature scheme for this chain
	SignatureScheme() SignatureScheme

	// TransactionValidator returns the transaction validator for this chain
	TransactionValidator() TransactionValidator

	// Wallet creates a signing wallet for the given private key
	Wallet(privateKey any) (Wallet, error)
}

// RPCClient handles blockchain RPC operations
type RPCClient interface {
	// GetTransactionReceipt retrieves a transaction receipt with failover.
	// Returns ErrReceiptNotFound while the transaction is pending.
	GetTransactionReceipt(ctx context.Context, txHash string) (TransactionReceipt, error)

	// IsHealthy performs a health check on the RPC endpoint
	IsHealthy(endpoint string) bool
}

// BalanceReader is an optional interface for reading account balances
// Implemented by: RPCClient
type BalanceReader interface {
	// NativeBalance returns the native currency balance of owner in minimal units
	NativeBalance(ctx context.Context, owner string) (*big.Int, error)

	// TokenBalance returns the ERC-20 balance of owner in the token's minimal units
	TokenBalance(ctx context.Context, token, owner string) (*big.Int, error)
}

// TransactionReceipt is a chain-agnostic transaction receipt
type TransactionReceipt interface {
	// IsSuccessful returns whether the transaction succeeded
	IsSuccessful() bool

	// TxHash returns the hash of the transaction this receipt belongs to
	TxHash() string

	// GetTransferEvent returns transfer event data if present
	GetTransferEvent() (*TransferEvent, error)
}

// NativeTransferReader is implemented by receipts that carry the mined transaction.
// GetNativeTransfer reports its sender, recipient and value as recorded on chain.
type NativeTransferReader interface {
	GetNativeTransfer() (*TransferEvent, error)
}

// TransferEvent represents a token transfer event
type TransferEvent struct {
	From  string // Sender wallet address
	To    string // Recipient wallet address
	Value string
	Asset string // Token contract address
}

// SignatureScheme handles basic signature operations (all chains must implement)
type SignatureScheme interface {
	// DeriveAddress derives the address from a private key
	DeriveAddress(privateKey any) (string, error)
}

// TransactionValidator validates a confirmed payment against what was requested
type TransactionValidator interface {
	// ValidateTransaction verifies the receipt and submitted transaction match the requirements
	// - receipt: The blockchain transaction receipt
	// - pending: The transaction as it was submitted by the wallet
	// - requirements: What had to be paid; an empty Asset means the native currency
	ValidateTransaction(receipt TransactionReceipt, pending *PendingTx, requirements *x402types.PaymentRequirements) error

	// AddressesEqual compares two addresses using chain-specific rules
	AddressesEqual(addr1, addr2 string) bool
}

// Action is an on-chain payment a wallet can sign and submit
type Action interface {
	// Payee returns the address that ultimately receives the funds
	Payee() common.Address
	// Amount returns the amount in minimal units
	Amount() *big.Int
}

// NativeTransfer sends native currency to To
type NativeTransfer struct {
	To    common.Address
	Value *big.Int
}

func (a NativeTransfer) Payee() common.Address { return a.To }
func (a NativeTransfer) Amount() *big.Int      { return a.Value }

// TokenTransfer invokes transfer(To, Value) on the ERC-20 contract at Token
type TokenTransfer struct {
	Token common.Address
	To    common.Address
	Value *big.Int
}

func (a TokenTransfer) Payee() common.Address { return a.To }
func (a TokenTransfer) Amount() *big.Int      { return a.Value }

// PendingTx is a transaction that was accepted by the network but may not be mined yet
type PendingTx struct {
	Hash        string
	From        string
	Network     string
	Action      Action
	SubmittedAt time.Time
}

// Wallet is the signing capability supplied by a connected wallet
type Wallet interface {
	// Address returns the connected account, or false when no account is connected
	Address() (string, bool)

	// SignAndSubmit signs the action and submits it to the network once
	SignAndSubmit(ctx context.Context, action Action) (*PendingTx, error)

	// AwaitConfirmation blocks until the transaction has one confirmation or ctx ends
	AwaitConfirmation(ctx context.Context, pending *PendingTx) (TransactionReceipt, error)
}
