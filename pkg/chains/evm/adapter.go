package evm

import (
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sigweihq/rafflemint/pkg/chains"
	"github.com/sigweihq/rafflemint/pkg/constants"
)

// BaseEVMAdapter provides common EVM functionality that all EVM chains share
type BaseEVMAdapter struct {
	network   string
	chainID   int64
	rpc       *RPCClient
	signer    *SignatureScheme
	validator *TransactionValidator
	logger    *slog.Logger
}

var _ chains.ChainAdapter = (*BaseEVMAdapter)(nil)

// NewBaseEVMAdapter creates a base EVM adapter with common functionality
func NewBaseEVMAdapter(network string, chainID int64, endpoints []string, logger *slog.Logger) *BaseEVMAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseEVMAdapter{
		network:   network,
		chainID:   chainID,
		rpc:       NewRPCClient(network, chainID, endpoints, logger),
		signer:    NewSignatureScheme(),
		validator: NewTransactionValidator(),
		logger:    logger,
	}
}

// NewEVMAdapter creates an EVM chain adapter for any EVM-compatible network
// Network must be registered in constants.NetworkToChainID
func NewEVMAdapter(network string, endpoints []string, logger *slog.Logger) (*BaseEVMAdapter, error) {
	chainID, ok := constants.NetworkToChainID[network]
	if !ok {
		return nil, &UnsupportedNetworkError{Network: network}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints for network %s", network)
	}
	return NewBaseEVMAdapter(network, chainID, endpoints, logger), nil
}

// Network implements chains.ChainAdapter
func (a *BaseEVMAdapter) Network() string {
	return a.network
}

// ChainID implements chains.ChainAdapter
func (a *BaseEVMAdapter) ChainID() int64 {
	return a.chainID
}

// RPCClient implements chains.ChainAdapter
func (a *BaseEVMAdapter) RPCClient() chains.RPCClient {
	return a.rpc
}

// SignatureScheme implements chains.ChainAdapter
func (a *BaseEVMAdapter) SignatureScheme() chains.SignatureScheme {
	return a.signer
}

// TransactionValidator implements chains.ChainAdapter
func (a *BaseEVMAdapter) TransactionValidator() chains.TransactionValidator {
	return a.validator
}

// Wallet implements chains.ChainAdapter.
// privateKey may be an *ecdsa.PrivateKey or a hex string (with or without 0x).
func (a *BaseEVMAdapter) Wallet(privateKey any) (chains.Wallet, error) {
	var key *ecdsa.PrivateKey
	switch pk := privateKey.(type) {
	case *ecdsa.PrivateKey:
		key = pk
	case string:
		if pk == "" {
			// No key configured: a wallet without an account
			return NewKeyedWallet(a, nil, a.logger), nil
		}
		parsed, err := crypto.HexToECDSA(strings.TrimPrefix(pk, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		key = parsed
	case nil:
		return NewKeyedWallet(a, nil, a.logger), nil
	default:
		return nil, fmt.Errorf("invalid private key type for EVM: %T", privateKey)
	}
	return NewKeyedWallet(a, key, a.logger), nil
}
