package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sigweihq/rafflemint/pkg/chains"
)

// SignatureScheme implements chains.SignatureScheme for EVM chains and signs
// EIP-1559 payment transactions
type SignatureScheme struct{}

func NewSignatureScheme() *SignatureScheme {
	return &SignatureScheme{}
}

var _ chains.SignatureScheme = (*SignatureScheme)(nil)

// DeriveAddress implements chains.SignatureScheme
func (s *SignatureScheme) DeriveAddress(privateKey any) (string, error) {
	pk, ok := privateKey.(*ecdsa.PrivateKey)
	if !ok {
		return "", fmt.Errorf("invalid private key type for EVM")
	}

	return crypto.PubkeyToAddress(pk.PublicKey).Hex(), nil
}

// SignTransaction signs tx for chainID with the latest signer the chain supports
func (s *SignatureScheme) SignTransaction(tx *ethtypes.Transaction, chainID int64, privateKey *ecdsa.PrivateKey) (*ethtypes.Transaction, error) {
	if privateKey == nil {
		return nil, chains.ErrNoAccount
	}
	signer := ethtypes.LatestSignerForChainID(big.NewInt(chainID))
	signed, err := ethtypes.SignTx(tx, signer, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// Sender recovers the address that signed tx
func (s *SignatureScheme) Sender(tx *ethtypes.Transaction, chainID int64) (string, error) {
	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(chainID)), tx)
	if err != nil {
		return "", fmt.Errorf("failed to recover sender: %w", err)
	}
	return from.Hex(), nil
}
