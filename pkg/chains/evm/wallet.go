package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sigweihq/rafflemint/pkg/chains"
	"github.com/sigweihq/rafflemint/pkg/constants"
)

// KeyedWallet is a chains.Wallet backed by a local private key.
// A wallet created without a key reports no connected address.
type KeyedWallet struct {
	network      string
	chainID      int64
	rpc          *RPCClient
	signer       *SignatureScheme
	key          *ecdsa.PrivateKey
	address      common.Address
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ chains.Wallet = (*KeyedWallet)(nil)

// NewKeyedWallet creates a wallet that signs with key on the adapter's network
func NewKeyedWallet(adapter *BaseEVMAdapter, key *ecdsa.PrivateKey, logger *slog.Logger) *KeyedWallet {
	if logger == nil {
		logger = slog.Default()
	}
	w := &KeyedWallet{
		network:      adapter.network,
		chainID:      adapter.chainID,
		rpc:          adapter.rpc,
		signer:       adapter.signer,
		key:          key,
		pollInterval: constants.ReceiptPollInterval,
		logger:       logger,
	}
	if key != nil {
		w.address = crypto.PubkeyToAddress(key.PublicKey)
	}
	return w
}

// SetPollInterval overrides how often confirmation polls the receipt
func (w *KeyedWallet) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// Address implements chains.Wallet
func (w *KeyedWallet) Address() (string, bool) {
	if w.key == nil {
		return "", false
	}
	return w.address.Hex(), true
}

// buildCall converts an action into the destination, value and calldata of a transaction
func buildCall(action chains.Action) (common.Address, *big.Int, []byte, error) {
	switch a := action.(type) {
	case chains.NativeTransfer:
		if a.Value == nil || a.Value.Sign() <= 0 {
			return common.Address{}, nil, nil, fmt.Errorf("native transfer value must be positive")
		}
		return a.To, a.Value, nil, nil
	case chains.TokenTransfer:
		if a.Value == nil || a.Value.Sign() <= 0 {
			return common.Address{}, nil, nil, fmt.Errorf("token transfer amount must be positive")
		}
		data, err := PackTransfer(a.To, a.Value)
		if err != nil {
			return common.Address{}, nil, nil, err
		}
		return a.Token, big.NewInt(0), data, nil
	}
	return common.Address{}, nil, nil, fmt.Errorf("unsupported action type %T", action)
}

// SignAndSubmit implements chains.Wallet.
// The transaction is sent to a single endpoint exactly once.
func (w *KeyedWallet) SignAndSubmit(ctx context.Context, action chains.Action) (*chains.PendingTx, error) {
	if w.key == nil {
		return nil, chains.ErrNoAccount
	}

	to, value, data, err := buildCall(action)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.SendTransactionTimeout)
	defer cancel()

	client, endpoint, err := w.rpc.Dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	nonce, err := client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, &RPCError{Endpoint: endpoint, Op: "eth_getTransactionCount", Err: err}
	}

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, &RPCError{Endpoint: endpoint, Op: "eth_maxPriorityFeePerGas", Err: err}
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &RPCError{Endpoint: endpoint, Op: "eth_gasPrice", Err: err}
	}
	// Leave headroom for one base fee doubling
	feeCap := new(big.Int).Add(new(big.Int).Mul(gasPrice, big.NewInt(2)), tipCap)

	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   big.NewInt(w.chainID),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signed, err := w.signer.SignTransaction(tx, w.chainID, w.key)
	if err != nil {
		return nil, err
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	w.logger.Info("payment transaction submitted",
		"network", w.network,
		"hash", signed.Hash().Hex(),
		"to", to.Hex(),
		"nonce", nonce,
		"gas", gas)

	return &chains.PendingTx{
		Hash:        signed.Hash().Hex(),
		From:        w.address.Hex(),
		Network:     w.network,
		Action:      action,
		SubmittedAt: time.Now(),
	}, nil
}

// AwaitConfirmation implements chains.Wallet.
// It polls for the receipt until the transaction is mined or ctx ends; a deadline
// on ctx is reported as chains.ErrConfirmationTimeout. A successful receipt is
// returned with the mined transaction attached.
func (w *KeyedWallet) AwaitConfirmation(ctx context.Context, pending *chains.PendingTx) (chains.TransactionReceipt, error) {
	if pending == nil {
		return nil, fmt.Errorf("no pending transaction")
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := w.rpc.fetchReceipt(ctx, pending.Hash)
		if err == nil && receipt.IsSuccessful() {
			var mined *ethtypes.Transaction
			if mined, err = w.rpc.GetTransaction(ctx, pending.Hash); err == nil {
				w.logger.Info("payment transaction confirmed",
					"hash", pending.Hash,
					"elapsed", time.Since(pending.SubmittedAt))
				return receipt.WithTransaction(mined), nil
			}
		}

		switch {
		case err == nil:
			return receipt, fmt.Errorf("%w: %s", chains.ErrTransactionReverted, pending.Hash)
		case errors.Is(err, chains.ErrReceiptNotFound):
			w.logger.Debug("payment transaction pending", "hash", pending.Hash)
		case ctx.Err() != nil:
			// reported by the ctx check below
		default:
			w.logger.Warn("receipt poll failed", "hash", pending.Hash, "error", err)
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return nil, confirmationError(ctx.Err(), pending.Hash, lastErr)
		case <-ticker.C:
		}
	}
}

func confirmationError(ctxErr error, hash string, lastErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		if lastErr != nil {
			return fmt.Errorf("%w: %s (last error: %v)", chains.ErrConfirmationTimeout, hash, lastErr)
		}
		return fmt.Errorf("%w: %s", chains.ErrConfirmationTimeout, hash)
	}
	return fmt.Errorf("confirmation wait for %s aborted: %w", hash, ctxErr)
}
