package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/sigweihq/rafflemint/pkg/chains"
	"github.com/sigweihq/rafflemint/pkg/constants"
)

// erc20ABIJSON covers the subset of ERC-20 the minter calls
const erc20ABIJSON = `[
{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ERC-20 ABI: %v", err))
	}
	return parsed
}

// PackTransfer encodes an ERC-20 transfer(to, amount) call
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer call: %w", err)
	}
	return data, nil
}

// RPCClient implements chains.RPCClient and chains.BalanceReader for EVM chains
type RPCClient struct {
	network   string
	chainID   int64
	endpoints []string
	logger    *slog.Logger
}

// NewRPCClient creates a new EVM RPC client
func NewRPCClient(network string, chainID int64, endpoints []string, logger *slog.Logger) *RPCClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCClient{
		network:   network,
		chainID:   chainID,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Verify RPCClient implements both interfaces
var _ chains.RPCClient = (*RPCClient)(nil)
var _ chains.BalanceReader = (*RPCClient)(nil)

// Endpoints returns a copy of the configured endpoints
func (r *RPCClient) Endpoints() []string {
	out := make([]string, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// rotatedEndpoints returns the endpoints starting at a random position for load balancing
func (r *RPCClient) rotatedEndpoints() []string {
	if len(r.endpoints) == 0 {
		return nil
	}
	start := rand.Intn(len(r.endpoints))
	out := make([]string, 0, len(r.endpoints))
	for i := range r.endpoints {
		out = append(out, r.endpoints[(start+i)%len(r.endpoints)])
	}
	return out
}

// backoff waits the progressive delay before the i-th endpoint attempt
func backoff(ctx context.Context, i int) error {
	if i == 0 {
		return nil
	}
	delay := time.Duration(i*constants.DelayBetweenRPCCalls) * time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// Dial connects to the first endpoint that accepts a connection.
// The caller owns the returned client and must close it.
func (r *RPCClient) Dial(ctx context.Context) (*ethclient.Client, string, error) {
	if len(r.endpoints) == 0 {
		return nil, "", fmt.Errorf("no RPC endpoints available for network %s", r.network)
	}

	var lastErr error
	for _, endpoint := range r.rotatedEndpoints() {
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			r.logger.Warn("failed to connect to RPC", "endpoint", endpoint, "error", err)
			lastErr = &RPCError{Endpoint: endpoint, Op: "dial", Err: err}
			continue
		}
		return client, endpoint, nil
	}

	return nil, "", fmt.Errorf("all RPC endpoints failed for network %s: %w", r.network, lastErr)
}

// GetTransactionReceipt implements chains.RPCClient
// Every endpoint is tried before a transaction is reported as not yet mined.
func (r *RPCClient) GetTransactionReceipt(ctx context.Context, txHash string) (chains.TransactionReceipt, error) {
	receipt, err := r.fetchReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetTransaction fetches a transaction by hash with failover
func (r *RPCClient) GetTransaction(ctx context.Context, txHash string) (*ethtypes.Transaction, error) {
	var tx *ethtypes.Transaction
	err := r.withFailover(ctx, constants.TransactionReceiptTimeout, func(ctx context.Context, client *ethclient.Client) error {
		found, _, err := client.TransactionByHash(ctx, common.HexToHash(txHash))
		if err != nil {
			return err
		}
		tx = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", txHash, err)
	}
	return tx, nil
}

func (r *RPCClient) fetchReceipt(ctx context.Context, txHash string) (*EVMReceipt, error) {
	if len(r.endpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints available for network %s", r.network)
	}

	notFound := false
	var lastErr error
	for i, endpoint := range r.rotatedEndpoints() {
		if err := backoff(ctx, i); err != nil {
			return nil, err
		}

		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			lastErr = &RPCError{Endpoint: endpoint, Op: "dial", Err: err}
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, constants.TransactionReceiptTimeout)
		receipt, err := patchedTransactionReceipt(callCtx, client, common.HexToHash(txHash))
		client.Close()
		cancel()

		if errors.Is(err, chains.ErrReceiptNotFound) {
			notFound = true
			continue
		}
		if err != nil {
			r.logger.Debug("receipt lookup failed", "endpoint", endpoint, "error", err)
			lastErr = &RPCError{Endpoint: endpoint, Op: "eth_getTransactionReceipt", Err: err}
			continue
		}

		return &EVMReceipt{receipt: receipt}, nil
	}

	if notFound {
		return nil, chains.ErrReceiptNotFound
	}
	return nil, fmt.Errorf("all RPC endpoints failed for network %s: %w", r.network, lastErr)
}

// NativeBalance implements chains.BalanceReader
func (r *RPCClient) NativeBalance(ctx context.Context, owner string) (*big.Int, error) {
	var balance *big.Int
	err := r.withFailover(ctx, constants.CallContractTimeout, func(ctx context.Context, client *ethclient.Client) error {
		b, err := client.BalanceAt(ctx, common.HexToAddress(owner), nil)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance: %w", err)
	}
	return balance, nil
}

// TokenBalance implements chains.BalanceReader
func (r *RPCClient) TokenBalance(ctx context.Context, token, owner string) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	result, err := r.callContract(ctx, common.HexToAddress(token), data)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}

	out, err := erc20ABI.Unpack("balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode balanceOf result: %w", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}
	return balance, nil
}

// TokenDecimals reads decimals() from an ERC-20 contract
func (r *RPCClient) TokenDecimals(ctx context.Context, token string) (uint8, error) {
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to pack decimals call: %w", err)
	}

	result, err := r.callContract(ctx, common.HexToAddress(token), data)
	if err != nil {
		return 0, fmt.Errorf("contract call failed: %w", err)
	}

	var decimals uint8
	if err := erc20ABI.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return 0, fmt.Errorf("failed to decode decimals result: %w", err)
	}
	return decimals, nil
}

// IsHealthy implements chains.RPCClient
func (r *RPCClient) IsHealthy(endpoint string) bool {
	return isEndpointHealthy(endpoint)
}

// callContract makes a read-only contract call with RPC failover
func (r *RPCClient) callContract(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	var result []byte
	err := r.withFailover(ctx, constants.CallContractTimeout, func(ctx context.Context, client *ethclient.Client) error {
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	return result, err
}

// withFailover runs call against each endpoint until one succeeds
func (r *RPCClient) withFailover(ctx context.Context, timeout time.Duration, call func(context.Context, *ethclient.Client) error) error {
	if len(r.endpoints) == 0 {
		return fmt.Errorf("no RPC endpoints available for network %s", r.network)
	}

	var lastErr error
	for i, endpoint := range r.rotatedEndpoints() {
		if err := backoff(ctx, i); err != nil {
			return err
		}

		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			lastErr = &RPCError{Endpoint: endpoint, Op: "dial", Err: err}
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err = call(callCtx, client)
		client.Close()
		cancel()

		if err != nil {
			r.logger.Warn("RPC call failed", "endpoint", endpoint, "error", err)
			lastErr = &RPCError{Endpoint: endpoint, Op: "call", Err: err}
			continue
		}
		return nil
	}

	return fmt.Errorf("all RPC endpoints failed for network %s: %w", r.network, lastErr)
}

// isEndpointHealthy performs a quick health check on an RPC endpoint
func isEndpointHealthy(endpoint string) bool {
	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return false
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = client.BlockNumber(ctx)
	return err == nil
}

// patchedTransactionReceipt gets a transaction receipt, tolerating non-standard log fields
func patchedTransactionReceipt(ctx context.Context, client *ethclient.Client, txHash common.Hash) (*ethtypes.Receipt, error) {
	var raw json.RawMessage
	err := client.Client().CallContext(ctx, &raw, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, chains.ErrReceiptNotFound
	}

	cleaned, err := stripBlockTimestampFromLogs(raw)
	if err != nil {
		return nil, err
	}

	var receipt ethtypes.Receipt
	if err := json.Unmarshal(cleaned, &receipt); err != nil {
		return nil, err
	}

	return &receipt, nil
}

// stripBlockTimestampFromLogs removes the blockTimestamp field from transaction logs
func stripBlockTimestampFromLogs(raw json.RawMessage) ([]byte, error) {
	var receiptMap map[string]interface{}
	if err := json.Unmarshal(raw, &receiptMap); err != nil {
		return nil, err
	}

	logs, ok := receiptMap["logs"].([]interface{})
	if ok {
		for _, log := range logs {
			logMap, ok := log.(map[string]interface{})
			if ok {
				delete(logMap, "blockTimestamp")
			}
		}
	}

	return json.Marshal(receiptMap)
}

// transferEventSignature is keccak256("Transfer(address,address,uint256)")
var transferEventSignature = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// EVMReceipt implements chains.TransactionReceipt and, once the mined
// transaction is attached, chains.NativeTransferReader
type EVMReceipt struct {
	receipt *ethtypes.Receipt
	tx      *ethtypes.Transaction
}

var (
	_ chains.TransactionReceipt   = (*EVMReceipt)(nil)
	_ chains.NativeTransferReader = (*EVMReceipt)(nil)
)

// NewEVMReceipt creates a new EVM receipt wrapper
func NewEVMReceipt(receipt *ethtypes.Receipt) *EVMReceipt {
	return &EVMReceipt{receipt: receipt}
}

func (r *EVMReceipt) IsSuccessful() bool {
	return r.receipt.Status == ethtypes.ReceiptStatusSuccessful
}

func (r *EVMReceipt) TxHash() string {
	return r.receipt.TxHash.Hex()
}

// WithTransaction attaches the mined transaction the receipt belongs to
func (r *EVMReceipt) WithTransaction(tx *ethtypes.Transaction) *EVMReceipt {
	r.tx = tx
	return r
}

// GetNativeTransfer implements chains.NativeTransferReader
func (r *EVMReceipt) GetNativeTransfer() (*chains.TransferEvent, error) {
	if r.tx == nil {
		return nil, fmt.Errorf("mined transaction not available for %s", r.TxHash())
	}
	if r.tx.Hash() != r.receipt.TxHash {
		return nil, fmt.Errorf("mined transaction hash mismatch: got %s, expected %s", r.tx.Hash().Hex(), r.TxHash())
	}
	to := r.tx.To()
	if to == nil {
		return nil, fmt.Errorf("transaction %s is a contract creation", r.TxHash())
	}
	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(r.tx.ChainId()), r.tx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover sender of %s: %w", r.TxHash(), err)
	}
	return &chains.TransferEvent{
		From:  from.Hex(),
		To:    to.Hex(),
		Value: r.tx.Value().String(),
	}, nil
}

// GetUnderlyingReceipt returns the underlying EVM receipt
func (r *EVMReceipt) GetUnderlyingReceipt() *ethtypes.Receipt {
	return r.receipt
}

func (r *EVMReceipt) GetTransferEvent() (*chains.TransferEvent, error) {
	// Transfer(address indexed from, address indexed to, uint256 value)
	for _, log := range r.receipt.Logs {
		if len(log.Topics) >= 3 && log.Topics[0] == transferEventSignature {
			from := common.HexToAddress(log.Topics[1].Hex())
			to := common.HexToAddress(log.Topics[2].Hex())
			value := common.BytesToHash(log.Data).Big()

			return &chains.TransferEvent{
				From:  from.Hex(),
				To:    to.Hex(),
				Value: value.String(),
				Asset: log.Address.Hex(), // ERC-20 contract address
			}, nil
		}
	}

	return nil, fmt.Errorf("no transfer event found")
}
