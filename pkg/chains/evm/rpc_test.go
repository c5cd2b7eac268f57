package evm

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigweihq/rafflemint/pkg/chains"
)

func TestPackTransfer(t *testing.T) {
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	amount := big.NewInt(1_000_000_000_000_000_000)

	data, err := PackTransfer(to, amount)
	require.NoError(t, err)

	// selector + two 32-byte words
	require.Len(t, data, 4+64)
	assert.Equal(t, "a9059cbb", common.Bytes2Hex(data[:4]))
	assert.Equal(t, to, common.BytesToAddress(data[4:36]))
	assert.Equal(t, 0, new(big.Int).SetBytes(data[36:68]).Cmp(amount))
}

func TestStripBlockTimestampFromLogs(t *testing.T) {
	raw := json.RawMessage(`{"status":"0x1","logs":[{"address":"0x01","blockTimestamp":"0x5"},{"address":"0x02"}]}`)

	cleaned, err := stripBlockTimestampFromLogs(raw)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(cleaned, &out))
	logs := out["logs"].([]any)
	require.Len(t, logs, 2)
	assert.NotContains(t, logs[0].(map[string]any), "blockTimestamp")
	assert.Equal(t, "0x01", logs[0].(map[string]any)["address"])
	assert.Equal(t, "0x1", out["status"])
}

func TestStripBlockTimestampFromLogsInvalidJSON(t *testing.T) {
	_, err := stripBlockTimestampFromLogs(json.RawMessage(`not json`))
	assert.Error(t, err)
}

func transferLog(token, from, to common.Address, value *big.Int) *ethtypes.Log {
	return &ethtypes.Log{
		Address: token,
		Topics: []common.Hash{
			transferEventSignature,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.BigToHash(value).Bytes(),
	}
}

func TestEVMReceiptGetTransferEvent(t *testing.T) {
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	value, _ := new(big.Int).SetString("30000000000000000000", 10)

	receipt := NewEVMReceipt(&ethtypes.Receipt{
		Status: ethtypes.ReceiptStatusSuccessful,
		TxHash: common.HexToHash("0xabc"),
		Logs: []*ethtypes.Log{
			{Address: token, Topics: []common.Hash{common.HexToHash("0x1234")}},
			transferLog(token, from, to, value),
		},
	})

	assert.True(t, receipt.IsSuccessful())
	assert.Equal(t, common.HexToHash("0xabc").Hex(), receipt.TxHash())

	event, err := receipt.GetTransferEvent()
	require.NoError(t, err)
	assert.Equal(t, from.Hex(), event.From)
	assert.Equal(t, to.Hex(), event.To)
	assert.Equal(t, value.String(), event.Value)
	assert.Equal(t, token.Hex(), event.Asset)
}

func TestEVMReceiptWithoutTransferEvent(t *testing.T) {
	receipt := NewEVMReceipt(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed})
	assert.False(t, receipt.IsSuccessful())

	_, err := receipt.GetTransferEvent()
	assert.Error(t, err)
}

func TestGetTransactionReceiptNotFound(t *testing.T) {
	node := newFakeNode()
	srv := httptest.NewServer(node)
	defer srv.Close()

	client := NewRPCClient("avalanche-fuji", fujiChainID, []string{srv.URL}, nil)
	_, err := client.GetTransactionReceipt(context.Background(), common.Hash{0x42}.Hex())
	assert.ErrorIs(t, err, chains.ErrReceiptNotFound)
}

func TestGetTransactionReceiptFailover(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	hash := common.Hash{0x42}.Hex()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": receiptJSON(hash, 1)})
	}))
	defer healthy.Close()

	client := NewRPCClient("avalanche-fuji", fujiChainID, []string{broken.URL, healthy.URL}, nil)

	// Start index is random; every order must reach the healthy endpoint
	for i := 0; i < 4; i++ {
		receipt, err := client.GetTransactionReceipt(context.Background(), hash)
		require.NoError(t, err)
		assert.True(t, receipt.IsSuccessful())
		assert.Equal(t, hash, receipt.TxHash())
	}
}

func TestGetTransactionReceiptAllEndpointsFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	client := NewRPCClient("avalanche-fuji", fujiChainID, []string{broken.URL}, nil)
	_, err := client.GetTransactionReceipt(context.Background(), common.Hash{0x42}.Hex())
	require.Error(t, err)
	assert.NotErrorIs(t, err, chains.ErrReceiptNotFound)

	var rpcErr *RPCError
	assert.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, broken.URL, rpcErr.Endpoint)
	assert.Equal(t, "eth_getTransactionReceipt", rpcErr.Op)
}

func TestNoEndpoints(t *testing.T) {
	client := NewRPCClient("avalanche-fuji", fujiChainID, nil, nil)

	_, err := client.GetTransactionReceipt(context.Background(), "0x01")
	assert.Error(t, err)
	_, _, err = client.Dial(context.Background())
	assert.Error(t, err)
	_, err = client.NativeBalance(context.Background(), "0x01")
	assert.Error(t, err)
}

func TestRotatedEndpointsCoversAll(t *testing.T) {
	endpoints := []string{"a", "b", "c"}
	client := NewRPCClient("avalanche", 43114, endpoints, nil)
	for i := 0; i < 10; i++ {
		assert.ElementsMatch(t, endpoints, client.rotatedEndpoints())
	}
	assert.Equal(t, endpoints, client.Endpoints())
}
