package issuance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigweihq/rafflemint/pkg/types"
)

const testAddress = "0x1111111111111111111111111111111111111111"

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantURL string
		wantErr bool
	}{
		{"https", "https://raffle.example.com", "https://raffle.example.com", false},
		{"trailing slash trimmed", "https://raffle.example.com/", "https://raffle.example.com", false},
		{"localhost http", "http://localhost:3000", "http://localhost:3000", false},
		{"plain http rejected", "http://raffle.example.com", "", true},
		{"empty rejected", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.baseURL, nil, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, client.BaseURL())
			assert.NotNil(t, client.httpClient)
		})
	}
}

func TestMintSuccess(t *testing.T) {
	var received types.MintRequest
	var gotKey, gotContentType, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get(IdempotencyKeyHeader)
		gotContentType = r.Header.Get("Content-Type")
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"tokenIds":[42,43]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client(), nil)
	require.NoError(t, err)

	resp, err := client.Mint(context.Background(), &types.MintRequest{
		Address:         testAddress,
		Quantity:        3,
		PaymentMethod:   types.PaymentToken,
		TransactionHash: "0xabc",
	}, "attempt-1")
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, []uint64{42, 43}, resp.TokenIDs)

	assert.Equal(t, "/api/mint", gotPath)
	assert.Equal(t, "attempt-1", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, testAddress, received.Address)
	assert.Equal(t, types.Quantity(3), received.Quantity)
	assert.Equal(t, types.PaymentToken, received.PaymentMethod)
	assert.Equal(t, "0xabc", received.TransactionHash)
}

func TestMintWireFormat(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"success":true,"tokenIds":[1]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client(), nil)
	require.NoError(t, err)

	_, err = client.Mint(context.Background(), &types.MintRequest{
		Address:       testAddress,
		Quantity:      1,
		PaymentMethod: types.PaymentNative,
	}, "")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"address":       testAddress,
		"quantity":      float64(1),
		"paymentMethod": "avax",
	}, raw)
}

func TestMintServiceRejection(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantError string
		wantErr   bool
	}{
		{"success false on 200", http.StatusOK, `{"success":false,"error":"sold out"}`, "sold out", false},
		{"json error on 400", http.StatusBadRequest, `{"success":false,"error":"payment not found"}`, "payment not found", false},
		{"json error on 500 ignores success flag", http.StatusInternalServerError, `{"success":true,"error":"db down"}`, "db down", false},
		{"html error page", http.StatusBadGateway, `<html>bad gateway</html>`, "", true},
		{"empty error body", http.StatusServiceUnavailable, ``, "", true},
		{"malformed success body", http.StatusOK, `{"success":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(server.URL, server.Client(), nil)
			require.NoError(t, err)

			resp, err := client.Mint(context.Background(), &types.MintRequest{
				Address: testAddress, Quantity: 3, PaymentMethod: types.PaymentNative,
			}, "key")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestMintSendsOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client(), nil)
	require.NoError(t, err)

	_, err = client.Mint(context.Background(), &types.MintRequest{
		Address: testAddress, Quantity: 1, PaymentMethod: types.PaymentNative,
	}, "key")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMintRejectsInvalidRequest(t *testing.T) {
	client, err := NewClient("https://raffle.example.com", nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *types.MintRequest
	}{
		{"nil", nil},
		{"no address", &types.MintRequest{Quantity: 1}},
		{"bad quantity", &types.MintRequest{Address: testAddress, Quantity: 2}},
		{"bad method", &types.MintRequest{Address: testAddress, Quantity: 1, PaymentMethod: types.PaymentMethod(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Mint(context.Background(), tt.req, "")
			assert.Error(t, err)
		})
	}
}
