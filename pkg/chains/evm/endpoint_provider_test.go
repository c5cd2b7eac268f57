package evm

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigweihq/rafflemint/pkg/constants"
)

func TestChainListEndpointProviderFallsBackBeforeRefresh(t *testing.T) {
	p := NewChainListEndpointProvider(nil)
	assert.Equal(t, constants.OfficialRPCEndpoints[constants.NetworkAvalanche], p.GetEndpoints(constants.NetworkAvalanche))
	assert.Nil(t, p.GetEndpoints("unknown-chain"))
}

func TestChainListEndpointProviderRefresh(t *testing.T) {
	official := constants.OfficialRPCEndpoints[constants.NetworkAvalanche][0]
	srv := chainListServer(t, []map[string]any{
		{"chainId": 43114, "rpc": []map[string]string{
			{"url": "https://healthy.example"},
			{"url": "https://sick.example"},
			{"url": "http://insecure.example"},
			{"url": "https://templated.example/${API_KEY}"},
			{"url": official},
		}},
		{"chainId": 1, "rpc": []map[string]string{{"url": "https://mainnet.example"}}},
	}, http.StatusOK)

	p := NewChainListEndpointProvider(nil).
		WithSourceURL(srv.URL).
		WithHealthCheck(func(endpoint string) bool { return endpoint != "https://sick.example" })

	require.NoError(t, p.RefreshEndpoints(context.Background(), []string{constants.NetworkAvalanche}))

	endpoints := p.GetEndpoints(constants.NetworkAvalanche)
	assert.Equal(t, []string{official, "https://healthy.example", "https://sick.example"}, endpoints)

	// Networks that were not requested stay on official endpoints
	assert.Equal(t, constants.OfficialRPCEndpoints[constants.NetworkAvalancheFuji], p.GetEndpoints(constants.NetworkAvalancheFuji))
}

func TestChainListEndpointProviderRefreshFailure(t *testing.T) {
	srv := chainListServer(t, "boom", http.StatusBadGateway)
	p := NewChainListEndpointProvider(nil).WithSourceURL(srv.URL)

	err := p.RefreshEndpoints(context.Background(), []string{constants.NetworkAvalancheFuji})
	assert.ErrorContains(t, err, "status 502")
	assert.Equal(t, constants.OfficialRPCEndpoints[constants.NetworkAvalancheFuji], p.GetEndpoints(constants.NetworkAvalancheFuji))
}

func TestChainListEndpointProviderUnknownNetwork(t *testing.T) {
	p := NewChainListEndpointProvider(nil)
	err := p.RefreshEndpoints(context.Background(), []string{"unknown-chain"})

	var unsupported *UnsupportedNetworkError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "unknown-chain", unsupported.Network)
}
