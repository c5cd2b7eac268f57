package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/sigweihq/rafflemint/pkg/constants"
)

// DefaultChainListURL is the public chainlist.org RPC index
const DefaultChainListURL = "https://chainlist.org/rpcs.json"

// ChainListResponse represents a chain entry from chainlist.org/rpcs.json
type ChainListResponse struct {
	ChainID int `json:"chainId"`
	RPC     []struct {
		URL string `json:"url"`
	} `json:"rpc"`
}

// ChainListEndpointProvider fetches RPC endpoints from chainlist.org
// and performs health checks to prioritize reliable endpoints
type ChainListEndpointProvider struct {
	endpoints   map[int64][]string // chainID -> []rpc_urls
	sourceURL   string
	httpClient  *http.Client
	healthCheck func(endpoint string) bool
	logger      *slog.Logger
	mu          sync.RWMutex
}

// NewChainListEndpointProvider creates a provider that fetches from chainlist.org
func NewChainListEndpointProvider(logger *slog.Logger) *ChainListEndpointProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainListEndpointProvider{
		endpoints:   make(map[int64][]string),
		sourceURL:   DefaultChainListURL,
		httpClient:  &http.Client{Timeout: constants.ChainListTimeout},
		healthCheck: isEndpointHealthy,
		logger:      logger,
	}
}

// WithSourceURL points the provider at a different chainlist-format index
func (p *ChainListEndpointProvider) WithSourceURL(url string) *ChainListEndpointProvider {
	p.sourceURL = url
	return p
}

// WithHealthCheck replaces the endpoint health check
func (p *ChainListEndpointProvider) WithHealthCheck(check func(endpoint string) bool) *ChainListEndpointProvider {
	p.healthCheck = check
	return p
}

// GetEndpoints returns the endpoints for network, healthy ones first.
// Falls back to the official endpoints until a refresh has completed.
func (p *ChainListEndpointProvider) GetEndpoints(network string) []string {
	chainID, ok := constants.NetworkToChainID[network]
	if !ok {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	endpoints := p.endpoints[chainID]
	if len(endpoints) == 0 {
		return constants.OfficialRPCEndpoints[network]
	}

	out := make([]string, len(endpoints))
	copy(out, endpoints)
	return out
}

// RefreshEndpoints fetches fresh endpoints for the given networks and health checks them.
// On fetch failure the official endpoints stay in place and the error is returned.
func (p *ChainListEndpointProvider) RefreshEndpoints(ctx context.Context, networks []string) error {
	wanted := make(map[int64]string, len(networks))
	for _, network := range networks {
		chainID, ok := constants.NetworkToChainID[network]
		if !ok {
			return &UnsupportedNetworkError{Network: network}
		}
		wanted[chainID] = network
	}

	fresh := make(map[int64][]string, len(wanted))
	for chainID, network := range wanted {
		fresh[chainID] = append([]string(nil), constants.OfficialRPCEndpoints[network]...)
	}

	chainListData, err := p.fetchAllChains(ctx)
	if err != nil {
		p.logger.Warn("failed to fetch from chainlist.org, using official endpoints only", "error", err)
		p.swap(fresh)
		return err
	}

	addChainlistEndpoints(fresh, chainListData)
	p.healthCheckAndPrioritize(fresh)
	p.swap(fresh)
	return nil
}

func (p *ChainListEndpointProvider) swap(endpoints map[int64][]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endpoints = endpoints
}

// fetchAllChains fetches chain data from the chainlist index
func (p *ChainListEndpointProvider) fetchAllChains(ctx context.Context) ([]ChainListResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chainlist request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chainlist data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chainlist returned status %d", resp.StatusCode)
	}

	var chains []ChainListResponse
	// The index is large; cap it well above its current size
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*constants.MaxResponseBodySize)).Decode(&chains); err != nil {
		return nil, fmt.Errorf("failed to decode chainlist data: %w", err)
	}

	return chains, nil
}

// addChainlistEndpoints appends HTTPS endpoints for the chains already present in endpoints
func addChainlistEndpoints(endpoints map[int64][]string, chainListData []ChainListResponse) {
	for _, chain := range chainListData {
		chainID := int64(chain.ChainID)
		existing, wanted := endpoints[chainID]
		if !wanted {
			continue
		}
		seen := make(map[string]bool, len(existing))
		for _, e := range existing {
			seen[e] = true
		}
		for _, rpc := range chain.RPC {
			// Only include HTTPS URLs and exclude templated URLs
			if strings.HasPrefix(rpc.URL, "https://") && !strings.Contains(rpc.URL, "${") && !seen[rpc.URL] {
				seen[rpc.URL] = true
				existing = append(existing, rpc.URL)
			}
		}
		endpoints[chainID] = existing
	}
}

// healthCheckAndPrioritize reorders each chain's endpoints with healthy ones first.
// Checks run concurrently; the relative order within each group is preserved.
func (p *ChainListEndpointProvider) healthCheckAndPrioritize(endpoints map[int64][]string) {
	for chainID, list := range endpoints {
		if len(list) == 0 {
			continue
		}

		healthy := make([]bool, len(list))
		var wg sync.WaitGroup
		for i, endpoint := range list {
			wg.Add(1)
			go func() {
				defer wg.Done()
				healthy[i] = p.healthCheck(endpoint)
			}()
		}
		wg.Wait()

		var up, down []string
		for i, endpoint := range list {
			if healthy[i] {
				up = append(up, endpoint)
			} else {
				down = append(down, endpoint)
			}
		}
		// Unhealthy endpoints are kept as a last resort
		endpoints[chainID] = append(up, down...)

		p.logger.Debug("health check complete", "chainID", chainID, "healthy", len(up), "unhealthy", len(down))
	}
}
