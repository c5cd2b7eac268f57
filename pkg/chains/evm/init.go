package evm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sigweihq/rafflemint/pkg/chains"
)

// InitEVMChains registers adapters for the given networks in the global registry,
// using endpoints discovered from chainlist.org. Discovery failures fall back to
// the official endpoints.
func InitEVMChains(ctx context.Context, logger *slog.Logger, networks ...string) (*chains.Registry, error) {
	return InitEVMChainsWithProvider(ctx, logger, NewChainListEndpointProvider(logger), networks...)
}

// InitEVMChainsWithProvider is InitEVMChains with a caller-supplied provider
func InitEVMChainsWithProvider(ctx context.Context, logger *slog.Logger, provider *ChainListEndpointProvider, networks ...string) (*chains.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := chains.InitGlobalRegistry()

	if len(networks) == 0 {
		return registry, nil
	}

	if err := provider.RefreshEndpoints(ctx, networks); err != nil {
		logger.Warn("endpoint discovery failed, using official endpoints only", "error", err)
	}

	endpoints := make(map[string][]string, len(networks))
	for _, network := range networks {
		endpoints[network] = provider.GetEndpoints(network)
	}
	return registry, registerAdapters(registry, logger, endpoints)
}

// InitEVMChainsWithEndpoints initializes EVM chains with user-provided endpoints
func InitEVMChainsWithEndpoints(logger *slog.Logger, endpoints map[string][]string) (*chains.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := chains.InitGlobalRegistry()
	return registry, registerAdapters(registry, logger, endpoints)
}

func registerAdapters(registry *chains.Registry, logger *slog.Logger, endpoints map[string][]string) error {
	var failed []string
	for network, networkEndpoints := range endpoints {
		if len(networkEndpoints) == 0 {
			logger.Warn("no endpoints available for network", "network", network)
			failed = append(failed, network)
			continue
		}

		adapter, err := NewEVMAdapter(network, networkEndpoints, logger)
		if err != nil {
			logger.Warn("failed to create EVM adapter", "network", network, "error", err)
			failed = append(failed, network)
			continue
		}

		if err := registry.Register(adapter); err != nil {
			logger.Warn("failed to register EVM adapter", "network", network, "error", err)
			failed = append(failed, network)
			continue
		}
		logger.Debug("registered EVM adapter", "network", network, "endpoints", len(networkEndpoints))
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to initialize networks: %v", failed)
	}
	return nil
}
