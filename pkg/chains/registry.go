package chains

import (
	"fmt"
	"slices"
	"sync"

	"github.com/sigweihq/rafflemint/pkg/constants"
)

// Registry holds one adapter per payment network
type Registry struct {
	adapters map[string]ChainAdapter
	mu       sync.RWMutex
}

var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]ChainAdapter),
	}
}

// InitGlobalRegistry initializes the process-wide registry once and returns it
func InitGlobalRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// GetGlobalRegistry returns the process-wide registry, nil before InitGlobalRegistry
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds or replaces the adapter for adapter.Network().
// The network must be known and the adapter must sign for its chain ID;
// a mismatch would produce transactions another chain could replay.
func (r *Registry) Register(adapter ChainAdapter) error {
	if adapter == nil {
		return fmt.Errorf("cannot register nil adapter")
	}
	network := adapter.Network()
	chainID, ok := constants.NetworkToChainID[network]
	if !ok {
		return fmt.Errorf("cannot register adapter for unknown network %q", network)
	}
	if adapter.ChainID() != chainID {
		return fmt.Errorf("adapter for %s uses chain ID %d, expected %d", network, adapter.ChainID(), chainID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[network] = adapter
	return nil
}

func (r *Registry) Get(network string) (ChainAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[network]
	if !exists {
		return nil, fmt.Errorf("no adapter registered for network: %s", network)
	}
	return adapter, nil
}

// Networks returns the registered network names in sorted order
func (r *Registry) Networks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	networks := make([]string, 0, len(r.adapters))
	for network := range r.adapters {
		networks = append(networks, network)
	}
	slices.Sort(networks)
	return networks
}

func (r *Registry) IsSupported(network string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.adapters[network]
	return exists
}

// ResetGlobalRegistry drops the process-wide registry. Tests only.
func ResetGlobalRegistry() {
	globalRegistry = nil
	globalRegistryOnce = sync.Once{}
}

// IsKnownNetwork reports whether network has a chain ID mapping
func IsKnownNetwork(network string) bool {
	_, ok := constants.NetworkToChainID[network]
	return ok
}
