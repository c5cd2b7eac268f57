package evm_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sigweihq/rafflemint/pkg/chains/evm"
	"github.com/sigweihq/rafflemint/pkg/constants"
)

// Example_autoDiscovery initializes Avalanche with endpoints discovered from
// chainlist.org and reads the deployer's balance through the failover client.
func Example_autoDiscovery() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	ctx := context.Background()

	// Endpoints that fail the health check are kept but tried last
	registry, err := evm.InitEVMChains(ctx, logger, constants.NetworkAvalanche)
	if err != nil {
		logger.Error("Failed to initialize EVM chains", "error", err)
		return
	}

	adapter, err := registry.Get(constants.NetworkAvalanche)
	if err != nil {
		logger.Error("Avalanche not registered", "error", err)
		return
	}

	client := adapter.RPCClient().(*evm.RPCClient)
	balance, err := client.NativeBalance(ctx, "0x1234567890123456789012345678901234567890")
	if err != nil {
		logger.Error("Failed to read balance", "error", err)
		return
	}
	fmt.Printf("balance: %s wei via %d endpoints\n", balance, len(client.Endpoints()))
}

// Example_fixedEndpoints skips discovery and uses a private node
func Example_fixedEndpoints() {
	registry, err := evm.InitEVMChainsWithEndpoints(nil, map[string][]string{
		constants.NetworkAvalancheFuji: {"https://fuji.node.example.com/ext/bc/C/rpc"},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(registry.Networks())
}
