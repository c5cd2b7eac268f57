package evm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sigweihq/rafflemint/pkg/constants"
)

// UnsupportedNetworkError is returned for a network without a chain ID mapping
type UnsupportedNetworkError struct {
	Network string
}

func (e *UnsupportedNetworkError) Error() string {
	known := make([]string, 0, len(constants.NetworkToChainID))
	for network := range constants.NetworkToChainID {
		known = append(known, network)
	}
	slices.Sort(known)
	return fmt.Sprintf("unsupported network %q (known: %s)", e.Network, strings.Join(known, ", "))
}

// RPCError records which endpoint failed and during which JSON-RPC operation
type RPCError struct {
	Endpoint string
	Op       string
	Err      error
}

func (e *RPCError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("rpc %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("rpc %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}
