package constants

import "time"

const (
	DelayBetweenRPCCalls       = 200              // delay in milliseconds between RPC calls
	TransactionReceiptTimeout  = 2 * time.Second  // timeout for a single receipt lookup
	CallContractTimeout        = 10 * time.Second // timeout for contract call
	SendTransactionTimeout     = 15 * time.Second // timeout for nonce/gas/send round trips
	ReceiptPollInterval        = 2 * time.Second  // interval between confirmation polls
	DefaultConfirmationTimeout = 5 * time.Minute  // upper bound on waiting for one confirmation
	IssuanceTimeout            = 60 * time.Second // timeout for the issuance service
	TLSHandshakeTimeout        = 10 * time.Second // timeout for TLS handshake
	ResponseHeaderTimeout      = 50 * time.Second // timeout for response header
	ExpectContinueTimeout      = 1 * time.Second  // timeout for expect continue
	ChainListTimeout           = 15 * time.Second // timeout for chainlist.org fetch
	MaxResponseBodySize        = 10 * 1024 * 1024 // maximum response body size in bytes (10MB)
)

// Pricing. Native amounts are rounded to NativePricePrecision fractional digits
// before they are scaled to wei.
const (
	NativeUnitPrice      = "0.085"
	NativePricePrecision = 4
	NativeDecimals       = 18
	NativeSymbol         = "AVAX"

	TokenUnitPrice = 6
	TokenDecimals  = 18
	TokenSymbol    = "BALLN"
)

// AllowedQuantities are the ticket counts a user may buy in one mint.
var AllowedQuantities = []int{1, 3, 5, 10}

// Network Types
const (
	NetworkAvalanche     = "avalanche"
	NetworkAvalancheFuji = "avalanche-fuji"
)

// mapping from network name to numeric chain ID
var NetworkToChainID = map[string]int64{
	NetworkAvalanche:     43114,
	NetworkAvalancheFuji: 43113,
}

var OfficialRPCEndpoints = map[string][]string{
	NetworkAvalanche:     {"https://api.avax.network/ext/bc/C/rpc"},
	NetworkAvalancheFuji: {"https://api.avax-test.network/ext/bc/C/rpc"},
}

// Issuance service paths
const (
	MintPath    = "/api/mint"
	SuccessPath = "/success"
)
