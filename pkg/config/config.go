package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/sigweihq/rafflemint/pkg/constants"
	"github.com/sigweihq/rafflemint/pkg/utils"
)

// Environment variable names
const (
	EnvDeployerWallet      = "DEPLOYER_WALLET"
	EnvTokenAddress        = "BALLN_TOKEN_ADDRESS"
	EnvMintAPIURL          = "MINT_API_URL"
	EnvNetwork             = "RAFFLE_NETWORK"
	EnvRPCEndpoints        = "RPC_ENDPOINTS"
	EnvWalletPrivateKey    = "WALLET_PRIVATE_KEY"
	EnvConfirmationTimeout = "CONFIRMATION_TIMEOUT"
	EnvLedgerPath          = "LEDGER_PATH"
	EnvLogLevel            = "LOG_LEVEL"
	EnvLogFile             = "LOG_FILE"
	EnvErrorLogFile        = "ERROR_LOG_FILE"
)

type Config struct {
	DeployerWallet      common.Address
	TokenAddress        common.Address
	MintAPIURL          string
	Network             string
	RPCEndpoints        []string // empty means discover
	WalletPrivateKey    string
	ConfirmationTimeout time.Duration
	LedgerPath          string // empty disables the ledger
	LogLevel            string
	LogFile             string
	ErrorLogFile        string
}

// Load reads .env files (if present) into the environment and then builds the config.
// Variables already set in the environment win over .env values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a config from a variable lookup
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		MintAPIURL:          strings.TrimSpace(getenv(EnvMintAPIURL)),
		Network:             strings.TrimSpace(getenv(EnvNetwork)),
		RPCEndpoints:        splitList(getenv(EnvRPCEndpoints)),
		WalletPrivateKey:    strings.TrimSpace(getenv(EnvWalletPrivateKey)),
		ConfirmationTimeout: constants.DefaultConfirmationTimeout,
		LedgerPath:          strings.TrimSpace(getenv(EnvLedgerPath)),
		LogLevel:            strings.TrimSpace(getenv(EnvLogLevel)),
		LogFile:             strings.TrimSpace(getenv(EnvLogFile)),
		ErrorLogFile:        strings.TrimSpace(getenv(EnvErrorLogFile)),
	}
	if cfg.Network == "" {
		cfg.Network = constants.NetworkAvalanche
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	var errs []error

	var err error
	if cfg.DeployerWallet, err = parseAddress(EnvDeployerWallet, getenv(EnvDeployerWallet)); err != nil {
		errs = append(errs, err)
	}
	if cfg.TokenAddress, err = parseAddress(EnvTokenAddress, getenv(EnvTokenAddress)); err != nil {
		errs = append(errs, err)
	}

	if raw := strings.TrimSpace(getenv(EnvConfirmationTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s must be a non-negative duration: %q", EnvConfirmationTimeout, raw))
		} else {
			cfg.ConfirmationTimeout = d
		}
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the settings that do not depend on parsing
func (c *Config) Validate() error {
	var errs []error
	if c.MintAPIURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvMintAPIURL))
	} else if err := utils.ValidateServiceURL(c.MintAPIURL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvMintAPIURL, err))
	}
	if _, ok := constants.NetworkToChainID[c.Network]; !ok {
		errs = append(errs, fmt.Errorf("%s: unsupported network %q", EnvNetwork, c.Network))
	}
	for _, endpoint := range c.RPCEndpoints {
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			errs = append(errs, fmt.Errorf("%s: invalid endpoint %q", EnvRPCEndpoints, endpoint))
		}
	}
	return errors.Join(errs...)
}

func parseAddress(name, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, fmt.Errorf("%s is required", name)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s is not a hex address: %q", name, raw)
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s must not be the zero address", name)
	}
	return addr, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
