// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	ChainID         int64             `mapstructure:"chain_id"`
	RPCList         []string          `mapstructure:"rpc_list"`
	RewardsAPIURL   string            `mapstructure:"rewards_api_url"`
	Contracts       ContractAddresses `mapstructure:"contracts"`
	CollateralList  []string          `mapstructure:"collateral_list"`
	RPCRetries      int               `mapstructure:"rpc_retries"`
	RPCDelayMs      int               `mapstructure:"rpc_delay_ms"`
	CallTimeoutMs   int               `mapstructure:"call_timeout_ms"`
	DebugLogging    bool              `mapstructure:"debug_logging"`
	LogFile         string            `mapstructure:"log_file"`
	EventBufferSize int               `mapstructure:"event_buffer_size"`
}

// ContractAddresses holds the fixed protocol contract addresses for the
// configured chain.
type ContractAddresses struct {
	StableToken string `mapstructure:"stable_token"`
	Vault       string `mapstructure:"vault"`
	Oracle      string `mapstructure:"oracle"`
	Distributor string `mapstructure:"distributor"`
}

const (
	DefaultChainID         = 8453 // Base mainnet
	DefaultRPCRetries      = 3
	DefaultRPCDelayMs      = 100
	DefaultCallTimeoutMs   = 10000
	DefaultEventBufferSize = 64
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"chain_id":          DefaultChainID,
		"rpc_retries":       DefaultRPCRetries,
		"rpc_delay_ms":      DefaultRPCDelayMs,
		"call_timeout_ms":   DefaultCallTimeoutMs,
		"event_buffer_size": DefaultEventBufferSize,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.ChainID <= 0 {
		return errors.New("invalid chain_id")
	}
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.RewardsAPIURL != "" {
		if err := validateURLWithCache(cfg.RewardsAPIURL, "https"); err != nil {
			return errors.New("rewards API URL must use HTTPS")
		}
	}
	if err := validateContracts(&cfg.Contracts); err != nil {
		return err
	}
	return validateNumericParams(cfg)
}

func validateContracts(c *ContractAddresses) error {
	if !isHexAddress(c.StableToken) {
		return errors.New("invalid stable_token address")
	}
	if !isHexAddress(c.Vault) {
		return errors.New("invalid vault address")
	}
	if !isHexAddress(c.Oracle) {
		return errors.New("invalid oracle address")
	}
	// The distributor is optional; rewards flows are disabled without it.
	if c.Distributor != "" && !isHexAddress(c.Distributor) {
		return errors.New("invalid distributor address")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.RPCRetries < 0 {
		return errors.New("invalid rpc_retries count")
	}
	if cfg.RPCDelayMs <= 0 {
		return errors.New("invalid rpc_delay_ms")
	}
	if cfg.CallTimeoutMs <= 0 {
		return errors.New("invalid call_timeout_ms")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	return nil
}

func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("BTC1")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	envRewardsURL := v.GetString("REWARDS_API_URL")
	if envRewardsURL != "" {
		cfg.RewardsAPIURL = envRewardsURL
	}
	return nil
}
