// Package config loads the client's JSON configuration document using
// spf13/viper, merging a local .env via joho/godotenv for operator
// credentials during development.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/hiero-ledger/hiero-sdk-go-core/core"
	"github.com/hiero-ledger/hiero-sdk-go-core/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// NetworkConfig is the JSON configuration document's `network` field: an
// object carrying either a `preset` name or an `addresses` map (address ->
// node id). A bare string or a bare address map at `network` is not decoded
// into either field.
type NetworkConfig struct {
	Preset    string            `mapstructure:"preset" json:"preset,omitempty"`
	Addresses map[string]string `mapstructure:"addresses" json:"addresses,omitempty"`
}

// OperatorConfig is the JSON configuration document's optional `operator`
// field. PrivateKey is held opaquely — parsing and applying it is the
// signing collaborator's job.
type OperatorConfig struct {
	AccountId  string `mapstructure:"accountId" json:"accountId"`
	PrivateKey string `mapstructure:"privateKey" json:"privateKey"`
}

// Config is the unified JSON configuration document consumed by the client
// factory: network selection, optional mirror network, optional
// operator, and the shard/realm pair every account and node id is scoped to.
type Config struct {
	Network      NetworkConfig    `mapstructure:"network" json:"network"`
	MirrorPreset string           `mapstructure:"mirrorNetwork" json:"mirrorNetwork,omitempty"`
	MirrorAddrs  []string         `mapstructure:"mirrorAddresses" json:"mirrorAddresses,omitempty"`
	Operator     *OperatorConfig  `mapstructure:"operator" json:"operator,omitempty"`
	Shard        uint64           `mapstructure:"shard" json:"shard"`
	Realm        uint64           `mapstructure:"realm" json:"realm"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads the "default" configuration document from ./config or
// ./cmd/config and, when env is non-empty, merges the document named by env
// (e.g. "testnet", "mainnet") over it, optionally merging a local .env
// file for operator credentials during development. The result is
// stored in AppConfig and returned.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath("cmd/config")
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("HEDERA")

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the HEDERA_NETWORK environment
// variable as the document name, defaulting to "testnet".
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("HEDERA_NETWORK", "testnet"))
}

// NewClient builds a *core.Client from a loaded configuration document,
// applying the operator (if any) after construction.
func NewClient(cfg *Config, log *logrus.Entry) (*core.Client, error) {
	var (
		client *core.Client
		err    error
	)

	switch {
	case cfg.Network.Preset != "":
		client, err = core.ForNetwork(cfg.Network.Preset, cfg.Shard, cfg.Realm, log)
	case len(cfg.Network.Addresses) > 0:
		mirror, mErr := resolveMirror(cfg)
		if mErr != nil {
			return nil, mErr
		}
		client, err = core.ForAddressMap(cfg.Network.Addresses, mirror, cfg.Shard, cfg.Realm, log)
	default:
		return nil, utils.Wrap(fmt.Errorf("network: must set preset or addresses"), "build client")
	}
	if err != nil {
		return nil, err
	}

	if cfg.Operator != nil {
		acct, aErr := core.ParseAccountId(cfg.Operator.AccountId)
		if aErr != nil {
			return nil, utils.Wrap(aErr, "parse operator account id")
		}
		client.SetOperator(&core.OperatorConfig{AccountId: acct, PrivateKeyPEM: cfg.Operator.PrivateKey})
	}

	return client, nil
}

// resolveMirror builds the mirror network half of an explicit address-map
// client from the document's mirrorNetwork/mirrorAddresses fields.
func resolveMirror(cfg *Config) (*core.MirrorNetwork, error) {
	if cfg.MirrorPreset != "" {
		return core.MirrorNetworkForPreset(cfg.MirrorPreset)
	}
	if len(cfg.MirrorAddrs) == 0 {
		return nil, nil
	}
	return core.MirrorNetworkFromAddresses(cfg.MirrorAddrs)
}
