// Package config loads the node's configuration: a structured TOML file
// for DA endpoints and block-building parameters (spec.md §6), plus the
// handful of secrets and endpoints that come from the environment, read
// the way original_source/.../partial.rs's read_from_env helper does it:
// a named lookup that wraps the miss with context instead of a bare
// ErrNotExist.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/movementlabsxyz/full-node/nodeerrs"
)

// Environment variable names (spec.md §6).
const (
	EnvEthRPC        = "ETH_RPC"
	EnvEthWS         = "ETH_WS"
	EnvMcrPrivateKey = "MCR_PRIVATE_KEY"
)

// BlockBuilding holds the joint size/time budget the mempool and DA
// sequencer build blocks under (spec.md §6).
type BlockBuilding struct {
	MaxBlockSizeBytes int   `toml:"max_block_size_bytes"`
	BuildTimeMs       int64 `toml:"build_time_ms"`
}

// DA holds the DA store's own endpoint and namespace configuration.
type DA struct {
	ServiceAddress string `toml:"service_address"`
	Namespace      string `toml:"namespace"`
}

// Mempool holds the mempool's durable store path.
type Mempool struct {
	StorePath string `toml:"store_path"`
}

// File is the structured config file loaded from the canonical
// dot_movement-style path (spec.md §6).
type File struct {
	DA            DA            `toml:"da"`
	BlockBuilding BlockBuilding `toml:"block_building"`
	Mempool       Mempool       `toml:"mempool"`
}

// Load reads and parses a File from path.
func Load(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, &nodeerrs.ConfigError{Cause: fmt.Errorf("config: decode %s: %w", path, err)}
	}
	if f.BlockBuilding.MaxBlockSizeBytes <= 0 {
		return nil, &nodeerrs.ConfigError{Cause: fmt.Errorf("config: max_block_size_bytes must be positive")}
	}
	if f.BlockBuilding.BuildTimeMs <= 0 {
		return nil, &nodeerrs.ConfigError{Cause: fmt.Errorf("config: build_time_ms must be positive")}
	}
	return &f, nil
}

// Env holds the settlement secrets and endpoints read from the
// environment (spec.md §6).
type Env struct {
	EthRPC        string
	EthWS         string
	McrPrivateKey string
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (*Env, error) {
	rpc, err := readFromEnv("Ethereum RPC URL", EnvEthRPC)
	if err != nil {
		return nil, err
	}
	ws, err := readFromEnv("Ethereum WebSocket URL", EnvEthWS)
	if err != nil {
		return nil, err
	}
	key, err := readFromEnv("MCR signer's private key", EnvMcrPrivateKey)
	if err != nil {
		return nil, err
	}
	return &Env{EthRPC: rpc, EthWS: ws, McrPrivateKey: key}, nil
}

// readFromEnv mirrors the original's read_from_env: look up varName,
// wrapping a miss with what the value was for.
func readFromEnv(what, varName string) (string, error) {
	v, ok := os.LookupEnv(varName)
	if !ok || v == "" {
		return "", &nodeerrs.ConfigError{
			Cause: fmt.Errorf("failed to read %s from environment variable %s", what, varName),
		}
	}
	return v, nil
}
