package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Storage backends accepted by the Backend field.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

type Config struct {
	RPCAddress       string `toml:"RPCAddress"`
	DataDir          string `toml:"DataDir"`
	Backend          string `toml:"Backend"`
	LogFile          string `toml:"LogFile"`
	RPCToken         string `toml:"RPCToken"`
	EnableApprovals  bool   `toml:"EnableApprovals"`
	StorageByteCost  string `toml:"StorageByteCost"`
	StorageCollector string `toml:"StorageCollector"`

	Contract ContractConfig `toml:"Contract"`
}

// ContractConfig seeds the contract metadata singleton at first start.
type ContractConfig struct {
	Spec          string `toml:"Spec"`
	Name          string `toml:"Name"`
	Symbol        string `toml:"Symbol"`
	Icon          string `toml:"Icon"`
	BaseURI       string `toml:"BaseURI"`
	Reference     string `toml:"Reference"`
	ReferenceHash string `toml:"ReferenceHash"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = BackendLevelDB
	}
	if strings.TrimSpace(cfg.StorageByteCost) == "" {
		cfg.StorageByteCost = "0"
	}
	if strings.TrimSpace(cfg.Contract.Spec) == "" {
		cfg.Contract.Spec = "nft-1.0.0"
	}
}

// Validate rejects configurations the daemon cannot start with.
func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case BackendLevelDB, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q", cfg.Backend)
	}
	if strings.TrimSpace(cfg.Contract.Name) == "" {
		return fmt.Errorf("config: contract name must not be empty")
	}
	if strings.TrimSpace(cfg.Contract.Symbol) == "" {
		return fmt.Errorf("config: contract symbol must not be empty")
	}
	if _, err := cfg.ByteCost(); err != nil {
		return err
	}
	return nil
}

// ByteCost parses the per-byte storage cost rate.
func (cfg *Config) ByteCost() (*big.Int, error) {
	raw := strings.TrimSpace(cfg.StorageByteCost)
	if raw == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("config: StorageByteCost must be a non-negative decimal string, got %q", raw)
	}
	return value, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		EnableApprovals: true,
		Contract: ContractConfig{
			Name:   "NFT Ledger",
			Symbol: "NFTL",
		},
	}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
