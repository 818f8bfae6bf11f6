// Package params holds daemon configuration: file-based via viper with
// environment overrides layered on top.
package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Node configures the process-level concerns of the daemon.
type Node struct {
	// DataDir is where the Pebble store and event log live.
	DataDir string `mapstructure:"data_dir"`
	// ListenAddr is the HTTP bind address for the API.
	ListenAddr string `mapstructure:"listen_addr"`
	// AllowedOrigins for browser clients.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// LogLevel: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// LogFile tees logs to a file when set.
	LogFile string `mapstructure:"log_file"`
	// BlockInterval is the wall-clock interval at which the simulated block
	// height advances. All expirations are expressed in blocks.
	BlockInterval time.Duration `mapstructure:"block_interval"`
}

// Market configures the settlement engine itself.
type Market struct {
	// EngineAddress is the account the engine holds custody under.
	EngineAddress string `mapstructure:"engine_address"`
	// Owner is the contract-owner account.
	Owner string `mapstructure:"owner"`

	ServiceFeeRecipient string `mapstructure:"service_fee_recipient"`
	ServiceFeeBps       uint64 `mapstructure:"service_fee_bps"`

	// AmountDecimals scales base units for display on the API.
	AmountDecimals int32 `mapstructure:"amount_decimals"`

	// Allowlist seeds the initial allowed users on a fresh store.
	Allowlist []string `mapstructure:"allowlist"`
	// PaymentTokens seeds the initially allowed fungible payment rails. The
	// native currency is always allowed.
	PaymentTokens []string `mapstructure:"payment_tokens"`
	// AssetContracts lists the non-fungible contracts the daemon serves
	// in-process backends for.
	AssetContracts []string `mapstructure:"asset_contracts"`
}

type Config struct {
	Node   Node   `mapstructure:"node"`
	Market Market `mapstructure:"market"`
}

func Default() Config {
	return Config{
		Node: Node{
			DataDir:        "data",
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			LogLevel:       "info",
			BlockInterval:  2 * time.Second,
		},
		Market: Market{
			ServiceFeeBps:  250,
			AmountDecimals: 18,
		},
	}
}

// Load reads a config file when path is non-empty, then applies environment
// overrides. Priority: ENV > file > defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers MARKET_* environment variables over the file config. A
// .env file in the working directory is honored when present.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("MARKET_DATA_DIR"); v != "" {
		cfg.Node.DataDir = v
	}
	if v := os.Getenv("MARKET_LISTEN_ADDR"); v != "" {
		cfg.Node.ListenAddr = v
	}
	if v := os.Getenv("MARKET_LOG_LEVEL"); v != "" {
		cfg.Node.LogLevel = v
	}
	if v := os.Getenv("MARKET_LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("MARKET_BLOCK_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Node.BlockInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("MARKET_ALLOWED_ORIGINS"); v != "" {
		cfg.Node.AllowedOrigins = strings.Split(v, ",")
	}

	if v := os.Getenv("MARKET_ENGINE_ADDRESS"); v != "" {
		cfg.Market.EngineAddress = v
	}
	if v := os.Getenv("MARKET_OWNER"); v != "" {
		cfg.Market.Owner = v
	}
	if v := os.Getenv("MARKET_SERVICE_FEE_RECIPIENT"); v != "" {
		cfg.Market.ServiceFeeRecipient = v
	}
	if v := os.Getenv("MARKET_SERVICE_FEE_BPS"); v != "" {
		if bps, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Market.ServiceFeeBps = bps
		}
	}
	if v := os.Getenv("MARKET_ALLOWLIST"); v != "" {
		cfg.Market.Allowlist = strings.Split(v, ",")
	}
	if v := os.Getenv("MARKET_PAYMENT_TOKENS"); v != "" {
		cfg.Market.PaymentTokens = strings.Split(v, ",")
	}
	if v := os.Getenv("MARKET_ASSET_CONTRACTS"); v != "" {
		cfg.Market.AssetContracts = strings.Split(v, ",")
	}
}
