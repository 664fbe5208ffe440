package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Server struct {
	Addr        string
	CORSOrigins []string
}

// Inventory selects where the static order set comes from. When both are
// set, the file is appended to an empty store on first start.
type Inventory struct {
	OrdersFile string
	DBPath     string
}

// Relayer configures the remote provider. An empty URL means the node
// serves its static inventory instead.
type Relayer struct {
	URL     string
	PerPage int
	Timeout time.Duration
}

type Forwarder struct {
	RPCURL     string
	Address    common.Address
	WETH       common.Address
	PrivateKey string
}

type Log struct {
	Level string
	File  string
}

type Config struct {
	Server    Server
	Inventory Inventory
	Relayer   Relayer
	Forwarder Forwarder
	Log       Log
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:        ":3000",
			CORSOrigins: []string{"*"},
		},
		Inventory: Inventory{
			OrdersFile: "",
			DBPath:     "",
		},
		Relayer: Relayer{
			PerPage: 100,
			Timeout: 10 * time.Second,
		},
		Forwarder: Forwarder{
			RPCURL: "http://localhost:8545",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// godotenv never overrides variables already set in the process
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Server.Addr = getEnv("API_ADDR", cfg.Server.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}

	cfg.Inventory.OrdersFile = getEnv("ORDERS_FILE", cfg.Inventory.OrdersFile)
	cfg.Inventory.DBPath = getEnv("INVENTORY_DB", cfg.Inventory.DBPath)

	cfg.Relayer.URL = getEnv("RELAYER_URL", cfg.Relayer.URL)
	if v := os.Getenv("RELAYER_PER_PAGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("RELAYER_PER_PAGE: invalid value %q", v)
		}
		cfg.Relayer.PerPage = n
	}
	if v := os.Getenv("RELAYER_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return cfg, fmt.Errorf("RELAYER_TIMEOUT_MS: invalid value %q", v)
		}
		cfg.Relayer.Timeout = time.Duration(ms) * time.Millisecond
	}

	cfg.Forwarder.RPCURL = getEnv("ETH_RPC_URL", cfg.Forwarder.RPCURL)
	cfg.Forwarder.PrivateKey = os.Getenv("TAKER_PRIVATE_KEY")
	for _, a := range []struct {
		key string
		dst *common.Address
	}{
		{"FORWARDER_ADDRESS", &cfg.Forwarder.Address},
		{"WETH_ADDRESS", &cfg.Forwarder.WETH},
	} {
		v := os.Getenv(a.key)
		if v == "" {
			continue
		}
		if !common.IsHexAddress(v) {
			return cfg, fmt.Errorf("%s: invalid address %q", a.key, v)
		}
		*a.dst = common.HexToAddress(v)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	return cfg, nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
