package config

import (
	"errors"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ErrInvalidGenesisAlloc = errors.New("invalid genesis allocation")

type Config struct {
	Env     string
	Network string
	Index   string
	Debug   bool
	LogPath string
	ApiPort string
	Reindex bool

	Contracts ContractsConfig
	Metadata  MetadataConfig

	PersistInterval time.Duration

	ElasticSearch ElasticSearchConfig
	Aws           AwsConfig
}

type ContractsConfig struct {
	Deployer      common.Address
	FeeAccount    common.Address
	FeePercent    uint64
	TokenName     string
	TokenSymbol   string
	GenesisAlloc  map[common.Address]*big.Int
	AddressesPath string
}

type MetadataConfig struct {
	IpfsGateway string
	Retries     int
	Timeout     int
	CacheTTL    time.Duration
}

type AwsConfig struct {
	AccessKey string
	SecretKey string
	Token     string
	Region    string
}

type ElasticSearchConfig struct {
	Hosts            []string
	Sniff            bool
	HealthCheck      bool
	Debug            bool
	Aws              bool
	Username         string
	Password         string
	MappingDir       string
	BulkPersistCount int
	Refresh          string
}

// Hardhat's first default account.
const defaultDeployer = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func (c ElasticSearchConfig) Enabled() bool {
	return len(c.Hosts) != 0
}

// Init loads .env when present and installs the global logger.
func Init() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			zap.L().With(zap.Error(err)).Fatal("Unable to init config")
		}
	}
	viper.AutomaticEnv()

	initLogger()
}

func initLogger() {
	cfg := Get()
	log.NewLogger(cfg.LogPath, cfg.Debug)
}

func Get() *Config {
	deployer := getAddress("DEPLOYER", common.HexToAddress(defaultDeployer))

	return &Config{
		Env:             getString("ENV", "dev"),
		Network:         getString("NETWORK", "localhost"),
		Index:           getString("INDEX_NAME", "marketplace"),
		Debug:           getBool("DEBUG", false),
		LogPath:         getString("LOG_PATH", ""),
		ApiPort:         getString("API_PORT", "5000"),
		Reindex:         getBool("REINDEX", false),
		PersistInterval: getDuration("PERSIST_INTERVAL", 5*time.Second),
		Contracts: ContractsConfig{
			Deployer:      deployer,
			FeeAccount:    getAddress("FEE_ACCOUNT", deployer),
			FeePercent:    getUint64("FEE_PERCENT", 1),
			TokenName:     getString("TOKEN_NAME", "DApp NFT"),
			TokenSymbol:   getString("TOKEN_SYMBOL", "DAPP"),
			GenesisAlloc:  getGenesisAlloc("GENESIS_ALLOC"),
			AddressesPath: getString("CONTRACT_ADDRESSES_PATH", ""),
		},
		Metadata: MetadataConfig{
			IpfsGateway: getString("IPFS_GATEWAY", "https://gateway.pinata.cloud/ipfs/"),
			Retries:     getInt("METADATA_RETRIES", 3),
			Timeout:     getInt("METADATA_TIMEOUT", 10),
			CacheTTL:    getDuration("METADATA_CACHE_TTL", 10*time.Minute),
		},
		Aws: AwsConfig{
			AccessKey: getString("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getString("AWS_SECRET_KEY_ID", ""),
			Token:     getString("AWS_TOKEN", ""),
			Region:    getString("AWS_REGION", ""),
		},
		ElasticSearch: ElasticSearchConfig{
			Hosts:            getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:            getBool("ELASTIC_SEARCH_SNIFF", false),
			HealthCheck:      getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:            getBool("ELASTIC_SEARCH_DEBUG", false),
			Aws:              getBool("ELASTIC_SEARCH_AWS", false),
			Username:         getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:         getString("ELASTIC_SEARCH_PASSWORD", ""),
			MappingDir:       getString("ELASTIC_SEARCH_MAPPING_DIR", "./mappings"),
			BulkPersistCount: getInt("ELASTIC_SEARCH_BULK_PERSIST_COUNT", 300),
			Refresh:          getString("ELASTIC_SEARCH_REFRESH", "wait_for"),
		},
	}
}

func getString(key string, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	val, _, err := big.ParseFloat(valStr, 10, 0, big.ToNearestEven)
	if err != nil {
		return defaultValue
	}

	intVal, _ := val.Int64()
	return int(intVal)
}

func getUint64(key string, defaultValue uint64) uint64 {
	val := getInt(key, int(defaultValue))
	if val < 0 {
		return defaultValue
	}

	return uint64(val)
}

func getBool(key string, defaultValue bool) bool {
	if getString(key, "") == "" {
		return defaultValue
	}

	return viper.GetBool(key)
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valStr); err == nil {
		return d
	}

	return defaultValue
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	return strings.Split(valStr, sep)
}

func getAddress(key string, defaultValue common.Address) common.Address {
	valStr := getString(key, "")
	if !common.IsHexAddress(valStr) {
		return defaultValue
	}

	return common.HexToAddress(valStr)
}

func getGenesisAlloc(key string) map[common.Address]*big.Int {
	alloc, err := ParseGenesisAlloc(getString(key, ""))
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("key", key)).Warn("Ignoring genesis allocation")
		return map[common.Address]*big.Int{}
	}

	return alloc
}

// ParseGenesisAlloc reads "address:amount" pairs separated by commas.
func ParseGenesisAlloc(value string) (map[common.Address]*big.Int, error) {
	alloc := make(map[common.Address]*big.Int)
	if strings.TrimSpace(value) == "" {
		return alloc, nil
	}

	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 || !common.IsHexAddress(parts[0]) {
			return nil, ErrInvalidGenesisAlloc
		}
		amount, ok := new(big.Int).SetString(parts[1], 10)
		if !ok || amount.Sign() < 0 {
			return nil, ErrInvalidGenesisAlloc
		}
		alloc[common.HexToAddress(parts[0])] = amount
	}

	return alloc, nil
}
