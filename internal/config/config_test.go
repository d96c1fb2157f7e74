package config

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenesisAlloc(t *testing.T) {
	alloc, err := ParseGenesisAlloc("0x70997970C51812dc3A010C7d01b50e0d17dc79C8:1000, 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC:25")
	require.NoError(t, err)

	assert.Len(t, alloc, 2)
	assert.Equal(t, big.NewInt(1000), alloc[common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")])
	assert.Equal(t, big.NewInt(25), alloc[common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")])
}

func TestParseGenesisAllocEmpty(t *testing.T) {
	alloc, err := ParseGenesisAlloc("  ")
	require.NoError(t, err)
	assert.Empty(t, alloc)
}

func TestParseGenesisAllocInvalid(t *testing.T) {
	tests := map[string]string{
		"missing amount":   "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		"bad address":      "0x1234:100",
		"negative amount":  "0x70997970C51812dc3A010C7d01b50e0d17dc79C8:-5",
		"non-numeric":      "0x70997970C51812dc3A010C7d01b50e0d17dc79C8:ten",
		"trailing garbage": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8:10,",
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGenesisAlloc(value)
			assert.ErrorIs(t, err, ErrInvalidGenesisAlloc)
		})
	}
}

func TestGetDefaults(t *testing.T) {
	cfg := Get()

	assert.Equal(t, common.HexToAddress(defaultDeployer), cfg.Contracts.Deployer)
	assert.Equal(t, cfg.Contracts.Deployer, cfg.Contracts.FeeAccount)
	assert.Equal(t, uint64(1), cfg.Contracts.FeePercent)
	assert.Equal(t, "5000", cfg.ApiPort)
	assert.Equal(t, 5*time.Second, cfg.PersistInterval)
	assert.False(t, cfg.ElasticSearch.Enabled())
}

func TestGetFromEnv(t *testing.T) {
	t.Setenv("FEE_PERCENT", "5")
	t.Setenv("FEE_ACCOUNT", "0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	t.Setenv("API_PORT", "8080")
	t.Setenv("PERSIST_INTERVAL", "1m")
	t.Setenv("ELASTIC_SEARCH_HOSTS", "http://es1:9200,http://es2:9200")
	t.Setenv("GENESIS_ALLOC", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8:1000")

	cfg := Get()

	assert.Equal(t, uint64(5), cfg.Contracts.FeePercent)
	assert.Equal(t, common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906"), cfg.Contracts.FeeAccount)
	assert.Equal(t, "8080", cfg.ApiPort)
	assert.Equal(t, time.Minute, cfg.PersistInterval)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.ElasticSearch.Hosts)
	assert.True(t, cfg.ElasticSearch.Enabled())
	assert.Len(t, cfg.Contracts.GenesisAlloc, 1)
}
