package daemon

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/api"
	"github.com/ZilDuck/nft-marketplace/internal/config"
	"github.com/ZilDuck/nft-marketplace/internal/elastic_cache"
	"github.com/ZilDuck/nft-marketplace/internal/event"
	"github.com/ZilDuck/nft-marketplace/internal/indexer"
	"github.com/ZilDuck/nft-marketplace/internal/service/market"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// ContractAddresses is the file the frontend reads the deployed addresses
// from.
type ContractAddresses struct {
	NFT         string `json:"nft"`
	Marketplace string `json:"marketplace"`
}

type Daemon struct {
	cfg     *config.Config
	events  *event.Manager
	market  market.Service
	api     api.Server
	elastic elastic_cache.Index
	indexer indexer.Indexer
}

// NewDaemon wires the daemon. elastic and indexer are nil when no
// Elasticsearch host is configured.
func NewDaemon(
	cfg *config.Config,
	events *event.Manager,
	market market.Service,
	api api.Server,
	elastic elastic_cache.Index,
	indexer indexer.Indexer,
) *Daemon {
	return &Daemon{cfg, events, market, api, elastic, indexer}
}

// Execute funds the genesis accounts, publishes the contract addresses, starts
// the indexer and serves the api until ctx is cancelled.
func (d *Daemon) Execute(ctx context.Context) error {
	if err := d.genesis(ctx); err != nil {
		return err
	}

	if d.cfg.Contracts.AddressesPath != "" {
		if err := WriteContractAddresses(d.cfg.Contracts.AddressesPath, d.market.Contracts()); err != nil {
			return err
		}
	}

	if d.indexer != nil {
		if err := d.elastic.InstallMappings(); err != nil {
			return xerrors.Errorf("install mappings: %w", err)
		}
		d.indexer.Subscribe(d.events)
		go d.persistLoop(ctx)
	}

	contracts := d.market.Contracts()
	zap.L().With(
		zap.String("nft", contracts.NFT.Hex()),
		zap.String("marketplace", contracts.Marketplace.Hex()),
		zap.String("feeAccount", contracts.FeeAccount.Hex()),
		zap.Uint64("feePercent", contracts.FeePercent),
	).Info("Daemon: Contracts deployed")

	err := d.api.ListenAndServe(ctx, d.cfg.ApiPort)

	d.events.Close()
	if d.indexer != nil {
		d.persist()
	}

	return err
}

func (d *Daemon) genesis(ctx context.Context) error {
	for addr, amount := range d.cfg.Contracts.GenesisAlloc {
		if err := d.market.Fund(ctx, addr, amount); err != nil {
			return xerrors.Errorf("genesis %s: %w", addr.Hex(), err)
		}
	}

	return nil
}

func (d *Daemon) persistLoop(ctx context.Context) {
	interval := d.cfg.PersistInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.persist()
		}
	}
}

func (d *Daemon) persist() {
	actions, err := d.indexer.Persist()
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Daemon: Failed to persist index")
		return
	}
	if actions != 0 {
		zap.L().With(zap.Int("actions", actions)).Info("Daemon: Persisted index")
	}
}

func WriteContractAddresses(path string, contracts market.Contracts) error {
	b, err := json.MarshalIndent(ContractAddresses{
		NFT:         contracts.NFT.Hex(),
		Marketplace: contracts.Marketplace.Hex(),
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return ioutil.WriteFile(path, b, 0644)
}
