package di

import (
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/api"
	"github.com/ZilDuck/nft-marketplace/internal/config"
	"github.com/ZilDuck/nft-marketplace/internal/daemon"
	"github.com/ZilDuck/nft-marketplace/internal/elastic_cache"
	"github.com/ZilDuck/nft-marketplace/internal/event"
	"github.com/ZilDuck/nft-marketplace/internal/indexer"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/log"
	"github.com/ZilDuck/nft-marketplace/internal/metadata"
	"github.com/ZilDuck/nft-marketplace/internal/service/catalog"
	"github.com/ZilDuck/nft-marketplace/internal/service/market"
	"github.com/patrickmn/go-cache"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"
)

func Definitions(cfg *config.Config) []di.Def {
	return []di.Def{
		{
			Name: "events",
			Build: func(ctn di.Container) (interface{}, error) {
				return event.NewManager(), nil
			},
			Close: func(obj interface{}) error {
				obj.(*event.Manager).Close()
				return nil
			},
		},
		{
			Name: "ledger",
			Build: func(ctn di.Container) (interface{}, error) {
				return ledger.New(ledger.WithPublisher(ctn.Get("events").(*event.Manager))), nil
			},
		},
		{
			Name: "market",
			Build: func(ctn di.Container) (interface{}, error) {
				return market.Deploy(ctn.Get("ledger").(*ledger.Ledger), market.DeployConfig{
					Deployer:    cfg.Contracts.Deployer,
					FeeAccount:  cfg.Contracts.FeeAccount,
					FeePercent:  cfg.Contracts.FeePercent,
					TokenName:   cfg.Contracts.TokenName,
					TokenSymbol: cfg.Contracts.TokenSymbol,
				})
			},
		},
		{
			Name: "cache",
			Build: func(ctn di.Container) (interface{}, error) {
				return cache.New(cfg.Metadata.CacheTTL, 2*cfg.Metadata.CacheTTL), nil
			},
		},
		{
			Name: "metadata",
			Build: func(ctn di.Container) (interface{}, error) {
				client := metadata.NewClient(cfg.Metadata.Retries, time.Duration(cfg.Metadata.Timeout)*time.Second, log.Printf())
				return metadata.NewMetadataService(client, ctn.Get("cache").(*cache.Cache), cfg.Metadata.IpfsGateway), nil
			},
		},
		{
			Name: "catalog",
			Build: func(ctn di.Container) (interface{}, error) {
				return catalog.NewCatalogService(ctn.Get("market").(market.Service), ctn.Get("metadata").(metadata.Service)), nil
			},
		},
		{
			Name: "elastic",
			Build: func(ctn di.Container) (interface{}, error) {
				elastic, err := elastic_cache.New(cfg.ElasticSearch, cfg.Aws)
				if err != nil {
					zap.L().With(zap.Error(err)).Error("Failed to start ES")
				}
				return elastic, err
			},
		},
		{
			Name: "indexer",
			Build: func(ctn di.Container) (interface{}, error) {
				elastic := ctn.Get("elastic").(elastic_cache.Index)
				return indexer.NewIndexer(
					elastic,
					indexer.NewTransactionIndexer(elastic),
					indexer.NewNftIndexer(elastic, ctn.Get("market").(market.Service)),
					indexer.NewMarketplaceIndexer(elastic),
				), nil
			},
		},
		{
			Name: "api",
			Build: func(ctn di.Container) (interface{}, error) {
				return api.NewServer(
					ctn.Get("ledger").(*ledger.Ledger),
					ctn.Get("market").(market.Service),
					ctn.Get("catalog").(catalog.Service),
				), nil
			},
		},
		{
			Name: "daemon",
			Build: func(ctn di.Container) (interface{}, error) {
				var elastic elastic_cache.Index
				var idx indexer.Indexer
				if cfg.ElasticSearch.Enabled() {
					elastic = ctn.Get("elastic").(elastic_cache.Index)
					idx = ctn.Get("indexer").(indexer.Indexer)
				}
				return daemon.NewDaemon(
					cfg,
					ctn.Get("events").(*event.Manager),
					ctn.Get("market").(market.Service),
					ctn.Get("api").(api.Server),
					elastic,
					idx,
				), nil
			},
		},
	}
}
