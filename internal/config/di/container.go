package di

import (
	"github.com/ZilDuck/nft-marketplace/internal/api"
	"github.com/ZilDuck/nft-marketplace/internal/config"
	"github.com/ZilDuck/nft-marketplace/internal/daemon"
	"github.com/ZilDuck/nft-marketplace/internal/event"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/service/catalog"
	"github.com/ZilDuck/nft-marketplace/internal/service/market"
	"github.com/sarulabs/di/v2"
)

// Container wraps the di container with typed getters.
type Container struct {
	di.Container
}

func NewContainer(cfg *config.Config) (*Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}
	if err := builder.Add(Definitions(cfg)...); err != nil {
		return nil, err
	}

	return &Container{builder.Build()}, nil
}

func (c *Container) GetEvents() *event.Manager {
	return c.Get("events").(*event.Manager)
}

func (c *Container) GetLedger() *ledger.Ledger {
	return c.Get("ledger").(*ledger.Ledger)
}

func (c *Container) GetMarket() market.Service {
	return c.Get("market").(market.Service)
}

func (c *Container) GetCatalog() catalog.Service {
	return c.Get("catalog").(catalog.Service)
}

func (c *Container) GetApi() api.Server {
	return c.Get("api").(api.Server)
}

func (c *Container) GetDaemon() *daemon.Daemon {
	return c.Get("daemon").(*daemon.Daemon)
}
