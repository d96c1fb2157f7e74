package catalog

import (
	"context"

	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/metadata"
	"github.com/ZilDuck/nft-marketplace/internal/service/market"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Service joins listings with their token metadata for the storefront views.
type Service interface {
	MarketItems(ctx context.Context) ([]entity.MarketItem, error)
	ListedItems(ctx context.Context, seller common.Address) (listed, sold []entity.MarketItem, err error)
	Purchases(ctx context.Context, buyer common.Address) ([]entity.MarketItem, error)
}

type service struct {
	market   market.Service
	metadata metadata.Service
}

func NewCatalogService(market market.Service, metadata metadata.Service) Service {
	return service{market, metadata}
}

// MarketItems are the listings still for sale.
func (s service) MarketItems(ctx context.Context) ([]entity.MarketItem, error) {
	return s.collect(ctx, func(l entity.Listing) bool {
		return !l.Sold
	})
}

// ListedItems are every listing by seller, and the subset already sold.
func (s service) ListedItems(ctx context.Context, seller common.Address) ([]entity.MarketItem, []entity.MarketItem, error) {
	listed, err := s.collect(ctx, func(l entity.Listing) bool {
		return l.Seller == seller
	})
	if err != nil {
		return nil, nil, err
	}

	sold := make([]entity.MarketItem, 0)
	for _, item := range listed {
		if item.Sold {
			sold = append(sold, item)
		}
	}

	return listed, sold, nil
}

func (s service) Purchases(ctx context.Context, buyer common.Address) ([]entity.MarketItem, error) {
	return s.collect(ctx, func(l entity.Listing) bool {
		return l.Sold && l.Buyer == buyer
	})
}

func (s service) collect(ctx context.Context, filter func(l entity.Listing) bool) ([]entity.MarketItem, error) {
	items := make([]entity.MarketItem, 0)

	for _, listing := range s.market.Items() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !filter(listing) {
			continue
		}

		item, err := s.marketItem(ctx, listing)
		if err != nil {
			zap.L().With(zap.Error(err), zap.Uint64("itemId", listing.ItemID)).Warn("Catalog: Skipping item")
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (s service) marketItem(ctx context.Context, listing entity.Listing) (entity.MarketItem, error) {
	uri, err := s.market.TokenURI(listing.NFT, listing.TokenID)
	if err != nil {
		return entity.MarketItem{}, err
	}

	total, err := s.market.TotalPrice(listing.ItemID)
	if err != nil {
		return entity.MarketItem{}, err
	}

	md, err := s.metadata.Fetch(ctx, uri)
	if err != nil {
		return entity.MarketItem{}, err
	}

	return entity.MarketItem{
		Listing:     listing,
		TotalPrice:  total,
		TokenURI:    uri,
		Name:        md.Name,
		Description: md.Description,
		Image:       md.Image,
	}, nil
}
