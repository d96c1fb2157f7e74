package indexer

import (
	"math/big"

	"github.com/ZilDuck/nft-marketplace/internal/elastic_cache"
	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/marketplace"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type MarketplaceIndexer interface {
	IndexListing(log ledger.Log) error
	IndexSale(log ledger.Log) error
}

type marketplaceIndexer struct {
	elastic elastic_cache.Index
}

func NewMarketplaceIndexer(elastic elastic_cache.Index) MarketplaceIndexer {
	return marketplaceIndexer{elastic}
}

func (i marketplaceIndexer) IndexListing(log ledger.Log) error {
	offered, ok := log.Data.(marketplace.Offered)
	if !ok {
		return xerrors.Errorf("%s: %w", log.Name, ErrUnexpectedLog)
	}

	listing := entity.Listing{
		ItemID:  offered.ItemID,
		NFT:     offered.NFT,
		TokenID: offered.TokenID,
		Price:   new(big.Int).Set(offered.Price),
		Seller:  offered.Seller,
	}
	i.elastic.AddIndexRequest(elastic_cache.ListingIndex.Get(), listing, elastic_cache.ListingCreate)

	i.elastic.AddIndexRequest(elastic_cache.NftActionIndex.Get(), entity.NftAction{
		Contract:    entity.AddressString(offered.NFT),
		TokenId:     offered.TokenID,
		TxID:        log.TxHash.Hex(),
		BlockNum:    log.BlockNum,
		Action:      entity.MarketplaceListingAction,
		From:        entity.AddressString(offered.Seller),
		Marketplace: entity.AddressString(log.Address),
		ItemId:      offered.ItemID,
		Cost:        offered.Price.String(),
	}, elastic_cache.NftAction)

	zap.L().With(zap.Uint64("itemId", offered.ItemID), zap.String("price", offered.Price.String())).Info("Index listing")

	return nil
}

func (i marketplaceIndexer) IndexSale(log ledger.Log) error {
	bought, ok := log.Data.(marketplace.Bought)
	if !ok {
		return xerrors.Errorf("%s: %w", log.Name, ErrUnexpectedLog)
	}

	listing := entity.Listing{
		ItemID:  bought.ItemID,
		NFT:     bought.NFT,
		TokenID: bought.TokenID,
		Price:   new(big.Int).Set(bought.Price),
		Seller:  bought.Seller,
		Buyer:   bought.Buyer,
		Sold:    true,
	}
	i.elastic.AddUpdateRequest(elastic_cache.ListingIndex.Get(), listing, elastic_cache.ListingSold)

	i.elastic.AddIndexRequest(elastic_cache.NftActionIndex.Get(), entity.NftAction{
		Contract:    entity.AddressString(bought.NFT),
		TokenId:     bought.TokenID,
		TxID:        log.TxHash.Hex(),
		BlockNum:    log.BlockNum,
		Action:      entity.MarketplaceSaleAction,
		From:        entity.AddressString(bought.Seller),
		To:          entity.AddressString(bought.Buyer),
		Marketplace: entity.AddressString(log.Address),
		ItemId:      bought.ItemID,
		Cost:        bought.Price.String(),
		Fee:         bought.Fee.String(),
	}, elastic_cache.NftAction)

	zap.L().With(zap.Uint64("itemId", bought.ItemID), zap.String("buyer", bought.Buyer.Hex())).Info("Index sale")

	return nil
}
