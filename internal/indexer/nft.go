package indexer

import (
	"github.com/ZilDuck/nft-marketplace/internal/elastic_cache"
	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var ErrUnexpectedLog = xerrors.New("unexpected log payload")

// TokenReader resolves the uri a token was minted with.
type TokenReader interface {
	TokenURI(tokenContract common.Address, tokenId uint64) (string, error)
}

type NftIndexer interface {
	IndexMint(log ledger.Log) error
	IndexTransfer(log ledger.Log) error
}

type nftIndexer struct {
	elastic elastic_cache.Index
	tokens  TokenReader
}

func NewNftIndexer(elastic elastic_cache.Index, tokens TokenReader) NftIndexer {
	return nftIndexer{elastic, tokens}
}

func (i nftIndexer) IndexMint(log ledger.Log) error {
	transfer, ok := log.Data.(registry.Transfer)
	if !ok {
		return xerrors.Errorf("%s: %w", log.Name, ErrUnexpectedLog)
	}

	uri, err := i.tokens.TokenURI(log.Address, transfer.TokenID)
	if err != nil {
		return err
	}

	token := entity.Token{Contract: log.Address, TokenID: transfer.TokenID, Owner: transfer.To, URI: uri}
	i.elastic.AddIndexRequest(elastic_cache.NftIndex.Get(), token, elastic_cache.NftMint)
	i.addAction(log, transfer, entity.MintAction)

	zap.L().With(zap.String("contract", log.Address.Hex()), zap.Uint64("tokenId", transfer.TokenID)).Info("Index NFT")

	return nil
}

func (i nftIndexer) IndexTransfer(log ledger.Log) error {
	transfer, ok := log.Data.(registry.Transfer)
	if !ok {
		return xerrors.Errorf("%s: %w", log.Name, ErrUnexpectedLog)
	}

	uri, err := i.tokens.TokenURI(log.Address, transfer.TokenID)
	if err != nil {
		return err
	}

	token := entity.Token{Contract: log.Address, TokenID: transfer.TokenID, Owner: transfer.To, URI: uri}
	i.elastic.AddUpdateRequest(elastic_cache.NftIndex.Get(), token, elastic_cache.NftTransfer)
	i.addAction(log, transfer, entity.TransferAction)

	return nil
}

func (i nftIndexer) addAction(log ledger.Log, transfer registry.Transfer, action entity.ActionType) {
	nftAction := entity.NftAction{
		Contract: entity.AddressString(log.Address),
		TokenId:  transfer.TokenID,
		TxID:     log.TxHash.Hex(),
		BlockNum: log.BlockNum,
		Action:   action,
		From:     entity.AddressString(transfer.From),
		To:       entity.AddressString(transfer.To),
	}

	i.elastic.AddIndexRequest(elastic_cache.NftActionIndex.Get(), nftAction, elastic_cache.NftAction)
}
