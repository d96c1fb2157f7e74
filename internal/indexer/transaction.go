package indexer

import (
	"github.com/ZilDuck/nft-marketplace/internal/elastic_cache"
	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
)

type TransactionIndexer interface {
	Index(log ledger.Log)
}

type transactionIndexer struct {
	elastic elastic_cache.Index
}

func NewTransactionIndexer(elastic elastic_cache.Index) TransactionIndexer {
	return transactionIndexer{elastic}
}

// Index records the log against its transaction document. The first log of a
// transaction creates the document, later ones append their event name.
func (i transactionIndexer) Index(log ledger.Log) {
	tx := entity.Transaction{
		ID:       log.TxHash.Hex(),
		BlockNum: log.BlockNum,
		From:     entity.AddressString(log.TxFrom),
		To:       entity.AddressString(log.Address),
		Events:   make([]string, 0),
	}

	if req := i.elastic.GetRequest(tx.Slug()); req != nil {
		if cached, ok := req.Entity.(entity.Transaction); ok {
			tx = cached
		}
	}
	if !tx.HasEvent(log.Name) {
		tx.Events = append(append(make([]string, 0, len(tx.Events)+1), tx.Events...), log.Name)
	}

	i.elastic.AddIndexRequest(elastic_cache.TransactionIndex.Get(), tx, elastic_cache.TransactionCreate)
}
