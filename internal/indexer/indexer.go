package indexer

import (
	"sync"

	"github.com/ZilDuck/nft-marketplace/internal/elastic_cache"
	"github.com/ZilDuck/nft-marketplace/internal/event"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"go.uber.org/zap"
)

// Indexer turns committed ledger logs into documents buffered in the elastic
// cache.
type Indexer interface {
	Subscribe(m *event.Manager)
	IndexLog(log ledger.Log) error
	Persist() (int, error)
}

type indexer struct {
	mu                 sync.Mutex
	elastic            elastic_cache.Index
	txIndexer          TransactionIndexer
	nftIndexer         NftIndexer
	marketplaceIndexer MarketplaceIndexer
}

func NewIndexer(
	elastic elastic_cache.Index,
	txIndexer TransactionIndexer,
	nftIndexer NftIndexer,
	marketplaceIndexer MarketplaceIndexer,
) Indexer {
	return &indexer{
		elastic:            elastic,
		txIndexer:          txIndexer,
		nftIndexer:         nftIndexer,
		marketplaceIndexer: marketplaceIndexer,
	}
}

// Subscribe registers a single listener for every indexed event, so documents
// are built in commit order.
func (i *indexer) Subscribe(m *event.Manager) {
	m.AddEventsListener([]event.Type{
		event.TokenMintedEvent,
		event.TokenTransferredEvent,
		event.ApprovalForAllEvent,
		event.ItemOfferedEvent,
		event.ItemBoughtEvent,
	}, func(msg interface{}) {
		log, ok := msg.(ledger.Log)
		if !ok {
			return
		}
		if err := i.IndexLog(log); err != nil {
			zap.L().With(zap.Error(err), zap.String("log", log.Name), zap.String("txId", log.TxHash.Hex())).
				Error("Indexer: Failed to index log")
		}
	})
}

func (i *indexer) IndexLog(log ledger.Log) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.txIndexer.Index(log)

	eventType, _ := event.TypeOf(log)
	switch eventType {
	case event.TokenMintedEvent:
		return i.nftIndexer.IndexMint(log)
	case event.TokenTransferredEvent:
		return i.nftIndexer.IndexTransfer(log)
	case event.ItemOfferedEvent:
		return i.marketplaceIndexer.IndexListing(log)
	case event.ItemBoughtEvent:
		return i.marketplaceIndexer.IndexSale(log)
	}

	return nil
}

func (i *indexer) Persist() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.elastic.Persist()
}
