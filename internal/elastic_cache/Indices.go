package elastic_cache

import (
	"fmt"

	"github.com/ZilDuck/nft-marketplace/internal/config"
)

type Indices string

var (
	TransactionIndex Indices = "transaction"
	NftIndex         Indices = "nft"
	NftActionIndex   Indices = "nftaction"
	ListingIndex     Indices = "listing"
)

// Get prefixes the index with the network and index name.
func (i *Indices) Get() string {
	return fmt.Sprintf("%s.%s.%s", config.Get().Network, config.Get().Index, string(*i))
}
