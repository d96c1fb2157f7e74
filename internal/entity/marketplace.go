package entity

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gosimple/slug"
)

// Listing is a fixed price offer of one token. Buyer is the zero address
// until the listing is sold.
type Listing struct {
	ItemID  uint64         `json:"itemId"`
	NFT     common.Address `json:"nft"`
	TokenID uint64         `json:"tokenId"`
	Price   *big.Int       `json:"price"`
	Seller  common.Address `json:"seller"`
	Buyer   common.Address `json:"buyer"`
	Sold    bool           `json:"sold"`
}

func (l Listing) Slug() string {
	return CreateListingSlug(l.ItemID, l.NFT)
}

func CreateListingSlug(itemId uint64, nft common.Address) string {
	return slug.Make(fmt.Sprintf("listing-%d-%s", itemId, strings.ToLower(nft.Hex())))
}

// Copy returns a listing that shares no mutable state with l.
func (l Listing) Copy() Listing {
	if l.Price != nil {
		l.Price = new(big.Int).Set(l.Price)
	}
	return l
}

// MarketItem is a listing joined with its token metadata, as shown to buyers.
type MarketItem struct {
	Listing
	TotalPrice  *big.Int `json:"totalPrice"`
	TokenURI    string   `json:"tokenUri"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
}
