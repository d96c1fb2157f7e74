package entity

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type NftAction struct {
	Contract    string     `json:"contract"`
	TokenId     uint64     `json:"tokenId"`
	TxID        string     `json:"txId"`
	BlockNum    uint64     `json:"blockNum"`
	Action      ActionType `json:"action"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Marketplace string     `json:"marketplace,omitempty"`
	ItemId      uint64     `json:"itemId,omitempty"`
	Cost        string     `json:"cost,omitempty"`
	Fee         string     `json:"fee,omitempty"`
}

type ActionType string

const (
	MintAction               ActionType = "mint"
	TransferAction           ActionType = "transfer"
	MarketplaceSaleAction    ActionType = "sale"
	MarketplaceListingAction ActionType = "listing"
)

func (n NftAction) Slug() string {
	return CreateNftActionSlug(n.TokenId, n.Contract, n.TxID, string(n.Action))
}

func CreateNftActionSlug(tokenId uint64, contract, txId, action string) string {
	data := []byte(fmt.Sprintf("nftaction-%d-%s-%s-%s", tokenId, strings.ToLower(contract), txId, action))
	return fmt.Sprintf("%x", md5.Sum(data))
}

func AddressString(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
