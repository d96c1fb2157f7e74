package entity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gosimple/slug"
)

type Token struct {
	Contract common.Address `json:"contract"`
	TokenID  uint64         `json:"tokenId"`
	Owner    common.Address `json:"owner"`
	URI      string         `json:"uri"`
}

func (t Token) Slug() string {
	return CreateNftSlug(t.TokenID, t.Contract)
}

func CreateNftSlug(tokenId uint64, contract common.Address) string {
	return slug.Make(fmt.Sprintf("nft-%d-%s", tokenId, strings.ToLower(contract.Hex())))
}
