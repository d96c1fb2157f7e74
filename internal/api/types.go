package api

import (
	"math/big"

	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/service/market"
)

// Amounts travel as decimal strings of the native unit.

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Ref   string `json:"ref"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	BlockNum uint64 `json:"blockNum"`
}

type ContractsResponse struct {
	NFT         string `json:"nft"`
	Marketplace string `json:"marketplace"`
	FeeAccount  string `json:"feeAccount"`
	FeePercent  uint64 `json:"feePercent"`
}

type ReceiptResponse struct {
	TxHash   string `json:"txHash"`
	BlockNum uint64 `json:"blockNum"`
}

type MintRequest struct {
	Uri string `json:"uri"`
}

type MintResponse struct {
	TokenID uint64          `json:"tokenId"`
	Receipt ReceiptResponse `json:"receipt"`
}

type ApprovalRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

type ListRequest struct {
	TokenContract string `json:"tokenContract"`
	TokenID       uint64 `json:"tokenId"`
	Price         string `json:"price"`
}

type ListResponse struct {
	ItemID  uint64          `json:"itemId"`
	Receipt ReceiptResponse `json:"receipt"`
}

type PurchaseRequest struct {
	Value string `json:"value"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

type TokenResponse struct {
	Contract string `json:"contract"`
	TokenID  uint64 `json:"tokenId"`
	Owner    string `json:"owner"`
	URI      string `json:"uri"`
}

type ItemResponse struct {
	ItemID  uint64 `json:"itemId"`
	NFT     string `json:"nft"`
	TokenID uint64 `json:"tokenId"`
	Price   string `json:"price"`
	Seller  string `json:"seller"`
	Buyer   string `json:"buyer"`
	Sold    bool   `json:"sold"`
}

type TotalPriceResponse struct {
	ItemID     uint64 `json:"itemId"`
	TotalPrice string `json:"totalPrice"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type MarketItemResponse struct {
	ItemResponse
	TotalPrice  string `json:"totalPrice"`
	TokenURI    string `json:"tokenUri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type ListedResponse struct {
	Listed []MarketItemResponse `json:"listed"`
	Sold   []MarketItemResponse `json:"sold"`
}

func newContractsResponse(c market.Contracts) ContractsResponse {
	return ContractsResponse{
		NFT:         c.NFT.Hex(),
		Marketplace: c.Marketplace.Hex(),
		FeeAccount:  c.FeeAccount.Hex(),
		FeePercent:  c.FeePercent,
	}
}

func newReceiptResponse(r *ledger.Receipt) ReceiptResponse {
	return ReceiptResponse{TxHash: r.TxHash.Hex(), BlockNum: r.BlockNum}
}

func newTokenResponse(t entity.Token) TokenResponse {
	return TokenResponse{Contract: t.Contract.Hex(), TokenID: t.TokenID, Owner: t.Owner.Hex(), URI: t.URI}
}

func newItemResponse(l entity.Listing) ItemResponse {
	return ItemResponse{
		ItemID:  l.ItemID,
		NFT:     l.NFT.Hex(),
		TokenID: l.TokenID,
		Price:   amountString(l.Price),
		Seller:  l.Seller.Hex(),
		Buyer:   l.Buyer.Hex(),
		Sold:    l.Sold,
	}
}

func newMarketItemResponses(items []entity.MarketItem) []MarketItemResponse {
	responses := make([]MarketItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, MarketItemResponse{
			ItemResponse: newItemResponse(item.Listing),
			TotalPrice:   amountString(item.TotalPrice),
			TokenURI:     item.TokenURI,
			Name:         item.Name,
			Description:  item.Description,
			Image:        item.Image,
		})
	}

	return responses
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
