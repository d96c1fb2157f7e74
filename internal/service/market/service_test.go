package market

import (
	"context"
	"math/big"
	"testing"

	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/marketplace"
	"github.com/ZilDuck/nft-marketplace/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	seller   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	buyer    = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func deploy(t *testing.T) (*ledger.Ledger, Service) {
	l := ledger.New()
	s, err := Deploy(l, DeployConfig{
		Deployer:    deployer,
		FeePercent:  1,
		TokenName:   "DApp NFT",
		TokenSymbol: "DAPP",
	})
	require.NoError(t, err)

	return l, s
}

func TestDeployOrderAndDefaults(t *testing.T) {
	_, s := deploy(t)

	c := s.Contracts()
	assert.Equal(t, crypto.CreateAddress(deployer, 0), c.NFT)
	assert.Equal(t, crypto.CreateAddress(deployer, 1), c.Marketplace)
	assert.Equal(t, deployer, c.FeeAccount)
	assert.Equal(t, uint64(1), c.FeePercent)
}

func TestDeployRejectsFeeAbove100(t *testing.T) {
	_, err := Deploy(ledger.New(), DeployConfig{Deployer: deployer, FeePercent: 101})
	require.ErrorIs(t, err, marketplace.ErrInvalidFeePercent)
}

func TestNewServiceRequiresDeployedContracts(t *testing.T) {
	l, s := deploy(t)
	c := s.Contracts()

	_, err := NewService(l, c.Marketplace, c.NFT)
	require.ErrorIs(t, err, ErrUnknownContract)

	again, err := NewService(l, c.NFT, c.Marketplace)
	require.NoError(t, err)
	assert.Equal(t, c, again.Contracts())
}

func TestMintListAndPurchase(t *testing.T) {
	ctx := context.Background()
	_, s := deploy(t)
	c := s.Contracts()
	require.NoError(t, s.Fund(ctx, buyer, big.NewInt(1000)))

	tokenId, receipt, err := s.Mint(ctx, seller, "ipfs://abc")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tokenId)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, registry.TransferLog, receipt.Logs[0].Name)

	token, err := s.Token(tokenId)
	require.NoError(t, err)
	assert.Equal(t, c.NFT, token.Contract)
	assert.Equal(t, seller, token.Owner)
	assert.Equal(t, uint64(1), s.TokenCount())

	_, err = s.SetApprovalForAll(ctx, seller, c.Marketplace, true)
	require.NoError(t, err)
	assert.True(t, s.IsApprovedForAll(seller, c.Marketplace))

	itemId, _, err := s.ListItem(ctx, seller, c.NFT, tokenId, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), itemId)
	assert.Equal(t, uint64(1), s.ItemCount())

	total, err := s.TotalPrice(itemId)
	require.NoError(t, err)
	assert.Equal(t, "101", total.String())

	receipt, err = s.PurchaseItem(ctx, buyer, itemId, total)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BoughtLog, receipt.Logs[len(receipt.Logs)-1].Name)

	item, err := s.Item(itemId)
	require.NoError(t, err)
	assert.True(t, item.Sold)
	assert.Equal(t, buyer, item.Buyer)

	token, _ = s.Token(tokenId)
	assert.Equal(t, buyer, token.Owner)
	assert.Equal(t, "100", s.BalanceOf(seller).String())
	assert.Equal(t, "899", s.BalanceOf(buyer).String())
	assert.Equal(t, "1", s.BalanceOf(deployer).String())

	uri, err := s.TokenURI(c.NFT, tokenId)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://abc", uri)
}

func TestRejectedOperationsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	_, s := deploy(t)
	c := s.Contracts()
	require.NoError(t, s.Fund(ctx, buyer, big.NewInt(1000)))

	_, _, err := s.Mint(ctx, seller, "")
	assert.Equal(t, errs.Validation, errs.KindOf(err))

	tokenId, _, err := s.Mint(ctx, seller, "ipfs://abc")
	require.NoError(t, err)
	itemId, _, err := s.ListItem(ctx, seller, c.NFT, tokenId, big.NewInt(100))
	require.NoError(t, err)

	_, err = s.PurchaseItem(ctx, buyer, itemId, big.NewInt(101))
	require.ErrorIs(t, err, marketplace.ErrNotApproved)

	_, err = s.PurchaseItem(ctx, buyer, itemId, big.NewInt(100))
	require.ErrorIs(t, err, marketplace.ErrPriceMismatch)

	item, _ := s.Item(itemId)
	assert.False(t, item.Sold)
	assert.Equal(t, "1000", s.BalanceOf(buyer).String())
	assert.Equal(t, "0", s.BalanceOf(c.Marketplace).String())
}

func TestItemsEnumeratesSoldAndUnsold(t *testing.T) {
	ctx := context.Background()
	_, s := deploy(t)
	c := s.Contracts()
	require.NoError(t, s.Fund(ctx, buyer, big.NewInt(1000)))
	_, err := s.SetApprovalForAll(ctx, seller, c.Marketplace, true)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tokenId, _, err := s.Mint(ctx, seller, "ipfs://abc")
		require.NoError(t, err)
		_, _, err = s.ListItem(ctx, seller, c.NFT, tokenId, big.NewInt(100))
		require.NoError(t, err)
	}
	_, err = s.PurchaseItem(ctx, buyer, 2, big.NewInt(101))
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 3)
	assert.False(t, items[0].Sold)
	assert.True(t, items[1].Sold)
	assert.False(t, items[2].Sold)
}

func TestTokenURIOfUnknownContract(t *testing.T) {
	_, s := deploy(t)

	_, err := s.TokenURI(s.Contracts().Marketplace, 1)
	require.ErrorIs(t, err, ErrUnknownContract)

	_, err = s.TokenURI(s.Contracts().NFT, 1)
	require.ErrorIs(t, err, registry.ErrUnknownToken)
}

func TestFundRejectsNegativeAmountAndCancelledContext(t *testing.T) {
	_, s := deploy(t)

	require.ErrorIs(t, s.Fund(context.Background(), buyer, big.NewInt(-1)), ledger.ErrNegativeValue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Fund(ctx, buyer, big.NewInt(1)), context.Canceled)
}
