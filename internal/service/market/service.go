package market

import (
	"context"
	"math/big"

	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/marketplace"
	"github.com/ZilDuck/nft-marketplace/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var ErrUnknownContract = errs.New(errs.Validation, "contract not deployed")

type DeployConfig struct {
	Deployer    common.Address
	FeeAccount  common.Address
	FeePercent  uint64
	TokenName   string
	TokenSymbol string
}

// Contracts are the deployed addresses, in the shape the deploy step writes
// to the contract addresses file.
type Contracts struct {
	NFT         common.Address `json:"nft"`
	Marketplace common.Address `json:"marketplace"`
	FeeAccount  common.Address `json:"feeAccount"`
	FeePercent  uint64         `json:"feePercent"`
}

type Service interface {
	Mint(ctx context.Context, caller common.Address, uri string) (uint64, *ledger.Receipt, error)
	SetApprovalForAll(ctx context.Context, caller, operator common.Address, approved bool) (*ledger.Receipt, error)
	ListItem(ctx context.Context, caller, tokenContract common.Address, tokenId uint64, price *big.Int) (uint64, *ledger.Receipt, error)
	PurchaseItem(ctx context.Context, caller common.Address, itemId uint64, paid *big.Int) (*ledger.Receipt, error)
	Fund(ctx context.Context, addr common.Address, amount *big.Int) error

	Token(tokenId uint64) (entity.Token, error)
	TokenCount() uint64
	TokenURI(tokenContract common.Address, tokenId uint64) (string, error)
	IsApprovedForAll(owner, operator common.Address) bool
	Item(itemId uint64) (entity.Listing, error)
	Items() []entity.Listing
	ItemCount() uint64
	TotalPrice(itemId uint64) (*big.Int, error)
	BalanceOf(addr common.Address) *big.Int
	Contracts() Contracts
}

type service struct {
	ledger     *ledger.Ledger
	nft        *registry.Registry
	nftAddr    common.Address
	market     *marketplace.Marketplace
	marketAddr common.Address
}

type tokenURIReader interface {
	TokenURI(tokenId uint64) (string, error)
}

// Deploy deploys the token registry and then the marketplace from the
// deployer account. A zero fee account defaults to the deployer.
func Deploy(l *ledger.Ledger, cfg DeployConfig) (Service, error) {
	if cfg.FeeAccount == (common.Address{}) {
		cfg.FeeAccount = cfg.Deployer
	}

	nftAddr, err := l.Deploy(cfg.Deployer, func(s *ledger.State) (ledger.Contract, error) {
		return registry.New(s, cfg.TokenName, cfg.TokenSymbol), nil
	})
	if err != nil {
		return nil, xerrors.Errorf("deploy registry: %w", err)
	}

	marketAddr, err := l.Deploy(cfg.Deployer, func(s *ledger.State) (ledger.Contract, error) {
		return marketplace.New(s, cfg.FeeAccount, cfg.FeePercent)
	})
	if err != nil {
		return nil, xerrors.Errorf("deploy marketplace: %w", err)
	}

	return NewService(l, nftAddr, marketAddr)
}

// NewService binds to a registry and a marketplace already on the ledger.
func NewService(l *ledger.Ledger, nftAddr, marketAddr common.Address) (Service, error) {
	c, ok := l.Contract(nftAddr)
	nft, isRegistry := c.(*registry.Registry)
	if !ok || !isRegistry {
		return nil, xerrors.Errorf("registry %s: %w", nftAddr.Hex(), ErrUnknownContract)
	}

	c, ok = l.Contract(marketAddr)
	market, isMarket := c.(*marketplace.Marketplace)
	if !ok || !isMarket {
		return nil, xerrors.Errorf("marketplace %s: %w", marketAddr.Hex(), ErrUnknownContract)
	}

	return service{l, nft, nftAddr, market, marketAddr}, nil
}

func (s service) Mint(ctx context.Context, caller common.Address, uri string) (uint64, *ledger.Receipt, error) {
	var tokenId uint64
	receipt, err := s.ledger.Execute(ctx, caller, s.nftAddr, nil, func(call *ledger.Call) (err error) {
		tokenId, err = s.nft.Mint(call, uri)
		return err
	})
	if err != nil {
		rejected("Mint", caller, err, zap.String("uri", uri))
		return 0, nil, err
	}

	committed("Token minted", caller, receipt, zap.Uint64("tokenId", tokenId))

	return tokenId, receipt, nil
}

func (s service) SetApprovalForAll(ctx context.Context, caller, operator common.Address, approved bool) (*ledger.Receipt, error) {
	receipt, err := s.ledger.Execute(ctx, caller, s.nftAddr, nil, func(call *ledger.Call) error {
		return s.nft.SetApprovalForAll(call, operator, approved)
	})
	if err != nil {
		rejected("SetApprovalForAll", caller, err, zap.String("operator", operator.Hex()))
		return nil, err
	}

	committed("Approval set", caller, receipt, zap.String("operator", operator.Hex()), zap.Bool("approved", approved))

	return receipt, nil
}

func (s service) ListItem(ctx context.Context, caller, tokenContract common.Address, tokenId uint64, price *big.Int) (uint64, *ledger.Receipt, error) {
	var itemId uint64
	receipt, err := s.ledger.Execute(ctx, caller, s.marketAddr, nil, func(call *ledger.Call) (err error) {
		itemId, err = s.market.ListItem(call, tokenContract, tokenId, price)
		return err
	})
	if err != nil {
		rejected("ListItem", caller, err, zap.String("nft", tokenContract.Hex()), zap.Uint64("tokenId", tokenId))
		return 0, nil, err
	}

	committed("Item listed", caller, receipt, zap.Uint64("itemId", itemId), zap.Uint64("tokenId", tokenId), zap.String("price", price.String()))

	return itemId, receipt, nil
}

func (s service) PurchaseItem(ctx context.Context, caller common.Address, itemId uint64, paid *big.Int) (*ledger.Receipt, error) {
	receipt, err := s.ledger.Execute(ctx, caller, s.marketAddr, paid, func(call *ledger.Call) error {
		return s.market.PurchaseItem(call, itemId)
	})
	if err != nil {
		rejected("PurchaseItem", caller, err, zap.Uint64("itemId", itemId), zap.Stringer("paid", amount(paid)))
		return nil, err
	}

	committed("Item purchased", caller, receipt, zap.Uint64("itemId", itemId), zap.Stringer("paid", amount(paid)))

	return receipt, nil
}

func (s service) Fund(ctx context.Context, addr common.Address, value *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ledger.Fund(addr, amount(value)); err != nil {
		rejected("Fund", addr, err)
		return err
	}

	zap.L().With(zap.String("account", addr.Hex()), zap.Stringer("amount", amount(value))).Info("Market: Account funded")

	return nil
}

func (s service) Token(tokenId uint64) (token entity.Token, err error) {
	err = s.ledger.View(func() error {
		token, err = s.nft.Token(tokenId)
		return err
	})
	if err == nil {
		token.Contract = s.nftAddr
	}

	return
}

func (s service) TokenCount() (count uint64) {
	_ = s.ledger.View(func() error {
		count = s.nft.TokenCount()
		return nil
	})

	return
}

// TokenURI reads the uri from any deployed token contract, so listings of
// other collections can be shown as well.
func (s service) TokenURI(tokenContract common.Address, tokenId uint64) (uri string, err error) {
	c, ok := s.ledger.Contract(tokenContract)
	reader, isReader := c.(tokenURIReader)
	if !ok || !isReader {
		return "", xerrors.Errorf("token contract %s: %w", tokenContract.Hex(), ErrUnknownContract)
	}

	err = s.ledger.View(func() error {
		uri, err = reader.TokenURI(tokenId)
		return err
	})

	return
}

func (s service) IsApprovedForAll(owner, operator common.Address) (approved bool) {
	_ = s.ledger.View(func() error {
		approved = s.nft.IsApprovedForAll(owner, operator)
		return nil
	})

	return
}

func (s service) Item(itemId uint64) (item entity.Listing, err error) {
	err = s.ledger.View(func() error {
		item, err = s.market.Item(itemId)
		return err
	})

	return
}

// Items enumerates every listing from 1 to ItemCount, sold ones included.
func (s service) Items() []entity.Listing {
	items := make([]entity.Listing, 0)
	_ = s.ledger.View(func() error {
		for i := uint64(1); i <= s.market.ItemCount(); i++ {
			item, err := s.market.Item(i)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})

	return items
}

func (s service) ItemCount() (count uint64) {
	_ = s.ledger.View(func() error {
		count = s.market.ItemCount()
		return nil
	})

	return
}

func (s service) TotalPrice(itemId uint64) (total *big.Int, err error) {
	err = s.ledger.View(func() error {
		total, err = s.market.TotalPrice(itemId)
		return err
	})

	return
}

func (s service) BalanceOf(addr common.Address) *big.Int {
	return s.ledger.BalanceOf(addr)
}

func (s service) Contracts() Contracts {
	return Contracts{
		NFT:         s.nftAddr,
		Marketplace: s.marketAddr,
		FeeAccount:  s.market.FeeAccount(),
		FeePercent:  s.market.FeePercent(),
	}
}

func amount(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return value
}

func committed(msg string, caller common.Address, receipt *ledger.Receipt, fields ...zap.Field) {
	zap.L().With(fields...).With(
		zap.String("caller", caller.Hex()),
		zap.String("txId", receipt.TxHash.Hex()),
		zap.Uint64("blockNum", receipt.BlockNum),
	).Info("Market: " + msg)
}

func rejected(op string, caller common.Address, err error, fields ...zap.Field) {
	zap.L().With(fields...).With(
		zap.String("caller", caller.Hex()),
		zap.String("kind", string(errs.KindOf(err))),
		zap.Error(err),
	).Warn("Market: " + op + " rejected")
}
