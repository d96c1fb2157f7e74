package marketplace

import (
	"math/big"

	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

const (
	OfferedLog = "Offered"
	BoughtLog  = "Bought"
)

var (
	ErrInvalidItem          = errs.New(errs.Validation, "item doesn't exist")
	ErrZeroPrice            = errs.New(errs.Validation, "price must be greater than zero")
	ErrInvalidTokenContract = errs.New(errs.Validation, "not a non-fungible token contract")
	ErrInvalidFeePercent    = errs.New(errs.Validation, "fee percent must be between 0 and 100")
	ErrNotOwner             = errs.New(errs.Authorization, "caller does not own the token")
	ErrNotApproved          = errs.New(errs.Authorization, "marketplace is not approved to move the token")
	ErrAlreadyListed        = errs.New(errs.StateConflict, "token already listed by seller")
	ErrAlreadySold          = errs.New(errs.StateConflict, "item already sold")
	ErrPriceMismatch        = errs.New(errs.PaymentMismatch, "payment does not equal item total price")
	ErrTokenTransferFailed  = errs.New(errs.TransferFailure, "token transfer failed")
	ErrTransferFailed       = errs.New(errs.TransferFailure, "value transfer failed")
)

// NonFungible is the part of a token contract the marketplace relies on.
type NonFungible interface {
	ledger.Contract
	OwnerOf(tokenId uint64) (common.Address, error)
	TransferFrom(call *ledger.Call, from, to common.Address, tokenId uint64) error
}

type Offered struct {
	ItemID  uint64
	NFT     common.Address
	TokenID uint64
	Price   *big.Int
	Seller  common.Address
}

type Bought struct {
	ItemID  uint64
	NFT     common.Address
	TokenID uint64
	Price   *big.Int
	Fee     *big.Int
	Seller  common.Address
	Buyer   common.Address
}

type tokenKey struct {
	nft     common.Address
	tokenId uint64
}

// Marketplace keeps an append-only registry of fixed price listings. Tokens
// stay with their seller until sale; the marketplace moves them as an approved
// operator when a purchase settles.
type Marketplace struct {
	feeAccount common.Address
	feePercent uint64

	count  *ledger.Counter
	items  *ledger.Map[uint64, entity.Listing]
	active *ledger.Map[tokenKey, uint64]
}

func New(s *ledger.State, feeAccount common.Address, feePercent uint64) (*Marketplace, error) {
	if feePercent > 100 {
		return nil, ErrInvalidFeePercent
	}

	return &Marketplace{
		feeAccount: feeAccount,
		feePercent: feePercent,
		count:      ledger.NewCounter(s),
		items:      ledger.NewMap[uint64, entity.Listing](s),
		active:     ledger.NewMap[tokenKey, uint64](s),
	}, nil
}

func (m *Marketplace) Name() string {
	return "Marketplace"
}

func (m *Marketplace) FeeAccount() common.Address {
	return m.feeAccount
}

func (m *Marketplace) FeePercent() uint64 {
	return m.feePercent
}

// ListItem offers a token the caller owns for price. The marketplace's
// operator approval is not checked here; a missing approval fails the
// purchase instead. A seller may hold only one unsold listing per token;
// a second one fails with ErrAlreadyListed.
func (m *Marketplace) ListItem(call *ledger.Call, nftAddr common.Address, tokenId uint64, price *big.Int) (uint64, error) {
	if price == nil || price.Sign() <= 0 {
		return 0, ErrZeroPrice
	}

	nft, err := m.nonFungible(call, nftAddr)
	if err != nil {
		return 0, err
	}

	seller := call.Caller()
	owner, err := nft.OwnerOf(tokenId)
	if err != nil {
		return 0, err
	}
	if owner != seller {
		return 0, xerrors.Errorf("token %d owned by %s: %w", tokenId, owner.Hex(), ErrNotOwner)
	}

	key := tokenKey{nftAddr, tokenId}
	if itemId, ok := m.active.Get(key); ok {
		if prev, _ := m.items.Get(itemId); !prev.Sold && prev.Seller == seller {
			return 0, xerrors.Errorf("token %d listed as item %d: %w", tokenId, itemId, ErrAlreadyListed)
		}
	}

	itemId := m.count.Next()
	m.items.Set(itemId, entity.Listing{
		ItemID:  itemId,
		NFT:     nftAddr,
		TokenID: tokenId,
		Price:   new(big.Int).Set(price),
		Seller:  seller,
	})
	m.active.Set(key, itemId)

	call.Emit(OfferedLog, Offered{
		ItemID:  itemId,
		NFT:     nftAddr,
		TokenID: tokenId,
		Price:   new(big.Int).Set(price),
		Seller:  seller,
	})

	return itemId, nil
}

// PurchaseItem buys a listing for exactly its total price, attached as the
// call value. The listing is marked sold before any value or token leaves the
// marketplace, so a re-entrant purchase of the same item is rejected; any
// failure afterwards reverts the whole call, that mark included.
func (m *Marketplace) PurchaseItem(call *ledger.Call, itemId uint64) error {
	item, err := m.Item(itemId)
	if err != nil {
		return err
	}
	if item.Sold {
		return xerrors.Errorf("item %d: %w", itemId, ErrAlreadySold)
	}

	paid := call.Value()
	total := m.totalPrice(item.Price)
	if paid.Cmp(total) != 0 {
		return xerrors.Errorf("paid %s, total price %s: %w", paid, total, ErrPriceMismatch)
	}

	buyer := call.Caller()
	item.Sold = true
	item.Buyer = buyer
	m.items.Set(itemId, item)
	m.active.Delete(tokenKey{item.NFT, item.TokenID})

	nft, err := m.nonFungible(call, item.NFT)
	if err != nil {
		return err
	}
	err = call.Invoke(item.NFT, nil, func(sub *ledger.Call) error {
		return nft.TransferFrom(sub, item.Seller, buyer, item.TokenID)
	})
	if err != nil {
		if errs.Is(err, errs.Authorization) {
			return xerrors.Errorf("item %d (%v): %w", itemId, err, ErrNotApproved)
		}
		return xerrors.Errorf("item %d (%v): %w", itemId, err, ErrTokenTransferFailed)
	}

	fee := new(big.Int).Sub(paid, item.Price)
	if err := call.Transfer(item.Seller, item.Price); err != nil {
		return xerrors.Errorf("pay seller %s (%v): %w", item.Seller.Hex(), err, ErrTransferFailed)
	}
	if err := call.Transfer(m.feeAccount, fee); err != nil {
		return xerrors.Errorf("pay fee account %s (%v): %w", m.feeAccount.Hex(), err, ErrTransferFailed)
	}

	call.Emit(BoughtLog, Bought{
		ItemID:  itemId,
		NFT:     item.NFT,
		TokenID: item.TokenID,
		Price:   new(big.Int).Set(item.Price),
		Fee:     fee,
		Seller:  item.Seller,
		Buyer:   buyer,
	})

	zap.L().With(
		zap.Uint64("itemId", itemId),
		zap.String("buyer", buyer.Hex()),
		zap.String("price", item.Price.String()),
		zap.String("fee", fee.String()),
	).Debug("Marketplace: Purchase settled")

	return nil
}

// ItemCount is the number of listings ever created, sold or not.
func (m *Marketplace) ItemCount() uint64 {
	return m.count.Current()
}

func (m *Marketplace) Item(itemId uint64) (entity.Listing, error) {
	item, ok := m.items.Get(itemId)
	if !ok {
		return entity.Listing{}, xerrors.Errorf("item %d of %d: %w", itemId, m.ItemCount(), ErrInvalidItem)
	}

	return item.Copy(), nil
}

// TotalPrice is the listing price plus the marketplace fee. It is derived on
// every call and never stored.
func (m *Marketplace) TotalPrice(itemId uint64) (*big.Int, error) {
	item, err := m.Item(itemId)
	if err != nil {
		return nil, err
	}

	return m.totalPrice(item.Price), nil
}

func (m *Marketplace) totalPrice(price *big.Int) *big.Int {
	fee := new(big.Int).Mul(price, new(big.Int).SetUint64(m.feePercent))
	fee.Quo(fee, big.NewInt(100))

	return fee.Add(fee, price)
}

func (m *Marketplace) nonFungible(call *ledger.Call, addr common.Address) (NonFungible, error) {
	contract, ok := call.ContractAt(addr)
	if !ok {
		return nil, xerrors.Errorf("%s: %w", addr.Hex(), ErrInvalidTokenContract)
	}
	nft, ok := contract.(NonFungible)
	if !ok {
		return nil, xerrors.Errorf("%s is %s: %w", addr.Hex(), contract.Name(), ErrInvalidTokenContract)
	}

	return nft, nil
}
