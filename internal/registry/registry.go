package registry

import (
	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"
)

const (
	TransferLog       = "Transfer"
	ApprovalForAllLog = "ApprovalForAll"
)

var (
	ErrEmptyURI        = errs.New(errs.Validation, "token uri is empty")
	ErrUnknownToken    = errs.New(errs.Validation, "token does not exist")
	ErrZeroAddress     = errs.New(errs.Validation, "zero address cannot own tokens")
	ErrApproveToCaller = errs.New(errs.Validation, "approve to caller")
	ErrWrongOwner      = errs.New(errs.StateConflict, "transfer from incorrect owner")
	ErrNotAuthorized   = errs.New(errs.Authorization, "caller is not token owner or approved operator")
)

// Transfer is logged on every ownership change, including mints (From is the
// zero address).
type Transfer struct {
	From    common.Address
	To      common.Address
	TokenID uint64
}

type ApprovalForAll struct {
	Owner    common.Address
	Operator common.Address
	Approved bool
}

type approvalKey struct {
	owner    common.Address
	operator common.Address
}

// Registry is a non-fungible token collection. Token ids are dense from 1,
// uris are fixed at mint time and there is no burn.
type Registry struct {
	name   string
	symbol string

	count     *ledger.Counter
	owners    *ledger.Map[uint64, common.Address]
	uris      *ledger.Map[uint64, string]
	balances  *ledger.Map[common.Address, uint64]
	operators *ledger.Map[approvalKey, bool]
}

func New(s *ledger.State, name, symbol string) *Registry {
	return &Registry{
		name:      name,
		symbol:    symbol,
		count:     ledger.NewCounter(s),
		owners:    ledger.NewMap[uint64, common.Address](s),
		uris:      ledger.NewMap[uint64, string](s),
		balances:  ledger.NewMap[common.Address, uint64](s),
		operators: ledger.NewMap[approvalKey, bool](s),
	}
}

func (r *Registry) Name() string {
	return r.name
}

func (r *Registry) Symbol() string {
	return r.symbol
}

// Mint issues the next token to the caller.
func (r *Registry) Mint(call *ledger.Call, uri string) (uint64, error) {
	if uri == "" {
		return 0, ErrEmptyURI
	}

	owner := call.Caller()
	if owner == (common.Address{}) {
		return 0, ErrZeroAddress
	}
	tokenId := r.count.Next()
	r.owners.Set(tokenId, owner)
	r.uris.Set(tokenId, uri)
	r.balances.Set(owner, r.BalanceOf(owner)+1)

	call.Emit(TransferLog, Transfer{To: owner, TokenID: tokenId})

	return tokenId, nil
}

// SetApprovalForAll grants or revokes operator rights over every token the
// caller owns now or later.
func (r *Registry) SetApprovalForAll(call *ledger.Call, operator common.Address, approved bool) error {
	owner := call.Caller()
	if operator == owner {
		return ErrApproveToCaller
	}

	r.operators.Set(approvalKey{owner, operator}, approved)
	call.Emit(ApprovalForAllLog, ApprovalForAll{Owner: owner, Operator: operator, Approved: approved})

	return nil
}

// TransferFrom moves a token. The caller must be from or an operator approved
// by from. Operator approvals survive the transfer.
func (r *Registry) TransferFrom(call *ledger.Call, from, to common.Address, tokenId uint64) error {
	owner, err := r.OwnerOf(tokenId)
	if err != nil {
		return err
	}
	if owner != from {
		return xerrors.Errorf("token %d owned by %s: %w", tokenId, owner.Hex(), ErrWrongOwner)
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}

	caller := call.Caller()
	if caller != from && !r.IsApprovedForAll(from, caller) {
		return xerrors.Errorf("%s moving token %d: %w", caller.Hex(), tokenId, ErrNotAuthorized)
	}

	r.owners.Set(tokenId, to)
	r.balances.Set(from, r.BalanceOf(from)-1)
	r.balances.Set(to, r.BalanceOf(to)+1)

	call.Emit(TransferLog, Transfer{From: from, To: to, TokenID: tokenId})

	return nil
}

func (r *Registry) OwnerOf(tokenId uint64) (common.Address, error) {
	owner, ok := r.owners.Get(tokenId)
	if !ok {
		return common.Address{}, xerrors.Errorf("token %d: %w", tokenId, ErrUnknownToken)
	}

	return owner, nil
}

func (r *Registry) TokenURI(tokenId uint64) (string, error) {
	uri, ok := r.uris.Get(tokenId)
	if !ok {
		return "", xerrors.Errorf("token %d: %w", tokenId, ErrUnknownToken)
	}

	return uri, nil
}

func (r *Registry) Token(tokenId uint64) (entity.Token, error) {
	owner, err := r.OwnerOf(tokenId)
	if err != nil {
		return entity.Token{}, err
	}
	uri, _ := r.uris.Get(tokenId)

	return entity.Token{TokenID: tokenId, Owner: owner, URI: uri}, nil
}

func (r *Registry) IsApprovedForAll(owner, operator common.Address) bool {
	approved, _ := r.operators.Get(approvalKey{owner, operator})
	return approved
}

func (r *Registry) BalanceOf(owner common.Address) uint64 {
	balance, _ := r.balances.Get(owner)
	return balance
}

// TokenCount is the number of tokens ever minted.
func (r *Registry) TokenCount() uint64 {
	return r.count.Current()
}
