package registry

import (
	"context"
	"testing"

	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	seller   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	buyer    = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	operator = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

type fixture struct {
	ledger   *ledger.Ledger
	registry *Registry
	addr     common.Address
}

func newFixture(t *testing.T) fixture {
	l := ledger.New()
	var r *Registry
	addr, err := l.Deploy(deployer, func(s *ledger.State) (ledger.Contract, error) {
		r = New(s, "DApp NFT", "DAPP")
		return r, nil
	})
	require.NoError(t, err)

	return fixture{l, r, addr}
}

func (f fixture) mint(t *testing.T, caller common.Address, uri string) (uint64, error) {
	var tokenId uint64
	_, err := f.ledger.Execute(context.Background(), caller, f.addr, nil, func(call *ledger.Call) error {
		var err error
		tokenId, err = f.registry.Mint(call, uri)
		return err
	})

	return tokenId, err
}

func (f fixture) transfer(caller, from, to common.Address, tokenId uint64) error {
	_, err := f.ledger.Execute(context.Background(), caller, f.addr, nil, func(call *ledger.Call) error {
		return f.registry.TransferFrom(call, from, to, tokenId)
	})

	return err
}

func (f fixture) approve(caller, op common.Address, approved bool) (*ledger.Receipt, error) {
	return f.ledger.Execute(context.Background(), caller, f.addr, nil, func(call *ledger.Call) error {
		return f.registry.SetApprovalForAll(call, op, approved)
	})
}

func TestMintAssignsSequentialIds(t *testing.T) {
	f := newFixture(t)

	for i := uint64(1); i <= 3; i++ {
		tokenId, err := f.mint(t, seller, "ipfs://abc")
		require.NoError(t, err)
		assert.Equal(t, i, tokenId)
	}

	assert.Equal(t, uint64(3), f.registry.TokenCount())
	assert.Equal(t, uint64(3), f.registry.BalanceOf(seller))

	owner, err := f.registry.OwnerOf(2)
	require.NoError(t, err)
	assert.Equal(t, seller, owner)

	uri, err := f.registry.TokenURI(2)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://abc", uri)
}

func TestMintRejectsEmptyUri(t *testing.T) {
	f := newFixture(t)

	_, err := f.mint(t, seller, "")
	require.ErrorIs(t, err, ErrEmptyURI)
	assert.Equal(t, errs.Validation, errs.KindOf(err))
	assert.Equal(t, uint64(0), f.registry.TokenCount())
}

func TestMintRejectsZeroCaller(t *testing.T) {
	f := newFixture(t)

	_, err := f.mint(t, common.Address{}, "ipfs://abc")
	require.ErrorIs(t, err, ErrZeroAddress)
	assert.Equal(t, errs.Validation, errs.KindOf(err))
	assert.Equal(t, uint64(0), f.registry.TokenCount())
	assert.Equal(t, uint64(0), f.registry.BalanceOf(common.Address{}))
}

func TestMintLogsTransferFromZero(t *testing.T) {
	f := newFixture(t)
	receipt, err := f.ledger.Execute(context.Background(), seller, f.addr, nil, func(call *ledger.Call) error {
		_, err := f.registry.Mint(call, "ipfs://abc")
		return err
	})
	require.NoError(t, err)

	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, TransferLog, receipt.Logs[0].Name)
	assert.Equal(t, Transfer{To: seller, TokenID: 1}, receipt.Logs[0].Data)
}

func TestUnknownTokenReads(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.TokenURI(1)
	require.ErrorIs(t, err, ErrUnknownToken)

	_, err = f.registry.OwnerOf(1)
	require.ErrorIs(t, err, ErrUnknownToken)

	_, err = f.registry.Token(1)
	require.ErrorIs(t, err, ErrUnknownToken)
}

func TestSetApprovalForAllIsIdempotent(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		receipt, err := f.approve(seller, operator, true)
		require.NoError(t, err)
		require.Len(t, receipt.Logs, 1)
		assert.Equal(t, ApprovalForAll{Owner: seller, Operator: operator, Approved: true}, receipt.Logs[0].Data)
	}
	assert.True(t, f.registry.IsApprovedForAll(seller, operator))

	_, err := f.approve(seller, operator, false)
	require.NoError(t, err)
	assert.False(t, f.registry.IsApprovedForAll(seller, operator))
}

func TestSetApprovalForAllRejectsSelf(t *testing.T) {
	f := newFixture(t)

	_, err := f.approve(seller, seller, true)
	require.ErrorIs(t, err, ErrApproveToCaller)
}

func TestTransferByOwner(t *testing.T) {
	f := newFixture(t)
	tokenId, err := f.mint(t, seller, "ipfs://abc")
	require.NoError(t, err)

	require.NoError(t, f.transfer(seller, seller, buyer, tokenId))

	token, err := f.registry.Token(tokenId)
	require.NoError(t, err)
	assert.Equal(t, buyer, token.Owner)
	assert.Equal(t, "ipfs://abc", token.URI)
	assert.Equal(t, uint64(0), f.registry.BalanceOf(seller))
	assert.Equal(t, uint64(1), f.registry.BalanceOf(buyer))
}

func TestTransferByApprovedOperatorKeepsApproval(t *testing.T) {
	f := newFixture(t)
	tokenId, err := f.mint(t, seller, "ipfs://abc")
	require.NoError(t, err)
	_, err = f.approve(seller, operator, true)
	require.NoError(t, err)

	require.NoError(t, f.transfer(operator, seller, buyer, tokenId))

	owner, _ := f.registry.OwnerOf(tokenId)
	assert.Equal(t, buyer, owner)
	assert.True(t, f.registry.IsApprovedForAll(seller, operator))
}

func TestTransferRejections(t *testing.T) {
	f := newFixture(t)
	tokenId, err := f.mint(t, seller, "ipfs://abc")
	require.NoError(t, err)

	err = f.transfer(operator, seller, buyer, tokenId)
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))

	err = f.transfer(buyer, buyer, seller, tokenId)
	require.ErrorIs(t, err, ErrWrongOwner)

	err = f.transfer(seller, seller, buyer, 99)
	require.ErrorIs(t, err, ErrUnknownToken)

	err = f.transfer(seller, seller, common.Address{}, tokenId)
	require.ErrorIs(t, err, ErrZeroAddress)

	owner, _ := f.registry.OwnerOf(tokenId)
	assert.Equal(t, seller, owner)
}

func TestRevokedOperatorCannotTransfer(t *testing.T) {
	f := newFixture(t)
	tokenId, err := f.mint(t, seller, "ipfs://abc")
	require.NoError(t, err)
	_, err = f.approve(seller, operator, true)
	require.NoError(t, err)
	_, err = f.approve(seller, operator, false)
	require.NoError(t, err)

	err = f.transfer(operator, seller, buyer, tokenId)
	require.ErrorIs(t, err, ErrNotAuthorized)
}
