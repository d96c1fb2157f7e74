package ledger

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var (
	ErrInsufficientFunds = errs.New(errs.TransferFailure, "insufficient funds")
	ErrNegativeValue     = errs.New(errs.Validation, "negative value")
	ErrCallDepth         = errs.New(errs.TransferFailure, "max call depth exceeded")
	ErrNoContract        = errs.New(errs.Validation, "no contract at address")
	ErrPaymentRejected   = errs.New(errs.TransferFailure, "payment rejected by receiver")
)

// Contract is anything deployed on the ledger.
type Contract interface {
	Name() string
}

// Receiver is invoked when value is forwarded to an account from contract
// code. The call's Caller is the payer and its Value the amount received.
// Returning an error rejects the payment and unwinds the forwarding frame.
type Receiver func(call *Call) error

// Publisher receives the logs of committed transactions, in order.
type Publisher interface {
	Publish(log Log)
}

// Log is an event emitted by contract code. The transaction fields are set
// when the transaction commits.
type Log struct {
	Address  common.Address
	Name     string
	Data     interface{}
	TxHash   common.Hash
	TxFrom   common.Address
	BlockNum uint64
}

type Receipt struct {
	TxHash   common.Hash
	BlockNum uint64
	From     common.Address
	To       common.Address
	Value    *big.Int
	Logs     []Log
}

type Option func(l *Ledger)

func WithPublisher(p Publisher) Option {
	return func(l *Ledger) {
		l.publisher = p
	}
}

// Ledger hosts the contracts and serializes every mutating call against the
// shared State: exactly one transaction is open at a time and it either
// commits all of its effects or none of them.
type Ledger struct {
	mu        sync.RWMutex
	state     *State
	contracts map[common.Address]Contract
	receivers map[common.Address]Receiver
	blockNum  uint64
	publisher Publisher
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		state:     NewState(),
		contracts: make(map[common.Address]Contract),
		receivers: make(map[common.Address]Receiver),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Deploy registers the contract returned by build at the address derived from
// the deployer and its nonce.
func (l *Ledger) Deploy(deployer common.Address, build func(s *State) (Contract, error)) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.begin()
	nonce := l.state.incrementNonce(deployer)
	addr := crypto.CreateAddress(deployer, nonce)

	contract, err := build(l.state)
	if err != nil {
		l.state.rollback()
		return common.Address{}, err
	}
	l.state.commit()
	l.blockNum++
	l.contracts[addr] = contract

	zap.L().With(
		zap.String("contract", contract.Name()),
		zap.String("address", addr.Hex()),
		zap.String("deployer", deployer.Hex()),
	).Info("Ledger: Contract deployed")

	return addr, nil
}

// Execute runs fn as one atomic transaction sent by from to the contract at
// to, carrying value. The value is moved before fn runs. Any error reverts
// every effect of the transaction, including the value transfer.
func (l *Ledger) Execute(ctx context.Context, from, to common.Address, value *big.Int, fn func(call *Call) error) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, ErrNegativeValue
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	receipt, err := l.execute(from, to, value, fn)
	if err != nil {
		return nil, err
	}

	// Published under the lock so logs leave in commit order. Publishers
	// must not block on readers of the ledger.
	if l.publisher != nil {
		for _, log := range receipt.Logs {
			l.publisher.Publish(log)
		}
	}

	return receipt, nil
}

func (l *Ledger) execute(from, to common.Address, value *big.Int, fn func(call *Call) error) (*Receipt, error) {
	if _, ok := l.contracts[to]; !ok && fn != nil {
		return nil, xerrors.Errorf("call %s: %w", to.Hex(), ErrNoContract)
	}

	l.state.begin()
	call := &Call{ledger: l, caller: from, self: to, value: new(big.Int).Set(value)}

	err := l.state.transfer(from, to, value)
	if err == nil && fn != nil {
		err = fn(call)
	}
	if err != nil {
		l.state.rollback()
		return nil, err
	}

	nonce := l.state.incrementNonce(from)
	logs := l.state.commit()
	l.blockNum++

	receipt := &Receipt{
		TxHash:   txHash(from, to, nonce),
		BlockNum: l.blockNum,
		From:     from,
		To:       to,
		Value:    new(big.Int).Set(value),
		Logs:     logs,
	}
	for i := range receipt.Logs {
		receipt.Logs[i].TxHash = receipt.TxHash
		receipt.Logs[i].TxFrom = from
		receipt.Logs[i].BlockNum = receipt.BlockNum
	}

	return receipt, nil
}

// Fund credits an account out of thin air. Used for the genesis allocation.
func (l *Ledger) Fund(addr common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeValue
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.begin()
	l.state.addBalance(addr, amount)
	l.state.commit()

	return nil
}

// View runs read-only code against a consistent state.
func (l *Ledger) View(fn func() error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return fn()
}

func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state.BalanceOf(addr)
}

func (l *Ledger) NonceOf(addr common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state.NonceOf(addr)
}

func (l *Ledger) BlockNumber() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.blockNum
}

func (l *Ledger) Contract(addr common.Address) (Contract, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.contracts[addr]
	return c, ok
}

// SetReceiver installs (or with nil removes) the payment hook of an account.
func (l *Ledger) SetReceiver(addr common.Address, r Receiver) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r == nil {
		delete(l.receivers, addr)
		return
	}
	l.receivers[addr] = r
}

func txHash(from, to common.Address, nonce uint64) common.Hash {
	n := make([]byte, 8)
	binary.BigEndian.PutUint64(n, nonce)

	return crypto.Keccak256Hash(from.Bytes(), to.Bytes(), n)
}
