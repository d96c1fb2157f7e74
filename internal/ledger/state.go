package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"
)

type undo func()

// State is the journaled world state shared by every deployed contract.
// Mutations are only legal while a transaction is open; each one records an
// undo entry so a snapshot can be rolled back without per-operation cleanup.
type State struct {
	journal []undo
	open    bool
	logs    []Log

	balances *Map[common.Address, *big.Int]
	nonces   *Map[common.Address, uint64]
}

func NewState() *State {
	s := &State{}
	s.balances = NewMap[common.Address, *big.Int](s)
	s.nonces = NewMap[common.Address, uint64](s)

	return s
}

// Snapshot returns an identifier for the current journal position.
func (s *State) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot undoes every mutation recorded after the snapshot was taken.
func (s *State) RevertToSnapshot(id int) {
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:id]
}

func (s *State) record(u undo) {
	if !s.open {
		panic("ledger: state written outside a transaction")
	}
	s.journal = append(s.journal, u)
}

func (s *State) begin() {
	s.open = true
	s.journal = s.journal[:0]
	s.logs = nil
}

func (s *State) commit() []Log {
	logs := s.logs
	s.journal = s.journal[:0]
	s.logs = nil
	s.open = false

	return logs
}

func (s *State) rollback() {
	s.RevertToSnapshot(0)
	s.logs = nil
	s.open = false
}

func (s *State) emit(log Log) {
	n := len(s.logs)
	s.record(func() { s.logs = s.logs[:n] })
	s.logs = append(s.logs, log)
}

func (s *State) BalanceOf(addr common.Address) *big.Int {
	if b, ok := s.balances.Get(addr); ok {
		return new(big.Int).Set(b)
	}

	return new(big.Int)
}

func (s *State) NonceOf(addr common.Address) uint64 {
	nonce, _ := s.nonces.Get(addr)
	return nonce
}

func (s *State) incrementNonce(addr common.Address) uint64 {
	nonce := s.NonceOf(addr)
	s.nonces.Set(addr, nonce+1)

	return nonce
}

func (s *State) addBalance(addr common.Address, amount *big.Int) {
	s.balances.Set(addr, new(big.Int).Add(s.BalanceOf(addr), amount))
}

func (s *State) subBalance(addr common.Address, amount *big.Int) error {
	balance := s.BalanceOf(addr)
	if balance.Cmp(amount) < 0 {
		return xerrors.Errorf("%s has %s, needs %s: %w", addr.Hex(), balance, amount, ErrInsufficientFunds)
	}
	s.balances.Set(addr, balance.Sub(balance, amount))

	return nil
}

func (s *State) transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeValue
	}
	if err := s.subBalance(from, amount); err != nil {
		return err
	}
	s.addBalance(to, amount)

	return nil
}

// Map is a journaled table bound to a State.
type Map[K comparable, V any] struct {
	state   *State
	entries map[K]V
}

func NewMap[K comparable, V any](s *State) *Map[K, V] {
	return &Map[K, V]{state: s, entries: make(map[K]V)}
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *Map[K, V]) Set(key K, value V) {
	prev, existed := m.entries[key]
	m.state.record(func() {
		if existed {
			m.entries[key] = prev
		} else {
			delete(m.entries, key)
		}
	})
	m.entries[key] = value
}

func (m *Map[K, V]) Delete(key K) {
	prev, existed := m.entries[key]
	if !existed {
		return
	}
	m.state.record(func() { m.entries[key] = prev })
	delete(m.entries, key)
}

func (m *Map[K, V]) Len() int {
	return len(m.entries)
}

// Counter hands out dense identifiers starting at 1.
type Counter struct {
	state *State
	value uint64
}

func NewCounter(s *State) *Counter {
	return &Counter{state: s}
}

func (c *Counter) Current() uint64 {
	return c.value
}

func (c *Counter) Next() uint64 {
	prev := c.value
	c.state.record(func() { c.value = prev })
	c.value++

	return c.value
}
