package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"
)

const MaxCallDepth = 64

// Call is the frame of one contract invocation inside an open transaction.
type Call struct {
	ledger *Ledger
	caller common.Address
	self   common.Address
	value  *big.Int
	depth  int
}

// Caller is the account that invoked this frame.
func (c *Call) Caller() common.Address {
	return c.caller
}

// Self is the account whose code is running.
func (c *Call) Self() common.Address {
	return c.self
}

// Value is the amount attached to this frame, already credited to Self.
func (c *Call) Value() *big.Int {
	return new(big.Int).Set(c.value)
}

func (c *Call) State() *State {
	return c.ledger.state
}

func (c *Call) ContractAt(addr common.Address) (Contract, bool) {
	contract, ok := c.ledger.contracts[addr]
	return contract, ok
}

// Emit records a log from Self. It is dropped if the transaction reverts.
func (c *Call) Emit(name string, data interface{}) {
	c.ledger.state.emit(Log{Address: c.self, Name: name, Data: data})
}

// Invoke opens a nested frame on to with Self as the caller, moving value
// first. A failing frame is reverted to the point it was entered and its
// error is handed back.
func (c *Call) Invoke(to common.Address, value *big.Int, fn func(call *Call) error) error {
	if c.depth+1 > MaxCallDepth {
		return ErrCallDepth
	}
	if value == nil {
		value = new(big.Int)
	}

	state := c.ledger.state
	snapshot := state.Snapshot()

	if err := state.transfer(c.self, to, value); err != nil {
		state.RevertToSnapshot(snapshot)
		return err
	}

	sub := &Call{
		ledger: c.ledger,
		caller: c.self,
		self:   to,
		value:  new(big.Int).Set(value),
		depth:  c.depth + 1,
	}
	if err := fn(sub); err != nil {
		state.RevertToSnapshot(snapshot)
		return err
	}

	return nil
}

// Transfer forwards amount from Self to an account, running the account's
// Receiver if one is installed.
func (c *Call) Transfer(to common.Address, amount *big.Int) error {
	receiver := c.ledger.receivers[to]

	return c.Invoke(to, amount, func(sub *Call) error {
		if receiver == nil {
			return nil
		}
		if err := receiver(sub); err != nil {
			return xerrors.Errorf("payment to %s (%v): %w", to.Hex(), err, ErrPaymentRejected)
		}
		return nil
	})
}
