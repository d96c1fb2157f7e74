package event

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/marketplace"
	"github.com/ZilDuck/nft-marketplace/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	seller = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	buyer  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		log      ledger.Log
		expected Type
		ok       bool
	}{
		{ledger.Log{Name: registry.TransferLog, Data: registry.Transfer{To: seller, TokenID: 1}}, TokenMintedEvent, true},
		{ledger.Log{Name: registry.TransferLog, Data: registry.Transfer{From: seller, To: buyer, TokenID: 1}}, TokenTransferredEvent, true},
		{ledger.Log{Name: registry.ApprovalForAllLog}, ApprovalForAllEvent, true},
		{ledger.Log{Name: marketplace.OfferedLog}, ItemOfferedEvent, true},
		{ledger.Log{Name: marketplace.BoughtLog}, ItemBoughtEvent, true},
		{ledger.Log{Name: "Deposit"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.log.Name, func(t *testing.T) {
			eventType, ok := TypeOf(tt.log)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, eventType)
		})
	}
}

func TestListenersReceiveEventsInOrder(t *testing.T) {
	m := NewManager()

	var mu sync.Mutex
	received := make([]uint64, 0)
	m.AddEventListener(ItemOfferedEvent, func(msg interface{}) {
		log := msg.(ledger.Log)
		mu.Lock()
		received = append(received, log.Data.(marketplace.Offered).ItemID)
		mu.Unlock()
	})

	bought := 0
	m.AddEventListener(ItemBoughtEvent, func(msg interface{}) {
		mu.Lock()
		bought++
		mu.Unlock()
	})

	for i := uint64(1); i <= 50; i++ {
		m.Publish(ledger.Log{Name: marketplace.OfferedLog, Data: marketplace.Offered{ItemID: i, Price: big.NewInt(1)}})
	}
	m.Publish(ledger.Log{Name: marketplace.BoughtLog, Data: marketplace.Bought{ItemID: 1}})
	m.Publish(ledger.Log{Name: "Deposit"})
	m.Close()

	assert.Len(t, received, 50)
	for i, itemId := range received {
		assert.Equal(t, uint64(i+1), itemId)
	}
	assert.Equal(t, 1, bought)
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	m := NewManager()
	calls := 0
	m.AddEventListener(ItemBoughtEvent, func(msg interface{}) { calls++ })
	m.Close()
	m.Close()

	m.EmitEvent(ItemBoughtEvent, nil)
	assert.Equal(t, 0, calls)
}

func TestAddListenerAfterCloseIsIgnored(t *testing.T) {
	m := NewManager()
	m.Close()

	m.AddEventListener(ItemBoughtEvent, func(msg interface{}) {})
	assert.Empty(t, m.listeners)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener goroutine started after close")
	}
}

func TestMultiTypeListenerSeesOneOrder(t *testing.T) {
	m := NewManager()

	received := make([]string, 0)
	m.AddEventsListener([]Type{ItemOfferedEvent, ItemBoughtEvent}, func(msg interface{}) {
		received = append(received, msg.(ledger.Log).Name)
	})

	m.Publish(ledger.Log{Name: marketplace.OfferedLog})
	m.Publish(ledger.Log{Name: marketplace.BoughtLog})
	m.Publish(ledger.Log{Name: marketplace.OfferedLog})
	m.Close()

	assert.Equal(t, []string{marketplace.OfferedLog, marketplace.BoughtLog, marketplace.OfferedLog}, received)
}
