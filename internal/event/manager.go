package event

import (
	"sync"

	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/marketplace"
	"github.com/ZilDuck/nft-marketplace/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Listener queues its events without bound, so emitting never waits on a slow
// callback.
type Listener struct {
	eventTypes []Type

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []interface{}
	closed bool
}

func newListener(eventTypes []Type) *Listener {
	l := &Listener{eventTypes: eventTypes, queue: make([]interface{}, 0)}
	l.cond = sync.NewCond(&l.mu)

	return l
}

func (l *Listener) accepts(eventType Type) bool {
	for _, t := range l.eventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func (l *Listener) push(msg interface{}) {
	l.mu.Lock()
	l.queue = append(l.queue, msg)
	l.mu.Unlock()
	l.cond.Signal()
}

func (l *Listener) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Signal()
}

// next blocks until a message is queued. It reports false once the listener
// is closed and drained.
func (l *Listener) next() (interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.queue) == 0 && !l.closed {
		l.cond.Wait()
	}
	if len(l.queue) == 0 {
		return nil, false
	}

	msg := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]

	return msg, true
}

// Manager fans events out to listeners. Each listener has its own goroutine
// and receives its events in emission order.
type Manager struct {
	mu        sync.RWMutex
	listeners []*Listener
	wg        sync.WaitGroup
	closed    bool
}

func NewManager() *Manager {
	return &Manager{listeners: make([]*Listener, 0)}
}

func (m *Manager) AddEventListener(eventType Type, callback func(msg interface{})) {
	m.AddEventsListener([]Type{eventType}, callback)
}

// AddEventsListener registers one listener for several event types. It sees
// all of them in a single emission order.
func (m *Manager) AddEventsListener(eventTypes []Type, callback func(msg interface{})) {
	zap.L().With(zap.Any("types", eventTypes)).Debug("EventManager: AddListener")

	listener := newListener(eventTypes)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		zap.L().With(zap.Any("types", eventTypes)).Warn("EventManager: AddListener after close")
		return
	}
	m.listeners = append(m.listeners, listener)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			msg, ok := listener.next()
			if !ok {
				return
			}
			callback(msg)
		}
	}()
}

func (m *Manager) EmitEvent(eventType Type, msg interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		zap.L().With(zap.String("type", string(eventType))).Warn("EventManager: Emit after close")
		return
	}
	if len(m.listeners) == 0 {
		zap.L().Debug("EventManager: No event listeners available")
	}

	for _, listener := range m.listeners {
		if listener.accepts(eventType) {
			zap.L().With(zap.String("type", string(eventType))).Debug("EventManager: Emitting event")
			listener.push(msg)
		}
	}
}

// Publish maps a committed ledger log to its event type and emits the log.
func (m *Manager) Publish(log ledger.Log) {
	eventType, ok := TypeOf(log)
	if !ok {
		zap.L().With(zap.String("log", log.Name)).Debug("EventManager: Unmapped log")
		return
	}

	m.EmitEvent(eventType, log)
}

// Close stops accepting events and waits for every listener to drain.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, listener := range m.listeners {
		listener.close()
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func TypeOf(log ledger.Log) (Type, bool) {
	switch log.Name {
	case registry.TransferLog:
		if transfer, ok := log.Data.(registry.Transfer); ok && transfer.From == (common.Address{}) {
			return TokenMintedEvent, true
		}
		return TokenTransferredEvent, true
	case registry.ApprovalForAllLog:
		return ApprovalForAllEvent, true
	case marketplace.OfferedLog:
		return ItemOfferedEvent, true
	case marketplace.BoughtLog:
		return ItemBoughtEvent, true
	}

	return "", false
}
