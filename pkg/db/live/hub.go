package live

import (
	"sync"
)

// Hub fans out change notifications to subscriptions keyed by table name.
type Hub struct {
	mutex   sync.RWMutex
	nextID  uint64
	entries map[uint64]*entry
	closed  bool
}

type entry struct {
	tables map[string]struct{}
	dirty  chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		entries: make(map[uint64]*entry),
	}
}

// Notify marks every subscription reading any of tables as stale.
// It never blocks; repeated notifications before a refresh coalesce.
func (h *Hub) Notify(tables ...string) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, e := range h.entries {
		if !e.watches(tables) {
			continue
		}
		select {
		case e.dirty <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.entries)
}

// Close detaches all subscriptions; they stop after their current refresh.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, e := range h.entries {
		close(e.dirty)
		delete(h.entries, id)
	}
	h.closed = true
}

func (h *Hub) register(tables []string) (uint64, *entry, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return 0, nil, false
	}

	e := &entry{
		tables: make(map[string]struct{}, len(tables)),
		dirty:  make(chan struct{}, 1),
	}
	for _, table := range tables {
		e.tables[table] = struct{}{}
	}

	h.nextID++
	h.entries[h.nextID] = e
	return h.nextID, e, true
}

func (h *Hub) unregister(id uint64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if e, ok := h.entries[id]; ok {
		close(e.dirty)
		delete(h.entries, id)
	}
}

func (e *entry) watches(tables []string) bool {
	for _, table := range tables {
		if _, ok := e.tables[table]; ok {
			return true
		}
	}
	return false
}
