// Package names holds the name-ownership index: for every registered name it
// records the transactions that registered or renewed it, keyed by height, so
// that the game encoder can resolve "the registration of X as of height H".
package names

import (
	"sort"
	"sync"

	"github.com/btcsuite/btcd/wire"
)

//go:generate mockgen -destination=mocks/mock_index.go -package=mocks gamechain/internal/names Index

// Index resolves a name to its most recent registration transaction at or
// before height. found is false when the name was never registered by then or
// its latest entry is a death tombstone.
type Index interface {
	Lookup(name string, height int64) (tx *wire.MsgTx, found bool, err error)
}

// Store is an Index that can also be mutated between steps.
type Store interface {
	Index

	Register(name string, height int64, tx *wire.MsgTx) error
	Kill(name string, height int64) error
}

type entry struct {
	height int64
	tx     *wire.MsgTx // nil marks a tombstone
}

// MemIndex is an in-memory Store.
type MemIndex struct {
	mu      sync.RWMutex
	entries map[string][]entry
}

func NewMemIndex() *MemIndex {
	return &MemIndex{entries: map[string][]entry{}}
}

func (m *MemIndex) Lookup(name string, height int64) (*wire.MsgTx, bool, error) {
	if ValidateName(name) != nil {
		return nil, false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	es := m.entries[name]
	// First entry strictly above height; the one before it is the answer.
	i := sort.Search(len(es), func(i int) bool { return es[i].height > height })
	if i == 0 {
		return nil, false, nil
	}
	e := es[i-1]
	if e.tx == nil {
		return nil, false, nil
	}
	return e.tx, true, nil
}

func (m *MemIndex) Register(name string, height int64, tx *wire.MsgTx) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if tx == nil {
		return errNilTx
	}
	m.put(name, entry{height: height, tx: tx})
	return nil
}

func (m *MemIndex) Kill(name string, height int64) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	m.put(name, entry{height: height})
	return nil
}

func (m *MemIndex) put(name string, e entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	es := m.entries[name]
	i := sort.Search(len(es), func(i int) bool { return es[i].height >= e.height })
	if i < len(es) && es[i].height == e.height {
		es[i] = e
		return
	}
	es = append(es, entry{})
	copy(es[i+1:], es[i:])
	es[i] = e
	m.entries[name] = es
}
