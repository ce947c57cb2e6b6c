package names

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/wire"
	dbm "github.com/cosmos/cosmos-db"

	"gamechain/internal/ledger"
)

var errNilTx = errors.New("registration tx is nil")

// nameKeyPrefix namespaces index entries inside a shared database:
// nameKeyPrefix || name || 0x00 || u64be(height).
var nameKeyPrefix = []byte{0x01}

func nameKeyBase(name string) []byte {
	bz := make([]byte, 0, len(nameKeyPrefix)+len(name)+1)
	bz = append(bz, nameKeyPrefix...)
	bz = append(bz, name...)
	return append(bz, 0x00)
}

func nameKey(name string, height uint64) []byte {
	base := nameKeyBase(name)
	bz := make([]byte, len(base)+8)
	copy(bz, base)
	binary.BigEndian.PutUint64(bz[len(base):], height)
	return bz
}

// DBIndex is a Store persisted in a cosmos-db database. Registration entries
// hold the serialized transaction; tombstones hold an empty value.
type DBIndex struct {
	db dbm.DB
}

func NewDBIndex(db dbm.DB) *DBIndex {
	if db == nil {
		panic("names: db is nil")
	}
	return &DBIndex{db: db}
}

func (d *DBIndex) Lookup(name string, height int64) (*wire.MsgTx, bool, error) {
	// A NUL inside name would make its key range reach into other names.
	if height < 0 || ValidateName(name) != nil {
		return nil, false, nil
	}
	start := nameKeyBase(name)
	var end []byte
	if height == math.MaxInt64 {
		end = nameKey(name, math.MaxUint64)
	} else {
		end = nameKey(name, uint64(height)+1)
	}

	it, err := d.db.ReverseIterator(start, end)
	if err != nil {
		return nil, false, fmt.Errorf("name index iterator: %w", err)
	}
	defer it.Close()

	if !it.Valid() {
		return nil, false, it.Error()
	}
	v := it.Value()
	if len(v) == 0 {
		return nil, false, nil
	}
	tx, err := ledger.DeserializeTx(v)
	if err != nil {
		return nil, false, fmt.Errorf("name index entry for %q: %w", name, err)
	}
	return tx, true, nil
}

func (d *DBIndex) Register(name string, height int64, tx *wire.MsgTx) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if tx == nil {
		return errNilTx
	}
	if height < 0 {
		return fmt.Errorf("negative height %d", height)
	}
	b, err := ledger.SerializeTx(tx)
	if err != nil {
		return err
	}
	return d.db.Set(nameKey(name, uint64(height)), b)
}

func (d *DBIndex) Kill(name string, height int64) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if height < 0 {
		return fmt.Errorf("negative height %d", height)
	}
	// cosmos-db rejects nil values; an empty slice is the tombstone.
	return d.db.Set(nameKey(name, uint64(height)), []byte{})
}
