package app

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	dbm "github.com/cosmos/cosmos-db"

	"gamechain/internal/ledger"
)

// gameTxPrefix || u64be(height) || u32be(index) -> serialized game tx.
// 0x01 belongs to the name index.
var gameTxPrefix = []byte{0x02}

func gameTxKey(height int64, index uint32) []byte {
	bz := make([]byte, len(gameTxPrefix)+8+4)
	copy(bz, gameTxPrefix)
	binary.BigEndian.PutUint64(bz[len(gameTxPrefix):], uint64(height))
	binary.BigEndian.PutUint32(bz[len(gameTxPrefix)+8:], index)
	return bz
}

func saveGameTxs(db dbm.DB, height int64, txs []*wire.MsgTx) error {
	if len(txs) == 0 {
		return nil
	}
	batch := db.NewBatch()
	defer batch.Close()
	for i, tx := range txs {
		b, err := ledger.SerializeTx(tx)
		if err != nil {
			return err
		}
		if err := batch.Set(gameTxKey(height, uint32(i)), b); err != nil {
			return err
		}
	}
	return batch.Write()
}

func loadGameTxs(db dbm.DB, height int64) ([]*wire.MsgTx, error) {
	it, err := db.Iterator(gameTxKey(height, 0), gameTxKey(height+1, 0))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*wire.MsgTx
	for ; it.Valid(); it.Next() {
		tx, err := ledger.DeserializeTx(it.Value())
		if err != nil {
			return nil, fmt.Errorf("decode game tx at height %d: %w", height, err)
		}
		out = append(out, tx)
	}
	return out, it.Error()
}
