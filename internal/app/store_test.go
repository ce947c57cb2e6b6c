package app

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/stretchr/testify/require"

	"gamechain/internal/gametx"
	"gamechain/internal/ledger"
)

func deathTx(t *testing.T, victim string) *wire.MsgTx {
	t.Helper()
	script, err := gametx.DeathPayload{Victim: victim}.Script()
	require.NoError(t, err)
	tx := wire.NewMsgTx(ledger.GameTxVersion)
	tx.AddTxIn(wire.NewTxIn(ledger.NullOutPoint(), script, nil))
	return tx
}

func TestGameTxStore_RoundTripPerHeight(t *testing.T) {
	db := dbm.NewMemDB()
	at5 := []*wire.MsgTx{deathTx(t, "alice"), deathTx(t, "bob")}
	at6 := []*wire.MsgTx{deathTx(t, "carol")}
	require.NoError(t, saveGameTxs(db, 5, at5))
	require.NoError(t, saveGameTxs(db, 6, at6))

	got, err := loadGameTxs(db, 5)
	require.NoError(t, err)
	require.NoError(t, gametx.VerifyGameTxs(at5, got))

	got, err = loadGameTxs(db, 6)
	require.NoError(t, err)
	require.NoError(t, gametx.VerifyGameTxs(at6, got))

	got, err = loadGameTxs(db, 7)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestGameTxStore_VerifyCatchesDivergentCopy(t *testing.T) {
	db := dbm.NewMemDB()
	txs := []*wire.MsgTx{deathTx(t, "alice")}
	require.NoError(t, saveGameTxs(db, 5, txs))

	other, err := ledger.SerializeTx(deathTx(t, "mallory"))
	require.NoError(t, err)
	require.NoError(t, db.Set(gameTxKey(5, 0), other))

	stored, err := loadGameTxs(db, 5)
	require.NoError(t, err)
	require.ErrorIs(t, gametx.VerifyGameTxs(txs, stored), gametx.ErrGameTxMismatch)
}
