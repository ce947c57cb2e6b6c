package state

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"gamechain/internal/ledger"
)

func gameTx(script []byte) *wire.MsgTx {
	tx := wire.NewMsgTx(ledger.GameTxVersion)
	tx.AddTxIn(wire.NewTxIn(ledger.NullOutPoint(), script, nil))
	return tx
}

func TestNextAppHash_Deterministic(t *testing.T) {
	prev := GenesisHash()
	txs := []*wire.MsgTx{gameTx([]byte{0x01, 'a', 0x51})}

	h1, err := NextAppHash(prev, 7, [][]byte{[]byte("x")}, txs)
	require.NoError(t, err)
	h2, err := NextAppHash(prev, 7, [][]byte{[]byte("x")}, []*wire.MsgTx{gameTx([]byte{0x01, 'a', 0x51})})
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 32)
}

func TestNextAppHash_SensitiveToEveryInput(t *testing.T) {
	prev := GenesisHash()
	base, err := NextAppHash(prev, 7, nil, []*wire.MsgTx{gameTx([]byte{0x51})})
	require.NoError(t, err)

	variants := map[string]func() ([]byte, error){
		"prev":    func() ([]byte, error) { return NextAppHash([]byte{1}, 7, nil, []*wire.MsgTx{gameTx([]byte{0x51})}) },
		"height":  func() ([]byte, error) { return NextAppHash(prev, 8, nil, []*wire.MsgTx{gameTx([]byte{0x51})}) },
		"hostTxs": func() ([]byte, error) { return NextAppHash(prev, 7, [][]byte{{}}, []*wire.MsgTx{gameTx([]byte{0x51})}) },
		"gameTxs": func() ([]byte, error) { return NextAppHash(prev, 7, nil, []*wire.MsgTx{gameTx([]byte{0x52})}) },
		"noTxs":   func() ([]byte, error) { return NextAppHash(prev, 7, nil, nil) },
	}
	for name, fn := range variants {
		t.Run(name, func(t *testing.T) {
			h, err := fn()
			require.NoError(t, err)
			require.False(t, bytes.Equal(base, h))
		})
	}
}

func TestLoadSave_RoundTrip(t *testing.T) {
	home := t.TempDir()

	st, err := Load(home)
	require.NoError(t, err)
	require.Equal(t, NewState(), st)

	st.Height = 12
	st.AppHash = []byte{1, 2, 3}
	st.DeathTxs = 2
	st.Registrations = 5
	require.NoError(t, st.Save(home))

	got, err := Load(home)
	require.NoError(t, err)
	require.Equal(t, st, got)

	_, err = os.Stat(filepath.Join(home, fileName+".tmp"))
	require.True(t, os.IsNotExist(err))
}

func TestLoad_Corrupt(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, fileName), []byte("{"), 0o644))
	_, err := Load(home)
	require.Error(t, err)
}
