package names

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/stretchr/testify/require"

	"gamechain/internal/ledger"
)

func testAddrScript(t *testing.T, seed byte) []byte {
	t.Helper()
	a, err := btcutil.NewAddressPubKeyHash(bytes.Repeat([]byte{seed}, 20), ledger.MainNetParams())
	require.NoError(t, err)
	s, err := txscript.PayToAddrScript(a)
	require.NoError(t, err)
	return s
}

func testRegistration(t *testing.T, name string, height int64, seed byte) *wire.MsgTx {
	t.Helper()
	tx, err := NewRegistrationTx(name, []byte("{}"), testAddrScript(t, seed), height)
	require.NoError(t, err)
	return tx
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("mem", func(t *testing.T) { fn(t, NewMemIndex()) })
	t.Run("db", func(t *testing.T) { fn(t, NewDBIndex(dbm.NewMemDB())) })
}

func TestLookup_LatestAtOrBeforeHeight(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		tx5 := testRegistration(t, "alice", 5, 1)
		tx9 := testRegistration(t, "alice", 9, 2)
		require.NoError(t, s.Register("alice", 9, tx9))
		require.NoError(t, s.Register("alice", 5, tx5))

		_, found, err := s.Lookup("alice", 4)
		require.NoError(t, err)
		require.False(t, found)

		for _, h := range []int64{5, 6, 8} {
			got, found, err := s.Lookup("alice", h)
			require.NoError(t, err)
			require.True(t, found, "height %d", h)
			require.Equal(t, tx5.TxHash(), got.TxHash(), "height %d", h)
		}

		got, found, err := s.Lookup("alice", 100)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, tx9.TxHash(), got.TxHash())
	})
}

func TestLookup_DoesNotLeakAcrossNames(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Register("al", 1, testRegistration(t, "al", 1, 1)))
		require.NoError(t, s.Register("alice", 1, testRegistration(t, "alice", 1, 2)))

		_, found, err := s.Lookup("ali", 10)
		require.NoError(t, err)
		require.False(t, found)

		got, found, err := s.Lookup("al", 10)
		require.NoError(t, err)
		require.True(t, found)
		ns, ok := ParseNameScript(got.TxOut[0].PkScript)
		require.True(t, ok)
		require.Equal(t, "al", ns.Name)
	})
}

func TestLookup_InvalidNameNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Register("a", 1, testRegistration(t, "a", 1, 1)))

		for _, name := range []string{"a\x00", "a\x00\x00\x00\x00\x00\x00\x00\x00", "\x00", "", string(bytes.Repeat([]byte{'a'}, MaxNameLen+1))} {
			_, found, err := s.Lookup(name, 10)
			require.NoError(t, err)
			require.Falsef(t, found, "name %q", name)
		}

		_, found, err := s.Lookup("a", 10)
		require.NoError(t, err)
		require.True(t, found)
	})
}

func TestKill_HidesNameUntilReregistered(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Register("bob", 1, testRegistration(t, "bob", 1, 1)))
		require.NoError(t, s.Kill("bob", 10))

		_, found, err := s.Lookup("bob", 9)
		require.NoError(t, err)
		require.True(t, found)

		_, found, err = s.Lookup("bob", 10)
		require.NoError(t, err)
		require.False(t, found)

		tx := testRegistration(t, "bob", 12, 3)
		require.NoError(t, s.Register("bob", 12, tx))
		got, found, err := s.Lookup("bob", 12)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, tx.TxHash(), got.TxHash())
	})
}

func TestRegister_RejectsBadInput(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		require.Error(t, s.Register("", 1, testRegistration(t, "x", 1, 1)))
		require.Error(t, s.Register("a\x00b", 1, testRegistration(t, "x", 1, 1)))
		require.Error(t, s.Register("x", 1, nil))
	})
}

func TestLookup_NegativeHeight(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Register("carol", 0, testRegistration(t, "carol", 0, 1)))
		_, found, err := s.Lookup("carol", -1)
		require.NoError(t, err)
		require.False(t, found)
	})
}
