package cmd

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"

	"gamechain/internal/codec"
	"gamechain/internal/gametx"
	"gamechain/internal/ledger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--home", t.TempDir()))
	err := root.Execute()
	return out.String(), err
}

func deathHex(t *testing.T) string {
	t.Helper()
	script, err := gametx.DeathPayload{Victim: "alice", Killers: []string{"bob"}}.Script()
	require.NoError(t, err)
	return hex.EncodeToString(script)
}

func TestDescribe_Flags(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{nil, "alice: killed by bob\n"},
		{[]string{"--brief"}, "alice is killed\n"},
		{[]string{"--no-colon"}, "alice killed by bob\n"},
		{[]string{"--prefix", "<b>", "--suffix", "</b>"}, "<b>alice</b>: killed by bob\n"},
	}
	for _, tc := range cases {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			out, err := run(t, append([]string{"describe", deathHex(t)}, tc.args...)...)
			require.NoError(t, err)
			require.Equal(t, tc.want, out)
		})
	}
}

func TestDescribe_JSON(t *testing.T) {
	out, err := run(t, "describe", deathHex(t), "--json")
	require.NoError(t, err)

	var ev gametx.Event
	require.NoError(t, json.Unmarshal([]byte(out), &ev))
	require.Equal(t, gametx.Event{Valid: true, Name: "alice", HasOp: true, Op: gametx.OpKilledBy, Killers: []string{"bob"}}, ev)
}

func TestDescribe_BadHex(t *testing.T) {
	_, err := run(t, "describe", "zz")
	require.Error(t, err)
	_, err = run(t, "describe")
	require.Error(t, err)
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestEncode_Offline(t *testing.T) {
	dir := t.TempDir()
	var regs []codec.NameRegisterTx
	for i, n := range []string{"alice", "bob", "carol"} {
		a, err := btcutil.NewAddressPubKeyHash(bytes.Repeat([]byte{byte(i + 1)}, 20), ledger.MainNetParams())
		require.NoError(t, err)
		regs = append(regs, codec.NameRegisterTx{Name: n, Address: a.EncodeAddress()})
	}
	namesPath := writeJSON(t, dir, "names.json", regs)
	stepPath := writeJSON(t, dir, "step.json", codec.GameStepTx{
		KilledPlayers: []string{"alice"},
		KilledBy:      map[string][]codec.CharacterRef{"alice": {{Player: "bob"}}},
		Bounties:      []codec.BountyRef{{Character: codec.CharacterRef{Player: "carol"}, Amount: 7}},
	})

	out, err := run(t, "encode", "--step", stepPath, "--names", namesPath, "--height", "5")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "  alice: killed by bob", lines[1])
	require.Equal(t, "  carol: collected bounty", lines[3])

	fields := strings.Fields(lines[0])
	require.Len(t, fields, 2)
	raw, err := hex.DecodeString(fields[1])
	require.NoError(t, err)
	tx, err := ledger.DeserializeTx(raw)
	require.NoError(t, err)
	require.Equal(t, fields[0], tx.TxHash().String())
}

func TestEncode_UnknownNameFails(t *testing.T) {
	dir := t.TempDir()
	stepPath := writeJSON(t, dir, "step.json", codec.GameStepTx{KilledPlayers: []string{"ghost"}})
	_, err := run(t, "encode", "--step", stepPath)
	require.ErrorIs(t, err, gametx.ErrInconsistentEngineState)
}

func TestEncode_RequiresStep(t *testing.T) {
	_, err := run(t, "encode")
	require.Error(t, err)
}

func TestRoot_InvalidConfig(t *testing.T) {
	t.Setenv("GAMECHAIN_DB_BACKEND", "rocksdb")
	_, err := run(t, "describe", deathHex(t))
	require.Error(t, err)
}
