// Package state holds the host's commit metadata. Names and game
// transactions live in the key-value store; this is what Info reports.
package state

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/wire"

	"gamechain/internal/ledger"
)

const fileName = "state.json"

type State struct {
	Height  int64  `json:"height"`
	AppHash []byte `json:"appHash"`

	// Totals since genesis.
	DeathTxs      uint64 `json:"deathTxs"`
	BountyTxs     uint64 `json:"bountyTxs"`
	Registrations uint64 `json:"registrations"`
}

func NewState() *State {
	return &State{AppHash: GenesisHash()}
}

// GenesisHash is the app hash before any block.
func GenesisHash() []byte {
	sum := sha256.Sum256([]byte("gamechain/genesis"))
	return sum[:]
}

func Load(home string) (*State, error) {
	path := filepath.Join(home, fileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if len(st.AppHash) == 0 {
		st.AppHash = GenesisHash()
	}
	return &st, nil
}

func (s *State) Save(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, fileName)
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	// Write then rename so a crash never leaves a truncated file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// NextAppHash chains prev with the block height, the accepted host txs and
// the derived game txs. Identical inputs give identical hashes on every node.
func NextAppHash(prev []byte, height int64, hostTxs [][]byte, gameTxs []*wire.MsgTx) ([]byte, error) {
	h := sha256.New()
	h.Write(prev)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(height))
	h.Write(buf[:])

	binary.BigEndian.PutUint64(buf[:], uint64(len(hostTxs)))
	h.Write(buf[:])
	for _, tx := range hostTxs {
		sum := sha256.Sum256(tx)
		h.Write(sum[:])
	}

	binary.BigEndian.PutUint64(buf[:], uint64(len(gameTxs)))
	h.Write(buf[:])
	for _, tx := range gameTxs {
		b, err := ledger.SerializeTx(tx)
		if err != nil {
			return nil, fmt.Errorf("serialize game tx: %w", err)
		}
		binary.BigEndian.PutUint64(buf[:], uint64(len(b)))
		h.Write(buf[:])
		h.Write(b)
	}
	return h.Sum(nil), nil
}
