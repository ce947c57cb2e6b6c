package codec

import (
	"encoding/json"
	"fmt"
	"math"

	"gamechain/internal/gametx"
)

// Tx types routed by the ABCI host.
const (
	TypeNameRegister = "name/register"
	TypeGameStep     = "game/step"
)

// TxEnvelope is the transaction container.
//
// CometBFT transactions are opaque bytes; the host accepts JSON envelopes.
// The game transactions themselves are never submitted: every node derives
// them from the step.
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Nonce only keeps otherwise identical tx bytes unique in the mempool.
	Nonce string `json:"nonce,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// EncodeTx wraps value into an envelope of the given type.
func EncodeTx(typ string, value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s value: %w", typ, err)
	}
	return json.Marshal(TxEnvelope{Type: typ, Value: raw})
}

// ---- Names ----

// NameRegisterTx registers (or re-registers) a name to a payout address.
type NameRegisterTx struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Value   string `json:"value,omitempty"`
}

// ---- Game ----

type CharacterRef struct {
	Player string `json:"player"`
	Index  int    `json:"index,omitempty"`
}

type BountyRef struct {
	Character           CharacterRef `json:"character"`
	Amount              int64        `json:"amount"`
	FirstBlock          int64        `json:"firstBlock"`
	LastBlock           int64        `json:"lastBlock"`
	CollectedFirstBlock int64        `json:"collectedFirstBlock"`
	CollectedLastBlock  int64        `json:"collectedLastBlock"`
	Address             string       `json:"address,omitempty"`
}

// GameStepTx carries the outcome of one game step as produced by the
// simulation.
type GameStepTx struct {
	KilledPlayers []string                  `json:"killedPlayers,omitempty"`
	KilledBy      map[string][]CharacterRef `json:"killedBy,omitempty"`
	Bounties      []BountyRef               `json:"bounties,omitempty"`
}

func (r CharacterRef) characterID() (gametx.CharacterID, error) {
	if r.Player == "" {
		return gametx.CharacterID{}, fmt.Errorf("missing character player")
	}
	if r.Index < 0 {
		return gametx.CharacterID{}, fmt.Errorf("negative character index for %q", r.Player)
	}
	return gametx.CharacterID{Player: gametx.PlayerID(r.Player), Index: r.Index}, nil
}

// checkLoot rejects values the encoder can never turn into a bounty.
func (b BountyRef) checkLoot() error {
	if b.Amount < 0 {
		return fmt.Errorf("negative bounty amount %d for %q", b.Amount, b.Character.Player)
	}
	for _, v := range []int64{b.FirstBlock, b.LastBlock, b.CollectedFirstBlock, b.CollectedLastBlock} {
		if v == math.MinInt64 {
			return fmt.Errorf("bounty block marker out of range for %q", b.Character.Player)
		}
	}
	return nil
}

// StepResult converts the wire form into the encoder's input. KilledBy
// entries for players that are not in KilledPlayers are kept; the encoder
// ignores them.
func (m GameStepTx) StepResult() (gametx.StepResult, error) {
	step := gametx.NewStepResult()
	for _, p := range m.KilledPlayers {
		if p == "" {
			return gametx.StepResult{}, fmt.Errorf("empty killed player")
		}
		step.KilledPlayers[gametx.PlayerID(p)] = struct{}{}
	}
	for victim, refs := range m.KilledBy {
		if victim == "" {
			return gametx.StepResult{}, fmt.Errorf("empty victim in killedBy")
		}
		for _, r := range refs {
			id, err := r.characterID()
			if err != nil {
				return gametx.StepResult{}, err
			}
			step.KilledBy[gametx.PlayerID(victim)] = append(step.KilledBy[gametx.PlayerID(victim)], id)
		}
	}
	for _, b := range m.Bounties {
		id, err := b.Character.characterID()
		if err != nil {
			return gametx.StepResult{}, err
		}
		if err := b.checkLoot(); err != nil {
			return gametx.StepResult{}, err
		}
		step.Bounties = append(step.Bounties, gametx.CollectedBounty{
			Character: id,
			Loot: gametx.LootInfo{
				Amount:              b.Amount,
				FirstBlock:          b.FirstBlock,
				LastBlock:           b.LastBlock,
				CollectedFirstBlock: b.CollectedFirstBlock,
				CollectedLastBlock:  b.CollectedLastBlock,
			},
			Address: b.Address,
		})
	}
	return step, nil
}

// Empty reports whether the step would produce no game transactions.
func (m GameStepTx) Empty() bool {
	return len(m.KilledPlayers) == 0 && len(m.Bounties) == 0
}
