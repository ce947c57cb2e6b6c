package gametx

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/txscript"

	"gamechain/internal/ledger"
)

// GameOp tags the kind of event an input script records. The values are
// pushed as small-int opcodes and are part of the wire format.
type GameOp int

const (
	OpKilledBy        GameOp = 1
	OpCollectedBounty GameOp = 2
)

func (op GameOp) String() string {
	switch op {
	case OpKilledBy:
		return "killed_by"
	case OpCollectedBounty:
		return "collected_bounty"
	default:
		return fmt.Sprintf("unknown(%d)", int(op))
	}
}

// Payload is the informational content of a game transaction input. It is
// implemented by DeathPayload and BountyPayload.
type Payload interface {
	Op() GameOp
	// Script serializes the payload as an input script:
	// <subject> <op> <fields...>.
	Script() ([]byte, error)
	Subject() string
}

// DeathPayload: <victim> OP_1 <killer>...
type DeathPayload struct {
	Victim  string
	Killers []string
}

func (DeathPayload) Op() GameOp { return OpKilledBy }

func (p DeathPayload) Subject() string { return p.Victim }

func (p DeathPayload) Script() ([]byte, error) {
	b := txscript.NewScriptBuilder().
		AddData([]byte(p.Victim)).
		AddInt64(int64(OpKilledBy))
	for _, k := range p.Killers {
		b.AddData([]byte(k))
	}
	s, err := b.Script()
	if err != nil {
		return nil, fmt.Errorf("death payload for %q: %w", p.Victim, err)
	}
	return s, nil
}

// BountyPayload: <player> OP_2 <index> <firstBlock> <lastBlock>
// <collectedFirstBlock> <collectedLastBlock>
type BountyPayload struct {
	Player              string
	CharacterIndex      int
	FirstBlock          int64
	LastBlock           int64
	CollectedFirstBlock int64
	CollectedLastBlock  int64
}

func (BountyPayload) Op() GameOp { return OpCollectedBounty }

func (p BountyPayload) Subject() string { return p.Player }

// checkPushable rejects the one int64 the script number encoding cannot
// represent.
func (p BountyPayload) checkPushable() error {
	fields := []struct {
		name string
		v    int64
	}{
		{"character index", int64(p.CharacterIndex)},
		{"first block", p.FirstBlock},
		{"last block", p.LastBlock},
		{"collected first block", p.CollectedFirstBlock},
		{"collected last block", p.CollectedLastBlock},
	}
	for _, f := range fields {
		if f.v == math.MinInt64 {
			return fmt.Errorf("%s %d is not encodable", f.name, f.v)
		}
	}
	return nil
}

func (p BountyPayload) Script() ([]byte, error) {
	if err := p.checkPushable(); err != nil {
		return nil, fmt.Errorf("bounty payload for %q: %w", p.Player, err)
	}
	s, err := txscript.NewScriptBuilder().
		AddData([]byte(p.Player)).
		AddInt64(int64(OpCollectedBounty)).
		AddInt64(int64(p.CharacterIndex)).
		AddInt64(p.FirstBlock).
		AddInt64(p.LastBlock).
		AddInt64(p.CollectedFirstBlock).
		AddInt64(p.CollectedLastBlock).
		Script()
	if err != nil {
		return nil, fmt.Errorf("bounty payload for %q: %w", p.Player, err)
	}
	return s, nil
}

// ParsePayload strictly decodes an input script produced by Script. Unlike
// the display decoder it rejects anything malformed or unknown.
func ParsePayload(script []byte) (Payload, error) {
	tok := txscript.MakeScriptTokenizer(0, script)
	if !tok.Next() || tok.Opcode() > txscript.OP_PUSHDATA4 {
		return nil, fmt.Errorf("missing subject")
	}
	subject := string(tok.Data())

	if !tok.Next() {
		return nil, fmt.Errorf("missing op")
	}
	n, ok := ledger.SmallInt(tok.Opcode())
	if !ok {
		return nil, fmt.Errorf("op is not a small integer")
	}

	switch op := GameOp(n); op {
	case OpKilledBy:
		p := DeathPayload{Victim: subject}
		for tok.Next() {
			if tok.Opcode() > txscript.OP_PUSHDATA4 {
				return nil, fmt.Errorf("killer %d is not a data push", len(p.Killers))
			}
			p.Killers = append(p.Killers, string(tok.Data()))
		}
		if err := tok.Err(); err != nil {
			return nil, err
		}
		return p, nil

	case OpCollectedBounty:
		var vals [5]int64
		for i := range vals {
			if !tok.Next() {
				return nil, fmt.Errorf("bounty field %d missing", i)
			}
			v, ok := ledger.ScriptInt(tok.Opcode(), tok.Data())
			if !ok {
				return nil, fmt.Errorf("bounty field %d is not an integer", i)
			}
			vals[i] = v
		}
		if tok.Next() {
			return nil, fmt.Errorf("trailing data after bounty fields")
		}
		if err := tok.Err(); err != nil {
			return nil, err
		}
		return BountyPayload{
			Player:              subject,
			CharacterIndex:      int(vals[0]),
			FirstBlock:          vals[1],
			LastBlock:           vals[2],
			CollectedFirstBlock: vals[3],
			CollectedLastBlock:  vals[4],
		}, nil

	default:
		return nil, fmt.Errorf("unknown game op %d", n)
	}
}
