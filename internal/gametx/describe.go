package gametx

import (
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"gamechain/internal/ledger"
)

// Fixed display strings.
const (
	textIsKilled        = " is killed"
	textKilledBy        = " killed by "
	textSelfDestruction = "self-destruction"
	textSpawnTimeout    = " killed for staying too long in the spawn area"
	textBounty          = " collected bounty"
	textUnknownType     = " (unknown tx type)"
)

// NameWrap surrounds the subject name, e.g. with markup.
type NameWrap struct {
	Prefix string
	Suffix string
}

// DescribeOptions controls the human readable rendering of a game input.
type DescribeOptions struct {
	// Brief renders a one-line summary and never uses the colon.
	Brief    bool
	NameWrap NameWrap
	UseColon bool
}

func DefaultDescribeOptions() DescribeOptions {
	return DescribeOptions{UseColon: true}
}

// BountyInfo holds the trailing fields of a bounty record.
type BountyInfo struct {
	CharacterIndex      int   `json:"characterIndex"`
	FirstBlock          int64 `json:"firstBlock"`
	LastBlock           int64 `json:"lastBlock"`
	CollectedFirstBlock int64 `json:"collectedFirstBlock"`
	CollectedLastBlock  int64 `json:"collectedLastBlock"`
}

// Event is the structured form of a game input script. Decoding is lenient:
// truncated scripts yield the fields that could be read.
type Event struct {
	// Valid is false when not even the subject name could be read.
	Valid bool   `json:"valid"`
	Name  string `json:"name"`
	// HasOp is false when the script ends after the name. Op is -1 when the
	// tag token is not a small integer.
	HasOp   bool        `json:"hasOp"`
	Op      GameOp      `json:"op"`
	Killers []string    `json:"killers,omitempty"`
	Bounty  *BountyInfo `json:"bounty,omitempty"`
}

// decoder walks a script token by token and never fails; a malformed script
// just looks like it ended early.
type decoder struct {
	tok txscript.ScriptTokenizer
}

func newDecoder(script []byte) *decoder {
	return &decoder{tok: txscript.MakeScriptTokenizer(0, script)}
}

func (d *decoder) next() (op byte, data []byte, ok bool) {
	if !d.tok.Next() {
		return 0, nil, false
	}
	return d.tok.Opcode(), d.tok.Data(), true
}

func (d *decoder) nextInt() (int64, bool) {
	op, data, ok := d.next()
	if !ok {
		return 0, false
	}
	return ledger.ScriptInt(op, data)
}

func (d *decoder) header() (name string, op GameOp, hasName, hasOp bool) {
	_, data, ok := d.next()
	if !ok {
		return "", 0, false, false
	}
	name = string(data)

	tagOp, _, ok := d.next()
	if !ok {
		return name, 0, true, false
	}
	n, ok := ledger.SmallInt(tagOp)
	if !ok {
		return name, -1, true, true
	}
	return name, GameOp(n), true, true
}

// ToStructured decodes a game input script into its fields.
func ToStructured(scriptSig []byte) Event {
	d := newDecoder(scriptSig)
	name, op, hasName, hasOp := d.header()
	ev := Event{Valid: hasName, Name: name, HasOp: hasOp, Op: op}
	if !hasName || !hasOp {
		return ev
	}

	switch op {
	case OpKilledBy:
		for {
			_, data, ok := d.next()
			if !ok {
				break
			}
			ev.Killers = append(ev.Killers, string(data))
		}
	case OpCollectedBounty:
		b := &BountyInfo{}
		fields := []*int64{&b.FirstBlock, &b.LastBlock, &b.CollectedFirstBlock, &b.CollectedLastBlock}
		if idx, ok := d.nextInt(); ok {
			b.CharacterIndex = int(idx)
			for _, f := range fields {
				v, ok := d.nextInt()
				if !ok {
					break
				}
				*f = v
			}
		}
		ev.Bounty = b
	}
	return ev
}

// Describe renders a game input script for humans. It returns "" when the
// script has no readable subject.
func Describe(scriptSig []byte, opts DescribeOptions) string {
	d := newDecoder(scriptSig)
	name, op, hasName, hasOp := d.header()
	if !hasName {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(opts.NameWrap.Prefix)
	sb.WriteString(name)
	sb.WriteString(opts.NameWrap.Suffix)

	if hasOp && op == OpCollectedBounty {
		if idx, ok := d.nextInt(); ok && idx != 0 {
			sb.WriteString(".")
			sb.WriteString(strconv.FormatInt(idx, 10))
		}
	}
	if !opts.Brief && opts.UseColon {
		sb.WriteString(":")
	}
	if !hasOp {
		return sb.String()
	}

	switch op {
	case OpKilledBy:
		if opts.Brief {
			sb.WriteString(textIsKilled)
			break
		}
		n := 0
		for {
			_, data, ok := d.next()
			if !ok {
				break
			}
			if n == 0 {
				sb.WriteString(textKilledBy)
			} else {
				sb.WriteString(", ")
			}
			killer := string(data)
			if killer == name {
				sb.WriteString(textSelfDestruction)
			} else {
				sb.WriteString(killer)
			}
			n++
		}
		if n == 0 {
			sb.WriteString(textSpawnTimeout)
		}
	case OpCollectedBounty:
		sb.WriteString(textBounty)
	default:
		sb.WriteString(textUnknownType)
	}
	return sb.String()
}

// IsDeathInput returns the victim name when scriptSig records a death.
func IsDeathInput(scriptSig []byte) (string, bool) {
	name, op, hasName, hasOp := newDecoder(scriptSig).header()
	if !hasName || !hasOp || op != OpKilledBy {
		return "", false
	}
	return name, true
}

// IsGameTx reports whether tx was produced by the game step encoder.
func IsGameTx(tx *wire.MsgTx) bool {
	return tx != nil && tx.Version == ledger.GameTxVersion
}

// DescribeTx describes every input of a game transaction, in input order.
func DescribeTx(tx *wire.MsgTx, opts DescribeOptions) []string {
	if !IsGameTx(tx) {
		return nil
	}
	out := make([]string, 0, len(tx.TxIn))
	for _, in := range tx.TxIn {
		out = append(out, Describe(in.SignatureScript, opts))
	}
	return out
}

// StructuredTx decodes every input of a game transaction.
func StructuredTx(tx *wire.MsgTx) []Event {
	if !IsGameTx(tx) {
		return nil
	}
	out := make([]Event, 0, len(tx.TxIn))
	for _, in := range tx.TxIn {
		out = append(out, ToStructured(in.SignatureScript))
	}
	return out
}
