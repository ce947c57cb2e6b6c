package names

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"gamechain/internal/ledger"
)

// Name operations are encoded as small-int opcodes in front of an ordinary
// address script.
const (
	OpNameNew         = txscript.OP_1
	OpNameFirstUpdate = txscript.OP_2
	OpNameUpdate      = txscript.OP_3
)

// NameLockAmount is the value locked in a name output.
const NameLockAmount int64 = 1_000_000

// MaxNameLen bounds registered names.
const MaxNameLen = 255

// NameScript is a parsed name output script.
type NameScript struct {
	Op            byte
	Name          string
	Value         []byte
	AddressScript []byte
}

// BuildNameScript returns
//
//	OP_NAME_UPDATE <name> <value> OP_2DROP OP_DROP <addressScript>
func BuildNameScript(name string, value []byte, addressScript []byte) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	prefix, err := txscript.NewScriptBuilder().
		AddOp(OpNameUpdate).
		AddData([]byte(name)).
		AddData(value).
		AddOp(txscript.OP_2DROP).
		AddOp(txscript.OP_DROP).
		Script()
	if err != nil {
		return nil, fmt.Errorf("build name script: %w", err)
	}
	out := make([]byte, 0, len(prefix)+len(addressScript))
	out = append(out, prefix...)
	out = append(out, addressScript...)
	return out, nil
}

// ParseNameScript splits a name output script into its operation, arguments
// and the trailing address script. ok is false for anything that is not a
// first-update or update name script.
func ParseNameScript(pkScript []byte) (ns NameScript, ok bool) {
	tok := txscript.MakeScriptTokenizer(0, pkScript)
	if !tok.Next() {
		return NameScript{}, false
	}
	op := tok.Opcode()

	var nargs int
	var drops []byte
	switch op {
	case OpNameFirstUpdate:
		// <name> <rand> <value>
		nargs = 3
		drops = []byte{txscript.OP_2DROP, txscript.OP_2DROP}
	case OpNameUpdate:
		nargs = 2
		drops = []byte{txscript.OP_2DROP, txscript.OP_DROP}
	default:
		return NameScript{}, false
	}

	args := make([][]byte, 0, nargs)
	for i := 0; i < nargs; i++ {
		if !tok.Next() || tok.Opcode() > txscript.OP_PUSHDATA4 {
			return NameScript{}, false
		}
		args = append(args, tok.Data())
	}
	for _, d := range drops {
		if !tok.Next() || tok.Opcode() != d {
			return NameScript{}, false
		}
	}
	if tok.Err() != nil {
		return NameScript{}, false
	}

	ns = NameScript{
		Op:            op,
		Name:          string(args[0]),
		Value:         args[len(args)-1],
		AddressScript: pkScript[tok.ByteIndex():],
	}
	return ns, true
}

// NameOutputIndex returns the index of the first name output of tx.
func NameOutputIndex(tx *wire.MsgTx) (int, bool) {
	if tx == nil {
		return -1, false
	}
	for i, out := range tx.TxOut {
		if _, ok := ParseNameScript(out.PkScript); ok {
			return i, true
		}
	}
	return -1, false
}

// NewRegistrationTx builds the transaction that registers (or renews) name at
// height, locking NameLockAmount to addressScript. The single input carries
// the name and height so that re-registrations of the same content get
// distinct txids.
func NewRegistrationTx(name string, value []byte, addressScript []byte, height int64) (*wire.MsgTx, error) {
	pkScript, err := BuildNameScript(name, value, addressScript)
	if err != nil {
		return nil, err
	}
	sigScript, err := txscript.NewScriptBuilder().
		AddData([]byte(name)).
		AddInt64(height).
		Script()
	if err != nil {
		return nil, fmt.Errorf("build registration input: %w", err)
	}

	tx := wire.NewMsgTx(ledger.NameTxVersion)
	tx.AddTxIn(wire.NewTxIn(ledger.NullOutPoint(), sigScript, nil))
	tx.AddTxOut(wire.NewTxOut(NameLockAmount, pkScript))
	return tx, nil
}

func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("name longer than %d bytes", MaxNameLen)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return fmt.Errorf("name contains NUL byte")
		}
	}
	return nil
}
