package ledger

import "github.com/btcsuite/btcd/txscript"

// maxScriptIntLen bounds data pushes interpreted as integers. Block heights
// and character indices fit comfortably.
const maxScriptIntLen = 8

// SmallInt decodes OP_0 and OP_1..OP_16.
func SmallInt(op byte) (int, bool) {
	switch {
	case op == txscript.OP_0:
		return 0, true
	case op >= txscript.OP_1 && op <= txscript.OP_16:
		return int(op-txscript.OP_1) + 1, true
	default:
		return 0, false
	}
}

// ScriptInt decodes an integer token produced by txscript.ScriptBuilder.AddInt64:
// either a small-int opcode or a little-endian sign-magnitude data push.
// OP_1NEGATE decodes to -1.
func ScriptInt(op byte, data []byte) (int64, bool) {
	if n, ok := SmallInt(op); ok {
		return int64(n), true
	}
	if op == txscript.OP_1NEGATE {
		return -1, true
	}
	if op > txscript.OP_PUSHDATA4 || len(data) == 0 || len(data) > maxScriptIntLen {
		return 0, false
	}

	var v int64
	for i, b := range data {
		v |= int64(b) << uint8(8*i)
	}
	// The high bit of the last byte is the sign.
	last := data[len(data)-1]
	if last&0x80 != 0 {
		v &= ^(int64(0x80) << uint8(8*(len(data)-1)))
		return -v, true
	}
	return v, true
}
