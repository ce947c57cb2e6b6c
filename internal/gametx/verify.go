package gametx

import (
	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/btcsuite/btcd/wire"

	"gamechain/internal/ledger"
)

// VerifyGameTxs checks that the game transactions found in a block are
// exactly the ones the local encoder produced for the same step.
func VerifyGameTxs(expected, actual []*wire.MsgTx) error {
	if len(expected) != len(actual) {
		return errorsmod.Wrapf(ErrGameTxMismatch, "expected %d game txs, got %d", len(expected), len(actual))
	}
	for i := range expected {
		eq, err := ledger.TxsEqual(expected[i:i+1], actual[i:i+1])
		if err != nil {
			return errorsmod.Wrapf(ErrGameTxMismatch, "tx %d: %v", i, err)
		}
		if !eq {
			return errorsmod.Wrapf(ErrGameTxMismatch, "tx %d: expected %s, got %s",
				i, expected[i].TxHash(), actual[i].TxHash())
		}
	}
	return nil
}

// Summary counts what a step's game transactions did.
type Summary struct {
	Deaths   int
	Bounties int
	Payout   sdkmath.Int
}

func Summarize(txs []*wire.MsgTx) Summary {
	s := Summary{Payout: sdkmath.ZeroInt()}
	for _, tx := range txs {
		if !IsGameTx(tx) {
			continue
		}
		for _, in := range tx.TxIn {
			if _, ok := IsDeathInput(in.SignatureScript); ok {
				s.Deaths++
			}
		}
		for _, out := range tx.TxOut {
			s.Bounties++
			s.Payout = s.Payout.Add(sdkmath.NewInt(out.Value))
		}
	}
	return s
}
