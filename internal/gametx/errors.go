package gametx

import errorsmod "cosmossdk.io/errors"

// ModuleName is the error codespace of the game transaction encoder.
const ModuleName = "gametx"

// Every encoder error aborts transaction generation for the whole step.
var (
	// ErrInconsistentEngineState: the step references a name the ledger does
	// not know at the step height, or the ledger record cannot be used.
	ErrInconsistentEngineState = errorsmod.Register(ModuleName, 2, "inconsistent game engine state")
	ErrInvalidPayoutAddress    = errorsmod.Register(ModuleName, 3, "invalid payout address")
	ErrNameIndex               = errorsmod.Register(ModuleName, 4, "name index lookup failed")
	ErrGameTxMismatch          = errorsmod.Register(ModuleName, 5, "game transactions mismatch")
)
