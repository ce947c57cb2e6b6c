package gametx

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"gamechain/internal/ledger"
	"gamechain/internal/names"
)

// Encoder turns a step result into the game transactions of a block.
//
// Encode is a pure function of the step result and the name index as seen at
// the step height: two nodes holding the same index produce byte-identical
// transactions. The index must not change while Encode runs.
type Encoder struct {
	names  names.Index
	params *chaincfg.Params
	logger log.Logger
}

func NewEncoder(idx names.Index, params *chaincfg.Params, logger log.Logger) *Encoder {
	if idx == nil {
		panic("gametx: name index is nil")
	}
	if params == nil {
		params = ledger.MainNetParams()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Encoder{
		names:  idx,
		params: params,
		logger: logger.With("module", ModuleName),
	}
}

// Encode returns the death transaction (if anybody died) followed by the
// bounty transaction (if any bounty was collected). On error no transaction
// is returned; the caller must not assemble the block.
func (e *Encoder) Encode(state GameState, step StepResult) ([]*wire.MsgTx, error) {
	var out []*wire.MsgTx

	death, err := e.deathTx(state, step)
	if err != nil {
		e.logger.Error("game step encoding failed", "height", state.Height, "tx", "death", "err", err)
		return nil, err
	}
	if death != nil {
		out = append(out, death)
	}

	bounty, err := e.bountyTx(state, step)
	if err != nil {
		e.logger.Error("game step encoding failed", "height", state.Height, "tx", "bounty", "err", err)
		return nil, err
	}
	if bounty != nil {
		out = append(out, bounty)
	}

	e.logger.Debug("encoded game step",
		"height", state.Height,
		"killed", len(step.KilledPlayers),
		"bounties", len(step.Bounties),
		"txs", len(out),
	)
	return out, nil
}

// Validate reports the error Encode would return for step, without logging
// it. Hosts use it to refuse a step before it reaches a block.
func (e *Encoder) Validate(state GameState, step StepResult) error {
	if _, err := e.deathTx(state, step); err != nil {
		return err
	}
	_, err := e.bountyTx(state, step)
	return err
}

func (e *Encoder) deathTx(state GameState, step StepResult) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(ledger.GameTxVersion)

	for _, victim := range step.sortedVictims() {
		reg, nameOut, err := e.resolve(victim, state.Height)
		if err != nil {
			return nil, err
		}

		killers := step.sortedKillers(victim)
		p := DeathPayload{
			Victim:  string(victim),
			Killers: make([]string, 0, len(killers)),
		}
		for _, k := range killers {
			p.Killers = append(p.Killers, k.String())
		}
		sigScript, err := p.Script()
		if err != nil {
			return nil, errorsmod.Wrap(ErrInconsistentEngineState, err.Error())
		}

		hash := reg.TxHash()
		prevOut := wire.NewOutPoint(&hash, uint32(nameOut))
		tx.AddTxIn(wire.NewTxIn(prevOut, sigScript, nil))
	}

	if len(tx.TxIn) == 0 {
		return nil, nil
	}
	return tx, nil
}

func (e *Encoder) bountyTx(state GameState, step StepResult) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(ledger.GameTxVersion)

	for i, b := range step.Bounties {
		player := b.Character.Player
		reg, nameOut, err := e.resolve(player, state.Height)
		if err != nil {
			return nil, err
		}
		if b.Loot.Amount < 0 {
			return nil, errorsmod.Wrapf(ErrInconsistentEngineState,
				"bounty %d for %s has negative amount %d", i, b.Character, b.Loot.Amount)
		}

		p := BountyPayload{
			Player:              string(player),
			CharacterIndex:      b.Character.Index,
			FirstBlock:          b.Loot.FirstBlock,
			LastBlock:           b.Loot.LastBlock,
			CollectedFirstBlock: b.Loot.CollectedFirstBlock,
			CollectedLastBlock:  b.Loot.CollectedLastBlock,
		}
		if err := p.checkPushable(); err != nil {
			return nil, errorsmod.Wrapf(ErrInconsistentEngineState, "bounty %d for %s: %v", i, b.Character, err)
		}

		pkScript, err := e.payoutScript(b, reg, nameOut)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(b.Loot.Amount, pkScript))

		sigScript, err := p.Script()
		if err != nil {
			return nil, errorsmod.Wrap(ErrInconsistentEngineState, err.Error())
		}
		// Bounty inputs spend nothing; they sit at the same index as the
		// output they describe.
		tx.AddTxIn(wire.NewTxIn(ledger.NullOutPoint(), sigScript, nil))
	}

	if len(tx.TxIn) == 0 {
		return nil, nil
	}
	return tx, nil
}

// resolve returns the registration of name at height and the index of its
// name output.
func (e *Encoder) resolve(name PlayerID, height int64) (*wire.MsgTx, int, error) {
	reg, found, err := e.names.Lookup(string(name), height)
	if err != nil {
		return nil, 0, errorsmod.Wrapf(ErrNameIndex, "lookup %q at height %d: %v", name, height, err)
	}
	if !found || reg == nil {
		return nil, 0, errorsmod.Wrapf(ErrInconsistentEngineState,
			"name %q has no registration at height %d", name, height)
	}
	idx, ok := names.NameOutputIndex(reg)
	if !ok {
		return nil, 0, errorsmod.Wrapf(ErrInconsistentEngineState,
			"registration %s of %q has no name output", reg.TxHash(), name)
	}
	return reg, idx, nil
}

func (e *Encoder) payoutScript(b CollectedBounty, reg *wire.MsgTx, nameOut int) ([]byte, error) {
	if b.Address != "" {
		s, err := ledger.PayToAddress(b.Address, e.params)
		if err != nil {
			return nil, errorsmod.Wrapf(ErrInvalidPayoutAddress, "bounty for %s: %v", b.Character, err)
		}
		return s, nil
	}

	ns, ok := names.ParseNameScript(reg.TxOut[nameOut].PkScript)
	if !ok {
		return nil, errorsmod.Wrapf(ErrInconsistentEngineState,
			"registration %s of %q: unparseable name script", reg.TxHash(), b.Character.Player)
	}
	addr, err := ledger.AddressFromScript(ns.AddressScript, e.params)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrInconsistentEngineState,
			"registration %s of %q: %v", reg.TxHash(), b.Character.Player, err)
	}
	s, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrInconsistentEngineState,
			"registration %s of %q: %v", reg.TxHash(), b.Character.Player, err)
	}
	return s, nil
}
