package gametx

import (
	"sort"
	"strconv"
)

// PlayerID is the on-chain name a player registered.
type PlayerID string

// CharacterID names one of a player's characters. Index 0 is the player's
// main character.
type CharacterID struct {
	Player PlayerID
	Index  int
}

// String returns "player" for the main character and "player.N" otherwise.
func (c CharacterID) String() string {
	if c.Index == 0 {
		return string(c.Player)
	}
	return string(c.Player) + "." + strconv.Itoa(c.Index)
}

func (c CharacterID) less(o CharacterID) bool {
	if c.Player != o.Player {
		return c.Player < o.Player
	}
	return c.Index < o.Index
}

// LootInfo describes collected loot. The block markers bound when the loot
// accrued and when it was collected; they are carried through unchanged.
type LootInfo struct {
	Amount              int64
	FirstBlock          int64
	LastBlock           int64
	CollectedFirstBlock int64
	CollectedLastBlock  int64
}

type CollectedBounty struct {
	Character CharacterID
	Loot      LootInfo
	// Address overrides the payout destination. Empty means "pay the address
	// that owns the player's name".
	Address string
}

// StepResult is the part of one game step's outcome that becomes ledger
// transactions.
type StepResult struct {
	KilledPlayers map[PlayerID]struct{}
	// KilledBy maps a victim to its killers. A victim without killers died by
	// game rules (spawn timeout).
	KilledBy map[PlayerID][]CharacterID
	// Bounties are encoded in the order the simulation produced them.
	Bounties []CollectedBounty
}

func NewStepResult() StepResult {
	return StepResult{
		KilledPlayers: map[PlayerID]struct{}{},
		KilledBy:      map[PlayerID][]CharacterID{},
	}
}

// Kill records victim as dead, killed by killers (possibly none).
func (s *StepResult) Kill(victim PlayerID, killers ...CharacterID) {
	if s.KilledPlayers == nil {
		s.KilledPlayers = map[PlayerID]struct{}{}
	}
	if s.KilledBy == nil {
		s.KilledBy = map[PlayerID][]CharacterID{}
	}
	s.KilledPlayers[victim] = struct{}{}
	if len(killers) > 0 {
		s.KilledBy[victim] = append(s.KilledBy[victim], killers...)
	}
}

// GameState is the read-only view of the game the encoder needs.
type GameState struct {
	// Height is the block height at which names are resolved.
	Height int64
}

// sortedVictims returns the killed players in ascending byte order. This order
// is part of consensus.
func (s StepResult) sortedVictims() []PlayerID {
	out := make([]PlayerID, 0, len(s.KilledPlayers))
	for p := range s.KilledPlayers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// sortedKillers returns the killers of victim ordered by (player, index).
// Duplicate entries are kept.
func (s StepResult) sortedKillers(victim PlayerID) []CharacterID {
	ks := s.KilledBy[victim]
	out := make([]CharacterID, len(ks))
	copy(out, ks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
