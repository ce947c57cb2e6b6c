package codec

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"gamechain/internal/gametx"
)

func TestDecodeTxEnvelope_OK(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"type":  TypeNameRegister,
		"value": map[string]any{"name": "alice", "address": "addr"},
	})
	require.NoError(t, err)

	env, err := DecodeTxEnvelope(b)
	require.NoError(t, err)
	require.Equal(t, TypeNameRegister, env.Type)

	var v NameRegisterTx
	require.NoError(t, json.Unmarshal(env.Value, &v))
	require.Equal(t, "alice", v.Name)
}

func TestDecodeTxEnvelope_IgnoresUnknownFields(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"type":  TypeGameStep,
		"nonce": "7",
		"extra": true,
		"value": map[string]any{},
	})
	require.NoError(t, err)

	env, err := DecodeTxEnvelope(b)
	require.NoError(t, err)
	require.Equal(t, "7", env.Nonce)
}

func TestDecodeTxEnvelope_MissingType(t *testing.T) {
	b, err := json.Marshal(map[string]any{"value": map[string]any{"x": 1}})
	require.NoError(t, err)
	_, err = DecodeTxEnvelope(b)
	require.Error(t, err)
}

func TestDecodeTxEnvelope_InvalidJSON(t *testing.T) {
	_, err := DecodeTxEnvelope([]byte("{"))
	require.Error(t, err)
}

func TestEncodeTx_RoundTrip(t *testing.T) {
	b, err := EncodeTx(TypeGameStep, GameStepTx{KilledPlayers: []string{"alice"}})
	require.NoError(t, err)

	env, err := DecodeTxEnvelope(b)
	require.NoError(t, err)
	require.Equal(t, TypeGameStep, env.Type)

	var msg GameStepTx
	require.NoError(t, json.Unmarshal(env.Value, &msg))
	require.Equal(t, []string{"alice"}, msg.KilledPlayers)
}

func TestGameStepTx_StepResult(t *testing.T) {
	msg := GameStepTx{
		KilledPlayers: []string{"alice", "dave"},
		KilledBy: map[string][]CharacterRef{
			"alice": {{Player: "bob", Index: 1}, {Player: "bob"}},
		},
		Bounties: []BountyRef{{
			Character:           CharacterRef{Player: "carol", Index: 2},
			Amount:              20,
			FirstBlock:          10,
			LastBlock:           20,
			CollectedFirstBlock: 15,
			CollectedLastBlock:  16,
		}},
	}

	step, err := msg.StepResult()
	require.NoError(t, err)
	require.Len(t, step.KilledPlayers, 2)
	require.Contains(t, step.KilledPlayers, gametx.PlayerID("dave"))
	require.Equal(t, []gametx.CharacterID{{Player: "bob", Index: 1}, {Player: "bob"}}, step.KilledBy["alice"])
	require.Equal(t, []gametx.CollectedBounty{{
		Character: gametx.CharacterID{Player: "carol", Index: 2},
		Loot:      gametx.LootInfo{Amount: 20, FirstBlock: 10, LastBlock: 20, CollectedFirstBlock: 15, CollectedLastBlock: 16},
	}}, step.Bounties)
	require.False(t, msg.Empty())
}

func TestGameStepTx_StepResultRejectsBadRefs(t *testing.T) {
	cases := map[string]GameStepTx{
		"empty victim":     {KilledPlayers: []string{""}},
		"empty killer":     {KilledBy: map[string][]CharacterRef{"alice": {{}}}},
		"negative index":   {Bounties: []BountyRef{{Character: CharacterRef{Player: "bob", Index: -1}}}},
		"empty bounty":     {Bounties: []BountyRef{{}}},
		"empty killedBy k": {KilledBy: map[string][]CharacterRef{"": {{Player: "bob"}}}},
		"negative amount":  {Bounties: []BountyRef{{Character: CharacterRef{Player: "bob"}, Amount: -1}}},
		"min first block":  {Bounties: []BountyRef{{Character: CharacterRef{Player: "bob"}, FirstBlock: math.MinInt64}}},
		"min last block":   {Bounties: []BountyRef{{Character: CharacterRef{Player: "bob"}, LastBlock: math.MinInt64}}},
		"min coll. first":  {Bounties: []BountyRef{{Character: CharacterRef{Player: "bob"}, CollectedFirstBlock: math.MinInt64}}},
		"min coll. last":   {Bounties: []BountyRef{{Character: CharacterRef{Player: "bob"}, CollectedLastBlock: math.MinInt64}}},
		"min index":        {Bounties: []BountyRef{{Character: CharacterRef{Player: "bob", Index: math.MinInt64}}}},
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := msg.StepResult()
			require.Error(t, err)
		})
	}
}

func TestGameStepTx_Empty(t *testing.T) {
	require.True(t, GameStepTx{}.Empty())
	require.True(t, GameStepTx{KilledBy: map[string][]CharacterRef{"x": {{Player: "y"}}}}.Empty())
}
