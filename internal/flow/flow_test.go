package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInOrder(t *testing.T) {
	require.True(t, InOrder(StateIdle, StateWeightChosen))
	require.True(t, InOrder(StateWeightChosen, StateVolumeChosen))
	// skipping steps forward is still in order
	require.True(t, InOrder(StatePeriodChosen, StateCompleted))

	require.False(t, InOrder(StateVolumeChosen, StateVolumeChosen))
	require.False(t, InOrder(StateVolumeChosen, StateWeightChosen))
	require.False(t, InOrder(State("bogus"), StateWeightChosen))
	require.False(t, InOrder(StateIdle, State("bogus")))
}

func TestNewDraftIDs(t *testing.T) {
	a := NewDraft()
	b := NewDraft()

	require.NotEmpty(t, a.FlowID)
	require.NotEqual(t, a.FlowID, b.FlowID)
}
