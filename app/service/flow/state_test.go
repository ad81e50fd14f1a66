package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartFlowArchivesPreviousAsAbandoned(t *testing.T) {
	state := NewState("5585999990000")

	first := state.StartFlow("tax_payment", []string{"plate", "renavam"})
	second := state.StartFlow("document_request", nil)

	require.NotNil(t, state.ActiveFlow)
	assert.Equal(t, second.ID, state.ActiveFlow.ID)
	assert.NotEqual(t, first.ID, second.ID)

	require.Len(t, state.FlowHistory, 1)
	assert.Equal(t, StatusAbandoned, state.FlowHistory[0].Status)
	assert.Equal(t, "tax_payment", state.FlowHistory[0].PrimaryIntent)
}

func TestSingleActiveFlowInvariant(t *testing.T) {
	state := NewState("sender")

	for i := 0; i < 5; i++ {
		state.StartFlow("intent", nil)
	}
	state.CompleteFlow()

	assert.Nil(t, state.ActiveFlow)
	require.Len(t, state.FlowHistory, 5)

	for i, archived := range state.FlowHistory[:4] {
		assert.Equal(t, StatusAbandoned, archived.Status, "flow %d", i)
	}
	assert.Equal(t, StatusCompleted, state.FlowHistory[4].Status)
}

func TestAddResolvedParamRemovesFromPending(t *testing.T) {
	state := NewState("sender")
	state.StartFlow("tax_payment", []string{"plate", "renavam"})

	state.ActiveFlow.AddResolvedParam("plate", "ABC1234")

	assert.Equal(t, "ABC1234", state.ActiveFlow.ResolvedParams["plate"])
	assert.Equal(t, []string{"renavam"}, state.ActiveFlow.PendingParams)

	state.ActiveFlow.AddResolvedParam("renavam", "12345678901")
	assert.Empty(t, state.ActiveFlow.PendingParams)
}

func TestContinueFlowUpdatesStepAndTimestamp(t *testing.T) {
	state := NewState("sender")
	state.StartFlow("tax_payment", nil)

	before := state.ActiveFlow.LastUpdated
	time.Sleep(time.Millisecond)

	updated := state.ContinueFlow(FlowUpdate{CurrentStep: "awaiting_plate"})

	require.NotNil(t, updated)
	assert.Equal(t, "awaiting_plate", updated.CurrentStep)
	assert.True(t, updated.LastUpdated.After(before))
}

func TestContinueFlowWithoutActiveFlow(t *testing.T) {
	state := NewState("sender")

	assert.Nil(t, state.ContinueFlow(FlowUpdate{CurrentStep: "anything"}))
}

func TestExpiredFlowIsArchivedOnContinue(t *testing.T) {
	state := NewState("sender")
	state.StartFlow("tax_payment", nil)

	state.ActiveFlow.TTLSeconds = 1
	state.ActiveFlow.LastUpdated = time.Now().UTC().Add(-2 * time.Second)

	assert.True(t, state.ActiveFlow.IsExpired())

	result := state.ContinueFlow(FlowUpdate{CurrentStep: "next"})

	assert.Nil(t, result)
	assert.Nil(t, state.ActiveFlow)
	require.Len(t, state.FlowHistory, 1)
	assert.Equal(t, StatusAbandoned, state.FlowHistory[0].Status)
}

func TestCompleteFlowWithoutActiveFlowIsNoop(t *testing.T) {
	state := NewState("sender")
	state.CompleteFlow()

	assert.Nil(t, state.ActiveFlow)
	assert.Empty(t, state.FlowHistory)
}

func TestFlowContext(t *testing.T) {
	state := NewState("sender")
	assert.Equal(t, "Nenhum fluxo ativo no momento.", state.FlowContext())

	state.StartFlow("tax_payment", []string{"plate"})
	state.ActiveFlow.AddResolvedParam("renavam", "12345678901")

	context := state.FlowContext()
	assert.Contains(t, context, "tax_payment")
	assert.Contains(t, context, "renavam")
	assert.Contains(t, context, "plate")
}

func TestRecentMessagesWindow(t *testing.T) {
	state := NewState("sender")

	for i := 0; i < 30; i++ {
		state.AddMessage(RoleUser, "msg")
	}

	assert.Len(t, state.RecentMessages(20), 20)
	assert.Len(t, state.RecentMessages(0), 30)
	assert.Len(t, state.Messages, 30)
}

func TestRecentDecisionsWindow(t *testing.T) {
	state := NewState("sender")

	for i := 0; i < 8; i++ {
		state.AddDecision(DecisionRecord{Decision: "reply"})
	}

	assert.Len(t, state.RecentDecisions(5), 5)
	assert.Len(t, state.Decisions, 8)
}

func TestResolvedParamLookup(t *testing.T) {
	state := NewState("sender")

	assert.False(t, state.HasResolvedParam("plate"))

	state.StartFlow("tax_payment", nil)
	state.ActiveFlow.AddResolvedParam("plate", "ABC1234")

	assert.True(t, state.HasResolvedParam("plate"))

	value, ok := state.ResolvedParam("plate")
	require.True(t, ok)
	assert.Equal(t, "ABC1234", value)

	_, ok = state.ResolvedParam("renavam")
	assert.False(t, ok)
}
