package engine

import (
	"testing"

	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowEntryNodeID(t *testing.T) {
	w := Workflow{
		StartNodeID: "start",
		Nodes: []Node{
			{ID: "greet", Type: NodeTypeMessage},
			{ID: "start", Type: NodeTypeStart},
		},
	}
	assert.Equal(t, "start", w.EntryNodeID())

	// sin startNodeId explícito, entra por el primer nodo
	w.StartNodeID = ""
	assert.Equal(t, "greet", w.EntryNodeID())

	empty := Workflow{}
	assert.Equal(t, "", empty.EntryNodeID())
}

func TestWorkflowGetNodeByID(t *testing.T) {
	w := Workflow{Nodes: []Node{{ID: "a"}, {ID: "b"}}}

	require.NotNil(t, w.GetNodeByID("b"))
	assert.Equal(t, "b", w.GetNodeByID("b").ID)
	assert.Nil(t, w.GetNodeByID("missing"))
}

func TestWorkflowValidateRouting(t *testing.T) {
	w := Workflow{
		StartNodeID: "ghost",
		Nodes: []Node{
			{ID: "a", NextNodeID: "b"},
			{ID: "b", Type: NodeTypeCondition, TrueNodeID: "a", FalseNodeID: "nowhere"},
		},
	}

	broken := w.ValidateRouting()
	assert.Contains(t, broken, "startNodeId -> ghost")
	assert.Contains(t, broken, "b.falseNodeId -> nowhere")
	assert.Len(t, broken, 2)
}

func TestWorkflowValidateRoutingCleanDefinition(t *testing.T) {
	w := Workflow{
		StartNodeID: "a",
		Nodes: []Node{
			{ID: "a", NextNodeID: "b"},
			{ID: "b"},
		},
	}
	assert.Empty(t, w.ValidateRouting())
}

func TestNodeResolvableChoices(t *testing.T) {
	n := Node{
		Type: NodeTypeInteractive,
		Buttons: []Choice{
			{Value: "yes", Text: "Yes"},
			{}, // entrada vacía se descarta
			{ID: "no", Title: "No"},
		},
	}

	choices := n.ResolvableChoices()
	require.Len(t, choices, 2)
	assert.Equal(t, "Yes", choices[0].DisplayText())
	assert.Equal(t, "yes", choices[0].ReplyValue())
	assert.Equal(t, "No", choices[1].DisplayText())
	assert.Equal(t, "no", choices[1].ReplyValue())
}

func TestNodeResolvableChoicesFallsBackToOptions(t *testing.T) {
	n := Node{
		Type:    NodeTypeInteractive,
		Options: []Choice{{Value: "1", Text: "One"}},
	}
	require.Len(t, n.ResolvableChoices(), 1)

	// buttons tiene prioridad cuando ambos existen
	n.Buttons = []Choice{{Value: "a", Text: "A"}}
	choices := n.ResolvableChoices()
	require.Len(t, choices, 1)
	assert.Equal(t, "a", choices[0].ReplyValue())
}

func TestNodeAwaitsInput(t *testing.T) {
	assert.True(t, (&Node{Type: NodeTypeInput}).AwaitsInput())
	assert.True(t, (&Node{Type: NodeTypeInteractive}).AwaitsInput())
	assert.False(t, (&Node{Type: NodeTypeMessage}).AwaitsInput())
	assert.False(t, (&Node{Type: NodeTypeCondition}).AwaitsInput())
}

func TestSessionMoveTo(t *testing.T) {
	s := &Session{CurrentNodeID: "start"}
	s.MoveTo("greet")

	assert.Equal(t, "start", s.PreviousNodeID)
	assert.Equal(t, "greet", s.CurrentNodeID)
	assert.Equal(t, []string{"greet"}, s.StepsCompleted)

	s.MoveTo("ask_name")
	assert.Equal(t, []string{"greet", "ask_name"}, s.StepsCompleted)
}

func TestSessionAwaitAndClearPendingInput(t *testing.T) {
	s := &Session{Status: SessionStatusActive}

	s.AwaitInput("pan_number", "validate_pan")
	assert.Equal(t, SessionStatusPaused, s.Status)
	assert.Equal(t, "pan_number", s.PendingVariableName)
	assert.Equal(t, "validate_pan", s.NextNodeIDAfterInput)

	s.ClearPendingInput()
	assert.Equal(t, SessionStatusActive, s.Status)
	assert.Empty(t, s.PendingVariableName)
	assert.Empty(t, s.NextNodeIDAfterInput)
}

func TestSessionTerminalStates(t *testing.T) {
	s := &Session{Status: SessionStatusActive}
	assert.False(t, s.IsTerminal())

	s.Complete()
	assert.True(t, s.IsTerminal())
	require.NotNil(t, s.CompletedAt)

	abandoned := &Session{Status: SessionStatusPaused}
	abandoned.Abandon()
	assert.True(t, abandoned.IsTerminal())
	assert.Equal(t, SessionStatusAbandoned, abandoned.Status)

	// transferida no es terminal: un agente humano puede devolverla
	transferred := &Session{Status: SessionStatusTransferred}
	assert.False(t, transferred.IsTerminal())
}

func TestSessionData(t *testing.T) {
	s := &Session{}
	s.SetData("name", "Priya")

	val, ok := s.GetData("name")
	require.True(t, ok)
	assert.Equal(t, "Priya", val)

	_, ok = s.GetData("missing")
	assert.False(t, ok)
}

func TestSessionIsValid(t *testing.T) {
	s := &Session{
		ID:         kernel.NewSessionID("s1"),
		UserID:     kernel.NewUserID("u1"),
		WorkflowID: kernel.NewWorkflowID("w1"),
	}
	assert.True(t, s.IsValid())
	assert.False(t, (&Session{}).IsValid())
}
