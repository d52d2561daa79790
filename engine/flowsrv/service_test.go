package flowsrv

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeWorkflowRepo struct {
	workflow *engine.Workflow
}

func (r *fakeWorkflowRepo) Save(ctx context.Context, wf engine.Workflow) error { return nil }
func (r *fakeWorkflowRepo) FindByID(ctx context.Context, id kernel.WorkflowID) (*engine.Workflow, error) {
	if r.workflow == nil || r.workflow.ID != id {
		return nil, engine.ErrWorkflowNotFound()
	}
	return r.workflow, nil
}
func (r *fakeWorkflowRepo) FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*engine.Workflow, error) {
	return nil, nil
}
func (r *fakeWorkflowRepo) Delete(ctx context.Context, id kernel.WorkflowID, tenantID kernel.TenantID) error {
	return nil
}
func (r *fakeWorkflowRepo) List(ctx context.Context, req engine.WorkflowListRequest) (engine.WorkflowListResponse, error) {
	return engine.WorkflowListResponse{}, nil
}

type fakeSessionRepo struct {
	active *engine.Session
	byID   map[kernel.SessionID]*engine.Session
	saves  int
}

func (r *fakeSessionRepo) Save(ctx context.Context, session engine.Session) error {
	if r.byID == nil {
		r.byID = make(map[kernel.SessionID]*engine.Session)
	}
	copied := session
	r.byID[session.ID] = &copied
	r.saves++
	return nil
}
func (r *fakeSessionRepo) FindByID(ctx context.Context, id kernel.SessionID) (*engine.Session, error) {
	if s, ok := r.byID[id]; ok {
		return s, nil
	}
	return nil, engine.ErrSessionNotFound()
}
func (r *fakeSessionRepo) FindActiveByUser(ctx context.Context, tenantID kernel.TenantID, userID kernel.UserID) (*engine.Session, error) {
	if r.active != nil && r.active.UserID == userID {
		return r.active, nil
	}
	return nil, engine.ErrSessionNotFound()
}
func (r *fakeSessionRepo) FindIdleSince(ctx context.Context, cutoff time.Time) ([]*engine.Session, error) {
	return nil, nil
}
func (r *fakeSessionRepo) List(ctx context.Context, req engine.SessionListRequest) (engine.SessionListResponse, error) {
	return engine.SessionListResponse{}, nil
}

// fakeInterpreter registra las invocaciones sin caminar ningún grafo
type fakeInterpreter struct {
	executed []string
	resumed  []engine.Input
}

func (i *fakeInterpreter) Execute(ctx context.Context, session *engine.Session, nodeID string) bool {
	i.executed = append(i.executed, nodeID)
	return true
}

func (i *fakeInterpreter) Resume(ctx context.Context, session *engine.Session, in engine.Input) error {
	i.resumed = append(i.resumed, in)
	return nil
}

// ============================================================================
// Tests
// ============================================================================

func activeWorkflow() *engine.Workflow {
	return &engine.Workflow{
		ID:          kernel.NewWorkflowID("wf-1"),
		TenantID:    kernel.NewTenantID("tenant-1"),
		Name:        "onboarding",
		StartNodeID: "start",
		IsActive:    true,
		Nodes: []engine.Node{
			{ID: "start", Type: engine.NodeTypeStart, NextNodeID: "end"},
			{ID: "end", Type: engine.NodeTypeEnd},
		},
	}
}

func TestCreateAndStartRunsFirstWalk(t *testing.T) {
	wf := activeWorkflow()
	sessions := &fakeSessionRepo{}
	interp := &fakeInterpreter{}
	svc := NewFlowService(&fakeWorkflowRepo{workflow: wf}, sessions, interp)

	session, err := svc.CreateAndStart(context.Background(), engine.CreateSessionRequest{
		TenantID:       wf.TenantID,
		UserID:         kernel.NewUserID("u1"),
		WorkflowID:     wf.ID,
		InitialContext: map[string]any{"source": "ad_campaign"},
	})
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.False(t, session.ID.IsEmpty())
	assert.Equal(t, "start", session.CurrentNodeID)
	assert.Equal(t, engine.SessionStatusActive, session.Status)
	assert.Equal(t, "ad_campaign", session.Data["source"])

	require.Equal(t, []string{"start"}, interp.executed)
	assert.Greater(t, sessions.saves, 0, "session must be persisted before the walk")
}

func TestCreateAndStartUnknownWorkflow(t *testing.T) {
	svc := NewFlowService(&fakeWorkflowRepo{}, &fakeSessionRepo{}, &fakeInterpreter{})

	_, err := svc.CreateAndStart(context.Background(), engine.CreateSessionRequest{
		WorkflowID: kernel.NewWorkflowID("nope"),
	})
	assert.Error(t, err)
}

func TestCreateAndStartInactiveWorkflow(t *testing.T) {
	wf := activeWorkflow()
	wf.IsActive = false
	interp := &fakeInterpreter{}
	svc := NewFlowService(&fakeWorkflowRepo{workflow: wf}, &fakeSessionRepo{}, interp)

	_, err := svc.CreateAndStart(context.Background(), engine.CreateSessionRequest{
		TenantID:   wf.TenantID,
		UserID:     kernel.NewUserID("u1"),
		WorkflowID: wf.ID,
	})
	require.Error(t, err)
	assert.Empty(t, interp.executed)
}

func TestExecuteUnknownSession(t *testing.T) {
	svc := NewFlowService(&fakeWorkflowRepo{}, &fakeSessionRepo{}, &fakeInterpreter{})

	_, err := svc.Execute(context.Background(), kernel.NewSessionID("nope"), "start")
	assert.Error(t, err)
}

func TestResumeDeliversInput(t *testing.T) {
	sessions := &fakeSessionRepo{}
	interp := &fakeInterpreter{}
	svc := NewFlowService(&fakeWorkflowRepo{workflow: activeWorkflow()}, sessions, interp)

	session := engine.Session{
		ID:         kernel.NewSessionID("s1"),
		TenantID:   kernel.NewTenantID("tenant-1"),
		UserID:     kernel.NewUserID("u1"),
		WorkflowID: kernel.NewWorkflowID("wf-1"),
		Status:     engine.SessionStatusPaused,
	}
	require.NoError(t, sessions.Save(context.Background(), session))

	err := svc.Resume(context.Background(), engine.ResumeRequest{
		SessionID:  session.ID,
		InputValue: "ABCDE1234F",
	})
	require.NoError(t, err)
	require.Len(t, interp.resumed, 1)
	assert.Equal(t, "ABCDE1234F", interp.resumed[0].Value)
	assert.Equal(t, engine.InputKindText, interp.resumed[0].Kind, "kind defaults to text")
}

func TestHandleInboundResumesActiveSession(t *testing.T) {
	wf := activeWorkflow()
	active := &engine.Session{
		ID:         kernel.NewSessionID("s1"),
		TenantID:   wf.TenantID,
		UserID:     kernel.NewUserID("u1"),
		WorkflowID: wf.ID,
		Status:     engine.SessionStatusPaused,
	}
	sessions := &fakeSessionRepo{active: active}
	interp := &fakeInterpreter{}
	svc := NewFlowService(&fakeWorkflowRepo{workflow: wf}, sessions, interp)

	err := svc.HandleInbound(context.Background(), wf.TenantID, active.UserID, wf.ID, engine.Input{
		Value:             "hello",
		ExternalMessageID: "wamid.1",
		Kind:              engine.InputKindText,
	})
	require.NoError(t, err)

	require.Len(t, interp.resumed, 1)
	assert.Equal(t, "hello", interp.resumed[0].Value)
	assert.Empty(t, interp.executed, "an active session is resumed, never restarted")
}

func TestHandleInboundCreatesSessionWithDefaultWorkflow(t *testing.T) {
	wf := activeWorkflow()
	sessions := &fakeSessionRepo{}
	interp := &fakeInterpreter{}
	svc := NewFlowService(&fakeWorkflowRepo{workflow: wf}, sessions, interp)

	err := svc.HandleInbound(context.Background(), wf.TenantID, kernel.NewUserID("u2"), wf.ID, engine.Input{
		Value: "hi", ExternalMessageID: "wamid.2", Kind: engine.InputKindText,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"start"}, interp.executed)
	assert.Empty(t, interp.resumed)
}

func TestHandleInboundWithoutDefaultWorkflowDropsMessage(t *testing.T) {
	sessions := &fakeSessionRepo{}
	interp := &fakeInterpreter{}
	svc := NewFlowService(&fakeWorkflowRepo{}, sessions, interp)

	err := svc.HandleInbound(context.Background(), kernel.NewTenantID("tenant-1"), kernel.NewUserID("u3"), "", engine.Input{
		Value: "hi", ExternalMessageID: "wamid.3", Kind: engine.InputKindText,
	})
	require.NoError(t, err)

	assert.Empty(t, interp.executed)
	assert.Empty(t, interp.resumed)
}

func TestHandleInboundCarriesMediaMetadata(t *testing.T) {
	wf := activeWorkflow()
	active := &engine.Session{
		ID:         kernel.NewSessionID("s1"),
		TenantID:   wf.TenantID,
		UserID:     kernel.NewUserID("u1"),
		WorkflowID: wf.ID,
		Status:     engine.SessionStatusPaused,
	}
	sessions := &fakeSessionRepo{active: active}
	interp := &fakeInterpreter{}
	svc := NewFlowService(&fakeWorkflowRepo{workflow: wf}, sessions, interp)

	err := svc.HandleInbound(context.Background(), wf.TenantID, active.UserID, wf.ID, engine.Input{
		Value:             "my pan card",
		ExternalMessageID: "wamid.img",
		Kind:              engine.InputKindMedia,
		MediaID:           "media-123",
		MimeType:          "image/jpeg",
	})
	require.NoError(t, err)

	require.Len(t, interp.resumed, 1)
	assert.Equal(t, engine.InputKindMedia, interp.resumed[0].Kind)
	assert.Equal(t, "media-123", interp.resumed[0].MediaID)
	assert.Equal(t, "image/jpeg", interp.resumed[0].MimeType)
}
