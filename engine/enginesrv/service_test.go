package enginesrv

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

type memWorkflowRepo struct {
	byID map[kernel.WorkflowID]engine.Workflow
}

func newMemWorkflowRepo() *memWorkflowRepo {
	return &memWorkflowRepo{byID: make(map[kernel.WorkflowID]engine.Workflow)}
}

func (r *memWorkflowRepo) Save(ctx context.Context, wf engine.Workflow) error {
	r.byID[wf.ID] = wf
	return nil
}
func (r *memWorkflowRepo) FindByID(ctx context.Context, id kernel.WorkflowID) (*engine.Workflow, error) {
	if wf, ok := r.byID[id]; ok {
		return &wf, nil
	}
	return nil, engine.ErrWorkflowNotFound()
}
func (r *memWorkflowRepo) FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*engine.Workflow, error) {
	return nil, nil
}
func (r *memWorkflowRepo) Delete(ctx context.Context, id kernel.WorkflowID, tenantID kernel.TenantID) error {
	delete(r.byID, id)
	return nil
}
func (r *memWorkflowRepo) List(ctx context.Context, req engine.WorkflowListRequest) (engine.WorkflowListResponse, error) {
	return engine.WorkflowListResponse{}, nil
}

type memSessionRepo struct {
	byID map[kernel.SessionID]engine.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: make(map[kernel.SessionID]engine.Session)}
}

func (r *memSessionRepo) Save(ctx context.Context, session engine.Session) error {
	r.byID[session.ID] = session
	return nil
}
func (r *memSessionRepo) FindByID(ctx context.Context, id kernel.SessionID) (*engine.Session, error) {
	if s, ok := r.byID[id]; ok {
		return &s, nil
	}
	return nil, engine.ErrSessionNotFound()
}
func (r *memSessionRepo) FindActiveByUser(ctx context.Context, tenantID kernel.TenantID, userID kernel.UserID) (*engine.Session, error) {
	return nil, engine.ErrSessionNotFound()
}
func (r *memSessionRepo) FindIdleSince(ctx context.Context, cutoff time.Time) ([]*engine.Session, error) {
	return nil, nil
}
func (r *memSessionRepo) List(ctx context.Context, req engine.SessionListRequest) (engine.SessionListResponse, error) {
	return engine.SessionListResponse{}, nil
}

type memMessageRepo struct {
	bySession map[kernel.SessionID][]*engine.MessageRecord
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{bySession: make(map[kernel.SessionID][]*engine.MessageRecord)}
}

func (r *memMessageRepo) Save(ctx context.Context, rec engine.MessageRecord) error {
	r.bySession[rec.SessionID] = append(r.bySession[rec.SessionID], &rec)
	return nil
}
func (r *memMessageRepo) FindBySession(ctx context.Context, sessionID kernel.SessionID) ([]*engine.MessageRecord, error) {
	return r.bySession[sessionID], nil
}

func newService() (*WorkflowService, *memWorkflowRepo, *memSessionRepo, *memMessageRepo) {
	workflows := newMemWorkflowRepo()
	sessions := newMemSessionRepo()
	messages := newMemMessageRepo()
	return NewWorkflowService(workflows, sessions, messages), workflows, sessions, messages
}

// ============================================================================
// Tests
// ============================================================================

func TestCreateWorkflowCleanDefinition(t *testing.T) {
	svc, _, _, _ := newService()

	workflow, report, err := svc.CreateWorkflow(context.Background(), engine.CreateWorkflowRequest{
		TenantID:    kernel.NewTenantID("tenant-1"),
		Name:        "onboarding",
		StartNodeID: "start",
		Nodes: []engine.Node{
			{ID: "start", Type: engine.NodeTypeStart, NextNodeID: "end"},
			{ID: "end", Type: engine.NodeTypeEnd},
		},
	})
	require.NoError(t, err)

	assert.False(t, workflow.ID.IsEmpty())
	assert.True(t, workflow.IsActive)
	assert.Nil(t, report, "clean definition yields no validation report")
}

func TestCreateWorkflowReportsBrokenRoutes(t *testing.T) {
	svc, workflows, _, _ := newService()

	workflow, report, err := svc.CreateWorkflow(context.Background(), engine.CreateWorkflowRequest{
		TenantID: kernel.NewTenantID("tenant-1"),
		Name:     "broken",
		Nodes: []engine.Node{
			{ID: "start", Type: engine.NodeTypeStart, NextNodeID: "ghost"},
		},
	})
	require.NoError(t, err, "broken routes report, they do not block saving")

	require.NotNil(t, report)
	assert.Contains(t, report.BrokenRoutes, "start.nextNodeId -> ghost")

	// el workflow quedó guardado de todos modos
	_, ok := workflows.byID[workflow.ID]
	assert.True(t, ok)
}

func TestCreateWorkflowReportsDuplicateNodes(t *testing.T) {
	svc, _, _, _ := newService()

	_, report, err := svc.CreateWorkflow(context.Background(), engine.CreateWorkflowRequest{
		TenantID: kernel.NewTenantID("tenant-1"),
		Name:     "dupes",
		Nodes: []engine.Node{
			{ID: "a", Type: engine.NodeTypeMessage},
			{ID: "a", Type: engine.NodeTypeMessage},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Contains(t, report.DuplicateNodes, "a")
}

func TestCreateWorkflowRejectsEmptyDefinition(t *testing.T) {
	svc, _, _, _ := newService()

	_, _, err := svc.CreateWorkflow(context.Background(), engine.CreateWorkflowRequest{
		TenantID: kernel.NewTenantID("tenant-1"),
		Name:     "empty",
	})
	assert.Error(t, err)
}

func TestGetWorkflowEnforcesTenant(t *testing.T) {
	svc, _, _, _ := newService()

	workflow, _, err := svc.CreateWorkflow(context.Background(), engine.CreateWorkflowRequest{
		TenantID: kernel.NewTenantID("tenant-1"),
		Name:     "onboarding",
		Nodes:    []engine.Node{{ID: "start", Type: engine.NodeTypeStart}},
	})
	require.NoError(t, err)

	_, err = svc.GetWorkflow(context.Background(), workflow.ID, kernel.NewTenantID("tenant-2"))
	assert.Error(t, err, "cross-tenant reads look like not-found")

	got, err := svc.GetWorkflow(context.Background(), workflow.ID, workflow.TenantID)
	require.NoError(t, err)
	assert.Equal(t, workflow.ID, got.ID)
}

func TestUpdateWorkflowAppliesPartialChanges(t *testing.T) {
	svc, _, _, _ := newService()

	workflow, _, err := svc.CreateWorkflow(context.Background(), engine.CreateWorkflowRequest{
		TenantID: kernel.NewTenantID("tenant-1"),
		Name:     "onboarding",
		Nodes:    []engine.Node{{ID: "start", Type: engine.NodeTypeStart}},
	})
	require.NoError(t, err)

	newName := "onboarding v2"
	inactive := false
	updated, _, err := svc.UpdateWorkflow(context.Background(), workflow.ID, workflow.TenantID, engine.UpdateWorkflowRequest{
		Name:     &newName,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, "onboarding v2", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, workflow.Nodes, updated.Nodes, "untouched fields survive updates")
}

func TestDeleteWorkflow(t *testing.T) {
	svc, workflows, _, _ := newService()

	workflow, _, err := svc.CreateWorkflow(context.Background(), engine.CreateWorkflowRequest{
		TenantID: kernel.NewTenantID("tenant-1"),
		Name:     "to-delete",
		Nodes:    []engine.Node{{ID: "start", Type: engine.NodeTypeStart}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWorkflow(context.Background(), workflow.ID, workflow.TenantID))
	_, ok := workflows.byID[workflow.ID]
	assert.False(t, ok)

	// borrar algo inexistente es un not-found, no un silencio
	assert.Error(t, svc.DeleteWorkflow(context.Background(), workflow.ID, workflow.TenantID))
}

func TestGetSessionEnforcesTenant(t *testing.T) {
	svc, _, sessions, _ := newService()

	session := engine.Session{
		ID:         kernel.NewSessionID("s1"),
		TenantID:   kernel.NewTenantID("tenant-1"),
		UserID:     kernel.NewUserID("u1"),
		WorkflowID: kernel.NewWorkflowID("wf-1"),
	}
	require.NoError(t, sessions.Save(context.Background(), session))

	_, err := svc.GetSession(context.Background(), session.ID, kernel.NewTenantID("tenant-2"))
	assert.Error(t, err)

	got, err := svc.GetSession(context.Background(), session.ID, session.TenantID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestGetSessionMessages(t *testing.T) {
	svc, _, sessions, messages := newService()

	session := engine.Session{
		ID:         kernel.NewSessionID("s1"),
		TenantID:   kernel.NewTenantID("tenant-1"),
		UserID:     kernel.NewUserID("u1"),
		WorkflowID: kernel.NewWorkflowID("wf-1"),
	}
	require.NoError(t, sessions.Save(context.Background(), session))
	require.NoError(t, messages.Save(context.Background(), engine.MessageRecord{
		ID:        kernel.NewMessageID("m1"),
		SessionID: session.ID,
		TenantID:  session.TenantID,
		Direction: engine.MessageDirectionOutbound,
		Body:      "hello",
	}))

	records, err := svc.GetSessionMessages(context.Background(), session.ID, session.TenantID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "hello", records[0].Body)
}
