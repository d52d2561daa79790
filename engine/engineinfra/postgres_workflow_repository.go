package engineinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/craftable/logx"
	"github.com/jmoiron/sqlx"
)

type PostgresWorkflowRepository struct {
	db *sqlx.DB
}

var _ engine.WorkflowRepository = (*PostgresWorkflowRepository)(nil)

func NewPostgresWorkflowRepository(db *sqlx.DB) *PostgresWorkflowRepository {
	return &PostgresWorkflowRepository{db: db}
}

// dbWorkflow is an intermediate struct for database operations
type dbWorkflow struct {
	ID          string          `db:"id"`
	TenantID    string          `db:"tenant_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	StartNodeID string          `db:"start_node_id"`
	Nodes       json.RawMessage `db:"nodes"`
	IsActive    bool            `db:"is_active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// toDBWorkflow converts domain Workflow to dbWorkflow
func toDBWorkflow(wf engine.Workflow) (*dbWorkflow, error) {
	nodesJSON := []byte("[]")
	if len(wf.Nodes) > 0 {
		var err error
		nodesJSON, err = json.Marshal(wf.Nodes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal nodes: %w", err)
		}
	}

	return &dbWorkflow{
		ID:          wf.ID.String(),
		TenantID:    wf.TenantID.String(),
		Name:        wf.Name,
		Description: wf.Description,
		StartNodeID: wf.StartNodeID,
		Nodes:       nodesJSON,
		IsActive:    wf.IsActive,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}, nil
}

// toDomainWorkflow converts dbWorkflow to domain Workflow
func toDomainWorkflow(dbWf *dbWorkflow) (*engine.Workflow, error) {
	var nodes []engine.Node
	if len(dbWf.Nodes) > 0 && string(dbWf.Nodes) != "null" {
		if err := json.Unmarshal(dbWf.Nodes, &nodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
		}
	}

	return &engine.Workflow{
		ID:          kernel.WorkflowID(dbWf.ID),
		TenantID:    kernel.TenantID(dbWf.TenantID),
		Name:        dbWf.Name,
		Description: dbWf.Description,
		StartNodeID: dbWf.StartNodeID,
		Nodes:       nodes,
		IsActive:    dbWf.IsActive,
		CreatedAt:   dbWf.CreatedAt,
		UpdatedAt:   dbWf.UpdatedAt,
	}, nil
}

func (r *PostgresWorkflowRepository) Save(ctx context.Context, wf engine.Workflow) error {
	dbWf, err := toDBWorkflow(wf)
	if err != nil {
		return errx.Wrap(err, "failed to convert workflow", errx.TypeInternal).
			WithDetail("workflow_id", wf.ID.String())
	}

	query := `
		INSERT INTO workflows (
			id, tenant_id, name, description, start_node_id, nodes,
			is_active, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :name, :description, :start_node_id, :nodes,
			:is_active, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			start_node_id = EXCLUDED.start_node_id,
			nodes = EXCLUDED.nodes,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, dbWf); err != nil {
		return errx.Wrap(err, "failed to save workflow", errx.TypeInternal).
			WithDetail("workflow_id", wf.ID.String())
	}

	return nil
}

func (r *PostgresWorkflowRepository) FindByID(ctx context.Context, id kernel.WorkflowID) (*engine.Workflow, error) {
	query := `
		SELECT
			id, tenant_id, name, description, start_node_id, nodes,
			is_active, created_at, updated_at
		FROM workflows
		WHERE id = $1`

	var dbWf dbWorkflow
	err := r.db.GetContext(ctx, &dbWf, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrWorkflowNotFound().WithDetail("workflow_id", id.String())
		}
		logx.Error("Error fetching workflow by ID: %v", err)
		return nil, errx.Wrap(err, "failed to find workflow by id", errx.TypeInternal).
			WithDetail("workflow_id", id.String())
	}

	return toDomainWorkflow(&dbWf)
}

func (r *PostgresWorkflowRepository) FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*engine.Workflow, error) {
	query := `
		SELECT
			id, tenant_id, name, description, start_node_id, nodes,
			is_active, created_at, updated_at
		FROM workflows
		WHERE tenant_id = $1
		ORDER BY name ASC`

	var dbWorkflows []dbWorkflow
	if err := r.db.SelectContext(ctx, &dbWorkflows, query, tenantID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to find workflows by tenant", errx.TypeInternal).
			WithDetail("tenant_id", tenantID.String())
	}

	workflows := make([]*engine.Workflow, 0, len(dbWorkflows))
	for i := range dbWorkflows {
		wf, err := toDomainWorkflow(&dbWorkflows[i])
		if err != nil {
			return nil, errx.Wrap(err, "failed to convert workflow", errx.TypeInternal)
		}
		workflows = append(workflows, wf)
	}

	return workflows, nil
}

func (r *PostgresWorkflowRepository) Delete(ctx context.Context, id kernel.WorkflowID, tenantID kernel.TenantID) error {
	query := `DELETE FROM workflows WHERE id = $1 AND tenant_id = $2`

	result, err := r.db.ExecContext(ctx, query, id.String(), tenantID.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete workflow", errx.TypeInternal).
			WithDetail("workflow_id", id.String())
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return engine.ErrWorkflowNotFound().WithDetail("workflow_id", id.String())
	}

	return nil
}

func (r *PostgresWorkflowRepository) List(ctx context.Context, req engine.WorkflowListRequest) (engine.WorkflowListResponse, error) {
	var conditions []string
	var args []any
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argPos))
	args = append(args, req.TenantID.String())
	argPos++

	if req.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *req.IsActive)
		argPos++
	}

	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argPos, argPos+1))
		searchPattern := "%" + req.Search + "%"
		args = append(args, searchPattern, searchPattern)
		argPos += 2
	}

	whereClause := strings.Join(conditions, " AND ")

	// Count query
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM workflows WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return engine.WorkflowListResponse{}, errx.Wrap(err, "failed to count workflows", errx.TypeInternal)
	}

	// Data query
	dataQuery := fmt.Sprintf(`
		SELECT
			id, tenant_id, name, description, start_node_id, nodes,
			is_active, created_at, updated_at
		FROM workflows
		WHERE %s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d`,
		whereClause, argPos, argPos+1)

	args = append(args, req.PageSize, req.GetOffset())

	var dbWorkflows []dbWorkflow
	if err := r.db.SelectContext(ctx, &dbWorkflows, dataQuery, args...); err != nil {
		return engine.WorkflowListResponse{}, errx.Wrap(err, "failed to list workflows", errx.TypeInternal)
	}

	workflows := make([]engine.Workflow, 0, len(dbWorkflows))
	for i := range dbWorkflows {
		wf, err := toDomainWorkflow(&dbWorkflows[i])
		if err != nil {
			return engine.WorkflowListResponse{}, errx.Wrap(err, "failed to convert workflow", errx.TypeInternal)
		}
		workflows = append(workflows, *wf)
	}

	return paginated(workflows, req.Page, req.PageSize, total), nil
}
