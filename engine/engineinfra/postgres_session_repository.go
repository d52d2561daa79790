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
	"github.com/jmoiron/sqlx"
)

type PostgresSessionRepository struct {
	db *sqlx.DB
}

var _ engine.SessionRepository = (*PostgresSessionRepository)(nil)

func NewPostgresSessionRepository(db *sqlx.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// dbSession is an intermediate struct for database operations
type dbSession struct {
	ID                   string          `db:"id"`
	TenantID             string          `db:"tenant_id"`
	UserID               string          `db:"user_id"`
	WorkflowID           string          `db:"workflow_id"`
	CurrentNodeID        string          `db:"current_node_id"`
	PreviousNodeID       string          `db:"previous_node_id"`
	Status               string          `db:"status"`
	Data                 json.RawMessage `db:"data"`
	PendingVariableName  string          `db:"pending_variable_name"`
	NextNodeIDAfterInput string          `db:"next_node_id_after_input"`
	StepsCompleted       json.RawMessage `db:"steps_completed"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
	CompletedAt          *time.Time      `db:"completed_at"`
}

// toDBSession converts domain Session to dbSession
func toDBSession(session engine.Session) (*dbSession, error) {
	dataJSON := []byte("{}")
	if len(session.Data) > 0 {
		var err error
		dataJSON, err = json.Marshal(session.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}
	}

	stepsJSON := []byte("[]")
	if len(session.StepsCompleted) > 0 {
		var err error
		stepsJSON, err = json.Marshal(session.StepsCompleted)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal steps: %w", err)
		}
	}

	return &dbSession{
		ID:                   session.ID.String(),
		TenantID:             session.TenantID.String(),
		UserID:               session.UserID.String(),
		WorkflowID:           session.WorkflowID.String(),
		CurrentNodeID:        session.CurrentNodeID,
		PreviousNodeID:       session.PreviousNodeID,
		Status:               string(session.Status),
		Data:                 dataJSON,
		PendingVariableName:  session.PendingVariableName,
		NextNodeIDAfterInput: session.NextNodeIDAfterInput,
		StepsCompleted:       stepsJSON,
		CreatedAt:            session.CreatedAt,
		UpdatedAt:            session.UpdatedAt,
		CompletedAt:          session.CompletedAt,
	}, nil
}

// toDomainSession converts dbSession to domain Session
func toDomainSession(dbSess *dbSession) (*engine.Session, error) {
	var data map[string]any
	if len(dbSess.Data) > 0 && string(dbSess.Data) != "null" {
		if err := json.Unmarshal(dbSess.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}

	var steps []string
	if len(dbSess.StepsCompleted) > 0 && string(dbSess.StepsCompleted) != "null" {
		if err := json.Unmarshal(dbSess.StepsCompleted, &steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}

	return &engine.Session{
		ID:                   kernel.SessionID(dbSess.ID),
		TenantID:             kernel.TenantID(dbSess.TenantID),
		UserID:               kernel.UserID(dbSess.UserID),
		WorkflowID:           kernel.WorkflowID(dbSess.WorkflowID),
		CurrentNodeID:        dbSess.CurrentNodeID,
		PreviousNodeID:       dbSess.PreviousNodeID,
		Status:               engine.SessionStatus(dbSess.Status),
		Data:                 data,
		PendingVariableName:  dbSess.PendingVariableName,
		NextNodeIDAfterInput: dbSess.NextNodeIDAfterInput,
		StepsCompleted:       steps,
		CreatedAt:            dbSess.CreatedAt,
		UpdatedAt:            dbSess.UpdatedAt,
		CompletedAt:          dbSess.CompletedAt,
	}, nil
}

func (r *PostgresSessionRepository) Save(ctx context.Context, session engine.Session) error {
	dbSess, err := toDBSession(session)
	if err != nil {
		return errx.Wrap(err, "failed to convert session", errx.TypeInternal).
			WithDetail("session_id", session.ID.String())
	}

	query := `
		INSERT INTO sessions (
			id, tenant_id, user_id, workflow_id, current_node_id,
			previous_node_id, status, data, pending_variable_name,
			next_node_id_after_input, steps_completed,
			created_at, updated_at, completed_at
		) VALUES (
			:id, :tenant_id, :user_id, :workflow_id, :current_node_id,
			:previous_node_id, :status, :data, :pending_variable_name,
			:next_node_id_after_input, :steps_completed,
			:created_at, :updated_at, :completed_at
		)
		ON CONFLICT (id) DO UPDATE SET
			current_node_id = EXCLUDED.current_node_id,
			previous_node_id = EXCLUDED.previous_node_id,
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			pending_variable_name = EXCLUDED.pending_variable_name,
			next_node_id_after_input = EXCLUDED.next_node_id_after_input,
			steps_completed = EXCLUDED.steps_completed,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at`

	if _, err := r.db.NamedExecContext(ctx, query, dbSess); err != nil {
		return errx.Wrap(err, "failed to save session", errx.TypeInternal).
			WithDetail("session_id", session.ID.String())
	}

	return nil
}

func (r *PostgresSessionRepository) FindByID(ctx context.Context, id kernel.SessionID) (*engine.Session, error) {
	query := `
		SELECT
			id, tenant_id, user_id, workflow_id, current_node_id,
			previous_node_id, status, data, pending_variable_name,
			next_node_id_after_input, steps_completed,
			created_at, updated_at, completed_at
		FROM sessions
		WHERE id = $1`

	var dbSess dbSession
	err := r.db.GetContext(ctx, &dbSess, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrSessionNotFound().WithDetail("session_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find session by id", errx.TypeInternal).
			WithDetail("session_id", id.String())
	}

	return toDomainSession(&dbSess)
}

// FindActiveByUser busca la sesión en curso de un usuario. Incluye las
// transferidas: mientras un humano atiende la conversación los mensajes
// entrantes van a esa sesión (solo auditoría), no a una sesión nueva
func (r *PostgresSessionRepository) FindActiveByUser(ctx context.Context, tenantID kernel.TenantID, userID kernel.UserID) (*engine.Session, error) {
	query := `
		SELECT
			id, tenant_id, user_id, workflow_id, current_node_id,
			previous_node_id, status, data, pending_variable_name,
			next_node_id_after_input, steps_completed,
			created_at, updated_at, completed_at
		FROM sessions
		WHERE tenant_id = $1 AND user_id = $2 AND status IN ($3, $4, $5)
		ORDER BY updated_at DESC
		LIMIT 1`

	var dbSess dbSession
	err := r.db.GetContext(ctx, &dbSess, query,
		tenantID.String(), userID.String(),
		string(engine.SessionStatusActive), string(engine.SessionStatusPaused),
		string(engine.SessionStatusTransferred))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, engine.ErrSessionNotFound().WithDetail("user_id", userID.String())
		}
		return nil, errx.Wrap(err, "failed to find active session", errx.TypeInternal).
			WithDetail("user_id", userID.String())
	}

	return toDomainSession(&dbSess)
}

// FindIdleSince retorna sesiones no terminales sin actividad desde cutoff
func (r *PostgresSessionRepository) FindIdleSince(ctx context.Context, cutoff time.Time) ([]*engine.Session, error) {
	query := `
		SELECT
			id, tenant_id, user_id, workflow_id, current_node_id,
			previous_node_id, status, data, pending_variable_name,
			next_node_id_after_input, steps_completed,
			created_at, updated_at, completed_at
		FROM sessions
		WHERE status IN ($1, $2) AND updated_at < $3`

	var dbSessions []dbSession
	err := r.db.SelectContext(ctx, &dbSessions, query,
		string(engine.SessionStatusActive), string(engine.SessionStatusPaused), cutoff)
	if err != nil {
		return nil, errx.Wrap(err, "failed to find idle sessions", errx.TypeInternal)
	}

	sessions := make([]*engine.Session, 0, len(dbSessions))
	for i := range dbSessions {
		sess, err := toDomainSession(&dbSessions[i])
		if err != nil {
			return nil, errx.Wrap(err, "failed to convert session", errx.TypeInternal)
		}
		sessions = append(sessions, sess)
	}

	return sessions, nil
}

func (r *PostgresSessionRepository) List(ctx context.Context, req engine.SessionListRequest) (engine.SessionListResponse, error) {
	var conditions []string
	var args []any
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argPos))
	args = append(args, req.TenantID.String())
	argPos++

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}

	if !req.UserID.IsEmpty() {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, req.UserID.String())
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sessions WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return engine.SessionListResponse{}, errx.Wrap(err, "failed to count sessions", errx.TypeInternal)
	}

	dataQuery := fmt.Sprintf(`
		SELECT
			id, tenant_id, user_id, workflow_id, current_node_id,
			previous_node_id, status, data, pending_variable_name,
			next_node_id_after_input, steps_completed,
			created_at, updated_at, completed_at
		FROM sessions
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argPos, argPos+1)

	args = append(args, req.PageSize, req.GetOffset())

	var dbSessions []dbSession
	if err := r.db.SelectContext(ctx, &dbSessions, dataQuery, args...); err != nil {
		return engine.SessionListResponse{}, errx.Wrap(err, "failed to list sessions", errx.TypeInternal)
	}

	sessions := make([]engine.Session, 0, len(dbSessions))
	for i := range dbSessions {
		sess, err := toDomainSession(&dbSessions[i])
		if err != nil {
			return engine.SessionListResponse{}, errx.Wrap(err, "failed to convert session", errx.TypeInternal)
		}
		sessions = append(sessions, *sess)
	}

	return paginated(sessions, req.Page, req.PageSize, total), nil
}
