package engineinfra

import (
	"context"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/Abraxas-365/craftable/errx"
	"github.com/jmoiron/sqlx"
)

// PostgresMessageRepository registro de auditoría de mensajes por sesión
type PostgresMessageRepository struct {
	db *sqlx.DB
}

var _ engine.MessageRepository = (*PostgresMessageRepository)(nil)

func NewPostgresMessageRepository(db *sqlx.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Save(ctx context.Context, rec engine.MessageRecord) error {
	query := `
		INSERT INTO session_messages (
			id, session_id, tenant_id, direction, node_id, body,
			provider_id, media_id, mime_type, created_at
		) VALUES (
			:id, :session_id, :tenant_id, :direction, :node_id, :body,
			:provider_id, :media_id, :mime_type, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return errx.Wrap(err, "failed to save message record", errx.TypeInternal).
			WithDetail("session_id", rec.SessionID.String())
	}

	return nil
}

func (r *PostgresMessageRepository) FindBySession(ctx context.Context, sessionID kernel.SessionID) ([]*engine.MessageRecord, error) {
	query := `
		SELECT
			id, session_id, tenant_id, direction, node_id, body,
			provider_id, media_id, mime_type, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY created_at ASC`

	var records []*engine.MessageRecord
	if err := r.db.SelectContext(ctx, &records, query, sessionID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to find messages by session", errx.TypeInternal).
			WithDetail("session_id", sessionID.String())
	}

	return records, nil
}
