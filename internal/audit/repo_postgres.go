package audit

import (
	"context"
	"database/sql"
	"fmt"

	"referral-platform/pkg/utils"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS audit_events (
  id              TEXT PRIMARY KEY,
  type            TEXT NOT NULL,
  actor_user_id   TEXT,
  actor_role      TEXT,
  subject_user_id TEXT,
  ip_address      TEXT,
  message         TEXT,
  metadata        TEXT,
  created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject_user_id, created_at);
`

// PostgresRepo appends events to the audit_events table. It only ever INSERTs.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	err := utils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, schemaSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_user_id, actor_role, subject_user_id, ip_address, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		nullIfEmpty(e.ActorUserID),
		nullIfEmpty(e.ActorRole),
		nullIfEmpty(e.SubjectUserID),
		nullIfEmpty(e.IPAddress),
		nullIfEmpty(e.Message),
		nullIfEmpty(e.Metadata),
		e.CreatedAt,
	)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
