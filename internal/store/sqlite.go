package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/session"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// Foreign keys are enabled through the DSN so every pooled connection
// enforces them.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withForeignKeys(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	brand_name TEXT NOT NULL DEFAULT '',
	step       TEXT NOT NULL,
	state      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS exports (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	brand_name TEXT NOT NULL DEFAULT '',
	document   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_step ON sessions(step);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
CREATE INDEX IF NOT EXISTS idx_exports_session_id ON exports(session_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSession(ctx context.Context, sess *session.Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal session")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, brand_name, step, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   brand_name = excluded.brand_name,
		   step = excluded.step,
		   state = excluded.state,
		   updated_at = excluded.updated_at`,
		sess.ID, sess.Identity.Name, sess.Step.String(), string(state), sess.CreatedAt.UTC(), sess.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save session %s", sess.ID)
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM sessions WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "session %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", id)
	}
	return decodeSession([]byte(state))
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]SessionSummary, error) {
	query := `SELECT id, brand_name, step, created_at, updated_at FROM sessions WHERE 1=1`
	var args []any

	if filter.Step.Valid() {
		query += ` AND step = ?`
		args = append(args, filter.Step.String())
	}
	if filter.Brand != "" {
		query += ` AND brand_name LIKE ?`
		args = append(args, "%"+filter.Brand+"%")
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close() //nolint:errcheck

	var out []SessionSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete session %s", id)
	}
	return checkRowsAffected(res, "session", id)
}

func (s *SQLiteStore) SaveExport(ctx context.Context, sessionID string, exp model.PipelineExport) (*ExportRecord, error) {
	doc, err := json.Marshal(exp)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal export")
	}
	rec := &ExportRecord{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		BrandName: exp.BrandProfile.BrandName,
		Document:  exp,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exports (id, session_id, brand_name, document, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.BrandName, string(doc), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert export for session %s", sessionID)
	}
	return rec, nil
}

func (s *SQLiteStore) ListExports(ctx context.Context, sessionID string) ([]ExportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, brand_name, document, created_at FROM exports
		 WHERE session_id = ? ORDER BY created_at DESC`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list exports")
	}
	defer rows.Close() //nolint:errcheck

	var out []ExportRecord
	for rows.Next() {
		var rec ExportRecord
		var doc string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.BrandName, &doc, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan export")
		}
		if err := json.Unmarshal([]byte(doc), &rec.Document); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal export")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list exports iterate")
}

// helpers

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSummary(row scannable) (*SessionSummary, error) {
	var sum SessionSummary
	var step string
	if err := row.Scan(&sum.ID, &sum.BrandName, &step, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "store: scan session")
	}
	st, err := session.ParseStep(step)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan session step")
	}
	sum.Step = st
	return &sum, nil
}
