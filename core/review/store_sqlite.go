package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/source"
	"github.com/authenticwalk/context-grounded-bible/core/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS review_items (
	id              TEXT PRIMARY KEY,
	token_id        TEXT NOT NULL,
	field_name      TEXT NOT NULL,
	version         INTEGER NOT NULL,
	supersedes      TEXT,
	status          TEXT NOT NULL,
	original_value  TEXT NOT NULL,
	corrected_value TEXT,
	confidence      REAL NOT NULL,
	reason          TEXT NOT NULL,
	notes           TEXT,
	reviewer_id     TEXT,
	reviewed_at     TEXT,
	created_at      TEXT NOT NULL,
	UNIQUE (token_id, field_name, version)
);
CREATE INDEX IF NOT EXISTS idx_review_items_status ON review_items (status);
CREATE INDEX IF NOT EXISTS idx_review_items_token ON review_items (token_id, field_name);
`

// SQLiteStore persists the ledger in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) a ledger database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger db")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply ledger schema")
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an existing database handle, applying the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "apply ledger schema")
	}
	return &SQLiteStore{db: db}, nil
}

const itemColumns = `id, token_id, field_name, version, supersedes, status,
	original_value, corrected_value, confidence, reason, notes,
	reviewer_id, reviewed_at, created_at`

func (s *SQLiteStore) Put(ctx context.Context, it *Item) error {
	orig, err := json.Marshal(it.OriginalValue)
	if err != nil {
		return errors.Wrap(err, "marshal original value")
	}
	corr, err := marshalNullableValue(it.CorrectedValue)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.TokenID, string(it.FieldName), it.Version,
		nullable(it.Supersedes), string(it.Status),
		string(orig), corr, it.Confidence, it.Reason,
		nullable(it.Notes), nullable(it.ReviewerID),
		nullableTime(it.ReviewedAt), it.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrap(err, "insert review item")
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM review_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("review item", id)
	}
	return it, err
}

func (s *SQLiteStore) Latest(ctx context.Context, tokenID string, field source.FieldName) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM review_items
		WHERE token_id = ? AND field_name = ?
		ORDER BY version DESC LIMIT 1`, tokenID, string(field))
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("review item", tokenID+"/"+string(field))
	}
	return it, err
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM review_items WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Reason != "" {
		query += ` AND reason = ?`
		args = append(args, f.Reason)
	}
	if f.TokenPrefix != "" {
		query += ` AND token_id LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(f.TokenPrefix)+"%")
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list review items")
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Update(ctx context.Context, it *Item, from Status) error {
	corr, err := marshalNullableValue(it.CorrectedValue)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_items
		SET status = ?, corrected_value = ?, notes = ?, reviewer_id = ?, reviewed_at = ?
		WHERE id = ? AND status = ?`,
		string(it.Status), corr, nullable(it.Notes), nullable(it.ReviewerID),
		nullableTime(it.ReviewedAt), it.ID, string(from))
	if err != nil {
		return errors.Wrap(err, "update review item")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update review item")
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM review_items WHERE id = ?`, it.ID).Scan(&exists); err == nil && exists == 0 {
			return errors.NewNotFound("review item", it.ID)
		}
		return &errors.VersionConflictError{ItemID: it.ID, Expected: string(from)}
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		ByStatus: make(map[Status]int),
		ByReason: make(map[string]int),
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, reason, COUNT(*) FROM review_items GROUP BY status, reason`)
	if err != nil {
		return nil, errors.Wrap(err, "ledger stats")
	}
	defer rows.Close()
	for rows.Next() {
		var status, reason string
		var n int
		if err := rows.Scan(&status, &reason, &n); err != nil {
			return nil, errors.Wrap(err, "ledger stats")
		}
		st.Total += n
		st.ByStatus[Status(status)] += n
		st.ByReason[reason] += n
	}
	return st, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	var field, status, orig, createdAt string
	var supersedes, corr, notes, reviewer, reviewedAt sql.NullString
	if err := row.Scan(&it.ID, &it.TokenID, &field, &it.Version, &supersedes,
		&status, &orig, &corr, &it.Confidence, &it.Reason, &notes,
		&reviewer, &reviewedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan review item")
	}
	it.FieldName = source.FieldName(field)
	it.Status = Status(status)
	it.Supersedes = supersedes.String
	it.Notes = notes.String
	it.ReviewerID = reviewer.String
	if err := json.Unmarshal([]byte(orig), &it.OriginalValue); err != nil {
		return nil, errors.Wrap(err, "decode original value")
	}
	if corr.Valid && corr.String != "" {
		if err := json.Unmarshal([]byte(corr.String), &it.CorrectedValue); err != nil {
			return nil, errors.Wrap(err, "decode corrected value")
		}
	}
	var err error
	if it.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, errors.Wrap(err, "decode created_at")
	}
	if reviewedAt.Valid && reviewedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, reviewedAt.String)
		if err != nil {
			return nil, errors.Wrap(err, "decode reviewed_at")
		}
		it.ReviewedAt = &t
	}
	return &it, nil
}

func marshalNullableValue(v source.Value) (any, error) {
	if v.IsZero() {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal corrected value")
	}
	return string(data), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
