package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/garage-labs/garage-api/internal/adapters/sqlite"
	"github.com/garage-labs/garage-api/internal/ports/out/idempotency"
)

// Store is a SQLite implementation of idempotency.Store.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type recordRow struct {
	RequestHash string    `db:"request_hash"`
	StatusCode  int       `db:"status_code"`
	ContentType string    `db:"content_type"`
	Body        []byte    `db:"body"`
	CreatedAt   time.Time `db:"created_at"`
}

// Lookup applies the retention window in Go: DATETIME columns hold text here.
func (s *Store) Lookup(ctx context.Context, scope idempotency.Scope, notBefore time.Time) (idempotency.Record, bool, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, `SELECT request_hash, status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = ? AND owner_id = ? AND route = ?`,
		string(scope.Key), string(scope.Owner), scope.Route)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, sqlite.Classify(err, idempotency.ErrUnavailable)
	}
	if row.CreatedAt.Before(notBefore) {
		return idempotency.Record{}, false, nil
	}
	return idempotency.Record{
		RequestHash: row.RequestHash,
		StatusCode:  row.StatusCode,
		ContentType: row.ContentType,
		Body:        row.Body,
		CreatedAt:   row.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) Save(ctx context.Context, scope idempotency.Scope, rec idempotency.Record) error {
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO idempotency_keys
		(idempotency_key, owner_id, route, request_hash, status_code, content_type, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key, owner_id, route)
		DO UPDATE SET
			request_hash = excluded.request_hash,
			status_code = excluded.status_code,
			content_type = excluded.content_type,
			body = excluded.body,
			created_at = excluded.created_at`,
		string(scope.Key), string(scope.Owner), scope.Route,
		rec.RequestHash, rec.StatusCode, rec.ContentType, body, rec.CreatedAt.UTC())
	return sqlite.Classify(err, idempotency.ErrUnavailable)
}
