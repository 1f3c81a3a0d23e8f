package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garage-labs/garage-api/internal/adapters/postgres"
	"github.com/garage-labs/garage-api/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Lookup(ctx context.Context, scope idempotency.Scope, notBefore time.Time) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT request_hash, status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND owner_id = $2
		  AND route = $3
		  AND created_at >= $4
	`,
		string(scope.Key),
		string(scope.Owner),
		scope.Route,
		notBefore.UTC(),
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.RequestHash, &rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, postgres.Classify(err, idempotency.ErrUnavailable)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Save(ctx context.Context, scope idempotency.Scope, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key, owner_id, route,
			request_hash, status_code, content_type, body, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (idempotency_key, owner_id, route)
		DO UPDATE SET
			request_hash = EXCLUDED.request_hash,
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at
	`,
		string(scope.Key),
		string(scope.Owner),
		scope.Route,
		rec.RequestHash,
		rec.StatusCode,
		rec.ContentType,
		body,
		rec.CreatedAt.UTC(),
	)
	return postgres.Classify(err, idempotency.ErrUnavailable)
}
