package userrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/garage-labs/garage-api/internal/adapters/postgres"
	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const userColumns = `id, first_name, last_name, email, birthday, login, password_hash, phone, created_at, last_login`

func (r *Repo) Create(ctx context.Context, u domain.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		id,
		u.FirstName,
		u.LastName,
		u.Email,
		u.Birthday.UTC(),
		u.Login,
		u.PasswordHash,
		u.Phone,
		u.CreatedAt.UTC(),
		utcPtr(u.LastLogin),
	)
	if err != nil {
		return mapWriteError(err, userrepo.ErrAlreadyExists)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, u domain.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return userrepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE users
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    birthday = $5,
		    login = $6,
		    password_hash = $7,
		    phone = $8,
		    last_login = $9
		WHERE id = $1
	`,
		id,
		u.FirstName,
		u.LastName,
		u.Email,
		u.Birthday.UTC(),
		u.Login,
		u.PasswordHash,
		u.Phone,
		utcPtr(u.LastLogin),
	)
	if err != nil {
		return mapWriteError(err, userrepo.ErrAlreadyExists)
	}
	if ct.RowsAffected() == 0 {
		return userrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.UserID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return userrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, uid)
	if err != nil {
		return postgres.Classify(err, userrepo.ErrUnavailable)
	}
	if ct.RowsAffected() == 0 {
		return userrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.User{}, userrepo.ErrNotFound
	}
	return scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid))
}

func (r *Repo) GetByLogin(ctx context.Context, login string) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, errors.New("nil postgres pool")
	}
	return scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE login = $1`, login))
}

func (r *Repo) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE login = $1)`, login)
}

func (r *Repo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *Repo) exists(ctx context.Context, q string, arg string) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	var ok bool
	if err := r.pool.QueryRow(ctx, q, arg).Scan(&ok); err != nil {
		return false, postgres.Classify(err, userrepo.ErrUnavailable)
	}
	return ok, nil
}

func (r *Repo) List(ctx context.Context) ([]domain.User, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY login ASC`)
	if err != nil {
		return nil, postgres.Classify(err, userrepo.ErrUnavailable)
	}
	defer rows.Close()

	out := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Classify(err, userrepo.ErrUnavailable)
	}
	return out, nil
}

func scanOne(row pgx.Row) (domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, userrepo.ErrNotFound
		}
		return domain.User{}, postgres.Classify(err, userrepo.ErrUnavailable)
	}
	return u, nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (domain.User, error) {
	var (
		id        uuid.UUID
		u         domain.User
		lastLogin *time.Time
	)
	if err := row.Scan(
		&id,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Birthday,
		&u.Login,
		&u.PasswordHash,
		&u.Phone,
		&u.CreatedAt,
		&lastLogin,
	); err != nil {
		return domain.User{}, err
	}
	u.ID = domain.UserID(id.String())
	u.Birthday = u.Birthday.UTC()
	u.CreatedAt = u.CreatedAt.UTC()
	if lastLogin != nil {
		v := lastLogin.UTC()
		u.LastLogin = &v
	}
	return u, nil
}

func mapWriteError(err error, alreadyExists error) error {
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
		// Determine which unique constraint was violated.
		switch pe.ConstraintName {
		case "users_login_unique":
			return userrepo.ErrLoginTaken
		case "users_email_unique":
			return userrepo.ErrEmailTaken
		case "users_pkey":
			return alreadyExists
		}
	}
	return postgres.Classify(err, userrepo.ErrUnavailable)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
