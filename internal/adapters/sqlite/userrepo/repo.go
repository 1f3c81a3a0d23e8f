package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/garage-labs/garage-api/internal/adapters/sqlite"
	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
)

// Repo is a SQLite implementation of userrepo.Repository.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// userRow maps 1:1 to the users table.
type userRow struct {
	ID           string       `db:"id"`
	FirstName    string       `db:"first_name"`
	LastName     string       `db:"last_name"`
	Email        string       `db:"email"`
	Birthday     time.Time    `db:"birthday"`
	Login        string       `db:"login"`
	PasswordHash string       `db:"password_hash"`
	Phone        string       `db:"phone"`
	CreatedAt    time.Time    `db:"created_at"`
	LastLogin    sql.NullTime `db:"last_login"`
}

func rowFromUser(u domain.User) userRow {
	row := userRow{
		ID:           string(u.ID),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Birthday:     u.Birthday.UTC(),
		Login:        u.Login,
		PasswordHash: u.PasswordHash,
		Phone:        u.Phone,
		CreatedAt:    u.CreatedAt.UTC(),
	}
	if u.LastLogin != nil {
		row.LastLogin = sql.NullTime{Time: u.LastLogin.UTC(), Valid: true}
	}
	return row
}

func (r userRow) toDomain() domain.User {
	u := domain.User{
		ID:           domain.UserID(r.ID),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Birthday:     r.Birthday.UTC(),
		Login:        r.Login,
		PasswordHash: r.PasswordHash,
		Phone:        r.Phone,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		v := r.LastLogin.Time.UTC()
		u.LastLogin = &v
	}
	return u
}

func (r *Repo) Create(ctx context.Context, u domain.User) error {
	const q = `INSERT INTO users
		(id, first_name, last_name, email, birthday, login, password_hash, phone, created_at, last_login)
		VALUES
		(:id, :first_name, :last_name, :email, :birthday, :login, :password_hash, :phone, :created_at, :last_login)`

	if _, err := r.db.NamedExecContext(ctx, q, rowFromUser(u)); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, u domain.User) error {
	const q = `UPDATE users SET
		first_name = :first_name, last_name = :last_name, email = :email, birthday = :birthday,
		login = :login, password_hash = :password_hash, phone = :phone, last_login = :last_login
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, q, rowFromUser(u))
	if err != nil {
		return mapWriteError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return userrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.UserID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", string(id))
	if err != nil {
		return sqlite.Classify(err, userrepo.ErrUnavailable)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return userrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	return r.getOne(ctx, "SELECT * FROM users WHERE id = ?", string(id))
}

func (r *Repo) GetByLogin(ctx context.Context, login string) (domain.User, error) {
	return r.getOne(ctx, "SELECT * FROM users WHERE login = ?", login)
}

func (r *Repo) getOne(ctx context.Context, q string, arg string) (domain.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, userrepo.ErrNotFound
		}
		return domain.User{}, sqlite.Classify(err, userrepo.ErrUnavailable)
	}
	return row.toDomain(), nil
}

func (r *Repo) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE login = ?)", login)
}

func (r *Repo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)", email)
}

func (r *Repo) exists(ctx context.Context, q string, arg string) (bool, error) {
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, arg); err != nil {
		return false, sqlite.Classify(err, userrepo.ErrUnavailable)
	}
	return ok, nil
}

func (r *Repo) List(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM users ORDER BY login"); err != nil {
		return nil, sqlite.Classify(err, userrepo.ErrUnavailable)
	}
	out := make([]domain.User, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func mapWriteError(err error) error {
	switch {
	case sqlite.UniqueViolation(err, "users", "login"):
		return userrepo.ErrLoginTaken
	case sqlite.UniqueViolation(err, "users", "email"):
		return userrepo.ErrEmailTaken
	case sqlite.UniqueViolation(err, "users", "id"):
		return userrepo.ErrAlreadyExists
	}
	return sqlite.Classify(err, userrepo.ErrUnavailable)
}
