package userrepo

import (
	"context"

	"github.com/garage-labs/garage-api/internal/domain"
)

// Repository provides access to persisted users.
//
// Logins and emails are unique across all users. List returns users ordered
// by login ascending.
type Repository interface {
	Create(ctx context.Context, u domain.User) error
	Update(ctx context.Context, u domain.User) error
	Delete(ctx context.Context, id domain.UserID) error

	GetByID(ctx context.Context, id domain.UserID) (domain.User, error)
	GetByLogin(ctx context.Context, login string) (domain.User, error)

	ExistsByLogin(ctx context.Context, login string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	List(ctx context.Context) ([]domain.User, error)
}
