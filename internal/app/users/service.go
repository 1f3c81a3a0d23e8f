// Package users owns registration, sign-in and profile maintenance.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/garage-labs/garage-api/internal/app/vehicles"
	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/platform/auth/token"
	clockport "github.com/garage-labs/garage-api/internal/ports/out/clock"
	"github.com/garage-labs/garage-api/internal/ports/out/password"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
)

// TokenIssuer mints the bearer token returned by SignIn.
type TokenIssuer interface {
	Issue(c token.Claims) (string, error)
}

type Service struct {
	repo     userrepo.Repository
	vehicles *vehicles.Service
	hasher   password.Hasher
	tokens   TokenIssuer
	clk      clockport.Clock

	newUserID func() domain.UserID
}

func NewService(repo userrepo.Repository, vehicleSvc *vehicles.Service, hasher password.Hasher, tokens TokenIssuer, clk clockport.Clock) *Service {
	return &Service{
		repo:     repo,
		vehicles: vehicleSvc,
		hasher:   hasher,
		tokens:   tokens,
		clk:      clk,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
	}
}

// Register creates a user and their initial vehicles. Every vehicle is
// validated before the user is saved; if a vehicle cannot be stored the
// user is removed again.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Profile, error) {
	f := in.Fields.Normalize()

	if f.Login != "" {
		taken, err := s.repo.ExistsByLogin(ctx, f.Login)
		if err != nil {
			return Profile{}, err
		}
		if taken {
			return Profile{}, loginExistsError()
		}
	}
	if f.Email != "" {
		taken, err := s.repo.ExistsByEmail(ctx, f.Email)
		if err != nil {
			return Profile{}, err
		}
		if taken {
			return Profile{}, emailExistsError()
		}
	}

	now := s.clk.Now()
	if err := f.Validate(now); err != nil {
		return Profile{}, fieldError(err)
	}
	if strings.TrimSpace(in.Password) == "" {
		return Profile{}, fieldError(domain.ErrMissingFields)
	}
	if err := s.vehicles.ValidateNew(ctx, in.Vehicles); err != nil {
		return Profile{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Profile{}, err
	}
	u := domain.User{
		ID:           s.newUserID(),
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Email:        f.Email,
		Birthday:     f.Birthday,
		Login:        f.Login,
		PasswordHash: hash,
		Phone:        f.Phone,
		CreatedAt:    now.UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return Profile{}, mapUniqueness(err)
	}

	vs, err := s.vehicles.RegisterAll(ctx, u.ID, in.Vehicles)
	if err != nil {
		_ = s.repo.Delete(ctx, u.ID)
		return Profile{}, err
	}
	return Profile{User: u, Vehicles: vs}, nil
}

// SignIn checks credentials, records the login time and issues a token.
// An unknown login and a wrong password produce the same error.
func (s *Service) SignIn(ctx context.Context, login, plain string) (SignInResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || plain == "" {
		return SignInResult{}, fieldError(domain.ErrMissingFields)
	}

	u, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return SignInResult{}, invalidCredentialsError()
		}
		return SignInResult{}, err
	}
	if !s.hasher.Matches(u.PasswordHash, plain) {
		return SignInResult{}, invalidCredentialsError()
	}

	now := s.clk.Now().UTC()
	u.LastLogin = &now
	if err := s.repo.Update(ctx, u); err != nil {
		return SignInResult{}, err
	}

	raw, err := s.tokens.Issue(token.ClaimsFor(u))
	if err != nil {
		return SignInResult{}, err
	}
	return SignInResult{User: u, Token: raw}, nil
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id domain.UserID) (domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, notFoundError()
		}
		return domain.User{}, err
	}
	return u, nil
}

// Update replaces the user's profile fields. The creation and last-login
// timestamps are kept, and so is the password unless a new one is given.
func (s *Service) Update(ctx context.Context, id domain.UserID, in UpdateInput) (domain.User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	f := in.Fields.Normalize()
	if err := f.Validate(s.clk.Now()); err != nil {
		return domain.User{}, fieldError(err)
	}
	if f.Login != current.Login {
		taken, err := s.repo.ExistsByLogin(ctx, f.Login)
		if err != nil {
			return domain.User{}, err
		}
		if taken {
			return domain.User{}, loginExistsError()
		}
	}
	if f.Email != current.Email {
		taken, err := s.repo.ExistsByEmail(ctx, f.Email)
		if err != nil {
			return domain.User{}, err
		}
		if taken {
			return domain.User{}, emailExistsError()
		}
	}

	updated := current
	updated.FirstName = f.FirstName
	updated.LastName = f.LastName
	updated.Email = f.Email
	updated.Birthday = f.Birthday
	updated.Login = f.Login
	updated.Phone = f.Phone

	if in.Password.IsSpecified() && !in.Password.IsNull() {
		plain := in.Password.Value()
		if strings.TrimSpace(plain) == "" {
			return domain.User{}, fieldError(domain.ErrMissingFields)
		}
		hash, err := s.hasher.Hash(plain)
		if err != nil {
			return domain.User{}, err
		}
		updated.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, notFoundError()
		}
		return domain.User{}, mapUniqueness(err)
	}
	return updated, nil
}

// Delete removes the user and every vehicle they own.
func (s *Service) Delete(ctx context.Context, id domain.UserID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if _, err := s.vehicles.DeleteAllForOwner(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return notFoundError()
		}
		return err
	}
	return nil
}

// Me returns the caller's profile with vehicles ordered by usage count, then
// model.
func (s *Service) Me(ctx context.Context, p domain.Principal) (Profile, error) {
	if !p.IsAuthenticated() {
		return Profile{}, unauthorizedError()
	}

	u, ok := p.Full()
	if !ok {
		var err error
		if p.SubjectID() != "" {
			u, err = s.repo.GetByID(ctx, p.SubjectID())
		} else {
			u, err = s.repo.GetByLogin(ctx, p.Login())
		}
		if err != nil {
			if errors.Is(err, userrepo.ErrNotFound) {
				return Profile{}, unauthorizedError()
			}
			return Profile{}, err
		}
	}

	vs, err := s.vehicles.ListMine(ctx, u.ID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: u, Vehicles: vs}, nil
}

func mapUniqueness(err error) error {
	switch {
	case errors.Is(err, userrepo.ErrLoginTaken):
		return loginExistsError()
	case errors.Is(err, userrepo.ErrEmailTaken):
		return emailExistsError()
	default:
		return err
	}
}
