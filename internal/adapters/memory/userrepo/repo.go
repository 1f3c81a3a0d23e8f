package userrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/garage-labs/garage-api/internal/domain"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.UserID]domain.User
	idByLogin map[string]domain.UserID
	idByEmail map[string]domain.UserID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.UserID]domain.User),
		idByLogin: make(map[string]domain.UserID),
		idByEmail: make(map[string]domain.UserID),
	}
}

func (r *Repo) Create(ctx context.Context, u domain.User) error {
	_ = ctx
	if u.ID == "" {
		return userrepo.ErrAlreadyExists // treat empty ID as invalid; the app layer always assigns one
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return userrepo.ErrAlreadyExists
	}
	if err := r.checkUniqueLocked(u); err != nil {
		return err
	}

	r.byID[u.ID] = cloneUser(u)
	r.idByLogin[u.Login] = u.ID
	r.idByEmail[u.Email] = u.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, u domain.User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[u.ID]
	if !ok {
		return userrepo.ErrNotFound
	}
	if err := r.checkUniqueLocked(u); err != nil {
		return err
	}

	delete(r.idByLogin, existing.Login)
	delete(r.idByEmail, existing.Email)
	r.byID[u.ID] = cloneUser(u)
	r.idByLogin[u.Login] = u.ID
	r.idByEmail[u.Email] = u.ID
	return nil
}

// checkUniqueLocked reports a login/email collision with a user other than u.
func (r *Repo) checkUniqueLocked(u domain.User) error {
	if id, ok := r.idByLogin[u.Login]; ok && id != u.ID {
		return userrepo.ErrLoginTaken
	}
	if id, ok := r.idByEmail[u.Email]; ok && id != u.ID {
		return userrepo.ErrEmailTaken
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return userrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByLogin, u.Login)
	delete(r.idByEmail, u.Email)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) GetByLogin(ctx context.Context, login string) (domain.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByLogin[login]
	if !ok {
		return domain.User{}, userrepo.ErrNotFound
	}
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.idByLogin[login]
	return ok, nil
}

func (r *Repo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.idByEmail[email]
	return ok, nil
}

func (r *Repo) List(ctx context.Context) ([]domain.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}

func cloneUser(u domain.User) domain.User {
	out := u
	if u.LastLogin != nil {
		v := *u.LastLogin
		out.LastLogin = &v
	}
	return out
}
