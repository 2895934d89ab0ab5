package memory

import (
	"context"

	"stayscape/internal/app/uow"
	domainuser "stayscape/internal/domain/user"
)

type userRepo struct {
	u *Unit
}

func (r userRepo) ByID(_ context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	user, ok := r.u.users.lookup(r.u.store.users, id)
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return user.Clone(), nil
}

func (r userRepo) ByIDs(_ context.Context, ids []domainuser.ID) ([]*domainuser.User, error) {
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	out := make([]*domainuser.User, 0, len(ids))
	seen := make(map[domainuser.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if user, ok := r.u.users.lookup(r.u.store.users, id); ok {
			out = append(out, user.Clone())
		}
	}
	return out, nil
}

func (r userRepo) ByEmail(_ context.Context, email string) (*domainuser.User, error) {
	email = domainuser.NormalizeEmail(email)
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	var found *domainuser.User
	r.u.users.each(r.u.store.users, func(_ domainuser.ID, user *domainuser.User) {
		if user.Email == email {
			found = user
		}
	})
	if found == nil {
		return nil, domainuser.ErrNotFound
	}
	return found.Clone(), nil
}

// Save rejects an email already held by another user.
func (r userRepo) Save(_ context.Context, user *domainuser.User) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if user == nil || user.ID == "" {
		return domainuser.ErrIDRequired
	}
	email := domainuser.NormalizeEmail(user.Email)
	if email == "" {
		return domainuser.ErrEmailRequired
	}
	r.u.store.mu.RLock()
	taken := false
	r.u.users.each(r.u.store.users, func(id domainuser.ID, other *domainuser.User) {
		if id != user.ID && other.Email == email {
			taken = true
		}
	})
	r.u.store.mu.RUnlock()
	if taken {
		return domainuser.ErrEmailAlreadyUsed
	}
	stored := user.Clone()
	stored.Email = email
	r.u.users.put(user.ID, stored)
	return nil
}

// Users is a repository whose every call runs in its own unit of work.
type Users struct {
	Factory Factory
}

func (s Users) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var out *domainuser.User
	err := s.run(ctx, true, func(unit uow.UnitOfWork) (err error) {
		out, err = unit.Users().ByID(ctx, id)
		return err
	})
	return out, err
}

func (s Users) ByIDs(ctx context.Context, ids []domainuser.ID) ([]*domainuser.User, error) {
	var out []*domainuser.User
	err := s.run(ctx, true, func(unit uow.UnitOfWork) (err error) {
		out, err = unit.Users().ByIDs(ctx, ids)
		return err
	})
	return out, err
}

func (s Users) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	var out *domainuser.User
	err := s.run(ctx, true, func(unit uow.UnitOfWork) (err error) {
		out, err = unit.Users().ByEmail(ctx, email)
		return err
	})
	return out, err
}

func (s Users) Save(ctx context.Context, user *domainuser.User) error {
	return s.run(ctx, false, func(unit uow.UnitOfWork) error {
		return unit.Users().Save(ctx, user)
	})
}

func (s Users) run(ctx context.Context, readOnly bool, fn func(uow.UnitOfWork) error) error {
	unit, err := s.Factory.Begin(ctx, uow.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return err
	}
	if err := fn(unit); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	return unit.Commit(ctx)
}

var _ domainuser.Repository = Users{}
