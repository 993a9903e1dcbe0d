package service

import (
	"context"

	"go-tours-api/internal/model"
)

type profileStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	UpdateProfile(ctx context.Context, id string, name string, email string) (model.User, error)
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.PublicUser, error)
}

// UserService covers the profile operations around the auth core: /me
// reads and updates, the soft delete, and the admin listing.
type UserService struct {
	users profileStore
}

func NewUserService(users profileStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Get(ctx context.Context, id string) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

// UpdateMe changes name/email only. Password changes go through the
// dedicated rotation flow; this path never touches credential state.
func (s *UserService) UpdateMe(ctx context.Context, id string, req model.UpdateMeRequest) (model.PublicUser, error) {
	current, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}

	name := current.Name
	if req.Name != "" {
		name = req.Name
	}

	email := current.Email
	if req.Email != "" {
		email, err = normalizeEmail(req.Email)
		if err != nil {
			return model.PublicUser{}, err
		}
	}

	updated, err := s.users.UpdateProfile(ctx, id, name, email)
	if err != nil {
		return model.PublicUser{}, err
	}
	return updated.Public(), nil
}

// DeleteMe soft-deletes: the account disappears from every lookup but the
// row is kept.
func (s *UserService) DeleteMe(ctx context.Context, id string) error {
	return s.users.Deactivate(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]model.PublicUser, error) {
	return s.users.List(ctx)
}
