package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// UserInput holds the fields of a user.
type UserInput struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

var userTables = []storage.Table{storage.TableUsers}

func (s *Service) checkUser(ctx context.Context, r storage.Reader, in UserInput, selfID string) (UserInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return in, types.NewValidationError("name", "user name is required")
	}
	if in.Email == "" {
		return in, nil
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return in, types.NewValidationError("email", fmt.Sprintf("invalid email %q", in.Email))
	}
	ids, err := queryIDs(ctx, r, storage.TableUsers, storage.By("email", in.Email))
	if err != nil {
		return in, err
	}
	for _, id := range ids {
		if id != selfID {
			return in, types.NewValidationError("email", fmt.Sprintf("email %s is already in use", in.Email))
		}
	}
	return in, nil
}

// CreateUser adds a user. Emails are unique when set.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*types.User, error) {
	var user *types.User
	err := s.store.RunInTransaction(ctx, userTables, func(tx storage.Transaction) error {
		in, err := s.checkUser(ctx, tx, in, "")
		if err != nil {
			return err
		}
		user = &types.User{ID: s.newID(), Name: in.Name, Email: in.Email, CreatedAt: s.clock()}
		return storage.Put(ctx, tx, storage.TableUsers, user)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, eventbus.Event{Type: eventbus.EventUserChanged, EntityID: user.ID, Summary: user.Name}, userTables)
	return user, nil
}

// UpdateUser replaces the name and email of a user. Activity rows already
// written keep the old name.
func (s *Service) UpdateUser(ctx context.Context, id string, in UserInput) (*types.User, error) {
	var user *types.User
	err := s.store.RunInTransaction(ctx, userTables, func(tx storage.Transaction) error {
		var err error
		user, err = load[types.User](ctx, tx, storage.TableUsers, "user", id)
		if err != nil {
			return err
		}
		in, err := s.checkUser(ctx, tx, in, id)
		if err != nil {
			return err
		}
		user.Name, user.Email = in.Name, in.Email
		return storage.Put(ctx, tx, storage.TableUsers, user)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, eventbus.Event{Type: eventbus.EventUserChanged, EntityID: user.ID, Summary: user.Name}, userTables)
	return user, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*types.User, error) {
	return load[types.User](ctx, s.store, storage.TableUsers, "user", id)
}

// GetUserByEmail returns the user with the given email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := storage.Query[types.User](ctx, s.store, storage.TableUsers, storage.By("email", email))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, types.NotFound("user", email)
	}
	return users[0], nil
}

// ListUsers returns every user in creation order.
func (s *Service) ListUsers(ctx context.Context) ([]*types.User, error) {
	return storage.All[types.User](ctx, s.store, storage.TableUsers)
}
