package core

import (
	"context"
	"strings"

	"wellbeingcore/pkg/domain"
)

// SelectRole records the role chosen on the role picker ahead of login.
func (s *Service) SelectRole(ctx context.Context, role domain.Role) (domain.Session, error) {
	var session domain.Session
	_, err := s.run(ctx, "select_role", func(tx domain.Transaction) error {
		session = tx.SetPendingRole(role)
		return nil
	})
	return session, err
}

// Login creates a session user under the pending role. A blank name logs in as
// "Guest"; role selection is an identity choice, not authentication.
func (s *Service) Login(ctx context.Context, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Guest"
	}
	var user domain.User
	_, err := s.run(ctx, "login", func(tx domain.Transaction) error {
		u, err := tx.SetUser(domain.User{Name: name})
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

// Logout clears the session identity. All domain data survives.
func (s *Service) Logout(ctx context.Context) (domain.Session, error) {
	var session domain.Session
	_, err := s.run(ctx, "logout", func(tx domain.Transaction) error {
		session = tx.ClearUser()
		return nil
	})
	return session, err
}

// Session returns the current session.
func (s *Service) Session() domain.Session { return s.store.Session() }
