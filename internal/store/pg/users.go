package pg

import (
	"context"
	"database/sql"
	"errors"

	"procmap.org/internal/auth"
)

var _ auth.UserStore = (*UserStore)(nil)

// FindByEmail loads the account record used by the login flow.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, email, name, role, password_hash, created_at, updated_at
		from users where email = $1
	`, email)

	var u auth.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
