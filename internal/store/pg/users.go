package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"obser.dev/internal/registry"
)

type userStore Store

const userColumns = `id, email, hashed_password, is_active, is_superuser, date_joined, last_login`

func (s *userStore) Create(ctx context.Context, email, hashedPassword string) (registry.User, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into users (email, hashed_password, is_active, is_superuser)
		values ($1, $2, true, false)
		returning `+userColumns+`
	`, email, hashedPassword)
	u, err := scanUser(row)
	if err != nil {
		return registry.User{}, mapConstraintError(err)
	}
	return u, nil
}

func (s *userStore) Find(ctx context.Context, id int64) (registry.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+` from users where id = $1
	`, id)
	return scanUserNotFound(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (registry.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+` from users where email = $1
	`, email)
	return scanUserNotFound(row)
}

func (s *userStore) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `update users set last_login = $2 where id = $1`, id, at)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return registry.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (registry.User, error) {
	var (
		u         registry.User
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.IsActive, &u.IsSuperuser, &u.DateJoined, &lastLogin); err != nil {
		return registry.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

func scanUserNotFound(row rowScanner) (registry.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.User{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.User{}, err
	}
	return u, nil
}
