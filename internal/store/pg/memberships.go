package pg

import (
	"context"

	"obser.dev/internal/registry"
)

type membershipStore Store

func (s *membershipStore) Exists(ctx context.Context, projectID, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		select 1 from project_memberships where project_id = $1 and user_id = $2
	`, projectID, userID).Scan(&one)
	if err == nil {
		return true, nil
	}
	if isNoRows(err) {
		return false, nil
	}
	return false, err
}

func (s *membershipStore) Add(ctx context.Context, projectID, userID int64, role string) (registry.Membership, error) {
	var m registry.Membership
	err := s.db.QueryRowContext(ctx, `
		insert into project_memberships (project_id, user_id, role)
		values ($1, $2, $3)
		returning id, project_id, user_id, role, created_at
	`, projectID, userID, role).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return registry.Membership{}, mapConstraintError(err)
	}
	return m, nil
}

func (s *membershipStore) Remove(ctx context.Context, projectID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `
		delete from project_memberships where project_id = $1 and user_id = $2
	`, projectID, userID)
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

func (s *membershipStore) ListByProject(ctx context.Context, projectID int64) ([]registry.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, project_id, user_id, role, created_at
		from project_memberships
		where project_id = $1
		order by id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []registry.Membership{}
	for rows.Next() {
		var m registry.Membership
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
