package pg

import (
	"context"
	"fmt"
	"strings"

	"obser.dev/internal/registry"
)

type environmentStore Store

const environmentColumns = `id, project_id, code, coalesce(display_name, ''), created_at, updated_at`

func (s *environmentStore) Create(ctx context.Context, projectID int64, e registry.EnvironmentCreate) (registry.Environment, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into environments (project_id, code, display_name)
		values ($1, $2, nullif($3, ''))
		returning `+environmentColumns+`
	`, projectID, e.Code, e.DisplayName)
	env, err := scanEnvironment(row)
	if err != nil {
		return registry.Environment{}, mapConstraintError(err)
	}
	return env, nil
}

func (s *environmentStore) Find(ctx context.Context, projectID, id int64) (registry.Environment, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+environmentColumns+` from environments
		where project_id = $1 and id = $2
	`, projectID, id)
	env, err := scanEnvironment(row)
	if isNoRows(err) {
		return registry.Environment{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Environment{}, err
	}
	return env, nil
}

func (s *environmentStore) ListByProject(ctx context.Context, projectID int64) ([]registry.Environment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+environmentColumns+` from environments
		where project_id = $1
		order by id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []registry.Environment{}
	for rows.Next() {
		env, err := scanEnvironment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, env)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *environmentStore) Update(ctx context.Context, projectID, id int64, upd registry.EnvironmentUpdate) (registry.Environment, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Code != nil {
		sets = append(sets, fmt.Sprintf("code = $%d", idx))
		args = append(args, *upd.Code)
		idx++
	}
	if upd.DisplayName != nil {
		sets = append(sets, fmt.Sprintf("display_name = nullif($%d, '')", idx))
		args = append(args, *upd.DisplayName)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update environments set %s where project_id = $%d and id = $%d`,
			strings.Join(sets, ", "), idx, idx+1)
		args = append(args, projectID, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return registry.Environment{}, mapConstraintError(err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return registry.Environment{}, err
		}
		if aff == 0 {
			return registry.Environment{}, registry.ErrNotFound
		}
	}
	return s.Find(ctx, projectID, id)
}

func (s *environmentStore) Delete(ctx context.Context, projectID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		delete from environments where project_id = $1 and id = $2
	`, projectID, id)
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

func scanEnvironment(row rowScanner) (registry.Environment, error) {
	var e registry.Environment
	if err := row.Scan(&e.ID, &e.ProjectID, &e.Code, &e.DisplayName, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return registry.Environment{}, err
	}
	return e, nil
}
