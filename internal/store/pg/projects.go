package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"obser.dev/internal/registry"
)

type projectStore Store

const projectColumns = `id, code, display_name, coalesce(kind, ''), created_at, updated_at`

func (s *projectStore) Create(ctx context.Context, p registry.ProjectCreate) (registry.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into projects (code, display_name, kind)
		values ($1, $2, nullif($3, ''))
		returning `+projectColumns+`
	`, p.Code, p.DisplayName, p.Kind)
	project, err := scanProject(row)
	if err != nil {
		return registry.Project{}, mapConstraintError(err)
	}
	return project, nil
}

func (s *projectStore) Find(ctx context.Context, id int64) (registry.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+projectColumns+` from projects where id = $1
	`, id)
	return scanProjectNotFound(row)
}

func (s *projectStore) FindByCode(ctx context.Context, code string) (registry.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+projectColumns+` from projects where code = $1
	`, code)
	return scanProjectNotFound(row)
}

func (s *projectStore) ListAll(ctx context.Context) ([]registry.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+projectColumns+` from projects order by id
	`)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

func (s *projectStore) ListForUser(ctx context.Context, userID int64) ([]registry.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.code, p.display_name, coalesce(p.kind, ''), p.created_at, p.updated_at
		from projects p
		join project_memberships m on m.project_id = p.id
		where m.user_id = $1
		order by p.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

func (s *projectStore) Update(ctx context.Context, id int64, upd registry.ProjectUpdate) (registry.Project, error) {
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
		sets = append(sets, fmt.Sprintf("display_name = $%d", idx))
		args = append(args, *upd.DisplayName)
		idx++
	}
	if upd.Kind != nil {
		sets = append(sets, fmt.Sprintf("kind = nullif($%d, '')", idx))
		args = append(args, *upd.Kind)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update projects set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return registry.Project{}, mapConstraintError(err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return registry.Project{}, err
		}
		if aff == 0 {
			return registry.Project{}, registry.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *projectStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from projects where id = $1`, id)
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

func scanProject(row rowScanner) (registry.Project, error) {
	var p registry.Project
	if err := row.Scan(&p.ID, &p.Code, &p.DisplayName, &p.Kind, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return registry.Project{}, err
	}
	return p, nil
}

func scanProjectNotFound(row rowScanner) (registry.Project, error) {
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Project{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Project{}, err
	}
	return p, nil
}

func collectProjects(rows *sql.Rows) ([]registry.Project, error) {
	defer rows.Close()
	result := []registry.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
