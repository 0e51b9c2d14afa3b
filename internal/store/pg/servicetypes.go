package pg

import (
	"context"
	"database/sql"

	"obser.dev/internal/registry"
)

type serviceTypeStore Store

const serviceTypeColumns = `id, code, type_group, display_name, default_port, created_at`

func (s *serviceTypeStore) Create(ctx context.Context, st registry.ServiceType) (registry.ServiceType, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into service_types (code, type_group, display_name, default_port)
		values ($1, $2, $3, $4)
		returning `+serviceTypeColumns+`
	`, st.Code, st.Group, st.DisplayName, st.DefaultPort)
	created, err := scanServiceType(row)
	if err != nil {
		return registry.ServiceType{}, mapConstraintError(err)
	}
	return created, nil
}

func (s *serviceTypeStore) Find(ctx context.Context, id int64) (registry.ServiceType, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+serviceTypeColumns+` from service_types where id = $1
	`, id)
	st, err := scanServiceType(row)
	if isNoRows(err) {
		return registry.ServiceType{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.ServiceType{}, err
	}
	return st, nil
}

func (s *serviceTypeStore) List(ctx context.Context) ([]registry.ServiceType, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+serviceTypeColumns+` from service_types order by type_group, code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []registry.ServiceType{}
	for rows.Next() {
		st, err := scanServiceType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete relies on the restrict foreign key from service_instances: a
// violation surfaces as ErrConflict.
func (s *serviceTypeStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from service_types where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return registry.ErrConflict
		}
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

func scanServiceType(row rowScanner) (registry.ServiceType, error) {
	var (
		st   registry.ServiceType
		port sql.NullInt64
	)
	if err := row.Scan(&st.ID, &st.Code, &st.Group, &st.DisplayName, &port, &st.CreatedAt); err != nil {
		return registry.ServiceType{}, err
	}
	if port.Valid {
		p := int(port.Int64)
		st.DefaultPort = &p
	}
	return st, nil
}
