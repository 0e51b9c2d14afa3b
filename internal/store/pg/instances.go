package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"obser.dev/internal/registry"
)

type instanceStore Store

const instanceColumns = `id, project_id, service_type_id, environment_id, name, endpoint, port, status, metadata, created_at, updated_at`

func (s *instanceStore) Create(ctx context.Context, projectID int64, c registry.ServiceInstanceCreate) (registry.ServiceInstance, error) {
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return registry.ServiceInstance{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into service_instances (project_id, service_type_id, environment_id, name, endpoint, port, status, metadata)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+instanceColumns+`
	`, projectID, c.ServiceTypeID, c.EnvironmentID, c.Name, c.Endpoint, c.Port, c.Status, meta)
	inst, err := scanInstance(row)
	if err != nil {
		return registry.ServiceInstance{}, mapConstraintError(err)
	}
	return inst, nil
}

func (s *instanceStore) Find(ctx context.Context, projectID, id int64) (registry.ServiceInstance, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+instanceColumns+` from service_instances
		where project_id = $1 and id = $2
	`, projectID, id)
	return scanInstanceNotFound(row)
}

func (s *instanceStore) FindByName(ctx context.Context, projectID int64, name string) (registry.ServiceInstance, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+instanceColumns+` from service_instances
		where project_id = $1 and name = $2
	`, projectID, name)
	return scanInstanceNotFound(row)
}

func (s *instanceStore) ListByProject(ctx context.Context, projectID int64) ([]registry.ServiceInstance, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+instanceColumns+` from service_instances
		where project_id = $1
		order by id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []registry.ServiceInstance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *instanceStore) Update(ctx context.Context, projectID, id int64, upd registry.ServiceInstanceUpdate) (registry.ServiceInstance, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.ServiceTypeID != nil {
		sets = append(sets, fmt.Sprintf("service_type_id = $%d", idx))
		args = append(args, *upd.ServiceTypeID)
		idx++
	}
	if upd.EnvironmentID != nil {
		sets = append(sets, fmt.Sprintf("environment_id = $%d", idx))
		args = append(args, *upd.EnvironmentID)
		idx++
	}
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Endpoint != nil {
		sets = append(sets, fmt.Sprintf("endpoint = $%d", idx))
		args = append(args, *upd.Endpoint)
		idx++
	}
	if upd.Port != nil {
		sets = append(sets, fmt.Sprintf("port = $%d", idx))
		args = append(args, *upd.Port)
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, *upd.Status)
		idx++
	}
	if upd.Metadata != nil {
		meta, err := marshalMetadata(upd.Metadata)
		if err != nil {
			return registry.ServiceInstance{}, err
		}
		sets = append(sets, fmt.Sprintf("metadata = $%d", idx))
		args = append(args, meta)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update service_instances set %s where project_id = $%d and id = $%d`,
			strings.Join(sets, ", "), idx, idx+1)
		args = append(args, projectID, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return registry.ServiceInstance{}, mapConstraintError(err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return registry.ServiceInstance{}, err
		}
		if aff == 0 {
			return registry.ServiceInstance{}, registry.ErrNotFound
		}
	}
	return s.Find(ctx, projectID, id)
}

func (s *instanceStore) Delete(ctx context.Context, projectID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		delete from service_instances where project_id = $1 and id = $2
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

func (s *instanceStore) AttachCredential(ctx context.Context, instanceID, credentialID int64, usage registry.CredentialUsage) (registry.ServiceCredential, error) {
	var link registry.ServiceCredential
	err := s.db.QueryRowContext(ctx, `
		insert into service_credentials (service_instance_id, credential_id, usage)
		values ($1, $2, $3)
		returning id, service_instance_id, credential_id, usage, created_at
	`, instanceID, credentialID, usage).Scan(&link.ID, &link.ServiceInstanceID, &link.CredentialID, &link.Usage, &link.CreatedAt)
	if err != nil {
		return registry.ServiceCredential{}, mapConstraintError(err)
	}
	return link, nil
}

func (s *instanceStore) DetachCredential(ctx context.Context, instanceID, credentialID int64) error {
	res, err := s.db.ExecContext(ctx, `
		delete from service_credentials
		where service_instance_id = $1 and credential_id = $2
	`, instanceID, credentialID)
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

func (s *instanceStore) ListCredentialLinks(ctx context.Context, instanceID int64) ([]registry.ServiceCredential, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, service_instance_id, credential_id, usage, created_at
		from service_credentials
		where service_instance_id = $1
		order by id
	`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []registry.ServiceCredential{}
	for rows.Next() {
		var link registry.ServiceCredential
		if err := rows.Scan(&link.ID, &link.ServiceInstanceID, &link.CredentialID, &link.Usage, &link.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanInstance(row rowScanner) (registry.ServiceInstance, error) {
	var (
		inst    registry.ServiceInstance
		envID   sql.NullInt64
		port    sql.NullInt64
		rawMeta []byte
	)
	if err := row.Scan(&inst.ID, &inst.ProjectID, &inst.ServiceTypeID, &envID, &inst.Name,
		&inst.Endpoint, &port, &inst.Status, &rawMeta, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
		return registry.ServiceInstance{}, err
	}
	if envID.Valid {
		v := envID.Int64
		inst.EnvironmentID = &v
	}
	if port.Valid {
		p := int(port.Int64)
		inst.Port = &p
	}
	meta, err := unmarshalMetadata(rawMeta)
	if err != nil {
		return registry.ServiceInstance{}, err
	}
	inst.Metadata = meta
	return inst, nil
}

func scanInstanceNotFound(row rowScanner) (registry.ServiceInstance, error) {
	inst, err := scanInstance(row)
	if isNoRows(err) {
		return registry.ServiceInstance{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.ServiceInstance{}, err
	}
	return inst, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return bytes, nil
}

func unmarshalMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
