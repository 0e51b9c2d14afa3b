package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"obser.dev/internal/registry"
)

type credentialStore Store

const credentialColumns = `id, project_id, kind, secret_ref, expires_at, metadata, created_at, updated_at`

func (s *credentialStore) Create(ctx context.Context, projectID int64, c registry.CredentialCreate) (registry.Credential, error) {
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return registry.Credential{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into credentials (project_id, kind, secret_ref, expires_at, metadata)
		values ($1, $2, $3, $4, $5)
		returning `+credentialColumns+`
	`, projectID, c.Kind, c.SecretRef, c.ExpiresAt, meta)
	cred, err := scanCredential(row)
	if err != nil {
		return registry.Credential{}, mapConstraintError(err)
	}
	return cred, nil
}

func (s *credentialStore) Find(ctx context.Context, projectID, id int64) (registry.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+credentialColumns+` from credentials
		where project_id = $1 and id = $2
	`, projectID, id)
	cred, err := scanCredential(row)
	if isNoRows(err) {
		return registry.Credential{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Credential{}, err
	}
	return cred, nil
}

func (s *credentialStore) ListByProject(ctx context.Context, projectID int64) ([]registry.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+credentialColumns+` from credentials
		where project_id = $1
		order by id
	`, projectID)
	if err != nil {
		return nil, err
	}
	return collectCredentials(rows)
}

func (s *credentialStore) Update(ctx context.Context, projectID, id int64, upd registry.CredentialUpdate) (registry.Credential, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Kind != nil {
		sets = append(sets, fmt.Sprintf("kind = $%d", idx))
		args = append(args, *upd.Kind)
		idx++
	}
	if upd.SecretRef != nil {
		sets = append(sets, fmt.Sprintf("secret_ref = $%d", idx))
		args = append(args, *upd.SecretRef)
		idx++
	}
	if upd.ExpiresAt != nil {
		sets = append(sets, fmt.Sprintf("expires_at = $%d", idx))
		args = append(args, *upd.ExpiresAt)
		idx++
	}
	if upd.Metadata != nil {
		meta, err := marshalMetadata(upd.Metadata)
		if err != nil {
			return registry.Credential{}, err
		}
		sets = append(sets, fmt.Sprintf("metadata = $%d", idx))
		args = append(args, meta)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update credentials set %s where project_id = $%d and id = $%d`,
			strings.Join(sets, ", "), idx, idx+1)
		args = append(args, projectID, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return registry.Credential{}, mapConstraintError(err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return registry.Credential{}, err
		}
		if aff == 0 {
			return registry.Credential{}, registry.ErrNotFound
		}
	}
	return s.Find(ctx, projectID, id)
}

func (s *credentialStore) Delete(ctx context.Context, projectID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		delete from credentials where project_id = $1 and id = $2
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

func (s *credentialStore) ListExpired(ctx context.Context, asOf time.Time) ([]registry.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+credentialColumns+` from credentials
		where expires_at is not null and expires_at < $1
		order by expires_at
	`, asOf)
	if err != nil {
		return nil, err
	}
	return collectCredentials(rows)
}

func scanCredential(row rowScanner) (registry.Credential, error) {
	var (
		c       registry.Credential
		expires sql.NullTime
		rawMeta []byte
	)
	if err := row.Scan(&c.ID, &c.ProjectID, &c.Kind, &c.SecretRef, &expires, &rawMeta, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return registry.Credential{}, err
	}
	if expires.Valid {
		t := expires.Time
		c.ExpiresAt = &t
	}
	meta, err := unmarshalMetadata(rawMeta)
	if err != nil {
		return registry.Credential{}, err
	}
	c.Metadata = meta
	return c, nil
}

func collectCredentials(rows *sql.Rows) ([]registry.Credential, error) {
	defer rows.Close()
	result := []registry.Credential{}
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
