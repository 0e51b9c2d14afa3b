package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"obser.dev/internal/registry"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func checkExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserCreate(t *testing.T) {
	store, mock := newMockStore(t)
	joined := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "email", "hashed_password", "is_active", "is_superuser", "date_joined", "last_login"}).
		AddRow(int64(1), "dev@obser.dev", "$2a$10$hash", true, false, joined, nil)
	mock.ExpectQuery("insert into users").
		WithArgs("dev@obser.dev", "$2a$10$hash").
		WillReturnRows(rows)

	u, err := store.Users().Create(context.Background(), "dev@obser.dev", "$2a$10$hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID != 1 || u.Email != "dev@obser.dev" || !u.IsActive || u.LastLogin != nil {
		t.Fatalf("unexpected user: %+v", u)
	}
	checkExpectations(t, mock)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into users").
		WithArgs("dev@obser.dev", "$2a$10$hash").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.Users().Create(context.Background(), "dev@obser.dev", "$2a$10$hash")
	if !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("duplicate email = %v, want ErrConflict", err)
	}
	checkExpectations(t, mock)
}

func TestUserFindMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from users where id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Users().Find(context.Background(), 42)
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("missing user = %v, want ErrNotFound", err)
	}
	checkExpectations(t, mock)
}

func TestProjectCreateDuplicateCode(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into projects").
		WithArgs("p1", "P1", "").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.Projects().Create(context.Background(), registry.ProjectCreate{Code: "p1", DisplayName: "P1"})
	if !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("duplicate code = %v, want ErrConflict", err)
	}
	checkExpectations(t, mock)
}

func TestProjectListForUserJoinsMemberships(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "code", "display_name", "kind", "created_at", "updated_at"}).
		AddRow(int64(1), "alpha", "Alpha", "", now, now).
		AddRow(int64(3), "gamma", "Gamma", "internal", now, now)
	mock.ExpectQuery("join project_memberships m on m.project_id = p.id").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := store.Projects().ListForUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 2 || got[0].Code != "alpha" || got[1].Code != "gamma" {
		t.Fatalf("unexpected projects: %+v", got)
	}
	checkExpectations(t, mock)
}

func TestProjectUpdateOnlyTouchedColumns(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`update projects set display_name = \$1, updated_at = now\(\) where id = \$2`).
		WithArgs("Renamed", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select .* from projects where id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "display_name", "kind", "created_at", "updated_at"}).
			AddRow(int64(5), "p1", "Renamed", "", now, now))

	name := "Renamed"
	p, err := store.Projects().Update(context.Background(), 5, registry.ProjectUpdate{DisplayName: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.DisplayName != "Renamed" {
		t.Fatalf("display name = %q", p.DisplayName)
	}
	checkExpectations(t, mock)
}

func TestProjectDeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from projects where id").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Projects().Delete(context.Background(), 9); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("delete missing = %v, want ErrNotFound", err)
	}
	checkExpectations(t, mock)
}

func TestMembershipExists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select 1 from project_memberships").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	ok, err := store.Memberships().Exists(context.Background(), 1, 2)
	if err != nil || !ok {
		t.Fatalf("Exists = (%v, %v), want (true, nil)", ok, err)
	}

	mock.ExpectQuery("select 1 from project_memberships").
		WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	ok, err = store.Memberships().Exists(context.Background(), 1, 3)
	if err != nil || ok {
		t.Fatalf("Exists = (%v, %v), want (false, nil)", ok, err)
	}
	checkExpectations(t, mock)
}

func TestMembershipAddConstraintMapping(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into project_memberships").
		WithArgs(int64(1), int64(2), "member").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	if _, err := store.Memberships().Add(context.Background(), 1, 2, "member"); !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("duplicate pair = %v, want ErrConflict", err)
	}

	mock.ExpectQuery("insert into project_memberships").
		WithArgs(int64(1), int64(99), "member").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	if _, err := store.Memberships().Add(context.Background(), 1, 99, "member"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("missing user fk = %v, want ErrNotFound", err)
	}
	checkExpectations(t, mock)
}

func TestMembershipRemoveMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from project_memberships").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Memberships().Remove(context.Background(), 1, 2); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("remove missing = %v, want ErrNotFound", err)
	}
	checkExpectations(t, mock)
}

func TestServiceTypeDeleteRestricted(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from service_types").
		WithArgs(int64(4)).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	if err := store.ServiceTypes().Delete(context.Background(), 4); !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("restricted delete = %v, want ErrConflict", err)
	}
	checkExpectations(t, mock)
}

func TestInstanceFindScopedByProject(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "project_id", "service_type_id", "environment_id", "name",
		"endpoint", "port", "status", "metadata", "created_at", "updated_at"}).
		AddRow(int64(10), int64(1), int64(2), nil, "db-main", "db:5432", 5432, "healthy", []byte(`{"region":"eu"}`), now, now)
	mock.ExpectQuery("select .* from service_instances").
		WithArgs(int64(1), int64(10)).
		WillReturnRows(rows)

	inst, err := store.ServiceInstances().Find(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if inst.EnvironmentID != nil || inst.Port == nil || *inst.Port != 5432 {
		t.Fatalf("unexpected instance: %+v", inst)
	}
	if inst.Metadata["region"] != "eu" {
		t.Fatalf("metadata = %v", inst.Metadata)
	}
	checkExpectations(t, mock)
}

func TestCredentialListExpired(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	expired := now.Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "project_id", "kind", "secret_ref", "expires_at", "metadata", "created_at", "updated_at"}).
		AddRow(int64(3), int64(1), "api_key", "vault://svc/key", expired, []byte(`{}`), now, now)
	mock.ExpectQuery("where expires_at is not null and expires_at").
		WithArgs(now).
		WillReturnRows(rows)

	got, err := store.Credentials().ListExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(got) != 1 || got[0].ExpiresAt == nil || !got[0].ExpiresAt.Equal(expired) {
		t.Fatalf("unexpected credentials: %+v", got)
	}
	if got[0].Metadata != nil {
		t.Fatalf("empty metadata should decode to nil, got %v", got[0].Metadata)
	}
	checkExpectations(t, mock)
}

func TestAttachCredentialDuplicatePair(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into service_credentials").
		WithArgs(int64(10), int64(3), registry.UsageDefault).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.ServiceInstances().AttachCredential(context.Background(), 10, 3, registry.UsageDefault)
	if !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("duplicate link = %v, want ErrConflict", err)
	}
	checkExpectations(t, mock)
}
