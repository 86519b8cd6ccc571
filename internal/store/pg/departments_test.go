package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"procmap.org/internal/department"
)

var departmentColumns = []string{
	"id", "name", "slug", "description", "active", "created_at", "updated_at",
	"cu_id", "cu_name", "cu_email", "uu_id", "uu_name", "uu_email",
	"process_count", "systemic_count", "manual_count", "documented_count",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func newMockDepartmentStore(t *testing.T) (*DepartmentStore, sqlmock.Sqlmock) {
	t.Helper()
	store, mock := newMockStore(t)
	return store.Departments(), mock
}

func TestPerEntityStoresShareConnection(t *testing.T) {
	store, _ := newMockStore(t)
	if store.Departments().db != store.db {
		t.Fatalf("department store should reuse the base pool")
	}
	if store.Processes().db != store.db {
		t.Fatalf("process store should reuse the base pool")
	}
	if store.Users().db != store.db {
		t.Fatalf("user store should reuse the base pool")
	}
}

func TestDepartmentGetDerivesStats(t *testing.T) {
	store, mock := newMockDepartmentStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select d.id, d.name, d.slug").
		WithArgs("dep-1").
		WillReturnRows(sqlmock.NewRows(departmentColumns).AddRow(
			"dep-1", "Recursos Humanos", "rh", "Gente e gestão", true, now, now,
			"user-1", "Admin", "admin@procmap.org", nil, nil, nil,
			4, 2, 1, 3,
		))

	dept, err := store.Get(context.Background(), "dep-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if dept.Stats.ProcessCount != 4 || dept.Stats.SystemicCount != 2 || dept.Stats.ManualCount != 1 {
		t.Fatalf("unexpected stats: %+v", dept.Stats)
	}
	if dept.Stats.DocumentedPercent != 75 {
		t.Fatalf("documented percent = %d, want 75", dept.Stats.DocumentedPercent)
	}
	if dept.CreatedBy == nil || dept.CreatedBy.Email != "admin@procmap.org" {
		t.Fatalf("creator summary not mapped: %+v", dept.CreatedBy)
	}
	if dept.UpdatedBy != nil {
		t.Fatalf("expected nil updater, got %+v", dept.UpdatedBy)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDepartmentGetNotFound(t *testing.T) {
	store, mock := newMockDepartmentStore(t)

	mock.ExpectQuery("select d.id, d.name, d.slug").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(departmentColumns))

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, department.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDepartmentCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMockDepartmentStore(t)

	mock.ExpectExec("insert into departments").
		WithArgs(sqlmock.AnyArg(), "Financeiro", "financeiro", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "departments_slug_key"})

	_, err := store.Create(context.Background(), department.CreateInput{Name: "Financeiro", Slug: "financeiro"}, "user-1")
	if !errors.Is(err, department.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestDepartmentUpdateOnlyTouchedColumns(t *testing.T) {
	store, mock := newMockDepartmentStore(t)
	now := time.Now().UTC()
	name := "Tecnologia da Informação"

	mock.ExpectExec("update departments set name =").
		WithArgs(name, "user-1", "dep-3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select d.id, d.name, d.slug").
		WithArgs("dep-3").
		WillReturnRows(sqlmock.NewRows(departmentColumns).AddRow(
			"dep-3", name, "ti", "", true, now, now,
			nil, nil, nil, "user-1", "Admin", "admin@procmap.org",
			0, 0, 0, 0,
		))

	dept, err := store.Update(context.Background(), "dep-3", department.UpdateInput{Name: &name}, "user-1")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if dept.Name != name {
		t.Fatalf("name = %q", dept.Name)
	}
	if dept.Stats.DocumentedPercent != 0 {
		t.Fatalf("empty department must report 0 percent, got %d", dept.Stats.DocumentedPercent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDepartmentUpdateNoRows(t *testing.T) {
	store, mock := newMockDepartmentStore(t)
	name := "Novo"

	mock.ExpectExec("update departments set name =").
		WithArgs(name, "user-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.Update(context.Background(), "missing", department.UpdateInput{Name: &name}, "user-1")
	if !errors.Is(err, department.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDepartmentDeleteMapsForeignKeyViolation(t *testing.T) {
	store, mock := newMockDepartmentStore(t)

	mock.ExpectExec("delete from departments").
		WithArgs("dep-1").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "processes_department_id_fkey"})

	err := store.Delete(context.Background(), "dep-1")
	if !errors.Is(err, department.ErrHasProcesses) {
		t.Fatalf("err = %v, want ErrHasProcesses", err)
	}
}

func TestDepartmentExistsExcludesSelf(t *testing.T) {
	store, mock := newMockDepartmentStore(t)

	mock.ExpectQuery("select exists").
		WithArgs("Marketing", "marketing", "dep-4").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := store.ExistsWithNameOrSlug(context.Background(), "Marketing", "marketing", "dep-4")
	if err != nil {
		t.Fatalf("ExistsWithNameOrSlug: %v", err)
	}
	if exists {
		t.Fatal("expected no clash when the only match is the excluded row")
	}
}
