package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"procmap.org/internal/department"
	"procmap.org/internal/ids"
)

var _ department.Store = (*DepartmentStore)(nil)

// departmentSelect aggregates child-process statistics per row so they are
// always derived from current data, never stored.
const departmentSelect = `
	select d.id, d.name, d.slug, coalesce(d.description, ''), d.active,
	       d.created_at, d.updated_at,
	       cu.id, cu.name, cu.email,
	       uu.id, uu.name, uu.email,
	       count(p.id) as process_count,
	       count(p.id) filter (where p.type = 'systemic') as systemic_count,
	       count(p.id) filter (where p.type = 'manual') as manual_count,
	       count(p.id) filter (where p.documented or coalesce(p.document_link, '') <> '') as documented_count
	from departments d
	left join users cu on cu.id = d.created_by
	left join users uu on uu.id = d.updated_by
	left join processes p on p.department_id = d.id
`

const departmentGroupBy = ` group by d.id, cu.id, uu.id`

func (s *DepartmentStore) List(ctx context.Context) ([]department.Department, error) {
	rows, err := s.db.QueryContext(ctx, departmentSelect+departmentGroupBy+` order by d.name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []department.Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}

func (s *DepartmentStore) Get(ctx context.Context, id string) (department.Department, error) {
	row := s.db.QueryRowContext(ctx, departmentSelect+` where d.id = $1`+departmentGroupBy, id)
	dept, err := scanDepartment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return department.Department{}, department.ErrNotFound
	}
	if err != nil {
		return department.Department{}, err
	}
	return dept, nil
}

func (s *DepartmentStore) ExistsWithNameOrSlug(ctx context.Context, name, slug, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(
			select 1 from departments
			where (name = $1 or slug = $2) and ($3 = '' or id <> $3)
		)
	`, name, slug, excludeID).Scan(&exists)
	return exists, err
}

func (s *DepartmentStore) Create(ctx context.Context, input department.CreateInput, actorID string) (department.Department, error) {
	id := ids.New()
	_, err := s.db.ExecContext(ctx, `
		insert into departments (id, name, slug, description, active, created_by)
		values ($1, $2, $3, $4, true, $5)
	`, id, input.Name, input.Slug, nullIfEmpty(input.Description), nullIfEmpty(actorID))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return department.Department{}, department.ErrConflict
		}
		return department.Department{}, err
	}
	return s.Get(ctx, id)
}

func (s *DepartmentStore) Update(ctx context.Context, id string, upd department.UpdateInput, actorID string) (department.Department, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Slug != nil {
		sets = append(sets, fmt.Sprintf("slug = $%d", idx))
		args = append(args, *upd.Slug)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if upd.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", idx))
		args = append(args, *upd.Active)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, fmt.Sprintf("updated_by = $%d", idx))
		args = append(args, nullIfEmpty(actorID))
		idx++
		sets = append(sets, "updated_at = now()")

		query := fmt.Sprintf(`update departments set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return department.Department{}, department.ErrConflict
			}
			return department.Department{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return department.Department{}, err
		}
		if aff == 0 {
			return department.Department{}, department.ErrNotFound
		}
	}
	return s.Get(ctx, id)
}

func (s *DepartmentStore) SetActive(ctx context.Context, id string, active bool, actorID string) (department.Department, error) {
	res, err := s.db.ExecContext(ctx, `
		update departments set active = $1, updated_by = $2, updated_at = now() where id = $3
	`, active, nullIfEmpty(actorID), id)
	if err != nil {
		return department.Department{}, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return department.Department{}, err
	}
	if aff == 0 {
		return department.Department{}, department.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *DepartmentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from departments where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return department.ErrHasProcesses
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return department.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (department.Department, error) {
	var (
		dept                             department.Department
		creatorID, creatorName, creatorEmail sql.NullString
		updaterID, updaterName, updaterEmail sql.NullString
		processCount, systemicCount      int
		manualCount, documentedCount     int
	)
	err := row.Scan(
		&dept.ID, &dept.Name, &dept.Slug, &dept.Description, &dept.Active,
		&dept.CreatedAt, &dept.UpdatedAt,
		&creatorID, &creatorName, &creatorEmail,
		&updaterID, &updaterName, &updaterEmail,
		&processCount, &systemicCount, &manualCount, &documentedCount,
	)
	if err != nil {
		return department.Department{}, err
	}
	dept.CreatedBy = userSummaryDept(creatorID, creatorName, creatorEmail)
	dept.UpdatedBy = userSummaryDept(updaterID, updaterName, updaterEmail)
	dept.Stats = department.Stats{
		ProcessCount:      processCount,
		SystemicCount:     systemicCount,
		ManualCount:       manualCount,
		DocumentedPercent: documentedPercent(documentedCount, processCount),
	}
	return dept, nil
}

func userSummaryDept(id, name, email sql.NullString) *department.UserSummary {
	if !id.Valid {
		return nil
	}
	return &department.UserSummary{ID: id.String, Name: name.String, Email: email.String}
}

func documentedPercent(documented, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(documented) / float64(total)))
}
