package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"procmap.org/internal/ids"
	"procmap.org/internal/process"
)

var _ process.Store = (*ProcessStore)(nil)

// processSelect annotates every row with its department, parent, actor
// summaries and child/document counts.
const processSelect = `
	select p.id, p.name, coalesce(p.description, ''), p.type, coalesce(p.criticality, ''),
	       p.department_id, p.parent_id, p.tools, p.responsibles, p.document_link,
	       p.documented, p.active, p.position_x, p.position_y,
	       p.created_at, p.updated_at,
	       d.name, d.slug,
	       par.id, par.name,
	       cu.id, cu.name, cu.email,
	       uu.id, uu.name, uu.email,
	       (select count(*) from processes c where c.parent_id = p.id) as child_count,
	       (select count(*) from documents doc where doc.process_id = p.id) as document_count
	from processes p
	join departments d on d.id = p.department_id
	left join processes par on par.id = p.parent_id
	left join users cu on cu.id = p.created_by
	left join users uu on uu.id = p.updated_by
`

func (s *ProcessStore) List(ctx context.Context, filters process.ListFilters) ([]process.Process, error) {
	var (
		where []string
		args  []any
		idx   = 1
	)
	if filters.DepartmentID != "" {
		where = append(where, fmt.Sprintf("p.department_id = $%d", idx))
		args = append(args, filters.DepartmentID)
		idx++
	}
	if filters.Type != "" {
		where = append(where, fmt.Sprintf("p.type = $%d", idx))
		args = append(args, filters.Type)
		idx++
	}
	if filters.Active != nil {
		where = append(where, fmt.Sprintf("p.active = $%d", idx))
		args = append(args, *filters.Active)
		idx++
	}
	if filters.Documented != nil {
		where = append(where, fmt.Sprintf("p.documented = $%d", idx))
		args = append(args, *filters.Documented)
		idx++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(p.name ilike $%d or p.description ilike $%d)", idx, idx))
		args = append(args, "%"+filters.Search+"%")
		idx++
	}

	query := processSelect
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by p.created_at desc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []process.Process
	for rows.Next() {
		proc, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, proc)
	}
	return result, rows.Err()
}

func (s *ProcessStore) Get(ctx context.Context, id string) (process.Process, error) {
	row := s.db.QueryRowContext(ctx, processSelect+` where p.id = $1`, id)
	proc, err := scanProcess(row)
	if errors.Is(err, sql.ErrNoRows) {
		return process.Process{}, process.ErrNotFound
	}
	if err != nil {
		return process.Process{}, err
	}

	children, err := s.childSummaries(ctx, id)
	if err != nil {
		return process.Process{}, err
	}
	proc.Children = children

	documents, err := s.documents(ctx, id)
	if err != nil {
		return process.Process{}, err
	}
	proc.Documents = documents
	return proc, nil
}

func (s *ProcessStore) ListChildren(ctx context.Context, parentID string) ([]process.Process, error) {
	rows, err := s.db.QueryContext(ctx, processSelect+` where p.parent_id = $1 order by p.name asc`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []process.Process
	for rows.Next() {
		proc, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, proc)
	}
	return result, rows.Err()
}

func (s *ProcessStore) Create(ctx context.Context, input process.CreateInput, actorID string) (process.Process, error) {
	id := ids.New()
	tools, err := encodeList(input.Tools)
	if err != nil {
		return process.Process{}, err
	}
	responsibles, err := encodeList(input.Responsibles)
	if err != nil {
		return process.Process{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		insert into processes (
			id, name, description, type, criticality, department_id, parent_id,
			tools, responsibles, document_link, documented, active,
			position_x, position_y, created_by
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true, $12, $13, $14)
	`,
		id, input.Name, nullIfEmpty(input.Description), input.Type, nullIfEmpty(input.Criticality),
		input.DepartmentID, nullFromPtr(input.ParentID),
		tools, responsibles, nullFromPtr(input.DocumentLink), input.Documented,
		input.Position.X, input.Position.Y, nullIfEmpty(actorID),
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return process.Process{}, process.ErrInvalidReference
		}
		return process.Process{}, err
	}
	return s.Get(ctx, id)
}

func (s *ProcessStore) Update(ctx context.Context, id string, upd process.UpdateInput, actorID string) (process.Process, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", nullIfEmpty(*upd.Description))
	}
	if upd.Type != nil {
		add("type", *upd.Type)
	}
	if upd.Criticality != nil {
		add("criticality", nullIfEmpty(*upd.Criticality))
	}
	if upd.DepartmentID != nil {
		add("department_id", *upd.DepartmentID)
	}
	if upd.ParentID.IsSet {
		if upd.ParentID.Null {
			sets = append(sets, "parent_id = null")
		} else {
			add("parent_id", upd.ParentID.Val)
		}
	}
	if upd.Tools != nil {
		tools, err := encodeList(*upd.Tools)
		if err != nil {
			return process.Process{}, err
		}
		add("tools", tools)
	}
	if upd.Responsibles != nil {
		responsibles, err := encodeList(*upd.Responsibles)
		if err != nil {
			return process.Process{}, err
		}
		add("responsibles", responsibles)
	}
	// document_link is written unconditionally: an omitted field clears it.
	add("document_link", nullFromPtr(upd.DocumentLink))
	if upd.Documented != nil {
		add("documented", *upd.Documented)
	}
	if upd.Active != nil {
		add("active", *upd.Active)
	}
	if upd.Position != nil {
		add("position_x", upd.Position.X)
		add("position_y", upd.Position.Y)
	}
	add("updated_by", nullIfEmpty(actorID))
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf(`update processes set %s where id = $%d`, strings.Join(sets, ", "), idx)
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return process.Process{}, process.ErrInvalidReference
		}
		return process.Process{}, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return process.Process{}, err
	}
	if aff == 0 {
		return process.Process{}, process.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *ProcessStore) SetActive(ctx context.Context, id string, active bool, actorID string) (process.Process, error) {
	return s.setFlag(ctx, id, "active", active, actorID)
}

func (s *ProcessStore) SetDocumented(ctx context.Context, id string, documented bool, actorID string) (process.Process, error) {
	return s.setFlag(ctx, id, "documented", documented, actorID)
}

func (s *ProcessStore) setFlag(ctx context.Context, id, column string, value bool, actorID string) (process.Process, error) {
	query := fmt.Sprintf(`update processes set %s = $1, updated_by = $2, updated_at = now() where id = $3`, column)
	res, err := s.db.ExecContext(ctx, query, value, nullIfEmpty(actorID), id)
	if err != nil {
		return process.Process{}, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return process.Process{}, err
	}
	if aff == 0 {
		return process.Process{}, process.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *ProcessStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from processes where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return process.ErrHasDependents
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return process.ErrNotFound
	}
	return nil
}

func (s *ProcessStore) childSummaries(ctx context.Context, parentID string) ([]process.Child, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, type, coalesce(criticality, ''), active, documented
		from processes where parent_id = $1 order by name asc
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []process.Child
	for rows.Next() {
		var c process.Child
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Criticality, &c.Active, &c.Documented); err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

func (s *ProcessStore) documents(ctx context.Context, processID string) ([]process.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, url, created_at
		from documents where process_id = $1 order by created_at asc
	`, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []process.Document
	for rows.Next() {
		var d process.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.URL, &d.CreatedAt); err != nil {
			return nil, err
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

func scanProcess(row rowScanner) (process.Process, error) {
	var (
		proc                             process.Process
		parentID, documentLink           sql.NullString
		toolsRaw, responsiblesRaw        []byte
		parentSummaryID, parentName      sql.NullString
		creatorID, creatorName, creatorEmail sql.NullString
		updaterID, updaterName, updaterEmail sql.NullString
		deptName, deptSlug               string
	)
	err := row.Scan(
		&proc.ID, &proc.Name, &proc.Description, &proc.Type, &proc.Criticality,
		&proc.DepartmentID, &parentID, &toolsRaw, &responsiblesRaw, &documentLink,
		&proc.Documented, &proc.Active, &proc.Position.X, &proc.Position.Y,
		&proc.CreatedAt, &proc.UpdatedAt,
		&deptName, &deptSlug,
		&parentSummaryID, &parentName,
		&creatorID, &creatorName, &creatorEmail,
		&updaterID, &updaterName, &updaterEmail,
		&proc.ChildCount, &proc.DocCount,
	)
	if err != nil {
		return process.Process{}, err
	}

	proc.ParentID = ptrFromNull(parentID)
	proc.DocumentLink = ptrFromNull(documentLink)
	proc.Department = &process.DepartmentSummary{ID: proc.DepartmentID, Name: deptName, Slug: deptSlug}
	if parentSummaryID.Valid {
		proc.Parent = &process.ParentSummary{ID: parentSummaryID.String, Name: parentName.String}
	}
	proc.CreatedBy = userSummaryProc(creatorID, creatorName, creatorEmail)
	proc.UpdatedBy = userSummaryProc(updaterID, updaterName, updaterEmail)

	if proc.Tools, err = decodeList(toolsRaw); err != nil {
		return process.Process{}, err
	}
	if proc.Responsibles, err = decodeList(responsiblesRaw); err != nil {
		return process.Process{}, err
	}
	return proc, nil
}

func userSummaryProc(id, name, email sql.NullString) *process.UserSummary {
	if !id.Valid {
		return nil
	}
	return &process.UserSummary{ID: id.String, Name: name.String, Email: email.String}
}

// String lists travel as jsonb so the stdlib driver stays array-agnostic.
func encodeList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func decodeList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}
