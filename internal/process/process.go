// Package process implements the process registry: a forest of business
// processes nested under departments, with filterable listing, hierarchical
// integrity and toggle operations.
package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"procmap.org/internal/util"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("process not found")

	// ErrInvalidReference indicates a provided department or parent id that
	// does not resolve to an existing row.
	ErrInvalidReference = errors.New("referenced record does not exist")

	// ErrHasDependents rejects deletion while children or documents still
	// reference the process.
	ErrHasDependents = errors.New("process still has children or documents attached")
)

// UserSummary identifies the creator or last updater of a record.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DepartmentSummary is the owning department, as listed alongside a process.
type DepartmentSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ParentSummary is the parent edge of a non-root process.
type ParentSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Child is a direct child as embedded in a process detail.
type Child struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Criticality string `json:"criticality"`
	Active      bool   `json:"active"`
	Documented  bool   `json:"documented"`
}

// Document is a file or link attached to a process.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Position locates a process node on the diagram canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Process is a registry row. Children and Documents are populated on detail
// reads only; counts are always present.
type Process struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Type         string             `json:"type"`
	Criticality  string             `json:"criticality,omitempty"`
	DepartmentID string             `json:"department_id"`
	ParentID     *string            `json:"parent_id,omitempty"`
	Tools        []string           `json:"tools"`
	Responsibles []string           `json:"responsibles"`
	DocumentLink *string            `json:"document_link,omitempty"`
	Documented   bool               `json:"documented"`
	Active       bool               `json:"active"`
	Position     Position           `json:"position"`
	Department   *DepartmentSummary `json:"department,omitempty"`
	Parent       *ParentSummary     `json:"parent,omitempty"`
	CreatedBy    *UserSummary       `json:"created_by,omitempty"`
	UpdatedBy    *UserSummary       `json:"updated_by,omitempty"`
	Children     []Child            `json:"children,omitempty"`
	Documents    []Document         `json:"documents,omitempty"`
	ChildCount   int                `json:"child_count"`
	DocCount     int                `json:"document_count"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ListFilters are combined with AND; zero values mean "no restriction".
type ListFilters struct {
	DepartmentID string
	Type         string
	// Active is derived from the status query parameter ("active"/"inactive").
	Active     *bool
	Documented *bool
	// Search matches name or description case-insensitively.
	Search string
}

// CreateInput carries the fields accepted on creation.
type CreateInput struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	Criticality  string   `json:"criticality"`
	DepartmentID string   `json:"department_id"`
	ParentID     *string  `json:"parent_id"`
	Tools        []string `json:"tools"`
	Responsibles []string `json:"responsibles"`
	DocumentLink *string  `json:"document_link"`
	Documented   bool     `json:"documented"`
	Position     Position `json:"position"`
}

// UpdateInput carries partial updates. Nil fields are left unchanged, with two
// exceptions: ParentID is tri-state (absent keeps the edge, null detaches,
// a value reconnects), and DocumentLink is cleared whenever the field is
// omitted from the payload. The latter is a deliberate carry-over of the
// established API contract, not general partial-update semantics.
type UpdateInput struct {
	Name         *string              `json:"name"`
	Description  *string              `json:"description"`
	Type         *string              `json:"type"`
	Criticality  *string              `json:"criticality"`
	DepartmentID *string              `json:"department_id"`
	ParentID     util.Optional[string] `json:"parent_id"`
	Tools        *[]string            `json:"tools"`
	Responsibles *[]string            `json:"responsibles"`
	DocumentLink *string              `json:"document_link"`
	Documented   *bool                `json:"documented"`
	Active       *bool                `json:"active"`
	Position     *Position            `json:"position"`
}

// Store is the persistence contract for processes.
type Store interface {
	List(ctx context.Context, filters ListFilters) ([]Process, error)
	Get(ctx context.Context, id string) (Process, error)
	ListChildren(ctx context.Context, parentID string) ([]Process, error)
	Create(ctx context.Context, input CreateInput, actorID string) (Process, error)
	Update(ctx context.Context, id string, upd UpdateInput, actorID string) (Process, error)
	SetActive(ctx context.Context, id string, active bool, actorID string) (Process, error)
	SetDocumented(ctx context.Context, id string, documented bool, actorID string) (Process, error)
	Delete(ctx context.Context, id string) error
}

// Service validates inputs and enforces hierarchy rules on top of a Store.
type Service struct {
	store Store
}

// NewService constructs the process registry service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("process store is required")
	}
	return &Service{store: store}, nil
}

// List returns processes matching all provided filters, newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Process, error) {
	filters.DepartmentID = strings.TrimSpace(filters.DepartmentID)
	filters.Type = strings.TrimSpace(filters.Type)
	filters.Search = strings.TrimSpace(filters.Search)
	return s.store.List(ctx, filters)
}

// Get returns the full detail of a single process.
func (s *Service) Get(ctx context.Context, id string) (Process, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Process{}, fmt.Errorf("%w: process id is required", ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// ListChildren returns the direct children of a process ordered by name,
// after verifying the parent exists.
func (s *Service) ListChildren(ctx context.Context, id string) ([]Process, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: process id is required", ErrInvalidInput)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListChildren(ctx, id)
}

// Create persists a new process under the given department. A department or
// parent id the store cannot resolve surfaces as ErrInvalidReference.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID string) (Process, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Type = strings.TrimSpace(input.Type)
	input.DepartmentID = strings.TrimSpace(input.DepartmentID)
	if input.Name == "" {
		return Process{}, fmt.Errorf("%w: process name is required", ErrInvalidInput)
	}
	if input.Type == "" {
		return Process{}, fmt.Errorf("%w: process type is required", ErrInvalidInput)
	}
	if input.DepartmentID == "" {
		return Process{}, fmt.Errorf("%w: department_id is required", ErrInvalidInput)
	}
	if input.ParentID != nil {
		parent := strings.TrimSpace(*input.ParentID)
		if parent == "" {
			input.ParentID = nil
		} else {
			input.ParentID = &parent
		}
	}
	return s.store.Create(ctx, input, actorID)
}

// Update persists partial changes. See UpdateInput for the parent-edge and
// document-link semantics.
func (s *Service) Update(ctx context.Context, id string, upd UpdateInput, actorID string) (Process, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Process{}, fmt.Errorf("%w: process id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Process{}, fmt.Errorf("%w: process name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Type != nil {
		typ := strings.TrimSpace(*upd.Type)
		if typ == "" {
			return Process{}, fmt.Errorf("%w: process type is required", ErrInvalidInput)
		}
		upd.Type = &typ
	}
	if upd.DepartmentID != nil {
		dept := strings.TrimSpace(*upd.DepartmentID)
		if dept == "" {
			return Process{}, fmt.Errorf("%w: department_id must not be empty", ErrInvalidInput)
		}
		upd.DepartmentID = &dept
	}
	if upd.ParentID.IsSet && !upd.ParentID.Null {
		parent := strings.TrimSpace(upd.ParentID.Val)
		if parent == "" {
			return Process{}, fmt.Errorf("%w: parent_id must be an id or null", ErrInvalidInput)
		}
		if parent == id {
			return Process{}, fmt.Errorf("%w: a process cannot be its own parent", ErrInvalidInput)
		}
		upd.ParentID = util.Some(parent)
	}

	if _, err := s.store.Get(ctx, id); err != nil {
		return Process{}, err
	}
	return s.store.Update(ctx, id, upd, actorID)
}

// ToggleStatus flips the active flag.
func (s *Service) ToggleStatus(ctx context.Context, id, actorID string) (Process, error) {
	return s.toggle(ctx, id, actorID, s.store.SetActive, func(p Process) bool { return p.Active })
}

// ToggleDocumented flips the documented flag.
func (s *Service) ToggleDocumented(ctx context.Context, id, actorID string) (Process, error) {
	return s.toggle(ctx, id, actorID, s.store.SetDocumented, func(p Process) bool { return p.Documented })
}

func (s *Service) toggle(
	ctx context.Context,
	id, actorID string,
	set func(context.Context, string, bool, string) (Process, error),
	flag func(Process) bool,
) (Process, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Process{}, fmt.Errorf("%w: process id is required", ErrInvalidInput)
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Process{}, err
	}
	return set(ctx, id, !flag(current), actorID)
}

// Remove deletes the process. Referential-integrity failures from the store
// (children or documents still attached) surface as ErrHasDependents.
func (s *Service) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: process id is required", ErrInvalidInput)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ParseStatusFilter maps the status query parameter onto the active flag.
func ParseStatusFilter(status string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "":
		return nil, nil
	case "active":
		v := true
		return &v, nil
	case "inactive":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: status must be active or inactive", ErrInvalidInput)
	}
}
