// Package department implements the department registry: CRUD with
// name/slug uniqueness and statistics derived from child processes.
package department

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("department not found")
	ErrConflict     = errors.New("department name or slug already in use")

	// ErrHasProcesses rejects deletion while processes still reference the
	// department. The store never cascades.
	ErrHasProcesses = errors.New("department still has processes attached")
)

// UserSummary identifies the creator or last updater of a record.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Stats is always recomputed from current child processes, never stored.
type Stats struct {
	ProcessCount      int `json:"process_count"`
	SystemicCount     int `json:"systemic_count"`
	ManualCount       int `json:"manual_count"`
	DocumentedPercent int `json:"documented_percent"`
}

// Department is a registry row annotated with actor summaries and stats.
type Department struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description,omitempty"`
	Active      bool         `json:"active"`
	CreatedBy   *UserSummary `json:"created_by,omitempty"`
	UpdatedBy   *UserSummary `json:"updated_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Stats       Stats        `json:"stats"`
}

// CreateInput carries the fields accepted on creation.
type CreateInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// UpdateInput carries partial updates; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// Store is the persistence contract for departments.
type Store interface {
	List(ctx context.Context) ([]Department, error)
	Get(ctx context.Context, id string) (Department, error)
	// ExistsWithNameOrSlug reports whether another department (excluding
	// excludeID, when non-empty) already uses the name or the slug.
	ExistsWithNameOrSlug(ctx context.Context, name, slug, excludeID string) (bool, error)
	Create(ctx context.Context, input CreateInput, actorID string) (Department, error)
	Update(ctx context.Context, id string, upd UpdateInput, actorID string) (Department, error)
	SetActive(ctx context.Context, id string, active bool, actorID string) (Department, error)
	Delete(ctx context.Context, id string) error
}

// Service validates inputs and enforces the uniqueness contract on top of a Store.
type Service struct {
	store Store
}

// NewService constructs the department registry service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("department store is required")
	}
	return &Service{store: store}, nil
}

// List returns all departments ordered by name ascending.
func (s *Service) List(ctx context.Context) ([]Department, error) {
	return s.store.List(ctx)
}

// Get returns a single department with its annotations.
func (s *Service) Get(ctx context.Context, id string) (Department, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Department{}, fmt.Errorf("%w: department id is required", ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// Create persists a new department after checking name/slug uniqueness.
// The pre-check gives a friendly conflict early; the unique indexes remain
// the authority when two creates race past it.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID string) (Department, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Slug = strings.TrimSpace(input.Slug)
	input.Description = strings.TrimSpace(input.Description)
	if input.Name == "" {
		return Department{}, fmt.Errorf("%w: department name is required", ErrInvalidInput)
	}
	if input.Slug == "" {
		return Department{}, fmt.Errorf("%w: department slug is required", ErrInvalidInput)
	}

	exists, err := s.store.ExistsWithNameOrSlug(ctx, input.Name, input.Slug, "")
	if err != nil {
		return Department{}, err
	}
	if exists {
		return Department{}, ErrConflict
	}
	return s.store.Create(ctx, input, actorID)
}

// Update persists partial changes, re-checking uniqueness when name or slug
// is being changed (excluding the record itself).
func (s *Service) Update(ctx context.Context, id string, upd UpdateInput, actorID string) (Department, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Department{}, fmt.Errorf("%w: department id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Department{}, fmt.Errorf("%w: department name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Slug != nil {
		slug := strings.TrimSpace(*upd.Slug)
		if slug == "" {
			return Department{}, fmt.Errorf("%w: department slug is required", ErrInvalidInput)
		}
		upd.Slug = &slug
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		upd.Description = &desc
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Department{}, err
	}

	if upd.Name != nil || upd.Slug != nil {
		name := current.Name
		if upd.Name != nil {
			name = *upd.Name
		}
		slug := current.Slug
		if upd.Slug != nil {
			slug = *upd.Slug
		}
		exists, err := s.store.ExistsWithNameOrSlug(ctx, name, slug, id)
		if err != nil {
			return Department{}, err
		}
		if exists {
			return Department{}, ErrConflict
		}
	}
	return s.store.Update(ctx, id, upd, actorID)
}

// ToggleStatus flips the active flag.
func (s *Service) ToggleStatus(ctx context.Context, id, actorID string) (Department, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Department{}, fmt.Errorf("%w: department id is required", ErrInvalidInput)
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Department{}, err
	}
	return s.store.SetActive(ctx, id, !current.Active, actorID)
}

// Remove deletes the department. Referential-integrity failures from the
// store surface as ErrHasProcesses; no cascading is attempted.
func (s *Service) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: department id is required", ErrInvalidInput)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
