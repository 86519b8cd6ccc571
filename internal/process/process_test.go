package process

import (
	"context"
	"errors"
	"testing"

	"procmap.org/internal/util"
)

type stubStore struct {
	listFn          func(context.Context, ListFilters) ([]Process, error)
	getFn           func(context.Context, string) (Process, error)
	listChildrenFn  func(context.Context, string) ([]Process, error)
	createFn        func(context.Context, CreateInput, string) (Process, error)
	updateFn        func(context.Context, string, UpdateInput, string) (Process, error)
	setActiveFn     func(context.Context, string, bool, string) (Process, error)
	setDocumentedFn func(context.Context, string, bool, string) (Process, error)
	deleteFn        func(context.Context, string) error
}

func (s *stubStore) List(ctx context.Context, f ListFilters) ([]Process, error) {
	if s.listFn != nil {
		return s.listFn(ctx, f)
	}
	return nil, nil
}

func (s *stubStore) Get(ctx context.Context, id string) (Process, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return Process{}, ErrNotFound
}

func (s *stubStore) ListChildren(ctx context.Context, parentID string) ([]Process, error) {
	if s.listChildrenFn != nil {
		return s.listChildrenFn(ctx, parentID)
	}
	return nil, nil
}

func (s *stubStore) Create(ctx context.Context, input CreateInput, actorID string) (Process, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input, actorID)
	}
	return Process{}, nil
}

func (s *stubStore) Update(ctx context.Context, id string, upd UpdateInput, actorID string) (Process, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, upd, actorID)
	}
	return Process{}, nil
}

func (s *stubStore) SetActive(ctx context.Context, id string, active bool, actorID string) (Process, error) {
	if s.setActiveFn != nil {
		return s.setActiveFn(ctx, id, active, actorID)
	}
	return Process{}, nil
}

func (s *stubStore) SetDocumented(ctx context.Context, id string, documented bool, actorID string) (Process, error) {
	if s.setDocumentedFn != nil {
		return s.setDocumentedFn(ctx, id, documented, actorID)
	}
	return Process{}, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func existing(id string) func(context.Context, string) (Process, error) {
	return func(_ context.Context, got string) (Process, error) {
		if got != id {
			return Process{}, ErrNotFound
		}
		return Process{ID: id, Name: "Gestão de Incidentes", Type: "systemic", Active: true}, nil
	}
}

func TestCreateRequiredFields(t *testing.T) {
	svc, err := NewService(&stubStore{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cases := []CreateInput{
		{Type: "manual", DepartmentID: "dep-1"},
		{Name: "Onboarding", DepartmentID: "dep-1"},
		{Name: "Onboarding", Type: "manual"},
	}
	for i, input := range cases {
		if _, err := svc.Create(context.Background(), input, "actor-1"); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestCreateSurfacesInvalidReference(t *testing.T) {
	store := &stubStore{
		createFn: func(context.Context, CreateInput, string) (Process, error) {
			return Process{}, ErrInvalidReference
		},
	}
	svc, _ := NewService(store)

	input := CreateInput{Name: "Onboarding", Type: "manual", DepartmentID: "missing-dep"}
	if _, err := svc.Create(context.Background(), input, "actor-1"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestCreateNormalizesBlankParent(t *testing.T) {
	var got CreateInput
	store := &stubStore{
		createFn: func(_ context.Context, input CreateInput, _ string) (Process, error) {
			got = input
			return Process{ID: "proc-1"}, nil
		},
	}
	svc, _ := NewService(store)

	blank := "  "
	input := CreateInput{Name: "Onboarding", Type: "manual", DepartmentID: "dep-1", ParentID: &blank}
	if _, err := svc.Create(context.Background(), input, "actor-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ParentID != nil {
		t.Fatalf("blank parent id should become nil, got %v", *got.ParentID)
	}
}

func TestUpdateParentTriState(t *testing.T) {
	var captured UpdateInput
	store := &stubStore{
		getFn: existing("proc-1"),
		updateFn: func(_ context.Context, _ string, upd UpdateInput, _ string) (Process, error) {
			captured = upd
			return Process{ID: "proc-1"}, nil
		},
	}
	svc, _ := NewService(store)

	// Omitted: edge untouched.
	if _, err := svc.Update(context.Background(), "proc-1", UpdateInput{}, "actor-1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if captured.ParentID.IsSet {
		t.Fatal("omitted parent_id must not be marked set")
	}

	// Explicit null: detach.
	if _, err := svc.Update(context.Background(), "proc-1", UpdateInput{ParentID: util.Null[string]()}, "actor-1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !captured.ParentID.IsSet || !captured.ParentID.Null {
		t.Fatalf("explicit null must reach the store: %+v", captured.ParentID)
	}

	// Value: reconnect.
	if _, err := svc.Update(context.Background(), "proc-1", UpdateInput{ParentID: util.Some(" proc-2 ")}, "actor-1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !captured.ParentID.IsSet || captured.ParentID.Null || captured.ParentID.Val != "proc-2" {
		t.Fatalf("parent value must be trimmed and forwarded: %+v", captured.ParentID)
	}
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	svc, _ := NewService(&stubStore{getFn: existing("proc-1")})

	_, err := svc.Update(context.Background(), "proc-1", UpdateInput{ParentID: util.Some("proc-1")}, "actor-1")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateMissingProcess(t *testing.T) {
	svc, _ := NewService(&stubStore{})
	if _, err := svc.Update(context.Background(), "nope", UpdateInput{}, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListChildrenVerifiesParent(t *testing.T) {
	childrenCalled := false
	store := &stubStore{
		listChildrenFn: func(context.Context, string) ([]Process, error) {
			childrenCalled = true
			return nil, nil
		},
	}
	svc, _ := NewService(store)

	if _, err := svc.ListChildren(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if childrenCalled {
		t.Fatal("children must not be queried when the parent is missing")
	}
}

func TestTogglesFlipFlags(t *testing.T) {
	proc := Process{ID: "proc-1", Active: true, Documented: false}
	store := &stubStore{
		getFn: func(context.Context, string) (Process, error) { return proc, nil },
		setActiveFn: func(_ context.Context, _ string, active bool, _ string) (Process, error) {
			proc.Active = active
			return proc, nil
		},
		setDocumentedFn: func(_ context.Context, _ string, documented bool, _ string) (Process, error) {
			proc.Documented = documented
			return proc, nil
		},
	}
	svc, _ := NewService(store)

	got, err := svc.ToggleStatus(context.Background(), "proc-1", "actor-1")
	if err != nil {
		t.Fatalf("ToggleStatus: %v", err)
	}
	if got.Active {
		t.Fatal("expected active=false")
	}

	got, err = svc.ToggleDocumented(context.Background(), "proc-1", "actor-1")
	if err != nil {
		t.Fatalf("ToggleDocumented: %v", err)
	}
	if !got.Documented {
		t.Fatal("expected documented=true")
	}
}

func TestRemovePropagatesDependencyConflict(t *testing.T) {
	store := &stubStore{
		getFn:    existing("proc-1"),
		deleteFn: func(context.Context, string) error { return ErrHasDependents },
	}
	svc, _ := NewService(store)

	if err := svc.Remove(context.Background(), "proc-1"); !errors.Is(err, ErrHasDependents) {
		t.Fatalf("expected ErrHasDependents, got %v", err)
	}
}

func TestParseStatusFilter(t *testing.T) {
	if v, err := ParseStatusFilter(""); err != nil || v != nil {
		t.Fatalf("empty status: %v %v", v, err)
	}
	if v, err := ParseStatusFilter("Active"); err != nil || v == nil || !*v {
		t.Fatalf("active status: %v %v", v, err)
	}
	if v, err := ParseStatusFilter("inactive"); err != nil || v == nil || *v {
		t.Fatalf("inactive status: %v %v", v, err)
	}
	if _, err := ParseStatusFilter("bogus"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
