package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"procmap.org/internal/audit"
	"procmap.org/internal/department"
	"procmap.org/internal/process"
	"procmap.org/internal/stream"
)

func (a *API) handleDepartmentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listDepartments(w, r)
	case http.MethodPost:
		a.createDepartment(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDepartmentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/departments/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/status") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/status"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "department not found")
			return
		}
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		a.toggleDepartmentStatus(w, r, id)
		return
	}

	if strings.HasSuffix(path, "/processes") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/processes"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "department not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listDepartmentProcesses(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getDepartment(w, r, path)
	case http.MethodPatch, http.MethodPut:
		a.updateDepartment(w, r, path)
	case http.MethodDelete:
		a.deleteDepartment(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listDepartments(w http.ResponseWriter, r *http.Request) {
	items, err := a.departments.List(r.Context())
	if err != nil {
		handleDepartmentError(w, r, err)
		return
	}
	if items == nil {
		items = []department.Department{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getDepartment(w http.ResponseWriter, r *http.Request, id string) {
	dept, err := a.departments.Get(r.Context(), id)
	if err != nil {
		handleDepartmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dept)
}

func (a *API) createDepartment(w http.ResponseWriter, r *http.Request) {
	var input department.CreateInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	dept, err := a.departments.Create(r.Context(), input, actorID(r.Context()))
	if err != nil {
		handleDepartmentError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "department.created", map[string]any{
		"department_id": dept.ID,
		"slug":          dept.Slug,
	})
	a.publish("department", "created", dept.ID, dept.Name)

	w.Header().Set("Location", "/v1/departments/"+dept.ID)
	writeJSON(w, http.StatusCreated, dept)
}

func (a *API) updateDepartment(w http.ResponseWriter, r *http.Request, id string) {
	var upd department.UpdateInput
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	dept, err := a.departments.Update(r.Context(), id, upd, actorID(r.Context()))
	if err != nil {
		handleDepartmentError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "department.updated", map[string]any{
		"department_id": dept.ID,
	})
	a.publish("department", "updated", dept.ID, dept.Name)

	writeJSON(w, http.StatusOK, dept)
}

func (a *API) toggleDepartmentStatus(w http.ResponseWriter, r *http.Request, id string) {
	dept, err := a.departments.ToggleStatus(r.Context(), id, actorID(r.Context()))
	if err != nil {
		handleDepartmentError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "department.status_toggled", map[string]any{
		"department_id": dept.ID,
		"active":        dept.Active,
	})
	a.publish("department", "status_toggled", dept.ID, dept.Name)

	writeJSON(w, http.StatusOK, dept)
}

func (a *API) deleteDepartment(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.departments.Remove(r.Context(), id); err != nil {
		handleDepartmentError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "department.deleted", map[string]any{
		"department_id": id,
	})
	a.publish("department", "deleted", id, "")

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listDepartmentProcesses(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := a.departments.Get(r.Context(), id); err != nil {
		handleDepartmentError(w, r, err)
		return
	}
	items, err := a.processes.List(r.Context(), process.ListFilters{DepartmentID: id})
	if err != nil {
		handleProcessError(w, r, err)
		return
	}
	if items == nil {
		items = []process.Process{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) publish(entity, action, id, name string) {
	if a.stream == nil {
		return
	}
	a.stream.Publish(stream.ChangeEvent{Entity: entity, Action: action, ID: id, Name: name})
}

func handleDepartmentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, department.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, department.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, department.ErrConflict), errors.Is(err, department.ErrHasProcesses):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
