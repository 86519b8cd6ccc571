package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"procmap.org/internal/audit"
	"procmap.org/internal/process"
)

func (a *API) handleProcessesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProcesses(w, r)
	case http.MethodPost:
		a.createProcess(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProcessResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/processes/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	type subRoute struct {
		suffix  string
		method  string
		handler func(http.ResponseWriter, *http.Request, string)
	}
	subRoutes := []subRoute{
		{"/children", http.MethodGet, a.listProcessChildren},
		{"/status", http.MethodPatch, a.toggleProcessStatus},
		{"/documented", http.MethodPatch, a.toggleProcessDocumented},
	}
	for _, sr := range subRoutes {
		if !strings.HasSuffix(path, sr.suffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimSuffix(path, sr.suffix), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "process not found")
			return
		}
		if r.Method != sr.method {
			methodNotAllowed(w, r, sr.method)
			return
		}
		sr.handler(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getProcess(w, r, path)
	case http.MethodPatch, http.MethodPut:
		a.updateProcess(w, r, path)
	case http.MethodDelete:
		a.deleteProcess(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listProcesses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	active, err := process.ParseStatusFilter(q.Get("status"))
	if err != nil {
		handleProcessError(w, r, err)
		return
	}

	var documented *bool
	switch strings.ToLower(strings.TrimSpace(q.Get("documented"))) {
	case "":
	case "true":
		v := true
		documented = &v
	case "false":
		v := false
		documented = &v
	default:
		writeError(w, r, http.StatusBadRequest, "documented must be true or false")
		return
	}

	items, err := a.processes.List(r.Context(), process.ListFilters{
		DepartmentID: q.Get("department_id"),
		Type:         q.Get("type"),
		Active:       active,
		Documented:   documented,
		Search:       q.Get("search"),
	})
	if err != nil {
		handleProcessError(w, r, err)
		return
	}
	if items == nil {
		items = []process.Process{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getProcess(w http.ResponseWriter, r *http.Request, id string) {
	proc, err := a.processes.Get(r.Context(), id)
	if err != nil {
		handleProcessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proc)
}

func (a *API) listProcessChildren(w http.ResponseWriter, r *http.Request, id string) {
	items, err := a.processes.ListChildren(r.Context(), id)
	if err != nil {
		handleProcessError(w, r, err)
		return
	}
	if items == nil {
		items = []process.Process{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) createProcess(w http.ResponseWriter, r *http.Request) {
	var input process.CreateInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	proc, err := a.processes.Create(r.Context(), input, actorID(r.Context()))
	if err != nil {
		handleProcessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "process.created", map[string]any{
		"process_id":    proc.ID,
		"department_id": proc.DepartmentID,
	})
	a.publish("process", "created", proc.ID, proc.Name)

	w.Header().Set("Location", "/v1/processes/"+proc.ID)
	writeJSON(w, http.StatusCreated, proc)
}

func (a *API) updateProcess(w http.ResponseWriter, r *http.Request, id string) {
	var upd process.UpdateInput
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	proc, err := a.processes.Update(r.Context(), id, upd, actorID(r.Context()))
	if err != nil {
		handleProcessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "process.updated", map[string]any{
		"process_id": proc.ID,
	})
	a.publish("process", "updated", proc.ID, proc.Name)

	writeJSON(w, http.StatusOK, proc)
}

func (a *API) toggleProcessStatus(w http.ResponseWriter, r *http.Request, id string) {
	proc, err := a.processes.ToggleStatus(r.Context(), id, actorID(r.Context()))
	if err != nil {
		handleProcessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "process.status_toggled", map[string]any{
		"process_id": proc.ID,
		"active":     proc.Active,
	})
	a.publish("process", "status_toggled", proc.ID, proc.Name)

	writeJSON(w, http.StatusOK, proc)
}

func (a *API) toggleProcessDocumented(w http.ResponseWriter, r *http.Request, id string) {
	proc, err := a.processes.ToggleDocumented(r.Context(), id, actorID(r.Context()))
	if err != nil {
		handleProcessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "process.documented_toggled", map[string]any{
		"process_id": proc.ID,
		"documented": proc.Documented,
	})
	a.publish("process", "documented_toggled", proc.ID, proc.Name)

	writeJSON(w, http.StatusOK, proc)
}

func (a *API) deleteProcess(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.processes.Remove(r.Context(), id); err != nil {
		handleProcessError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "process.deleted", map[string]any{
		"process_id": id,
	})
	a.publish("process", "deleted", id, "")

	w.WriteHeader(http.StatusNoContent)
}

func handleProcessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, process.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, process.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, process.ErrInvalidReference):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, process.ErrHasDependents):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
