package httpapi

import (
	"net/http"
	"strings"
)

// RouteMeta declares the access rules for one route. Routes are listed
// explicitly so the whole protection surface is reviewable in one place.
type RouteMeta struct {
	Method string
	Path   string
	Public bool
	Roles  []string
}

// routeTable is ordered most-specific-first: the first matching entry wins,
// so a narrow rule placed above a broader one overrides it.
var routeTable = []RouteMeta{
	{Method: http.MethodGet, Path: "/healthz", Public: true},
	{Method: http.MethodGet, Path: "/readyz", Public: true},
	{Method: http.MethodGet, Path: "/metrics", Public: true},
	{Method: http.MethodGet, Path: "/v1/info", Public: true},
	{Method: http.MethodPost, Path: "/v1/auth/login", Public: true},

	{Method: http.MethodGet, Path: "/v1/departments"},
	{Method: http.MethodPost, Path: "/v1/departments"},
	{Method: http.MethodGet, Path: "/v1/departments/:id"},
	{Method: http.MethodPatch, Path: "/v1/departments/:id"},
	{Method: http.MethodPut, Path: "/v1/departments/:id"},
	{Method: http.MethodPatch, Path: "/v1/departments/:id/status"},
	{Method: http.MethodGet, Path: "/v1/departments/:id/processes"},
	{Method: http.MethodDelete, Path: "/v1/departments/:id", Roles: []string{"admin"}},

	{Method: http.MethodGet, Path: "/v1/processes"},
	{Method: http.MethodPost, Path: "/v1/processes"},
	{Method: http.MethodGet, Path: "/v1/processes/:id"},
	{Method: http.MethodPatch, Path: "/v1/processes/:id"},
	{Method: http.MethodPut, Path: "/v1/processes/:id"},
	{Method: http.MethodGet, Path: "/v1/processes/:id/children"},
	{Method: http.MethodPatch, Path: "/v1/processes/:id/status"},
	{Method: http.MethodPatch, Path: "/v1/processes/:id/documented"},
	{Method: http.MethodDelete, Path: "/v1/processes/:id", Roles: []string{"admin"}},

	{Method: http.MethodGet, Path: "/v1/events", Roles: []string{"admin"}},
}

// resolveRoute returns the metadata of the first table entry matching the
// request method and path. Pattern segments starting with ":" match any
// single non-empty path segment.
func resolveRoute(method, path string) (RouteMeta, bool) {
	for _, meta := range routeTable {
		if meta.Method != method {
			continue
		}
		if matchPath(meta.Path, path) {
			return meta, true
		}
	}
	return RouteMeta{}, false
}

func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}
	pseg := strings.Split(strings.Trim(pattern, "/"), "/")
	seg := strings.Split(strings.Trim(path, "/"), "/")
	if len(pseg) != len(seg) {
		return false
	}
	for i := range pseg {
		if strings.HasPrefix(pseg[i], ":") {
			if seg[i] == "" {
				return false
			}
			continue
		}
		if pseg[i] != seg[i] {
			return false
		}
	}
	return true
}
