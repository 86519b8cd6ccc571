package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"procmap.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var (
	ErrMissingCredentials = errors.New("missing bearer token")
	ErrInvalidCredentials = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("insufficient role")
)

// Guard inspects a request against its route metadata. A guard may return a
// derived request carrying extra context; returning an error aborts the chain.
type Guard interface {
	Check(r *http.Request, meta RouteMeta) (*http.Request, error)
}

// AccessGuard verifies the bearer token on non-public routes and attaches the
// decoded identity to the request context.
type AccessGuard struct{}

func (AccessGuard) Check(r *http.Request, meta RouteMeta) (*http.Request, error) {
	if meta.Public || r.Method == http.MethodOptions {
		return r, nil
	}

	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		return nil, err
	}

	claims, err := auth.ParseAndValidate(token)
	if err != nil {
		if errors.Is(err, auth.ErrMissingSecret) {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}
	return r.WithContext(auth.ContextWithIdentity(r.Context(), claims.Identity())), nil
}

// RoleGuard enforces the route's role list against the authenticated identity.
// Routes without roles admit any authenticated caller.
type RoleGuard struct{}

func (RoleGuard) Check(r *http.Request, meta RouteMeta) (*http.Request, error) {
	if len(meta.Roles) == 0 || r.Method == http.MethodOptions {
		return r, nil
	}
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil, ErrMissingCredentials
	}
	for _, role := range meta.Roles {
		if identity.Role == role {
			return r, nil
		}
	}
	return nil, ErrForbidden
}

// withGuards runs the ordered guard chain before dispatching to the mux.
// Requests that match no table entry run through the chain with empty
// metadata, which the access guard treats as protected. A handler registered
// without a table row therefore never ships open; the mux still answers 404
// or 405 once the caller authenticates.
func (a *API) withGuards(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, _ := resolveRoute(r.Method, r.URL.Path)
		req := r
		for _, g := range a.guards {
			var err error
			req, err = g.Check(req, meta)
			if err != nil {
				writeGuardError(w, r, err)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

func writeGuardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "authentication error")
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredentials
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", ErrMissingCredentials
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}
