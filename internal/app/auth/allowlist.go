package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Route is an exact (method, path) pair.
type Route struct {
	Method string
	Path   string
}

// AllowList holds routes that skip token inspection entirely. Matching is
// exact: no prefixes, no wildcards, no trailing-slash folding.
type AllowList struct {
	routes map[Route]struct{}
}

func NewAllowList(routes ...Route) AllowList {
	m := make(map[Route]struct{}, len(routes))
	for _, r := range routes {
		m[Route{Method: strings.ToUpper(r.Method), Path: r.Path}] = struct{}{}
	}
	return AllowList{routes: m}
}

// DefaultAllowList lets anyone register and sign in.
func DefaultAllowList() AllowList {
	return NewAllowList(
		Route{Method: http.MethodPost, Path: "/api/users"},
		Route{Method: http.MethodPost, Path: "/api/signin"},
	)
}

// ParseAllowList reads entries of the form "METHOD /path".
func ParseAllowList(entries []string) (AllowList, error) {
	routes := make([]Route, 0, len(entries))
	for _, e := range entries {
		fields := strings.Fields(e)
		if len(fields) != 2 || !strings.HasPrefix(fields[1], "/") {
			return AllowList{}, fmt.Errorf("invalid public route %q (want \"METHOD /path\")", e)
		}
		routes = append(routes, Route{Method: fields[0], Path: fields[1]})
	}
	return NewAllowList(routes...), nil
}

func (a AllowList) Allows(method, path string) bool {
	_, ok := a.routes[Route{Method: strings.ToUpper(method), Path: path}]
	return ok
}

// Routes returns the entries in no particular order.
func (a AllowList) Routes() []Route {
	out := make([]Route, 0, len(a.routes))
	for r := range a.routes {
		out = append(out, r)
	}
	return out
}
