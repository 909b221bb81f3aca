package middleware

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// MethodNotAllowed is installed with engine.NoMethod. It reports the methods
// registered for the requested path so the registry can set the Allow header.
func MethodNotAllowed(engine *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(NewMethodNotAllowedError(AllowedMethods(engine.Routes(), c.Request.URL.Path)))
	}
}

// AllowedMethods lists, sorted, the methods of every route whose pattern matches path.
func AllowedMethods(routes gin.RoutesInfo, path string) []string {
	seen := map[string]struct{}{}
	var methods []string
	for _, route := range routes {
		if _, dup := seen[route.Method]; dup {
			continue
		}
		if matchRoute(route.Path, path) {
			seen[route.Method] = struct{}{}
			methods = append(methods, route.Method)
		}
	}
	sort.Strings(methods)
	return methods
}

// matchRoute compares a gin pattern (":param", "*wildcard") against a request path.
func matchRoute(pattern, path string) bool {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	for i, part := range patternParts {
		if strings.HasPrefix(part, "*") {
			return true
		}
		if i >= len(pathParts) {
			return false
		}
		if strings.HasPrefix(part, ":") {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if part != pathParts[i] {
			return false
		}
	}
	return len(patternParts) == len(pathParts)
}
