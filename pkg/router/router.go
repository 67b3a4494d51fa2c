// Package router classifies a keyUrl into the resolver route that handles it.
package router

import (
	"strings"

	"key-resolver-go/pkg/types"
)

// markers are checked in priority order; the first substring found wins.
var markers = []struct {
	substr string
	route  types.Route
}{
	{"nanolinks", types.RouteNano},
	{"arolinks", types.RouteAro},
	{"lksfy", types.RouteLksfy},
}

// Classify returns the route for keyURL. Matching is case-sensitive substring
// containment; no match yields RouteFallback.
func Classify(keyURL string) types.Route {
	for _, m := range markers {
		if strings.Contains(keyURL, m.substr) {
			return m.route
		}
	}
	return types.RouteFallback
}
