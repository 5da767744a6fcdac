// Package providers maps the streaming services users can subscribe to
// onto TMDB watch provider IDs.
package providers

import "sort"

// providerIDs is the supported service catalog. Keys are the exact
// display names users pick from; values are TMDB watch provider IDs.
var providerIDs = map[string]int{
	"Netflix":      8,
	"Amazon Prime": 9,
	"Hulu":         15,
	"Disney+":      337,
}

// Names returns the supported service names in a stable order.
func Names() []string {
	names := make([]string, 0, len(providerIDs))
	for name := range providerIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSupported reports whether the service name is in the catalog.
func IsSupported(name string) bool {
	_, ok := providerIDs[name]
	return ok
}

// ID returns the TMDB provider ID for a service name.
func ID(name string) (int, bool) {
	id, ok := providerIDs[name]
	return id, ok
}

// IDsFor maps service names to TMDB provider IDs, skipping names that
// are not in the catalog. The result order follows the input order.
func IDsFor(names []string) []int {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		if id, ok := providerIDs[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Intersect returns the services present in every input set, in the
// order they appear in the first set. Comparing zero sets yields nil.
func Intersect(sets ...[]string) []string {
	if len(sets) == 0 {
		return nil
	}

	shared := make([]string, 0, len(sets[0]))
	for _, name := range sets[0] {
		inAll := true
		for _, other := range sets[1:] {
			found := false
			for _, candidate := range other {
				if candidate == name {
					found = true
					break
				}
			}
			if !found {
				inAll = false
				break
			}
		}
		if inAll {
			shared = append(shared, name)
		}
	}
	return shared
}
