package conversation

import "sort"

// sortedKeys gives map iteration a stable order so repeated runs append
// participants identically.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
