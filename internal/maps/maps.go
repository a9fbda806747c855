package maps

import "sort"

func Keys[M ~map[K]V, K comparable, V any](m M) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

// SortedKeys returns the keys of m in ascending order. Use it wherever map
// iteration order would leak into output.
func SortedKeys[M ~map[string]V, V any](m M) []string {
	keys := Keys(m)
	sort.Strings(keys)
	return keys
}
