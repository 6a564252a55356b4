package order

// Conflicts returns the requested seat labels that are already held,
// preserving the request order.  A non-empty result fails the whole
// batch: partial orders are never created.
func Conflicts(requested []string, taken map[string]struct{}) []string {
	var conflicts []string
	for _, s := range requested {
		if _, held := taken[s]; held {
			conflicts = append(conflicts, s)
		}
	}
	return conflicts
}
