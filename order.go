package relay

import "sort"

// PolicyEntry holds a policy with its priority for auto-ordering.
type PolicyEntry struct {
	Policy   Policy
	Name     string
	Priority int
}

// Priority constants define the execution order for built-in policies when
// a [Pipeline] assembles them. Lower priority = outermost (executed first).
const (
	priorityFallback = 0 // outermost — last resort
	priorityTimeout  = 1 // global deadline
	priorityCache    = 2 // a hit must bypass everything inner
	priorityBreaker  = 3
	priorityThrottle = 4
	priorityBulkhead = 5
	priorityRetry    = 6
	priorityHedge    = 7 // innermost — closest to the transport
)

// SortPolicies sorts entries by priority (lowest first = outermost).
// Stable sort to preserve declaration order of entries with the same
// priority, including custom policies added at a shared priority.
func SortPolicies(entries []PolicyEntry) []Policy {
	if len(entries) == 0 {
		return nil
	}

	// Copy to avoid mutating the caller's slice.
	sorted := make([]PolicyEntry, 0, len(entries))
	sorted = append(sorted, entries...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	policies := make([]Policy, 0, len(sorted))
	for _, e := range sorted {
		policies = append(policies, e.Policy)
	}

	return policies
}
