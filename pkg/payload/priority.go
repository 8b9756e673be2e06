package payload

import (
	"strings"

	"chatwoot-assignment-balancer/pkg/constants"
)

var priorityNames = map[int64]string{
	0: constants.PriorityLow,
	1: constants.PriorityMedium,
	2: constants.PriorityHigh,
	3: constants.PriorityUrgent,
}

var canonicalPriorities = map[string]struct{}{
	constants.PriorityLow:    {},
	constants.PriorityMedium: {},
	constants.PriorityHigh:   {},
	constants.PriorityUrgent: {},
}

// NormalizePriority maps legacy numeric codes 0..3 onto the canonical
// priority names and passes canonical names through. Any other value is
// returned unchanged; the remote API is the final judge of unknown values.
func NormalizePriority(v any) any {
	switch x := v.(type) {
	case float64:
		if name, ok := priorityNames[int64(x)]; ok && x == float64(int64(x)) {
			return name
		}
	case int:
		if name, ok := priorityNames[int64(x)]; ok {
			return name
		}
	case int64:
		if name, ok := priorityNames[x]; ok {
			return name
		}
	case string:
		if _, ok := canonicalPriorities[x]; ok {
			return x
		}
	}
	return v
}

// PriorityKey is the lowercased string form of a normalized priority, used
// for auto-assign trigger membership and the private note template.
func PriorityKey(v any) string {
	return strings.ToLower(ScalarString(NormalizePriority(v)))
}
