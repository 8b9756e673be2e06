package payload

import "chatwoot-assignment-balancer/pkg/models"

// DefaultListKeys are the common wrapper keys probed when a listing
// endpoint nests its array under an envelope object.
var DefaultListKeys = []string{"data", "results", "items", "payload", "conversations", "list", "records"}

// ExtractListLike pulls the first array found under preferredKeys, in
// order, from a mapping payload. An array payload is returned unchanged; a
// mapping with no array under the preferred keys is wrapped as a
// single-element list; nil and scalar payloads yield an empty list.
func ExtractListLike(payload any, preferredKeys []string) []any {
	switch p := payload.(type) {
	case nil:
		return []any{}
	case []any:
		return p
	case map[string]any:
		for _, k := range preferredKeys {
			if v, ok := p[k].([]any); ok {
				return v
			}
		}
		return []any{p}
	default:
		return []any{}
	}
}

// memberMatcher attempts to read one team-member shape out of a raw roster
// item. Matchers run in order; the first hit wins.
type memberMatcher func(map[string]any) (models.TeamMember, bool)

var memberMatchers = []memberMatcher{
	matchDirectMember,
	matchPrefixedMember,
	matchNestedUserMember,
}

// PickTeamMember resolves a raw roster item into a TeamMember, trying each
// known payload shape in order. Unrecognized shapes return false; callers
// drop them silently rather than failing the roster fetch.
func PickTeamMember(raw any) (models.TeamMember, bool) {
	item, ok := AsMap(raw)
	if !ok {
		return models.TeamMember{}, false
	}
	for _, match := range memberMatchers {
		if m, ok := match(item); ok {
			return m, true
		}
	}
	return models.TeamMember{}, false
}

// Shape: {"id": ..., "name"|"full_name": ...}
func matchDirectMember(item map[string]any) (models.TeamMember, bool) {
	id, hasID := item["id"]
	_, hasName := item["name"]
	_, hasFull := item["full_name"]
	if !hasID || (!hasName && !hasFull) {
		return models.TeamMember{}, false
	}
	name := item["name"]
	if !truthy(name) {
		name = item["full_name"]
	}
	return models.TeamMember{ID: ScalarString(id), Name: ScalarString(name)}, true
}

// Shape: {"user_id": ..., "user_name": ...} or {"member_id": ..., "member_name": ...}
func matchPrefixedMember(item map[string]any) (models.TeamMember, bool) {
	shapes := []struct {
		idKey    string
		nameKeys []string
	}{
		{"user_id", []string{"user_name", "name", "full_name"}},
		{"member_id", []string{"member_name", "name", "full_name"}},
	}
	for _, s := range shapes {
		id, ok := item[s.idKey]
		if !ok {
			continue
		}
		for _, nk := range s.nameKeys {
			if truthy(item[nk]) {
				return models.TeamMember{ID: ScalarString(id), Name: ScalarString(item[nk])}, true
			}
		}
	}
	return models.TeamMember{}, false
}

// Shape: {"user": {"id"|"user_id": ..., "name"|"full_name"|"email": ...}}
func matchNestedUserMember(item map[string]any) (models.TeamMember, bool) {
	user, ok := AsMap(item["user"])
	if !ok {
		return models.TeamMember{}, false
	}
	id := user["id"]
	if !truthy(id) {
		id = user["user_id"]
	}
	name := user["name"]
	if !truthy(name) {
		name = user["full_name"]
	}
	if !truthy(name) {
		name = user["email"]
	}
	if !truthy(id) || !truthy(name) {
		return models.TeamMember{}, false
	}
	return models.TeamMember{ID: ScalarString(id), Name: ScalarString(name)}, true
}
