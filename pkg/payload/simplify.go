package payload

import (
	"strconv"

	"chatwoot-assignment-balancer/pkg/models"
)

// SimplifyConversation flattens a raw conversation payload (or a message
// payload carrying meta) into the fixed-shape status record. Assignee and
// team identity are resolved by trying three shapes in priority order:
// a nested meta object, a top-level object, then a flat scalar id.
func SimplifyConversation(raw any, idHint any) models.ConversationStatus {
	item, _ := AsMap(raw)

	convID := idHint
	if item != nil && truthy(item["id"]) {
		convID = item["id"]
	}

	status := models.ConversationStatus{
		ConversationID: coerceConversationID(convID),
	}
	if item == nil {
		return status
	}

	status.Status = item["status"]
	status.Priority = item["priority"]

	meta, _ := AsMap(item["meta"])

	status.Assignee = resolveParty(partyShapes{
		meta:     meta["assignee"],
		top:      item["assignee"],
		scalarID: item["assignee_id"],
		pickName: pickPersonName,
	})
	status.Team = resolveParty(partyShapes{
		meta:     meta["team"],
		top:      item["team"],
		scalarID: item["team_id"],
		pickName: pickTeamName,
	})

	return status
}

type partyShapes struct {
	meta     any
	top      any
	scalarID any
	pickName func(map[string]any) any
}

func resolveParty(s partyShapes) models.Party {
	var id, name any

	if m, ok := AsMap(s.meta); ok {
		id = m["id"]
		name = s.pickName(m)
	}
	if id == nil {
		if t, ok := AsMap(s.top); ok {
			id = t["id"]
			if name == nil {
				name = s.pickName(t)
			}
		}
	}
	if id == nil && s.scalarID != nil {
		id = s.scalarID
	}
	if name == nil && id != nil {
		name = ScalarString(id)
	}
	return models.Party{ID: id, Name: name}
}

// pickPersonName tolerates the name-field variants seen across API
// versions for people.
func pickPersonName(m map[string]any) any {
	for _, k := range []string{"name", "available_name", "email"} {
		if truthy(m[k]) {
			return m[k]
		}
	}
	return nil
}

func pickTeamName(m map[string]any) any {
	if truthy(m["name"]) {
		return m["name"]
	}
	return nil
}

// coerceConversationID turns an all-digits id into an integer and leaves
// everything else untouched, so non-numeric identifier schemes survive
// round trips without lossy coercion.
func coerceConversationID(v any) any {
	if v == nil {
		return nil
	}
	s := ScalarString(v)
	if !IsDigits(s) {
		return v
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return v
	}
	return n
}
