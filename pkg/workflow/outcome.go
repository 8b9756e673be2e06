package workflow

import (
	"encoding/json"

	"chatwoot-assignment-balancer/pkg/models"
)

// Step tags identify which stage of the assignment pipeline produced an
// outcome, so callers can branch without parsing error text.
const (
	StepAlreadyAssigned = "already_assigned"
	StepAssignTeam      = "assign_team"
	StepPriority        = "priority"
	StepAssignAgent     = "assign_agent"
	StepMessageError    = "message_error"
)

// Outcome is the tagged result of a workflow run. Exactly one of three
// shapes applies: a raw remote body from an aborted mutating step, a
// fetch-failure record, or a normalized conversation status (optionally
// annotated with a step tag and an embedded note failure).
type Outcome struct {
	Step           string
	Status         *models.ConversationStatus
	Raw            map[string]any
	MessageError   map[string]any
	FetchFailed    bool
	ConversationID any
}

// Fatal reports whether the outcome should surface as an upstream failure.
// A note-posting failure is deliberately non-fatal: the assignment itself
// already committed.
func (o *Outcome) Fatal() bool {
	if o.Raw != nil {
		return true
	}
	return o.FetchFailed && o.Step != StepMessageError
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	var m map[string]any
	switch {
	case o.Raw != nil:
		m = make(map[string]any, len(o.Raw)+1)
		for k, v := range o.Raw {
			m[k] = v
		}
	case o.FetchFailed:
		m = map[string]any{
			"error":           "fetch_failed",
			"conversation_id": o.ConversationID,
		}
	default:
		encoded, err := json.Marshal(o.Status)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(encoded, &m); err != nil {
			return nil, err
		}
	}

	if o.Step != "" {
		m["step"] = o.Step
	}
	if o.MessageError != nil {
		m["message_error"] = o.MessageError
	}
	return json.Marshal(m)
}
