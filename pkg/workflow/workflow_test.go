package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwoot-assignment-balancer/pkg/balancer"
	"chatwoot-assignment-balancer/pkg/chatwoot"
	"chatwoot-assignment-balancer/pkg/config"
	"chatwoot-assignment-balancer/pkg/metrics"
)

var testMetrics = metrics.NewMetrics()

// fakeHelpdesk scripts the remote API for one workflow run and records
// every mutating call it receives.
type fakeHelpdesk struct {
	mu            sync.Mutex
	conversation  map[string]any   // GET /conversations/{id}
	members       []any            // GET /teams/{id}/team_members
	conversations []any            // GET /conversations (single short page)
	failWith      map[string]int   // endpoint suffix -> forced status code
	posts         []string         // recorded mutating endpoint suffixes
	postBodies    []map[string]any // bodies in call order
}

func (f *fakeHelpdesk) recordPost(suffix string, r *http.Request) map[string]any {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.posts = append(f.posts, suffix)
	f.postBodies = append(f.postBodies, body)
	f.mu.Unlock()
	return body
}

func (f *fakeHelpdesk) postCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

func (f *fakeHelpdesk) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/accounts/1")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(path, "/team_members"):
			json.NewEncoder(w).Encode(map[string]any{"payload": f.members})
		case r.Method == http.MethodGet && path == "/conversations":
			json.NewEncoder(w).Encode(map[string]any{"payload": f.conversations})
		case r.Method == http.MethodGet && strings.HasPrefix(path, "/conversations/"):
			json.NewEncoder(w).Encode(f.conversation)
		case r.Method == http.MethodPost:
			suffix := path[strings.LastIndex(path, "/")+1:]
			f.recordPost(suffix, r)
			if code, ok := f.failWith[suffix]; ok {
				w.WriteHeader(code)
				json.NewEncoder(w).Encode(map[string]any{"error": "remote rejection"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"id": 42})
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestWorkflow(t *testing.T, fake *fakeHelpdesk) (*Workflow, func()) {
	srv := httptest.NewServer(fake.handler())

	cfg := &config.Config{
		Domain:         srv.URL,
		AccountID:      "1",
		APIToken:       "test-token",
		TimeoutSeconds: 2,
		PerPage:        50,
		MaxPages:       200,
		Assignment: config.AssignmentConfig{
			AutoAssignPriorities: []string{"urgent"},
			StatusesForLoad:      []string{"open", "pending"},
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	client := chatwoot.NewClient(cfg, logger, testMetrics)
	bal := balancer.NewBalancer(client, cfg, logger, testMetrics)
	return NewWorkflow(client, bal, cfg, logger, testMetrics), srv.Close
}

func unassignedConversation() map[string]any {
	return map[string]any{
		"id":     42,
		"status": "open",
		"meta":   map[string]any{"team": map[string]any{"id": 7, "name": "Support"}},
	}
}

func baseRequest() AssignRequest {
	return AssignRequest{
		ConversationID: 42,
		TeamID:         7,
		Reason:         "customer escalation",
		Priority:       "low",
	}
}

func TestAutoAssign_NoOpWhenAlreadyAssigned(t *testing.T) {
	fake := &fakeHelpdesk{
		conversation: map[string]any{
			"id":     42,
			"status": "open",
			"meta": map[string]any{
				"assignee": map[string]any{"id": 5, "name": "Alice"},
			},
		},
	}
	wf, done := newTestWorkflow(t, fake)
	defer done()

	outcome := wf.AutoAssign(context.Background(), baseRequest())

	assert.Equal(t, StepAlreadyAssigned, outcome.Step)
	assert.False(t, outcome.Fatal())
	require.NotNil(t, outcome.Status)
	assert.Equal(t, float64(5), outcome.Status.Assignee.ID)
	assert.Empty(t, fake.postCalls(), "no mutating call may be issued")
}

func TestAutoAssign_AbortOnTeamAssignment(t *testing.T) {
	fake := &fakeHelpdesk{
		conversation: unassignedConversation(),
		failWith:     map[string]int{"assignments": http.StatusServiceUnavailable},
	}
	wf, done := newTestWorkflow(t, fake)
	defer done()

	outcome := wf.AutoAssign(context.Background(), baseRequest())

	assert.Equal(t, StepAssignTeam, outcome.Step)
	assert.True(t, outcome.Fatal())
	assert.NotNil(t, outcome.Raw)
	assert.Equal(t, []string{"assignments"}, fake.postCalls(), "no priority/agent/message call after the abort")
}

func TestAutoAssign_AbortOnPriority(t *testing.T) {
	fake := &fakeHelpdesk{
		conversation: unassignedConversation(),
		failWith:     map[string]int{"toggle_priority": http.StatusBadRequest},
	}
	wf, done := newTestWorkflow(t, fake)
	defer done()

	outcome := wf.AutoAssign(context.Background(), baseRequest())

	assert.Equal(t, StepPriority, outcome.Step)
	assert.True(t, outcome.Fatal())
	assert.Equal(t, []string{"assignments", "toggle_priority"}, fake.postCalls())
}

func TestAutoAssign_DegradesWhenRosterEmpty(t *testing.T) {
	fake := &fakeHelpdesk{
		conversation: unassignedConversation(),
		members:      []any{},
	}
	wf, done := newTestWorkflow(t, fake)
	defer done()

	req := baseRequest()
	req.Priority = "urgent"
	outcome := wf.AutoAssign(context.Background(), req)

	assert.Empty(t, outcome.Step, "degraded run still counts as success")
	assert.False(t, outcome.Fatal())
	require.NotNil(t, outcome.Status)
	assert.Nil(t, outcome.Status.Assignee.ID, "no agent was assigned")
	assert.Equal(t, []string{"assignments", "toggle_priority", "messages"}, fake.postCalls())
}

func TestAutoAssign_AssignsLeastLoadedAgent(t *testing.T) {
	fake := &fakeHelpdesk{
		conversation: unassignedConversation(),
		members: []any{
			map[string]any{"id": 1, "name": "Alice"},
			map[string]any{"id": 2, "name": "Bob"},
		},
		conversations: []any{
			map[string]any{"assignee_id": 1, "team_id": 7, "status": "open"},
		},
	}
	wf, done := newTestWorkflow(t, fake)
	defer done()

	req := baseRequest()
	req.Priority = 3 // legacy numeric code for urgent
	outcome := wf.AutoAssign(context.Background(), req)

	assert.False(t, outcome.Fatal())
	assert.Equal(t, []string{"assignments", "toggle_priority", "assignments", "messages"}, fake.postCalls())

	// Numeric code normalized before posting.
	assert.Equal(t, "urgent", fake.postBodies[1]["priority"])

	// Bob carries no load and wins the selection.
	agentAssign := fake.postBodies[2]
	assert.Equal(t, float64(7), agentAssign["team_id"])
	assert.Equal(t, "2", agentAssign["assignee_id"])
}

func TestAutoAssign_NonTriggerPrioritySkipsSelection(t *testing.T) {
	fake := &fakeHelpdesk{
		conversation: unassignedConversation(),
		members: []any{
			map[string]any{"id": 1, "name": "Alice"},
		},
	}
	wf, done := newTestWorkflow(t, fake)
	defer done()

	outcome := wf.AutoAssign(context.Background(), baseRequest()) // priority "low"

	assert.False(t, outcome.Fatal())
	assert.Equal(t, []string{"assignments", "toggle_priority", "messages"}, fake.postCalls())
}

func TestAutoAssign_NoteFailureIsSoft(t *testing.T) {
	fake := &fakeHelpdesk{
		conversation: unassignedConversation(),
		failWith:     map[string]int{"messages": http.StatusInternalServerError},
	}
	wf, done := newTestWorkflow(t, fake)
	defer done()

	outcome := wf.AutoAssign(context.Background(), baseRequest())

	assert.Equal(t, StepMessageError, outcome.Step)
	assert.False(t, outcome.Fatal(), "the assignment itself committed")
	assert.NotNil(t, outcome.MessageError)
	require.NotNil(t, outcome.Status)
	assert.Equal(t, float64(7), outcome.Status.Team.ID)

	encoded, err := json.Marshal(outcome)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(encoded, &m))
	assert.Equal(t, "message_error", m["step"])
	assert.NotContains(t, m, "error", "soft failure must not block the success path")
	assert.NotNil(t, m["message_error"])
}

func TestAutoAssign_PrivateNoteContent(t *testing.T) {
	fake := &fakeHelpdesk{conversation: unassignedConversation()}
	wf, done := newTestWorkflow(t, fake)
	defer done()

	req := baseRequest()
	req.Priority = "high"
	req.Notes = "  "
	wf.AutoAssign(context.Background(), req)

	require.Len(t, fake.postBodies, 3)
	note := fake.postBodies[2]
	assert.Equal(t, true, note["private"])
	assert.Equal(t, "Transfer reason: customer escalation\nPriority: high\nNotes: -", note["content"])
}

func TestFetchStatus_Failure(t *testing.T) {
	wf, done := newTestWorkflow(t, &fakeHelpdesk{})
	done() // unreachable backend

	_, err := wf.FetchStatus(context.Background(), 42)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestComposePrivateNote(t *testing.T) {
	note := composePrivateNote("handoff", "urgent", "VIP customer")
	assert.Equal(t, "Transfer reason: handoff\nPriority: urgent\nNotes: VIP customer", note)

	note = composePrivateNote("handoff", "low", "")
	assert.True(t, strings.HasSuffix(note, "Notes: -"))
}
