package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"chatwoot-assignment-balancer/pkg/balancer"
	"chatwoot-assignment-balancer/pkg/chatwoot"
	"chatwoot-assignment-balancer/pkg/config"
	"chatwoot-assignment-balancer/pkg/metrics"
	"chatwoot-assignment-balancer/pkg/models"
	"chatwoot-assignment-balancer/pkg/payload"
)

// ErrFetchFailed signals that the remote API returned nothing resolvable
// into a conversation status.
var ErrFetchFailed = errors.New("failed to fetch conversation")

// AssignRequest carries the inputs of one auto-assignment run.
type AssignRequest struct {
	ConversationID any
	TeamID         any
	Reason         string
	Priority       any
	Notes          string
}

// Workflow runs the linear assignment pipeline:
// CheckAssigned -> AssignTeam -> SetPriority -> (MaybeAssignAgent) ->
// PostPrivateNote -> ReturnStatus. Each mutating step may short-circuit
// the run with its own step tag; only the final note is non-critical.
type Workflow struct {
	client   *chatwoot.Client
	balancer *balancer.Balancer
	config   *config.Config
	logger   *logrus.Logger
	metrics  *metrics.Metrics
}

func NewWorkflow(client *chatwoot.Client, bal *balancer.Balancer, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) *Workflow {
	return &Workflow{
		client:   client,
		balancer: bal,
		config:   cfg,
		logger:   logger,
		metrics:  m,
	}
}

// FetchStatus returns the normalized status of a conversation.
func (w *Workflow) FetchStatus(ctx context.Context, conversationID any) (*models.ConversationStatus, error) {
	raw := w.client.GetConversation(ctx, conversationID)
	item, ok := payload.AsMap(raw)
	if !ok || len(item) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, conversationID)
	}
	status := payload.SimplifyConversation(item, conversationID)
	return &status, nil
}

// AutoAssign runs the full pipeline for one conversation.
func (w *Workflow) AutoAssign(ctx context.Context, req AssignRequest) *Outcome {
	log := w.logger.WithFields(logrus.Fields{
		"conversation_id": req.ConversationID,
		"team_id":         req.TeamID,
	})

	// CheckAssigned: once a human or prior run has claimed the
	// conversation, no mutation is attempted. An unreadable status is
	// treated as unassigned and the pipeline proceeds.
	current, err := w.FetchStatus(ctx, req.ConversationID)
	if err == nil && current.Assigned() {
		log.WithField("assignee_id", current.Assignee.ID).Info("Conversation already assigned, skipping")
		return w.finish(&Outcome{Step: StepAlreadyAssigned, Status: current})
	}

	// AssignTeam
	code, res := w.client.AssignTeam(ctx, req.ConversationID, req.TeamID)
	if aborted(code) {
		log.WithField("status", code).Error("Team assignment failed")
		return w.finish(&Outcome{Step: StepAssignTeam, Raw: res})
	}

	// SetPriority
	priority := payload.NormalizePriority(req.Priority)
	priorityKey := payload.PriorityKey(priority)
	code, res = w.client.SetPriority(ctx, req.ConversationID, priority)
	if aborted(code) {
		log.WithField("status", code).Error("Priority update failed")
		return w.finish(&Outcome{Step: StepPriority, Raw: res})
	}

	// MaybeAssignAgent: only for configured trigger priorities. An empty
	// roster degrades gracefully; the conversation keeps the team.
	if w.config.Assignment.TriggersAutoAssign(priorityKey) {
		if assigneeID, ok := w.balancer.SelectLeastLoaded(ctx, req.TeamID, w.config.Assignment.StatusesForLoad); ok {
			code, res = w.client.AssignAgent(ctx, req.ConversationID, req.TeamID, assigneeID)
			if aborted(code) {
				log.WithField("status", code).Error("Agent assignment failed")
				return w.finish(&Outcome{Step: StepAssignAgent, Raw: res})
			}
			w.metrics.AgentSelections.WithLabelValues("assigned").Inc()
			log.WithField("assignee_id", assigneeID).Info("Assigned least-loaded agent")
		} else {
			w.metrics.AgentSelections.WithLabelValues("no_candidate").Inc()
			log.Warn("No agent candidate, keeping team-only assignment")
		}
	}

	// PostPrivateNote: failure here is non-fatal, the assignment already
	// committed. The caller still receives a well-formed status.
	note := composePrivateNote(req.Reason, priorityKey, req.Notes)
	code, res = w.client.PostPrivateNote(ctx, req.ConversationID, note)
	if aborted(code) {
		log.WithField("status", code).Warn("Private note failed, reporting status anyway")
		outcome := &Outcome{
			Step:           StepMessageError,
			MessageError:   res,
			ConversationID: req.ConversationID,
		}
		if status, err := w.FetchStatus(ctx, req.ConversationID); err == nil {
			outcome.Status = status
		} else {
			outcome.FetchFailed = true
		}
		return w.finish(outcome)
	}

	// ReturnStatus
	status, err := w.FetchStatus(ctx, req.ConversationID)
	if err != nil {
		return w.finish(&Outcome{FetchFailed: true, ConversationID: req.ConversationID})
	}
	return w.finish(&Outcome{Status: status})
}

func (w *Workflow) finish(o *Outcome) *Outcome {
	step := o.Step
	if step == "" {
		if o.FetchFailed {
			step = "fetch_failed"
		} else {
			step = "success"
		}
	}
	w.metrics.WorkflowOutcomes.WithLabelValues(step).Inc()
	return o
}

// aborted applies the shared short-circuit contract of the mutating steps:
// status 0 is a network-layer failure, >=400 a remote rejection.
func aborted(statusCode int) bool {
	return statusCode == 0 || statusCode >= 400
}

// composePrivateNote renders the fixed three-line transfer note. Blank
// notes fall back to a placeholder.
func composePrivateNote(reason, priority, notes string) string {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		trimmed = "-"
	}
	return fmt.Sprintf("Transfer reason: %s\nPriority: %s\nNotes: %s", reason, priority, trimmed)
}
