package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"chatwoot-assignment-balancer/pkg/config"
	"chatwoot-assignment-balancer/pkg/workflow"
)

type Handler struct {
	workflow *workflow.Workflow
	config   *config.Config
	logger   *logrus.Logger
}

func NewHandler(wf *workflow.Workflow, cfg *config.Config, logger *logrus.Logger) *Handler {
	return &Handler{
		workflow: wf,
		config:   cfg,
		logger:   logger,
	}
}

// ConversationStatus returns the normalized status for one conversation.
func (h *Handler) ConversationStatus(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ConversationID any `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.ConversationID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id is required"})
		return
	}

	status, err := h.workflow.FetchStatus(r.Context(), request.ConversationID)
	if err != nil {
		h.logger.WithField("conversation_id", request.ConversationID).Warn("Conversation fetch failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           "fetch_failed",
			"conversation_id": request.ConversationID,
		})
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// AutoAssign runs the assignment workflow. A soft note-posting failure
// still returns 200 with the embedded detail; aborted mutating steps and
// unreadable final status map to 502.
func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ConversationID any    `json:"conversation_id"`
		TeamID         any    `json:"team_id"`
		Reason         string `json:"reason"`
		Priority       any    `json:"priority"`
		Notes          string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if request.ConversationID == nil || request.TeamID == nil || request.Reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "conversation_id, team_id and reason are required"})
		return
	}
	if request.Priority == nil {
		request.Priority = "low"
	}

	outcome := h.workflow.AutoAssign(r.Context(), workflow.AssignRequest{
		ConversationID: request.ConversationID,
		TeamID:         request.TeamID,
		Reason:         request.Reason,
		Priority:       request.Priority,
		Notes:          request.Notes,
	})

	code := http.StatusOK
	if outcome.Fatal() {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, outcome)

	h.logger.WithFields(logrus.Fields{
		"conversation_id": request.ConversationID,
		"team_id":         request.TeamID,
		"step":            outcome.Step,
		"fatal":           outcome.Fatal(),
	}).Debug("Auto-assign request processed")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"instance_id": h.config.InstanceID,
		"timestamp":   time.Now(),
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
