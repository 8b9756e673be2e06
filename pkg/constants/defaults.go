package constants

// Canonical priority names in ascending order of urgency.
// Legacy numeric codes 0..3 map onto the same ordering.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Default pagination policy for conversation listing.
// MaxPages bounds worst-case cost; exceeding it silently would yield an
// incomplete load computation, so the walker stops exactly at the cap.
const (
	DefaultPerPage  = 50
	DefaultMaxPages = 200
)

// Default outbound request timeout in seconds.
const DefaultTimeoutSeconds = 15

// Remote API path fragments, relative to the account-scoped base path
// /api/v1/accounts/{account_id}.
const (
	PathTeamMembers    = "/teams/%s/team_members"
	PathConversations  = "/conversations"
	PathConversation   = "/conversations/%s"
	PathAssignments    = "/conversations/%s/assignments"
	PathTogglePriority = "/conversations/%s/toggle_priority"
	PathMessages       = "/conversations/%s/messages"
)

// Configuration environment variable names
const (
	EnvDomain     = "CHATWOOT_DOMAIN"
	EnvAccountID  = "CHATWOOT_ACCOUNT_ID"
	EnvToken      = "CHATWOOT_TOKEN"
	EnvPublicKey  = "PUBLIC_API_KEY"
	EnvTimeout    = "CHATWOOT_TIMEOUT"
	EnvConfigPath = "CHATWOOT_CONFIG_PATH"
	EnvPort       = "PORT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvPerPage    = "PER_PAGE"
	EnvMaxPages   = "MAX_PAGES"
)

// Assignment policy file keys and defaults.
const (
	ConfigKeyAutoAssign = "auto_assign_by_priority"
	ConfigKeyStatuses   = "statuses_for_load"
	ConfigKeyVerifyTLS  = "verify_tls"

	DefaultConfigPath = "chatwoot_config.yaml"
)

// DefaultAutoAssignPriorities returns the priorities that trigger agent
// auto-assignment when no policy file overrides them.
func DefaultAutoAssignPriorities() []string {
	return []string{PriorityUrgent}
}

// DefaultStatusesForLoad returns the conversation statuses counted as
// active load when no policy file overrides them.
func DefaultStatusesForLoad() []string {
	return []string{"open", "pending"}
}
