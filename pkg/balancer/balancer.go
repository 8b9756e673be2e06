package balancer

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"chatwoot-assignment-balancer/pkg/chatwoot"
	"chatwoot-assignment-balancer/pkg/config"
	"chatwoot-assignment-balancer/pkg/metrics"
	"chatwoot-assignment-balancer/pkg/models"
	"chatwoot-assignment-balancer/pkg/payload"
)

// Listing envelopes differ between API versions; these are the wrapper
// keys probed per endpoint.
var (
	conversationListKeys = []string{"data", "payload", "conversations", "items", "results"}
	rosterListKeys       = []string{"team_members", "members", "data", "results", "items"}
)

// Balancer computes per-agent load for a team and picks the least-loaded
// agent. Every decision re-derives its counts from a fresh remote listing;
// nothing is cached between calls.
type Balancer struct {
	client  *chatwoot.Client
	config  *config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func NewBalancer(client *chatwoot.Client, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) *Balancer {
	return &Balancer{
		client:  client,
		config:  cfg,
		logger:  logger,
		metrics: m,
	}
}

// TeamMembers fetches the current roster for a team. Remote failure or an
// unrecognizable payload yields an empty roster; unrecognized entries are
// dropped silently.
func (b *Balancer) TeamMembers(ctx context.Context, teamID any) []models.TeamMember {
	raw := b.client.GetTeamMembers(ctx, teamID)
	if raw == nil {
		return nil
	}

	items := payload.ExtractListLike(raw, rosterListKeys)
	members := make([]models.TeamMember, 0, len(items))
	for _, item := range items {
		if m, ok := payload.PickTeamMember(item); ok {
			members = append(members, m)
		}
	}
	return members
}

// eachActiveConversation walks the paginated conversation listing for a
// team, invoking fn for every record in the requested statuses. The walk
// terminates on an empty page, a page shorter than the page size, or the
// hard page cap. Server-side team filtering may silently be unsupported,
// so every record's own team_id is re-validated before it is yielded.
func (b *Balancer) eachActiveConversation(ctx context.Context, teamID any, statuses []string, fn func(map[string]any)) {
	perPage := b.config.PerPage
	maxPages := b.config.MaxPages
	pages := 0

	for page := 1; page <= maxPages; page++ {
		raw := b.client.ListConversations(ctx, page, statuses, teamID)
		if raw == nil {
			break
		}

		convs := payload.ExtractListLike(raw, conversationListKeys)
		if len(convs) == 0 {
			break
		}
		pages++

		for _, c := range convs {
			conv, ok := payload.AsMap(c)
			if !ok {
				continue
			}
			if teamID != nil && conv["team_id"] != nil &&
				payload.ScalarString(conv["team_id"]) != payload.ScalarString(teamID) {
				continue
			}
			fn(conv)
		}

		if len(convs) < perPage {
			break
		}
	}

	b.metrics.LoadScanPages.Observe(float64(pages))
}

// ComputeLoad counts active conversations per assignee id within the team.
// Unassigned conversations are excluded.
func (b *Balancer) ComputeLoad(ctx context.Context, teamID any, statuses []string) models.LoadMap {
	loads := models.LoadMap{}
	b.eachActiveConversation(ctx, teamID, statuses, func(conv map[string]any) {
		aid := conv["assignee_id"]
		if aid == nil {
			return
		}
		loads[payload.ScalarString(aid)]++
	})
	return loads
}

// SelectLeastLoaded picks the agent with the fewest active conversations on
// the team. Members absent from the load map count as zero. Ties resolve to
// the smallest id, comparing numerically when both ids are all-digits.
// Returns false only when the roster is empty.
func (b *Balancer) SelectLeastLoaded(ctx context.Context, teamID any, statuses []string) (string, bool) {
	members := b.TeamMembers(ctx, teamID)
	if len(members) == 0 {
		b.logger.WithField("team_id", teamID).Warn("No team members available for assignment")
		return "", false
	}

	loads := b.ComputeLoad(ctx, teamID, statuses)

	type candidate struct {
		load int
		id   string
	}
	candidates := make([]candidate, 0, len(members))
	for _, m := range members {
		candidates = append(candidates, candidate{load: loads[m.ID], id: m.ID})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].load != candidates[j].load {
			return candidates[i].load < candidates[j].load
		}
		return lessAgentID(candidates[i].id, candidates[j].id)
	})

	chosen := candidates[0]
	b.logger.WithFields(logrus.Fields{
		"team_id":     teamID,
		"assignee_id": chosen.id,
		"load":        chosen.load,
	}).Info("Selected least-loaded agent")
	return chosen.id, true
}

// lessAgentID orders agent ids numerically when both are all-digits (a
// shorter digit run is the smaller number), lexicographically otherwise.
func lessAgentID(a, b string) bool {
	if payload.IsDigits(a) && payload.IsDigits(b) && len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
