package report

import (
	"fmt"
	"strings"

	"mercator-hq/ganymede/pkg/budget"
)

// Suggestions derives optimization recommendations from a snapshot and its
// agent summaries. The rules are independent and may all fire in one call:
//
//   - increase: an agent at or above IncreasePercent of its token limit
//     but not yet hard-limited should get a bigger budget.
//   - decrease: a limited agent at or below DecreasePercent is
//     over-provisioned.
//   - rebalance: one agent consuming RebalanceSharePercent or more of the
//     pipeline total, with at least one other agent present, should donate
//     budget to its peers.
//   - warning: any agent past its hard limit yields a single pipeline-level
//     warning naming the exceeded agents.
func (a *Aggregator) Suggestions(status *budget.PipelineStatus, summaries []AgentSummary) []Suggestion {
	var suggestions []Suggestion

	for _, summary := range summaries {
		st, ok := status.Agents[summary.Agent]
		if !ok {
			continue
		}

		if st.TokenLimit != nil && st.TokenUsagePercent >= a.config.IncreasePercent && !st.LimitExceeded {
			suggestions = append(suggestions, Suggestion{
				Type:   SuggestionIncrease,
				Target: summary.Agent,
				Message: fmt.Sprintf("Agent %q is at %.1f%% of its token limit; consider increasing the limit",
					summary.Agent, st.TokenUsagePercent),
			})
		}

		if st.TokenLimit != nil && st.CurrentTokens > 0 && st.TokenUsagePercent <= a.config.DecreasePercent {
			suggestions = append(suggestions, Suggestion{
				Type:   SuggestionDecrease,
				Target: summary.Agent,
				Message: fmt.Sprintf("Agent %q uses only %.1f%% of its token limit; consider decreasing the limit",
					summary.Agent, st.TokenUsagePercent),
			})
		}

		if len(summaries) > 1 && summary.TokenSharePercent >= a.config.RebalanceSharePercent {
			suggestions = append(suggestions, Suggestion{
				Type:   SuggestionRebalance,
				Target: summary.Agent,
				Message: fmt.Sprintf("Agent %q consumes %.1f%% of pipeline tokens; consider rebalancing budget to other agents",
					summary.Agent, summary.TokenSharePercent),
			})
		}
	}

	if len(status.ExceededAgents) > 0 {
		names := strings.Join(status.ExceededAgents, ", ")
		suggestions = append(suggestions, Suggestion{
			Type:    SuggestionWarning,
			Target:  names,
			Message: fmt.Sprintf("Budget exceeded for: %s", names),
		})
	}

	return suggestions
}
