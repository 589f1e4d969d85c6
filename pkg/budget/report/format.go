package report

import (
	"fmt"
	"strings"
)

// FormatReport renders a report as multi-section plain text. The output is
// the data a UI renderer would consume; no terminal styling is applied.
func (a *Aggregator) FormatReport(report *Report) string {
	var sb strings.Builder

	sb.WriteString("PIPELINE USAGE REPORT\n")
	sb.WriteString("=====================\n")
	fmt.Fprintf(&sb, "Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	status := report.PipelineStatus
	sb.WriteString("\nPipeline\n")
	sb.WriteString("--------\n")
	fmt.Fprintf(&sb, "Tokens: %d / %d (%.1f%%)\n", status.TotalTokens, status.MaxTokens, status.TokenUsagePercent)
	fmt.Fprintf(&sb, "Cost:   $%.4f / $%.2f (%.1f%%)\n", status.TotalCostUSD, status.MaxCostUSD, status.CostUsagePercent)
	if status.LimitExceeded {
		sb.WriteString("*** PIPELINE BUDGET EXCEEDED ***\n")
	}
	if len(status.ExceededAgents) > 0 {
		fmt.Fprintf(&sb, "Exceeded agents: %s\n", strings.Join(status.ExceededAgents, ", "))
	}
	if len(status.WarningAgents) > 0 {
		fmt.Fprintf(&sb, "Warning agents:  %s\n", strings.Join(status.WarningAgents, ", "))
	}

	if len(report.AgentSummaries) > 0 {
		sb.WriteString("\nAgents\n")
		sb.WriteString("------\n")
		for _, s := range report.AgentSummaries {
			line := fmt.Sprintf("%-20s [%s] tokens=%d (%.1f%%) cost=$%.4f (%.1f%%)",
				s.Agent, s.Category, s.TotalTokens, s.TokenSharePercent, s.TotalCostUSD, s.CostSharePercent)
			if s.BudgetExceeded {
				line += " EXCEEDED"
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	if len(report.CategorySummaries) > 0 {
		sb.WriteString("\nCategories\n")
		sb.WriteString("----------\n")
		for _, c := range report.CategorySummaries {
			fmt.Fprintf(&sb, "%-20s agents=%d tokens=%d cost=$%.4f\n",
				c.Category, c.AgentCount, c.TotalTokens, c.TotalCostUSD)
		}
	}

	if len(report.TopConsumers) > 0 {
		sb.WriteString("\nTop Consumers\n")
		sb.WriteString("-------------\n")
		for i, s := range report.TopConsumers {
			fmt.Fprintf(&sb, "%d. %s ($%.4f)\n", i+1, s.Agent, s.TotalCostUSD)
		}
	}

	suggestions := a.Suggestions(report.PipelineStatus, report.AgentSummaries)
	if len(suggestions) > 0 {
		sb.WriteString("\nSuggestions\n")
		sb.WriteString("-----------\n")
		for _, s := range suggestions {
			fmt.Fprintf(&sb, "[%s] %s\n", s.Type, s.Message)
		}
	}

	return sb.String()
}
