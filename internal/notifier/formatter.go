package notifier

import (
	"fmt"
	"html"
	"strings"

	"ShareFlow/internal/funding"
	"ShareFlow/internal/model"
	"ShareFlow/internal/project"
)

// FormatFullyFunded announces that a project reached its funding target.
func FormatFullyFunded(p *model.Project) string {
	return fmt.Sprintf("🎉 <b>%s</b> is fully funded\n\nRaised: %.2f / %.2f\n",
		html.EscapeString(p.Name), p.FundingTotal, p.FundingTarget)
}

// FormatFundingStatus formats one project's progress and its recent
// snapshots, newest first.
func FormatFundingStatus(p *model.Project, history []model.FundingSnapshot) string {
	prog := funding.Compute(p.FundingState)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b>\n\n", html.EscapeString(p.Name)))
	if p.FundingTarget <= 0 {
		b.WriteString(fmt.Sprintf("Raised: %.2f (no target set)\n", p.FundingTotal))
	} else {
		b.WriteString(fmt.Sprintf("Raised: %.2f / %.2f (%.1f%%)\n", p.FundingTotal, p.FundingTarget, prog.PercentFunded))
		b.WriteString(progressBar(prog.PercentFunded))
		b.WriteString("\n")
		if !prog.IsFullyFunded {
			b.WriteString(fmt.Sprintf("Remaining: %.2f\n", prog.Remaining))
		}
	}

	if len(history) > 0 {
		b.WriteString("\n<b>Recent snapshots:</b>\n")
		for _, s := range history {
			b.WriteString(fmt.Sprintf("  %s  %.1f%%\n", s.RecordedAt.Format("2006-01-02 15:04"), s.PercentFunded))
		}
	}
	return b.String()
}

// progressBar renders pct as ten blocks.
func progressBar(pct float64) string {
	filled := int(pct / 10)
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

// FormatDriftWarning lists saved projects whose allocation does not sum to 100.
func FormatDriftWarning(entries []project.DriftEntry) string {
	var b strings.Builder
	b.WriteString("⚠️ <b>Unbalanced allocations</b>\n\n")
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("• %s (<code>%s</code>): off by %.2f%%\n",
			html.EscapeString(e.Name), e.ProjectID, e.Deficit))
	}
	b.WriteString("\nRates are unavailable until these are fixed.")
	return b.String()
}

// FormatProjectList formats the project overview returned by /projects.
func FormatProjectList(projects []model.Project) string {
	if len(projects) == 0 {
		return "No projects yet."
	}
	var b strings.Builder
	b.WriteString("📁 <b>Projects</b>\n\n")
	for i := range projects {
		p := &projects[i]
		prog := funding.Compute(p.FundingState)
		b.WriteString(fmt.Sprintf("• %s (<code>%s</code>) %d roles, %.0f%% funded\n",
			html.EscapeString(p.Name), p.ID, len(p.Roles), prog.PercentFunded))
	}
	return b.String()
}
