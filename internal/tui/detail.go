package tui

import (
	"fmt"
	"strings"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

func renderDetail(idea models.Idea, lineage []models.Idea, attempts []models.AttemptRecord) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(idea.Title))
	b.WriteString("\n\n")

	b.WriteString(renderField("ID", idea.ID))
	b.WriteString(renderField("Status", FormatStatus(idea.Status)))
	if idea.Description != "" {
		b.WriteString(renderField("Description", idea.Description))
	}
	if idea.Probe.Kind != "" {
		b.WriteString(renderField("Probe", idea.Probe.Kind+" "+idea.Probe.Target))
	}
	b.WriteString(renderField("Attempts", fmt.Sprintf("%d", idea.Attempts)))
	if idea.HardWallReason != "" {
		b.WriteString(renderField("Hard wall", idea.HardWallReason))
	}
	if idea.LastResult != "" {
		b.WriteString(renderField("Last result", truncate(idea.LastResult, 100)))
	}
	if idea.WiredDate != "" {
		b.WriteString(renderField("Wired", idea.WiredDate))
	}
	b.WriteString(renderField("Created", idea.CreatedAt.Format("2006-01-02 15:04")))

	if len(lineage) > 1 {
		b.WriteString(sectionStyle.Render("Lineage"))
		b.WriteString("\n")
		for i, l := range lineage {
			fmt.Fprintf(&b, "  %s%s %s\n", strings.Repeat("  ", i), FormatStatus(l.Status), l.Title)
		}
	}

	if len(attempts) > 0 {
		b.WriteString(sectionStyle.Render("Attempts"))
		b.WriteString("\n")
		for i, at := range attempts {
			if i >= 5 {
				fmt.Fprintf(&b, "  ... and %d more attempts\n", len(attempts)-5)
				break
			}
			result := statusStyles[models.StatusWorking].Render("pass")
			if !at.Passed {
				result = statusStyles[models.StatusFailed].Render(string(at.Class))
			}
			fmt.Fprintf(&b, "  #%d %s %s\n", at.Attempt, at.StartedAt.Format("01-02 15:04"), result)
			if at.Detail != "" {
				fmt.Fprintf(&b, "    → %s\n", truncate(at.Detail, 90))
			}
		}
	}

	return b.String()
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
