package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/tui"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/wirer"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)
)

func heading(s string) string { return headingStyle.Render(s) }

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printSummary(s wirer.Summary) {
	lines := []string{
		heading("Idea graph"),
		fmt.Sprintf("total      %d", s.Total),
		okStyle.Render(fmt.Sprintf("wired in   %d", s.WiredIn)),
		warnStyle.Render(fmt.Sprintf("working    %d", s.Working)),
		fmt.Sprintf("pending    %d", s.Pending),
		mutedStyle.Render(fmt.Sprintf("dead end   %d", s.DeadEnd)),
	}
	fmt.Println(boxStyle.Render(strings.Join(lines, "\n")))
}

func printIdeas(ideas []models.Idea) {
	if len(ideas) == 0 {
		fmt.Println("No ideas found")
		return
	}
	w := newTable(os.Stdout)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tATTEMPTS\tPARENT")
	for _, i := range ideas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", truncateID(i.ID), truncate(i.Title, 50), i.Status, i.Attempts, truncateID(i.ParentID))
	}
	w.Flush()
}

func statusLabel(s models.IdeaStatus) string {
	return tui.FormatStatus(s)
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
