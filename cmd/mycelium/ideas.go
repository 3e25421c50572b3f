package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/controlplane"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/graph"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Inspect and drive the idea graph",
}

var ideasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ideas",
	RunE:  runIdeasList,
}

var ideasShowCmd = &cobra.Command{
	Use:   "show [idea-id]",
	Short: "Show an idea with its lineage and attempt history",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeasShow,
}

var ideasAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an idea by hand",
	RunE:  runIdeasAdd,
}

var ideasTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Generate and test due ideas without promoting",
	RunE:  runIdeasTest,
}

var ideasWireCmd = &cobra.Command{
	Use:   "wire",
	Short: "Promote working ideas whose implementation exists",
	RunE:  runIdeasWire,
}

var (
	ideaStatus      string
	ideaTitle       string
	ideaDesc        string
	ideaCategory    string
	ideaAlternative string
	probeKind       string
	probeTarget     string
	probeFreeTier   bool
)

func init() {
	ideasCmd.AddCommand(ideasListCmd, ideasShowCmd, ideasAddCmd, ideasTestCmd, ideasWireCmd)

	ideasListCmd.Flags().StringVar(&ideaStatus, "status", "", "Filter by status (generated, tested, working, failed, dead_end, wired_in)")

	ideasAddCmd.Flags().StringVar(&ideaTitle, "title", "", "Idea title (required)")
	ideasAddCmd.Flags().StringVar(&ideaDesc, "desc", "", "Idea description")
	ideasAddCmd.Flags().StringVar(&ideaCategory, "category", "", "Idea category")
	ideasAddCmd.Flags().StringVar(&ideaAlternative, "alternative", "", "Title of the alternate path to try if this one is retired")
	ideasAddCmd.Flags().StringVar(&probeKind, "probe-kind", models.ProbeCheckPath, "Probe kind (fetch_url, check_path, exec)")
	ideasAddCmd.Flags().StringVar(&probeTarget, "probe-target", "", "Probe target (URL, path or command line)")
	ideasAddCmd.Flags().BoolVar(&probeFreeTier, "free-tier", false, "Provider has a free tier, so an auth denial is not final")
	ideasAddCmd.MarkFlagRequired("title")
}

func runIdeasList(cmd *cobra.Command, args []string) error {
	var statuses []models.IdeaStatus
	if ideaStatus != "" {
		s := models.IdeaStatus(ideaStatus)
		if !s.Valid() {
			return errors.WithHint(errors.Newf("unknown status %q", ideaStatus),
				"use generated, tested, working, failed, dead_end or wired_in")
		}
		statuses = append(statuses, s)
	}

	svc := openService()
	defer svc.Close()
	printIdeas(svc.ListIdeas(statuses...))
	return nil
}

func runIdeasShow(cmd *cobra.Command, args []string) error {
	svc := openService()
	defer svc.Close()

	id, err := resolveID(svc, args[0])
	if err != nil {
		return err
	}
	d, err := svc.ShowIdea(id)
	if err != nil && d == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render("warning: "+err.Error()))
	}

	i := d.Idea
	fmt.Println(heading(i.Title))
	fmt.Printf("ID:          %s\n", i.ID)
	fmt.Printf("Status:      %s\n", statusLabel(i.Status))
	if i.Description != "" {
		fmt.Printf("Description: %s\n", i.Description)
	}
	if i.Category != "" {
		fmt.Printf("Category:    %s\n", i.Category)
	}
	if i.Probe.Kind != "" {
		fmt.Printf("Probe:       %s %s\n", i.Probe.Kind, i.Probe.Target)
	}
	fmt.Printf("Attempts:    %d\n", i.Attempts)
	if i.FailureClass != "" {
		fmt.Printf("Failure:     %s\n", i.FailureClass)
	}
	if i.HardWallReason != "" {
		fmt.Printf("Hard wall:   %s\n", i.HardWallReason)
	}
	if i.LastResult != "" {
		fmt.Printf("Last result: %s\n", truncate(i.LastResult, 100))
	}
	if i.WiredDate != "" {
		fmt.Printf("Wired:       %s\n", i.WiredDate)
	}
	fmt.Printf("Artifact:    %s (%s)\n", d.Artifact, d.Path)

	if len(d.Lineage) > 1 {
		fmt.Println()
		fmt.Println(heading("Lineage"))
		for depth, l := range d.Lineage {
			fmt.Printf("  %s%s %s %s\n", strings.Repeat("  ", depth), truncateID(l.ID), statusLabel(l.Status), l.Title)
		}
	}

	if len(d.Attempts) > 0 {
		fmt.Println()
		fmt.Println(heading("Attempts"))
		w := newTable(os.Stdout)
		fmt.Fprintln(w, "#\tSTARTED\tPASSED\tCODE\tCLASS\tDETAIL")
		for _, a := range d.Attempts {
			fmt.Fprintf(w, "%d\t%s\t%t\t%d\t%s\t%s\n", a.Attempt, a.StartedAt.Format("2006-01-02 15:04:05"), a.Passed, a.StatusCode, a.Class, truncate(a.Detail, 60))
		}
		w.Flush()
	}

	if len(d.Records) > 0 {
		fmt.Println()
		fmt.Println(heading("Decisions"))
		for _, r := range d.Records {
			fmt.Printf("  %s  %-18s %s %s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.Outcome, mutedStyle.Render(truncate(r.Details, 60)))
		}
	}
	return nil
}

func runIdeasAdd(cmd *cobra.Command, args []string) error {
	svc := openService()
	defer svc.Close()

	idea, err := svc.AddIdea(models.Candidate{
		Title:       ideaTitle,
		Description: ideaDesc,
		Category:    ideaCategory,
		Alternative: ideaAlternative,
		Probe: models.Probe{
			Kind:     probeKind,
			Target:   probeTarget,
			FreeTier: probeFreeTier,
		},
	})
	if errors.Is(err, graph.ErrDuplicate) {
		fmt.Printf("Already tracked: %s (%s)\n", idea.ID, idea.Status)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Created idea: %s\n", idea.ID)
	fmt.Printf("Stub:         %s\n", svc.Spawns().Path(idea.ID))
	return nil
}

func runIdeasTest(cmd *cobra.Command, args []string) error {
	svc := openService()
	defer svc.Close()

	rep, err := svc.TestIdeas(cmd.Context())
	printRunnerReport(rep)
	return fatalOnly(err)
}

func runIdeasWire(cmd *cobra.Command, args []string) error {
	svc := openService()
	defer svc.Close()

	rep, err := svc.WireIdeas(cmd.Context())
	printWirerReport(rep)
	if rep != nil {
		printSummary(rep.Summary)
	}
	return fatalOnly(err)
}

// resolveID accepts a full id or a unique prefix, as printed by "ideas list".
func resolveID(svc *controlplane.Service, arg string) (string, error) {
	if _, err := svc.Graph().Get(arg); err == nil {
		return arg, nil
	}
	var matches []string
	for _, i := range svc.Graph().All() {
		if strings.HasPrefix(i.ID, arg) {
			matches = append(matches, i.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.Wrapf(graph.ErrNotFound, "id %s", arg)
	case 1:
		return matches[0], nil
	default:
		return "", errors.WithHint(errors.Newf("id prefix %q is ambiguous", arg), "use more characters of the id")
	}
}
