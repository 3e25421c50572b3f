package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/runner"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/wirer"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one scheduled invocation: test ideas, promote ready ones, summarise",
	RunE:  runCycle,
}

func runCycle(cmd *cobra.Command, args []string) error {
	svc := openService()
	defer svc.Close()

	rep, err := svc.RunCycle(cmd.Context())
	if rep != nil {
		printRunnerReport(rep.Runner)
		printWirerReport(rep.Wirer)
		printSummary(rep.Summary)
		for _, w := range rep.Warnings {
			fmt.Println(warnStyle.Render("warning: " + w))
		}
	}
	return fatalOnly(err)
}

func printRunnerReport(rep *runner.Report) {
	if rep == nil {
		return
	}
	fmt.Println(heading("Runner"))
	fmt.Printf("generated %d (duplicates %d), tested %d: %s, %s, %s, children %d\n",
		rep.Generated, rep.Duplicates, rep.Tested,
		okStyle.Render(fmt.Sprintf("%d working", rep.Working)),
		warnStyle.Render(fmt.Sprintf("%d failed", rep.Failed)),
		errStyle.Render(fmt.Sprintf("%d dead end", rep.DeadEnds)),
		rep.Children)
	if len(rep.Results) == 0 {
		return
	}
	w := newTable(os.Stdout)
	fmt.Fprintln(w, "ID\tTITLE\tATTEMPT\tSTATUS\tREASON\tCHILD")
	for _, r := range rep.Results {
		reason := r.Reason
		if reason == "" {
			reason = truncate(r.Detail, 40)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", truncateID(r.IdeaID), truncate(r.Title, 40), r.Attempt, r.Status, reason, truncateID(r.ChildID))
	}
	w.Flush()
}

func printWirerReport(rep *wirer.Report) {
	if rep == nil {
		return
	}
	fmt.Println(heading("Wirer"))
	if len(rep.Entries) == 0 {
		fmt.Println("No working ideas to promote")
		return
	}
	w := newTable(os.Stdout)
	fmt.Fprintln(w, "ID\tTITLE\tACTION\tDETAIL")
	for _, e := range rep.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncateID(e.IdeaID), truncate(e.Title, 40), e.Action, truncate(e.Detail, 50))
	}
	w.Flush()
	fmt.Printf("promoted %d\n", rep.Promoted)
}
