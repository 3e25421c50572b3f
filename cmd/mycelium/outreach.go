package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/outreach"
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Send verified, rate-limited outreach from the queue",
}

var outreachSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Process every unsent target in the outreach queue once",
	Long: `Every unsent target is verified before anything is delivered. Targets without
an address are flagged for manual action, placeholder or malformed addresses are
skipped, and deliveries stop at the per-run ceiling; the rest roll over to the
next run.`,
	RunE: runOutreachSend,
}

var outreachDryRun bool

func init() {
	outreachCmd.AddCommand(outreachSendCmd)
	outreachSendCmd.Flags().BoolVar(&outreachDryRun, "dry-run", false, "Verify and report without delivering or saving")
}

func runOutreachSend(cmd *cobra.Command, args []string) error {
	svc := openService()
	defer svc.Close()

	rep, err := svc.SendOutreach(cmd.Context(), outreachDryRun)
	if rep != nil {
		printOutreachReport(rep)
	}
	return fatalOnly(err)
}

func printOutreachReport(rep *outreach.Report) {
	title := "Outreach"
	if rep.DryRun {
		title += " (dry run)"
	}
	fmt.Println(heading(title))

	if len(rep.Results) > 0 {
		w := newTable(os.Stdout)
		fmt.Fprintln(w, "CATEGORY\tNAME\tTARGET\tSTATUS\tREASON")
		for _, r := range rep.Results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Category, truncate(r.Name, 30), truncate(r.Target, 40), statusText(r.Status), truncate(r.Reason, 60))
		}
		w.Flush()
	}

	fmt.Printf("sent %d, would send %d, manual %d, skipped %d, failed %d, deferred %d, already sent %d\n",
		rep.Sent, rep.WouldSend, rep.Manual, rep.Skipped, rep.Failed, rep.Deferred, rep.AlreadySent)
}

func statusText(s outreach.Status) string {
	switch s {
	case outreach.StatusSent, outreach.StatusWouldSend:
		return okStyle.Render(string(s))
	case outreach.StatusFailed:
		return errStyle.Render(string(s))
	case outreach.StatusSkipped, outreach.StatusManualRequired:
		return warnStyle.Render(string(s))
	default:
		return mutedStyle.Render(string(s))
	}
}
