package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/guard"
)

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Check outbound content against today's fingerprints",
	Long: `The fingerprint guard refuses to let any engine send the same content twice
on the same day. Content is hashed; only hashes are stored, and only for today.`,
}

var guardCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether content may be sent, recording it if so",
	RunE:  runGuardCheck,
}

var guardMarkCmd = &cobra.Command{
	Use:   "mark",
	Short: "Record content as sent",
	RunE:  runGuardMark,
}

var guardStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's fingerprint counts per engine",
	RunE:  runGuardStats,
}

var (
	guardEngine  string
	guardContent string
	guardDryRun  bool
)

func init() {
	guardCmd.AddCommand(guardCheckCmd, guardMarkCmd, guardStatsCmd)

	for _, c := range []*cobra.Command{guardCheckCmd, guardMarkCmd} {
		c.Flags().StringVar(&guardEngine, "engine", "", "Engine name (required)")
		c.Flags().StringVar(&guardContent, "content", "", `Content to fingerprint, or "-" for stdin (required)`)
		c.MarkFlagRequired("engine")
		c.MarkFlagRequired("content")
	}
	guardCheckCmd.Flags().BoolVar(&guardDryRun, "dry-run", false, "Check without recording")
}

func readContent(cmd *cobra.Command) (string, error) {
	if guardContent != "-" {
		return guardContent, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", errors.Wrap(err, "read content from stdin")
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func runGuardCheck(cmd *cobra.Command, args []string) error {
	content, err := readContent(cmd)
	if err != nil {
		return err
	}
	svc := openService()
	defer svc.Close()
	g := svc.Guard()

	var send bool
	if guardDryRun {
		send = !g.Seen(guardEngine, content)
	} else {
		send = g.ShouldSend(guardEngine, content)
	}

	fp := guard.Fingerprint(content)
	if send {
		fmt.Printf("%s %s %s\n", okStyle.Render("SEND"), guardEngine, fp)
	} else {
		fmt.Printf("%s %s %s (already sent today)\n", warnStyle.Render("SKIP"), guardEngine, fp)
	}
	if guardDryRun {
		fmt.Println(mutedStyle.Render("dry run: nothing recorded"))
	}
	return nil
}

func runGuardMark(cmd *cobra.Command, args []string) error {
	content, err := readContent(cmd)
	if err != nil {
		return err
	}
	svc := openService()
	defer svc.Close()

	if err := fatalOnly(svc.MarkSent(svc.Guard(), guardEngine, content)); err != nil {
		return err
	}
	fmt.Printf("Marked %s %s\n", guardEngine, guard.Fingerprint(content))
	return nil
}

func runGuardStats(cmd *cobra.Command, args []string) error {
	svc := openService()
	defer svc.Close()

	st := svc.Guard().Stats()
	fmt.Println(heading("Fingerprints for " + st.Date))
	if st.Total == 0 {
		fmt.Println("Nothing sent today")
		return nil
	}
	w := newTable(os.Stdout)
	fmt.Fprintln(w, "ENGINE\tSENT")
	for _, e := range st.Engines() {
		fmt.Fprintf(w, "%s\t%d\n", e, st.ByEngine[e])
	}
	fmt.Fprintf(w, "total\t%d\n", st.Total)
	w.Flush()
	return nil
}
