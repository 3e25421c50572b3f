package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the read-only idea dashboard",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	svc := openService()
	defer svc.Close()

	src := tui.FileSource{
		Path:    cfg.GraphPath(),
		History: svc.Attempts,
	}
	app := tui.New(src, cfg.GraphPath())
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
