package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/config"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/controlplane"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "mycelium",
	Short: "mycelium - self-expanding idea engine and outreach sender",
	Long: `mycelium generates automation ideas, tests each one against the real world,
retires the ones that hit a hard wall with an alternate path, and promotes the
ones whose implementation exists. It also sends verified, rate-limited outreach
and guards every outbound engine against posting the same content twice a day.

Every command runs to completion and exits; schedule "mycelium cycle" to run it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logJSON, logLevel); err != nil {
			return err
		}
		if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			loaded.DataDir = dataDir
		}
		cfg = loaded
		if src := cfg.Source(); src != "" {
			logging.Logger.Debugw("Loaded config", "path", src)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	cfgPath  string
	dataDir  string
	logJSON  bool
	logLevel string

	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ./mycelium.yaml or ~/.mycelium/mycelium.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding every store (overrides data_dir)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs for log collectors")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(ideasCmd)
	rootCmd.AddCommand(guardCmd)
	rootCmd.AddCommand(outreachCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}

// openService builds the control plane over the loaded config.
func openService() *controlplane.Service {
	return controlplane.NewService(cfg, controlplane.WithLogger(logging.Logger))
}

// fatalOnly passes through the one error that must end the process with a
// non-zero exit and reports everything else as a warning.
func fatalOnly(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, controlplane.ErrStoreUnavailable) {
		return err
	}
	fmt.Fprintln(os.Stderr, warnStyle.Render("warning: "+err.Error()))
	return nil
}
