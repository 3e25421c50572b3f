package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE:  runConfigInit,
}

var configCredentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "List which credentials are present in the environment",
	RunE:  runConfigCredentials,
}

var configForce bool

func init() {
	configCmd.AddCommand(configInitCmd, configCredentialsCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgPath
	if path == "" {
		path = config.FileName
	}
	if err := config.WriteDefault(path, configForce); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	fmt.Println(mutedStyle.Render("Credentials are read from the environment only; see: mycelium config credentials"))
	return nil
}

func runConfigCredentials(cmd *cobra.Command, args []string) error {
	d := config.NewCredentialDetector()
	w := newTable(os.Stdout)
	fmt.Fprintln(w, "CREDENTIAL\tSTATUS\tSOURCE\tVARIABLES")
	for _, c := range d.Scan() {
		status := errStyle.Render("missing")
		if c.Present {
			status = okStyle.Render("present")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", c.Name, status, c.Source, c.EnvVars)
	}
	w.Flush()

	if !d.MailReady() {
		fmt.Println(warnStyle.Render("Outreach will skip every target until both mail credentials are set."))
	}
	if src := cfg.Source(); src != "" {
		fmt.Println(mutedStyle.Render("Config: " + src))
	}
	return nil
}
