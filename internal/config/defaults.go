package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors/localexec"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/outreach"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/runner"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/spawn"
)

// ErrConfigExists is returned by WriteDefault when the file is already there.
var ErrConfigExists = errors.New("config file already exists")

// SetDefaults installs every default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_dir", d.DataDir)

	v.SetDefault("runner.max_attempts", d.Runner.MaxAttempts)
	v.SetDefault("runner.max_tests_per_run", d.Runner.MaxTestsPerRun)
	v.SetDefault("runner.max_new_per_run", d.Runner.MaxNewPerRun)
	v.SetDefault("runner.test_timeout", d.Runner.TestTimeout)

	v.SetDefault("spawn.extension", d.Spawn.Extension)
	v.SetDefault("spawn.stub_marker", d.Spawn.StubMarker)

	v.SetDefault("outreach.max_sends_per_run", d.Outreach.MaxSendsPerRun)
	v.SetDefault("outreach.send_interval", d.Outreach.SendInterval)
	v.SetDefault("outreach.require_approval", d.Outreach.RequireApproval)

	v.SetDefault("mail.host", d.Mail.Host)
	v.SetDefault("mail.port", d.Mail.Port)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:  "./data",
		Runner:   *runner.DefaultConfig(),
		Spawn:    SpawnConfig{Extension: ".go", StubMarker: spawn.DefaultStubMarker},
		Exec:     ExecConfig{Allow: localexec.DefaultAllowlist()},
		Outreach: *outreach.DefaultConfig(),
		Mail:     MailConfig{Host: "smtp.gmail.com", Port: 587},
	}
}

// WriteDefault writes the default configuration to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.WithHint(errors.Wrap(ErrConfigExists, path), "pass --force to overwrite it")
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrap(err, "marshal default config")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create config directory")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}
