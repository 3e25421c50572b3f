// Package config loads mycelium configuration from file, environment and
// defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors/localexec"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/outreach"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/runner"
)

// FileName is the config file name searched for when no path is given.
const FileName = "mycelium.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MYCELIUM"

// Config is the full mycelium configuration.
type Config struct {
	DataDir  string          `mapstructure:"data_dir" yaml:"data_dir"`
	Mission  models.Mission  `mapstructure:"mission" yaml:"mission"`
	Runner   runner.Config   `mapstructure:"runner" yaml:"runner"`
	Spawn    SpawnConfig     `mapstructure:"spawn" yaml:"spawn"`
	Exec     ExecConfig      `mapstructure:"exec" yaml:"exec"`
	Outreach outreach.Config `mapstructure:"outreach" yaml:"outreach"`
	Mail     MailConfig      `mapstructure:"mail" yaml:"mail"`
	Project  ProjectConfig   `mapstructure:"project" yaml:"project"`

	source string
}

// SpawnConfig configures the artifact store.
type SpawnConfig struct {
	// Dir defaults to <data_dir>/spawns.
	Dir        string `mapstructure:"dir" yaml:"dir,omitempty"`
	Extension  string `mapstructure:"extension" yaml:"extension"`
	StubMarker string `mapstructure:"stub_marker" yaml:"stub_marker"`
	// VerifyCommand, when set, must pass for an artifact to be promoted.
	// {path} is replaced with the artifact path.
	VerifyCommand string `mapstructure:"verify_command" yaml:"verify_command,omitempty"`
}

// ExecConfig is the allowlist for exec probes and verify commands.
type ExecConfig struct {
	Allow map[string][]string `mapstructure:"allow" yaml:"allow,omitempty"`
}

// MailConfig configures the SMTP channel. Username and password come from
// the environment only.
type MailConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	FromName string `mapstructure:"from_name" yaml:"from_name,omitempty"`
	Username string `mapstructure:"username" yaml:"-"`
	Password string `mapstructure:"password" yaml:"-"`
}

// ProjectConfig is the text appended to outreach messages.
type ProjectConfig struct {
	URL       string `mapstructure:"url" yaml:"url,omitempty"`
	Signature string `mapstructure:"signature" yaml:"signature,omitempty"`
}

// Load reads configuration. An empty configPath searches the working
// directory and then ~/.mycelium; finding nothing is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := BindSensitiveEnvVars(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configPath)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mycelium"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if len(cfg.Exec.Allow) == 0 {
		cfg.Exec.Allow = localexec.DefaultAllowlist()
	}
	cfg.source = v.ConfigFileUsed()
	return &cfg, nil
}

// BindSensitiveEnvVars binds credentials to both the prefixed and the legacy
// variable names. The first one set wins.
func BindSensitiveEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"mail.username": {EnvPrefix + "_MAIL_USERNAME", "GMAIL_ADDRESS"},
		"mail.password": {EnvPrefix + "_MAIL_PASSWORD", "GMAIL_APP_PASSWORD"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return errors.Wrapf(err, "bind %s", key)
		}
	}
	return nil
}

// Source returns the config file that was read, if any.
func (c *Config) Source() string { return c.source }

// GraphPath is the idea graph file.
func (c *Config) GraphPath() string { return filepath.Join(c.DataDir, "ideas.json") }

// FingerprintPath is the content guard log.
func (c *Config) FingerprintPath() string {
	return filepath.Join(c.DataDir, "content_fingerprints.json")
}

// QueuePath is the outreach queue file.
func (c *Config) QueuePath() string { return filepath.Join(c.DataDir, "outreach_queue.json") }

// PoolPath is the YAML idea pool read by the built-in generator.
func (c *Config) PoolPath() string { return filepath.Join(c.DataDir, "idea_pool.yaml") }

// AuditPath is the SQLite audit database.
func (c *Config) AuditPath() string { return filepath.Join(c.DataDir, "audit.db") }

// SpawnDir is the artifact directory.
func (c *Config) SpawnDir() string {
	if c.Spawn.Dir != "" {
		return c.Spawn.Dir
	}
	return filepath.Join(c.DataDir, "spawns")
}
