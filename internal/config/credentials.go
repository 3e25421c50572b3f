package config

import "os"

// Credential describes one secret the process can pick up from the
// environment. Values are never held here, only where they were found.
type Credential struct {
	Name    string   `json:"name"`
	EnvVars []string `json:"env_vars"`
	Present bool     `json:"present"`
	Source  string   `json:"source,omitempty"`
}

// CredentialDetector scans the environment for known credentials.
type CredentialDetector struct {
	lookup func(string) (string, bool)
	found  []Credential
}

// NewCredentialDetector creates a detector over the process environment.
func NewCredentialDetector() *CredentialDetector {
	return &CredentialDetector{lookup: os.LookupEnv}
}

// Scan checks every known credential.
func (d *CredentialDetector) Scan() []Credential {
	d.found = []Credential{
		d.detect("mail username", EnvPrefix+"_MAIL_USERNAME", "GMAIL_ADDRESS"),
		d.detect("mail password", EnvPrefix+"_MAIL_PASSWORD", "GMAIL_APP_PASSWORD"),
	}
	return d.found
}

// Credentials returns the result of the last Scan.
func (d *CredentialDetector) Credentials() []Credential {
	return d.found
}

// MailReady reports whether both mail credentials were found.
func (d *CredentialDetector) MailReady() bool {
	if d.found == nil {
		d.Scan()
	}
	for _, c := range d.found {
		if !c.Present {
			return false
		}
	}
	return true
}

func (d *CredentialDetector) detect(name string, envs ...string) Credential {
	c := Credential{Name: name, EnvVars: envs}
	for _, env := range envs {
		if v, ok := d.lookup(env); ok && v != "" {
			c.Present = true
			c.Source = env
			break
		}
	}
	return c
}
