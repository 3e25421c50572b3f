// Package spawn keeps one implementation artifact per idea, stored by idea id.
package spawn

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

// DefaultStubMarker is the placeholder text that marks an artifact as a stub.
const DefaultStubMarker = "Add implementation here"

// State classifies an artifact.
type State string

const (
	StateMissing     State = "missing"
	StateStub        State = "stub"
	StateImplemented State = "implemented"
)

// Store is a directory of artifacts named <idea-id><ext>.
type Store struct {
	dir    string
	ext    string
	marker string
}

// New creates a spawn store rooted at dir.
func New(dir, ext, marker string) *Store {
	if ext == "" {
		ext = ".go"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if marker == "" {
		marker = DefaultStubMarker
	}
	return &Store{dir: dir, ext: ext, marker: marker}
}

// Path returns where the artifact for id lives.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+s.ext)
}

// Read returns the artifact content, or os.ErrNotExist.
func (s *Store) Read(id string) (string, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Classify reports whether the artifact is missing, a stub, or implemented.
// An unreadable artifact is treated as missing.
func (s *Store) Classify(id string) State {
	content, err := s.Read(id)
	if err != nil {
		return StateMissing
	}
	if strings.Contains(content, s.marker) {
		return StateStub
	}
	return StateImplemented
}

// EnsureStub writes a stub artifact for the idea unless one already exists.
// It reports whether a new stub was created.
func (s *Store) EnsureStub(idea models.Idea) (bool, error) {
	path := s.Path(idea.ID)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, errors.Wrap(err, "create spawn directory")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "create stub for %s", idea.ID)
	}
	defer f.Close()
	if _, err := f.WriteString(s.stubFor(idea)); err != nil {
		return false, errors.Wrapf(err, "write stub for %s", idea.ID)
	}
	return true, nil
}

// Put replaces the artifact content for id.
func (s *Store) Put(id, content string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "create spawn directory")
	}
	tmp := s.Path(id) + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "write artifact for %s", id)
	}
	if err := os.Rename(tmp, s.Path(id)); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "replace artifact for %s", id)
	}
	return nil
}

func (s *Store) stubFor(idea models.Idea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Spawn artifact for idea %s\n", idea.ID)
	fmt.Fprintf(&b, "// %s\n", idea.Title)
	if idea.Description != "" {
		fmt.Fprintf(&b, "// %s\n", idea.Description)
	}
	b.WriteString("package main\n\n")
	b.WriteString("func main() {\n")
	fmt.Fprintf(&b, "\t// %s\n", s.marker)
	b.WriteString("}\n")
	return b.String()
}

// Verifier checks that an implemented artifact is actually runnable.
type Verifier interface {
	Verify(ctx context.Context, path string) error
}

// CommandVerifier runs an allowlisted command line against the artifact.
// The literal "{path}" in the command is replaced by the artifact path; when
// absent the path is appended as the last argument.
type CommandVerifier struct {
	conn    connectors.Connector
	command string
}

// NewCommandVerifier returns nil when command is empty, meaning no verification.
func NewCommandVerifier(conn connectors.Connector, command string) *CommandVerifier {
	if strings.TrimSpace(command) == "" || conn == nil {
		return nil
	}
	return &CommandVerifier{conn: conn, command: command}
}

// Verify runs the command and fails on a non-zero exit.
func (v *CommandVerifier) Verify(ctx context.Context, path string) error {
	words, err := shellquote.Split(v.command)
	if err != nil {
		return errors.Wrap(err, "parse verify command")
	}
	if len(words) == 0 {
		return errors.New("empty verify command")
	}
	substituted := false
	for i, w := range words {
		if strings.Contains(w, "{path}") {
			words[i] = strings.ReplaceAll(w, "{path}", path)
			substituted = true
		}
	}
	if !substituted {
		words = append(words, path)
	}

	res, err := v.conn.Execute(ctx, words[0], words[1:])
	if err != nil {
		return errors.Wrap(err, "run verify command")
	}
	if res.ExitCode != 0 {
		return errors.Newf("verify exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
