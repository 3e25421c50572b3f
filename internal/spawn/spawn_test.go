package spawn

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

func TestClassify(t *testing.T) {
	s := New(t.TempDir(), ".go", "")
	idea := models.Idea{ID: "idea-9", Title: "Space hope post"}

	assert.Equal(t, StateMissing, s.Classify(idea.ID))

	created, err := s.EnsureStub(idea)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, StateStub, s.Classify(idea.ID))

	require.NoError(t, s.Put(idea.ID, "package main\n\nfunc main() { println(\"hope\") }\n"))
	assert.Equal(t, StateImplemented, s.Classify(idea.ID))
}

func TestEnsureStub_NeverOverwrites(t *testing.T) {
	s := New(t.TempDir(), "py", "TODO-IMPL")
	idea := models.Idea{ID: "abc", Title: "x"}

	require.NoError(t, s.Put(idea.ID, "real logic"))
	created, err := s.EnsureStub(idea)
	require.NoError(t, err)
	assert.False(t, created)

	content, err := s.Read(idea.ID)
	require.NoError(t, err)
	assert.Equal(t, "real logic", content)
	assert.Equal(t, ".py", filepath.Ext(s.Path(idea.ID)))
}

func TestPath_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, ".go", "")
	assert.Equal(t, filepath.Join(dir, "passwd.go"), s.Path("../../etc/passwd"))
}

type recordingConnector struct {
	cmd      string
	args     []string
	exitCode int
}

func (r *recordingConnector) Name() string { return "recording" }

func (r *recordingConnector) IsAllowed(cmd string, args []string) bool { return true }

func (r *recordingConnector) Execute(ctx context.Context, cmd string, args []string) (*connectors.ExecResult, error) {
	r.cmd, r.args = cmd, args
	return &connectors.ExecResult{Command: cmd, Args: args, ExitCode: r.exitCode, Stderr: "boom\nmore"}, nil
}

func TestCommandVerifier(t *testing.T) {
	assert.Nil(t, NewCommandVerifier(&recordingConnector{}, "  "))

	conn := &recordingConnector{}
	v := NewCommandVerifier(conn, "go vet {path}")
	require.NoError(t, v.Verify(context.Background(), "/tmp/a.go"))
	assert.Equal(t, "go", conn.cmd)
	assert.Equal(t, []string{"vet", "/tmp/a.go"}, conn.args)

	conn = &recordingConnector{exitCode: 2}
	v = NewCommandVerifier(conn, "go vet")
	err := v.Verify(context.Background(), "/tmp/b.go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"vet", "/tmp/b.go"}, conn.args)
}
