package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

func ideaWith(kind, target string) models.Idea {
	return models.Idea{ID: "i", Title: "t", Probe: models.Probe{Kind: kind, Target: target}}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"data":1}`))
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("api key required"))
		case "/pay":
			w.WriteHeader(http.StatusPaymentRequired)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	p := New("", nil, time.Second)
	ctx := context.Background()

	out, err := p.Test(ctx, ideaWith(models.ProbeFetchURL, srv.URL+"/ok"))
	require.NoError(t, err)
	assert.True(t, out.Passed)
	assert.Equal(t, 200, out.StatusCode)

	out, err = p.Test(ctx, ideaWith(models.ProbeFetchURL, srv.URL+"/forbidden"))
	require.NoError(t, err)
	assert.False(t, out.Passed)
	assert.Equal(t, 403, out.StatusCode)
	assert.Contains(t, out.Message, "api key required")

	out, err = p.Test(ctx, ideaWith(models.ProbeFetchURL, srv.URL+"/pay"))
	require.NoError(t, err)
	assert.True(t, out.RequiresSpend)

	out, err = p.Test(ctx, ideaWith(models.ProbeFetchURL, srv.URL+"/boom"))
	require.NoError(t, err)
	assert.Equal(t, 500, out.StatusCode)
}

func TestFetch_CopiesFreeTier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	idea := ideaWith(models.ProbeFetchURL, srv.URL)
	idea.Probe.FreeTier = true
	out, err := New("", nil, time.Second).Test(context.Background(), idea)
	require.NoError(t, err)
	assert.True(t, out.FreeTier)
}

func TestFetch_TransportErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New("", nil, time.Second).Test(context.Background(), ideaWith(models.ProbeFetchURL, url))
	assert.Error(t, err)
}

func TestCheckPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "congress.json"), []byte("[]"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "usgs"), 0o755))

	p := New(root, nil, 0)
	ctx := context.Background()

	out, _ := p.Test(ctx, ideaWith(models.ProbeCheckPath, "congress.json"))
	assert.True(t, out.Passed)
	assert.Contains(t, out.Message, "2 bytes")

	out, _ = p.Test(ctx, ideaWith(models.ProbeCheckPath, "usgs"))
	assert.True(t, out.Passed)

	out, _ = p.Test(ctx, ideaWith(models.ProbeCheckPath, "missing.json"))
	assert.False(t, out.Passed)
}

type fakeConn struct {
	allowed  bool
	exitCode int
	calls    int
}

func (f *fakeConn) Name() string                             { return "fake" }
func (f *fakeConn) IsAllowed(cmd string, args []string) bool { return f.allowed }
func (f *fakeConn) Execute(ctx context.Context, cmd string, args []string) (*connectors.ExecResult, error) {
	f.calls++
	return &connectors.ExecResult{Command: cmd, Args: args, ExitCode: f.exitCode, Stderr: "bad"}, nil
}

func TestExec(t *testing.T) {
	ctx := context.Background()

	conn := &fakeConn{allowed: true}
	out, err := New("", conn, 0).Test(ctx, ideaWith(models.ProbeExec, `go run "./spawns/a b.go"`))
	require.NoError(t, err)
	assert.True(t, out.Passed)

	conn = &fakeConn{allowed: true, exitCode: 1}
	out, _ = New("", conn, 0).Test(ctx, ideaWith(models.ProbeExec, "go run x.go"))
	assert.False(t, out.Passed)
	assert.Contains(t, out.Message, "exit 1")

	conn = &fakeConn{allowed: false}
	out, _ = New("", conn, 0).Test(ctx, ideaWith(models.ProbeExec, "rm -rf /"))
	assert.False(t, out.Passed)
	assert.Zero(t, conn.calls)

	out, _ = New("", nil, 0).Test(ctx, ideaWith(models.ProbeExec, "go vet"))
	assert.False(t, out.Passed)
}

func TestUnknownKind(t *testing.T) {
	out, err := New("", nil, 0).Test(context.Background(), ideaWith("telepathy", ""))
	require.NoError(t, err)
	assert.False(t, out.Passed)
	assert.Contains(t, out.Message, "unknown probe kind")
}
