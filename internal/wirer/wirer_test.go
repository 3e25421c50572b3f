package wirer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/graph"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/spawn"
)

var day = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return day }

type fixture struct {
	path   string
	graph  *graph.Store
	spawns *spawn.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ideas.json")
	return &fixture{
		path:   path,
		graph:  graph.Open(path, graph.WithClock(clock)),
		spawns: spawn.New(filepath.Join(dir, "spawns"), ".go", ""),
	}
}

// working creates an idea and walks it to working.
func (f *fixture) working(t *testing.T, title string) models.Idea {
	t.Helper()
	idea, err := f.graph.Create(models.Candidate{Title: title})
	require.NoError(t, err)
	_, err = f.graph.UpdateStatus(idea.ID, models.StatusTested, graph.Details{})
	require.NoError(t, err)
	idea, err = f.graph.UpdateStatus(idea.ID, models.StatusWorking, graph.Details{})
	require.NoError(t, err)
	return idea
}

func actions(rep *Report) map[string]Action {
	out := make(map[string]Action, len(rep.Entries))
	for _, e := range rep.Entries {
		out[e.Title] = e.Action
	}
	return out
}

func TestRun_StubThenImplemented(t *testing.T) {
	f := newFixture(t)
	idea := f.working(t, "idea-9")
	_, err := f.spawns.EnsureStub(idea)
	require.NoError(t, err)

	w := New(f.graph, f.spawns, WithClock(clock))
	rep, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionStub, actions(rep)["idea-9"])
	assert.Zero(t, rep.Promoted)

	got, _ := f.graph.Get(idea.ID)
	assert.Equal(t, models.StatusWorking, got.Status)

	require.NoError(t, f.spawns.Put(idea.ID, "package main\n\nfunc main() { println(\"digest\") }\n"))

	rep, err = w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionPromoted, actions(rep)["idea-9"])
	assert.Equal(t, 1, rep.Promoted)

	got, _ = f.graph.Get(idea.ID)
	assert.Equal(t, models.StatusWiredIn, got.Status)
	assert.Equal(t, "2026-03-04", got.WiredDate)

	reopened := graph.Open(f.path)
	persisted, err := reopened.Get(idea.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWiredIn, persisted.Status)
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	done := f.working(t, "done")
	require.NoError(t, f.spawns.Put(done.ID, "package main\n"))
	f.working(t, "missing")

	w := New(f.graph, f.spawns, WithClock(clock))
	first, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Promoted)
	before := f.graph.All()

	second, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Promoted)
	if diff := cmp.Diff(before, f.graph.All()); diff != "" {
		t.Errorf("second scan changed the graph (-before +after):\n%s", diff)
	}
	assert.Equal(t, map[string]Action{"missing": ActionAwaitingImplementation}, actions(second))
}

func TestRun_NeverPromotesWithoutRealArtifact(t *testing.T) {
	f := newFixture(t)
	missing := f.working(t, "missing")
	stub := f.working(t, "stub")
	_, err := f.spawns.EnsureStub(stub)
	require.NoError(t, err)

	rep, err := New(f.graph, f.spawns).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]Action{
		"missing": ActionAwaitingImplementation,
		"stub":    ActionStub,
	}, actions(rep))
	for _, id := range []string{missing.ID, stub.ID} {
		got, _ := f.graph.Get(id)
		assert.Equal(t, models.StatusWorking, got.Status)
	}
	_, err = os.Stat(f.path)
	assert.True(t, os.IsNotExist(err), "nothing promoted, nothing written")
}

type fakeVerifier struct {
	err   error
	paths []string
}

func (v *fakeVerifier) Verify(ctx context.Context, path string) error {
	v.paths = append(v.paths, path)
	return v.err
}

func TestRun_VerifierGatesPromotion(t *testing.T) {
	f := newFixture(t)
	idea := f.working(t, "needs-vet")
	require.NoError(t, f.spawns.Put(idea.ID, "package main\n"))

	v := &fakeVerifier{err: errors.New("verify exited 1: undefined: foo")}
	rep, err := New(f.graph, f.spawns, WithVerifier(v)).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, ActionVerificationFailed, rep.Entries[0].Action)
	assert.Contains(t, rep.Entries[0].Detail, "undefined: foo")
	assert.Equal(t, []string{f.spawns.Path(idea.ID)}, v.paths)

	v.err = nil
	rep, err = New(f.graph, f.spawns, WithVerifier(v)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Promoted)
}

// movedGraph rejects every promotion, as when another invocation moved the
// idea after this scan listed it.
type movedGraph struct {
	*graph.Store
}

func (g movedGraph) UpdateStatus(id string, status models.IdeaStatus, d graph.Details) (models.Idea, error) {
	return models.Idea{}, fmt.Errorf("%s: working -> %s: %w", id, status, graph.ErrInvalidTransition)
}

func TestRun_RejectedPromotionIsNotBlamedOnVerifier(t *testing.T) {
	f := newFixture(t)
	idea := f.working(t, "raced")
	require.NoError(t, f.spawns.Put(idea.ID, "package main\n\nfunc main() {}\n"))

	v := &fakeVerifier{}
	rep, err := New(movedGraph{f.graph}, f.spawns, WithVerifier(v)).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, ActionRejected, rep.Entries[0].Action)
	assert.Contains(t, rep.Entries[0].Detail, "invalid")
	assert.Zero(t, rep.Promoted)
	assert.Len(t, v.paths, 1)

	got, err := f.graph.Get(idea.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWorking, got.Status)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	f.working(t, "w")
	_, err := f.graph.Create(models.Candidate{Title: "g"})
	require.NoError(t, err)
	failed, err := f.graph.Create(models.Candidate{Title: "f"})
	require.NoError(t, err)
	_, err = f.graph.UpdateStatus(failed.ID, models.StatusTested, graph.Details{})
	require.NoError(t, err)
	_, err = f.graph.UpdateStatus(failed.ID, models.StatusFailed, graph.Details{})
	require.NoError(t, err)

	got := Summarize(f.graph)
	assert.Equal(t, Summary{Total: 3, Working: 1, Pending: 2}, got)
}
