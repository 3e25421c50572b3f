package generator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

const samplePool = `ideas:
  - title: Congressional trade tracker
    category: accountability
    mission: 9
    feasibility: 8
    probe:
      kind: fetch_url
      target: https://example.org/trades.json
    alternative: Scrape disclosure PDFs
  - title: Earthquake digest
    category: safety
    mission: 6
    feasibility: 9
  - title: Grant deadline calendar
    category: funding
    mission: 8
    feasibility: 10
  - title: "   "
    category: funding
`

func writePool(t *testing.T, body string) *Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idea_pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return NewPool(path)
}

func titles(cs []models.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Title
	}
	return out
}

func TestPool_GenerateOrdersByScore(t *testing.T) {
	p := writePool(t, samplePool)

	got, err := p.Generate(context.Background(), models.Mission{})
	require.NoError(t, err)

	want := []string{"Grant deadline calendar", "Congressional trade tracker", "Earthquake digest"}
	if diff := cmp.Diff(want, titles(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.ProbeFetchURL, got[1].Probe.Kind)
	assert.Equal(t, 9, got[1].MissionScore)
}

func TestPool_GenerateFiltersCategories(t *testing.T) {
	p := writePool(t, samplePool)

	got, err := p.Generate(context.Background(), models.Mission{Categories: []string{"Safety", "accountability"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Congressional trade tracker", "Earthquake digest"}, titles(got))
}

func TestPool_MissingFileIsEmpty(t *testing.T) {
	p := NewPool(filepath.Join(t.TempDir(), "none.yaml"))
	got, err := p.Generate(context.Background(), models.Mission{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPool_BadYAML(t *testing.T) {
	p := writePool(t, "ideas: [unterminated")
	_, err := p.Generate(context.Background(), models.Mission{})
	assert.Error(t, err)
}

func TestHintAlternative(t *testing.T) {
	parent := models.Idea{
		Title:        "Congressional trade tracker",
		Category:     "accountability",
		MissionScore: 9,
		Feasibility:  8,
		Probe:        models.Probe{Kind: models.ProbeFetchURL, Target: "https://example.org"},
		Alternative:  "Scrape disclosure PDFs",
	}

	got := HintAlternative(parent)
	require.NotNil(t, got)
	assert.Equal(t, "Scrape disclosure PDFs", got.Title)
	assert.Equal(t, 7, got.Feasibility)
	assert.Equal(t, "accountability", got.Category)
	assert.Equal(t, parent.Probe, got.Probe)
	assert.Empty(t, got.Alternative)

	parent.Alternative = ""
	assert.Nil(t, HintAlternative(parent))

	parent.Alternative = "x"
	parent.Feasibility = 1
	assert.Equal(t, 1, HintAlternative(parent).Feasibility)
}
