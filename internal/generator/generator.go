// Package generator proposes new ideas and alternate paths for failed ones.
package generator

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

// Generator is the idea source consulted by the runner.
type Generator interface {
	// Generate proposes candidates for the mission. Duplicates of existing
	// ideas are filtered by the caller.
	Generate(ctx context.Context, mission models.Mission) ([]models.Candidate, error)

	// Alternative proposes the next path for an idea whose own path is
	// exhausted. A nil candidate means there is no alternative.
	Alternative(ctx context.Context, parent models.Idea, outcome models.Outcome) (*models.Candidate, error)
}

// poolFile is the on-disk shape of the idea pool.
type poolFile struct {
	Ideas []models.Candidate `yaml:"ideas"`
}

// Pool is a Generator backed by a YAML file of candidate ideas.
type Pool struct {
	path string
}

// NewPool creates a pool generator reading from path.
func NewPool(path string) *Pool {
	return &Pool{path: path}
}

// Path returns the pool file path.
func (p *Pool) Path() string { return p.path }

// Load reads the pool file. A missing file is an empty pool.
func (p *Pool) Load() ([]models.Candidate, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read idea pool %s", p.path)
	}

	var pf poolFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.Wrapf(err, "parse idea pool %s", p.path)
	}
	return pf.Ideas, nil
}

// Generate returns pool candidates in the mission's categories, highest
// mission×feasibility first. An empty category list accepts everything.
func (p *Pool) Generate(ctx context.Context, mission models.Mission) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := p.Load()
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(mission.Categories))
	for _, c := range mission.Categories {
		allowed[strings.ToLower(c)] = true
	}

	out := make([]models.Candidate, 0, len(all))
	for _, c := range all {
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(c.Category)] {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MissionScore*out[i].Feasibility > out[j].MissionScore*out[j].Feasibility
	})
	return out, nil
}

// Alternative turns the parent's alternative hint into a child candidate.
func (p *Pool) Alternative(ctx context.Context, parent models.Idea, outcome models.Outcome) (*models.Candidate, error) {
	return HintAlternative(parent), nil
}

// HintAlternative builds the child for parent from its alternative hint. The
// child keeps the parent's category, mission score and probe, with one point
// less feasibility. It returns nil when the parent carries no hint.
func HintAlternative(parent models.Idea) *models.Candidate {
	hint := strings.TrimSpace(parent.Alternative)
	if hint == "" {
		return nil
	}
	feasibility := parent.Feasibility - 1
	if feasibility < 1 {
		feasibility = 1
	}
	return &models.Candidate{
		Title:        hint,
		Description:  "Alternate path for: " + parent.Title,
		Rationale:    parent.Rationale,
		Category:     parent.Category,
		MissionScore: parent.MissionScore,
		Feasibility:  feasibility,
		Probe:        parent.Probe,
	}
}

// Static is a Generator over a fixed candidate list.
type Static struct {
	Candidates []models.Candidate
}

// Generate returns the fixed candidates.
func (s Static) Generate(ctx context.Context, mission models.Mission) ([]models.Candidate, error) {
	return s.Candidates, nil
}

// Alternative defers to the parent's hint.
func (s Static) Alternative(ctx context.Context, parent models.Idea, outcome models.Outcome) (*models.Candidate, error) {
	return HintAlternative(parent), nil
}
