// Package wirer promotes working ideas whose spawn artifacts are real into
// the production set.
package wirer

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/audit"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/graph"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/spawn"
)

// Action is what the wirer decided for one working idea.
type Action string

const (
	ActionPromoted               Action = "promoted"
	ActionAwaitingImplementation Action = "awaiting_implementation"
	ActionStub                   Action = "stub"
	ActionVerificationFailed     Action = "verification_failed"
	ActionRejected               Action = "rejected"
)

// Graph is the part of the idea graph the wirer reads and promotes through.
type Graph interface {
	List(statuses ...models.IdeaStatus) []models.Idea
	UpdateStatus(id string, status models.IdeaStatus, d graph.Details) (models.Idea, error)
	Counts() map[models.IdeaStatus]int
	Save() error
}

// Entry reports one working idea.
type Entry struct {
	IdeaID string `json:"idea_id"`
	Title  string `json:"title"`
	Action Action `json:"action"`
	Detail string `json:"detail,omitempty"`
}

// Summary is the graph tally after a scan.
type Summary struct {
	Total   int `json:"total"`
	WiredIn int `json:"wired_in"`
	Working int `json:"working"`
	Pending int `json:"pending"`
	DeadEnd int `json:"dead_end"`
}

// Report is the outcome of one scan.
type Report struct {
	Promoted int     `json:"promoted"`
	Entries  []Entry `json:"entries"`
	Summary  Summary `json:"summary"`
}

// Wirer scans working ideas against the spawn store.
type Wirer struct {
	graph    Graph
	spawns   *spawn.Store
	verifier spawn.Verifier
	audit    audit.Recorder
	log      *zap.SugaredLogger
	now      func() time.Time
}

// Option configures a Wirer.
type Option func(*Wirer)

// WithVerifier requires implemented artifacts to pass v before promotion.
func WithVerifier(v spawn.Verifier) Option {
	return func(w *Wirer) { w.verifier = v }
}

// WithAudit sets the decision recorder.
func WithAudit(a audit.Recorder) Option {
	return func(w *Wirer) {
		if a != nil {
			w.audit = a
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(w *Wirer) {
		if l != nil {
			w.log = l
		}
	}
}

// WithClock overrides the time source for wired dates.
func WithClock(now func() time.Time) Option {
	return func(w *Wirer) { w.now = now }
}

// New creates a wirer.
func New(g Graph, spawns *spawn.Store, opts ...Option) *Wirer {
	w := &Wirer{
		graph:  g,
		spawns: spawns,
		audit:  audit.Nop{},
		log:    zap.NewNop().Sugar(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run promotes every working idea whose artifact exists and is no longer a
// stub. Running it again without artifact changes promotes nothing.
func (w *Wirer) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}

	for _, idea := range w.graph.List(models.StatusWorking) {
		entry := Entry{IdeaID: idea.ID, Title: idea.Title}

		switch w.spawns.Classify(idea.ID) {
		case spawn.StateMissing:
			entry.Action = ActionAwaitingImplementation
			w.log.Infow("Awaiting implementation", "idea_id", idea.ID, "path", w.spawns.Path(idea.ID))

		case spawn.StateStub:
			entry.Action = ActionStub
			w.log.Infow("Stub, not ready", "idea_id", idea.ID)

		case spawn.StateImplemented:
			if w.verifier != nil {
				if err := w.verifier.Verify(ctx, w.spawns.Path(idea.ID)); err != nil {
					entry.Action = ActionVerificationFailed
					entry.Detail = err.Error()
					w.log.Warnw("Artifact failed verification", "idea_id", idea.ID, "error", err)
					break
				}
			}
			wired, err := w.graph.UpdateStatus(idea.ID, models.StatusWiredIn, graph.Details{
				WiredDate: w.now().Format("2006-01-02"),
			})
			if err != nil {
				entry.Action = ActionRejected
				entry.Detail = err.Error()
				w.log.Errorw("Promotion rejected", "idea_id", idea.ID, "error", err)
				break
			}
			entry.Action = ActionPromoted
			rep.Promoted++
			w.audit.Record(audit.ActionIdeaWire, map[string]string{"idea_id": idea.ID, "path": w.spawns.Path(idea.ID)},
				string(wired.Status), idea.ID, wired.WiredDate)
			w.log.Infow("Idea wired in", "idea_id", idea.ID, "title", idea.Title, "wired_date", wired.WiredDate)
		}
		rep.Entries = append(rep.Entries, entry)
	}

	rep.Summary = Summarize(w.graph)

	if rep.Promoted > 0 {
		if err := w.graph.Save(); err != nil {
			return rep, errors.Wrap(err, "persist idea graph")
		}
	}
	return rep, nil
}

// Summarize tallies the graph. Pending counts ideas still moving through
// testing.
func Summarize(g interface {
	Counts() map[models.IdeaStatus]int
}) Summary {
	counts := g.Counts()
	s := Summary{
		WiredIn: counts[models.StatusWiredIn],
		Working: counts[models.StatusWorking],
		Pending: counts[models.StatusGenerated] + counts[models.StatusTested] + counts[models.StatusFailed],
		DeadEnd: counts[models.StatusDeadEnd],
	}
	for _, n := range counts {
		s.Total += n
	}
	return s
}
