package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/audit"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/generator"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/graph"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/probe"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/spawn"
)

// Result describes what happened to one idea during a run.
type Result struct {
	IdeaID  string              `json:"idea_id"`
	Title   string              `json:"title"`
	Attempt int                 `json:"attempt"`
	Status  models.IdeaStatus   `json:"status"`
	Class   models.FailureClass `json:"class,omitempty"`
	Reason  string              `json:"reason,omitempty"`
	Detail  string              `json:"detail,omitempty"`
	ChildID string              `json:"child_id,omitempty"`
}

// Report summarises one run.
type Report struct {
	Generated  int                       `json:"generated"`
	Duplicates int                       `json:"duplicates"`
	Tested     int                       `json:"tested"`
	Working    int                       `json:"working"`
	Failed     int                       `json:"failed"`
	DeadEnds   int                       `json:"dead_ends"`
	Children   int                       `json:"children"`
	Results    []Result                  `json:"results"`
	Counts     map[models.IdeaStatus]int `json:"counts"`
}

// Runner drives the idea lifecycle for one invocation.
type Runner struct {
	graph   *graph.Store
	spawns  *spawn.Store
	gen     generator.Generator
	tester  probe.Tester
	eval    *Evaluator
	audit   audit.Recorder
	cfg     *Config
	mission models.Mission
	log     *zap.SugaredLogger
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithEvaluator replaces the default hard-wall policy.
func WithEvaluator(e *Evaluator) Option {
	return func(r *Runner) {
		if e != nil {
			r.eval = e
		}
	}
}

// WithAudit sets the decision recorder.
func WithAudit(a audit.Recorder) Option {
	return func(r *Runner) {
		if a != nil {
			r.audit = a
		}
	}
}

// WithMission sets the mission handed to the generator.
func WithMission(m models.Mission) Option {
	return func(r *Runner) { r.mission = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides the time source used for attempt records.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a runner. gen and spawns may be nil: no new ideas are
// generated and no stubs are written.
func New(g *graph.Store, spawns *spawn.Store, gen generator.Generator, tester probe.Tester, cfg *Config, opts ...Option) *Runner {
	r := &Runner{
		graph:  g,
		spawns: spawns,
		gen:    gen,
		tester: tester,
		eval:   NewEvaluator(),
		audit:  audit.Nop{},
		cfg:    cfg.withDefaults(),
		log:    zap.NewNop().Sugar(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run generates new ideas, then tests every due idea once. Test failures are
// data: they are classified and recorded, never returned. The only error is a
// graph that could not be saved.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}
	var saveErr error

	r.generate(ctx, rep)
	if err := r.graph.Save(); err != nil {
		saveErr = err
		r.log.Errorw("Failed to save idea graph after generation", "error", err)
	}

	for _, idea := range r.due() {
		if ctx.Err() != nil {
			r.log.Warnw("Run cancelled, remaining ideas roll over", "error", ctx.Err())
			break
		}
		res, ok := r.testOne(ctx, idea)
		if !ok {
			continue
		}
		rep.add(res)
		if err := r.graph.Save(); err != nil {
			saveErr = err
			r.log.Errorw("Failed to save idea graph", "idea_id", idea.ID, "error", err)
		}
	}

	rep.Counts = r.graph.Counts()
	if saveErr != nil {
		return rep, errors.Wrap(saveErr, "persist idea graph")
	}
	return rep, nil
}

func (rep *Report) add(res Result) {
	rep.Tested++
	rep.Results = append(rep.Results, res)
	switch res.Status {
	case models.StatusWorking:
		rep.Working++
	case models.StatusFailed:
		rep.Failed++
	case models.StatusDeadEnd:
		rep.DeadEnds++
	}
	if res.ChildID != "" {
		rep.Children++
	}
}

func (r *Runner) generate(ctx context.Context, rep *Report) {
	if r.gen == nil || r.cfg.MaxNewPerRun < 0 {
		return
	}
	cands, err := r.gen.Generate(ctx, r.mission)
	if err != nil {
		r.log.Warnw("Generator failed, testing existing ideas only", "error", err)
		return
	}
	for _, c := range cands {
		if rep.Generated >= r.cfg.MaxNewPerRun {
			break
		}
		idea, err := r.graph.Create(c)
		if err != nil {
			if errors.Is(err, graph.ErrDuplicate) {
				rep.Duplicates++
			} else {
				r.log.Debugw("Skipping candidate", "title", c.Title, "error", err)
			}
			continue
		}
		rep.Generated++
		r.audit.Record(audit.ActionIdeaCreate, c, string(idea.Status), idea.ID, idea.Title)
		r.log.Infow("Idea generated", "idea_id", idea.ID, "title", idea.Title)
	}
}

// due returns the ideas to test this run, best score first, then oldest.
// tested ideas are ones a crashed run left behind.
func (r *Runner) due() []models.Idea {
	ideas := r.graph.List(models.StatusGenerated, models.StatusTested, models.StatusFailed)
	sort.SliceStable(ideas, func(i, j int) bool {
		si, sj := ideas[i].Score(), ideas[j].Score()
		if si != sj {
			return si > sj
		}
		return ideas[i].CreatedAt.Before(ideas[j].CreatedAt)
	})
	if limit := r.cfg.MaxTestsPerRun; limit > 0 && len(ideas) > limit {
		ideas = ideas[:limit]
	}
	return ideas
}

func (r *Runner) testOne(ctx context.Context, idea models.Idea) (Result, bool) {
	if r.spawns != nil {
		created, err := r.spawns.EnsureStub(idea)
		if err != nil {
			r.log.Warnw("Failed to write spawn stub", "idea_id", idea.ID, "error", err)
		} else if created {
			r.log.Debugw("Spawn stub created", "idea_id", idea.ID, "path", r.spawns.Path(idea.ID))
		}
	}

	id := idea.ID
	idea, err := r.graph.UpdateStatus(id, models.StatusTested, graph.Details{})
	if err != nil {
		r.log.Warnw("Cannot start test", "idea_id", id, "error", err)
		return Result{}, false
	}

	started := r.now()
	out, terr := r.testSafely(ctx, idea)
	ended := r.now()
	if terr != nil {
		out.Passed = false
		if out.Message == "" {
			out.Message = terr.Error()
		} else {
			out.Message = out.Message + ": " + terr.Error()
		}
	}

	v := r.eval.Classify(out)
	res := Result{IdeaID: idea.ID, Title: idea.Title, Attempt: idea.Attempts, Class: v.Class, Reason: v.Reason, Detail: out.Message}

	r.audit.RecordAttempt(models.AttemptRecord{
		IdeaID:     idea.ID,
		Attempt:    idea.Attempts,
		Passed:     v.Passed,
		StatusCode: out.StatusCode,
		Class:      v.Class,
		Detail:     out.Message,
		StartedAt:  started,
		EndedAt:    ended,
	})

	switch {
	case v.Passed:
		res.Status = r.transition(idea.ID, models.StatusWorking, graph.Details{Result: out.Message})
		r.log.Infow("Idea works", "idea_id", idea.ID, "attempt", idea.Attempts)

	case v.Class == models.FailureHardWall:
		res.Status = r.transition(idea.ID, models.StatusDeadEnd, graph.Details{
			Result:         out.Message,
			HardWallReason: v.Reason,
			FailureClass:   models.FailureHardWall,
		})
		r.audit.Record(audit.ActionIdeaDeadEnd, out, v.Reason, idea.ID, out.Message)
		r.log.Warnw("Idea hit a hard wall", "idea_id", idea.ID, "reason", v.Reason, "detail", out.Message)

	case idea.Attempts < r.cfg.MaxAttempts:
		res.Status = r.transition(idea.ID, models.StatusFailed, graph.Details{
			Result:       out.Message,
			FailureClass: models.FailureTransient,
		})
		r.log.Infow("Idea failed, will retry next run", "idea_id", idea.ID,
			"attempt", idea.Attempts, "max_attempts", r.cfg.MaxAttempts, "detail", out.Message)

	default:
		res.Class = models.FailureExhausted
		res.Status, res.ChildID = r.retire(ctx, idea, out)
	}

	r.audit.Record(audit.ActionIdeaTest, map[string]interface{}{"idea_id": idea.ID, "attempt": idea.Attempts, "probe": idea.Probe},
		string(res.Status), idea.ID, fmt.Sprintf("class=%s %s", res.Class, out.Message))
	return res, true
}

// testSafely runs the tester with a timeout and turns a panic into an error.
func (r *Runner) testSafely(ctx context.Context, idea models.Idea) (out models.Outcome, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.TestTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			out = models.Outcome{}
			err = errors.Newf("tester panicked: %v", p)
		}
	}()
	if r.tester == nil {
		return models.Outcome{}, errors.New("no tester configured")
	}
	return r.tester.Test(ctx, idea)
}

// retire ends an idea whose retries are exhausted and spawns its alternate path.
func (r *Runner) retire(ctx context.Context, idea models.Idea, out models.Outcome) (models.IdeaStatus, string) {
	var alt *models.Candidate
	if r.gen != nil {
		var err error
		alt, err = r.gen.Alternative(ctx, idea, out)
		if err != nil {
			r.log.Warnw("Generator could not propose an alternative", "idea_id", idea.ID, "error", err)
			alt = nil
		}
	}

	parent, child, err := r.graph.Retire(idea.ID, graph.Details{
		Result:       out.Message,
		FailureClass: models.FailureExhausted,
	}, alt)
	if err != nil {
		r.log.Errorw("Failed to retire idea", "idea_id", idea.ID, "error", err)
		return parent.Status, ""
	}
	r.audit.Record(audit.ActionIdeaDeadEnd, out, string(models.FailureExhausted), idea.ID, out.Message)
	r.log.Infow("Idea exhausted its retries", "idea_id", idea.ID, "attempts", idea.Attempts)

	if child == nil {
		return parent.Status, ""
	}
	r.audit.Record(audit.ActionIdeaSpawnChild, alt, string(child.Status), child.ID, "parent="+idea.ID)
	r.log.Infow("Alternate path spawned", "idea_id", child.ID, "parent_id", idea.ID, "title", child.Title)
	return parent.Status, child.ID
}

func (r *Runner) transition(id string, to models.IdeaStatus, d graph.Details) models.IdeaStatus {
	idea, err := r.graph.UpdateStatus(id, to, d)
	if err != nil {
		r.log.Errorw("Status update rejected", "idea_id", id, "to", to, "error", err)
	}
	return idea.Status
}
