// Package controlplane composes the stores and engines for one scheduled
// invocation.
package controlplane

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/audit"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/config"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors/localexec"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/generator"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/graph"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/guard"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/outreach"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/probe"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/runner"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/spawn"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/store"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/wirer"
)

// Service provides the control plane business logic.
type Service struct {
	cfg       *config.Config
	graph     *graph.Store
	spawns    *spawn.Store
	gen       generator.Generator
	tester    probe.Tester
	connector connectors.Connector
	channel   outreach.Channel
	store     *store.Store
	pdr       audit.Recorder
	log       *zap.SugaredLogger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator replaces the YAML pool generator.
func WithGenerator(g generator.Generator) Option {
	return func(s *Service) { s.gen = g }
}

// WithTester replaces the built-in prober.
func WithTester(t probe.Tester) Option {
	return func(s *Service) { s.tester = t }
}

// WithConnector replaces the allowlisted local executor.
func WithConnector(c connectors.Connector) Option {
	return func(s *Service) { s.connector = c }
}

// WithChannel replaces the SMTP outreach channel.
func WithChannel(ch outreach.Channel) Option {
	return func(s *Service) { s.channel = ch }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source for every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService opens every store under cfg.DataDir. Stores that cannot be read
// degrade to empty; a missing audit database only disables the audit trail.
func NewService(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg: cfg,
		log: zap.NewNop().Sugar(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		s.log.Warnw("Cannot create data directory", "path", cfg.DataDir, "error", err)
	}

	s.graph = graph.Open(cfg.GraphPath(), graph.WithClock(s.now), graph.WithLogger(s.log.Named("graph")))
	s.spawns = spawn.New(cfg.SpawnDir(), cfg.Spawn.Extension, cfg.Spawn.StubMarker)

	if db, err := store.New(cfg.AuditPath()); err != nil {
		s.log.Warnw("Audit store unavailable, decisions will not be recorded", "path", cfg.AuditPath(), "error", err)
	} else {
		db.SetClock(s.now)
		s.store = db
	}
	s.pdr = audit.NewPDRWriter(s.store, s.log.Named("audit"))

	if s.connector == nil {
		s.connector = localexec.New(cfg.DataDir, cfg.Exec.Allow)
	}
	if s.gen == nil {
		s.gen = generator.NewPool(cfg.PoolPath())
	}
	if s.tester == nil {
		s.tester = probe.New(cfg.DataDir, s.connector, cfg.Runner.TestTimeout)
	}
	if s.channel == nil {
		s.channel = outreach.NewSMTPChannel(outreach.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			FromName: cfg.Mail.FromName,
		})
	}
	return s
}

// Close releases the audit database.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Graph exposes the idea graph.
func (s *Service) Graph() *graph.Store { return s.graph }

// Spawns exposes the artifact store.
func (s *Service) Spawns() *spawn.Store { return s.spawns }

// --- Idea Operations ---

// CycleReport is the outcome of one scheduled invocation.
type CycleReport struct {
	Runner   *runner.Report `json:"runner"`
	Wirer    *wirer.Report  `json:"wirer"`
	Summary  wirer.Summary  `json:"summary"`
	Warnings []string       `json:"warnings,omitempty"`
}

// RunCycle runs the runner and then the wirer, so ideas proven working this
// invocation are promoted as soon as their artifact exists.
func (s *Service) RunCycle(ctx context.Context) (*CycleReport, error) {
	rep := &CycleReport{}

	rr, err := s.TestIdeas(ctx)
	rep.Runner = rr
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return rep, err
		}
		rep.Warnings = append(rep.Warnings, err.Error())
	}

	wr, err := s.WireIdeas(ctx)
	rep.Wirer = wr
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return rep, err
		}
		rep.Warnings = append(rep.Warnings, err.Error())
	}

	rep.Summary = wirer.Summarize(s.graph)
	s.log.Infow("Cycle complete",
		"total", rep.Summary.Total,
		"wired_in", rep.Summary.WiredIn,
		"working", rep.Summary.Working,
		"pending", rep.Summary.Pending,
		"dead_end", rep.Summary.DeadEnd)
	return rep, nil
}

// TestIdeas generates and tests ideas without promoting anything.
func (s *Service) TestIdeas(ctx context.Context) (*runner.Report, error) {
	r := runner.New(s.graph, s.spawns, s.gen, s.tester, &s.cfg.Runner,
		runner.WithAudit(s.pdr),
		runner.WithMission(s.cfg.Mission),
		runner.WithLogger(s.log.Named("runner")),
		runner.WithClock(s.now),
	)
	rep, err := r.Run(ctx)
	return rep, s.persistence(s.graph.LoadErr(), err)
}

// WireIdeas promotes working ideas whose artifact is implemented.
func (s *Service) WireIdeas(ctx context.Context) (*wirer.Report, error) {
	opts := []wirer.Option{
		wirer.WithAudit(s.pdr),
		wirer.WithLogger(s.log.Named("wirer")),
		wirer.WithClock(s.now),
	}
	if s.cfg.Spawn.VerifyCommand != "" {
		opts = append(opts, wirer.WithVerifier(spawn.NewCommandVerifier(s.connector, s.cfg.Spawn.VerifyCommand)))
	}
	rep, err := wirer.New(s.graph, s.spawns, opts...).Run(ctx)
	return rep, s.persistence(s.graph.LoadErr(), err)
}

// AddIdea creates an idea by hand, writes its stub and saves the graph.
func (s *Service) AddIdea(c models.Candidate) (models.Idea, error) {
	idea, err := s.graph.Create(c)
	if err != nil {
		return idea, err
	}
	if _, err := s.spawns.EnsureStub(idea); err != nil {
		s.log.Warnw("Failed to write stub", "idea_id", idea.ID, "error", err)
	}
	if err := s.graph.Save(); err != nil {
		return idea, errors.Wrap(err, "persist idea graph")
	}
	s.pdr.Record(audit.ActionIdeaCreate, c, string(idea.Status), idea.ID, "manual")
	return idea, nil
}

// ListIdeas returns ideas in the given statuses, or all of them.
func (s *Service) ListIdeas(statuses ...models.IdeaStatus) []models.Idea {
	return s.graph.List(statuses...)
}

// IdeaDetail is everything known about one idea.
type IdeaDetail struct {
	Idea     models.Idea            `json:"idea"`
	Lineage  []models.Idea          `json:"lineage"`
	Artifact spawn.State            `json:"artifact"`
	Path     string                 `json:"path"`
	Attempts []models.AttemptRecord `json:"attempts"`
	Records  []models.PDREntry      `json:"records"`
}

// ShowIdea returns an idea with its lineage, artifact state and history.
func (s *Service) ShowIdea(id string) (*IdeaDetail, error) {
	idea, err := s.graph.Get(id)
	if err != nil {
		return nil, err
	}
	d := &IdeaDetail{
		Idea:     idea,
		Lineage:  s.graph.Lineage(id),
		Artifact: s.spawns.Classify(id),
		Path:     s.spawns.Path(id),
	}
	if s.store == nil {
		return d, nil
	}
	if d.Attempts, err = s.store.AttemptsForIdea(id); err != nil {
		return d, errors.Wrap(err, "load attempts")
	}
	if d.Records, err = s.store.ListPDR(id, 50); err != nil {
		return d, errors.Wrap(err, "load decision records")
	}
	return d, nil
}

// Attempts returns the recorded test cycles for one idea.
func (s *Service) Attempts(id string) ([]models.AttemptRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.AttemptsForIdea(id)
}

// Decisions lists the most recent decision records across all ideas.
func (s *Service) Decisions(limit int) ([]models.PDREntry, error) {
	if s.store == nil {
		return nil, ErrNoAuditStore
	}
	return s.store.ListPDR("", limit)
}

// --- Guard Operations ---

// Guard opens the fingerprint guard.
func (s *Service) Guard() *guard.Guard {
	return guard.New(s.cfg.FingerprintPath(),
		guard.WithClock(s.now),
		guard.WithLogger(s.log.Named("guard")),
		guard.WithAudit(s.pdr),
	)
}

// MarkSent records content as sent through the guard.
func (s *Service) MarkSent(g *guard.Guard, engine, content string) error {
	return s.persistence(g.LoadErr(), g.MarkSent(engine, content))
}

// --- Outreach Operations ---

// SendOutreach processes the outreach queue once.
func (s *Service) SendOutreach(ctx context.Context, dryRun bool) (*outreach.Report, error) {
	q, err := outreach.LoadQueue(s.cfg.QueuePath())
	if err != nil {
		if werr := writable(filepath.Dir(s.cfg.QueuePath())); werr != nil {
			return nil, errors.Mark(errors.WithSecondaryError(err, werr), ErrStoreUnavailable)
		}
		s.log.Errorw("Outreach queue unreadable, leaving it untouched", "path", s.cfg.QueuePath(), "error", err)
		return &outreach.Report{DryRun: dryRun}, nil
	}

	sender := outreach.NewSender(q, s.channel, &s.cfg.Outreach,
		outreach.WithGuard(s.Guard()),
		outreach.WithComposer(outreach.TextComposer{
			ProjectURL: s.cfg.Project.URL,
			Signature:  s.cfg.Project.Signature,
		}),
		outreach.WithAudit(s.pdr),
		outreach.WithLogger(s.log.Named("outreach")),
		outreach.WithClock(s.now),
		outreach.WithDryRun(dryRun),
	)
	rep, err := sender.Run(ctx)
	if err == nil {
		return rep, nil
	}
	if werr := writable(filepath.Dir(s.cfg.QueuePath())); werr != nil {
		return rep, errors.Mark(errors.WithSecondaryError(err, werr), ErrStoreUnavailable)
	}
	s.log.Errorw("Outreach queue not saved", "path", s.cfg.QueuePath(), "error", err)
	return rep, nil
}

// persistence turns a save failure into ErrStoreUnavailable when the store
// was not readable either, and into a logged warning otherwise.
func (s *Service) persistence(loadErr, saveErr error) error {
	if saveErr == nil {
		return nil
	}
	if err := unavailable(loadErr, saveErr); err != nil {
		s.log.Errorw("Store can be neither read nor written", "error", err)
		return err
	}
	s.log.Errorw("Store not saved, this invocation's changes will be retried", "error", saveErr)
	return saveErr
}
