package outreach

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/audit"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/guard"
)

// GuardEngine is the engine name outreach content is fingerprinted under.
const GuardEngine = "outreach"

// Status is the result of processing one target.
type Status string

const (
	StatusSent           Status = "sent"
	StatusSkipped        Status = "skipped"
	StatusManualRequired Status = "manual_required"
	StatusFailed         Status = "failed"
	StatusDeferred       Status = "deferred"
	StatusWouldSend      Status = "would_send"
)

// Result describes one processed target.
type Result struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Target   string `json:"target,omitempty"`
	Status   Status `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// Report summarises one run.
type Report struct {
	DryRun      bool     `json:"dry_run"`
	Sent        int      `json:"sent"`
	Skipped     int      `json:"skipped"`
	Manual      int      `json:"manual_required"`
	Failed      int      `json:"failed"`
	Deferred    int      `json:"deferred"`
	WouldSend   int      `json:"would_send,omitempty"`
	AlreadySent int      `json:"already_sent"`
	Results     []Result `json:"results"`
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusSent:
		r.Sent++
	case StatusSkipped:
		r.Skipped++
	case StatusManualRequired:
		r.Manual++
	case StatusFailed:
		r.Failed++
	case StatusDeferred:
		r.Deferred++
	case StatusWouldSend:
		r.WouldSend++
	}
}

// Config defines sender limits.
type Config struct {
	// MaxSendsPerRun bounds delivery attempts per invocation.
	MaxSendsPerRun int `mapstructure:"max_sends_per_run" yaml:"max_sends_per_run"`
	// SendInterval is the minimum spacing between deliveries.
	SendInterval time.Duration `mapstructure:"send_interval" yaml:"send_interval"`
	// RequireApproval skips entries without approved: true.
	RequireApproval bool `mapstructure:"require_approval" yaml:"require_approval"`
}

// DefaultConfig returns the default sender configuration.
func DefaultConfig() *Config {
	return &Config{MaxSendsPerRun: 5, SendInterval: 2 * time.Second}
}

// Sender processes the outreach queue.
type Sender struct {
	queue    *Queue
	channel  Channel
	guard    *guard.Guard
	composer Composer
	limiter  *rate.Limiter
	cfg      *Config
	audit    audit.Recorder
	log      *zap.SugaredLogger
	now      func() time.Time
	dryRun   bool
	attempts int
}

// Option configures a Sender.
type Option func(*Sender)

// WithGuard clears every message through the fingerprint guard.
func WithGuard(g *guard.Guard) Option {
	return func(s *Sender) { s.guard = g }
}

// WithComposer replaces the built-in composer.
func WithComposer(c Composer) Option {
	return func(s *Sender) {
		if c != nil {
			s.composer = c
		}
	}
}

// WithAudit sets the decision recorder.
func WithAudit(a audit.Recorder) Option {
	return func(s *Sender) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Sender) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source for sent markers.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) { s.now = now }
}

// WithDryRun verifies and reports without delivering, marking or saving.
func WithDryRun(dry bool) Option {
	return func(s *Sender) { s.dryRun = dry }
}

// NewSender creates a sender over q. A nil channel behaves as one without
// credentials.
func NewSender(q *Queue, ch Channel, cfg *Config, opts ...Option) *Sender {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	limit := rate.Inf
	if cfg.SendInterval > 0 {
		limit = rate.Every(cfg.SendInterval)
	}
	s := &Sender{
		queue:    q,
		channel:  ch,
		composer: TextComposer{},
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		audit:    audit.Nop{},
		log:      zap.NewNop().Sugar(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every unprocessed entry once, then persists the queue in
// full. Per-target failures are reported, not returned; the only error is a
// queue that could not be saved.
func (s *Sender) Run(ctx context.Context) (*Report, error) {
	rep := &Report{DryRun: s.dryRun}
	if !s.configured() {
		s.log.Warnw("No credentials for outreach channel, targets will be skipped")
	}

	for _, category := range s.queue.Names() {
		for _, e := range s.queue.Categories[category] {
			if e == nil {
				continue
			}
			if e.Sent() {
				rep.AlreadySent++
				continue
			}
			rep.add(s.process(ctx, category, e))
		}
	}

	if s.dryRun {
		return rep, nil
	}
	if err := s.queue.Save(); err != nil {
		return rep, err
	}
	return rep, nil
}

func (s *Sender) configured() bool {
	return s.channel != nil && s.channel.Configured()
}

func (s *Sender) process(ctx context.Context, category string, e Entry) Result {
	res := Result{Category: category, Name: e.Name(), Target: e.Email()}
	date := s.now().Format("2006-01-02")

	if s.cfg.RequireApproval && !e.Approved() {
		return s.skip(res, "awaiting approval")
	}

	if res.Target == "" {
		res.Status = StatusManualRequired
		res.Target = e.URL()
		res.Reason = "no address, act manually"
		if res.Target != "" {
			res.Reason += " at " + res.Target
		}
		if !s.dryRun {
			e.markManual(date, s.now().UTC().Format(time.RFC3339))
			s.audit.Record(audit.ActionOutreachManual, e, string(res.Status), "", res.Name)
		}
		s.log.Infow("Manual outreach required", "category", category, "name", res.Name, "target", res.Target)
		return res
	}

	if s.attempts >= s.cfg.MaxSendsPerRun {
		res.Status = StatusDeferred
		res.Reason = "per-run send ceiling reached"
		return res
	}

	if err := VerifyAddress(res.Target); err != nil {
		return s.skip(res, err.Error())
	}

	if !s.configured() {
		return s.skip(res, "no credentials for channel")
	}

	msg := s.composer.Compose(category, e)
	msg.To = res.Target
	fingerprint := msg.To + "\n" + msg.Subject + "\n" + msg.Body
	if s.guard != nil && s.guard.Seen(GuardEngine, fingerprint) {
		return s.skip(res, "duplicate content already sent today")
	}

	if s.dryRun {
		res.Status = StatusWouldSend
		s.attempts++
		return res
	}

	if err := s.limiter.Wait(ctx); err != nil {
		res.Status = StatusDeferred
		res.Reason = "cancelled: " + err.Error()
		return res
	}
	s.attempts++
	if err := s.channel.Deliver(ctx, msg); err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		s.log.Warnw("Delivery failed", "category", category, "target", res.Target, "error", err)
		return res
	}

	e.markSent(date)
	if s.guard != nil {
		if err := s.guard.MarkSent(GuardEngine, fingerprint); err != nil {
			s.log.Warnw("Failed to record outreach fingerprint", "target", res.Target, "error", err)
		}
	}
	res.Status = StatusSent
	s.audit.Record(audit.ActionOutreachSend, map[string]string{"to": msg.To, "subject": msg.Subject}, string(res.Status), "", res.Name)
	s.log.Infow("Sent", "category", category, "target", res.Target, "subject", msg.Subject)
	return res
}

func (s *Sender) skip(res Result, reason string) Result {
	res.Status = StatusSkipped
	res.Reason = reason
	if !s.dryRun {
		s.audit.Record(audit.ActionOutreachSkip, res, string(res.Status), "", reason)
	}
	s.log.Infow("Skipped", "category", res.Category, "name", res.Name, "target", res.Target, "reason", reason)
	return res
}

// Reasons lists every skip reason in the report, one per line.
func (r *Report) Reasons() string {
	var lines []string
	for _, res := range r.Results {
		if res.Reason != "" {
			lines = append(lines, res.Category+"/"+res.Name+": "+res.Reason)
		}
	}
	return strings.Join(lines, "\n")
}
