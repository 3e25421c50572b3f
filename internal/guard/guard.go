// Package guard blocks duplicate outbound content per engine per calendar day.
//
// Keys are "<day>:<engine>:<fingerprint>". The log is loaded once, filtered
// to the current day, and rewritten after every mutation.
package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/audit"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/jsonfile"
)

const dayLayout = "2006-01-02"

// Record is one fingerprint log entry.
type Record struct {
	Engine    string    `json:"engine"`
	Date      string    `json:"date"`
	FP        string    `json:"fp"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is today's activity.
type Stats struct {
	Date     string         `json:"date"`
	Total    int            `json:"today_total"`
	ByEngine map[string]int `json:"by_engine"`
}

// Guard is the fingerprint log for one invocation.
type Guard struct {
	path    string
	entries map[string]Record
	now     func() time.Time
	log     *zap.SugaredLogger
	audit   audit.Recorder
	loadErr error
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the time source. The calendar day is taken in the
// returned time's location.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// WithAudit records blocked duplicates.
func WithAudit(a audit.Recorder) Option {
	return func(g *Guard) {
		if a != nil {
			g.audit = a
		}
	}
}

// New loads the log at path. An unreadable log degrades to an empty one.
func New(path string, opts ...Option) *Guard {
	g := &Guard{
		path:    path,
		entries: make(map[string]Record),
		now:     time.Now,
		log:     zap.NewNop().Sugar(),
		audit:   audit.Nop{},
	}
	for _, opt := range opts {
		opt(g)
	}

	var stored map[string]Record
	if _, err := jsonfile.Load(path, &stored); err != nil {
		g.loadErr = err
		g.log.Warnw("Fingerprint log unreadable, starting empty", "path", path, "error", err)
		return g
	}
	prefix := g.today() + ":"
	for k, v := range stored {
		if strings.HasPrefix(k, prefix) {
			g.entries[k] = v
		}
	}
	return g
}

// LoadErr returns the error that forced New to start empty, if any.
func (g *Guard) LoadErr() error { return g.loadErr }

// Fingerprint hashes content to the 16 hex characters used in keys.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// ShouldSend reports whether content is new for engine today, recording it if
// so. A duplicate leaves the log unchanged.
func (g *Guard) ShouldSend(engine, content string) bool {
	key, fp, day := g.key(engine, content)
	if _, dup := g.entries[key]; dup {
		g.log.Infow("Duplicate blocked", "engine", engine, "fp", fp)
		g.audit.Record(audit.ActionGuardBlock, map[string]string{"key": key}, "blocked", "", engine)
		return false
	}
	g.put(key, engine, fp, day)
	if err := g.save(); err != nil {
		g.log.Errorw("Failed to persist fingerprint log", "path", g.path, "error", err)
	}
	return true
}

// MarkSent records content as sent without checking, for callers that sent
// through another path.
func (g *Guard) MarkSent(engine, content string) error {
	key, fp, day := g.key(engine, content)
	g.put(key, engine, fp, day)
	return g.save()
}

// Seen reports whether content was already recorded for engine today,
// without recording anything.
func (g *Guard) Seen(engine, content string) bool {
	key, _, _ := g.key(engine, content)
	_, ok := g.entries[key]
	return ok
}

// Stats counts today's entries per engine.
func (g *Guard) Stats() Stats {
	st := Stats{Date: g.today(), ByEngine: make(map[string]int)}
	prefix := st.Date + ":"
	for k, v := range g.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		st.Total++
		engine := v.Engine
		if engine == "" {
			engine = "unknown"
		}
		st.ByEngine[engine]++
	}
	return st
}

// Engines returns today's engine names in order.
func (st Stats) Engines() []string {
	out := make([]string, 0, len(st.ByEngine))
	for e := range st.ByEngine {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func (g *Guard) today() string {
	return g.now().Format(dayLayout)
}

func (g *Guard) key(engine, content string) (key, fp, day string) {
	fp = Fingerprint(content)
	day = g.today()
	return day + ":" + engine + ":" + fp, fp, day
}

func (g *Guard) put(key, engine, fp, day string) {
	g.entries[key] = Record{
		Engine:    engine,
		Date:      day,
		FP:        fp,
		Timestamp: g.now().UTC(),
	}
}

// save drops entries from earlier days and rewrites the log.
func (g *Guard) save() error {
	prefix := g.today() + ":"
	for k := range g.entries {
		if !strings.HasPrefix(k, prefix) {
			delete(g.entries, k)
		}
	}
	if err := jsonfile.Save(g.path, g.entries); err != nil {
		return errors.Wrap(err, "save fingerprint log")
	}
	return nil
}
