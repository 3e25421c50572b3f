// Package graph persists every idea ever considered, its status, attempt
// history counters, and lineage.
//
// Persistence is whole-graph read-modify-write: Open loads the full set,
// callers mutate it in memory, and Save rewrites the full set atomically.
// Invocations are single-process and run-to-completion, so last writer wins.
package graph

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/jsonfile"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

// Sentinel errors for graph operations.
var (
	ErrNotFound          = errors.New("idea not found")
	ErrDuplicate         = errors.New("idea with this title already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptyTitle        = errors.New("idea title is required")
	ErrNotOverwritten    = errors.New("unreadable idea graph left in place")
)

var allowedTransitions = map[models.IdeaStatus]map[models.IdeaStatus]struct{}{
	models.StatusGenerated: {
		models.StatusTested: {},
	},
	models.StatusTested: {
		models.StatusWorking: {},
		models.StatusFailed:  {},
		models.StatusDeadEnd: {},
	},
	models.StatusFailed: {
		models.StatusTested:  {}, // retry on a later run
		models.StatusDeadEnd: {},
	},
	models.StatusWorking: {
		models.StatusWiredIn: {},
	},
}

// CanTransition reports whether an idea may move from one status to another.
func CanTransition(from, to models.IdeaStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Details carries the optional fields recorded alongside a transition.
type Details struct {
	Result         string
	HardWallReason string
	FailureClass   models.FailureClass
	WiredDate      string
}

// Store is the in-memory view of the idea graph file.
type Store struct {
	path    string
	ideas   []*models.Idea
	byID    map[string]*models.Idea
	now     func() time.Time
	log     *zap.SugaredLogger
	loadErr error
	// pinned is set when an unreadable file could not be moved aside; Save
	// then refuses to replace it.
	pinned bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Open loads the graph at path. A missing file is an empty graph. A corrupt
// or unreadable file also degrades to an empty graph; the cause is kept in
// LoadErr and the file is moved aside so the next Save cannot destroy it.
// When it cannot be moved, Save refuses to write.
func Open(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		byID: make(map[string]*models.Idea),
		now:  func() time.Time { return time.Now().UTC() },
		log:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var ideas []*models.Idea
	if _, err := jsonfile.Load(path, &ideas); err != nil {
		s.loadErr = err
		s.log.Warnw("Idea graph unreadable, starting from an empty graph", "path", path, "error", err)
		s.moveAside()
		return s
	}

	for _, idea := range ideas {
		if idea == nil || idea.ID == "" {
			continue
		}
		if _, dup := s.byID[idea.ID]; dup {
			continue
		}
		if !idea.Status.Valid() {
			s.log.Warnw("Unknown idea status, treating as generated", "idea_id", idea.ID, "status", idea.Status)
			idea.Status = models.StatusGenerated
		}
		s.ideas = append(s.ideas, idea)
		s.byID[idea.ID] = idea
	}
	return s
}

func (s *Store) moveAside() {
	kind := "unreadable"
	if errors.Is(s.loadErr, jsonfile.ErrCorrupt) {
		kind = "corrupt"
	}
	aside := s.path + "." + kind + "-" + s.now().Format("20060102T150405")
	if err := os.Rename(s.path, aside); err != nil {
		s.pinned = true
		s.log.Errorw("Could not move idea graph aside, saves are disabled", "path", s.path, "error", err)
		return
	}
	s.log.Warnw("Moved idea graph aside", "path", aside)
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// LoadErr returns the error that forced Open to degrade, if any.
func (s *Store) LoadErr() error { return s.loadErr }

// Save rewrites the whole graph. On failure the previous file is untouched.
// It fails with ErrNotOverwritten while an unreadable file is still in place.
func (s *Store) Save() error {
	if s.pinned {
		return errors.WithSecondaryError(errors.Wrapf(ErrNotOverwritten, "save idea graph %s", s.path), s.loadErr)
	}
	ideas := s.ideas
	if ideas == nil {
		ideas = []*models.Idea{}
	}
	if err := jsonfile.Save(s.path, ideas); err != nil {
		return errors.Wrap(err, "save idea graph")
	}
	return nil
}

// Create adds a new idea in the generated state.
func (s *Store) Create(c models.Candidate) (models.Idea, error) {
	if models.TitleKey(c.Title) == "" {
		return models.Idea{}, ErrEmptyTitle
	}
	if existing, ok := s.FindByTitle(c.Title); ok {
		return existing, errors.Wrapf(ErrDuplicate, "%q is %s", c.Title, existing.ID)
	}
	idea := s.newIdea(c)
	s.insert(idea)
	return *idea, nil
}

// Get returns a copy of the idea with the given id.
func (s *Store) Get(id string) (models.Idea, error) {
	idea, ok := s.byID[id]
	if !ok {
		return models.Idea{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return *idea, nil
}

// FindByTitle looks an idea up by normalised title.
func (s *Store) FindByTitle(title string) (models.Idea, bool) {
	key := models.TitleKey(title)
	for _, idea := range s.ideas {
		if models.TitleKey(idea.Title) == key {
			return *idea, true
		}
	}
	return models.Idea{}, false
}

// UpdateStatus moves an idea along the lattice. Updating to the current
// status is a no-op; any transition outside the lattice is rejected.
// Entering tested counts a new attempt.
func (s *Store) UpdateStatus(id string, status models.IdeaStatus, d Details) (models.Idea, error) {
	idea, ok := s.byID[id]
	if !ok {
		return models.Idea{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if idea.Status == status {
		return *idea, nil
	}
	if !CanTransition(idea.Status, status) {
		return *idea, errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", id, idea.Status, status)
	}

	now := s.now()
	idea.Status = status
	idea.UpdatedAt = now

	switch status {
	case models.StatusTested:
		idea.Attempts++
		idea.LastTestedAt = &now
	case models.StatusWorking:
		idea.FailureClass = ""
	case models.StatusDeadEnd:
		if d.HardWallReason != "" {
			idea.HardWallReason = d.HardWallReason
		}
	case models.StatusWiredIn:
		idea.WiredDate = d.WiredDate
		if idea.WiredDate == "" {
			idea.WiredDate = now.Format("2006-01-02")
		}
	}
	if d.Result != "" {
		idea.LastResult = d.Result
	}
	if d.FailureClass != "" {
		idea.FailureClass = d.FailureClass
	}
	return *idea, nil
}

// Retire marks a failed idea dead_end because its own path is exhausted and,
// in the same step, creates the alternate child when one is supplied. Children
// are only ever created here, so lineage always points at a terminal ancestor.
func (s *Store) Retire(id string, d Details, alt *models.Candidate) (models.Idea, *models.Idea, error) {
	parent, err := s.UpdateStatus(id, models.StatusDeadEnd, d)
	if err != nil {
		return parent, nil, err
	}
	if alt == nil || d.FailureClass == models.FailureHardWall {
		return parent, nil, nil
	}
	if models.TitleKey(alt.Title) == "" {
		return parent, nil, nil
	}
	if existing, ok := s.FindByTitle(alt.Title); ok {
		s.log.Infow("Alternate path already exists, not spawning a child",
			"idea_id", id, "existing_id", existing.ID)
		return parent, nil, nil
	}

	child := s.newIdea(*alt)
	child.ParentID = id
	s.insert(child)

	p := s.byID[id]
	p.ChildID = child.ID
	return *p, ptr(*child), nil
}

// List returns ideas in graph order, optionally filtered by status.
func (s *Store) List(statuses ...models.IdeaStatus) []models.Idea {
	want := make(map[models.IdeaStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	out := make([]models.Idea, 0, len(s.ideas))
	for _, idea := range s.ideas {
		if len(want) > 0 && !want[idea.Status] {
			continue
		}
		out = append(out, *idea)
	}
	return out
}

// All returns every idea in graph order.
func (s *Store) All() []models.Idea {
	return s.List()
}

// Counts tallies ideas by status.
func (s *Store) Counts() map[models.IdeaStatus]int {
	counts := make(map[models.IdeaStatus]int, len(models.AllStatuses))
	for _, idea := range s.ideas {
		counts[idea.Status]++
	}
	return counts
}

// Lineage walks parent links from id up to the root, starting with id itself.
func (s *Store) Lineage(id string) []models.Idea {
	var chain []models.Idea
	seen := make(map[string]bool)
	for id != "" && !seen[id] {
		seen[id] = true
		idea, ok := s.byID[id]
		if !ok {
			break
		}
		chain = append(chain, *idea)
		id = idea.ParentID
	}
	return chain
}

func (s *Store) newIdea(c models.Candidate) *models.Idea {
	now := s.now()
	return &models.Idea{
		ID:           uuid.New().String(),
		Title:        c.Title,
		Description:  c.Description,
		Rationale:    c.Rationale,
		Category:     c.Category,
		MissionScore: c.MissionScore,
		Feasibility:  c.Feasibility,
		Probe:        c.Probe,
		Alternative:  c.Alternative,
		Status:       models.StatusGenerated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Store) insert(idea *models.Idea) {
	s.ideas = append(s.ideas, idea)
	s.byID[idea.ID] = idea
}

func ptr[T any](v T) *T { return &v }
