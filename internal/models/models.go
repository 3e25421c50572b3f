// Package models defines the core domain types for the idea lifecycle.
package models

import (
	"strings"
	"time"
)

// IdeaStatus represents where an idea sits in its lifecycle.
type IdeaStatus string

const (
	StatusGenerated IdeaStatus = "generated"
	StatusTested    IdeaStatus = "tested"
	StatusWorking   IdeaStatus = "working"
	StatusFailed    IdeaStatus = "failed"
	StatusDeadEnd   IdeaStatus = "dead_end"
	StatusWiredIn   IdeaStatus = "wired_in"
)

// AllStatuses lists every status in lattice order.
var AllStatuses = []IdeaStatus{
	StatusGenerated,
	StatusTested,
	StatusWorking,
	StatusFailed,
	StatusDeadEnd,
	StatusWiredIn,
}

// Valid reports whether s is a known status.
func (s IdeaStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s IdeaStatus) Terminal() bool {
	return s == StatusDeadEnd || s == StatusWiredIn
}

// FailureClass records why an idea stopped or failed.
type FailureClass string

const (
	FailureTransient FailureClass = "transient"
	FailureHardWall  FailureClass = "hard_wall"
	FailureExhausted FailureClass = "exhausted"
)

// Probe kinds understood by the built-in tester.
const (
	ProbeFetchURL  = "fetch_url"
	ProbeCheckPath = "check_path"
	ProbeExec      = "exec"
)

// Probe is the opaque test instruction carried by an idea.
type Probe struct {
	Kind   string `json:"kind" yaml:"kind"`
	Target string `json:"target" yaml:"target"`
	// FreeTier marks that the provider offers a free tier, so an auth denial is not final.
	FreeTier bool `json:"free_tier,omitempty" yaml:"free_tier,omitempty"`
}

// Idea is a candidate automation.
type Idea struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Rationale      string       `json:"rationale,omitempty"`
	Category       string       `json:"category,omitempty"`
	MissionScore   int          `json:"mission_score,omitempty"`
	Feasibility    int          `json:"feasibility,omitempty"`
	Probe          Probe        `json:"probe"`
	Alternative    string       `json:"alternative,omitempty"`
	Status         IdeaStatus   `json:"status"`
	Attempts       int          `json:"attempts"`
	ParentID       string       `json:"parent_id,omitempty"`
	ChildID        string       `json:"child_id,omitempty"`
	HardWallReason string       `json:"hard_wall_reason,omitempty"`
	FailureClass   FailureClass `json:"failure_class,omitempty"`
	LastResult     string       `json:"last_result,omitempty"`
	WiredDate      string       `json:"wired_date,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	LastTestedAt   *time.Time   `json:"last_tested_at,omitempty"`
}

// Score orders ideas for testing; higher is tested first.
func (i Idea) Score() int {
	return i.MissionScore * i.Feasibility
}

// Candidate is what a generator proposes before it becomes an Idea.
type Candidate struct {
	Title        string `json:"title" yaml:"title"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Rationale    string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Category     string `json:"category,omitempty" yaml:"category,omitempty"`
	MissionScore int    `json:"mission_score,omitempty" yaml:"mission,omitempty"`
	Feasibility  int    `json:"feasibility,omitempty" yaml:"feasibility,omitempty"`
	Probe        Probe  `json:"probe" yaml:"probe"`
	Alternative  string `json:"alternative,omitempty" yaml:"alternative,omitempty"`
}

// TitleKey normalises a title for duplicate detection.
func TitleKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Mission is the external context handed to a generator.
type Mission struct {
	Statement  string   `json:"statement" yaml:"statement" mapstructure:"statement"`
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty" mapstructure:"categories"`
}

// Outcome is the structured result of testing an idea.
type Outcome struct {
	Passed     bool   `json:"passed"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message,omitempty"`
	// FreeTier is copied from the probe so the evaluator can see it.
	FreeTier      bool `json:"free_tier,omitempty"`
	RequiresSpend bool `json:"requires_spend,omitempty"`
	Harmful       bool `json:"harmful,omitempty"`
}

// AttemptRecord is one test cycle of an idea, kept in the audit store.
type AttemptRecord struct {
	ID         string       `json:"id"`
	IdeaID     string       `json:"idea_id"`
	Attempt    int          `json:"attempt"`
	Passed     bool         `json:"passed"`
	StatusCode int          `json:"status_code"`
	Class      FailureClass `json:"class,omitempty"`
	Detail     string       `json:"detail"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    time.Time    `json:"ended_at"`
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	IdeaID     string    `json:"idea_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
