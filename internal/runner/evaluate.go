package runner

import (
	"net/http"
	"strings"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

// Hard-wall reasons recorded on dead_end ideas.
const (
	ReasonAuthDenied      = "auth_denied_no_free_tier"
	ReasonProviderRefusal = "provider_refusal"
	ReasonRequiresPayment = "requires_payment"
	ReasonPotentialHarm   = "potential_harm"
)

// HardWall is one terminal stop condition.
type HardWall struct {
	Reason string
	Match  func(models.Outcome) bool
}

var refusalPhrases = []string{
	"terms of service",
	"terms of use",
	"usage policy",
	"usage policies",
	"acceptable use",
	"violates our policies",
	"violation of our policies",
}

// DefaultHardWalls returns the built-in hard-wall set.
func DefaultHardWalls() []HardWall {
	return []HardWall{
		{
			Reason: ReasonPotentialHarm,
			Match:  func(o models.Outcome) bool { return o.Harmful },
		},
		{
			Reason: ReasonAuthDenied,
			Match: func(o models.Outcome) bool {
				return (o.StatusCode == http.StatusUnauthorized || o.StatusCode == http.StatusForbidden) && !o.FreeTier
			},
		},
		{
			Reason: ReasonRequiresPayment,
			Match: func(o models.Outcome) bool {
				return o.StatusCode == http.StatusPaymentRequired || o.RequiresSpend
			},
		},
		{
			Reason: ReasonProviderRefusal,
			Match:  providerRefused,
		},
	}
}

// providerRefused reports a refusal only for statuses a provider uses to
// decline a request. Server errors and anything without an HTTP status stay
// transient whatever their body says.
func providerRefused(o models.Outcome) bool {
	switch o.StatusCode {
	case http.StatusUnavailableForLegalReasons:
		return true
	case http.StatusBadRequest, http.StatusForbidden, http.StatusUnprocessableEntity:
	default:
		return false
	}
	msg := strings.ToLower(o.Message)
	for _, p := range refusalPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Verdict is the evaluator's classification of one outcome.
type Verdict struct {
	Passed bool
	Class  models.FailureClass
	Reason string
}

// Evaluator classifies test outcomes. Anything no hard wall recognises is
// transient.
type Evaluator struct {
	walls []HardWall
}

// NewEvaluator builds an evaluator. With no walls the defaults are used.
func NewEvaluator(walls ...HardWall) *Evaluator {
	if len(walls) == 0 {
		walls = DefaultHardWalls()
	}
	return &Evaluator{walls: walls}
}

// Classify checks the hard walls in order. A passing outcome still hits the
// harm wall when it is flagged harmful.
func (e *Evaluator) Classify(out models.Outcome) Verdict {
	if out.Passed && !out.Harmful {
		return Verdict{Passed: true}
	}
	for _, w := range e.walls {
		if w.Match != nil && w.Match(out) {
			return Verdict{Class: models.FailureHardWall, Reason: w.Reason}
		}
	}
	return Verdict{Class: models.FailureTransient}
}
