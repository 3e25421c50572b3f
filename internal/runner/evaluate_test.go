package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

func TestEvaluator_Classify(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name   string
		out    models.Outcome
		passed bool
		class  models.FailureClass
		reason string
	}{
		{"pass", models.Outcome{Passed: true, StatusCode: 200}, true, "", ""},
		{"forbidden", models.Outcome{StatusCode: 403}, false, models.FailureHardWall, ReasonAuthDenied},
		{"unauthorized", models.Outcome{StatusCode: 401}, false, models.FailureHardWall, ReasonAuthDenied},
		{"unauthorized with free tier", models.Outcome{StatusCode: 401, FreeTier: true}, false, models.FailureTransient, ""},
		{"payment required", models.Outcome{StatusCode: 402}, false, models.FailureHardWall, ReasonRequiresPayment},
		{"requires spend", models.Outcome{StatusCode: 200, RequiresSpend: true}, false, models.FailureHardWall, ReasonRequiresPayment},
		{"tos refusal", models.Outcome{StatusCode: 400, Message: "Request violates our Terms of Service"}, false, models.FailureHardWall, ReasonProviderRefusal},
		{"forbidden by policy with free tier", models.Outcome{StatusCode: 403, FreeTier: true, Message: "HTTP 403: blocked by our usage policy"}, false, models.FailureHardWall, ReasonProviderRefusal},
		{"legal block", models.Outcome{StatusCode: 451}, false, models.FailureHardWall, ReasonProviderRefusal},
		{"server error with tos footer", models.Outcome{StatusCode: 500, Message: `HTTP 500: <footer><a href="/tos">Terms of Service</a></footer>`}, false, models.FailureTransient, ""},
		{"bad gateway with policy page", models.Outcome{StatusCode: 502, Message: "HTTP 502: see our acceptable use page"}, false, models.FailureTransient, ""},
		{"no status mentioning terms", models.Outcome{Message: "exit status 1: terms of use not accepted"}, false, models.FailureTransient, ""},
		{"harm", models.Outcome{Passed: true, Harmful: true}, false, models.FailureHardWall, ReasonPotentialHarm},
		{"server error", models.Outcome{StatusCode: 500}, false, models.FailureTransient, ""},
		{"rate limited", models.Outcome{StatusCode: 429, Message: "slow down"}, false, models.FailureTransient, ""},
		{"malformed", models.Outcome{StatusCode: 200, Message: "unexpected end of JSON input"}, false, models.FailureTransient, ""},
		{"ambiguous refusal", models.Outcome{Message: "request refused"}, false, models.FailureTransient, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := e.Classify(tt.out)
			assert.Equal(t, tt.passed, v.Passed)
			assert.Equal(t, tt.class, v.Class)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestEvaluator_CustomWalls(t *testing.T) {
	e := NewEvaluator(HardWall{
		Reason: "geo_blocked",
		Match:  func(o models.Outcome) bool { return o.StatusCode == 451 },
	})

	assert.Equal(t, Verdict{Class: models.FailureHardWall, Reason: "geo_blocked"}, e.Classify(models.Outcome{StatusCode: 451}))
	assert.Equal(t, Verdict{Class: models.FailureTransient}, e.Classify(models.Outcome{StatusCode: 403}))
}
