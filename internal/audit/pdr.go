// Package audit provides PDR (Process Decision Record) writing for the idea
// engine and the outbound senders.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/store"
)

// Decision actions.
const (
	ActionIdeaCreate     = "idea.create"
	ActionIdeaTest       = "idea.test"
	ActionIdeaDeadEnd    = "idea.dead_end"
	ActionIdeaSpawnChild = "idea.spawn_child"
	ActionIdeaWire       = "idea.wire"
	ActionOutreachSend   = "outreach.send"
	ActionOutreachSkip   = "outreach.skip"
	ActionOutreachManual = "outreach.manual"
	ActionGuardBlock     = "guard.block"
)

// Recorder is what components use to leave an audit trail.
type Recorder interface {
	Record(action string, inputs interface{}, outcome, ideaID, details string)
	RecordAttempt(rec models.AttemptRecord)
}

// PDRWriter writes Process Decision Records for audit trails. A nil store
// makes it a no-op. Write failures are logged and never returned.
type PDRWriter struct {
	store *store.Store
	log   *zap.SugaredLogger
}

// NewPDRWriter creates a new PDR writer.
func NewPDRWriter(s *store.Store, log *zap.SugaredLogger) *PDRWriter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &PDRWriter{store: s, log: log}
}

// Record writes a PDR entry for a state-mutating action.
func (w *PDRWriter) Record(action string, inputs interface{}, outcome, ideaID, details string) {
	if w == nil || w.store == nil {
		return
	}
	if _, err := w.store.WritePDR(action, HashInputs(inputs), outcome, ideaID, details); err != nil {
		w.log.Warnw("Failed to write decision record", "action", action, "idea_id", ideaID, "error", err)
	}
}

// RecordAttempt stores one idea test cycle.
func (w *PDRWriter) RecordAttempt(rec models.AttemptRecord) {
	if w == nil || w.store == nil {
		return
	}
	if _, err := w.store.RecordAttempt(rec); err != nil {
		w.log.Warnw("Failed to write attempt record", "idea_id", rec.IdeaID, "attempt", rec.Attempt, "error", err)
	}
}

// HashInputs creates a SHA256 hash of the inputs for reproducibility.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(string, interface{}, string, string, string) {}
func (Nop) RecordAttempt(models.AttemptRecord)                 {}
