package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/store"
)

func TestHashInputs(t *testing.T) {
	a := HashInputs(map[string]string{"idea": "x"})
	b := HashInputs(map[string]string{"idea": "x"})
	c := HashInputs(map[string]string{"idea": "y"})

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "hash_error", HashInputs(make(chan int)))
}

func TestPDRWriter_RecordsThroughStore(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer s.Close()

	w := NewPDRWriter(s, nil)
	w.Record(ActionIdeaCreate, map[string]string{"title": "t"}, "created", "idea-1", "")
	w.RecordAttempt(models.AttemptRecord{IdeaID: "idea-1", Attempt: 1, StartedAt: time.Now(), EndedAt: time.Now()})

	entries, err := s.ListPDR("idea-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionIdeaCreate, entries[0].Action)
	assert.Equal(t, HashInputs(map[string]string{"title": "t"}), entries[0].InputsHash)

	attempts, err := s.AttemptsForIdea("idea-1")
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestPDRWriter_ClosedStoreIsNotFatal(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	w := NewPDRWriter(s, nil)
	assert.NotPanics(t, func() {
		w.Record(ActionGuardBlock, nil, "blocked", "", "")
		w.RecordAttempt(models.AttemptRecord{IdeaID: "x"})
	})
}

func TestPDRWriter_NilStore(t *testing.T) {
	var w *PDRWriter
	assert.NotPanics(t, func() { w.Record(ActionIdeaWire, nil, "wired_in", "x", "") })
	assert.NotPanics(t, func() { NewPDRWriter(nil, nil).Record(ActionIdeaWire, nil, "wired_in", "x", "") })
}
