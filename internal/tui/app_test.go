package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/jsonfile"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

type stubSource struct {
	ideas    []models.Idea
	attempts map[string][]models.AttemptRecord
}

func (s stubSource) Ideas() ([]models.Idea, error) { return s.ideas, nil }
func (s stubSource) Attempts(id string) ([]models.AttemptRecord, error) {
	return s.attempts[id], nil
}

func sampleIdeas() []models.Idea {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []models.Idea{
		{ID: "aaaaaaaa-1", Title: "Grant digest", Status: models.StatusDeadEnd, Attempts: 3, CreatedAt: base},
		{ID: "bbbbbbbb-2", Title: "Grant digest via RSS", Status: models.StatusWorking, Attempts: 1, ParentID: "aaaaaaaa-1", CreatedAt: base.Add(time.Minute)},
		{ID: "cccccccc-3", Title: "Press finder", Status: models.StatusGenerated, CreatedAt: base.Add(2 * time.Minute)},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, src Source) *App {
	t.Helper()
	a := New(src, "")
	msg := a.load()()
	a.Update(msg)
	return a
}

func TestApp_LoadAndFilter(t *testing.T) {
	a := loaded(t, stubSource{ideas: sampleIdeas()})

	assert.False(t, a.loading)
	assert.Len(t, a.visible, 3)
	assert.Contains(t, a.View(), "Ideas: 3")

	// ALL -> generated
	a.Update(key("tab"))
	require.Len(t, a.visible, 1)
	assert.Equal(t, "cccccccc-3", a.visible[0].ID)

	// generated -> tested: nothing matches
	a.Update(key("tab"))
	assert.Empty(t, a.visible)
	assert.Contains(t, a.View(), "No ideas match")

	// tested -> working
	a.Update(key("tab"))
	require.Len(t, a.visible, 1)
	assert.Equal(t, models.StatusWorking, a.visible[0].Status)

	for i := 0; i < len(filters)-3; i++ {
		a.Update(key("tab"))
	}
	assert.Len(t, a.visible, 3)
}

func TestApp_DetailShowsLineageAndAttempts(t *testing.T) {
	src := stubSource{
		ideas: sampleIdeas(),
		attempts: map[string][]models.AttemptRecord{
			"bbbbbbbb-2": {{Attempt: 1, Passed: true, Detail: "200 OK"}},
		},
	}
	a := loaded(t, src)
	a.Update(key("tab"))
	a.Update(key("tab"))
	a.Update(key("tab"))

	_, cmd := a.Update(key("enter"))
	require.NotNil(t, cmd)
	a.Update(cmd())
	assert.True(t, a.detail)
	require.Len(t, a.attempts, 1)

	view := a.View()
	assert.Contains(t, view, "Grant digest via RSS")
	assert.Contains(t, view, "Lineage")
	assert.Contains(t, view, "200 OK")

	a.Update(key("esc"))
	assert.False(t, a.detail)
}

func TestApp_Keys(t *testing.T) {
	a := loaded(t, stubSource{ideas: sampleIdeas()})

	_, cmd := a.Update(key("r"))
	require.NotNil(t, cmd)
	_, ok := cmd().(ideasLoadedMsg)
	assert.True(t, ok)

	_, cmd = a.Update(fileChangedMsg{})
	require.NotNil(t, cmd)

	_, cmd = a.Update(key("q"))
	require.NotNil(t, cmd)
	_, ok = cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ideas.json")

	ideas, err := FileSource{Path: path}.Ideas()
	require.NoError(t, err)
	assert.Empty(t, ideas)

	require.NoError(t, jsonfile.Save(path, sampleIdeas()))
	ideas, err = FileSource{Path: path}.Ideas()
	require.NoError(t, err)
	assert.Len(t, ideas, 3)

	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o644))
	a := loaded(t, FileSource{Path: path})
	assert.Contains(t, a.View(), "Error:")
}

func TestWatcher_ReportsRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ideas.json")
	require.NoError(t, jsonfile.Save(path, []models.Idea{}))

	w, err := newWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	got := make(chan tea.Msg, 1)
	go func() { got <- w.wait()() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	require.NoError(t, jsonfile.Save(path, sampleIdeas()))

	select {
	case msg := <-got:
		assert.IsType(t, fileChangedMsg{}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
