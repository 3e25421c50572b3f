package tui

import (
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/jsonfile"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

// Source is where the dashboard reads ideas from. It never writes.
type Source interface {
	Ideas() ([]models.Idea, error)
	Attempts(id string) ([]models.AttemptRecord, error)
}

// FileSource reads the idea graph file directly. History, when set, supplies
// attempt records for the detail view.
type FileSource struct {
	Path    string
	History func(id string) ([]models.AttemptRecord, error)
}

// Ideas decodes the graph file. A missing file is an empty graph.
func (f FileSource) Ideas() ([]models.Idea, error) {
	var ideas []models.Idea
	if _, err := jsonfile.Load(f.Path, &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

// Attempts returns the attempt history for one idea.
func (f FileSource) Attempts(id string) ([]models.AttemptRecord, error) {
	if f.History == nil {
		return nil, nil
	}
	return f.History(id)
}
