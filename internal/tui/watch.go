package tui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// fileChangedMsg reports that the watched file was rewritten.
type fileChangedMsg struct{}

// watcher follows one file. The directory is watched because stores are
// replaced by rename, which drops a watch on the file itself.
type watcher struct {
	fs   *fsnotify.Watcher
	base string
}

func newWatcher(path string) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, err
	}
	return &watcher{fs: fs, base: filepath.Base(path)}, nil
}

// relevant reports whether ev touches the watched file's content.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.base {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// wait blocks until the next relevant change. It must be re-issued after
// every fileChangedMsg.
func (w *watcher) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.fs.Events:
				if !ok {
					return nil
				}
				if w.relevant(ev) {
					return fileChangedMsg{}
				}
			case err, ok := <-w.fs.Errors:
				if !ok {
					return nil
				}
				return errMsg{err}
			}
		}
	}
}

func (w *watcher) Close() error {
	return w.fs.Close()
}
