// Package outreach sends targeted communications from a persisted queue,
// gated by address verification, a per-run ceiling and the fingerprint guard.
package outreach

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/jsonfile"
)

// ManualPrefix starts the sent marker of targets flagged for a human.
const ManualPrefix = "manual_required_"

// Entry is one outreach target. Fields the sender does not know about are
// kept as-is and written back unchanged.
type Entry map[string]interface{}

func (e Entry) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := e[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Name is the display name of the target.
func (e Entry) Name() string {
	if n := e.str("name", "title", "outlet"); n != "" {
		return n
	}
	return "(unnamed)"
}

// Email returns contact_email, falling back to the legacy email field.
func (e Entry) Email() string { return e.str("contact_email", "email") }

// URL returns the contact or application URL.
func (e Entry) URL() string { return e.str("contact_url", "apply_at", "contact") }

// Sent reports whether the target was already processed. Any truthy marker
// counts.
func (e Entry) Sent() bool {
	switch v := e["sent"].(type) {
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	case nil:
		return false
	default:
		return true
	}
}

// ManualRequired reports whether the target was flagged for a human.
func (e Entry) ManualRequired() bool {
	v, _ := e["sent"].(string)
	return strings.HasPrefix(v, ManualPrefix)
}

// Approved reports the approved flag.
func (e Entry) Approved() bool {
	v, _ := e["approved"].(bool)
	return v
}

func (e Entry) markSent(date string) {
	e["sent"] = date
}

func (e Entry) markManual(date, stamp string) {
	e["sent"] = ManualPrefix + date
	e["manual_required_at"] = stamp
	if u := e.URL(); u != "" {
		e["manual_url"] = u
	}
}

// Queue is the outreach queue file: entries grouped by category.
type Queue struct {
	path       string
	Categories map[string][]Entry
}

// LoadQueue reads the queue at path. A missing file yields empty grants and
// press categories.
func LoadQueue(path string) (*Queue, error) {
	q := &Queue{path: path, Categories: map[string][]Entry{}}
	found, err := jsonfile.Load(path, &q.Categories)
	if err != nil {
		return nil, errors.Wrapf(err, "load outreach queue %s", path)
	}
	if !found || q.Categories == nil {
		q.Categories = map[string][]Entry{"grants": {}, "press": {}}
	}
	return q, nil
}

// Path returns the backing file.
func (q *Queue) Path() string { return q.path }

// Names returns the categories in a stable order.
func (q *Queue) Names() []string {
	out := make([]string, 0, len(q.Categories))
	for c := range q.Categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Add appends an entry to a category.
func (q *Queue) Add(category string, e Entry) {
	q.Categories[category] = append(q.Categories[category], e)
}

// Pending counts entries not yet processed.
func (q *Queue) Pending() int {
	n := 0
	for _, entries := range q.Categories {
		for _, e := range entries {
			if e != nil && !e.Sent() {
				n++
			}
		}
	}
	return n
}

// Save rewrites the whole queue atomically.
func (q *Queue) Save() error {
	if err := jsonfile.Save(q.path, q.Categories); err != nil {
		return errors.Wrap(err, "save outreach queue")
	}
	return nil
}
