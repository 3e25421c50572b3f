// Package probe tests ideas: it fetches a URL, checks an input path, or runs
// an allowlisted command, and reports a structured outcome.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors"
	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

// UserAgent is sent with every fetch.
const UserAgent = "mycelium-idea-probe/1.0"

// snippetLimit bounds how much of a response body is kept for diagnostics.
const snippetLimit = 512

// Tester runs an idea's test and reports what happened. Errors mean the test
// could not be carried out; callers treat them as transient failures.
type Tester interface {
	Test(ctx context.Context, idea models.Idea) (models.Outcome, error)
}

// Prober is the built-in Tester.
type Prober struct {
	client *http.Client
	root   string
	conn   connectors.Connector
}

// New creates a prober. root anchors relative check_path targets; conn runs
// exec probes and may be nil, in which case exec probes fail.
func New(root string, conn connectors.Connector, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		client: &http.Client{Timeout: timeout},
		root:   root,
		conn:   conn,
	}
}

// Test dispatches on the probe kind.
func (p *Prober) Test(ctx context.Context, idea models.Idea) (models.Outcome, error) {
	var (
		out models.Outcome
		err error
	)
	switch idea.Probe.Kind {
	case models.ProbeFetchURL:
		out, err = p.fetch(ctx, idea.Probe.Target)
	case models.ProbeCheckPath, "":
		out, err = p.checkPath(idea.Probe.Target)
	case models.ProbeExec:
		out, err = p.exec(ctx, idea.Probe.Target)
	default:
		out = models.Outcome{Message: fmt.Sprintf("unknown probe kind %q", idea.Probe.Kind)}
	}
	out.FreeTier = idea.Probe.FreeTier
	return out, err
}

func (p *Prober) fetch(ctx context.Context, url string) (models.Outcome, error) {
	if url == "" {
		return models.Outcome{Message: "fetch_url probe has no target"}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Outcome{Message: "bad url: " + err.Error()}, nil
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Outcome{}, errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLimit))
	out := models.Outcome{
		StatusCode:    resp.StatusCode,
		Passed:        resp.StatusCode >= 200 && resp.StatusCode < 300,
		RequiresSpend: resp.StatusCode == http.StatusPaymentRequired,
	}
	if out.Passed {
		out.Message = fmt.Sprintf("HTTP %d, %d bytes", resp.StatusCode, len(body))
	} else {
		out.Message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return out, nil
}

func (p *Prober) checkPath(target string) (models.Outcome, error) {
	if target == "" {
		return models.Outcome{Message: "check_path probe has no target"}, nil
	}
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, target)
	}
	info, err := os.Stat(path)
	if err != nil {
		return models.Outcome{Message: "not found: " + target}, nil
	}
	if info.IsDir() {
		entries, _ := os.ReadDir(path)
		return models.Outcome{Passed: true, Message: fmt.Sprintf("directory exists with %d entries", len(entries))}, nil
	}
	return models.Outcome{Passed: true, Message: fmt.Sprintf("file exists (%d bytes)", info.Size())}, nil
}

func (p *Prober) exec(ctx context.Context, line string) (models.Outcome, error) {
	if p.conn == nil {
		return models.Outcome{Message: "no command connector configured"}, nil
	}
	words, err := shellquote.Split(line)
	if err != nil || len(words) == 0 {
		return models.Outcome{Message: fmt.Sprintf("unparseable command %q", line)}, nil
	}
	if !p.conn.IsAllowed(words[0], words[1:]) {
		return models.Outcome{Message: "command not allowed: " + line}, nil
	}

	res, err := p.conn.Execute(ctx, words[0], words[1:])
	if err != nil {
		return models.Outcome{}, errors.Wrapf(err, "exec %s", words[0])
	}
	out := models.Outcome{Passed: res.ExitCode == 0}
	if out.Passed {
		out.Message = "exit 0"
	} else {
		out.Message = fmt.Sprintf("exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return out, nil
}
