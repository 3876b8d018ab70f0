// Package service runs grammar synchronizations against the manifest: it picks
// the entries a selector asks for, fans them out over a bounded pool of
// synchronizers and collects one outcome per entry.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/gitsync"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/logging"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/metrics"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/pool"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/progress"
)

const DefaultWorkers = 8

var (
	ErrEntryNotFound = errors.New("language not found")
	ErrNoSelector    = errors.New("no language selected")
)

type Service struct {
	manifest string
	fs       billy.Filesystem
	workers  int
	log      *logging.Logger
	bar      *progress.Bar
	gh       *gitsync.GitHubTokens
}

// New returns a Service for the manifest at path, whose working copies live in
// fs, one directory per language.
func New(path string, fs billy.Filesystem) *Service {
	return &Service{
		manifest: path,
		fs:       fs,
		workers:  DefaultWorkers,
		log:      logging.NewNop(),
		gh:       gitsync.NewGitHubTokens(),
	}
}

// WithWorkers bounds the number of concurrent synchronizations. Zero means no
// bound.
func (s *Service) WithWorkers(n int) *Service {
	s.workers = n
	return s
}

func (s *Service) WithLogger(l *logging.Logger) *Service {
	s.log = cmp.Or(l, logging.NewNop())
	return s
}

// WithProgress reports one step per finished entry on bar. A nil bar is fine.
func (s *Service) WithProgress(bar *progress.Bar) *Service {
	s.bar = bar
	return s
}

// Run loads the manifest and synchronizes the entries sel selects. Errors
// reading the manifest abort the run before anything is touched; per-entry
// failures are only recorded in the report.
func (s *Service) Run(ctx context.Context, sel Selector) (*Report, error) {
	if sel.IsZero() {
		return nil, ErrNoSelector
	}

	m, err := config.Load(s.manifest)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, m, sel)
}

func (s *Service) run(ctx context.Context, m *config.Manifest, sel Selector) (*Report, error) {
	var selected []*config.Language
	for name, l := range m.SortedLanguages() {
		if sel.matches(name) {
			selected = append(selected, l)
		}
	}

	if len(selected) == 0 {
		if sel.kind == selectAll {
			return newReport(sel.String(), nil), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, sel.value)
	}

	startTime := time.Now()
	s.bar.AddMax(len(selected))
	defer s.bar.Finish()

	p := pool.New[Outcome](s.workers)
	for _, l := range selected {
		p.Add(ctx, l.Name, func(ctx context.Context) Outcome {
			defer s.bar.Add(1)
			return s.synchronize(ctx, m, l)
		})
	}

	report := newReport(sel.String(), p.Wait())

	succeeded, failed := report.counts()
	metrics.RunCompleted(sel.String(), succeeded, failed, startTime)
	s.log.Infof("synchronized %d language(s), %d failed", succeeded+failed, failed)

	return report, nil
}

func (s *Service) synchronize(ctx context.Context, m *config.Manifest, l *config.Language) Outcome {
	startTime := time.Now()
	outcome := s.execute(ctx, m, l)
	outcome.DurationSeconds = time.Since(startTime).Seconds()
	return outcome
}

func (s *Service) execute(ctx context.Context, m *config.Manifest, l *config.Language) Outcome {
	log := s.log.With("language", l.Name)

	outcome := Outcome{
		Name:   l.Name,
		Source: l.Git,
		State:  StateSucceeded,
	}
	if l.Hash != nil {
		outcome.Pinned = *l.Hash
	}

	log.Debugf("synchronizing %q from %s", l.Name, l.Git)

	secret, err := m.Credentials(l)
	if err != nil {
		outcome.Removal = gitsync.RemovalAbsent.String()
		return s.fail(log, outcome, fmt.Errorf("%w: %w", gitsync.ErrCloneFailed, err))
	}

	result := gitsync.New(s.fs, l, secret).
		WithLogger(log).
		WithGitHubTokens(s.gh).
		Execute(ctx)

	outcome.Head = result.Head
	outcome.Removal = result.Removal.String()

	if result.Err != nil {
		return s.fail(log, outcome, result.Err)
	}

	log.Debugf("language %q synchronized at %s", l.Name, result.Head)
	return outcome
}

func (*Service) fail(log *logging.Logger, outcome Outcome, err error) Outcome {
	log.Warnf("failed to synchronize language %q: %v", outcome.Name, err)
	outcome.State = StateFailed
	outcome.Reason = reason(err)
	outcome.Error = err.Error()
	outcome.Err = err
	return outcome
}
