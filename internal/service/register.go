package service

import (
	"context"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
)

// Register merges l into the manifest, persists it and synchronizes the entry
// right away. The manifest is written before anything is cloned, so a failed
// clone still leaves the language registered.
func (s *Service) Register(ctx context.Context, l *config.Language) (*Report, error) {
	m, err := config.MergeAndPersist(s.manifest, l)
	if err != nil {
		return nil, err
	}

	s.log.Debugf("language %q registered in %s", l.Name, s.manifest)

	return s.run(ctx, m, ByName(l.Name))
}

// Preview returns the manifest diff Register would write, without writing or
// synchronizing anything.
func (s *Service) Preview(l *config.Language) (string, error) {
	return config.Preview(s.manifest, l)
}
