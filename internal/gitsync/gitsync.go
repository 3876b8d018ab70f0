// gitsync package materializes one grammar repository: it wipes the previous
// working copy, clones the source afresh and optionally pins the working tree
// to a commit. This package implements no threadpooling, it is expected that
// the caller will handle concurrency and parallelism.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-git/go-billy/v5"
	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp/capability"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/config"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/logging"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/metrics"
)

var (
	ErrCloneFailed    = errors.New("clone failed")
	ErrCheckoutFailed = errors.New("checkout failed")
)

func init() {
	// For Azure DevOps compatibility. More details: https://github.com/go-git/go-git/issues/64
	transport.UnsupportedCapabilities = []capability.Capability{
		capability.ThinPack,
	}
}

// Removal is what happened to the previous working copy.
type Removal int

const (
	RemovalAbsent Removal = iota // Nothing to remove.
	Removed
	RemovalFailed // Logged; the sync carries on.
)

func (r Removal) String() string {
	switch r {
	case Removed:
		return "removed"
	case RemovalFailed:
		return "failed"
	default:
		return "absent"
	}
}

// Result describes a single execution. Err is nil on success, otherwise it
// wraps ErrCloneFailed or ErrCheckoutFailed. Head is set whenever a clone
// exists afterwards, even if checking out the pinned commit failed.
type Result struct {
	Removal    Removal
	RemovalErr error
	Head       string
	Err        error
}

type Synchronizer struct {
	fs       billy.Filesystem
	language *config.Language
	secret   *config.Secret
	gh       *GitHubTokens
	log      *logging.Logger
}

// New creates a Synchronizer for the working copy of language, which lives in
// the directory named after the language inside fs. secret may be nil. The
// caller guarantees that no two synchronizers share a directory.
func New(fs billy.Filesystem, language *config.Language, secret *config.Secret) *Synchronizer {
	return &Synchronizer{fs: fs, language: language, secret: secret, gh: NewGitHubTokens(), log: logging.NewNop()}
}

func (s *Synchronizer) WithLogger(l *logging.Logger) *Synchronizer {
	s.log = l
	return s
}

// WithGitHubTokens shares a GitHub App token source between synchronizers.
func (s *Synchronizer) WithGitHubTokens(gh *GitHubTokens) *Synchronizer {
	if gh != nil {
		s.gh = gh
	}
	return s
}

// Execute removes any previous working copy, clones the source and checks out
// the pinned commit, if any. Failures are reported in the result, never
// returned.
func (s *Synchronizer) Execute(ctx context.Context) Result {
	startTime := time.Now()
	metrics.GitSyncStarted(s.language.Name, startTime)

	var result Result
	result.Removal, result.RemovalErr = s.remove()
	if result.Removal == RemovalFailed {
		s.log.Warnf("failed to remove previous working copy of %q: %v", s.language.Name, result.RemovalErr)
	}

	repository, err := s.clone(ctx)
	if err != nil {
		if rmErr := billyutil.RemoveAll(s.fs, s.language.Name); rmErr != nil {
			s.log.Debugf("failed to clean up after failed clone of %q: %v", s.language.Name, rmErr)
		}
		metrics.GitSyncFailed(s.language.Name, "clone_failed")
		result.Err = fmt.Errorf("%w: %v: %w", ErrCloneFailed, s.language.Git, err)
		return result
	}

	if s.language.Hash != nil {
		if err := checkout(repository, *s.language.Hash); err != nil {
			result.Head = head(repository)
			metrics.GitSyncFailed(s.language.Name, "checkout_failed")
			result.Err = fmt.Errorf("%w: %s: %w", ErrCheckoutFailed, *s.language.Hash, err)
			return result
		}
	}

	result.Head = head(repository)
	metrics.GitSyncSucceeded(s.language.Name, startTime)
	return result
}

func (s *Synchronizer) remove() (Removal, error) {
	if _, err := s.fs.Lstat(s.language.Name); errors.Is(err, fs.ErrNotExist) {
		return RemovalAbsent, nil
	} else if err != nil {
		return RemovalFailed, err
	}

	if err := billyutil.RemoveAll(s.fs, s.language.Name); err != nil {
		return RemovalFailed, err
	}

	return Removed, nil
}

func (s *Synchronizer) clone(ctx context.Context) (*git.Repository, error) {
	authMethod, err := s.auth(ctx)
	if err != nil {
		return nil, err
	}

	worktree, err := s.fs.Chroot(s.language.Name)
	if err != nil {
		return nil, err
	}

	dot, err := worktree.Chroot(git.GitDirName)
	if err != nil {
		return nil, err
	}

	return git.CloneContext(ctx, filesystem.NewStorage(dot, cache.NewObjectLRUDefault()), worktree, &git.CloneOptions{
		URL:  s.language.Git,
		Auth: authMethod,
		Tags: git.AllTags,
	})
}

// checkout detaches the working tree at rev, which may be an abbreviated hash.
func checkout(repository *git.Repository, rev string) error {
	hash, err := repository.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return err
	}

	w, err := repository.Worktree()
	if err != nil {
		return err
	}

	return w.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true, // Discard any local changes
	})
}

func head(repository *git.Repository) string {
	ref, err := repository.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}
