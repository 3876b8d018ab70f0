// Package gittest creates throwaway git repositories for tests. Repositories
// are bare, so they can be used as clone sources directly, and are served
// in-process: clones from a local path do not need a git installation.
package gittest

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

func init() {
	client.InstallProtocol("file", server.DefaultServer)
}

// Create initializes a bare repository in dir with the given number of
// commits on its default branch and returns their hashes, oldest first.
func Create(dir string, commits int) ([]plumbing.Hash, error) {
	storage := filesystem.NewStorage(osfs.New(dir), cache.NewObjectLRUDefault())

	repository, err := git.Init(storage, memfs.New())
	if err != nil {
		return nil, err
	}

	w, err := repository.Worktree()
	if err != nil {
		return nil, err
	}

	hashes := make([]plumbing.Hash, 0, commits)
	when := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	for i := range commits {
		if err := writeFile(w.Filesystem, "grammar.js", fmt.Sprintf("module.exports = grammar({ name: 'test', rules: { source: $ => '%d' } });\n", i)); err != nil {
			return nil, err
		}

		if _, err := w.Add("grammar.js"); err != nil {
			return nil, err
		}

		h, err := w.Commit(fmt.Sprintf("commit %d", i), &git.CommitOptions{
			Author: &object.Signature{Name: "Test", Email: "test@example.com", When: when.Add(time.Duration(i) * time.Minute)},
		})
		if err != nil {
			return nil, err
		}

		hashes = append(hashes, h)
	}

	return hashes, nil
}

// MustCreate is Create for tests.
func MustCreate(tb testing.TB, dir string, commits int) []plumbing.Hash {
	tb.Helper()

	hashes, err := Create(dir, commits)
	if err != nil {
		tb.Fatalf("failed to create repository in %s: %v", dir, err)
	}

	return hashes
}

// Head returns the commit checked out in the working copy at dir and whether
// HEAD is detached.
func Head(fs billy.Filesystem, dir string) (plumbing.Hash, bool, error) {
	wt, err := fs.Chroot(dir)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}

	dot, err := wt.Chroot(git.GitDirName)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}

	repository, err := git.Open(filesystem.NewStorage(dot, cache.NewObjectLRUDefault()), wt)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}

	head, err := repository.Head()
	if err != nil {
		return plumbing.ZeroHash, false, err
	}

	return head.Hash(), head.Name() == plumbing.HEAD, nil
}

func writeFile(fs billy.Filesystem, name, content string) error {
	f, err := fs.Create(name)
	if err != nil {
		return err
	}

	if _, err := f.Write([]byte(content)); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
