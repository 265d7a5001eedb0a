// Package git implements the gitfs backing store over an on-disk
// repository using go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/radryc/gitfs/internal/gitfs"
)

// Store reads references, commits, trees, and blobs from one open
// repository. go-git's object read paths are safe for concurrent
// use, so a single Store serves all filesystem operations.
type Store struct {
	repo   *gogit.Repository
	gitDir string
	logger *slog.Logger
}

var _ gitfs.Store = (*Store)(nil)

// Open opens the repository at path, which may be a worktree root
// (containing .git/) or a bare repository directory. The resolved git
// directory is what StatRepositoryRoot reports on, so synthesized
// directories inherit the host filesystem's metadata for it.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", path, err)
	}

	gitDir := path
	if fi, statErr := os.Stat(filepath.Join(path, ".git")); statErr == nil && fi.IsDir() {
		gitDir = filepath.Join(path, ".git")
	}

	return &Store{
		repo:   repo,
		gitDir: gitDir,
		logger: logger.With("component", "git"),
	}, nil
}

// ListReferences reports every reference under its full name
// (refs/heads/main), resolved to the commit-ish it points at.
// Symbolic references keep their own name but take their target's
// hash; unresolvable ones (HEAD in an empty repository) are skipped.
func (s *Store) ListReferences(ctx context.Context) ([]gitfs.Reference, error) {
	iter, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	defer iter.Close()

	var refs []gitfs.Reference
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		hash := ref.Hash()
		if ref.Type() == plumbing.SymbolicReference {
			target, resolveErr := s.repo.Reference(ref.Name(), true)
			if resolveErr != nil {
				s.logger.Debug("skipping unresolvable symbolic reference", "name", ref.Name())
				return nil
			}
			hash = target.Hash()
		}
		if hash.IsZero() {
			return nil
		}

		refs = append(refs, gitfs.Reference{
			Name:   ref.Name().String(),
			Commit: gitfs.ObjectID(hash.String()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	return refs, nil
}

// LoadCommit returns the commit for id. Annotated tag refs point at
// tag objects rather than commits, so those are peeled here.
func (s *Store) LoadCommit(ctx context.Context, id gitfs.ObjectID) (gitfs.Commit, error) {
	hash := plumbing.NewHash(string(id))

	commit, err := s.repo.CommitObject(hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		tag, tagErr := s.repo.TagObject(hash)
		if tagErr != nil {
			return gitfs.Commit{}, fmt.Errorf("commit %s: %w", id, gitfs.ErrNotFound)
		}
		commit, err = tag.Commit()
		if err != nil {
			return gitfs.Commit{}, fmt.Errorf("failed to peel tag %s: %w", id, err)
		}
	} else if err != nil {
		return gitfs.Commit{}, fmt.Errorf("failed to load commit %s: %w", id, err)
	}

	return gitfs.Commit{
		ID:   gitfs.ObjectID(commit.Hash.String()),
		Tree: gitfs.ObjectID(commit.TreeHash.String()),
	}, nil
}

// LoadTree returns the entries of tree id with their raw git
// filemodes (0100644 regular, 0100755 executable, 040000 directory).
func (s *Store) LoadTree(ctx context.Context, id gitfs.ObjectID) ([]gitfs.TreeEntry, error) {
	tree, err := s.repo.TreeObject(plumbing.NewHash(string(id)))
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, fmt.Errorf("tree %s: %w", id, gitfs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tree %s: %w", id, err)
	}

	entries := make([]gitfs.TreeEntry, len(tree.Entries))
	for i, e := range tree.Entries {
		entries[i] = gitfs.TreeEntry{
			Name: e.Name,
			Mode: uint32(e.Mode),
			ID:   gitfs.ObjectID(e.Hash.String()),
		}
	}
	return entries, nil
}

// LoadBlob returns the full content of blob id.
func (s *Store) LoadBlob(ctx context.Context, id gitfs.ObjectID) ([]byte, error) {
	blob, err := s.repo.BlobObject(plumbing.NewHash(string(id)))
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, fmt.Errorf("blob %s: %w", id, gitfs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob %s: %w", id, err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	return data, nil
}

// StatRepositoryRoot lstats the repository's git directory. The
// result is the attribute template for every synthesized directory in
// the hierarchy: timestamps, ownership, and permission-class bits all
// come from the hosting filesystem.
func (s *Store) StatRepositoryRoot() (gitfs.Attr, error) {
	fi, err := os.Lstat(s.gitDir)
	if err != nil {
		return gitfs.Attr{}, fmt.Errorf("failed to stat %s: %w", s.gitDir, err)
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return gitfs.Attr{}, fmt.Errorf("unsupported stat result for %s", s.gitDir)
	}

	return gitfs.Attr{
		Mode:  uint32(st.Mode),
		Size:  uint64(st.Size),
		Ino:   st.Ino,
		Nlink: uint32(st.Nlink),
		Uid:   st.Uid,
		Gid:   st.Gid,
		Atime: st.Atim.Sec,
		Mtime: st.Mtim.Sec,
		Ctime: st.Ctim.Sec,
	}, nil
}
