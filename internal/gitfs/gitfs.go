// Package gitfs presents a git repository's references and historical
// trees as a read-only file hierarchy: one directory level per ref
// namespace segment, one directory per fully-qualified ref, and below
// it the file tree of the commit the ref points to.
package gitfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
)

// ObjectID identifies a git object as a hex string.
type ObjectID string

// Reference pairs a reference name with the commit it points at. The
// store reports full names (refs/heads/main); the catalog strips the
// refs/ root before classification (heads/main).
type Reference struct {
	Name   string
	Commit ObjectID
}

// Commit carries the identifiers the hierarchy needs from a commit.
type Commit struct {
	ID   ObjectID
	Tree ObjectID
}

// Git tree entry mode bits, as stored raw in tree objects.
const (
	modeTypeMask uint32 = 0170000
	modeTree     uint32 = 0040000
)

// TreeEntry is one name inside a tree, pointing at either a nested
// tree or a blob. Mode holds the raw git filemode (0100644 regular,
// 0100755 executable, 040000 directory).
type TreeEntry struct {
	Name string
	Mode uint32
	ID   ObjectID
}

// IsTree reports whether the entry points at a nested tree.
func (e TreeEntry) IsTree() bool {
	return e.Mode&modeTypeMask == modeTree
}

// Store is the read-only contract with the backing repository. All
// methods must be safe for concurrent use.
type Store interface {
	// ListReferences returns every reference under its full name,
	// resolved to the commit it points at.
	ListReferences(ctx context.Context) ([]Reference, error)

	// LoadCommit returns the commit for id, peeling annotated tags.
	// Missing objects are reported as ErrNotFound.
	LoadCommit(ctx context.Context, id ObjectID) (Commit, error)

	// LoadTree returns the entries of the tree id.
	LoadTree(ctx context.Context, id ObjectID) ([]TreeEntry, error)

	// LoadBlob returns the full content of the blob id.
	LoadBlob(ctx context.Context, id ObjectID) ([]byte, error)

	// StatRepositoryRoot returns host filesystem metadata for the
	// repository's own git directory. It is the attribute template
	// for every synthesized directory.
	StatRepositoryRoot() (Attr, error)
}

// FS answers filesystem queries against a Store. It keeps no state
// between calls: every operation re-lists the references and loads
// objects on demand, so a ref moving between two calls is simply
// observed by the second one.
type FS struct {
	store  Store
	logger *slog.Logger
}

// New creates an engine over store.
func New(store Store, logger *slog.Logger) *FS {
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{
		store:  store,
		logger: logger.With("component", "gitfs"),
	}
}

// GetAttr synthesizes attributes for path. Directories of every kind
// inherit the repository root's on-disk metadata; blobs take their
// size from content length and their mode from the tree entry.
func (g *FS) GetAttr(ctx context.Context, path string) (Attr, error) {
	g.logger.Debug("getattr", "path", path)

	c, _, err := g.locate(ctx, path)
	if err != nil {
		return Attr{}, err
	}

	base, err := g.store.StatRepositoryRoot()
	if err != nil {
		return Attr{}, fmt.Errorf("failed to stat repository root: %w", err)
	}
	base = scrub(base)
	if c.Kind != KindInRef {
		return base, nil
	}

	entry, found, err := g.resolve(ctx, c)
	if err != nil {
		return Attr{}, err
	}
	if !found {
		return Attr{}, ErrNotFound
	}
	if entry.IsTree() {
		return base, nil
	}

	blob, err := g.store.LoadBlob(ctx, entry.ID)
	if err != nil {
		return Attr{}, fmt.Errorf("failed to load blob: %w", err)
	}
	attr := base
	attr.Mode = entry.Mode
	attr.Size = uint64(len(blob))
	return scrub(attr), nil
}

// ReadDir lists the immediate children of path. Namespace levels come
// from reference name segments, ref directories and deeper levels
// from tree entries. A path naming a file has no children and fails
// with ErrNotFound.
func (g *FS) ReadDir(ctx context.Context, path string) ([]string, error) {
	g.logger.Debug("readdir", "path", path)

	c, refs, err := g.locate(ctx, path)
	if err != nil {
		return nil, err
	}

	switch c.Kind {
	case KindRoot:
		return firstSegments(refs), nil
	case KindNamespaceDir:
		return nextSegments(refs, c.Prefix), nil
	case KindRefDir:
		entries, err := g.rootTree(ctx, c.Ref)
		if err != nil {
			return nil, err
		}
		return entryNames(entries), nil
	default:
		entry, found, err := g.resolve(ctx, c)
		if err != nil {
			return nil, err
		}
		if !found || !entry.IsTree() {
			return nil, ErrNotFound
		}
		entries, err := g.store.LoadTree(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tree: %w", err)
		}
		return entryNames(entries), nil
	}
}

// Open validates that path names a blob and that the request carries
// no write intent. It performs no other I/O and returns no handle:
// reads re-resolve the path, so there is nothing to hold on to.
func (g *FS) Open(ctx context.Context, path string, flags uint32) error {
	g.logger.Debug("open", "path", path, "flags", flags)

	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_APPEND|syscall.O_TRUNC) != 0 {
		return ErrPermissionDenied
	}
	_, err := g.blobEntry(ctx, path)
	return err
}

// Read returns up to size bytes of the blob at path starting at off.
// The range is clamped to the content bounds: reading at or past the
// end returns an empty slice, not an error.
func (g *FS) Read(ctx context.Context, path string, size int, off int64) ([]byte, error) {
	g.logger.Debug("read", "path", path, "offset", off, "size", size)

	entry, err := g.blobEntry(ctx, path)
	if err != nil {
		return nil, err
	}
	blob, err := g.store.LoadBlob(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}

	if int(off) >= len(blob) {
		return nil, nil
	}
	end := int(off) + size
	if end > len(blob) {
		end = len(blob)
	}
	return blob[off:end], nil
}

// locate classifies path against a fresh catalog snapshot and
// returns the snapshot alongside, so listings reuse the same view
// the classification was made against.
func (g *FS) locate(ctx context.Context, path string) (Classification, []Reference, error) {
	refs, err := catalog(ctx, g.store)
	if err != nil {
		return Classification{}, nil, err
	}
	c, err := classify(path, refs)
	if err != nil {
		if errors.Is(err, ErrAmbiguousReference) {
			g.logger.Error("reference names collide", "path", path, "error", err)
		}
		return Classification{}, nil, err
	}
	return c, refs, nil
}

// resolve walks from the classified ref's root tree to the entry at
// the classification's relative path.
func (g *FS) resolve(ctx context.Context, c Classification) (TreeEntry, bool, error) {
	commit, err := g.store.LoadCommit(ctx, c.Ref.Commit)
	if err != nil {
		return TreeEntry{}, false, fmt.Errorf("failed to load commit %s: %w", c.Ref.Commit, err)
	}
	return find(ctx, g.store, commit.Tree, c.Rel)
}

// rootTree loads the entries of ref's commit root tree.
func (g *FS) rootTree(ctx context.Context, ref Reference) ([]TreeEntry, error) {
	commit, err := g.store.LoadCommit(ctx, ref.Commit)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", ref.Commit, err)
	}
	entries, err := g.store.LoadTree(ctx, commit.Tree)
	if err != nil {
		return nil, fmt.Errorf("failed to load tree: %w", err)
	}
	return entries, nil
}

// blobEntry resolves path all the way to a blob entry. Directory
// classifications of any kind fail with ErrIsDirectory.
func (g *FS) blobEntry(ctx context.Context, path string) (TreeEntry, error) {
	c, _, err := g.locate(ctx, path)
	if err != nil {
		return TreeEntry{}, err
	}
	if c.Kind != KindInRef {
		return TreeEntry{}, ErrIsDirectory
	}
	entry, found, err := g.resolve(ctx, c)
	if err != nil {
		return TreeEntry{}, err
	}
	if !found {
		return TreeEntry{}, ErrNotFound
	}
	if entry.IsTree() {
		return TreeEntry{}, ErrIsDirectory
	}
	return entry, nil
}

func entryNames(entries []TreeEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
