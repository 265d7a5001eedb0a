// Package fuse adapts the gitfs engine to the kernel FUSE protocol.
package fuse

import (
	"context"
	"errors"
	"log/slog"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/radryc/gitfs/internal/gitfs"
)

// Node represents one path in the mounted hierarchy. It holds no
// attribute or content state: every kernel operation goes back through
// the engine, which re-reads ref state, so the view tracks the
// repository with no staleness to manage.
type Node struct {
	fs.Inode

	// Path relative to the mount root, "" for the root itself.
	path string

	engine *gitfs.FS
	logger *slog.Logger
}

var (
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeStatfser  = (*Node)(nil)
	// Mutating interfaces are implemented only to refuse.
	_ fs.NodeSetattrer = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeRmdirer   = (*Node)(nil)
	_ fs.NodeRenamer   = (*Node)(nil)
	_ fs.NodeWriter    = (*Node)(nil)
	_ fs.NodeSymlinker = (*Node)(nil)
)

// NewRoot creates the root node over engine.
func NewRoot(engine *gitfs.FS, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	return &Node{
		path:   "",
		engine: engine,
		logger: logger.With("component", "fuse"),
	}
}

// newChild creates a child node with the inherited engine.
func (n *Node) newChild(name string) *Node {
	path := name
	if n.path != "" {
		path = n.path + "/" + name
	}
	return &Node{
		path:   path,
		engine: n.engine,
		logger: n.logger,
	}
}

// fsPath is the engine's view of this node: absolute, "/" for root.
func (n *Node) fsPath() string {
	return "/" + n.path
}

// toErrno maps engine error kinds to errnos. Ambiguous references and
// store faults both surface as EIO; the engine has already logged the
// former distinctly.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, gitfs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, gitfs.ErrPermissionDenied):
		return syscall.EACCES
	case errors.Is(err, gitfs.ErrIsDirectory):
		return syscall.EISDIR
	default:
		return syscall.EIO
	}
}

func fillAttr(attr gitfs.Attr, out *fuse.Attr) {
	out.Mode = attr.Mode
	out.Size = attr.Size
	out.Ino = attr.Ino
	out.Nlink = attr.Nlink
	out.Uid = attr.Uid
	out.Gid = attr.Gid
	out.Atime = uint64(attr.Atime)
	out.Mtime = uint64(attr.Mtime)
	out.Ctime = uint64(attr.Ctime)
}

// Lookup resolves a child entry. Entry and attribute timeouts stay
// zero so the kernel re-asks on every access and a moved ref is
// observed immediately.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child := n.newChild(name)
	n.logger.Debug("lookup", "path", child.fsPath())

	attr, err := n.engine.GetAttr(ctx, child.fsPath())
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(attr, &out.Attr)

	stable := fs.StableAttr{Mode: attr.Mode & uint32(syscall.S_IFMT)}
	return n.NewInode(ctx, child, stable), 0
}

// Getattr returns the synthesized attributes for this path.
func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.logger.Debug("getattr", "path", n.fsPath())

	attr, err := n.engine.GetAttr(ctx, n.fsPath())
	if err != nil {
		return toErrno(err)
	}
	fillAttr(attr, &out.Attr)
	return 0
}

// Readdir lists the immediate children of this path. The engine
// reports names only; the kernel picks up modes via Lookup.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	n.logger.Debug("readdir", "path", n.fsPath())

	names, err := n.engine.ReadDir(ctx, n.fsPath())
	if err != nil {
		return nil, toErrno(err)
	}

	entries := make([]fuse.DirEntry, len(names))
	for i, name := range names {
		entries[i] = fuse.DirEntry{Name: name}
	}
	return fs.NewListDirStream(entries), 0
}

// Open validates the request with the engine and returns no handle:
// reads re-resolve the path, so there is nothing to hold. DIRECT_IO
// keeps blob content out of the page cache so every read sees the
// repository's current state.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	n.logger.Debug("open", "path", n.fsPath(), "flags", flags)

	if err := n.engine.Open(ctx, n.fsPath(), flags); err != nil {
		return nil, 0, toErrno(err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

// Read returns blob content for the requested range.
func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n.logger.Debug("read", "path", n.fsPath(), "offset", off, "len", len(dest))

	data, err := n.engine.Read(ctx, n.fsPath(), len(dest), off)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(data), 0
}

// Statfs reports a zero-capacity filesystem: nothing can be written,
// so there is no free space to advertise.
func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	out.Bsize = 4096
	out.NameLen = 255
	return 0
}

// The hierarchy is read-only. Every mutating operation is refused at
// the adapter without reaching the engine.

func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return syscall.EROFS
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return syscall.EROFS
}

func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return syscall.EROFS
}

func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	return 0, syscall.EROFS
}

func (n *Node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}
