package gitfs

// Attr is synthesized filesystem metadata for one path. Directories
// of every kind copy the backing repository's own on-disk metadata;
// files take their size from blob length and their mode from the tree
// entry. Either way the attributes pass through scrub before leaving
// the engine.
type Attr struct {
	Mode  uint32
	Size  uint64
	Ino   uint64
	Nlink uint32
	Uid   uint32
	Gid   uint32
	Atime int64
	Mtime int64
	Ctime int64
}

// scrub clears every write permission bit and zeroes the inode
// number. The hierarchy is strictly read-only, and multiple refs may
// alias the same blob, so no synthesized node can claim a stable real
// inode. This is the single choke point: no attribute leaves the
// engine without passing through it.
func scrub(a Attr) Attr {
	a.Mode &^= 0222
	a.Ino = 0
	return a
}
