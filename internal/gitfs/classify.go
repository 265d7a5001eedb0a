package gitfs

import (
	"fmt"
	"strings"
)

// Kind says what a path turned out to be.
type Kind int

const (
	// KindRoot is the mount root itself.
	KindRoot Kind = iota
	// KindNamespaceDir is an intermediate directory that exists only
	// because reference names nested under it share this prefix
	// (heads, remotes/origin, ...).
	KindNamespaceDir
	// KindRefDir is a fully-qualified reference acting as the root
	// directory of its commit's tree.
	KindRefDir
	// KindInRef is a path inside a reference's tree.
	KindInRef
)

// Classification is the result of resolving one path against one
// catalog snapshot. It carries everything downstream code needs so
// nothing has to re-derive the match.
type Classification struct {
	Kind   Kind
	Prefix string    // the trimmed query path; used by NamespaceDir listings
	Ref    Reference // valid for RefDir and InRef
	Rel    string    // valid for InRef: the path inside the ref's tree
}

// classify resolves path against refs. Paths are absolute; reference
// names carry no leading slash, so the query is trimmed before
// comparison. Unresolvable paths fail with ErrNotFound; a path under
// two references fails with ErrAmbiguousReference.
//
// A name that is both a ref and a prefix of sibling refs (heads/dev
// next to heads/dev/stable) classifies as a namespace directory: the
// nested refs must stay reachable, so the directory view wins.
func classify(path string, refs []Reference) (Classification, error) {
	if path == "/" || path == "" {
		return Classification{Kind: KindRoot}, nil
	}
	trimmed := strings.TrimPrefix(path, "/")

	// Dotted first segments (/.git, /.Trash, editor probes) are never
	// part of the hierarchy. Answering early keeps probe storms away
	// from the object database.
	if strings.HasPrefix(trimmed, ".") {
		return Classification{}, ErrNotFound
	}

	for _, r := range refs {
		if strings.HasPrefix(r.Name, trimmed+"/") {
			return Classification{Kind: KindNamespaceDir, Prefix: trimmed}, nil
		}
	}

	var exact []Reference
	for _, r := range refs {
		if r.Name == trimmed {
			exact = append(exact, r)
		}
	}
	if len(exact) > 1 {
		return Classification{}, fmt.Errorf("%w: %d references named %q", errDuplicateReference, len(exact), trimmed)
	}
	if len(exact) == 1 {
		return Classification{Kind: KindRefDir, Prefix: trimmed, Ref: exact[0]}, nil
	}

	var under []Reference
	for _, r := range refs {
		if strings.HasPrefix(trimmed, r.Name+"/") {
			under = append(under, r)
		}
	}
	if len(under) > 1 {
		return Classification{}, fmt.Errorf("%w: path %q is inside %d references", ErrAmbiguousReference, path, len(under))
	}
	if len(under) == 1 {
		r := under[0]
		return Classification{
			Kind:   KindInRef,
			Prefix: trimmed,
			Ref:    r,
			Rel:    strings.TrimPrefix(trimmed, r.Name+"/"),
		}, nil
	}

	return Classification{}, ErrNotFound
}
