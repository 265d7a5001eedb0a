package gitfs

import (
	"context"
	"fmt"
	"strings"
)

// refNamespaceRoot is the prefix every browsable reference lives
// under. HEAD and other top-level symbolic names fall outside it and
// never appear in the hierarchy.
const refNamespaceRoot = "refs/"

// catalog fetches the current reference set from the store and strips
// the refs/ namespace root from each name, yielding heads/main,
// tags/v1.0, remotes/origin/master. It is called at the start of
// every filesystem operation so a ref moving between two calls is
// simply observed by the second one.
func catalog(ctx context.Context, store Store) ([]Reference, error) {
	all, err := store.ListReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	refs := make([]Reference, 0, len(all))
	for _, r := range all {
		if !strings.HasPrefix(r.Name, refNamespaceRoot) {
			continue
		}
		name := strings.TrimPrefix(r.Name, refNamespaceRoot)
		if name == "" {
			continue
		}
		refs = append(refs, Reference{Name: name, Commit: r.Commit})
	}
	return refs, nil
}

// firstSegments returns the first path segment of every reference
// name, deduplicated in first-seen order. These are the root
// directory's children (heads, tags, remotes, ...).
func firstSegments(refs []Reference) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range refs {
		seg := r.Name
		if i := strings.IndexByte(seg, '/'); i >= 0 {
			seg = seg[:i]
		}
		if seen[seg] {
			continue
		}
		seen[seg] = true
		names = append(names, seg)
	}
	return names
}

// nextSegments returns, for every reference nested under prefix, the
// path segment immediately after it, deduplicated in first-seen
// order. These are a namespace directory's children.
func nextSegments(refs []Reference, prefix string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range refs {
		if !strings.HasPrefix(r.Name, prefix+"/") {
			continue
		}
		seg := strings.TrimPrefix(r.Name, prefix+"/")
		if i := strings.IndexByte(seg, '/'); i >= 0 {
			seg = seg[:i]
		}
		if seen[seg] {
			continue
		}
		seen[seg] = true
		names = append(names, seg)
	}
	return names
}
