package gitfs

import (
	"context"
	"fmt"
	"strings"
)

// find walks from the tree identified by tree down rel, one segment
// per level, and returns the entry at the final segment. Every
// segment but the last must name a subtree; a blob or a missing name
// partway down means the path does not exist, which is absence, not
// an error. Matching is case-sensitive and exact; git trees contain
// no "." or ".." entries.
func find(ctx context.Context, store Store, tree ObjectID, rel string) (TreeEntry, bool, error) {
	segments := strings.Split(rel, "/")
	for i, seg := range segments {
		entries, err := store.LoadTree(ctx, tree)
		if err != nil {
			return TreeEntry{}, false, fmt.Errorf("failed to load tree %s: %w", tree, err)
		}

		var entry TreeEntry
		found := false
		for _, e := range entries {
			if e.Name == seg {
				entry = e
				found = true
				break
			}
		}
		if !found {
			return TreeEntry{}, false, nil
		}
		if i == len(segments)-1 {
			return entry, true, nil
		}
		if !entry.IsTree() {
			return TreeEntry{}, false, nil
		}
		tree = entry.ID
	}
	return TreeEntry{}, false, nil
}
