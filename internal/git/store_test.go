package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/radryc/gitfs/internal/gitfs"
)

var readmeContent = []byte("gitfs store test\n")

func testSignature() *object.Signature {
	return &object.Signature{
		Name:  "test",
		Email: "test@example.com",
		When:  time.Unix(1700000000, 0),
	}
}

// buildTestRepo creates a worktree repository with one commit on
// master, an annotated tag, and a lightweight tag. The tree holds a
// regular file, an executable, and a subdirectory.
func buildTestRepo(t *testing.T) (dir string, commitHash plumbing.Hash) {
	t.Helper()

	dir = t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repository: %v", err)
	}

	writeFile := func(name string, content []byte, mode os.FileMode) {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, content, mode); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	writeFile("README", readmeContent, 0644)
	writeFile("run.sh", []byte("#!/bin/sh\nexit 0\n"), 0755)
	writeFile("src/main.go", []byte("package main\n"), 0644)

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := wt.Add("."); err != nil {
		t.Fatalf("failed to add files: %v", err)
	}
	commitHash, err = wt.Commit("initial", &gogit.CommitOptions{Author: testSignature()})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	if _, err := repo.CreateTag("v1", commitHash, &gogit.CreateTagOptions{
		Tagger:  testSignature(),
		Message: "release v1",
	}); err != nil {
		t.Fatalf("failed to create annotated tag: %v", err)
	}
	if _, err := repo.CreateTag("lightweight", commitHash, nil); err != nil {
		t.Fatalf("failed to create lightweight tag: %v", err)
	}

	return dir, commitHash
}

func openTestStore(t *testing.T) (*Store, plumbing.Hash) {
	t.Helper()
	dir, commitHash := buildTestRepo(t)
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return store, commitHash
}

func TestOpenMissingRepository(t *testing.T) {
	if _, err := Open(t.TempDir(), nil); err == nil {
		t.Fatal("opening a non-repository must fail")
	}
}

func TestListReferences(t *testing.T) {
	store, commitHash := openTestStore(t)

	refs, err := store.ListReferences(context.Background())
	if err != nil {
		t.Fatalf("ListReferences failed: %v", err)
	}

	byName := make(map[string]gitfs.Reference)
	for _, r := range refs {
		byName[r.Name] = r
	}

	branch, ok := byName["refs/heads/master"]
	if !ok {
		t.Fatalf("refs/heads/master missing from %v", refs)
	}
	if branch.Commit != gitfs.ObjectID(commitHash.String()) {
		t.Errorf("branch commit = %s, want %s", branch.Commit, commitHash)
	}

	if _, ok := byName["refs/tags/v1"]; !ok {
		t.Errorf("refs/tags/v1 missing from %v", refs)
	}
	lw, ok := byName["refs/tags/lightweight"]
	if !ok {
		t.Fatalf("refs/tags/lightweight missing from %v", refs)
	}
	if lw.Commit != gitfs.ObjectID(commitHash.String()) {
		t.Errorf("lightweight tag commit = %s, want %s", lw.Commit, commitHash)
	}

	// HEAD is symbolic; it keeps its own name but resolves to the
	// branch commit. The catalog layer drops it by name.
	if head, ok := byName["HEAD"]; ok {
		if head.Commit != gitfs.ObjectID(commitHash.String()) {
			t.Errorf("HEAD commit = %s, want %s", head.Commit, commitHash)
		}
	}
}

func TestLoadCommit(t *testing.T) {
	store, commitHash := openTestStore(t)

	commit, err := store.LoadCommit(context.Background(), gitfs.ObjectID(commitHash.String()))
	if err != nil {
		t.Fatalf("LoadCommit failed: %v", err)
	}
	if commit.ID != gitfs.ObjectID(commitHash.String()) {
		t.Errorf("commit ID = %s, want %s", commit.ID, commitHash)
	}
	if commit.Tree == "" {
		t.Error("commit has no tree")
	}
}

func TestLoadCommitPeelsAnnotatedTag(t *testing.T) {
	store, commitHash := openTestStore(t)
	ctx := context.Background()

	refs, err := store.ListReferences(ctx)
	if err != nil {
		t.Fatalf("ListReferences failed: %v", err)
	}

	var tagTarget gitfs.ObjectID
	for _, r := range refs {
		if r.Name == "refs/tags/v1" {
			tagTarget = r.Commit
		}
	}
	if tagTarget == "" {
		t.Fatal("refs/tags/v1 not found")
	}
	// The annotated tag ref points at the tag object, not the commit.
	if tagTarget == gitfs.ObjectID(commitHash.String()) {
		t.Fatal("annotated tag ref unexpectedly points directly at the commit")
	}

	commit, err := store.LoadCommit(ctx, tagTarget)
	if err != nil {
		t.Fatalf("LoadCommit on tag object failed: %v", err)
	}
	if commit.ID != gitfs.ObjectID(commitHash.String()) {
		t.Errorf("peeled commit = %s, want %s", commit.ID, commitHash)
	}
}

func TestLoadCommitMissing(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.LoadCommit(context.Background(), "0123456789abcdef0123456789abcdef01234567")
	if !errors.Is(err, gitfs.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLoadTreeModes(t *testing.T) {
	store, commitHash := openTestStore(t)
	ctx := context.Background()

	commit, err := store.LoadCommit(ctx, gitfs.ObjectID(commitHash.String()))
	if err != nil {
		t.Fatalf("LoadCommit failed: %v", err)
	}
	entries, err := store.LoadTree(ctx, commit.Tree)
	if err != nil {
		t.Fatalf("LoadTree failed: %v", err)
	}

	modes := make(map[string]uint32)
	for _, e := range entries {
		modes[e.Name] = e.Mode
	}
	if modes["README"] != 0100644 {
		t.Errorf("README mode = %o, want 0100644", modes["README"])
	}
	if modes["run.sh"] != 0100755 {
		t.Errorf("run.sh mode = %o, want 0100755", modes["run.sh"])
	}
	if modes["src"] != 0040000 {
		t.Errorf("src mode = %o, want 040000", modes["src"])
	}
}

func TestLoadTreeMissing(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.LoadTree(context.Background(), "0123456789abcdef0123456789abcdef01234567")
	if !errors.Is(err, gitfs.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLoadBlob(t *testing.T) {
	store, commitHash := openTestStore(t)
	ctx := context.Background()

	commit, err := store.LoadCommit(ctx, gitfs.ObjectID(commitHash.String()))
	if err != nil {
		t.Fatalf("LoadCommit failed: %v", err)
	}
	entries, err := store.LoadTree(ctx, commit.Tree)
	if err != nil {
		t.Fatalf("LoadTree failed: %v", err)
	}

	var readmeID gitfs.ObjectID
	for _, e := range entries {
		if e.Name == "README" {
			readmeID = e.ID
		}
	}
	if readmeID == "" {
		t.Fatal("README not in tree")
	}

	content, err := store.LoadBlob(ctx, readmeID)
	if err != nil {
		t.Fatalf("LoadBlob failed: %v", err)
	}
	if !bytes.Equal(content, readmeContent) {
		t.Errorf("blob content = %q, want %q", content, readmeContent)
	}
}

func TestLoadBlobMissing(t *testing.T) {
	store, _ := openTestStore(t)

	_, err := store.LoadBlob(context.Background(), "0123456789abcdef0123456789abcdef01234567")
	if !errors.Is(err, gitfs.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStatRepositoryRoot(t *testing.T) {
	dir, _ := buildTestRepo(t)
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	attr, err := store.StatRepositoryRoot()
	if err != nil {
		t.Fatalf("StatRepositoryRoot failed: %v", err)
	}
	if attr.Mode&syscall.S_IFMT != syscall.S_IFDIR {
		t.Errorf("mode = %o, not a directory", attr.Mode)
	}
	if attr.Mtime == 0 {
		t.Error("mtime not populated from host filesystem")
	}
}

// The engine over a real repository: the full path from ref listing
// to blob content.
func TestEngineOverRealRepository(t *testing.T) {
	store, _ := openTestStore(t)
	engine := gitfs.New(store, nil)
	ctx := context.Background()

	names, err := engine.ReadDir(ctx, "/")
	if err != nil {
		t.Fatalf("ReadDir(/) failed: %v", err)
	}
	found := make(map[string]bool)
	for _, n := range names {
		found[n] = true
	}
	if !found["heads"] || !found["tags"] {
		t.Errorf("ReadDir(/) = %v, want heads and tags", names)
	}

	attr, err := engine.GetAttr(ctx, "/heads/master/README")
	if err != nil {
		t.Fatalf("GetAttr failed: %v", err)
	}
	if attr.Size != uint64(len(readmeContent)) {
		t.Errorf("size = %d, want %d", attr.Size, len(readmeContent))
	}
	if attr.Mode&0222 != 0 {
		t.Errorf("write bits not cleared: %o", attr.Mode)
	}

	content, err := engine.Read(ctx, "/heads/master/README", 1024, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(content, readmeContent) {
		t.Errorf("content = %q, want %q", content, readmeContent)
	}

	// The annotated tag browses to the same tree.
	content, err = engine.Read(ctx, "/tags/v1/src/main.go", 1024, 0)
	if err != nil {
		t.Fatalf("Read through annotated tag failed: %v", err)
	}
	if !bytes.Equal(content, []byte("package main\n")) {
		t.Errorf("content = %q", content)
	}
}
