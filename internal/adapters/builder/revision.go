package builder

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// RevisionResolver returns the commit a repository's HEAD points at.
type RevisionResolver func(ctx context.Context, repoURL string) (string, error)

// ResolveHead lists the remote's references, like `git ls-remote`, without
// cloning anything, and follows HEAD to a commit hash.
func ResolveHead(ctx context.Context, repoURL string) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list remote %s: %w", repoURL, err)
	}
	return headHash(refs)
}

func headHash(refs []*plumbing.Reference) (string, error) {
	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	ref, ok := byName[plumbing.HEAD]
	// Symbolic chains are short; bound the walk anyway.
	for i := 0; ok && ref.Type() == plumbing.SymbolicReference && i < 5; i++ {
		ref, ok = byName[ref.Target()]
	}
	if !ok || ref.Type() != plumbing.HashReference || ref.Hash().IsZero() {
		return "", fmt.Errorf("remote has no resolvable HEAD")
	}
	return ref.Hash().String(), nil
}
