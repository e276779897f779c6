// Package gitdiff lists the files changed between two revisions of a local
// repository, as an offline alternative to asking the code host.
package gitdiff

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/jupierce/pr-coverage/pkg/coverage"
)

// ChangedFiles returns the files changed on headRef since it diverged from
// baseRef, the same three-dot comparison a pull request shows. repoDir may be
// any directory inside the work tree. The tree diff stops when ctx is done.
func ChangedFiles(ctx context.Context, repoDir, baseRef, headRef string) ([]coverage.ChangedFile, error) {
	if baseRef == "" {
		return nil, fmt.Errorf("requires base ref")
	}
	if headRef == "" {
		headRef = "HEAD"
	}

	repo, err := git.PlainOpenWithOptions(repoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	base, err := resolveCommit(repo, baseRef)
	if err != nil {
		return nil, err
	}
	head, err := resolveCommit(repo, headRef)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bases, err := head.MergeBase(base)
	if err != nil {
		return nil, fmt.Errorf("merge base of %s and %s: %w", baseRef, headRef, err)
	}
	if len(bases) > 0 {
		base = bases[0]
	}

	baseTree, err := base.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree for %s: %w", base.Hash, err)
	}
	headTree, err := head.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree for %s: %w", head.Hash, err)
	}

	changes, err := object.DiffTreeContext(ctx, baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	out := make([]coverage.ChangedFile, 0, len(changes))
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("classify change: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			out = append(out, coverage.ChangedFile{Filename: ch.To.Name, Status: coverage.StatusAdded})
		case merkletrie.Delete:
			out = append(out, coverage.ChangedFile{Filename: ch.From.Name, Status: coverage.StatusRemoved})
		case merkletrie.Modify:
			out = append(out, coverage.ChangedFile{Filename: ch.To.Name, Status: coverage.StatusModified})
		}
	}

	return out, nil
}

func resolveCommit(repo *git.Repository, ref string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", ref, err)
	}
	return commit, nil
}
