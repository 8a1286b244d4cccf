package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/vctrpage/vctr/internal/config"
)

// SyncContentRepo brings the article checkout up to date before a build:
// pull when a checkout exists, clone otherwise.
func (b *Builder) SyncContentRepo() error {
	repo := b.Config.ContentRepo
	if repo.URL == "" {
		return fmt.Errorf("content_repo.url is not configured")
	}

	if _, err := os.Stat(filepath.Join(repo.Dir, ".git")); err == nil {
		return b.pullContentRepo(repo)
	}
	return b.cloneContentRepo(repo)
}

func (b *Builder) cloneContentRepo(repo config.ContentRepoConfig) error {
	b.Logger.Debug("cloning content repository", "url", repo.URL, "path", repo.Dir)

	opts := &git.CloneOptions{URL: repo.URL}
	if repo.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		opts.SingleBranch = true
	}

	repository, err := git.PlainClone(repo.Dir, false, opts)
	if err != nil {
		return fmt.Errorf("failed to clone content repository %s: %w", repo.URL, err)
	}

	if ref, err := repository.Head(); err == nil {
		b.Logger.Info("content repository cloned", "commit", ref.Hash().String()[:8])
	}
	return nil
}

func (b *Builder) pullContentRepo(repo config.ContentRepoConfig) error {
	repository, err := git.PlainOpen(repo.Dir)
	if err != nil {
		return fmt.Errorf("failed to open content repository: %w", err)
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	err = worktree.Pull(&git.PullOptions{RemoteName: "origin"})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		b.Logger.Info("content repository already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to pull content repository %s: %w", repo.URL, err)
	}

	if ref, err := repository.Head(); err == nil {
		b.Logger.Info("content repository updated", "commit", ref.Hash().String()[:8])
	}
	return nil
}
