// Package vcs initializes git repositories for newly scaffolded services.
package vcs

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultBranch is the branch new repositories start on.
const DefaultBranch = "main"

// Signature identifies the author of the initial commit.
type Signature struct {
	Name  string
	Email string
}

// InitRepository creates a git repository in dir, stages every file and
// records the initial commit. It returns the commit hash.
func InitRepository(dir string, sig Signature, message string) (string, error) {
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch),
		},
	})
	if err != nil {
		return "", fmt.Errorf("init repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("stage files: %w", err)
	}

	if sig.Name == "" {
		sig.Name = "punch"
	}
	if sig.Email == "" {
		sig.Email = "punch@localhost"
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: sig.Name, Email: sig.Email, When: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	return hash.String(), nil
}
