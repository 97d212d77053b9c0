// Package update provides self-update functionality for punch.
package update

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	// Repository owner and name for GitHub releases.
	repoOwner = "cameronsjo"
	repoName  = "punch"
)

// ErrNoReleases indicates the release source has nothing published.
var ErrNoReleases = errors.New("no releases found")

// Release contains information about an available update.
type Release struct {
	Version     string
	ReleaseURL  string
	PublishedAt string
	Changelog   string
}

// Source finds and applies releases. selfupdate.Updater implements it.
type Source interface {
	DetectLatest(ctx context.Context, repository selfupdate.Repository) (*selfupdate.Release, bool, error)
	UpdateTo(ctx context.Context, rel *selfupdate.Release, cmdPath string) error
}

// Updater checks for and installs new punch releases.
type Updater struct {
	source     Source
	executable func() (string, error)
}

// New returns an Updater backed by GitHub releases.
func New() (*Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating update source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("creating updater: %w", err)
	}
	return NewWithSource(updater), nil
}

// NewWithSource returns an Updater using the given source.
func NewWithSource(source Source) *Updater {
	return &Updater{source: source, executable: selfupdate.ExecutablePath}
}

func (u *Updater) latest(ctx context.Context, currentVersion string) (*selfupdate.Release, bool, error) {
	latest, found, err := u.source.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, false, fmt.Errorf("detecting latest version: %w", err)
	}
	if !found {
		return nil, false, fmt.Errorf("%w for %s/%s", ErrNoReleases, repoOwner, repoName)
	}
	return latest, latest.GreaterThan(currentVersion), nil
}

// Check reports whether a newer version than currentVersion is available.
func (u *Updater) Check(ctx context.Context, currentVersion string) (*Release, bool, error) {
	latest, newer, err := u.latest(ctx, currentVersion)
	if err != nil || !newer {
		return nil, false, err
	}
	return toRelease(latest), true, nil
}

// Update downloads and installs the latest version. It returns nil without
// error when already up to date.
func (u *Updater) Update(ctx context.Context, currentVersion string) (*Release, error) {
	latest, newer, err := u.latest(ctx, currentVersion)
	if err != nil || !newer {
		return nil, err
	}

	exe, err := u.executable()
	if err != nil {
		return nil, fmt.Errorf("getting executable path: %w", err)
	}

	if err := u.source.UpdateTo(ctx, latest, exe); err != nil {
		return nil, fmt.Errorf("updating binary: %w", err)
	}
	return toRelease(latest), nil
}

func toRelease(r *selfupdate.Release) *Release {
	return &Release{
		Version:     r.Version(),
		ReleaseURL:  r.URL,
		PublishedAt: r.PublishedAt.Format("2006-01-02"),
		Changelog:   r.ReleaseNotes,
	}
}

// GetPlatformInfo returns the current platform information.
func GetPlatformInfo() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
