package database

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GitReplicator pushes the store file to a GitHub repository so state
// survives redeploys on ephemeral hosts. All operations are best-effort and
// time-bounded; a failed push only logs a warning.
type GitReplicator struct {
	Dir       string // repository working directory
	StoreFile string // path of the store file relative to Dir
	Token     string
	RepoURL   string // e.g. "github.com/user/repo.git"
	Logger    *zap.Logger

	enabled bool
}

func NewGitReplicator(dir, storeFile, token, repoURL string, logger *zap.Logger) *GitReplicator {
	return &GitReplicator{Dir: dir, StoreFile: storeFile, Token: token, RepoURL: repoURL, Logger: logger}
}

const gitTimeout = 30 * time.Second

func (g *GitReplicator) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %v: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (g *GitReplicator) authenticatedURL() string {
	url := strings.TrimPrefix(strings.TrimPrefix(g.RepoURL, "https://"), "http://")
	return fmt.Sprintf("https://%s@%s", g.Token, url)
}

// Setup configures the git identity and the authenticated origin remote.
// Call once at startup; replication stays disabled when it fails.
func (g *GitReplicator) Setup() bool {
	if g.Token == "" || g.RepoURL == "" {
		g.Logger.Warn("Git sync disabled: GITHUB_TOKEN or GITHUB_REPO_URL not set")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	steps := [][]string{
		{"config", "user.name", "AdvisorBot"},
		{"config", "user.email", "bot@nextleap.app"},
		{"remote", "set-url", "origin", g.authenticatedURL()},
	}
	for _, args := range steps {
		if _, err := g.run(ctx, args...); err != nil {
			// set-url fails when the remote does not exist yet.
			if args[0] == "remote" {
				if _, aerr := g.run(ctx, "remote", "add", "origin", g.authenticatedURL()); aerr != nil {
					g.Logger.Sugar().Warnf("Git setup failed: %v", aerr)
					return false
				}
				continue
			}
			g.Logger.Sugar().Warnf("Git setup failed: %v", err)
			return false
		}
	}

	g.enabled = true
	g.Logger.Info("Git sync initialized")
	return true
}

// PullLatest restores the newest store file from the remote at startup.
func (g *GitReplicator) PullLatest() {
	if !g.enabled {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	for _, branch := range []string{"main", "master"} {
		if _, err := g.run(ctx, "pull", "origin", branch); err == nil {
			g.Logger.Sugar().Infof("Pulled latest store from %s", branch)
			return
		}
	}
	g.Logger.Warn("Git pull failed (may be first run)")
}

// Replicate commits and pushes the store file in a background goroutine so
// it never blocks a booking operation.
func (g *GitReplicator) Replicate() {
	if !g.enabled {
		return
	}
	go g.push()
}

func (g *GitReplicator) push() {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	if _, err := g.run(ctx, "add", "-f", g.StoreFile); err != nil {
		g.Logger.Sugar().Warnf("Git sync skipped: %v", err)
		return
	}
	// Nothing staged means nothing to push.
	if _, err := g.run(ctx, "diff", "--cached", "--quiet"); err == nil {
		return
	}

	msg := fmt.Sprintf("Auto-save: %s", time.Now().Format("2006-01-02 15:04:05"))
	if _, err := g.run(ctx, "commit", "-m", msg); err != nil {
		g.Logger.Sugar().Warnf("Git commit failed: %v", err)
		return
	}

	for _, branch := range []string{"main", "master"} {
		if _, err := g.run(ctx, "push", "origin", branch); err == nil {
			g.Logger.Sugar().Debugf("Pushed store update to %s", branch)
			return
		}
	}
	g.Logger.Warn("Git push failed")
}
