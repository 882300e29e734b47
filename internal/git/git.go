// Package git wraps the git CLI for the three collaborator roles the
// engine needs: working-tree status, changed-file listing, and reading
// file content at a prior revision.
package git

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"testpilot/internal/types"
)

// Git runs git commands against a single repository.
type Git struct {
	gitPath  string
	repoPath string
}

// Status summarizes the working tree for workflow status steps.
type Status struct {
	Branch     string   `json:"branch"`
	Modified   []string `json:"modified,omitempty"`
	Untracked  []string `json:"untracked,omitempty"`
	Deleted    []string `json:"deleted,omitempty"`
	Added      []string `json:"added,omitempty"`
	HasChanges bool     `json:"has_changes"`
}

// New creates a Git instance rooted at repoPath.
// It verifies that git is available on the system.
func New(ctx context.Context, repoPath string) (*Git, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, gitPath, "version")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}

	return &Git{gitPath: gitPath, repoPath: repoPath}, nil
}

// GetStatus returns the parsed working-tree status.
func (g *Git) GetStatus(ctx context.Context) (*Status, error) {
	branchCmd := exec.CommandContext(ctx, g.gitPath, "-C", g.repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	branchOut, err := branchCmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git rev-parse failed in %s: %w", g.repoPath, err)
	}

	cmd := exec.CommandContext(ctx, g.gitPath, "-C", g.repoPath, "status", "--porcelain")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status failed in %s: %w", g.repoPath, err)
	}

	status := &Status{Branch: strings.TrimSpace(string(branchOut))}

	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 3 {
			continue
		}

		statusCode := line[0:2]
		filePath := line[3:]

		// Status codes are XY with X=index, Y=working tree.
		switch {
		case strings.HasPrefix(statusCode, "??"):
			status.Untracked = append(status.Untracked, filePath)
		case strings.HasPrefix(statusCode, "A"):
			status.Added = append(status.Added, filePath)
		case strings.Contains(statusCode, "D"):
			status.Deleted = append(status.Deleted, filePath)
		default:
			status.Modified = append(status.Modified, filePath)
		}
		status.HasChanges = true
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git status: %w", err)
	}

	return status, nil
}

// ChangedFiles converts the working-tree status into FileChange values
// for the decision engine.
func (g *Git) ChangedFiles(ctx context.Context) ([]types.FileChange, error) {
	status, err := g.GetStatus(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var changes []types.FileChange
	for _, path := range status.Added {
		changes = append(changes, types.FileChange{Path: path, Kind: types.ChangeAdded, Timestamp: now})
	}
	for _, path := range status.Untracked {
		changes = append(changes, types.FileChange{Path: path, Kind: types.ChangeAdded, Timestamp: now})
	}
	for _, path := range status.Modified {
		changes = append(changes, types.FileChange{Path: path, Kind: types.ChangeModified, Timestamp: now})
	}
	for _, path := range status.Deleted {
		changes = append(changes, types.FileChange{Path: path, Kind: types.ChangeDeleted, Timestamp: now})
	}
	return changes, nil
}

// ShowFileAt returns the file's content at the given revision, e.g.
// "HEAD". Implements complexity.RevisionReader. A file that does not
// exist at that revision is an error; callers treat any error as
// "comparison unavailable".
func (g *Git) ShowFileAt(ctx context.Context, path, revision string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", g.repoPath, "show", fmt.Sprintf("%s:%s", revision, path))
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git show %s:%s failed: %w", revision, path, err)
	}
	return string(output), nil
}
