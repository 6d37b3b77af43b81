package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// gitTimeout bounds every git subprocess so a wedged repository cannot
// stall the run.
const gitTimeout = 30 * time.Second

// runGit executes a git subcommand inside the workspace root.
func (w *Workspace) runGit(ctx context.Context, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = w.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

// GitStatus reports the current branch, porcelain status, and recent
// commits. It degrades gracefully when information is unavailable.
func (w *Workspace) GitStatus(ctx context.Context) (string, error) {
	if _, _, err := w.runGit(ctx, "rev-parse", "--git-dir"); err != nil {
		return "Error: Not a git repository", nil
	}

	var sections []string

	if branch, _, err := w.runGit(ctx, "branch", "--show-current"); err == nil && branch != "" {
		sections = append(sections, "Current branch: "+branch)
	}

	if status, _, err := w.runGit(ctx, "status", "--porcelain"); err == nil {
		if status != "" {
			lines := []string{"Modified files:"}
			for _, line := range strings.Split(status, "\n") {
				lines = append(lines, "  "+line)
			}
			sections = append(sections, strings.Join(lines, "\n"))
		} else {
			sections = append(sections, "Working directory is clean")
		}
	}

	if log, _, err := w.runGit(ctx, "log", "--oneline", "-5"); err == nil && log != "" {
		lines := []string{"Recent commits:"}
		for _, line := range strings.Split(log, "\n") {
			if line != "" {
				lines = append(lines, "  "+line)
			}
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return "No git information available", nil
	}
	return strings.Join(sections, "\n"), nil
}

// GitDiff shows staged and unstaged changes, optionally restricted to one
// file.
func (w *Workspace) GitDiff(ctx context.Context, filePath string) (string, error) {
	staged := []string{"diff", "--cached"}
	unstagedArgs := []string{"diff"}
	if filePath != "" {
		staged = append(staged, "--", filePath)
		unstagedArgs = append(unstagedArgs, "--", filePath)
	}

	var sections []string

	if out, _, err := w.runGit(ctx, staged...); err == nil && out != "" {
		sections = append(sections, "=== STAGED CHANGES ===\n"+out)
	}
	if unstaged, _, err := w.runGit(ctx, unstagedArgs...); err == nil && unstaged != "" {
		sections = append(sections, "=== UNSTAGED CHANGES ===\n"+unstaged)
	}

	if len(sections) == 0 {
		return "No changes found", nil
	}
	return strings.Join(sections, "\n"), nil
}

// maxCommitMessageLen bounds git_commit messages.
const maxCommitMessageLen = 500

// GitCommit stages (optionally) and commits. When addAll is set, every
// candidate file from the porcelain status passes through the secret
// scanner first; any violation blocks the whole commit.
func (w *Workspace) GitCommit(ctx context.Context, message string, addAll bool, scanner *SecretScanner) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", &ToolError{
			Code:        ErrGitError,
			Message:     "Commit message cannot be empty",
			Suggestions: []string{"Provide a descriptive commit message"},
			Context:     map[string]any{},
		}
	}
	if len(message) > maxCommitMessageLen {
		return "", &ToolError{
			Code:        ErrGitError,
			Message:     "Commit message too long",
			Suggestions: []string{fmt.Sprintf("Keep commit messages under %d characters", maxCommitMessageLen)},
			Context:     map[string]any{"message_length": len(message)},
		}
	}

	var results []string

	if addAll {
		status, _, err := w.runGit(ctx, "status", "--porcelain")
		if err != nil {
			return "", &ToolError{
				Code:        ErrGitError,
				Message:     "Error checking git status",
				Suggestions: []string{"Check git repository status"},
				Context:     map[string]any{},
			}
		}

		var candidates []string
		for _, line := range strings.Split(status, "\n") {
			if len(line) > 3 {
				candidates = append(candidates, strings.TrimSpace(line[3:]))
			}
		}

		decision := scanner.Scan(candidates)
		if decision.Blocked {
			return "", &ToolError{
				Code:    ErrGitError,
				Message: "Refusing to commit potentially sensitive files",
				Suggestions: []string{
					"Review files before committing",
					"Add files individually instead of using add_all",
					"Add sensitive files to .gitignore",
				},
				Context: map[string]any{"dangerous_files": decision.Reasons},
			}
		}

		if _, _, err := w.runGit(ctx, "add", "."); err != nil {
			return "", &ToolError{
				Code:        ErrGitError,
				Message:     "Error staging files",
				Suggestions: []string{"Check git repository status", "Ensure files exist"},
				Context:     map[string]any{},
			}
		}
		results = append(results, "Staged all changes (after security check)")
	}

	stdout, stderr, err := w.runGit(ctx, "commit", "-m", message)
	if err != nil {
		return "", &ToolError{
			Code:    ErrGitError,
			Message: fmt.Sprintf("Error creating commit: %s", stderr),
			Suggestions: []string{
				"Ensure there are changes to commit",
				"Check if git repository is properly initialized",
				"Verify git user configuration",
			},
			Context: map[string]any{"git_error": stderr},
		}
	}
	results = append(results, "Commit created: "+stdout)

	return strings.Join(results, "\n"), nil
}
