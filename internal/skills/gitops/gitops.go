// Package gitops inspects and updates git repositories. Read paths and
// local writes go through go-git; diff and push shell out to git because
// go-git has no working-tree diff and push needs the user's credential
// helpers.
package gitops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/soyeahso/collig/internal/skill"
)

// ErrOutsideAllowed is returned for repository paths outside the allowed roots.
var ErrOutsideAllowed = errors.New("path is outside allowed directories")

// Runner executes git with args in dir.
type Runner func(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error)

// Skill is the Git Assistant.
type Skill struct {
	skill.Base
	allowed []string
	run     Runner
}

// New creates the skill. When allowed is non-empty, repositories must live
// under one of those roots.
func New(allowed []string) *Skill {
	s := &Skill{
		Base: skill.Base{
			SkillName:        "Git Assistant",
			SkillDescription: "Provides tools to manage git repositories (status, add, commit, push, diff, log).",
			SkillTriggers:    []string{"git", "commit", "repository", "repo status", "push my changes"},
		},
		run: execGit,
	}
	for _, p := range allowed {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(expandHome(p)); err == nil {
			s.allowed = append(s.allowed, filepath.Clean(abs))
		}
	}
	return s
}

func execGit(ctx context.Context, dir string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

type repoArgs struct {
	RepoPath string   `json:"repo_path"`
	Files    []string `json:"files"`
	Message  string   `json:"message"`
	Remote   string   `json:"remote"`
	Branch   string   `json:"branch"`
	MaxCount int      `json:"max_count"`
}

func (s *Skill) Tools() []skill.Tool {
	repoOnly := `{"type":"object","properties":{"repo_path":{"type":"string","description":"Path to the repository (default: current directory)"}}}`
	return []skill.Tool{
		{
			Name:        "git_status",
			Description: "Get the git status of the repository.",
			Schema:      repoOnly,
			Fn:          s.wrap(s.status),
		},
		{
			Name:        "git_log",
			Description: "Show recent commits, one line each.",
			Schema:      `{"type":"object","properties":{"repo_path":{"type":"string"},"max_count":{"type":"integer","description":"Number of commits (default 5)"}}}`,
			Fn:          s.wrap(s.log),
		},
		{
			Name:        "git_add",
			Description: "Stage files for commit. With no files, stages all changes.",
			Schema:      `{"type":"object","properties":{"repo_path":{"type":"string"},"files":{"type":"array","items":{"type":"string"}}}}`,
			Fn:          s.wrap(s.add),
		},
		{
			Name:        "git_commit",
			Description: "Commit staged changes with a message.",
			Schema:      `{"type":"object","properties":{"repo_path":{"type":"string"},"message":{"type":"string"}}}`,
			Fn:          s.wrap(s.commit),
		},
		{
			Name:        "git_diff",
			Description: "Show unstaged changes in the working tree. Useful for generating commit messages.",
			Schema:      repoOnly,
			Fn:          s.wrap(s.diff),
		},
		{
			Name:        "git_push",
			Description: "Push commits to a remote. Defaults to origin and the current branch.",
			Schema:      `{"type":"object","properties":{"repo_path":{"type":"string"},"remote":{"type":"string"},"branch":{"type":"string"}}}`,
			Fn:          s.wrap(s.push),
		},
	}
}

func (s *Skill) wrap(op func(ctx context.Context, dir string, in repoArgs) (string, error)) skill.ToolFunc {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var in repoArgs
		if err := skill.DecodeArgs(raw, &in); err != nil {
			return "", err
		}
		dir, err := s.repoDir(in.RepoPath)
		if err != nil {
			return "Error: " + err.Error(), nil
		}
		out, err := op(ctx, dir, in)
		if err != nil {
			return "Error: " + err.Error(), nil
		}
		return out, nil
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func (s *Skill) repoDir(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		p = "."
	}
	abs, err := filepath.Abs(expandHome(p))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	abs = filepath.Clean(abs)
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", fmt.Errorf("directory '%s' does not exist", abs)
	}
	if len(s.allowed) == 0 {
		return abs, nil
	}
	for _, root := range s.allowed {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOutsideAllowed, abs)
}

func open(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("not a git repository: %s", dir)
	}
	return repo, err
}

func branchName(repo *gogit.Repository) string {
	ref, err := repo.Head()
	if err == nil {
		if ref.Name().IsBranch() {
			return ref.Name().Short()
		}
		return "HEAD detached at " + ref.Hash().String()[:7]
	}
	// Unborn branch: HEAD is symbolic but points nowhere yet.
	if sym, err := repo.Storer.Reference(plumbing.HEAD); err == nil && sym.Type() == plumbing.SymbolicReference {
		return sym.Target().Short()
	}
	return "unknown"
}

func (s *Skill) status(_ context.Context, dir string, _ repoArgs) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	st, err := wt.Status()
	if err != nil {
		return "", err
	}

	header := "On branch " + branchName(repo)
	if st.IsClean() {
		return header + "\nnothing to commit, working tree clean", nil
	}
	files := make([]string, 0, len(st))
	for f := range st {
		files = append(files, f)
	}
	sort.Strings(files)
	var b strings.Builder
	b.WriteString(header)
	for _, f := range files {
		fs := st[f]
		fmt.Fprintf(&b, "\n%c%c %s", fs.Staging, fs.Worktree, f)
	}
	return b.String(), nil
}

func (s *Skill) log(_ context.Context, dir string, in repoArgs) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	n := in.MaxCount
	if n <= 0 {
		n = 5
	}
	iter, err := repo.Log(&gogit.LogOptions{})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "No commits yet.", nil
	}
	if err != nil {
		return "", err
	}
	defer iter.Close()

	var lines []string
	errStop := errors.New("stop")
	err = iter.ForEach(func(c *object.Commit) error {
		if len(lines) == n {
			return errStop
		}
		subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
		lines = append(lines, c.Hash.String()[:7]+" "+subject)
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Skill) add(_ context.Context, dir string, in repoArgs) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	if len(in.Files) == 0 {
		if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
			return "", err
		}
		return "Staged all changes.", nil
	}
	for _, f := range in.Files {
		// Paths are relative to the worktree root, not dir.
		rel := f
		if filepath.IsAbs(f) {
			if rel, err = filepath.Rel(wt.Filesystem.Root(), f); err != nil {
				return "", err
			}
		} else if r, err := filepath.Rel(wt.Filesystem.Root(), filepath.Join(dir, f)); err == nil {
			rel = r
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return "", fmt.Errorf("add %s: %w", f, err)
		}
	}
	return "Staged: " + strings.Join(in.Files, ", "), nil
}

func (s *Skill) commit(_ context.Context, dir string, in repoArgs) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		msg = "Update"
	}
	hash, err := wt.Commit(msg, &gogit.CommitOptions{})
	if errors.Is(err, gogit.ErrEmptyCommit) {
		return "Nothing to commit.", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s %s] %s", branchName(repo), hash.String()[:7], msg), nil
}

func (s *Skill) diff(ctx context.Context, dir string, _ repoArgs) (string, error) {
	return s.cli(ctx, dir, "diff")
}

func (s *Skill) push(ctx context.Context, dir string, in repoArgs) (string, error) {
	remote := in.Remote
	if remote == "" {
		remote = "origin"
	}
	for _, v := range []string{remote, in.Branch} {
		if strings.HasPrefix(v, "-") {
			return "", fmt.Errorf("invalid remote or branch %q", v)
		}
	}
	args := []string{"push", remote}
	if in.Branch != "" {
		args = append(args, in.Branch)
	}
	return s.cli(ctx, dir, args...)
}

func (s *Skill) cli(ctx context.Context, dir string, args ...string) (string, error) {
	stdout, stderr, err := s.run(ctx, dir, args...)
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return "", errors.New(msg)
		}
		return "", err
	}
	// git push reports progress on stderr.
	out := strings.TrimSpace(stdout)
	if out == "" {
		out = strings.TrimSpace(stderr)
	}
	if out == "" {
		return "Success (no output)", nil
	}
	return out, nil
}
