package gitctx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

// ErrNotRepository is returned when the directory is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Repo is a git work tree rooted at Dir.
type Repo struct {
	Dir string
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// CommitInfo holds a commit SHA, its author and its subject line.
type CommitInfo struct {
	SHA     string
	Author  string
	Subject string
}

// Open returns the repository containing dir.
func Open(ctx context.Context, dir string) (Repo, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return Repo{}, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	return Repo{Dir: strings.TrimSpace(root)}, nil
}

// Meta collects repository metadata.
func (r Repo) Meta(ctx context.Context) RepoMeta {
	head, _ := r.git(ctx, "rev-parse", "HEAD")
	branch, _ := r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	return RepoMeta{
		Root:   r.Dir,
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}
}

// ResolveRef returns the commit SHA a ref points at.
func (r Repo) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("unknown revision %q: %w", ref, err)
	}
	return strings.TrimSpace(out), nil
}

// Diff returns the unified diff of head against its merge base with base.
func (r Repo) Diff(ctx context.Context, base, head string) (string, error) {
	out, err := r.git(ctx, "diff", "--no-color", "-M", base+"..."+head, "--")
	if err != nil {
		return "", fmt.Errorf("git diff %s...%s: %w", base, head, err)
	}
	return out, nil
}

// Show returns the content of path at rev.
func (r Repo) Show(ctx context.Context, rev, path string) (string, error) {
	out, err := r.git(ctx, "show", rev+":"+path)
	if err != nil {
		return "", fmt.Errorf("git show %s:%s: %w", rev, path, err)
	}
	return out, nil
}

// HooksDir returns the directory git runs hooks from.
func (r Repo) HooksDir(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("locating hooks directory: %w", err)
	}
	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(r.Dir, dir)
	}
	return dir, nil
}

// ListCommits returns commits reachable from head but not base, oldest first.
func (r Repo) ListCommits(ctx context.Context, base, head string) ([]CommitInfo, error) {
	out, err := r.git(ctx, "log", "--reverse", "--format=%H%x09%an%x09%s", base+".."+head)
	if err != nil {
		return nil, fmt.Errorf("git log %s..%s: %w", base, head, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	var commits []CommitInfo
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		commits = append(commits, CommitInfo{SHA: parts[0], Author: parts[1], Subject: parts[2]})
	}
	return commits, nil
}

// RemoteURL returns the URL of the named remote.
func (r Repo) RemoteURL(ctx context.Context, remote string) (string, error) {
	out, err := r.git(ctx, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("git remote get-url %s: %w", remote, err)
	}
	return strings.TrimSpace(out), nil
}

// FileChanges splits a multi-file diff into per-file changes.
func FileChanges(diff string) []review.FileChange {
	var changes []review.FileChange
	for _, sec := range SplitSections(diff) {
		path, kind := PathFromSection(sec)
		if path == "" {
			continue
		}
		add, del := patch.Stats(sec)
		changes = append(changes, review.FileChange{
			Path:      path,
			Kind:      kind,
			Diff:      sec,
			Language:  patch.Language(path),
			Additions: add,
			Deletions: del,
		})
	}
	return changes
}

// SplitSections splits a diff at each "diff --git" header.
func SplitSections(diff string) []string {
	var sections []string
	var current strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "diff --git") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		if line == "" && current.Len() == 0 {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

// PathFromSection returns the file path a diff section applies to and how the
// file changed. Deleted files report their old path; renames are modifications.
func PathFromSection(section string) (string, review.ChangeKind) {
	var oldPath, newPath string
	kind := review.ChangeModified
	for _, line := range strings.Split(section, "\n") {
		switch {
		case strings.HasPrefix(line, "new file mode"):
			kind = review.ChangeAdded
		case strings.HasPrefix(line, "deleted file mode"):
			kind = review.ChangeDeleted
		case strings.HasPrefix(line, "rename to "):
			newPath = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "--- a/"):
			oldPath = strings.TrimPrefix(line, "--- a/")
		case strings.HasPrefix(line, "+++ b/"):
			newPath = strings.TrimPrefix(line, "+++ b/")
		case strings.HasPrefix(line, "@@"):
			return pick(newPath, oldPath, kind), kind
		}
	}
	return pick(newPath, oldPath, kind), kind
}

func pick(newPath, oldPath string, kind review.ChangeKind) string {
	if kind == review.ChangeDeleted || newPath == "" {
		return oldPath
	}
	return newPath
}

// MatchesAny returns true if the path matches any of the given glob patterns.
// "dir/**" matches everything below dir and "**/x" matches x at any depth.
func MatchesAny(path string, patterns []string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok && !strings.ContainsAny(prefix, "*?[") {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean == pattern {
			continue
		}
		if matched, err := filepath.Match(clean, filepath.Base(path)); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(clean, path); err == nil && matched {
			return true
		}
		if MatchesAny(path, []string{clean}) {
			return true
		}
		// "**/dir/**" matches dir at any depth
		if inner, ok := strings.CutSuffix(clean, "/**"); ok && strings.Contains("/"+path, "/"+inner+"/") {
			return true
		}
	}
	return false
}

func (r Repo) git(ctx context.Context, args ...string) (string, error) {
	return gitOutput(ctx, r.Dir, args...)
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
