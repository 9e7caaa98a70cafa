package adapters

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/prgate/internal/gitctx"
	"github.com/dshills/prgate/internal/review"
)

const defaultLocalBase = "main"

// Local reviews branches of a repository on disk. The repo argument is a
// revision range, "base...head" or "base..head", or a single head ref
// compared against the configured base. The number is ignored.
type Local struct {
	dir  string
	base string
}

// NewLocal creates a local adapter for cfg.Dir (the working directory when
// empty).
func NewLocal(cfg Config) (*Local, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	base := cfg.Base
	if base == "" {
		base = defaultLocalBase
	}
	return &Local{dir: dir, base: base}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) split(rangeSpec string) (base, head string) {
	if b, h, ok := strings.Cut(rangeSpec, "..."); ok {
		return b, h
	}
	if b, h, ok := strings.Cut(rangeSpec, ".."); ok {
		return b, h
	}
	if rangeSpec == "" {
		return l.base, "HEAD"
	}
	return l.base, rangeSpec
}

func (l *Local) open(ctx context.Context) (gitctx.Repo, error) {
	repo, err := gitctx.Open(ctx, l.dir)
	if err != nil {
		if errors.Is(err, gitctx.ErrNotRepository) {
			return gitctx.Repo{}, review.NewError(review.KindNotFound, "opening "+l.dir, err)
		}
		return gitctx.Repo{}, review.NewError(review.KindTransient, "opening "+l.dir, err)
	}
	return repo, nil
}

// FetchPR describes the range as a pull request: the head commit supplies
// the title and author.
func (l *Local) FetchPR(ctx context.Context, rangeSpec string, number int) (review.PRInfo, error) {
	repo, err := l.open(ctx)
	if err != nil {
		return review.PRInfo{}, err
	}
	base, head := l.split(rangeSpec)
	sha, err := repo.ResolveRef(ctx, head)
	if err != nil {
		return review.PRInfo{}, review.NewError(review.KindNotFound, "resolving "+head, err)
	}
	if _, err := repo.ResolveRef(ctx, base); err != nil {
		return review.PRInfo{}, review.NewError(review.KindNotFound, "resolving "+base, err)
	}
	commits, err := repo.ListCommits(ctx, base, head)
	if err != nil {
		return review.PRInfo{}, review.NewError(review.KindTransient, "listing commits", err)
	}
	changes, err := l.diff(ctx, repo, base, head)
	if err != nil {
		return review.PRInfo{}, err
	}

	info := review.PRInfo{
		ID:         sha,
		Number:     number,
		Title:      fmt.Sprintf("%s into %s", head, base),
		BaseRef:    base,
		HeadRef:    head,
		HeadSHA:    sha,
		Repository: filepath.Base(repo.Meta(ctx).Root),
		Commits:    len(commits),
		Files:      make([]string, 0, len(changes)),
	}
	if len(commits) > 0 {
		info.Title = commits[0].Subject
		info.Author = commits[0].Author
	}
	for _, c := range changes {
		info.Files = append(info.Files, c.Path)
		info.Additions += c.Additions
		info.Deletions += c.Deletions
	}
	return info, nil
}

// FetchDiffs returns the per-file diff of the range with the full head
// content of every file that still exists.
func (l *Local) FetchDiffs(ctx context.Context, rangeSpec string, _ int) ([]review.FileChange, error) {
	repo, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	base, head := l.split(rangeSpec)
	changes, err := l.diff(ctx, repo, base, head)
	if err != nil {
		return nil, err
	}
	for i, c := range changes {
		if c.Kind == review.ChangeDeleted {
			continue
		}
		if content, err := repo.Show(ctx, head, c.Path); err == nil {
			changes[i].Content = content
		}
	}
	return changes, nil
}

func (l *Local) diff(ctx context.Context, repo gitctx.Repo, base, head string) ([]review.FileChange, error) {
	out, err := repo.Diff(ctx, base, head)
	if err != nil {
		if ctx.Err() != nil {
			return nil, review.NewError(review.KindCanceled, "diffing "+base+"..."+head, ctx.Err())
		}
		return nil, review.NewError(review.KindNotFound, "diffing "+base+"..."+head, err)
	}
	return gitctx.FileChanges(out), nil
}

// PostReview is not supported: there is no host to post to.
func (l *Local) PostReview(context.Context, string, int, Submission) error {
	return review.Errorf(review.KindPost, "posting is not supported by the local adapter")
}

// CheckConnection verifies the directory is a git repository.
func (l *Local) CheckConnection(ctx context.Context) error {
	_, err := l.open(ctx)
	return err
}
