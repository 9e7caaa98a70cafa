package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

const defaultGitLabURL = "https://gitlab.com/api/v4"

// GitLab talks to the GitLab REST v4 API. Pull requests are merge requests
// and the number is the merge request IID.
type GitLab struct {
	rest *restClient
}

// NewGitLab creates a GitLab adapter. The token falls back to GITLAB_TOKEN.
func NewGitLab(cfg Config) (*GitLab, error) {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("GITLAB_TOKEN")
	}
	if token == "" {
		return nil, review.Errorf(review.KindAuth, "gitlab: no token configured (set GITLAB_TOKEN)")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultGitLabURL
	} else if !strings.HasSuffix(base, "/api/v4") {
		base += "/api/v4"
	}
	return &GitLab{rest: &restClient{
		host: "gitlab",
		base: base,
		hc:   cfg.httpClient(),
		auth: func(r *http.Request) { r.Header.Set("PRIVATE-TOKEN", token) },
	}}, nil
}

func (g *GitLab) Name() string { return "gitlab" }

type gitlabMR struct {
	ID           int64  `json:"id"`
	IID          int    `json:"iid"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	SHA          string `json:"sha"`
	WebURL       string `json:"web_url"`
	Author       struct {
		Username string `json:"username"`
	} `json:"author"`
	DiffRefs struct {
		BaseSHA  string `json:"base_sha"`
		HeadSHA  string `json:"head_sha"`
		StartSHA string `json:"start_sha"`
	} `json:"diff_refs"`
}

type gitlabChange struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	NewFile     bool   `json:"new_file"`
	DeletedFile bool   `json:"deleted_file"`
	Diff        string `json:"diff"`
}

func (g *GitLab) mrPath(repo string, number int) string {
	return fmt.Sprintf("/projects/%s/merge_requests/%d", url.PathEscape(strings.Trim(repo, "/")), number)
}

// FetchPR returns merge request metadata.
func (g *GitLab) FetchPR(ctx context.Context, repo string, number int) (review.PRInfo, error) {
	var mr gitlabMR
	if err := g.rest.do(ctx, http.MethodGet, g.mrPath(repo, number), nil, &mr, fmt.Sprintf("fetching MR !%d", number)); err != nil {
		return review.PRInfo{}, err
	}
	changes, err := g.changes(ctx, repo, number)
	if err != nil {
		return review.PRInfo{}, err
	}
	var commits []struct {
		ID string `json:"id"`
	}
	if err := g.rest.do(ctx, http.MethodGet, g.mrPath(repo, number)+"/commits?per_page=100", nil, &commits, "listing MR commits"); err != nil {
		return review.PRInfo{}, err
	}

	info := review.PRInfo{
		ID:          strconv.FormatInt(mr.ID, 10),
		Number:      mr.IID,
		Title:       mr.Title,
		Description: mr.Description,
		Author:      mr.Author.Username,
		BaseRef:     mr.TargetBranch,
		HeadRef:     mr.SourceBranch,
		HeadSHA:     mr.SHA,
		URL:         mr.WebURL,
		Repository:  repo,
		Commits:     len(commits),
		Files:       make([]string, 0, len(changes)),
	}
	for _, c := range changes {
		info.Files = append(info.Files, c.Path)
		info.Additions += c.Additions
		info.Deletions += c.Deletions
	}
	return info, nil
}

// FetchDiffs returns the merge request changes.
func (g *GitLab) FetchDiffs(ctx context.Context, repo string, number int) ([]review.FileChange, error) {
	return g.changes(ctx, repo, number)
}

func (g *GitLab) changes(ctx context.Context, repo string, number int) ([]review.FileChange, error) {
	var body struct {
		Changes []gitlabChange `json:"changes"`
	}
	if err := g.rest.do(ctx, http.MethodGet, g.mrPath(repo, number)+"/changes", nil, &body, fmt.Sprintf("fetching changes of MR !%d", number)); err != nil {
		return nil, err
	}
	out := make([]review.FileChange, 0, len(body.Changes))
	for _, c := range body.Changes {
		kind, path := review.ChangeModified, c.NewPath
		switch {
		case c.NewFile:
			kind = review.ChangeAdded
		case c.DeletedFile:
			kind, path = review.ChangeDeleted, c.OldPath
		}
		add, del := patch.Stats(c.Diff)
		out = append(out, review.FileChange{
			Path:      path,
			Kind:      kind,
			Diff:      c.Diff,
			Language:  patch.Language(path),
			Additions: add,
			Deletions: del,
		})
	}
	return out, nil
}

// PostReview adds the summary as a note, each inline comment as a
// discussion, then approves or withdraws approval to match the
// recommendation. Rejected inline comments are reported after the rest of
// the review has been posted.
func (g *GitLab) PostReview(ctx context.Context, repo string, number int, sub Submission) error {
	base := g.mrPath(repo, number)
	if err := g.rest.do(ctx, http.MethodPost, base+"/notes", map[string]string{"body": sub.Summary}, nil, "posting summary note"); err != nil {
		return postError(err)
	}

	var rejected int
	if len(sub.Comments) > 0 {
		var mr gitlabMR
		if err := g.rest.do(ctx, http.MethodGet, base, nil, &mr, "fetching diff refs"); err != nil {
			return postError(err)
		}
		for _, c := range sub.Comments {
			payload := map[string]any{
				"body": c.Body,
				"position": map[string]any{
					"position_type": "text",
					"base_sha":      mr.DiffRefs.BaseSHA,
					"start_sha":     mr.DiffRefs.StartSHA,
					"head_sha":      mr.DiffRefs.HeadSHA,
					"new_path":      c.Path,
					"new_line":      c.Line,
				},
			}
			if err := g.rest.do(ctx, http.MethodPost, base+"/discussions", payload, nil, "posting inline comment"); err != nil {
				if abortsPost(err) {
					return postError(err)
				}
				rejected++
			}
		}
	}

	switch sub.Recommendation {
	case review.RecommendApprove:
		if err := g.rest.do(ctx, http.MethodPost, base+"/approve", nil, nil, "approving MR"); err != nil {
			return postError(err)
		}
	case review.RecommendRequestChanges:
		// Withdrawing an approval that was never given is a 404.
		err := g.rest.do(ctx, http.MethodPost, base+"/unapprove", nil, nil, "withdrawing approval")
		if err != nil && review.KindOf(err) != review.KindNotFound {
			return postError(err)
		}
	}

	if rejected > 0 {
		return review.NewError(review.KindPost, "posting review", errors.New(strconv.Itoa(rejected)+" inline comment(s) rejected by gitlab"))
	}
	return nil
}

// CheckConnection verifies the token against /user.
func (g *GitLab) CheckConnection(ctx context.Context) error {
	return g.rest.do(ctx, http.MethodGet, "/user", nil, nil, "checking connection")
}
