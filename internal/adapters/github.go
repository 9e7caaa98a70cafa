package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

const filesPerPage = 100

// GitHub talks to github.com or GitHub Enterprise.
type GitHub struct {
	client *github.Client
	host   string
}

// NewGitHub creates a GitHub adapter. The token falls back to GITHUB_TOKEN
// and the base URL to GITHUB_API_URL.
func NewGitHub(cfg Config) (*GitHub, error) {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, review.Errorf(review.KindAuth, "github: no token configured (set GITHUB_TOKEN)")
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, cfg.httpClient())
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	hc.Timeout = cfg.timeout()
	client := github.NewClient(hc)

	base := cfg.BaseURL
	if base == "" {
		base = os.Getenv("GITHUB_API_URL")
	}
	if base != "" && strings.TrimRight(base, "/") != "https://api.github.com" {
		var err error
		client, err = client.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, fmt.Errorf("github: invalid base URL %q: %w", base, err)
		}
	}
	return &GitHub{client: client, host: "github"}, nil
}

func (g *GitHub) Name() string { return "github" }

// FetchPR returns pull request metadata.
func (g *GitHub) FetchPR(ctx context.Context, repo string, number int) (review.PRInfo, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return review.PRInfo{}, err
	}
	pr, resp, err := g.client.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return review.PRInfo{}, g.classify(resp, err, fmt.Sprintf("fetching PR #%d", number))
	}

	info := review.PRInfo{
		ID:          strconv.FormatInt(pr.GetID(), 10),
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		Author:      pr.GetUser().GetLogin(),
		BaseRef:     pr.GetBase().GetRef(),
		HeadRef:     pr.GetHead().GetRef(),
		HeadSHA:     pr.GetHead().GetSHA(),
		URL:         pr.GetHTMLURL(),
		Repository:  repo,
		Additions:   pr.GetAdditions(),
		Deletions:   pr.GetDeletions(),
		Commits:     pr.GetCommits(),
	}
	files, err := g.listFiles(ctx, owner, name, number)
	if err != nil {
		return review.PRInfo{}, err
	}
	info.Files = make([]string, 0, len(files))
	for _, f := range files {
		info.Files = append(info.Files, f.GetFilename())
	}
	return info, nil
}

// FetchDiffs returns every changed file with its patch. Binary files and
// oversized diffs come back without a patch.
func (g *GitHub) FetchDiffs(ctx context.Context, repo string, number int) ([]review.FileChange, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	files, err := g.listFiles(ctx, owner, name, number)
	if err != nil {
		return nil, err
	}
	changes := make([]review.FileChange, 0, len(files))
	for _, f := range files {
		changes = append(changes, review.FileChange{
			Path:      f.GetFilename(),
			Kind:      githubKind(f.GetStatus()),
			Diff:      f.GetPatch(),
			Language:  patch.Language(f.GetFilename()),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
		})
	}
	return changes, nil
}

func (g *GitHub) listFiles(ctx context.Context, owner, name string, number int) ([]*github.CommitFile, error) {
	var all []*github.CommitFile
	opts := &github.ListOptions{PerPage: filesPerPage}
	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, name, number, opts)
		if err != nil {
			return nil, g.classify(resp, err, fmt.Sprintf("listing files of PR #%d", number))
		}
		all = append(all, files...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// PostReview creates one pull request review carrying the summary, the inline
// comments and the recommendation as its event.
func (g *GitHub) PostReview(ctx context.Context, repo string, number int, sub Submission) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return postError(err)
	}
	req := &github.PullRequestReviewRequest{
		Body:  github.Ptr(sub.Summary),
		Event: github.Ptr(githubEvent(sub.Recommendation)),
	}
	for _, c := range sub.Comments {
		req.Comments = append(req.Comments, &github.DraftReviewComment{
			Path: github.Ptr(c.Path),
			Line: github.Ptr(c.Line),
			Side: github.Ptr("RIGHT"),
			Body: github.Ptr(c.Body),
		})
	}
	_, resp, err := g.client.PullRequests.CreateReview(ctx, owner, name, number, req)
	if err != nil {
		return postError(g.classify(resp, err, fmt.Sprintf("posting review to PR #%d", number)))
	}
	return nil
}

// CheckConnection verifies the token by fetching the authenticated user.
func (g *GitHub) CheckConnection(ctx context.Context) error {
	_, resp, err := g.client.Users.Get(ctx, "")
	if err != nil {
		return g.classify(resp, err, "checking connection")
	}
	return nil
}

func (g *GitHub) classify(resp *github.Response, err error, what string) error {
	var rle *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rle), errors.As(err, &abuse):
		return review.NewError(review.KindRateLimited, what, err)
	case resp != nil && resp.Response != nil:
		var detail string
		var er *github.ErrorResponse
		if errors.As(err, &er) {
			detail = er.Message
		}
		return statusError(g.host, resp.StatusCode, resp.Header, []byte(detail), what)
	default:
		return transportError(g.host, what, err)
	}
}

func githubKind(status string) review.ChangeKind {
	switch status {
	case "added":
		return review.ChangeAdded
	case "removed":
		return review.ChangeDeleted
	default:
		return review.ChangeModified
	}
}

func githubEvent(r review.Recommendation) string {
	switch r {
	case review.RecommendApprove:
		return "APPROVE"
	case review.RecommendRequestChanges:
		return "REQUEST_CHANGES"
	default:
		return "COMMENT"
	}
}
