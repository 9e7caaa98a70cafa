package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/prgate/internal/adapters"
	"github.com/dshills/prgate/internal/analysis"
	"github.com/dshills/prgate/internal/feedback"
	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
	"github.com/dshills/prgate/internal/scoring"
)

// Tool is the name recorded on every result.
const Tool = "prgate"

// State is a step of the review state machine.
type State string

const (
	StateFetching           State = "fetching"
	StateAnalyzing          State = "analyzing"
	StateScoring            State = "scoring"
	StateGeneratingFeedback State = "generating-feedback"
	StatePosting            State = "posting"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Transition is reported each time a review changes state. Err is set when
// To is StateFailed.
type Transition struct {
	RunID string
	From  State
	To    State
	Err   error
}

// Deps are the collaborators of an orchestrator. Adapters maps configured
// server names to their adapters.
type Deps struct {
	Adapters     map[string]adapters.Adapter
	Analysis     *analysis.Manager
	Scoring      *scoring.Engine
	Feedback     *feedback.Manager
	Logger       *slog.Logger
	OnTransition func(Transition)
	Version      string
}

// Request names the pull request to review.
type Request struct {
	Server string `json:"server"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
	Post   bool   `json:"post"`
}

// Orchestrator runs reviews. It holds no per-review state and is safe for
// concurrent use.
type Orchestrator struct {
	deps Deps
	log  *slog.Logger
}

// New returns an orchestrator. A nil Feedback manager uses offline feedback
// only.
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Feedback == nil {
		deps.Feedback = feedback.NewManager(deps.Logger)
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Orchestrator{deps: deps, log: deps.Logger}
}

// Servers returns the configured server names, sorted.
func (o *Orchestrator) Servers() []string {
	names := make([]string, 0, len(o.deps.Adapters))
	for n := range o.deps.Adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// run tracks the state of one review.
type run struct {
	id    string
	state State
	o     *Orchestrator
	log   *slog.Logger
}

func (r *run) enter(s State) {
	from := r.state
	r.state = s
	r.log.Debug("review state", "from", from, "to", s)
	if r.o.deps.OnTransition != nil {
		r.o.deps.OnTransition(Transition{RunID: r.id, From: from, To: s})
	}
}

func (r *run) fail(err error, stage review.Stage) error {
	rerr := review.WithStage(err, stage)
	from := r.state
	r.state = StateFailed
	r.log.Error("review failed", "stage", rerr.Stage, "kind", rerr.Kind, "error", rerr)
	if r.o.deps.OnTransition != nil {
		r.o.deps.OnTransition(Transition{RunID: r.id, From: from, To: StateFailed, Err: rerr})
	}
	return rerr
}

// checkpoint fails the review if ctx is done.
func (r *run) checkpoint(ctx context.Context, stage review.Stage) error {
	if err := ctx.Err(); err != nil {
		return r.fail(review.NewError(review.KindCanceled, "review canceled", err), stage)
	}
	return nil
}

// Review runs a full review of one pull request.
func (o *Orchestrator) Review(ctx context.Context, req Request) (*review.ReviewResult, error) {
	start := time.Now()
	r := &run{id: uuid.NewString(), o: o}
	r.log = o.log.With("run", r.id, "server", req.Server, "repo", req.Repo, "pr", req.Number)

	r.enter(StateFetching)
	if err := r.checkpoint(ctx, review.StageFetching); err != nil {
		return nil, err
	}
	adapter, ok := o.deps.Adapters[req.Server]
	if !ok {
		return nil, r.fail(review.Errorf(review.KindInvalidRequest, "unknown server %q (configured: %s)", req.Server, strings.Join(o.Servers(), ", ")), review.StageFetching)
	}
	if strings.TrimSpace(req.Repo) == "" && adapter.Name() != "local" {
		return nil, r.fail(review.Errorf(review.KindInvalidRequest, "repository is required"), review.StageFetching)
	}
	if req.Number < 0 {
		return nil, r.fail(review.Errorf(review.KindInvalidRequest, "invalid pull request number %d", req.Number), review.StageFetching)
	}

	pr, err := adapter.FetchPR(ctx, req.Repo, req.Number)
	if err != nil {
		return nil, r.fail(err, review.StageFetching)
	}
	files, err := adapter.FetchDiffs(ctx, req.Repo, req.Number)
	if err != nil {
		return nil, r.fail(err, review.StageFetching)
	}
	fetchMs := review.Since(start)
	r.log.Info("fetched pull request", "title", pr.Title, "files", len(files))

	res, err := o.evaluate(ctx, r, pr, files)
	if err != nil {
		return nil, err
	}
	res.RunID = r.id
	res.Timing.FetchMs = fetchMs

	if req.Post {
		r.enter(StatePosting)
		postStart := time.Now()
		sub := BuildSubmission(res, files)
		// Posting is one request sequence that must not be cut short by a
		// caller giving up.
		err := adapter.PostReview(context.WithoutCancel(ctx), req.Repo, req.Number, sub)
		posted := err == nil
		res.Posted = &posted
		if err != nil {
			perr := review.WithStage(err, review.StagePosting)
			res.PostError = review.PublicError(perr).Message
			r.log.Warn("posting review failed", "kind", perr.Kind, "error", perr)
		} else {
			r.log.Info("posted review", "comments", len(sub.Comments), "recommendation", sub.Recommendation)
		}
		res.Timing.PostMs = review.Since(postStart)
	}

	r.enter(StateDone)
	res.Timing.TotalMs = review.Since(start)
	r.log.Info("review complete", "score", res.Score.Overall, "grade", res.Score.Grade,
		"recommendation", res.Feedback.Recommendation, "provider", res.Feedback.Provider)
	return res, nil
}

// evaluate runs analysis, scoring and feedback over fetched files.
func (o *Orchestrator) evaluate(ctx context.Context, r *run, pr review.PRInfo, files []review.FileChange) (*review.ReviewResult, error) {
	r.enter(StateAnalyzing)
	if err := r.checkpoint(ctx, review.StageAnalyzing); err != nil {
		return nil, err
	}
	analyzeStart := time.Now()
	results, err := o.deps.Analysis.Analyze(ctx, files)
	if err != nil {
		return nil, r.fail(err, review.StageAnalyzing)
	}
	sum := review.ComputeSummary(results)
	r.log.Info("analysis complete", "files", sum.Files, "issues", sum.Counts.Total(), "errors", sum.Counts.Error)

	r.enter(StateScoring)
	if err := r.checkpoint(ctx, review.StageScoring); err != nil {
		return nil, err
	}
	score, err := o.deps.Scoring.Score(results)
	if err != nil {
		return nil, r.fail(err, review.StageScoring)
	}
	analyzeMs := review.Since(analyzeStart)

	r.enter(StateGeneratingFeedback)
	if err := r.checkpoint(ctx, review.StageGeneratingFeedback); err != nil {
		return nil, err
	}
	feedbackStart := time.Now()
	fb, attempts := o.deps.Feedback.Generate(ctx, feedback.Request{PR: pr, Files: files, Results: results, Score: score})
	for _, a := range attempts {
		r.log.Warn("feedback provider skipped", "provider", a.Provider, "kind", a.Kind, "error", a.Message)
	}
	if err := r.checkpoint(ctx, review.StageGeneratingFeedback); err != nil {
		return nil, err
	}

	return &review.ReviewResult{
		Tool:     Tool,
		Version:  o.deps.Version,
		PR:       pr,
		Files:    results,
		Score:    score,
		Feedback: fb,
		Timing: review.Timing{
			AnalyzeMs:  analyzeMs,
			FeedbackMs: review.Since(feedbackStart),
		},
	}, nil
}

// AnalyzeFiles reviews file contents without a git host: analysis, scoring
// and offline feedback.
func (o *Orchestrator) AnalyzeFiles(ctx context.Context, files map[string]string) (*review.ReviewResult, error) {
	start := time.Now()
	r := &run{id: uuid.NewString(), o: o}
	r.log = o.log.With("run", r.id, "mode", "files")

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	pr := review.PRInfo{Title: "Local analysis", Repository: "local", Files: paths}
	changes := make([]review.FileChange, 0, len(paths))
	for _, p := range paths {
		content := files[p]
		lines := strings.Count(content, "\n")
		if content != "" && !strings.HasSuffix(content, "\n") {
			lines++
		}
		pr.Additions += lines
		changes = append(changes, review.FileChange{
			Path:      p,
			Kind:      review.ChangeAdded,
			Language:  patch.Language(p),
			Content:   content,
			Additions: lines,
		})
	}

	offline := New(Deps{Analysis: o.deps.Analysis, Scoring: o.deps.Scoring, Logger: o.log, Version: o.deps.Version, OnTransition: o.deps.OnTransition})
	r.o = offline
	res, err := offline.evaluate(ctx, r, pr, changes)
	if err != nil {
		return nil, err
	}
	res.RunID = r.id
	r.enter(StateDone)
	res.Timing.TotalMs = review.Since(start)
	return res, nil
}
