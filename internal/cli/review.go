package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/prgate/internal/adapters"
	"github.com/dshills/prgate/internal/config"
	"github.com/dshills/prgate/internal/orchestrator"
	"github.com/dshills/prgate/internal/output"
	"github.com/dshills/prgate/internal/review"
	"github.com/dshills/prgate/internal/scoring"
)

// Shared output and gate flags
var (
	flagFormat               string
	flagOut                  string
	flagProviders            string
	flagExclude              string
	flagTimeout              string
	flagFailUnder            string
	flagFailOnRequestChanges bool
)

// Review target flags
var (
	flagServer string
	flagRepo   string
	flagPR     int
	flagPost   bool
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagProviders, "providers", "", "Feedback provider order (comma-separated, e.g. anthropic,openai)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Additional exclude globs (comma-separated)")
	cmd.Flags().StringVar(&flagTimeout, "timeout", "", "Network timeout for feedback providers (e.g. 30s)")
	cmd.Flags().StringVar(&flagFailUnder, "fail-under", "", "Exit 1 when the overall score is below a grade (e.g. B) or a number (e.g. 75)")
	cmd.Flags().BoolVar(&flagFailOnRequestChanges, "fail-on-request-changes", false, "Exit 1 when the recommendation is request-changes")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProviders != "" {
		m["providers"] = flagProviders
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagExclude != "" {
		m["exclude"] = flagExclude
	}
	if flagTimeout != "" {
		m["timeout"] = flagTimeout
	}
	return m
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a pull request",
	Long: "Fetch a pull request from a configured server, analyze and score it, generate feedback " +
		"and optionally post the review.\n\n" +
		"Without --server and --repo the origin remote of the current repository is used. " +
		"For the local server --repo is a revision range (e.g. main..HEAD).",
	Example: "  prgate review --repo acme/widgets --pr 42\n" +
		"  prgate review --server gitlab --repo group/project --pr 7 --post\n" +
		"  prgate review --server local --repo main..feature --fail-on-request-changes",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		threshold, err := parseFailUnder(flagFailUnder, cfg.Scoring)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		req, err := resolveTarget(ctx, cfg)
		if err != nil {
			fail(cmd.ErrOrStderr(), err)
			return nil
		}

		o, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}
		res, err := o.Review(ctx, req)
		if err != nil {
			fail(cmd.ErrOrStderr(), err)
			return nil
		}
		finish(cmd, cfg, res, threshold)
		return nil
	},
}

// resolveTarget fills the review request from flags and the git remote.
func resolveTarget(ctx context.Context, cfg config.Config) (orchestrator.Request, error) {
	req := orchestrator.Request{Server: flagServer, Repo: flagRepo, Number: flagPR, Post: flagPost}
	if req.Server != "" && cfg.Servers[req.Server].Type == "local" {
		return req, nil
	}
	if req.Server != "" && req.Repo != "" {
		return req, nil
	}

	remote, err := adapters.DetectRepo(ctx, ".")
	if err != nil {
		return req, review.NewError(review.KindInvalidRequest, "cannot infer the repository; pass --server and --repo", err)
	}
	if req.Repo == "" {
		req.Repo = remote.Repo()
	}
	if req.Server == "" {
		req.Server = serverFor(cfg, remote.Type())
		if req.Server == "" {
			return req, review.Errorf(review.KindInvalidRequest, "no configured server for host %s; pass --server", remote.Host)
		}
	}
	logger.Info("detected repository", "server", req.Server, "repo", req.Repo)
	return req, nil
}

// serverFor returns the configured server of the given type, preferring one
// named after the type.
func serverFor(cfg config.Config, typ string) string {
	if typ == "" {
		return ""
	}
	if s, ok := cfg.Servers[typ]; ok && s.Type == typ {
		return typ
	}
	for _, name := range sortedKeys(cfg.Servers) {
		if cfg.Servers[name].Type == typ {
			return name
		}
	}
	return ""
}

// parseFailUnder converts a grade name or a number into a score threshold.
// An empty value disables the gate and returns -1.
func parseFailUnder(v string, sc scoring.Config) (float64, error) {
	if v == "" {
		return -1, nil
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		if n < 0 || n > 100 {
			return 0, fmt.Errorf("--fail-under must be between 0 and 100, got %s", v)
		}
		return n, nil
	}
	grades := sc.Grades
	if len(grades) == 0 {
		grades = scoring.DefaultGrades()
	}
	for _, g := range grades {
		if strings.EqualFold(g.Grade, v) {
			return g.Min, nil
		}
	}
	return 0, fmt.Errorf("--fail-under: unknown grade %q", v)
}

// finish writes the result and applies the CI gates.
func finish(cmd *cobra.Command, cfg config.Config, res *review.ReviewResult, threshold float64) {
	stderr := cmd.ErrOrStderr()
	opts := output.Options{Color: useColor(flagOut)}
	if err := output.WriteReport(res, cfg.Output.Format, flagOut, opts); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if res.Posted != nil && !*res.Posted {
		fmt.Fprintf(stderr, "Warning: review was not posted: %s\n", res.PostError)
		exitCode = ExitRuntimeError
	}

	if threshold >= 0 && res.Score.Overall < threshold {
		fmt.Fprintf(stderr, "Gate failed: score %.1f (%s) is below %s\n", res.Score.Overall, res.Score.Grade, flagFailUnder)
		exitCode = ExitGateFailed
		return
	}
	if flagFailOnRequestChanges && res.Feedback.Recommendation == review.RecommendRequestChanges {
		fmt.Fprintln(stderr, "Gate failed: changes requested")
		exitCode = ExitGateFailed
	}
}

func init() {
	addOutputFlags(reviewCmd)
	reviewCmd.Flags().StringVar(&flagServer, "server", "", "Configured server name (github, gitlab, bitbucket, local, ...)")
	reviewCmd.Flags().StringVar(&flagRepo, "repo", "", "Repository (owner/name) or, for the local server, a revision range")
	reviewCmd.Flags().IntVar(&flagPR, "pr", 0, "Pull request number")
	reviewCmd.Flags().BoolVar(&flagPost, "post", false, "Post the review to the server")
}
