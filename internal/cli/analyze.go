package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>...",
	Short: "Analyze local files without a git host",
	Long: "Run the analyzers, scoring and offline feedback over files on disk. " +
		"Directories are walked recursively; hidden directories are skipped.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		threshold, err := parseFailUnder(flagFailUnder, cfg.Scoring)
		if err != nil {
			return err
		}

		files, err := collectFiles(args)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error: no files to analyze")
			exitCode = ExitUsageError
			return nil
		}

		am, err := buildAnalysis(cfg)
		if err != nil {
			return err
		}
		o, err := newOfflineOrchestrator(cfg, am)
		if err != nil {
			return err
		}
		res, err := o.AnalyzeFiles(cmd.Context(), files)
		if err != nil {
			fail(cmd.ErrOrStderr(), err)
			return nil
		}
		finish(cmd, cfg, res, threshold)
		return nil
	},
}

// collectFiles reads every regular file named by paths, walking directories.
// Keys are slash-separated paths as given on the command line.
func collectFiles(paths []string) (map[string]string, error) {
	files := make(map[string]string)
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			files[filepath.ToSlash(filepath.Clean(path))] = string(data)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", root, err)
		}
	}
	return files, nil
}

func init() {
	addOutputFlags(analyzeCmd)
}
