package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/prgate/internal/gitctx"
)

const (
	hookMarkerStart = "# >>> prgate pre-push hook >>>"
	hookMarkerEnd   = "# <<< prgate pre-push hook <<<"
)

var (
	hookBase      string
	hookFailUnder string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the git pre-push review gate",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Review outgoing commits with the local server before every push",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := hookPath(cmd)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		section := generateHookScript(hookBase, hookFailUnder)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		var content string
		if len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceHookSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error creating hooks directory: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Installed prgate pre-push hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the prgate pre-push hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := hookPath(cmd)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No pre-push hook found.")
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		content := removeHookSection(string(existing))

		// If only the shebang remains, delete the file entirely
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing hook file: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed prgate pre-push hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed prgate section from %s\n", hookPath)
		return nil
	},
}

func hookPath(cmd *cobra.Command) (string, error) {
	repo, err := gitctx.Open(cmd.Context(), ".")
	if err != nil {
		return "", err
	}
	dir, err := repo.HooksDir(cmd.Context())
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pre-push"), nil
}

// generateHookScript reviews base..HEAD with the local server and blocks the
// push only when the gate fails; review errors let the push through.
func generateHookScript(base, failUnder string) string {
	args := fmt.Sprintf("review --server local --repo %s..HEAD --fail-on-request-changes", base)
	if failUnder != "" {
		args += " --fail-under " + failUnder
	}
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	b.WriteString("prgate " + args + "\n")
	b.WriteString("PRGATE_EXIT=$?\n")
	b.WriteString("if [ $PRGATE_EXIT -eq 1 ]; then\n")
	b.WriteString("  echo \"prgate: review gate failed, push blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $PRGATE_EXIT -ge 2 ]; then\n")
	b.WriteString("  echo \"prgate: review could not run (exit $PRGATE_EXIT), allowing push\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func replaceHookSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + section + after
}

func removeHookSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookBase, "base", "origin/main", "Ref the outgoing commits are compared against")
	hookInstallCmd.Flags().StringVar(&hookFailUnder, "fail-under", "", "Also block pushes below this grade or score")
}
