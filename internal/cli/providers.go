package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dshills/prgate/internal/config"
	"github.com/dshills/prgate/internal/feedback"
	"github.com/dshills/prgate/internal/providers"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Feedback provider management",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feedback backends and the configured chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, providersTable(cfg))
		fmt.Fprintf(out, "Chain: %v\n", chainNames(cfg.Feedback.ProviderOrder))
		return nil
	},
}

func providersTable(cfg config.Config) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("BACKEND", "MODEL", "IN CHAIN")
	for _, name := range providers.Names() {
		model := cfg.Feedback.Models[name]
		if model == "" {
			model = providers.DefaultModel(name)
		}
		inChain := "no"
		if slices.Contains(cfg.Feedback.ProviderOrder, name) {
			inChain = "yes"
		}
		t.Row(name, model, inChain)
	}
	t.Row(feedback.OfflineName, "-", "always")
	return t.String()
}

// chainNames returns the effective chain, which always ends in offline.
func chainNames(order []string) []string {
	var out []string
	for _, n := range order {
		if n != feedback.OfflineName {
			out = append(out, n)
		}
	}
	return append(out, feedback.OfflineName)
}

var providersCheckCmd = &cobra.Command{
	Use:   "check <backend>",
	Short: "Validate a backend's credentials with a one-token request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		name := args[0]
		if !providers.Known(name) {
			return fmt.Errorf("unknown backend %q (known: %v)", name, providers.Names())
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Checking %s...\n", name)

		client, err := providers.New(name, clientOptions(cfg)[name])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		_, err = client.Complete(ctx, providers.Request{
			SystemPrompt: "Respond with exactly: ok",
			UserPrompt:   "ping",
			MaxTokens:    10,
		})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %v\n", err)
			exitCode = exitFor(err)
			return nil
		}

		fmt.Fprintf(out, "OK: %s (%s) is configured and responding\n", name, client.Model())
		return nil
	},
}

func init() {
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersCheckCmd)
	for _, c := range []*cobra.Command{providersListCmd, providersCheckCmd} {
		c.Flags().StringVar(&flagProviders, "providers", "", "Feedback provider order (comma-separated)")
		c.Flags().StringVar(&flagTimeout, "timeout", "", "Network timeout (e.g. 30s)")
	}
}
