package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dshills/prgate/internal/adapters"
	"github.com/dshills/prgate/internal/config"
	"github.com/dshills/prgate/internal/review"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List and check configured git servers",
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured servers and supported server types",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, serversTable(cfg))
		fmt.Fprintf(out, "Supported types: %s\n", strings.Join(adapters.DefaultFactory().Types(), ", "))
		return nil
	},
}

func serversTable(cfg config.Config) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "TYPE", "ENDPOINT", "CREDENTIALS")
	for _, name := range sortedKeys(cfg.Servers) {
		s := cfg.Servers[name]
		endpoint := s.BaseURL
		if s.Type == "local" {
			endpoint = s.Dir
			if endpoint == "" {
				endpoint = "."
			}
		}
		if endpoint == "" {
			endpoint = "(default)"
		}
		t.Row(name, s.Type, endpoint, credentialState(s))
	}
	return t.String()
}

func credentialState(s config.Server) string {
	switch {
	case s.Type == "local":
		return "n/a"
	case s.Token != "":
		return "configured"
	default:
		return "environment"
	}
}

var serversCheckCmd = &cobra.Command{
	Use:   "check [name]...",
	Short: "Check connectivity and credentials of configured servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			names = sortedKeys(cfg.Servers)
		}
		factory := adapters.DefaultFactory()
		out := cmd.OutOrStdout()
		for _, name := range names {
			ac, ok := cfg.AdapterConfig(name)
			if !ok {
				fmt.Fprintf(out, "%-12s FAIL  not configured\n", name)
				exitCode = ExitUsageError
				continue
			}
			a, err := factory.New(ac)
			if err == nil {
				err = checkServer(cmd.Context(), a, ac.Timeout)
			}
			if err != nil {
				fmt.Fprintf(out, "%-12s FAIL  %v\n", name, err)
				if code := exitFor(err); code > exitCode {
					exitCode = code
				}
				continue
			}
			fmt.Fprintf(out, "%-12s OK    %s\n", name, ac.Type)
		}
		return nil
	},
}

func checkServer(ctx context.Context, a adapters.Adapter, timeout time.Duration) error {
	c, ok := a.(adapters.Checker)
	if !ok {
		return review.Errorf(review.KindInvalidRequest, "%s adapter cannot check connections", a.Name())
	}
	if timeout <= 0 {
		timeout = adapters.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.CheckConnection(ctx)
}

func init() {
	serversCmd.AddCommand(serversListCmd)
	serversCmd.AddCommand(serversCheckCmd)
}
