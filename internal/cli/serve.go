package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/prgate/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review HTTP service",
	Long: "Serve GET /health, GET /api/servers, POST /api/reviews and POST /api/analyze " +
		"until interrupted.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := buildOverrides()
		if flagAddr != "" {
			overrides["addr"] = flagAddr
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}
		o, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(o, server.Options{Logger: logger, Version: version})
		if err := srv.ListenAndServe(ctx, cfg.Serve.Addr); err != nil {
			fail(cmd.ErrOrStderr(), err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&flagProviders, "providers", "", "Feedback provider order (comma-separated)")
}
