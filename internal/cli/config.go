package cli

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/prgate/internal/config"
)

var (
	flagConfigForce bool
	flagConfigJSON  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage prgate configuration",
}

// targetPath is the file config init and set write to.
func targetPath() (string, error) {
	path, err := config.Locate(flagConfig)
	if err != nil {
		return "", err
	}
	if path == "" {
		return config.ConfigPath()
	}
	return path, nil
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flagConfig
		if path == "" {
			var err error
			if path, err = config.ConfigPath(); err != nil {
				return err
			}
		}
		if err := config.Init(path, flagConfigForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value (e.g. feedback.provider_order anthropic,openai)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := targetPath()
		if err != nil {
			return err
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			// If no config file, start from defaults
			cfg = config.Default()
		}

		if err := config.SetField(&cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with credentials masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, nil)
		if err != nil {
			return err
		}
		cfg = masked(cfg)

		var data []byte
		if flagConfigJSON {
			data, err = json.MarshalIndent(cfg, "", "  ")
		} else {
			data, err = yaml.Marshal(cfg)
		}
		if err != nil {
			return err
		}
		if cfg.Source != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "# from %s\n", cfg.Source)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// masked returns cfg with server tokens hidden.
func masked(cfg config.Config) config.Config {
	cfg.Servers = maps.Clone(cfg.Servers)
	for name, s := range cfg.Servers {
		if s.Token != "" {
			s.Token = "********"
		}
		cfg.Servers[name] = s
	}
	return cfg
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, nil)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Invalid configuration:\n%v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		source := cfg.Source
		if source == "" {
			source = "defaults"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (%s)\n", source)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file prgate reads or writes",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := targetPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPathCmd)
	configInitCmd.Flags().BoolVar(&flagConfigForce, "force", false, "Overwrite an existing file")
	configShowCmd.Flags().BoolVar(&flagConfigJSON, "json", false, "Print as JSON instead of YAML")
}
