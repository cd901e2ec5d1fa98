package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/ds/configs"
	"github.com/Aman-CERP/ds/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/ds/config.yaml)
  3. Project config (.ds.yaml in the working directory)
  4. Environment variables (DS_*)`,
		Example: `  # Create user config from template
  ds config init

  # Show effective configuration (merged from all sources)
  ds config show

  # Print user config file path
  ds config path`,
	}

	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file from the built-in template.

The file is created at ~/.config/ds/config.yaml
(or $XDG_CONFIG_HOME/ds/config.yaml if XDG_CONFIG_HOME is set).
With --force an existing file is backed up and replaced.`,
		Example: `  # Create user config
  ds config init

  # Replace an existing config (a backup is kept)
  ds config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, a, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration (keeps a backup)")

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources.

--source selects what to show: merged (default), user or defaults.`,
		Example: `  ds config show
  ds config show --json
  ds config show --source user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, a, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, a *app, force bool) error {
	out := a.writer(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	var backupPath string
	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.KeyValue("Location", configPath)
			out.Newline()
			out.Status("", "Use --force to replace it (a backup is kept)")
			return nil
		}

		var err error
		backupPath, err = config.BackupFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
	}

	if err := os.MkdirAll(config.GetUserConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.KeyValue("Location", configPath)
	if backupPath != "" {
		out.KeyValue("Backup", backupPath)
	}
	out.Newline()
	out.Status("", "Edit the file, then run 'ds config show' to verify")

	return nil
}

func runConfigShow(cmd *cobra.Command, a *app, jsonOutput bool, source string) error {
	var cfg *config.Config

	switch source {
	case "merged":
		cfg = a.config()
	case "defaults":
		cfg = config.NewConfig()
	case "user":
		userCfg, err := config.LoadUserConfig()
		if err != nil {
			return err
		}
		if userCfg == nil {
			out := a.writer(cmd.OutOrStdout())
			out.Warning("No user configuration file found")
			out.KeyValue("Expected at", config.GetUserConfigPath())
			out.Status("", "Run 'ds config init' to create one")
			return nil
		}
		cfg = userCfg
	default:
		return fmt.Errorf("unknown source %q (use merged, user or defaults)", source)
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	fmt.Fprintf(w, "# source: %s\n", source)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
