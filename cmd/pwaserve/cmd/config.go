package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/pwaserve/internal/config"
)

var (
	configFile  string
	configForce bool
)

// ConfigCmd is the parent command for config file operations.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or show the pwaserve config file",
	Long: `Create or show the pwaserve config file.

Settings are layered, later layers win: built-in defaults, the config
file (` + config.DefaultFile + ` in the working directory, ${VAR} references
expanded), PWASERVE_* environment variables, then command-line flags.

Examples:
  pwaserve config init            # write ./` + config.DefaultFile + `
  pwaserve config show            # print the effective settings
  PWASERVE_PROFILE=hardened pwaserve config show`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = config.DefaultFile
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		cfg := config.Default()
		cfg.Port = cfg.ListenPort()
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg.Port = cfg.ListenPort()
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	ConfigCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./"+config.DefaultFile+")")
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}
