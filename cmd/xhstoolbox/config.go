package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"xhstoolbox/pkg/config"
	"xhstoolbox/pkg/ui"
)

const defaultConfigPath = ".xhstoolbox.yaml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage xhstoolbox configuration files.

Configuration is merged from, highest priority first:
  - command line flags
  - environment variables (` + config.EnvPrefix + `*)
  - .env files
  - the configuration file
  - default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Args:  cobra.NoArgs,
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	Run:   runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		exitWith("Failed to create configuration file", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	ui.Println("\nNext steps:")
	ui.Println("1. Point backend.base_url and proxy.backend_origin at your backend")
	ui.Println("2. Run 'xhstoolbox config validate' to check the configuration")
	ui.Println("3. Run 'xhstoolbox login' to sign in")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)

	data, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		exitWith("Failed to format configuration", err)
	}

	ui.PrintHighlight("Current Configuration")
	ui.Println()
	ui.Printf("%s", data)

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none)"
	}
	ui.PrintInfo("\nConfiguration file", source)
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		ui.PrintError("No configuration file found", "specify one with --config")
		os.Exit(1)
	}

	ui.PrintInfo("Validating configuration", path)
	cfg, err := config.Load(path, nil)
	if err != nil {
		exitWith("Configuration validation failed", err)
	}

	if cfg.Output.BaseDirectory != "" {
		if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
			exitWith("Cannot create output directory", err)
		}
	}
	if cfg.Proxy.StaticDir != "" {
		if info, err := os.Stat(cfg.Proxy.StaticDir); err != nil || !info.IsDir() {
			ui.PrintWarning(fmt.Sprintf("Static directory %s is not usable", cfg.Proxy.StaticDir))
		}
	}

	ui.PrintSuccess("Configuration is valid")
}
