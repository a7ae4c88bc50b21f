package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"xhstoolbox/pkg/config"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/session"
	"xhstoolbox/pkg/ui"
	"xhstoolbox/pkg/xhs"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	backendURL string
	noColor    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "xhstoolbox",
	Short: "Browse, search and download Xiaohongshu notes through a toolbox backend",
	Long: `xhstoolbox talks to a toolbox backend that wraps the Xiaohongshu web API.

It can:
  - run the edge proxy that serves the web UI and forwards /api/* to the backend
  - log in by scanning a QR code with the mobile app
  - browse the home feed, notes, comments and notifications
  - search notes and users
  - download the images or video of a note`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		if quiet {
			ui.SetQuietMode(true)
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.xhstoolbox.yaml or ~/.config/xhstoolbox/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`xhstoolbox {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration with the global flags plus extra and
// initializes the global logger. It exits on failure.
func loadConfig(extra map[string]interface{}) *config.Config {
	flags := map[string]interface{}{
		"backend":   backendURL,
		"log-level": logLevel,
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		exitWith("Failed to load configuration", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		exitWith("Failed to initialize logger", err)
	}
	return cfg
}

func newClient(cfg *config.Config) *xhs.Client {
	client, err := xhs.NewClient(&cfg.Backend, logger.GetLogger())
	if err != nil {
		exitWith("Failed to create backend client", err)
	}
	client.SetPageSize(cfg.Feed.PageSize)
	return client
}

func openSession(ctx context.Context, cfg *config.Config) *session.Session {
	store, err := session.NewStore(&cfg.Session, logger.GetLogger())
	if err != nil {
		exitWith("Failed to open session store", err)
	}
	s, err := session.Open(ctx, store, logger.GetLogger())
	if err != nil {
		exitWith("Failed to load session", err)
	}
	return s
}

var (
	osExit = os.Exit
	exit   = osExit
)

func exitWith(msg string, err error) {
	ui.PrintError(msg, err)
	exit(1)
}
