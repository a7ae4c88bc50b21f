package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"xhstoolbox/pkg/edgeproxy"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/ui"
)

var (
	proxyListen        string
	proxyBackendOrigin string
	proxyStaticDir     string
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the edge proxy",
	Long: `Run the edge proxy. Requests under /api are forwarded to the backend
origin with permissive CORS headers; everything else is served from the
static directory, falling back to index.html for client-side routes.`,
	Args: cobra.NoArgs,
	Run:  runProxy,
}

func init() {
	rootCmd.AddCommand(proxyCmd)
	proxyCmd.Flags().StringVar(&proxyListen, "listen", "", "listen address (default :8080)")
	proxyCmd.Flags().StringVar(&proxyBackendOrigin, "backend-origin", "", "origin requests under /api are forwarded to")
	proxyCmd.Flags().StringVar(&proxyStaticDir, "static", "", "directory holding the built web UI")
}

func runProxy(cmd *cobra.Command, args []string) {
	cfg := loadConfig(map[string]interface{}{
		"listen":         proxyListen,
		"backend-origin": proxyBackendOrigin,
		"static":         proxyStaticDir,
	})

	srv, err := edgeproxy.NewServer(&cfg.Proxy, logger.GetLogger())
	if err != nil {
		exitWith("Failed to create proxy", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Listening", cfg.Proxy.Listen)
	ui.PrintInfo("Backend", cfg.Proxy.BackendOrigin)
	if err := srv.Run(ctx); err != nil {
		exitWith("Proxy stopped", err)
	}
}
