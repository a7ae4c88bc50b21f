package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"xhstoolbox/internal/downloader"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/storage"
	"xhstoolbox/pkg/ui"
	"xhstoolbox/pkg/xhs"
)

var (
	downloadOutput     string
	downloadMetadata   bool
	downloadConcurrent int
	downloadOverwrite  bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <id|url>...",
	Short: "Download the images or video of notes",
	Long: `Download the media of one or more notes through the backend media proxy.

Notes can be given as ids or share links. Files already present in the
output directory are skipped unless --overwrite is set.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output directory")
	downloadCmd.Flags().BoolVar(&downloadMetadata, "metadata", true, "save note metadata as <id>.json")
	downloadCmd.Flags().IntVar(&downloadConcurrent, "concurrent", 0, "parallel downloads (default from config)")
	downloadCmd.Flags().BoolVar(&downloadOverwrite, "overwrite", false, "download files that already exist")
}

func runDownload(cmd *cobra.Command, args []string) {
	cfg := loadConfig(map[string]interface{}{
		"output":     downloadOutput,
		"concurrent": downloadConcurrent,
	})
	if cmd.Flags().Changed("metadata") {
		cfg.Output.SaveMetadata = downloadMetadata
	}
	if downloadOverwrite {
		cfg.Output.OverwriteExisting = true
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.OverwriteExisting)
	if err != nil {
		exitWith("Failed to prepare output directory", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracker *ui.DownloadTracker
	d := downloader.New(newClient(cfg), store, downloader.Options{
		Workers:      cfg.Download.ConcurrentDownloads,
		Stagger:      cfg.Download.Stagger,
		JobTimeout:   cfg.Download.DownloadTimeout,
		Retries:      cfg.Download.Retries,
		SaveMetadata: cfg.Output.SaveMetadata,
		Planned: func(note *xhs.NoteItem, files int) {
			ui.PrintHighlight(note.Title)
			tracker = ui.NewDownloadTracker(files)
			tracker.PrintProgress()
		},
		Progress: func(r downloader.Result) {
			tracker.Record(r.Success, r.Skipped, r.Size)
			tracker.PrintProgress()
		},
	}, logger.GetLogger())

	failed := 0
	for _, input := range args {
		summary, err := d.Download(ctx, input)
		if err != nil {
			ui.PrintError("Download failed", err)
			failed++
			continue
		}
		ui.Println()
		ui.PrintSuccess(tracker.Summary())
		for _, e := range summary.Errors {
			ui.PrintWarning("  " + e.Error())
		}
		if summary.Failed > 0 {
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	ui.PrintInfo("Saved to", store.OutputDir())
	if failed > 0 {
		os.Exit(1)
	}
}
