package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/pager"
	"xhstoolbox/pkg/ui"
	"xhstoolbox/pkg/xhs"
)

var (
	feedPages    int
	feedNum      int
	noteComments int
	notifyPages  int
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the home feed categories",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range xhs.FeedCategories {
			ui.PrintInfo(c.Key, c.Label)
		}
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed [category]",
	Short: "Show the home feed",
	Long: `Show the home feed of a category. Without a category the configured
default is used; run 'xhstoolbox categories' for the list.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runFeed,
}

var noteCmd = &cobra.Command{
	Use:   "note <id|url>",
	Short: "Show a note and its comments",
	Args:  cobra.ExactArgs(1),
	Run:   runNote,
}

var notificationsCmd = &cobra.Command{
	Use:       "notifications mentions|connections|likes",
	Short:     "Show a notification feed",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"mentions", "connections", "likes"},
	Run:       runNotifications,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(notificationsCmd)

	feedCmd.Flags().IntVar(&feedPages, "pages", 1, "number of pages to load")
	feedCmd.Flags().IntVar(&feedNum, "num", 0, "notes per page (default from config)")
	noteCmd.Flags().IntVar(&noteComments, "comments", 0, "number of comment pages to load")
	notificationsCmd.Flags().IntVar(&notifyPages, "pages", 1, "number of pages to load")
}

// collectPages loads the first page and up to pages-1 more
func collectPages[T any](ctx context.Context, p *pager.Pager[T], pages int) ([]T, error) {
	if _, err := p.Refresh(ctx); err != nil {
		return nil, err
	}
	for i := 1; i < pages && p.HasMore(); i++ {
		if _, err := p.LoadMore(ctx); err != nil {
			return p.Items(), err
		}
	}
	return p.Items(), nil
}

func runFeed(cmd *cobra.Command, args []string) {
	cfg := loadConfig(map[string]interface{}{"num": feedNum})
	client := newClient(cfg)

	category := cfg.Feed.DefaultCategory
	if len(args) == 1 {
		category = args[0]
	}

	p := pager.New(client.FeedPages(category, cfg.Feed.PageSize), logger.GetLogger())
	notes, err := collectPages(context.Background(), p, feedPages)
	for i := range notes {
		printNoteLine(i+1, &notes[i])
	}
	if err != nil {
		exitWith("Failed to load feed", err)
	}
	if p.HasMore() {
		ui.Println(ui.Dim(fmt.Sprintf("more available, use --pages %d", feedPages+1)))
	}
}

func runNote(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := newClient(cfg)
	ctx := context.Background()

	noteID, ok := xhs.ExtractNoteID(args[0])
	if !ok {
		exitWith("Not a note id or link", fmt.Errorf("%q", args[0]))
	}

	note, err := client.NoteDetail(ctx, noteID)
	if err != nil {
		exitWith("Failed to load note", err)
	}
	if note == nil {
		exitWith("Note not found", fmt.Errorf("%s", noteID))
	}
	printNote(note)

	if noteComments <= 0 {
		return
	}
	p := pager.New(client.CommentPages(noteID), logger.GetLogger())
	comments, err := collectPages(ctx, p, noteComments)
	ui.Println()
	for _, c := range comments {
		printComment(c, 0)
	}
	if err != nil {
		exitWith("Failed to load comments", err)
	}
}

func runNotifications(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := newClient(cfg)

	p := pager.New(client.NotificationPages(xhs.NotificationKind(args[0])), logger.GetLogger())
	items, err := collectPages(context.Background(), p, notifyPages)
	for _, n := range items {
		line := fmt.Sprintf("%s %s %s", ui.Dim(formatTime(n.CreateTime)), ui.Cyan(n.User.Nickname), n.Content)
		if n.Note != nil && n.Note.Title != "" {
			line += ui.Dim(" · " + n.Note.Title)
		}
		ui.Println(line)
	}
	if err != nil {
		exitWith("Failed to load notifications", err)
	}
	if len(items) == 0 {
		ui.Println(ui.Dim("no notifications"))
	}
}

func printNoteLine(i int, n *xhs.NoteItem) {
	kind := "📷"
	if n.IsVideo() {
		kind = "🎬"
	}
	title := n.Title
	if title == "" {
		title = ui.Dim("(untitled)")
	}
	ui.Printf("%3d. %s %s %s %s\n", i, kind, title, ui.Dim("by "+n.User.Nickname), ui.Yellow("♥ "+orDash(n.LikedCount)))
	ui.Printf("     %s\n", ui.Dim(n.NoteID))
}

func printNote(n *xhs.NoteItem) {
	ui.PrintHighlight(n.Title)
	ui.PrintInfo("Author", n.User.Nickname)
	ui.PrintInfo("Type", string(n.Type))
	if n.CreateTime > 0 {
		ui.PrintInfo("Posted", formatTime(n.CreateTime))
	}
	ui.PrintInfo("Likes", orDash(n.LikedCount))
	ui.PrintInfo("Collects", orDash(n.CollectedCount))
	ui.PrintInfo("Comments", orDash(n.CommentCount))
	if n.Desc != "" {
		ui.Println()
		ui.Println(n.Desc)
	}
}

func printComment(c xhs.Comment, depth int) {
	indent := strings.Repeat("    ", depth)
	ui.Printf("%s%s %s %s\n", indent, ui.Cyan(c.User.Nickname), c.Content, ui.Dim("♥ "+orDash(c.LikeCount)))
	for _, sub := range c.SubComments {
		printComment(sub, depth+1)
	}
}

// formatTime renders a backend timestamp, which is in milliseconds
func formatTime(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
