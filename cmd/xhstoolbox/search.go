package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/pager"
	"xhstoolbox/pkg/ui"
	"xhstoolbox/pkg/xhs"
)

var (
	searchPages    int
	searchSort     string
	searchType     string
	searchUserPage int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search notes and users",
}

var searchNotesCmd = &cobra.Command{
	Use:   "notes <keyword>",
	Short: "Search notes",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearchNotes,
}

var searchUsersCmd = &cobra.Command{
	Use:   "users <keyword>",
	Short: "Search users",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearchUsers,
}

var searchTrendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show trending search terms",
	Args:  cobra.NoArgs,
	Run:   runSearchTrending,
}

var searchSuggestCmd = &cobra.Command{
	Use:   "suggest <partial keyword>",
	Short: "Show keyword suggestions",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearchSuggest,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchNotesCmd, searchUsersCmd, searchTrendingCmd, searchSuggestCmd)

	searchNotesCmd.Flags().IntVar(&searchPages, "pages", 1, "number of pages to load")
	searchNotesCmd.Flags().StringVar(&searchSort, "sort", "", "general, time_descending or popularity_descending")
	searchNotesCmd.Flags().StringVar(&searchType, "type", "", "all, video or normal")
	searchUsersCmd.Flags().IntVar(&searchUserPage, "page", 1, "result page")
}

func runSearchNotes(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := newClient(cfg)

	params := xhs.SearchParams{
		Keyword:  strings.Join(args, " "),
		Sort:     xhs.SortOrder(searchSort),
		NoteType: xhs.SearchNoteType(searchType),
	}
	p := pager.New(client.SearchPages(params), logger.GetLogger())
	notes, err := collectPages(context.Background(), p, searchPages)
	for i := range notes {
		printNoteLine(i+1, &notes[i])
	}
	if err != nil {
		exitWith("Search failed", err)
	}
	if len(notes) == 0 {
		ui.Println(ui.Dim("no results"))
	}
}

func runSearchUsers(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := newClient(cfg)

	result, err := client.SearchUsers(context.Background(), strings.Join(args, " "), searchUserPage)
	if err != nil {
		exitWith("Search failed", err)
	}
	for _, u := range result.Items {
		ui.Printf("%s %s %s\n", ui.Cyan(u.Nickname), ui.Dim(u.UserID), ui.Yellow(orDash(u.FansCount)+" fans"))
	}
	if len(result.Items) == 0 {
		ui.Println(ui.Dim("no results"))
	}
}

func runSearchTrending(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	terms, err := newClient(cfg).Trending(context.Background())
	if err != nil {
		exitWith("Failed to load trending terms", err)
	}
	printTerms(terms)
}

func runSearchSuggest(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	terms, err := newClient(cfg).SearchRecommend(context.Background(), strings.Join(args, " "))
	if err != nil {
		exitWith("Failed to load suggestions", err)
	}
	printTerms(terms)
}

func printTerms(terms []string) {
	for i, t := range terms {
		ui.Printf("%3d. %s\n", i+1, t)
	}
	if len(terms) == 0 {
		ui.Println(ui.Dim("nothing found"))
	}
}
