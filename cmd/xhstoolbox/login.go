package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/login"
	"xhstoolbox/pkg/ui"
	"xhstoolbox/pkg/xhs"
)

var loginNotify bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in by scanning a QR code",
	Long: `Log in by scanning a QR code with the Xiaohongshu mobile app.

The QR code link is printed and its status polled until the login is
confirmed or the code expires. An expired code can be refreshed when
running in a terminal. The confirmed user is stored in the session store.`,
	Args: cobra.NoArgs,
	Run:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the logged-in user",
	Args:  cobra.NoArgs,
	Run:   runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Long: `Show the user stored in the local session and, when the backend is
reachable, the profile it reports for the current credentials.`,
	Args: cobra.NoArgs,
	Run:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	loginCmd.Flags().BoolVar(&loginNotify, "notify", false, "send a desktop notification when the login finishes")
}

func runLogin(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	client := newClient(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := openSession(ctx, cfg)
	notifier := ui.NewNotifier(loginNotify)

	ui.PrintLogo()
	flow := login.NewFlow(client, login.Options{
		PollInterval: cfg.Login.PollInterval,
		OnStatus: func(s login.Status) {
			switch s {
			case login.StatusScanned:
				ui.PrintHighlight(s.Describe())
			case login.StatusExpired:
				ui.PrintWarning(s.Describe())
			case login.StatusLoading:
			default:
				ui.Println(ui.Dim(s.Describe()))
			}
		},
		OnNotice: func(msg string) {
			ui.PrintWarning("Backend", msg)
		},
		Logger: logger.GetLogger(),
	})
	defer flow.Stop()

	user, err := waitForLogin(ctx, flow)
	if err != nil {
		failLogin(flow, notifier, err)
		return
	}

	if err := sess.Login(ctx, user); err != nil {
		exitWith("Failed to save session", err)
	}
	notifier.SendSuccess("Logged in", fmt.Sprintf("%s (%s)", user.Nickname, user.UserID))
}

// failLogin stops polling before the process exits, since deferred calls
// do not run on exit.
func failLogin(flow interface{ Stop() }, notifier *ui.Notifier, err error) {
	flow.Stop()
	notifier.SendError("Login failed", err.Error())
	exit(1)
}

// waitForLogin runs attempts until one is confirmed. Expired codes are
// refreshed on request when stdin is a terminal.
func waitForLogin(ctx context.Context, flow *login.Flow) (*xhs.UserInfo, error) {
	reader := bufio.NewReader(os.Stdin)
	for {
		if err := flow.Start(ctx); err != nil && !stderrors.Is(err, login.ErrStopped) {
			if !askRefresh(reader, err) {
				return nil, err
			}
			continue
		}
		if qr := flow.QRCode(); qr != nil {
			ui.Println()
			ui.PrintInfo("Scan this QR code with the Xiaohongshu app", qr.QRURL)
			ui.Println()
		}

		user, err := flow.Wait(ctx)
		if err == nil {
			return user, nil
		}
		if !stderrors.Is(err, login.ErrExpired) || !askRefresh(reader, err) {
			return nil, err
		}
	}
}

func askRefresh(reader *bufio.Reader, cause error) bool {
	if !ui.IsInteractive() {
		return false
	}
	fmt.Fprintf(os.Stdout, "%s Get a new QR code? [Y/n]: ", ui.Yellow(cause.Error()+"."))
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "" || answer == "y" || answer == "yes"
}

func runLogout(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	ctx := context.Background()
	sess := openSession(ctx, cfg)

	if !sess.LoggedIn() {
		ui.PrintInfo("Session", "not logged in")
		return
	}
	if err := sess.Logout(ctx); err != nil {
		exitWith("Failed to log out", err)
	}
	ui.PrintSuccess("Logged out")
}

func runWhoami(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	ctx := context.Background()
	sess := openSession(ctx, cfg)

	if user := sess.User(); user != nil {
		ui.PrintInfo("Local session", fmt.Sprintf("%s (%s)", user.Nickname, user.UserID))
	} else {
		ui.PrintInfo("Local session", "not logged in")
	}

	remote, err := newClient(cfg).CurrentUser(ctx)
	if err != nil {
		ui.PrintWarning("Backend user unavailable", err)
		return
	}
	printUser(remote)
}

func printUser(u *xhs.UserInfo) {
	ui.PrintInfo("User", fmt.Sprintf("%s (%s)", u.Nickname, u.UserID))
	if u.Desc != "" {
		ui.PrintInfo("Bio", u.Desc)
	}
	if u.FansCount != "" || u.FollowsCount != "" || u.NotesCount != "" {
		ui.PrintInfo("Stats", fmt.Sprintf("%s fans, %s follows, %s notes", orDash(u.FansCount), orDash(u.FollowsCount), orDash(u.NotesCount)))
	}
}

func orDash(c xhs.Count) string {
	if c == "" {
		return "-"
	}
	return string(c)
}
