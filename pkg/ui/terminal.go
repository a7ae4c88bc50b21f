package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Logo is printed at the top of interactive commands
const Logo = `
   ╔════════════════════════════════════════════╗
   ║  x h s t o o l b o x                       ║
   ║  browse · search · download · QR login     ║
   ╚════════════════════════════════════════════╝
`

var (
	mu      sync.RWMutex
	out     io.Writer = os.Stdout
	colorOn           = term.IsTerminal(int(os.Stdout.Fd()))
	quietOn bool
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(format string) func(string) string {
	return func(text string) string {
		mu.RLock()
		enabled := colorOn
		mu.RUnlock()
		if !enabled {
			return text
		}
		return fmt.Sprintf(format, text)
	}
}

// SetOutput redirects all printing. nil restores stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// SetColor turns ANSI colors on or off
func SetColor(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	colorOn = enabled
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(quiet bool) {
	mu.Lock()
	defer mu.Unlock()
	quietOn = quiet
}

// IsInteractive reports whether stdin and stdout are terminals
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func writer(always bool) io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	if quietOn && !always {
		return io.Discard
	}
	return out
}

// Printf writes formatted text unless quiet
func Printf(format string, args ...interface{}) {
	fmt.Fprintf(writer(false), format, args...)
}

// Println writes a line unless quiet
func Println(args ...interface{}) {
	fmt.Fprintln(writer(false), args...)
}

// PrintLogo prints the logo
func PrintLogo() {
	fmt.Fprint(writer(false), Cyan(Logo))
}

// PrintError prints an error message in red. Errors are shown in quiet mode.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(writer(true), Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(writer(true), Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(writer(false), Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(writer(false), "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(writer(false), Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(writer(false), Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(writer(false), Magenta(msg))
}
