package ui

import (
	"fmt"

	"igfollowers/pkg/collector"
)

// ASCIILogo is printed at the start of an interactive run
const ASCIILogo = `
    ╔════════════════════════════════════════════════════╗
    ║  ██╗ ██████╗     ███████╗ ██████╗ ██╗     ██╗      ║
    ║  ██║██╔════╝     ██╔════╝██╔═══██╗██║     ██║      ║
    ║  ██║██║  ███╗    █████╗  ██║   ██║██║     ██║      ║
    ║  ██║██║   ██║    ██╔══╝  ██║   ██║██║     ██║      ║
    ║  ██║╚██████╔╝    ██║     ╚██████╔╝███████╗███████╗ ║
    ║  ╚═╝ ╚═════╝     ╚═╝      ╚═════╝ ╚══════╝╚══════╝ ║
    ║          FOLLOWER COLLECTION UTILITY               ║
    ╚════════════════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// StateColor picks the color a terminal state is printed in
func StateColor(s collector.State) func(string) string {
	switch s {
	case collector.StateDone:
		return Green
	case collector.StateLimitReached, collector.StateIdleTimeout:
		return Yellow
	case collector.StateAborted:
		return Red
	default:
		return Cyan
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}
