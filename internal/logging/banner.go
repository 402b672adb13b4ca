package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	cyan   = "\033[36m"
	dim    = "\033[2m"
	yellow = "\033[33m"
)

// PrintBanner prints a one-line startup banner identifying the command,
// version, and a trailing detail (project name, data dir, ...). Colors
// are used only when stderr is a TTY.
func PrintBanner(command, ver, detail string) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	if color {
		fmt.Fprintf(os.Stderr, "%s%smulti-agents%s %s%s%s  %sversion%s %s  %s%s%s\n",
			bold, cyan, reset, bold, command, reset, dim, reset, ver, yellow, detail, reset)
	} else {
		fmt.Fprintf(os.Stderr, "multi-agents %s  version %s  %s\n", command, ver, detail)
	}
}
