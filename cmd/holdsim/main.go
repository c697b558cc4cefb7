// holdsim drives holding pools with a synthetic relay workload and reports how
// entries moved between states.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/holdpool/internal/flags"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = flags.NewApp(gitCommit, gitDate, "a holding pool workload simulator")
	app.Commands = []*cli.Command{
		runCommand,
		dumpConfigCommand,
		versionCommand,
	}
}

var versionCommand = &cli.Command{
	Action:    version,
	Name:      "version",
	Usage:     "Print version numbers",
	ArgsUsage: " ",
}

func version(ctx *cli.Context) error {
	fmt.Println("Holdsim")
	fmt.Println("Version:", flags.VersionWithCommit(gitCommit, gitDate))
	if gitCommit != "" {
		fmt.Println("Git Commit:", gitCommit)
	}
	if gitDate != "" {
		fmt.Println("Git Commit Date:", gitDate)
	}
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
