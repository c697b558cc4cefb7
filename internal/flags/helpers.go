package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/holdpool/log"
)

// Version is the semantic version of the tools in this repository.
const Version = "0.1.0-unstable"

// VersionWithCommit appends the short commit hash and date to Version.
func VersionWithCommit(gitCommit, gitDate string) string {
	vsn := Version
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	if gitCommit != "" && gitDate != "" {
		vsn += "-" + gitDate
	}
	return vsn
}

// VerbosityFlag selects the log level of the terminal handler.
var VerbosityFlag = &cli.StringFlag{
	Name:     "verbosity",
	Usage:    "Logging verbosity: crit, error, warn, info, debug, trace",
	Value:    "info",
	Category: LoggingCategory,
}

// LogOriginsFlag prefixes terminal log lines with their call site.
var LogOriginsFlag = &cli.BoolFlag{
	Name:     "log.origins",
	Usage:    "Print the file:line of each log call",
	Category: LoggingCategory,
}

// NewApp creates an app with sane defaults.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = VersionWithCommit(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2024-2026 The gtos Authors"
	app.Flags = append(app.Flags, VerbosityFlag, LogOriginsFlag)
	app.Before = SetupLogging
	return app
}

// SetupLogging installs a terminal log handler at the requested verbosity on
// the root logger.
func SetupLogging(ctx *cli.Context) error {
	lvl, err := log.LvlFromString(strings.ToLower(ctx.String(VerbosityFlag.Name)))
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", VerbosityFlag.Name, err)
	}
	log.PrintOrigins(ctx.Bool(LogOriginsFlag.Name))
	log.Root().SetHandler(log.TerminalHandler(lvl))
	return nil
}
