package cmd

import (
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose int    `short:"v" type:"counter" help:"Log verbosity: -v warn, -vv info, -vvv debug."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Version VersionCmd `cmd:"" help:"Print version."`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration."`
	Search  SearchCmd  `cmd:"" help:"Crawl directory listings into leads."`
	Seen    SeenCmd    `cmd:"" help:"Lead history utilities."`
	Proxies ProxiesCmd `cmd:"" help:"Proxy utilities."`
}

func NewCLI() *CLI {
	return &CLI{}
}

// LogLevel maps the -v count to a zerolog level. Errors are always shown.
func LogLevel(verbose int) zerolog.Level {
	switch {
	case verbose <= 0:
		return zerolog.ErrorLevel
	case verbose == 1:
		return zerolog.WarnLevel
	case verbose == 2:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
