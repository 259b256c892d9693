package cmd

import (
	"io"

	"github.com/jimezsa/leadcli/internal/config"
	"github.com/jimezsa/leadcli/internal/ui"
	"github.com/rs/zerolog"
)

// Context is handed to every command's Run. Config already has the
// LEADCLI_* environment and config.json applied; flags are layered on top by
// each command.
type Context struct {
	Config    config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Verbose   int

	UI         *ui.UI
	Out        io.Writer
	Err        io.Writer
	JSONOutput bool
	PlainText  bool

	Version string
}
