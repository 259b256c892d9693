package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jimezsa/leadcli/internal/scraper"
)

type VersionCmd struct{}

type versionInfo struct {
	Version string   `json:"version"`
	Sites   []string `json:"sites"`
}

func (v *VersionCmd) Run(ctx *Context) error {
	info := versionInfo{Version: ctx.Version, Sites: scraper.Sites()}
	if ctx.JSONOutput {
		return json.NewEncoder(ctx.Out).Encode(info)
	}
	_, err := fmt.Fprintf(ctx.Out, "leadcli %s (sites: %s)\n", info.Version, strings.Join(info.Sites, ", "))
	return err
}
