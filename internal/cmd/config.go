package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jimezsa/leadcli/internal/config"
)

type ConfigCmd struct {
	Init InitConfigCmd `cmd:"" help:"Write default config.json and proxies.txt."`
	Path PathConfigCmd `cmd:"" help:"Print config directory."`
	Show ShowConfigCmd `cmd:"" help:"Print the crawl defaults in effect (env and config.json)."`
}

type InitConfigCmd struct{}

type PathConfigCmd struct{}

type ShowConfigCmd struct{}

func (c *InitConfigCmd) Run(ctx *Context) error {
	created, err := config.Init()
	if err != nil {
		return err
	}
	if len(created) == 0 {
		ctx.UI.Infof("Nothing to do, %s already has %s and %s", ctx.ConfigDir, config.ConfigFileName, config.ProxiesFileName)
		return nil
	}
	ctx.UI.Successf("Created: %s", strings.Join(created, ", "))
	return nil
}

func (c *PathConfigCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintln(ctx.Out, ctx.ConfigDir)
	return err
}

func (c *ShowConfigCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	cfg.PostgresDSN = redactDSN(cfg.PostgresDSN)
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"default_location", cfg.DefaultLocation},
		{"base_url", cfg.BaseURL},
		{"timeout_seconds", fmt.Sprint(cfg.TimeoutSeconds)},
		{"dispatch_delay_ms", fmt.Sprint(cfg.DispatchDelayMS)},
		{"workers", fmt.Sprint(cfg.Workers)},
		{"email_concurrency", fmt.Sprint(cfg.EmailConcurrency)},
		{"verify_mx", fmt.Sprint(cfg.VerifyMX)},
		{"postgres_dsn", cfg.PostgresDSN},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

// redactDSN keeps credentials out of config show.
func redactDSN(dsn string) string {
	if strings.TrimSpace(dsn) == "" {
		return ""
	}
	return "(set)"
}
