package cmd

import (
	"fmt"

	"github.com/jimezsa/leadcli/internal/seen"
)

type SeenCmd struct {
	Diff   SeenDiffCmd   `cmd:"" help:"Write leads missing from the history (A-B) to JSON."`
	Update SeenUpdateCmd `cmd:"" help:"Merge leads into the history JSON."`
}

type SeenDiffCmd struct {
	New   string `name:"new" required:"" help:"Path to fresh leads JSON file (A)."`
	Seen  string `name:"seen" required:"" help:"Path to lead history JSON file (B). Missing file is treated as empty."`
	Out   string `name:"out" required:"" help:"Output path for unseen leads JSON file (C)."`
	Stats bool   `name:"stats" help:"Print comparison stats."`
}

type SeenUpdateCmd struct {
	Seen  string `name:"seen" required:"" help:"Path to lead history JSON file (B). Missing file is treated as empty."`
	Input string `name:"input" required:"" help:"Path to leads JSON file to merge into the history."`
	Out   string `name:"out" required:"" help:"Output path for the updated history JSON."`
	Stats bool   `name:"stats" help:"Print merge stats."`
}

func (c *SeenDiffCmd) Run(ctx *Context) error {
	fresh, err := seen.ReadLeads(c.New)
	if err != nil {
		return fmt.Errorf("read --new: %w", err)
	}
	history, err := seen.ReadLeadsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	unseen, stats := seen.Diff(fresh, history)
	if err := seen.WriteLeads(c.Out, unseen); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}
	if !c.Stats {
		return nil
	}
	_, err = fmt.Fprintf(ctx.Out, "total_new=%d total_seen=%d invalid_skipped=%d unseen_emitted=%d\n",
		stats.TotalNew, stats.TotalSeen, stats.InvalidSkipped(), stats.Unseen)
	return err
}

func (c *SeenUpdateCmd) Run(ctx *Context) error {
	history, err := seen.ReadLeadsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}
	input, err := seen.ReadLeads(c.Input)
	if err != nil {
		return fmt.Errorf("read --input: %w", err)
	}

	merged, stats := seen.Merge(history, input)
	if err := seen.WriteLeads(c.Out, merged); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}
	if !c.Stats {
		return nil
	}
	_, err = fmt.Fprintf(ctx.Out, "total_seen=%d total_input=%d invalid_skipped=%d added=%d total_out=%d\n",
		stats.TotalSeen, stats.TotalInput, stats.InvalidSkipped(), stats.Added, stats.TotalOut)
	return err
}
