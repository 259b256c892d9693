package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/jimezsa/leadcli/internal/cmd"
	"github.com/jimezsa/leadcli/internal/config"
	"github.com/jimezsa/leadcli/internal/ui"
	"github.com/rs/zerolog"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	dotEnvErr := config.LoadDotEnv("")

	cli := cmd.NewCLI()
	versionString := buildVersion()
	parser, err := kong.New(cli,
		kong.Name("leadcli"),
		kong.Description("Business directory lead crawler."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{
			"version":      versionString,
			"proxy_target": cmd.ProxyTarget,
		},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		ui.New(os.Stdout, os.Stderr, ui.NormalizeColorMode(os.Getenv("LEADCLI_COLOR")), false).Errorf("%v", err)
		return 1
	}
	applyEnvDefaults(cli)

	colorMode := ui.NormalizeColorMode(cli.Color)
	userInterface := ui.New(os.Stdout, os.Stderr, colorMode, cli.JSON || cli.Plain)

	zerolog.SetGlobalLevel(cmd.LogLevel(cli.Verbose))
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if dotEnvErr != nil {
		logger.Warn().Err(dotEnvErr).Msg("ignoring .env file")
	}

	runCtx, err := newContext(cli, logger, userInterface, versionString)
	if err != nil {
		userInterface.Errorf("%v", err)
		return 1
	}

	if err := kctx.Run(runCtx); err != nil {
		userInterface.Errorf("%v", err)
		return 1
	}
	return 0
}

func newContext(cli *cmd.CLI, logger zerolog.Logger, userInterface *ui.UI, versionString string) (*cmd.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	configDir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return &cmd.Context{
		Out:        os.Stdout,
		Err:        os.Stderr,
		UI:         userInterface,
		Config:     cfg,
		ConfigDir:  configDir,
		Logger:     logger,
		Verbose:    cli.Verbose,
		JSONOutput: cli.JSON,
		PlainText:  cli.Plain,
		Version:    versionString,
	}, nil
}

func buildVersion() string {
	switch {
	case commit == "" && date == "":
		return version
	case commit == "":
		return fmt.Sprintf("%s (%s)", version, date)
	case date == "":
		return fmt.Sprintf("%s (%s)", version, commit)
	default:
		return fmt.Sprintf("%s (%s, %s)", version, commit, date)
	}
}

// applyEnvDefaults fills global flags left at their zero value from LEADCLI_*.
func applyEnvDefaults(cli *cmd.CLI) {
	if envBool("LEADCLI_JSON") {
		cli.JSON = true
	}
	if value := strings.TrimSpace(os.Getenv("LEADCLI_VERBOSE")); value != "" && cli.Verbose == 0 {
		if n, err := strconv.Atoi(value); err == nil {
			cli.Verbose = n
		} else if envBool("LEADCLI_VERBOSE") {
			cli.Verbose = 3
		}
	}
	if value := os.Getenv("LEADCLI_COLOR"); value != "" && cli.Color == string(ui.ColorAuto) {
		cli.Color = value
	}
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
