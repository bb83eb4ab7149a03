// Command matlabcommander sends one command to the Matlab command server,
// starting the server first when it is not running.
//
// Modes:
//
//	matlabcommander --call-matlab-function <function> [args...]
//	matlabcommander --exit-matlab
//	matlabcommander [--cmd <statement>] [--hostname h] [--port p] [--exitmatlab] [--returnparameterfile f]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/PerkLab/SlicerMatlabBridge/internal/commander"
	"github.com/PerkLab/SlicerMatlabBridge/internal/observability"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
	"github.com/PerkLab/SlicerMatlabBridge/internal/results"
)

const (
	callFunctionArg = "--call-matlab-function"
	exitMatlabArg   = "--exit-matlab"
	returnParamArg  = "--returnparameterfile"
)

func main() {
	observability.InitLogger("matlabcommander")
	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	switch {
	case len(args) > 1 && args[0] == callFunctionArg:
		cfg, err := loadCLIConfig(os.Getenv(EnvConfigPath))
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
		defer flushMetrics(cfg)
		return callFunction(ctx, cfg, args[1], args[2:], stdout, stderr)
	case len(args) == 1 && args[0] == exitMatlabArg:
		cfg, err := loadCLIConfig(os.Getenv(EnvConfigPath))
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
		defer flushMetrics(cfg)
		return exitMatlab(ctx, cfg, session.Endpoint{}, stderr)
	default:
		return standardCLI(ctx, args, stdout, stderr)
	}
}

func callFunction(ctx context.Context, cfg cliConfig, function string, args []string, stdout, stderr io.Writer) int {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	call := commander.FunctionCall{
		WorkDir:             wd,
		Function:            function,
		Args:                args,
		ReturnParameterFile: findReturnParameterFile(args, stderr),
	}
	cmd, err := call.Command()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	log.Debug().Str("command", cmd).Msg("matlabcommander: composed function call")

	res := commander.NewExecutor(cfg.Commander).Execute(ctx, commander.Request{Command: cmd})
	if res.Err != nil {
		fmt.Fprintln(stderr, res.Reply)
		return 1
	}
	if !res.OK() {
		fmt.Fprintf(stderr, "Failed to execute Matlab function: %s, received the following error message:\n", function)
		fmt.Fprintln(stderr, res.Reply)
		return 1
	}
	fmt.Fprintln(stdout, res.Reply)
	return 0
}

// findReturnParameterFile returns the value following --returnparameterfile, if any.
func findReturnParameterFile(args []string, stderr io.Writer) string {
	for i, arg := range args {
		if arg != returnParamArg {
			continue
		}
		if i+1 >= len(args) {
			fmt.Fprintf(stderr, "ERROR: %s value is not defined\n", returnParamArg)
			return ""
		}
		return args[i+1]
	}
	return ""
}

func exitMatlab(ctx context.Context, cfg cliConfig, ep session.Endpoint, stderr io.Writer) int {
	if err := commander.NewExecutor(cfg.Commander).RequestExit(ctx, ep); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

type standardFlags struct {
	cmd            string
	hostname       string
	port           int
	exitMatlab     bool
	returnParams   string
	receiveTimeout time.Duration
	configPath     string
	resultFormat   string
}

func parseStandardFlags(args []string, stderr io.Writer) (*pflag.FlagSet, standardFlags, error) {
	var f standardFlags
	fs := pflag.NewFlagSet("matlabcommander", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.cmd, "cmd", "", "Matlab statement to execute")
	fs.StringVar(&f.hostname, "hostname", session.DefaultHost, "command server host")
	fs.IntVar(&f.port, "port", session.DefaultPort, "command server port")
	fs.BoolVar(&f.exitMatlab, "exitmatlab", false, "ask the server to exit after the command")
	fs.StringVar(&f.returnParams, "returnparameterfile", "", "file receiving reply and completed values")
	fs.DurationVar(&f.receiveTimeout, "receive-timeout", 0, "reply timeout (0 waits indefinitely)")
	fs.StringVar(&f.configPath, "config", os.Getenv(EnvConfigPath), "commander config file")
	fs.StringVar(&f.resultFormat, "result-format", "", "return parameter format: slicer|toml")
	err := fs.Parse(args)
	return fs, f, err
}

// standardCLI always exits 0 once the return parameters are written, so the
// host reads them instead of discarding the run.
func standardCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, f, err := parseStandardFlags(args, stderr)
	if err != nil {
		return 2
	}
	cfg, err := loadCLIConfig(f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	defer flushMetrics(cfg)

	ep := cfg.Commander.Endpoint
	if fs.Changed("hostname") {
		ep.Host = strings.TrimSpace(f.hostname)
	}
	if fs.Changed("port") {
		ep.Port = f.port
	}
	if fs.Changed("result-format") {
		format, err := results.ParseFormat(f.resultFormat)
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
		cfg.ResultFormat = format
	}

	exec := commander.NewExecutor(cfg.Commander)
	rec := results.New("", true)
	if f.cmd != "" {
		res := exec.Execute(ctx, commander.Request{
			Endpoint:       ep,
			Command:        f.cmd,
			ReceiveTimeout: f.receiveTimeout,
		})
		if res.Err == nil {
			fmt.Fprintln(stdout, res.Reply)
		} else {
			fmt.Fprintln(stderr, res.Reply)
		}
		rec = results.New(res.Reply, res.Err == nil)
	}
	if err := rec.WriteFile(f.returnParams, cfg.ResultFormat); err != nil {
		log.Error().Err(err).Msg("matlabcommander: write return parameters failed")
	}

	if f.exitMatlab {
		return exitMatlab(ctx, cfg, ep, stderr)
	}
	return 0
}

func flushMetrics(cfg cliConfig) {
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
		log.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("matlabcommander: metrics textfile write failed")
	}
}
