package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/mapdrive/pkg/mapper"
	"git.srvlab.io/whiskey/mapdrive/pkg/observability"
	"git.srvlab.io/whiskey/mapdrive/pkg/probe"
	"git.srvlab.io/whiskey/mapdrive/pkg/utils"
	"git.srvlab.io/whiskey/mapdrive/pkg/wnet"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const helpText = `mapdrive maps a network share to a drive letter, retrying until the share
becomes available or the timeout is reached. Use it from a Startup shortcut
or a logon script to make drive mappings reliable at boot.

Usage:
  mapdrive [flags] <driveLetter> <sharePath> [timeoutSeconds] [username password]
  mapdrive [flags] -list
  mapdrive [flags] -disconnect <driveLetter>
  mapdrive [flags] -restore <driveLetter>

Flags must come before the drive letter. Anything after it is read as a
positional argument, so "mapdrive s: \\server\share 20 -v=4" is rejected.

Example:
  mapdrive s: \\server\share 20
  Keeps attempting to map S: to \\server\share for up to 20 seconds.

Exit status:
  0  drive mapped or already online
  1  mapping failed (timeout reached, aborted or interrupted)
  2  usage error
  With -legacy-exit the status is always 0.

Flags:
`

// app holds the process-level dependencies so tests can swap them.
type app struct {
	client wnet.Client
	stdout io.Writer
	stderr io.Writer

	// dial and timer are nil outside tests
	dial  probe.DialFunc
	timer backoff.Timer
}

// options are the parsed command line settings
type options struct {
	list           bool
	disconnect     string
	restore        string
	probeTimeout   time.Duration
	fatalThreshold int
	legacyExit     bool
	metricsFile    string
	args           []string
}

func main() {
	a := &app{
		client: wnet.NewClient(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	code := a.run(os.Args[1:])
	klog.Flush()
	os.Exit(code)
}

func (a *app) newFlagSet(opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("mapdrive", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	klog.InitFlags(fs)

	// Modes
	fs.BoolVar(&opts.list, "list", false, "List network drives with their mapped and online state")
	fs.StringVar(&opts.disconnect, "disconnect", "", "Disconnect the given drive and forget it")
	fs.StringVar(&opts.restore, "restore", "", "Reconnect a remembered mapping for the given drive")

	// Mapping behavior
	fs.DurationVar(&opts.probeTimeout, "probe-timeout", probe.DefaultTimeout, "Budget for the SMB reachability check")
	fs.IntVar(&opts.fatalThreshold, "fatal-threshold", 0, "Stop after this many consecutive fatal failures such as access denied (0 = never)")
	fs.BoolVar(&opts.legacyExit, "legacy-exit", false, "Always exit 0, for scripts written against older releases")

	// Observability
	fs.StringVar(&opts.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file for the textfile collector")

	fs.Usage = func() {
		fmt.Fprint(a.stderr, helpText)
		fs.PrintDefaults()
	}
	return fs
}

// run executes one invocation and returns the process exit code.
func (a *app) run(args []string) int {
	opts := &options{}
	fs := a.newFlagSet(opts)
	if err := fs.Parse(args); err != nil {
		// flag already printed the error and usage. Flags parsed before the
		// bad one are set, so -legacy-exit still applies.
		if opts.legacyExit {
			return exitOK
		}
		return exitUsage
	}
	opts.args = fs.Args()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Per-run correlation ID on every log line
	runID := uuid.New().String()
	ctx = klog.NewContext(ctx, klog.LoggerWithValues(klog.Background(), "run", runID))

	code := a.dispatch(ctx, opts, fs)
	if opts.legacyExit {
		return exitOK
	}
	return code
}

func (a *app) dispatch(ctx context.Context, opts *options, fs *flag.FlagSet) int {
	modes := 0
	for _, set := range []bool{opts.list, opts.disconnect != "", opts.restore != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return a.usage(fs, errors.New("-list, -disconnect and -restore are mutually exclusive"))
	}
	if modes == 1 && len(opts.args) > 0 {
		return a.usage(fs, fmt.Errorf("unexpected arguments: %v", opts.args))
	}
	if opts.fatalThreshold < 0 {
		return a.usage(fs, errors.New("-fatal-threshold must not be negative"))
	}

	metrics := observability.NewMetrics()
	prober, err := probe.NewProber(probe.Config{
		Client:  a.client,
		Dial:    a.dial,
		Metrics: metrics,
	})
	if err != nil {
		return a.fail(utils.NewInternalError(err, "failed to create prober"))
	}

	m, err := mapper.NewMapper(mapper.Config{
		Client:         a.client,
		Prober:         prober,
		ProbeTimeout:   opts.probeTimeout,
		FatalThreshold: opts.fatalThreshold,
		Metrics:        metrics,
		Timer:          a.timer,
	})
	if err != nil {
		return a.fail(utils.NewInternalError(err, "failed to create mapper"))
	}

	var code int
	switch {
	case opts.list:
		code = a.list(ctx, prober, opts.probeTimeout)
	case opts.disconnect != "":
		code = a.simple(fs, m.Disconnect(ctx, opts.disconnect, true))
	case opts.restore != "":
		code = a.simple(fs, m.Restore(ctx, opts.restore))
	default:
		code = a.mapDrive(ctx, m, fs, opts.args)
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			utils.LogErrorDetails(utils.NewInternalError(err, "failed to write metrics").
				WithContext("path", opts.metricsFile))
		} else {
			klog.V(4).Infof("Wrote metrics to %s", opts.metricsFile)
		}
	}
	return code
}

func (a *app) mapDrive(ctx context.Context, m *mapper.Mapper, fs *flag.FlagSet, args []string) int {
	req, err := parseRequest(args)
	if err != nil {
		return a.usage(fs, err)
	}

	result, err := m.Map(ctx, req)
	if err != nil {
		return a.usage(fs, err)
	}
	if !result.Outcome.Success() {
		return exitFailure
	}
	return exitOK
}

// simple maps a one-shot operation's error to an exit code by its
// classification: validation errors are usage errors, anything else failed.
func (a *app) simple(fs *flag.FlagSet, err error) int {
	switch {
	case err == nil:
		return exitOK
	case utils.IsValidationError(err):
		return a.usage(fs, err)
	default:
		return a.fail(err)
	}
}

// fail logs err with its internal context and returns the failure code.
// Unclassified errors are reported as internal.
func (a *app) fail(err error) int {
	if !utils.IsInternalError(err) {
		err = utils.NewInternalError(err, "operation failed")
	}
	utils.LogErrorDetails(err)
	return exitFailure
}

func (a *app) usage(fs *flag.FlagSet, err error) int {
	if utils.IsValidationError(err) {
		utils.LogErrorDetails(err)
	}
	fmt.Fprintf(a.stderr, "mapdrive: %v\n\n", err)
	fs.Usage()
	return exitUsage
}

// parseRequest turns positional arguments into a mapping request.
// Accepted forms: drive share, drive share timeout, drive share timeout user pass.
func parseRequest(args []string) (mapper.Request, error) {
	if err := utils.ValidateArgCount(len(args)); err != nil {
		return mapper.Request{}, err
	}

	req := mapper.Request{
		Drive: args[0],
		Share: args[1],
	}
	if len(args) >= 3 {
		timeout, err := utils.ParseTimeout(args[2])
		if err != nil {
			return mapper.Request{}, err
		}
		req.Timeout = timeout
	}
	if len(args) == 5 {
		req.Credentials = &mapper.Credentials{Username: args[3], Password: args[4]}
	}

	return req.Validate()
}
