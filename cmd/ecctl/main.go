// Copyright 2026 The go-ecuart Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/surfacectl/go-ecuart"
	"github.com/surfacectl/go-ecuart/internal/config"
	"github.com/surfacectl/go-ecuart/logger"
	"github.com/surfacectl/go-ecuart/monitor"
	"github.com/surfacectl/go-ecuart/store"
	"github.com/surfacectl/go-ecuart/transport/uart"
)

const (
	exitOK            = 0
	exitFailure       = 1
	exitCommunication = 2
)

// autoDevice selects the EC port by discovery.
const autoDevice = "auto"

var errUsage = errors.New("usage")

// prettyCommands are composite commands built on top of the catalog.
var prettyCommands = map[string]uint8{
	"bat1.pretty": 1,
	"bat2.pretty": 2,
}

type options struct {
	cfg      config.Config
	command  string
	sequence *uint8
	counter  *uint16
	discover uart.DiscoverOptions
	watch    time.Duration
	list     bool
	ports    bool
	quiet    bool
}

// Package-level flag variables
var (
	flagConfig   string
	flagDevice   string
	flagBaud     string
	flagSequence string
	flagCounter  string
	flagCounters string
	flagStats    string
	flagQuiet    bool
	flagDebug    bool
	flagNoStore  bool
	flagList     bool
	flagPorts    bool
	flagWatch    time.Duration
)

func init() {
	flag.StringVar(&flagConfig, "config", config.DefaultPath(), "TOML configuration file")
	flag.StringVar(&flagDevice, "device", "", "UART device, or \"auto\" to detect it (default "+uart.DefaultDevice+")")
	flag.StringVar(&flagBaud, "baud", "", "baud rate")
	flag.StringVar(&flagSequence, "seq", "", "override the stored sequence number")
	flag.StringVar(&flagCounter, "cnt", "", "override the stored request counter")
	flag.StringVar(&flagCounters, "counters", "", "counters file")
	flag.StringVar(&flagStats, "stats", "", "write the result as JSON to this file")
	flag.BoolVar(&flagQuiet, "quiet", false, "only print results")
	flag.BoolVar(&flagDebug, "debug", false, "enable debug output")
	flag.BoolVar(&flagNoStore, "no-store", false, "do not persist counters")
	flag.BoolVar(&flagList, "list", false, "list the available commands")
	flag.BoolVar(&flagPorts, "ports", false, "list candidate serial ports and exit")
	flag.DurationVar(&flagWatch, "watch", 0, "repeat the command at this interval until interrupted")

	flag.Usage = func() {
		out := flag.CommandLine.Output()
		_, _ = fmt.Fprintf(out, "Usage: %s [flags] COMMAND\n\nFlags:\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(out, "\nCommands:\n")
		printCommands(out)
	}
}

// parseUint accepts decimal, 0x hex and 0o octal numbers.
func parseUint(name, value string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(value), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: -%s %q: %w", errUsage, name, value, err)
	}
	return v, nil
}

func parseConfig(args []string) (*options, error) {
	cfg, err := config.LoadOptional(flagConfig)
	if err != nil {
		return nil, err
	}

	opts := &options{quiet: flagQuiet, list: flagList, ports: flagPorts, watch: flagWatch}
	if opts.watch < 0 {
		return nil, fmt.Errorf("%w: -watch must not be negative", errUsage)
	}

	if flagDevice != "" {
		cfg.Device = flagDevice
	}
	if flagBaud != "" {
		baud, err := parseUint("baud", flagBaud, 32)
		if err != nil {
			return nil, err
		}
		cfg.Baud = int(baud)
	}
	if flagSequence != "" {
		seq, err := parseUint("seq", flagSequence, 8)
		if err != nil {
			return nil, err
		}
		s := uint8(seq)
		opts.sequence = &s
	}
	if flagCounter != "" {
		cnt, err := parseUint("cnt", flagCounter, 16)
		if err != nil {
			return nil, err
		}
		c := uint16(cnt)
		opts.counter = &c
	}
	if flagCounters != "" {
		cfg.CountersPath = flagCounters
	}
	if flagStats != "" {
		cfg.StatsPath = flagStats
	}
	if flagNoStore {
		cfg.Persist = false
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	} else if flagQuiet {
		cfg.LogLevel = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts.cfg = cfg

	if opts.list || opts.ports {
		return opts, nil
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one command", errUsage)
	}
	opts.command = args[0]
	if _, ok := prettyCommands[opts.command]; !ok {
		if _, err := ecuart.Lookup(opts.command); err != nil {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}
	}
	return opts, nil
}

func setupLogger(cfg config.Config) logger.Logger {
	level, _ := logger.ParseLevel(cfg.LogLevel)
	format := logger.FormatConsole
	if cfg.LogFormat == "json" {
		format = logger.FormatJSON
	}
	l := logger.NewSlog(os.Stderr, level, format, false)
	logger.SetLogger(l)
	return l
}

func printCommands(w io.Writer) {
	for _, cmd := range ecuart.Commands() {
		_, _ = fmt.Fprintf(w, "  %-12s %s\n", cmd.Name, cmd.Description)
	}
	for _, name := range []string{"bat1.pretty", "bat2.pretty"} {
		_, _ = fmt.Fprintf(w, "  %-12s battery %d summary\n", name, prettyCommands[name])
	}
}

// linkCloser is a Link owning its device.
type linkCloser interface {
	ecuart.Link
	Close() error
}

type linkOpener func(cfg config.Config, log logger.Logger) (linkCloser, error)

func openUART(cfg config.Config, log logger.Logger) (linkCloser, error) {
	t, err := uart.New(cfg.Device,
		uart.WithBaudRate(cfg.Baud),
		uart.WithReadTimeout(cfg.ReadTimeout),
		uart.WithReadBudget(cfg.ReadBudget),
		uart.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// resolveDevice replaces the auto device with the detected EC port.
func resolveDevice(ctx context.Context, opts *options, log logger.Logger) error {
	if opts.cfg.Device != autoDevice {
		return nil
	}
	path, err := uart.Detect(ctx, opts.discover)
	if err != nil {
		return fmt.Errorf("detect device: %w", err)
	}
	log.Debug("detected EC port", "device", path)
	opts.cfg.Device = path
	return nil
}

func listPorts(ctx context.Context, opts uart.DiscoverOptions, w io.Writer) error {
	ports, err := uart.Discover(ctx, opts)
	if err != nil {
		return err
	}
	for _, p := range ports {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.Path, p.Confidence, strings.Join(p.HardwareIDs, ","))
	}
	return nil
}

func execute(ctx context.Context, client *ecuart.Client, command string) (ecuart.Result, error) {
	if battery, ok := prettyCommands[command]; ok {
		summary, err := client.Battery(ctx, battery)
		if err != nil {
			return ecuart.Result{}, fmt.Errorf("%s: %w", command, err)
		}
		return summary.Result(), nil
	}
	cmd, err := ecuart.Lookup(command)
	if err != nil {
		return ecuart.Result{}, err
	}
	return client.Execute(ctx, cmd)
}

func writeStats(path string, res ecuart.Result) error {
	data, err := json.MarshalIndent(res.Map(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write stats %s: %w", path, err)
	}
	return nil
}

func printResult(w io.Writer, res ecuart.Result) {
	for _, line := range res.Lines() {
		_, _ = fmt.Fprintln(w, line)
	}
}

func run(ctx context.Context, opts *options, open linkOpener, stdout io.Writer) error {
	log := setupLogger(opts.cfg)
	if err := resolveDevice(ctx, opts, log); err != nil {
		return err
	}
	cfg := opts.cfg

	counters := store.NewFile(cfg.CountersPath)
	unlock, err := counters.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			log.Warn("failed to release counters lock", "error", err)
		}
	}()

	link, err := newReopeningLink(cfg, open, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := link.Close(); err != nil {
			log.Warn("failed to close device", "device", cfg.Device, "error", err)
		}
	}()

	engine := ecuart.NewEngine(link,
		ecuart.WithLogger(log),
		ecuart.WithExchangeTimeout(cfg.ExchangeTimeout),
	)
	clientOpts := []ecuart.ClientOption{
		ecuart.WithPersist(cfg.Persist),
		ecuart.WithClientLogger(log),
		ecuart.WithRetryConfig(cfg.RetryConfig()),
	}
	if opts.sequence != nil {
		clientOpts = append(clientOpts, ecuart.WithSequence(*opts.sequence))
	}
	if opts.counter != nil {
		clientOpts = append(clientOpts, ecuart.WithCounter(*opts.counter))
	}
	client := ecuart.NewClient(engine, counters, clientOpts...)

	if opts.watch > 0 {
		return watch(ctx, opts, client, link, stdout, log)
	}

	res, err := execute(ctx, client, opts.command)
	if err != nil {
		return err
	}

	if !opts.quiet {
		state, _ := client.Counters()
		log.Info("command complete", "command", opts.command, "device", cfg.Device, "counters", state.String())
	}
	printResult(stdout, res)

	if cfg.StatsPath != "" {
		return writeStats(cfg.StatsPath, res)
	}
	return nil
}

// watch repeats the command until ctx is canceled. The device is reopened
// after repeated failures or a host wake.
func watch(ctx context.Context, opts *options, client *ecuart.Client, link *reopeningLink, stdout io.Writer, log logger.Logger) error {
	cfg := monitor.DefaultConfig()
	cfg.PollInterval = opts.watch

	var statsErr error
	m := monitor.New(
		func(ctx context.Context) (ecuart.Result, error) {
			return execute(ctx, client, opts.command)
		},
		cfg,
		monitor.WithLogger(log),
		monitor.WithRecoverer(monitor.NewReopenRecoverer(link.Reopen, 0, 0)),
		monitor.WithUpdateHandler(func(s monitor.Snapshot) {
			if s.LastError != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", s.LastError)
				return
			}
			printResult(stdout, s.Result)
			_, _ = fmt.Fprintln(stdout)
			if opts.cfg.StatsPath != "" {
				if err := writeStats(opts.cfg.StatsPath, s.Result); err != nil {
					log.Warn("failed to write stats", "error", err)
					statsErr = err
				}
			}
		}),
	)

	err := m.Run(ctx)
	metrics := m.Metrics()
	log.Info("watch stopped", "polls", metrics.Polls, "failures", metrics.Failures, "recoveries", metrics.Recoveries)
	if errors.Is(err, context.Canceled) {
		return statsErr
	}
	return err
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case ecuart.IsIntegrity(err):
		return exitFailure
	case errors.Is(err, ecuart.ErrCommunicationFailure),
		errors.Is(err, ecuart.ErrTransportTimeout),
		errors.Is(err, ecuart.ErrTransportRead),
		errors.Is(err, ecuart.ErrTransportWrite),
		errors.Is(err, ecuart.ErrTransportClosed),
		errors.Is(err, context.DeadlineExceeded):
		return exitCommunication
	default:
		var te *ecuart.TransportError
		if errors.As(err, &te) {
			return exitCommunication
		}
		return exitFailure
	}
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	opts, err := parseConfig(flag.Args())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		return exitFailure
	}
	if opts.list {
		printCommands(os.Stdout)
		return exitOK
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.ports {
		if err := listPorts(ctx, opts.discover, os.Stdout); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	if err := run(ctx, opts, openUART, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}
