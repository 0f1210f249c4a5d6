// Package sim implements the sim command, which runs the driver against a
// simulated adapter.
package sim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/buildkite/shellwords"
	"github.com/spf13/pflag"

	"github.com/clktmr/mobile/drivers/mobile"
	"github.com/clktmr/mobile/drivers/mobile/simulator"
	"github.com/clktmr/mobile/tools/trace"
)

const usageString = `Run the driver against a simulated adapter.

Commands are read line by line from stdin or a script.  Type 'help' for a
list of commands.  Flags can also be set in mobilego.yaml or as MOBILEGO_*
environment variables, e.g. MOBILEGO_INCOMING_CALL_AFTER=2.

Usage: %s [flags]

`

func Main(args []string) {
	flags := pflag.NewFlagSet("sim", pflag.ExitOnError)
	addFlags(flags)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, usageString, "sim")
		flags.PrintDefaults()
	}
	flags.Parse(args[1:])
	if flags.NArg() != 0 {
		flags.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		log.Fatalln(err)
	}

	if err := simulate(cfg); err != nil {
		log.Fatalln(err)
	}
}

func simulate(cfg Config) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sim := simulator.New(cfg.Adapter)
	drv := mobile.New(mobile.Hardware{Serial: sim.Serial(), Timer: sim.Timer(), Interrupts: sim},
		mobile.WithLogger(logger), mobile.WithDevice(cfg.Adapter.Device))

	var traceErr error
	if cfg.Trace != "" {
		f, err := os.Create(cfg.Trace)
		if err != nil {
			return err
		}
		defer f.Close()
		w := bufio.NewWriter(f)
		defer w.Flush()
		tw := trace.NewWriter(w)
		sim.OnExchange = func(e simulator.Exchange) {
			if err := tw.Write(e); err != nil && traceErr == nil {
				traceErr = fmt.Errorf("trace: %w", err)
			}
		}
	}

	in, script := io.Reader(os.Stdin), cfg.Script != ""
	if script {
		f, err := os.Open(cfg.Script)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	if err := run(newSession(os.Stdout, sim, drv), in, script); err != nil {
		return err
	}
	return traceErr
}

// run executes the commands read from in.  Errors are fatal for scripts.
func run(s *session, in io.Reader, script bool) error {
	scanner := bufio.NewScanner(in)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		args, err := shellwords.SplitPosix(text)
		if err == nil {
			err = s.exec(args)
		}
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil && script:
			return fmt.Errorf("line %d: %w", line, err)
		case err != nil:
			log.Println(err)
		}
	}
	return scanner.Err()
}
