// Package run implements the run command, which executes a test ROM in an
// emulator and reports its result.
package run

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/aymanbagabas/go-pty"
	"github.com/buildkite/shellwords"
	"github.com/spf13/pflag"
)

const usageString = `Run a ROM in an emulator and forward its output.

The emulator runs in a pseudo terminal, so its output isn't buffered.  The
command exits when the ROM prints PASS or FAIL, or panics.

Usage: %s [flags] <rom>

`

var (
	flags = pflag.NewFlagSet("run", pflag.ExitOnError)

	emulator = flags.StringP("emulator", "e", "mgba -l 255", "emulator command, the ROM is appended")
	timeout  = flags.Duration("timeout", 0, "kill the emulator after this duration")
)

func usage() {
	fmt.Fprintf(os.Stderr, usageString, "run")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])
	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}

	cmdline, err := shellwords.SplitPosix(*emulator)
	if err != nil || len(cmdline) == 0 {
		log.Fatalln("emulator:", err)
	}
	cmdline = append(cmdline, flags.Arg(0))
	os.Exit(runROM(cmdline, *timeout))
}

// verdict classifies a line of output.  It returns done if the ROM finished
// and code is the exit code to report.
func verdict(line string) (done bool, code int) {
	switch {
	case strings.HasPrefix(line, "fatal error:"), strings.HasPrefix(line, "panic:"):
		return true, 1
	case line == "FAIL":
		return true, 1
	case line == "PASS":
		return true, 0
	}
	return false, 0
}

func runROM(cmdline []string, timeout time.Duration) int {
	ptmx, err := pty.New()
	if err != nil {
		log.Fatalln("open pty:", err)
	}
	defer ptmx.Close()

	cmd := ptmx.Command(cmdline[0], cmdline[1:]...)
	if err := cmd.Start(); err != nil {
		log.Fatalln("start command:", err)
	}

	stop := func() {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			cmd.Process.Kill()
		}
	}

	sigintr := make(chan os.Signal, 1)
	signal.Notify(sigintr, os.Interrupt)
	go func() {
		<-sigintr
		stop()
	}()
	if timeout > 0 {
		time.AfterFunc(timeout, func() {
			log.Println("timeout")
			stop()
		})
	}

	code := scan(ptmx, func() {
		// give panic() time to print the stacktrace
		time.AfterFunc(500*time.Millisecond, stop)
	})
	cmd.Wait()
	return code
}

// scan forwards the output read from r until it ends.  finished is called
// once the ROM reported its result.
func scan(r io.Reader, finished func()) int {
	scanner := bufio.NewScanner(r)
	exiting := false
	code := 2 // no result
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		log.Println(line)
		if exiting {
			continue
		}
		if done, c := verdict(line); done {
			exiting, code = true, c
			finished()
		}
	}
	return code
}
