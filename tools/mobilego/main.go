package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/clktmr/mobile/tools/run"
	"github.com/clktmr/mobile/tools/sim"
	"github.com/clktmr/mobile/tools/trace"
)

type command struct {
	name  string
	short string
	main  func(args []string)
}

var commands = []command{
	{"sim", "run the driver against a simulated adapter", sim.Main},
	{"trace", "print the transfers recorded by 'sim --trace'", trace.Main},
	{"decode", "print the packets recorded by 'sim --trace'", trace.DecodeMain},
	{"run", "run a ROM in an emulator and report the test result", run.Main},
}

func usage() {
	fmt.Fprintf(os.Stderr, "mobilego is a tool for development with the Mobile Adapter GB.\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n\n\t%s <command> [arguments]\n\nThe commands are:\n\n", os.Args[0])
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "\t%-8s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintln(os.Stderr)
	pflag.PrintDefaults()
}

func main() {
	log.Default().SetFlags(0)
	pflag.Usage = usage
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		pflag.Usage()
		os.Exit(1)
	}

	for _, cmd := range commands {
		if cmd.name == pflag.Arg(0) {
			cmd.main(pflag.Args())
			return
		}
	}
	fmt.Fprintf(os.Stderr, "unknown command: %s\n", pflag.Arg(0))
	pflag.Usage()
	os.Exit(1)
}
