package trace

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/clktmr/mobile/drivers/mobile/packet"
)

const usageString = `Print the transfers or the packets of a trace recorded by 'sim --trace'.

Usage: %s [flags] <tracefile>

`

func open(name string, args []string, flags *pflag.FlagSet) []Record {
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, usageString, name)
		flags.PrintDefaults()
	}
	flags.Parse(args[1:])
	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}

	f, err := os.Open(flags.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}
	defer f.Close()

	recs, err := ReadAll(f)
	if err != nil {
		log.Println(err)
	}
	return recs
}

// Main implements the trace command, which prints every transfer.
func Main(args []string) {
	flags := pflag.NewFlagSet("trace", pflag.ExitOnError)
	idle := flags.Bool("idle", false, "include transfers where both sides are idle")
	recs := open("trace", args, flags)

	for _, r := range recs {
		if !*idle && isIdle(r) {
			continue
		}
		fmt.Println(Format(r))
	}
}

// DecodeMain implements the decode command, which prints the packets found
// in a trace.
func DecodeMain(args []string) {
	flags := pflag.NewFlagSet("decode", pflag.ExitOnError)
	invalid := flags.Bool("invalid", false, "only print packets with a wrong checksum")
	recs := open("decode", args, flags)

	printPackets(os.Stdout, Decode(recs), *invalid)
}

func printPackets(w io.Writer, pkts []Packet, invalidOnly bool) {
	for _, p := range pkts {
		if invalidOnly && p.Valid() {
			continue
		}
		fmt.Fprintln(w, p.String())
	}
}

func isIdle(r Record) bool {
	return r.Console == packet.Filler(r.Width) && r.Adapter == packet.Idle(r.Width)
}
