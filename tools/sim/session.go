package sim

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/clktmr/mobile/drivers/mobile"
	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/drivers/mobile/request"
	"github.com/clktmr/mobile/drivers/mobile/simulator"
)

var errQuit = errors.New("quit")

// session is a driver connected to a simulated adapter, controlled by
// commands.
type session struct {
	out io.Writer
	sim *simulator.Sim
	drv *mobile.Driver

	linking *mobile.LinkPending
	link    *mobile.Link
	calling *mobile.P2PPending
	p2p     *mobile.P2P
}

type command struct {
	args string
	help string
	run  func(s *session, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"link":       {"", "start a link, or reset the current one", (*session).cmdLink},
		"cancel":     {"", "cancel the pending link", (*session).cmdCancel},
		"disconnect": {"", "end the session", (*session).cmdDisconnect},
		"accept":     {"", "wait for an incoming call", (*session).cmdAccept},
		"connect":    {"<number>", "call another adapter", (*session).cmdConnect},
		"hangup":     {"", "end or cancel the call", (*session).cmdHangUp},
		"run":        {"[frames]", "simulate frames, 1 by default", (*session).cmdRun},
		"wait":       {"[frames]", "simulate until the pending link or call is resolved", (*session).cmdWait},
		"status":     {"", "print the state of the link and the call", (*session).cmdStatus},
		"set":        {"<option> <value>", "change the adapter's behaviour", (*session).cmdSet},
		"log":        {"", "print the packets received by the adapter", (*session).cmdLog},
		"help":       {"", "print this help", (*session).cmdHelp},
		"quit":       {"", "exit", func(*session, []string) error { return errQuit }},
	}
}

func newSession(out io.Writer, sim *simulator.Sim, drv *mobile.Driver) *session {
	return &session{out: out, sim: sim, drv: drv}
}

// exec runs a single command.
func (s *session) exec(args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd.run(s, args[1:])
}

func (s *session) printf(format string, a ...any) {
	fmt.Fprintf(s.out, "%6d  "+format+"\n", append([]any{s.sim.Frame()}, a...)...)
}

func (s *session) cmdLink([]string) error {
	p := s.drv.Link()
	s.linking, s.link = &p, nil
	s.calling, s.p2p = nil, nil
	return nil
}

func (s *session) cmdCancel([]string) error {
	if s.linking == nil {
		return errors.New("no pending link")
	}
	s.linking.Cancel(s.drv)
	return nil
}

func (s *session) cmdDisconnect([]string) error {
	if s.link == nil {
		return errors.New("not linked")
	}
	s.link.Disconnect(s.drv)
	return nil
}

func (s *session) cmdAccept([]string) error {
	if s.link == nil {
		return errors.New("not linked")
	}
	p, err := s.link.Accept(s.drv)
	if err != nil {
		return err
	}
	s.calling, s.p2p = &p, nil
	return nil
}

func (s *session) cmdConnect(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: connect <number>")
	}
	if s.link == nil {
		return errors.New("not linked")
	}
	number, err := adapter.ParsePhoneNumber(args[0])
	if err != nil {
		return err
	}
	p, err := s.link.Connect(s.drv, number)
	if err != nil {
		return err
	}
	s.calling, s.p2p = &p, nil
	return nil
}

func (s *session) cmdHangUp([]string) error {
	switch {
	case s.p2p != nil:
		return s.p2p.HangUp(s.drv)
	case s.calling != nil:
		return s.calling.HangUp(s.drv)
	}
	return errors.New("no call")
}

func frames(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number of frames: %s", args[0])
	}
	return n, nil
}

func (s *session) cmdRun(args []string) error {
	n, err := frames(args, 1)
	if err != nil {
		return err
	}
	s.sim.Run(s.drv, n)
	return nil
}

func (s *session) cmdWait(args []string) error {
	n, err := frames(args, request.FifteenSeconds)
	if err != nil {
		return err
	}
	var done func() bool
	switch {
	case s.linking != nil:
		done = func() bool {
			l, err := s.linking.Status(s.drv)
			return l != nil || err != nil
		}
	case s.calling != nil:
		done = func() bool {
			c, err := s.calling.Status(s.drv)
			return c != nil || err != nil
		}
	default:
		return errors.New("nothing to wait for")
	}
	if !s.sim.RunUntil(s.drv, n, done) {
		s.printf("still pending")
		return nil
	}
	return s.cmdStatus(nil)
}

// cmdStatus polls the pending operations and prints their state.
func (s *session) cmdStatus([]string) error {
	if s.linking != nil {
		l, err := s.linking.Status(s.drv)
		switch {
		case err != nil:
			s.printf("link: %v", err)
			s.linking = nil
		case l != nil:
			s.printf("link: established, generation %d", l.Generation())
			s.linking, s.link = nil, l
		default:
			s.printf("link: pending")
		}
	} else if s.link != nil {
		s.printf("link: generation %d", s.link.Generation())
	}

	switch {
	case s.calling != nil:
		c, err := s.calling.Status(s.drv)
		switch {
		case err != nil:
			s.printf("call: %v", err)
			s.calling = nil
		case c != nil:
			s.printf("call: connected")
			s.calling, s.p2p = nil, c
		default:
			s.printf("call: pending")
		}
	case s.p2p != nil:
		if err := s.p2p.Status(s.drv); err != nil {
			s.printf("call: %v", err)
			s.p2p = nil
		} else {
			s.printf("call: connected")
		}
	}
	return nil
}

var options = map[string]func(cfg *simulator.Config, v int){
	"latency":             func(cfg *simulator.Config, v int) { cfg.Latency = v },
	"incoming-call-after": func(cfg *simulator.Config, v int) { cfg.IncomingCallAfter = v },
	"reject-dial":         func(cfg *simulator.Config, v int) { cfg.RejectDial = v != 0 },
	"dial-error":          func(cfg *simulator.Config, v int) { cfg.DialErrorCode = byte(v) },
	"corrupt-checksums":   func(cfg *simulator.Config, v int) { cfg.CorruptChecksums = v },
	"reject-packets":      func(cfg *simulator.Config, v int) { cfg.RejectPackets = v },
	"disconnected":        func(cfg *simulator.Config, v int) { cfg.Disconnected = v != 0 },
}

func (s *session) cmdSet(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set <option> <value>")
	}
	set, ok := options[args[0]]
	if !ok {
		return fmt.Errorf("unknown option: %s", args[0])
	}
	var v int
	switch args[1] {
	case "true", "on":
		v = 1
	case "false", "off":
	default:
		var err error
		if v, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid value: %s", args[1])
		}
	}
	s.sim.Configure(func(cfg *simulator.Config) { set(cfg, v) })
	return nil
}

func (s *session) cmdLog([]string) error {
	for _, r := range s.sim.Received {
		fmt.Fprintf(s.out, "%s [% x]\n", r.Command, r.Data)
	}
	return nil
}

func (s *session) cmdHelp([]string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(s.out, "  %-28s %s\n", strings.TrimSpace(name+" "+cmd.args), cmd.help)
	}
	fmt.Fprintln(s.out, "\noptions of set:")
	names = names[:0]
	for name := range options {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", name)
	}
	return nil
}
