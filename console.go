package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// errQuit is returned by a controller when the user asks to exit.
var errQuit = errors.New("quit")

// controller is what console commands act on.
type controller interface {
	ListProfiles() []string
	SelectProfile(name string) error
	RefreshProfiles() error
	DescribeProfile(name string) (string, error)
	SetHotkey(combo string) error
	ShowStatus()
	OpenProfiles() error
}

// CommandConsole reads commands from stdin while the hook runs.
type CommandConsole struct {
	ctl  controller
	in   io.Reader
	out  io.Writer
	quit chan struct{}
	once sync.Once
	mu   sync.Mutex // serialises output
}

// NewCommandConsole creates a console reading from in.
func NewCommandConsole(ctl controller, in io.Reader, out io.Writer) *CommandConsole {
	return &CommandConsole{
		ctl:  ctl,
		in:   in,
		out:  out,
		quit: make(chan struct{}),
	}
}

// Quit is closed when the user enters quit or ctx is done. The end of
// the input leaves it open, so a detached process keeps running.
func (cc *CommandConsole) Quit() <-chan struct{} { return cc.quit }

func (cc *CommandConsole) stop() { cc.once.Do(func() { close(cc.quit) }) }

// Run reads commands until ctx is done, the input ends, or quit.
func (cc *CommandConsole) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cc.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			cc.stop()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if errors.Is(cc.Execute(line), errQuit) {
				cc.stop()
				return
			}
		}
	}
}

// Execute runs one command line.
func (cc *CommandConsole) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, arg := strings.ToLower(fields[0]), strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	var err error
	switch cmd {
	case "list", "ls":
		for i, name := range cc.ctl.ListProfiles() {
			cc.println(fmt.Sprintf("[%d] %s", i+1, name))
		}
	case "use", "select":
		if arg == "" {
			err = fmt.Errorf("usage: use <profile>")
			break
		}
		err = cc.ctl.SelectProfile(arg)
	case "refresh", "r":
		err = cc.ctl.RefreshProfiles()
	case "rules":
		var rules string
		rules, err = cc.ctl.DescribeProfile(arg)
		if err == nil {
			if rules == "" {
				rules = "(no rules)"
			}
			cc.println(rules)
		}
	case "hotkey":
		if arg == "" {
			err = fmt.Errorf("usage: hotkey <combination>")
			break
		}
		err = cc.ctl.SetHotkey(arg)
	case "status":
		cc.ctl.ShowStatus()
	case "open":
		err = cc.ctl.OpenProfiles()
	case "help", "?":
		cc.println(consoleHelp)
	case "quit", "q", "exit":
		return errQuit
	default:
		err = fmt.Errorf("unknown command %q, type help", cmd)
	}

	if err != nil {
		cc.println("❌ " + err.Error())
	}
	return err
}

func (cc *CommandConsole) println(s string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	fmt.Fprintln(cc.out, s)
}

const consoleHelp = `Commands:
  list              list profiles
  use <profile>     select a profile
  rules [profile]   show the rules of a profile (default: selected)
  refresh           reload profile files
  hotkey <combo>    change the toggle combination, e.g. ctrl+alt+q
  status            show the current status
  open              open the profile folder
  quit              exit`
