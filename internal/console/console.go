// Package console reads operator commands from a terminal while the bot runs.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hellausefulsoftware/gitircbot/internal/logging"
)

// Controller is the part of the chat connection the operator can steer.
type Controller interface {
	Join(channel string) error
	Leave(channel string) error
	Channels() []string
}

// Console runs operator commands against a Controller.
type Console struct {
	ctrl Controller
	out  io.Writer
}

// New creates a console writing its output to out.
func New(ctrl Controller, out io.Writer) *Console {
	return &Console{ctrl: ctrl, out: out}
}

// Run reads commands from in, one per line, until "exit", end of input or
// ctx is done. It reports whether the operator asked to exit.
func (c *Console) Run(ctx context.Context, in io.Reader) bool {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logging.Warn("Console input failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			if c.Execute(line) {
				return true
			}
		}
	}
}

// Execute runs a single command line and reports whether it was "exit".
func (c *Console) Execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "exit", "quit":
		c.printf("Shutting down")
		return true
	case "join":
		if len(args) != 1 {
			c.printf("Usage: join <#channel>")
			return false
		}
		if err := c.ctrl.Join(args[0]); err != nil {
			c.printf("Failed to join %s: %v", args[0], err)
			return false
		}
		c.printf("Joining %s", args[0])
	case "leave", "part":
		if len(args) != 1 {
			c.printf("Usage: %s <#channel>", name)
			return false
		}
		if err := c.ctrl.Leave(args[0]); err != nil {
			c.printf("Failed to leave %s: %v", args[0], err)
			return false
		}
		c.printf("Leaving %s", args[0])
	case "list":
		channels := c.ctrl.Channels()
		if len(channels) == 0 {
			c.printf("Not in any channels")
			return false
		}
		c.printf("Channels: %s", strings.Join(channels, ", "))
	default:
		c.printf("Unknown command %q. Commands: exit, join <#channel>, leave <#channel>, list", fields[0])
	}
	return false
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}
