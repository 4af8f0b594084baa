package bot

import (
	"context"
	"strings"
	"unicode"
)

// Request is a resolved command invocation.
type Request struct {
	Message
	// Name is the command name as typed, without the prefix.
	Name string
	// Args is the raw text after the command name.
	Args string
	// Fields is Args split on whitespace.
	Fields []string
}

// HandlerFunc runs a command.
type HandlerFunc func(ctx context.Context, req *Request)

// Command describes one chat command.
type Command struct {
	Run HandlerFunc
	// MinArgs is the fewest whitespace-separated arguments accepted.
	MinArgs int
	// Restricted commands only work in channels, for operators and voiced users.
	Restricted bool
	// Usage is sent, addressed to the caller, when too few arguments are given.
	Usage string
}

// Register binds cmd to every name in names. Names are case-sensitive; the
// help listing follows registration order.
func (b *Bot) Register(cmd *Command, names ...string) {
	for _, name := range names {
		if _, exists := b.commands[name]; !exists {
			b.order = append(b.order, name)
		}
		b.commands[name] = cmd
	}
}

// CommandNames returns the registered names, prefixed, in registration order.
func (b *Bot) CommandNames() []string {
	names := make([]string, len(b.order))
	for i, name := range b.order {
		names[i] = b.prefix + name
	}
	return names
}

// Dispatch runs the command in msg. Unknown commands are ignored.
func (b *Bot) Dispatch(ctx context.Context, msg Message) {
	name, args := splitCommand(strings.TrimPrefix(msg.Text, b.prefix))

	cmd, ok := b.commands[name]
	if !ok {
		return
	}

	if cmd.Restricted {
		if !msg.Channel {
			b.log.Debug("Ignoring channel-only command sent privately", "command", name, "nick", msg.Nick)
			return
		}
		if !b.transport.Privileges(msg.Target, msg.Nick).Trusted() {
			b.log.Info("Denied command", "command", name, "nick", msg.Nick, "channel", msg.Target)
			b.replyTo(msg, "you do not have permission to use this feature.")
			return
		}
	}

	req := &Request{
		Message: msg,
		Name:    name,
		Args:    strings.TrimSpace(args),
		Fields:  strings.Fields(args),
	}
	if len(req.Fields) < cmd.MinArgs {
		b.replyTo(msg, "%s", cmd.Usage)
		return
	}

	b.log.Debug("Dispatching command", "command", name, "nick", msg.Nick, "target", msg.Target)
	cmd.Run(ctx, req)
}

// splitCommand separates the command name from its arguments at the first
// whitespace character of any kind.
func splitCommand(line string) (name, args string) {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], line[i:]
}
