// Package bot answers chat commands about GitHub issues and announces issues
// mentioned in channel text.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hellausefulsoftware/gitircbot/internal/logging"
	"github.com/hellausefulsoftware/gitircbot/internal/models"
	"golang.org/x/sync/semaphore"
)

// DefaultPrefix marks chat text as a command.
const DefaultPrefix = "!"

// DefaultMaxConcurrentLookups bounds in-flight passive issue lookups.
const DefaultMaxConcurrentLookups = 8

// Privileges are a user's modes in one channel.
type Privileges struct {
	Operator bool
	Voice    bool
}

// Trusted reports whether the user may run commands that change or reveal
// tracker content.
func (p Privileges) Trusted() bool {
	return p.Operator || p.Voice
}

// Transport is the chat connection the bot replies through.
type Transport interface {
	SendMessage(target, text string)
	Privileges(channel, nick string) Privileges
}

// IssueService is the issue tracker as the bot sees it.
type IssueService interface {
	LookupIssue(ctx context.Context, number int) (*models.IssueThread, error)
	CreateIssue(ctx context.Context, title, body string) (*models.Issue, error)
	CommentOnIssue(ctx context.Context, number int, body string) (*models.Comment, error)
	IssueURL(ctx context.Context, issue models.Issue) string
	CommentURL(ctx context.Context, comment models.Comment) string
}

// Message is one inbound chat line.
type Message struct {
	// Nick is the sender's display name.
	Nick string
	// Target is the channel the line was sent to, or the bot's own nick
	// for private messages.
	Target string
	// Channel is set when Target is a channel.
	Channel bool
	Text    string
}

// ReplyTarget is where answers to m go: the channel, or the sender when m
// was private.
func (m Message) ReplyTarget() string {
	if m.Channel {
		return m.Target
	}
	return m.Nick
}

// Options configures a Bot.
type Options struct {
	Prefix               string
	MaxConcurrentLookups int64
}

// Bot routes chat lines to command handlers and the passive issue scanner.
type Bot struct {
	transport Transport
	issues    IssueService
	prefix    string
	now       func() time.Time
	log       *slog.Logger

	commands map[string]*Command
	order    []string

	lookups *semaphore.Weighted
	scans   sync.WaitGroup
}

// New creates a bot with the standard command set registered.
func New(transport Transport, issues IssueService, opts Options) *Bot {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.MaxConcurrentLookups <= 0 {
		opts.MaxConcurrentLookups = DefaultMaxConcurrentLookups
	}

	b := &Bot{
		transport: transport,
		issues:    issues,
		prefix:    opts.Prefix,
		now:       time.Now,
		log:       logging.WithComponent("bot"),
		commands:  make(map[string]*Command),
		lookups:   semaphore.NewWeighted(opts.MaxConcurrentLookups),
	}
	b.registerDefaults()
	return b
}

// HandleMessage processes one chat line. Channel text is scanned for issue
// mentions in the background; prefixed text is dispatched as a command on
// the calling goroutine.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) {
	if msg.Channel {
		b.ScanMentions(ctx, msg)
	}
	if strings.HasPrefix(msg.Text, b.prefix) && len(msg.Text) > len(b.prefix) {
		b.Dispatch(ctx, msg)
	}
}

// Wait blocks until all background mention lookups have finished.
func (b *Bot) Wait() {
	b.scans.Wait()
}

func (b *Bot) reply(msg Message, format string, args ...any) {
	b.transport.SendMessage(msg.ReplyTarget(), fmt.Sprintf(format, args...))
}

// replyTo addresses the reply to the sender by nick.
func (b *Bot) replyTo(msg Message, format string, args ...any) {
	b.transport.SendMessage(msg.ReplyTarget(), msg.Nick+": "+fmt.Sprintf(format, args...))
}
