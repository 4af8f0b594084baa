package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/hellausefulsoftware/gitircbot/internal/command"
	"github.com/hellausefulsoftware/gitircbot/internal/reltime"
	"github.com/hellausefulsoftware/gitircbot/internal/tracker"
)

// Body used when an issue is created from a title alone.
const defaultIssueBody = "(as per title)"

func (b *Bot) registerDefaults() {
	b.Register(&Command{Run: b.help}, "help")

	b.Register(&Command{
		Run:        b.newIssue,
		MinArgs:    1,
		Restricted: true,
		Usage:      fmt.Sprintf(`not enough arguments supplied. Example: %snewissue "example title" "example message"`, b.prefix),
	}, "issue.new", "issue.create", "newissue", "createissue")

	b.Register(&Command{
		Run:        b.addComment,
		MinArgs:    2,
		Restricted: true,
		Usage:      fmt.Sprintf("not enough arguments supplied. Example: %saddcomment 277 example message", b.prefix),
	}, "command.add", "addcomment")

	b.Register(&Command{
		Run:        b.lastComment,
		MinArgs:    1,
		Restricted: true,
		Usage:      fmt.Sprintf("not enough arguments supplied. Example: %slastcomment 277", b.prefix),
	}, "command.last", "lastcomment")
}

func (b *Bot) help(ctx context.Context, req *Request) {
	b.reply(req.Message, "Commands recognized by bot:")
	b.reply(req.Message, "%s", strings.Join(b.CommandNames(), ", "))
}

// newIssue handles: newissue "title" "body". A '|' in the body starts a new line.
func (b *Bot) newIssue(ctx context.Context, req *Request) {
	args := command.ParseQuoted(req.Args)
	if len(args) == 0 {
		b.replyTo(req.Message, "%s", b.commands[req.Name].Usage)
		return
	}

	title := fmt.Sprintf("%s (from IRC user %s)", args[0], req.Nick)
	body := defaultIssueBody
	if len(args) > 1 {
		body = strings.ReplaceAll(args[1], "|", "\r\n")
	}

	issue, err := b.issues.CreateIssue(ctx, title, body)
	if err != nil {
		b.log.Warn("Failed to create issue", "nick", req.Nick, "error", err)
		b.replyTo(req.Message, "Failed to create issue - %s", err)
		return
	}
	b.replyTo(req.Message, "Issue #%d created. %s", issue.Number, b.issues.IssueURL(ctx, *issue))
}

// addComment handles: addcomment <issue> <text...>
func (b *Bot) addComment(ctx context.Context, req *Request) {
	number, ok := command.ParseIssueNumber(req.Fields[0])
	if !ok {
		b.replyTo(req.Message, "%s is an invalid issue number.", req.Fields[0])
		return
	}

	text := strings.Join(req.Fields[1:], " ")
	body := fmt.Sprintf("IRC user %s writes:\r\n\r\n%s", req.Nick, text)

	comment, err := b.issues.CommentOnIssue(ctx, number, body)
	switch {
	case tracker.IsNotFound(err):
		b.reply(req.Message, "Issue #%d does not exist.", number)
	case err != nil:
		b.log.Warn("Failed to post comment", "issue", number, "nick", req.Nick, "error", err)
		b.replyTo(req.Message, "Failed to post comment - %s", err)
	default:
		b.replyTo(req.Message, "Comment %d posted to issue #%d. %s", comment.ID, number, b.issues.CommentURL(ctx, *comment))
	}
}

// lastComment handles: lastcomment <issue>. It reports the latest activity
// on the issue and an excerpt of it.
func (b *Bot) lastComment(ctx context.Context, req *Request) {
	number, ok := command.ParseIssueNumber(req.Fields[0])
	if !ok {
		b.replyTo(req.Message, "%s is an invalid issue number.", req.Fields[0])
		return
	}

	thread, err := b.issues.LookupIssue(ctx, number)
	switch {
	case tracker.IsNotFound(err):
		b.reply(req.Message, "Issue #%d does not exist.", number)
		return
	case err != nil:
		b.log.Warn("Failed to look up issue", "issue", number, "nick", req.Nick, "error", err)
		b.replyTo(req.Message, "Failed to look up issue - %s", err)
		return
	}

	issue := thread.Issue
	var post string
	if last, ok := thread.LastComment(); ok {
		post = last.Body
		b.reply(req.Message, "%s updated issue #%d %s: %s (%s)",
			last.User, number, reltime.Since(last.CreatedAt, b.now()), issue.Title, b.issues.CommentURL(ctx, last))
	} else {
		post = issue.Body
		b.reply(req.Message, "%s created issue #%d %s: %s (%s)",
			issue.User, number, reltime.Since(issue.CreatedAt, b.now()), issue.Title, b.issues.IssueURL(ctx, issue))
	}

	excerpt, _ := command.Excerpt(post, command.ExcerptLimit)
	b.reply(req.Message, "Excerpt: %s", excerpt)
}
