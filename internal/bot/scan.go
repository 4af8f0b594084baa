package bot

import (
	"context"
	"regexp"
	"strconv"

	"github.com/hellausefulsoftware/gitircbot/internal/reltime"
)

var mentionPattern = regexp.MustCompile(`#(\d+)`)

// MentionedIssues returns the issue numbers referenced as #N in text, in
// order of appearance. Repeats are kept.
func MentionedIssues(text string) []int {
	var numbers []int
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers
}

// ScanMentions starts one background lookup-and-announce per issue
// mentioned in msg and returns immediately. Announcements are unordered and
// lookup failures are never reported to the channel.
func (b *Bot) ScanMentions(ctx context.Context, msg Message) {
	for _, number := range MentionedIssues(msg.Text) {
		b.scans.Add(1)
		go func(number int) {
			defer b.scans.Done()
			b.announce(ctx, msg, number)
		}(number)
	}
}

func (b *Bot) announce(ctx context.Context, msg Message, number int) {
	if err := b.lookups.Acquire(ctx, 1); err != nil {
		return
	}
	defer b.lookups.Release(1)

	thread, err := b.issues.LookupIssue(ctx, number)
	if err != nil {
		b.log.Debug("Ignoring failed mention lookup", "issue", number, "error", err)
		return
	}

	issue := thread.Issue
	b.reply(msg, "Issue #%d, \"%s\", last updated %s by %s. State: %s (comments: %d). %s",
		number, issue.Title, reltime.Since(issue.UpdatedAt, b.now()), thread.LastActor(),
		issue.State, issue.CommentCount, b.issues.IssueURL(ctx, issue))
}
