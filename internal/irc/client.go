// Package irc connects the bot to an IRC network.
package irc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hellausefulsoftware/gitircbot/internal/bot"
	"github.com/hellausefulsoftware/gitircbot/internal/config"
	"github.com/hellausefulsoftware/gitircbot/internal/logging"
	"github.com/lrstanley/girc"
)

// DefaultReconnectDelay is the pause between connection attempts.
const DefaultReconnectDelay = 30 * time.Second

// Handler receives inbound chat lines.
type Handler interface {
	HandleMessage(ctx context.Context, msg bot.Message)
}

// Client is a girc connection that implements bot.Transport.
type Client struct {
	conn           *girc.Client
	channels       []string
	reconnectDelay time.Duration
	log            *slog.Logger
}

// NewClient builds a client from the IRC section of the config. It does not
// connect until Run is called.
func NewClient(cfg config.IRCConfig) *Client {
	user := cfg.User
	if user == "" {
		user = cfg.Nick
	}
	name := cfg.RealName
	if name == "" {
		name = cfg.Nick
	}

	conn := girc.New(girc.Config{
		Server: cfg.Server,
		Port:   cfg.Port,
		Nick:   cfg.Nick,
		User:   user,
		Name:   name,
		SSL:    cfg.TLS,
	})

	return &Client{
		conn:           conn,
		channels:       append([]string(nil), cfg.Channels...),
		reconnectDelay: DefaultReconnectDelay,
		log:            logging.WithComponent("irc"),
	}
}

// Run connects, joins the configured channels and feeds every PRIVMSG to h.
// It reconnects after a dropped connection and returns when ctx is done.
func (c *Client) Run(ctx context.Context, h Handler) error {
	c.conn.Handlers.Add(girc.CONNECTED, func(conn *girc.Client, e girc.Event) {
		c.log.Info("Connected", "server", conn.Server(), "nick", conn.GetNick())
		if len(c.channels) > 0 {
			c.log.Info("Joining channels", "channels", strings.Join(c.channels, ", "))
			conn.Cmd.Join(c.channels...)
		}
	})

	// Background handlers keep slow commands from stalling the read loop.
	c.conn.Handlers.AddBg(girc.PRIVMSG, func(conn *girc.Client, e girc.Event) {
		if e.Source == nil || e.IsAction() || len(e.Params) == 0 {
			return
		}
		h.HandleMessage(ctx, bot.Message{
			Nick:    e.Source.Name,
			Target:  e.Params[0],
			Channel: e.IsFromChannel(),
			Text:    e.Last(),
		})
	})

	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		c.log.Info("Connecting to IRC server", "server", c.conn.Config.Server, "port", c.conn.Config.Port)
		err := c.conn.Connect()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.log.Error("IRC connection failed", "error", err)
		} else {
			c.log.Warn("IRC connection closed")
		}

		c.log.Info("Waiting before reconnecting", "delay", c.reconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

// SendMessage sends a PRIVMSG. Multi-line text is sent one line at a time.
func (c *Client) SendMessage(target, text string) {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			c.conn.Cmd.Message(target, line)
		}
	}
}

// Privileges reports nick's modes in channel, as tracked by girc.
func (c *Client) Privileges(channel, nick string) bot.Privileges {
	user := c.conn.LookupUser(nick)
	if user == nil || user.Perms == nil {
		return bot.Privileges{}
	}
	perms, ok := user.Perms.Lookup(channel)
	if !ok {
		return bot.Privileges{}
	}
	return privilegesFromPerms(perms)
}

// privilegesFromPerms folds the IRC prefix modes into operator and voice.
// Half-ops and above count as operators.
func privilegesFromPerms(p girc.Perms) bot.Privileges {
	return bot.Privileges{
		Operator: p.Owner || p.Admin || p.Op || p.HalfOp,
		Voice:    p.Voice,
	}
}

// Join joins a channel.
func (c *Client) Join(channel string) error {
	if err := validChannel(channel); err != nil {
		return err
	}
	if !c.conn.IsConnected() {
		return errNotConnected
	}
	c.log.Info("Joining channel", "channel", channel)
	c.conn.Cmd.Join(channel)
	return nil
}

// Leave parts a channel.
func (c *Client) Leave(channel string) error {
	if err := validChannel(channel); err != nil {
		return err
	}
	if !c.conn.IsConnected() {
		return errNotConnected
	}
	c.log.Info("Leaving channel", "channel", channel)
	c.conn.Cmd.Part(channel)
	return nil
}

// Channels lists the channels currently joined.
func (c *Client) Channels() []string {
	return c.conn.ChannelList()
}

var errNotConnected = errors.New("not connected")

func validChannel(channel string) error {
	if !girc.IsValidChannel(channel) {
		return fmt.Errorf("invalid channel name %q", channel)
	}
	return nil
}
