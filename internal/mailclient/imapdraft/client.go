// Package imapdraft saves drafts by APPENDing them to the Drafts mailbox
// of an IMAP account.
package imapdraft

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/spf13/afero"

	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/mailclient/mimedraft"
	"github.com/nhle/maildraft/internal/model"
)

// fallbackMailbox is used when the server advertises no \Drafts mailbox.
const fallbackMailbox = "Drafts"

// Config holds connection settings for one IMAP account.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string

	// Security is "tls", "starttls" or "none".
	Security string

	// DraftsMailbox skips special-use detection when set.
	DraftsMailbox string

	From string
}

// Opener dials the IMAP server for every session.
type Opener struct {
	cfg Config
	fs  afero.Fs
}

// NewOpener returns an opener for cfg. Attachments are read through fs;
// nil means the OS filesystem.
func NewOpener(cfg Config, fs afero.Fs) *Opener {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Opener{cfg: cfg, fs: fs}
}

// Open connects, authenticates and locates the drafts mailbox. The
// context deadline, if any, bounds the whole session.
func (o *Opener) Open(ctx context.Context) (mailclient.Client, error) {
	conn, err := o.connect(ctx)
	if err != nil {
		return nil, err
	}

	mailbox := o.cfg.DraftsMailbox
	if mailbox == "" {
		mailbox, err = findDraftsMailbox(conn)
		if err != nil {
			_ = conn.Logout().Wait()
			return nil, err
		}
	}

	return &Client{
		conn:    conn,
		cfg:     o.cfg,
		fs:      o.fs,
		mailbox: mailbox,
		now:     time.Now,
	}, nil
}

// connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client.
func (o *Opener) connect(ctx context.Context) (*imapclient.Client, error) {
	addr := net.JoinHostPort(o.cfg.Host, o.cfg.Port)
	tlsConfig := &tls.Config{ServerName: o.cfg.Host}

	var raw net.Conn
	var err error
	if o.cfg.Security == "tls" {
		dialer := &tls.Dialer{Config: tlsConfig}
		raw, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		var dialer net.Dialer
		raw, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}

	var client *imapclient.Client
	switch o.cfg.Security {
	case "starttls":
		client, err = imapclient.NewStartTLS(raw, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("starting TLS with %s: %w", addr, err)
		}
	default:
		client = imapclient.New(raw, nil)
	}

	if err := client.Login(o.cfg.Username, o.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &mailclient.AuthError{
			Backend: model.BackendIMAP,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				o.cfg.Username, err,
			),
		}
	}

	return client, nil
}

// findDraftsMailbox lists all mailboxes and picks the \Drafts one.
func findDraftsMailbox(conn *imapclient.Client) (string, error) {
	list, err := conn.List("", "*", nil).Collect()
	if err != nil {
		return "", fmt.Errorf("listing mailboxes: %w", err)
	}
	return pickDraftsMailbox(list), nil
}

// pickDraftsMailbox prefers the special-use \Drafts attribute, then a
// mailbox named like "Drafts" (any case, any parent), then the fallback.
func pickDraftsMailbox(list []*imap.ListData) string {
	for _, data := range list {
		for _, attr := range data.Attrs {
			if attr == imap.MailboxAttrDrafts {
				return data.Mailbox
			}
		}
	}

	for _, data := range list {
		name := data.Mailbox
		if data.Delim != 0 {
			if i := strings.LastIndexByte(name, byte(data.Delim)); i >= 0 {
				name = name[i+1:]
			}
		}
		if strings.EqualFold(name, fallbackMailbox) {
			return data.Mailbox
		}
	}

	return fallbackMailbox
}

// Client is an authenticated IMAP session.
type Client struct {
	conn    *imapclient.Client
	cfg     Config
	fs      afero.Fs
	mailbox string
	now     func() time.Time
}

var _ mailclient.Client = (*Client)(nil)

// Backend returns "imap".
func (c *Client) Backend() string {
	return model.BackendIMAP
}

// NewMessage returns an unsaved draft that is appended on Save.
func (c *Client) NewMessage(_ context.Context) (mailclient.Message, error) {
	msg := mimedraft.New(c.fs, c.from(), c.appendDraft)
	msg.SetClock(c.now)
	return msg, nil
}

// Accounts reports the session's own address.
func (c *Client) Accounts(_ context.Context) ([]model.Account, error) {
	addr := c.from()
	if addr == "" {
		return nil, nil
	}
	return []model.Account{{DisplayName: c.cfg.Username, Address: addr}}, nil
}

// CurrentUser returns the From address or the login name when it looks
// like an address.
func (c *Client) CurrentUser(_ context.Context) (string, error) {
	return c.from(), nil
}

// Close logs out and closes the connection.
func (c *Client) Close() error {
	if err := c.conn.Logout().Wait(); err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("logging out: %w", err)
	}
	return c.conn.Close()
}

func (c *Client) from() string {
	if c.cfg.From != "" {
		return c.cfg.From
	}
	if strings.Contains(c.cfg.Username, "@") {
		return c.cfg.Username
	}
	return ""
}

// appendDraft stores raw in the drafts mailbox flagged \Draft and \Seen.
func (c *Client) appendDraft(_ context.Context, raw []byte, _ *mimedraft.Message) (string, error) {
	cmd := c.conn.Append(c.mailbox, int64(len(raw)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft, imap.FlagSeen},
		Time:  c.now(),
	})

	if _, err := cmd.Write(raw); err != nil {
		_ = cmd.Close()
		return "", fmt.Errorf("appending draft to %s: %w", c.mailbox, err)
	}
	if err := cmd.Close(); err != nil {
		return "", fmt.Errorf("appending draft to %s: %w", c.mailbox, err)
	}

	data, err := cmd.Wait()
	if err != nil {
		return "", fmt.Errorf("appending draft to %s: %w", c.mailbox, err)
	}

	if data != nil && data.UID != 0 {
		return fmt.Sprintf("%s/%d", c.mailbox, data.UID), nil
	}
	return c.mailbox, nil
}
