// Package emldir stores drafts as .eml files in a directory. Files carry
// the X-Unsent header so desktop clients open them as editable drafts.
package emldir

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/mailclient/mimedraft"
	"github.com/nhle/maildraft/internal/model"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Client writes drafts into dir.
type Client struct {
	fs   afero.Fs
	dir  string
	from string
	now  func() time.Time
}

var _ mailclient.Client = (*Client)(nil)

// New returns a client writing to dir through fs. A nil fs means the OS
// filesystem.
func New(fs afero.Fs, dir, from string) *Client {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Client{fs: fs, dir: dir, from: from, now: time.Now}
}

// Open implements mailclient.Opener; the directory client has no session.
func (c *Client) Open(_ context.Context) (mailclient.Client, error) {
	return c, nil
}

// Backend returns "eml".
func (c *Client) Backend() string {
	return model.BackendEML
}

// NewMessage returns an unsaved draft bound to this directory.
func (c *Client) NewMessage(_ context.Context) (mailclient.Message, error) {
	msg := mimedraft.New(c.fs, c.from, c.save)
	msg.SetClock(c.now)
	msg.SetHeader("X-Unsent", "1")
	return msg, nil
}

// Accounts reports the configured From address as the only account.
func (c *Client) Accounts(_ context.Context) ([]model.Account, error) {
	if c.from == "" {
		return nil, nil
	}
	return []model.Account{{DisplayName: c.from, Address: c.from}}, nil
}

// CurrentUser returns the configured From address.
func (c *Client) CurrentUser(_ context.Context) (string, error) {
	return c.from, nil
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}

func (c *Client) save(_ context.Context, raw []byte, msg *mimedraft.Message) (string, error) {
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating drafts directory %s: %w", c.dir, err)
	}

	path := filepath.Join(c.dir, c.fileName(msg))
	if err := afero.WriteFile(c.fs, path, raw, 0o644); err != nil {
		return "", fmt.Errorf("writing draft %s: %w", path, err)
	}

	return path, nil
}

// fileName builds "<timestamp>_<recipient>_<short id>.eml".
func (c *Client) fileName(msg *mimedraft.Message) string {
	who := "draft"
	if rs := msg.Recipients(); len(rs) > 0 {
		who = strings.Trim(unsafeChars.ReplaceAllString(rs[0].Typed, "_"), "_")
		if who == "" {
			who = "draft"
		}
	}
	id := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s_%s.eml", c.now().Format("20060102-150405"), who, id)
}
