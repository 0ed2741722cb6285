// Package composer turns a draft request into one saved, unsent message
// in the mail client.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nhle/maildraft/internal/attach"
	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/model"
)

// Journal records the outcome of each draft attempt.
type Journal interface {
	RecordDraft(ctx context.Context, rec model.DraftRecord) error
}

// Result describes a saved draft.
type Result struct {
	Attachments []string
	DraftRef    string
}

// Composer drives one automation session per request.
type Composer struct {
	opener   mailclient.Opener
	selector *attach.Selector
	journal  Journal
	backend  string
	timeout  time.Duration
}

// Option configures a Composer.
type Option func(*Composer)

// WithJournal records every attempt in j.
func WithJournal(j Journal) Option {
	return func(c *Composer) {
		c.journal = j
	}
}

// WithTimeout bounds each Compose call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) {
		c.timeout = d
	}
}

// New returns a composer that opens sessions with opener and picks
// attachments with selector. backend names the mail backend in the journal.
func New(opener mailclient.Opener, selector *attach.Selector, backend string, opts ...Option) *Composer {
	c := &Composer{
		opener:   opener,
		selector: selector,
		backend:  backend,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose creates exactly one draft for req: subject and HTML body set
// verbatim, one To recipient, one attachment per selected file in order.
// The draft is saved, never sent. Any automation failure is returned
// wrapped; nothing is retried.
func (c *Composer) Compose(ctx context.Context, req model.DraftRequest) (*Result, error) {
	files := c.selector.Select(req.Folder)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ref, err := c.compose(ctx, req, files)
	if err != nil {
		err = fmt.Errorf("creating draft for %s: %w", req.Recipient, err)
		c.record(ctx, req, files, "", err)
		return nil, err
	}

	slog.Info("draft saved",
		"recipient", req.Recipient,
		"folder", req.Folder,
		"attachments", len(files),
		"ref", ref,
	)
	c.record(ctx, req, files, ref, nil)
	return &Result{Attachments: files, DraftRef: ref}, nil
}

func (c *Composer) compose(ctx context.Context, req model.DraftRequest, files []string) (string, error) {
	client, err := c.opener.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("opening mail client: %w", err)
	}
	defer client.Close()

	msg, err := client.NewMessage(ctx)
	if err != nil {
		return "", fmt.Errorf("creating message: %w", err)
	}
	saved := false
	defer func() {
		if !saved {
			if err := msg.Discard(); err != nil {
				slog.Debug("discarding unsaved message", "error", err)
			}
		}
	}()

	if err := msg.SetSubject(req.Subject); err != nil {
		return "", fmt.Errorf("setting subject: %w", err)
	}
	if err := msg.SetHTMLBody(req.HTMLBody); err != nil {
		return "", fmt.Errorf("setting body: %w", err)
	}
	if err := msg.AddRecipient(req.Recipient, mailclient.RecipientTo); err != nil {
		return "", fmt.Errorf("adding recipient: %w", err)
	}

	resolved, err := msg.ResolveRecipients(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving recipients: %w", err)
	}
	if !resolved {
		slog.Warn("recipient not resolved, keeping typed address", "recipient", req.Recipient)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := msg.AddAttachment(path); err != nil {
			return "", fmt.Errorf("attaching %s: %w", filepath.Base(path), err)
		}
	}

	ref, err := msg.Save(ctx)
	if err != nil {
		return "", fmt.Errorf("saving draft: %w", err)
	}
	saved = true
	return ref, nil
}

func (c *Composer) record(ctx context.Context, req model.DraftRequest, files []string, ref string, cause error) {
	if c.journal == nil {
		return
	}

	rec := model.DraftRecord{
		Recipient:   req.Recipient,
		Subject:     req.Subject,
		Folder:      req.Folder,
		Attachments: names(files),
		Backend:     c.backend,
		DraftRef:    ref,
		Status:      model.DraftStatusCreated,
	}
	if cause != nil {
		rec.Status = model.DraftStatusFailed
		rec.Error = cause.Error()
	}

	// The compose context may already be past its deadline.
	if err := c.journal.RecordDraft(context.WithoutCancel(ctx), rec); err != nil {
		slog.Warn("recording draft in journal", "recipient", req.Recipient, "error", err)
	}
}

// RecordSkip journals a request that was skipped before composing.
func (c *Composer) RecordSkip(ctx context.Context, req model.DraftRequest, reason string) {
	if c.journal == nil {
		return
	}
	rec := model.DraftRecord{
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Folder:    req.Folder,
		Backend:   c.backend,
		Status:    model.DraftStatusSkipped,
		Error:     reason,
	}
	if err := c.journal.RecordDraft(ctx, rec); err != nil {
		slog.Warn("recording skip in journal", "recipient", req.Recipient, "error", err)
	}
}

func names(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Base(p))
	}
	return out
}
