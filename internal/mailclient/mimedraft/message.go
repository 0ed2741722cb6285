// Package mimedraft builds RFC 5322 draft messages for backends that
// store drafts as raw MIME (IMAP, .eml files).
package mimedraft

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/nhle/maildraft/internal/mailclient"
)

// SaveFunc persists a rendered draft and returns a reference to it.
type SaveFunc func(ctx context.Context, raw []byte, msg *Message) (string, error)

// officeTypes covers the allow-listed extensions that system MIME
// tables often lack.
var officeTypes = map[string]string{
	".pdf":  "application/pdf",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Recipient is an address as typed plus its resolution result.
type Recipient struct {
	Typed    string
	Kind     mailclient.RecipientType
	Resolved *mail.Address
}

// Message implements mailclient.Message on top of go-message.
type Message struct {
	fs          afero.Fs
	from        string
	subject     string
	htmlBody    string
	recipients  []Recipient
	attachments []string
	headers     map[string]string
	save        SaveFunc
	now         func() time.Time
	discarded   bool
}

var _ mailclient.Message = (*Message)(nil)

// New returns an empty draft. from may be empty; save is called by Save.
func New(fs afero.Fs, from string, save SaveFunc) *Message {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Message{
		fs:      fs,
		from:    from,
		headers: make(map[string]string),
		save:    save,
		now:     time.Now,
	}
}

// SetHeader adds an extra header written verbatim, e.g. X-Unsent.
func (m *Message) SetHeader(key, value string) {
	m.headers[key] = value
}

// SetClock overrides the Date header clock.
func (m *Message) SetClock(now func() time.Time) {
	m.now = now
}

// SetSubject sets the Subject header.
func (m *Message) SetSubject(subject string) error {
	m.subject = subject
	return nil
}

// SetHTMLBody sets the text/html body part.
func (m *Message) SetHTMLBody(body string) error {
	m.htmlBody = body
	return nil
}

// AddRecipient records address as typed.
func (m *Message) AddRecipient(address string, kind mailclient.RecipientType) error {
	if strings.TrimSpace(address) == "" {
		return errors.New("recipient address is empty")
	}
	m.recipients = append(m.recipients, Recipient{Typed: address, Kind: kind})
	return nil
}

// ResolveRecipients parses each typed address. There is no address book,
// so resolution means the address is syntactically valid.
func (m *Message) ResolveRecipients(_ context.Context) (bool, error) {
	all := true
	for i := range m.recipients {
		addr, err := mail.ParseAddress(m.recipients[i].Typed)
		if err != nil {
			m.recipients[i].Resolved = nil
			all = false
			continue
		}
		m.recipients[i].Resolved = addr
	}
	return all, nil
}

// AddAttachment checks that path is a readable regular file and queues it.
func (m *Message) AddAttachment(path string) error {
	info, err := m.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("attaching %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("attaching %s: not a regular file", path)
	}
	m.attachments = append(m.attachments, path)
	return nil
}

// Save renders the message and hands it to the backend's SaveFunc.
func (m *Message) Save(ctx context.Context) (string, error) {
	if m.discarded {
		return "", errors.New("message was discarded")
	}
	raw, err := m.Render()
	if err != nil {
		return "", err
	}
	return m.save(ctx, raw, m)
}

// Discard drops the message.
func (m *Message) Discard() error {
	m.discarded = true
	return nil
}

// Subject returns the current subject.
func (m *Message) Subject() string {
	return m.subject
}

// Recipients returns the recipients in insertion order.
func (m *Message) Recipients() []Recipient {
	return m.recipients
}

// Attachments returns the queued attachment paths in order.
func (m *Message) Attachments() []string {
	return m.attachments
}

// Render writes the full MIME message: a multipart/mixed with the HTML
// body inline followed by one part per attachment.
func (m *Message) Render() ([]byte, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetSubject(m.subject)
	h.SetMessageID(uuid.New().String() + "@maildraft")

	if m.from != "" {
		if addr, err := mail.ParseAddress(m.from); err == nil {
			h.SetAddressList("From", []*mail.Address{addr})
		} else {
			h.Set("From", m.from)
		}
	}

	m.writeRecipients(&h)

	for k, v := range m.headers {
		h.Set(k, v)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	if err := m.writeBody(mw); err != nil {
		return nil, err
	}

	for _, path := range m.attachments {
		if err := m.writeAttachment(mw, path); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	return buf.Bytes(), nil
}

// writeRecipients groups recipients by type. A header with any
// unresolved entry is written as typed text.
func (m *Message) writeRecipients(h *mail.Header) {
	for _, kind := range []mailclient.RecipientType{
		mailclient.RecipientTo, mailclient.RecipientCC, mailclient.RecipientBCC,
	} {
		var addrs []*mail.Address
		var typed []string
		resolved := true
		for _, r := range m.recipients {
			if r.Kind != kind {
				continue
			}
			typed = append(typed, r.Typed)
			if r.Resolved == nil {
				resolved = false
				continue
			}
			addrs = append(addrs, r.Resolved)
		}
		if len(typed) == 0 {
			continue
		}
		if resolved {
			h.SetAddressList(kind.String(), addrs)
		} else {
			h.Set(kind.String(), strings.Join(typed, ", "))
		}
	}
}

func (m *Message) writeBody(mw *mail.Writer) error {
	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline part: %w", err)
	}

	var ih mail.InlineHeader
	ih.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	w, err := iw.CreatePart(ih)
	if err != nil {
		return fmt.Errorf("creating html part: %w", err)
	}
	if _, err := io.WriteString(w, m.htmlBody); err != nil {
		return fmt.Errorf("writing html body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing html part: %w", err)
	}

	return iw.Close()
}

func (m *Message) writeAttachment(mw *mail.Writer, path string) error {
	name := filepath.Base(path)

	var ah mail.AttachmentHeader
	ah.SetContentType(ContentType(name), nil)
	ah.SetFilename(name)

	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("creating attachment part %s: %w", name, err)
	}

	f, err := m.fs.Open(path)
	if err != nil {
		return fmt.Errorf("opening attachment %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("writing attachment %s: %w", name, err)
	}

	return w.Close()
}

// ContentType returns the MIME type for a file name.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := officeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
