// Package mailclienttest provides an in-memory mail client that records
// every automation call, for tests.
package mailclienttest

import (
	"context"
	"fmt"
	"net/mail"
	"sync"

	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/model"
)

// Recipient is a recipient as added to a recorded draft.
type Recipient struct {
	Address  string
	Kind     mailclient.RecipientType
	Resolved bool
}

// Draft is one message created through the recorder.
type Draft struct {
	Subject     string
	HTMLBody    string
	Recipients  []Recipient
	Attachments []string
	Saved       bool
	Discarded   bool
	Ref         string
}

// Recorder implements mailclient.Opener and mailclient.Client.
type Recorder struct {
	mu sync.Mutex

	// Failure injection.
	OpenErr   error
	SaveErr   error
	AttachErr error

	// Identity answers.
	AccountList []model.Account
	AccountsErr error
	User        string
	UserErr     error

	Opens    int
	Closes   int
	Messages []*Draft
}

var (
	_ mailclient.Opener = (*Recorder)(nil)
	_ mailclient.Client = (*Recorder)(nil)
)

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

// Open counts the session and returns the recorder itself.
func (r *Recorder) Open(_ context.Context) (mailclient.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.OpenErr != nil {
		return nil, r.OpenErr
	}
	r.Opens++
	return r, nil
}

// Backend returns "recorder".
func (r *Recorder) Backend() string {
	return "recorder"
}

// NewMessage starts a recorded draft.
func (r *Recorder) NewMessage(_ context.Context) (mailclient.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := &Draft{}
	r.Messages = append(r.Messages, d)
	return &message{r: r, d: d}, nil
}

// Accounts returns AccountList.
func (r *Recorder) Accounts(_ context.Context) ([]model.Account, error) {
	return r.AccountList, r.AccountsErr
}

// CurrentUser returns User.
func (r *Recorder) CurrentUser(_ context.Context) (string, error) {
	return r.User, r.UserErr
}

// Close counts the session close.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closes++
	return nil
}

// Saved returns the drafts that were saved, in order.
func (r *Recorder) Saved() []*Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Draft
	for _, d := range r.Messages {
		if d.Saved {
			out = append(out, d)
		}
	}
	return out
}

type message struct {
	r *Recorder
	d *Draft
}

func (m *message) SetSubject(subject string) error {
	m.d.Subject = subject
	return nil
}

func (m *message) SetHTMLBody(body string) error {
	m.d.HTMLBody = body
	return nil
}

func (m *message) AddRecipient(address string, kind mailclient.RecipientType) error {
	m.d.Recipients = append(m.d.Recipients, Recipient{Address: address, Kind: kind})
	return nil
}

func (m *message) ResolveRecipients(_ context.Context) (bool, error) {
	all := true
	for i := range m.d.Recipients {
		_, err := mail.ParseAddress(m.d.Recipients[i].Address)
		m.d.Recipients[i].Resolved = err == nil
		all = all && err == nil
	}
	return all, nil
}

func (m *message) AddAttachment(path string) error {
	if m.r.AttachErr != nil {
		return m.r.AttachErr
	}
	m.d.Attachments = append(m.d.Attachments, path)
	return nil
}

func (m *message) Save(_ context.Context) (string, error) {
	if m.r.SaveErr != nil {
		return "", m.r.SaveErr
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.d.Saved = true
	m.d.Ref = fmt.Sprintf("draft-%d", len(m.r.Messages))
	return m.d.Ref, nil
}

func (m *message) Discard() error {
	m.d.Discarded = true
	return nil
}
