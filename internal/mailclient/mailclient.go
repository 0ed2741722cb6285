// Package mailclient defines the automation surface of a desktop or
// server mail client. maildraft only ever calls these operations; the
// backends in the sub-packages translate them to Outlook COM, IMAP or
// .eml files.
package mailclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/maildraft/internal/model"
)

// ErrUnsupported is returned by backends that cannot run on this platform.
var ErrUnsupported = errors.New("mail backend not supported on this platform")

// AuthError indicates that the mail client rejected the configured
// credentials.
type AuthError struct {
	Backend string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Backend, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// RecipientType mirrors the Outlook OlMailRecipientType values.
type RecipientType int

const (
	RecipientTo  RecipientType = 1
	RecipientCC  RecipientType = 2
	RecipientBCC RecipientType = 3
)

// String returns the header name for the recipient type.
func (t RecipientType) String() string {
	switch t {
	case RecipientCC:
		return "Cc"
	case RecipientBCC:
		return "Bcc"
	default:
		return "To"
	}
}

// Message is a new, unsaved mail item.
type Message interface {
	SetSubject(subject string) error
	SetHTMLBody(body string) error

	// AddRecipient adds address as typed; it is not validated until
	// ResolveRecipients runs.
	AddRecipient(address string, kind RecipientType) error

	// ResolveRecipients resolves every recipient against the client's
	// address book and reports whether all of them resolved. Unresolved
	// recipients stay on the message as typed text.
	ResolveRecipients(ctx context.Context) (bool, error)

	// AddAttachment attaches the file at path.
	AddAttachment(path string) error

	// Save stores the message in the default drafts location without
	// sending it and returns a backend-specific reference to the draft.
	Save(ctx context.Context) (string, error)

	// Discard releases an unsaved message.
	Discard() error
}

// Client is an open automation session.
//
// A Client must be used from the goroutine that opened it.
type Client interface {
	// Backend returns the backend name, e.g. "outlook".
	Backend() string

	NewMessage(ctx context.Context) (Message, error)

	// Accounts lists the accounts configured in the client, default first.
	Accounts(ctx context.Context) ([]model.Account, error)

	// CurrentUser returns the address of the signed-in user, or "" when
	// the client does not know it.
	CurrentUser(ctx context.Context) (string, error)

	Close() error
}

// Opener starts automation sessions.
type Opener interface {
	Open(ctx context.Context) (Client, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Client, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Client, error) {
	return f(ctx)
}
