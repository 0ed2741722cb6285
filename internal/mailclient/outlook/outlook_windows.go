//go:build windows

package outlook

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/model"
)

// sFalse is returned by CoInitializeEx when COM is already initialised
// on the thread.
const sFalse = 1

// Open starts Outlook (or attaches to the running instance) and opens the
// MAPI namespace. The calling goroutine stays locked to its OS thread
// until Close.
func (Opener) Open(_ context.Context) (mailclient.Client, error) {
	runtime.LockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			runtime.UnlockOSThread()
			return nil, fmt.Errorf("initialising COM: %w", err)
		}
	}

	c, err := dispatchApplication()
	if err != nil {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, err
	}
	return c, nil
}

func dispatchApplication() (*Client, error) {
	unknown, err := oleutil.CreateObject(progID)
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", progID, err)
	}
	defer unknown.Release()

	app, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, fmt.Errorf("querying %s dispatch: %w", progID, err)
	}

	ns, err := callDispatch(app, "GetNamespace", "MAPI")
	if err != nil {
		app.Release()
		return nil, fmt.Errorf("opening MAPI namespace: %w", err)
	}

	return &Client{app: app, ns: ns}, nil
}

// Client is an Outlook.Application automation session.
type Client struct {
	app *ole.IDispatch
	ns  *ole.IDispatch
}

var _ mailclient.Client = (*Client)(nil)

// Backend returns "outlook".
func (c *Client) Backend() string {
	return model.BackendOutlook
}

// NewMessage creates a new MailItem.
func (c *Client) NewMessage(_ context.Context) (mailclient.Message, error) {
	item, err := callDispatch(c.app, "CreateItem", olMailItem)
	if err != nil {
		return nil, fmt.Errorf("creating mail item: %w", err)
	}

	recipients, err := getDispatch(item, "Recipients")
	if err != nil {
		item.Release()
		return nil, fmt.Errorf("reading recipients: %w", err)
	}

	attachments, err := getDispatch(item, "Attachments")
	if err != nil {
		recipients.Release()
		item.Release()
		return nil, fmt.Errorf("reading attachments: %w", err)
	}

	return &Message{item: item, recipients: recipients, attachments: attachments}, nil
}

// Accounts lists Namespace.Accounts in order; the first is the default.
func (c *Client) Accounts(_ context.Context) ([]model.Account, error) {
	accounts, err := getDispatch(c.ns, "Accounts")
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	defer accounts.Release()

	countVar, err := oleutil.GetProperty(accounts, "Count")
	if err != nil {
		return nil, fmt.Errorf("counting accounts: %w", err)
	}
	count := int(countVar.Val)
	_ = countVar.Clear()

	var out []model.Account
	for i := 1; i <= count; i++ {
		acct, err := callDispatch(accounts, "Item", i)
		if err != nil {
			return out, fmt.Errorf("reading account %d: %w", i, err)
		}
		out = append(out, model.Account{
			DisplayName: getString(acct, "DisplayName"),
			Address:     getString(acct, "SmtpAddress"),
		})
		acct.Release()
	}

	return out, nil
}

// CurrentUser returns Namespace.CurrentUser.Address when it is an SMTP
// address, otherwise the Exchange primary SMTP address.
func (c *Client) CurrentUser(_ context.Context) (string, error) {
	user, err := getDispatch(c.ns, "CurrentUser")
	if err != nil {
		return "", fmt.Errorf("reading current user: %w", err)
	}
	defer user.Release()

	if addr := getString(user, "Address"); strings.Contains(addr, "@") {
		return addr, nil
	}

	entry, err := getDispatch(user, "AddressEntry")
	if err != nil {
		return "", nil
	}
	defer entry.Release()

	exchange, err := callDispatch(entry, "GetExchangeUser")
	if err != nil {
		return "", nil
	}
	defer exchange.Release()

	return getString(exchange, "PrimarySmtpAddress"), nil
}

// Close releases the session and unlocks the OS thread.
func (c *Client) Close() error {
	if c.ns != nil {
		c.ns.Release()
	}
	if c.app != nil {
		c.app.Release()
	}
	ole.CoUninitialize()
	runtime.UnlockOSThread()
	return nil
}

// Message wraps an unsaved Outlook MailItem.
type Message struct {
	item        *ole.IDispatch
	recipients  *ole.IDispatch
	attachments *ole.IDispatch
}

var _ mailclient.Message = (*Message)(nil)

// SetSubject sets MailItem.Subject.
func (m *Message) SetSubject(subject string) error {
	return putProperty(m.item, "Subject", subject)
}

// SetHTMLBody sets MailItem.HTMLBody.
func (m *Message) SetHTMLBody(body string) error {
	return putProperty(m.item, "HTMLBody", body)
}

// AddRecipient calls Recipients.Add and sets the recipient type.
func (m *Message) AddRecipient(address string, kind mailclient.RecipientType) error {
	r, err := callDispatch(m.recipients, "Add", address)
	if err != nil {
		return fmt.Errorf("adding recipient %s: %w", address, err)
	}
	defer r.Release()
	return putProperty(r, "Type", int(kind))
}

// ResolveRecipients calls Recipients.ResolveAll.
func (m *Message) ResolveRecipients(_ context.Context) (bool, error) {
	v, err := oleutil.CallMethod(m.recipients, "ResolveAll")
	if err != nil {
		return false, fmt.Errorf("resolving recipients: %w", err)
	}
	defer v.Clear()
	resolved, _ := v.Value().(bool)
	return resolved, nil
}

// AddAttachment calls Attachments.Add with the file path.
func (m *Message) AddAttachment(path string) error {
	a, err := callDispatch(m.attachments, "Add", path)
	if err != nil {
		return fmt.Errorf("attaching %s: %w", path, err)
	}
	a.Release()
	return nil
}

// Save calls MailItem.Save, which files the item under Drafts, and
// returns its EntryID.
func (m *Message) Save(_ context.Context) (string, error) {
	v, err := oleutil.CallMethod(m.item, "Save")
	if err != nil {
		return "", fmt.Errorf("saving mail item: %w", err)
	}
	_ = v.Clear()

	ref := getString(m.item, "EntryID")
	m.release()
	return ref, nil
}

// Discard closes the item without saving.
func (m *Message) Discard() error {
	if m.item == nil {
		return nil
	}
	v, err := oleutil.CallMethod(m.item, "Close", olDiscard)
	if err == nil {
		_ = v.Clear()
	}
	m.release()
	return err
}

func (m *Message) release() {
	for _, d := range []*ole.IDispatch{m.attachments, m.recipients, m.item} {
		if d != nil {
			d.Release()
		}
	}
	m.item, m.recipients, m.attachments = nil, nil, nil
}

func callDispatch(d *ole.IDispatch, name string, args ...interface{}) (*ole.IDispatch, error) {
	v, err := oleutil.CallMethod(d, name, args...)
	if err != nil {
		return nil, err
	}
	disp := v.ToIDispatch()
	if disp == nil {
		return nil, fmt.Errorf("%s returned no object", name)
	}
	return disp, nil
}

func getDispatch(d *ole.IDispatch, name string) (*ole.IDispatch, error) {
	v, err := oleutil.GetProperty(d, name)
	if err != nil {
		return nil, err
	}
	disp := v.ToIDispatch()
	if disp == nil {
		return nil, fmt.Errorf("%s is empty", name)
	}
	return disp, nil
}

func getString(d *ole.IDispatch, name string) string {
	v, err := oleutil.GetProperty(d, name)
	if err != nil {
		return ""
	}
	defer v.Clear()
	return v.ToString()
}

func putProperty(d *ole.IDispatch, name string, value interface{}) error {
	v, err := oleutil.PutProperty(d, name, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	_ = v.Clear()
	return nil
}
