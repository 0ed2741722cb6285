package backends

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/nhle/maildraft/internal/mailclient/emldir"
	"github.com/nhle/maildraft/internal/mailclient/imapdraft"
	"github.com/nhle/maildraft/internal/mailclient/outlook"
	"github.com/nhle/maildraft/internal/model"
)

func TestNewSelectsBackend(t *testing.T) {
	fs := afero.NewMemMapFs()
	pw := func(string) (string, error) { return "secret", nil }

	op, err := New(model.MailConfig{Backend: model.BackendEML, EML: model.EMLConfig{Dir: "/d"}}, fs, nil)
	if err != nil {
		t.Fatalf("eml: %v", err)
	}
	if _, ok := op.(*emldir.Client); !ok {
		t.Errorf("eml backend built %T", op)
	}

	op, err = New(model.MailConfig{Backend: model.BackendOutlook}, fs, nil)
	if err != nil {
		t.Fatalf("outlook: %v", err)
	}
	if _, ok := op.(outlook.Opener); !ok {
		t.Errorf("outlook backend built %T", op)
	}

	op, err = New(model.MailConfig{
		Backend: model.BackendIMAP,
		IMAP:    model.IMAPConfig{Host: "imap.example.com", Port: "993", Username: "me", Security: "tls"},
	}, fs, pw)
	if err != nil {
		t.Fatalf("imap: %v", err)
	}
	if _, ok := op.(*imapdraft.Opener); !ok {
		t.Errorf("imap backend built %T", op)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(model.MailConfig{Backend: "pigeon"}, nil, nil); err == nil {
		t.Error("expected error for unknown backend")
	}

	imapCfg := model.MailConfig{Backend: model.BackendIMAP, IMAP: model.IMAPConfig{Username: "me"}}
	if _, err := New(imapCfg, nil, nil); err == nil {
		t.Error("expected error without password source")
	}

	boom := errors.New("no keyring")
	_, err := New(imapCfg, nil, func(string) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped password error, got %v", err)
	}
}
