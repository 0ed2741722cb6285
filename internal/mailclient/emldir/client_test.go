package emldir

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/nhle/maildraft/internal/mailclient"
)

func TestSaveWritesUnsentEML(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/docs/report.pdf", []byte("pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(fs, "/drafts", "me@example.com")
	c.now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }

	msg, err := c.NewMessage(context.Background())
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	_ = msg.SetSubject("Documents Attached")
	_ = msg.SetHTMLBody("<p>hi</p>")
	_ = msg.AddRecipient("alice@example.com", mailclient.RecipientTo)
	if _, err := msg.ResolveRecipients(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := msg.AddAttachment("/docs/report.pdf"); err != nil {
		t.Fatal(err)
	}

	path, err := msg.Save(context.Background())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if filepath.Dir(path) != "/drafts" {
		t.Errorf("draft saved to %s, want /drafts", path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "20261015-093000_alice_example.com_") || !strings.HasSuffix(base, ".eml") {
		t.Errorf("unexpected file name %q", base)
	}

	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("reading draft: %v", err)
	}
	for _, want := range []string{"X-Unsent: 1", "Subject: Documents Attached", "report.pdf"} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("expected %q in draft", want)
		}
	}
}

func TestIdentityFromConfiguredAddress(t *testing.T) {
	c := New(afero.NewMemMapFs(), "/drafts", "me@example.com")

	accts, err := c.Accounts(context.Background())
	if err != nil || len(accts) != 1 || accts[0].Address != "me@example.com" {
		t.Errorf("Accounts() = %v, %v", accts, err)
	}

	empty := New(afero.NewMemMapFs(), "/drafts", "")
	accts, err = empty.Accounts(context.Background())
	if err != nil || len(accts) != 0 {
		t.Errorf("Accounts() without from = %v, %v; want none", accts, err)
	}
}
