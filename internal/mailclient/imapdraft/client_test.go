package imapdraft

import (
	"context"
	"testing"

	"github.com/emersion/go-imap/v2"
)

func TestPickDraftsMailbox(t *testing.T) {
	cases := []struct {
		name string
		list []*imap.ListData
		want string
	}{
		{
			name: "special use wins",
			list: []*imap.ListData{
				{Mailbox: "INBOX", Delim: '/'},
				{Mailbox: "Drafts", Delim: '/'},
				{Mailbox: "[Gmail]/Drafts", Delim: '/', Attrs: []imap.MailboxAttr{imap.MailboxAttrDrafts}},
			},
			want: "[Gmail]/Drafts",
		},
		{
			name: "name match under parent",
			list: []*imap.ListData{
				{Mailbox: "INBOX", Delim: '.'},
				{Mailbox: "INBOX.drafts", Delim: '.'},
			},
			want: "INBOX.drafts",
		},
		{
			name: "fallback",
			list: []*imap.ListData{{Mailbox: "INBOX", Delim: '/'}},
			want: "Drafts",
		},
		{
			name: "empty listing",
			list: nil,
			want: "Drafts",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := pickDraftsMailbox(tc.list); got != tc.want {
				t.Errorf("pickDraftsMailbox() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIdentity(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit from", Config{Username: "jdoe", From: "John <jdoe@example.com>"}, "John <jdoe@example.com>"},
		{"address login", Config{Username: "jdoe@example.com"}, "jdoe@example.com"},
		{"bare login", Config{Username: "jdoe"}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Client{cfg: tc.cfg}
			got, err := c.CurrentUser(context.Background())
			if err != nil || got != tc.want {
				t.Errorf("CurrentUser() = %q, %v; want %q", got, err, tc.want)
			}
		})
	}
}
