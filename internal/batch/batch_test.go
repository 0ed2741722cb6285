package batch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"

	"github.com/nhle/maildraft/internal/attach"
	"github.com/nhle/maildraft/internal/composer"
	"github.com/nhle/maildraft/internal/mailclient/mailclienttest"
	"github.com/nhle/maildraft/internal/model"
)

func utf16File(t *testing.T, text string) *bytes.Reader {
	t.Helper()
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	b, err := enc.Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return bytes.NewReader(b)
}

func TestReadEntriesUTF16(t *testing.T) {
	r := utf16File(t, "Name,Receiver,Folder\r\nAlice,alice@example.com,C:\\Docs\\Alice\r\nBob,bob@example.com, /data/bob \r\n")

	entries, err := ReadEntries(r, model.EncodingUTF16)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	want := []model.BatchEntry{
		{Row: 1, Recipient: "alice@example.com", Folder: `C:\Docs\Alice`},
		{Row: 2, Recipient: "bob@example.com", Folder: "/data/bob"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestReadEntriesFormats(t *testing.T) {
	cases := []struct {
		name string
		enc  string
		in   func(t *testing.T) *bytes.Reader
	}{
		{
			name: "utf-16 tab delimited",
			enc:  model.EncodingUTF16,
			in: func(t *testing.T) *bytes.Reader {
				return utf16File(t, "Receiver\tFolder\nalice@example.com\t/data/alice\n")
			},
		},
		{
			name: "utf-8 with bom",
			enc:  model.EncodingUTF8,
			in: func(t *testing.T) *bytes.Reader {
				return bytes.NewReader([]byte("\xef\xbb\xbfReceiver,Folder\nalice@example.com,/data/alice\n"))
			},
		},
		{
			name: "utf-8 short row",
			enc:  model.EncodingUTF8,
			in: func(t *testing.T) *bytes.Reader {
				return bytes.NewReader([]byte("Folder,Receiver\n/data/alice,alice@example.com,extra\n"))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := ReadEntries(tc.in(t), tc.enc)
			if err != nil {
				t.Fatalf("ReadEntries: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("got %d entries", len(entries))
			}
			if entries[0].Recipient != "alice@example.com" || entries[0].Folder != "/data/alice" {
				t.Errorf("entry = %+v", entries[0])
			}
		})
	}
}

func TestReadEntriesBareQuoteInFolder(t *testing.T) {
	in := bytes.NewReader([]byte("Receiver,Folder\nalice@example.com,/data/O\"Brien\nbob@example.com,/data/bob\n"))

	entries, err := ReadEntries(in, model.EncodingUTF8)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Folder != `/data/O"Brien` {
		t.Errorf("folder = %q", entries[0].Folder)
	}
	if entries[1].Recipient != "bob@example.com" || entries[1].Row != 2 {
		t.Errorf("entry = %+v", entries[1])
	}
}

func TestReadEntriesHeaderErrors(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		missing string
	}{
		{"empty file", "", ColumnReceiver},
		{"no folder", "Receiver,Path\na@example.com,/x\n", ColumnFolder},
		{"case sensitive", "receiver,folder\na@example.com,/x\n", ColumnReceiver},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadEntries(strings.NewReader(tc.text), model.EncodingUTF8)
			var herr *HeaderError
			if !errors.As(err, &herr) {
				t.Fatalf("err = %v, want HeaderError", err)
			}
			if herr.Missing != tc.missing {
				t.Errorf("missing = %q, want %q", herr.Missing, tc.missing)
			}
		})
	}
}

func TestReadEntriesUnknownEncoding(t *testing.T) {
	if _, err := ReadEntries(strings.NewReader("Receiver,Folder\n"), "latin1"); err == nil {
		t.Fatal("expected error")
	}
}

type fixture struct {
	rec *mailclienttest.Recorder
	out *bytes.Buffer
	sel *attach.Selector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/data/alice/report.pdf": "pdf",
		"/data/alice/notes.txt":  "txt",
		"/data/bob/deck.pptx":    "pptx",
		"/data/empty/readme.md":  "md",
	}
	for path, body := range files {
		if err := afero.WriteFile(fs, path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{
		rec: mailclienttest.New(),
		out: &bytes.Buffer{},
		sel: attach.NewSelector(fs),
	}
}

func (f *fixture) runner(opts Options) *Runner {
	c := composer.New(f.rec, f.sel, "recorder")
	if opts.Subject == "" {
		opts.Subject = model.DefaultSubject
		opts.Body = model.DefaultBatchBody
	}
	return NewRunner(c, f.sel, f.out, opts)
}

func TestRunCreatesDraftWithOnlyAllowedFiles(t *testing.T) {
	f := newFixture(t)
	entries := []model.BatchEntry{{Row: 1, Recipient: "alice@example.com", Folder: "/data/alice"}}

	sum, err := f.runner(Options{}).Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Created != 1 || sum.Total != 1 {
		t.Errorf("summary = %+v", sum)
	}

	saved := f.rec.Saved()
	if len(saved) != 1 {
		t.Fatalf("saved drafts = %d, want 1", len(saved))
	}
	d := saved[0]
	if len(d.Attachments) != 1 || d.Attachments[0] != "/data/alice/report.pdf" {
		t.Errorf("attachments = %v", d.Attachments)
	}
	if d.Subject != model.DefaultSubject || d.HTMLBody != model.DefaultBatchBody {
		t.Errorf("subject/body = %q/%q", d.Subject, d.HTMLBody)
	}
	if !strings.Contains(f.out.String(), "Creating draft for alice@example.com from folder /data/alice") {
		t.Errorf("output = %q", f.out.String())
	}
}

func TestRunSkipsMissingFolders(t *testing.T) {
	f := newFixture(t)
	entries := []model.BatchEntry{
		{Row: 1, Recipient: "ghost@example.com", Folder: "/data/ghost"},
		{Row: 2, Recipient: "", Folder: "/data/alice"},
		{Row: 3, Recipient: "carol@example.com", Folder: "/data/empty"},
	}

	sum, err := f.runner(Options{}).Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Skipped != 2 || sum.Created != 1 {
		t.Errorf("summary = %+v", sum)
	}
	saved := f.rec.Saved()
	if len(saved) != 1 || saved[0].Recipients[0].Address != "carol@example.com" {
		t.Fatalf("saved = %+v", saved)
	}
	if len(saved[0].Attachments) != 0 {
		t.Errorf("empty folder produced attachments %v", saved[0].Attachments)
	}
	if !strings.Contains(f.out.String(), "Skipped: folder not found for ghost@example.com -> /data/ghost") {
		t.Errorf("output = %q", f.out.String())
	}
}

func TestRunFailurePolicy(t *testing.T) {
	entries := []model.BatchEntry{
		{Row: 1, Recipient: "alice@example.com", Folder: "/data/alice"},
		{Row: 2, Recipient: "bob@example.com", Folder: "/data/bob"},
	}
	boom := errors.New("outlook is busy")

	t.Run("abort", func(t *testing.T) {
		f := newFixture(t)
		f.rec.SaveErr = boom

		sum, err := f.runner(Options{}).Run(context.Background(), entries)
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
		if sum.Failed != 1 || sum.Total != 1 {
			t.Errorf("summary = %+v", sum)
		}
		if len(f.rec.Messages) != 1 {
			t.Errorf("messages = %d, want 1 (abort after first)", len(f.rec.Messages))
		}
	})

	t.Run("keep going", func(t *testing.T) {
		f := newFixture(t)
		f.rec.SaveErr = boom

		sum, err := f.runner(Options{KeepGoing: true}).Run(context.Background(), entries)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Failed != 2 || sum.Total != 2 {
			t.Errorf("summary = %+v", sum)
		}
	})
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t)
	entries := []model.BatchEntry{
		{Row: 1, Recipient: "alice@example.com", Folder: "/data/alice"},
		{Row: 2, Recipient: "ghost@example.com", Folder: "/data/ghost"},
	}

	sum, err := f.runner(Options{DryRun: true}).Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.rec.Opens != 0 {
		t.Errorf("dry run opened the mail client %d times", f.rec.Opens)
	}
	if sum.Created != 1 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.Contains(f.out.String(), "Would create draft for alice@example.com from folder /data/alice (1 attachments)") {
		t.Errorf("output = %q", f.out.String())
	}
}

func TestSummaryString(t *testing.T) {
	s := Summary{Total: 4, Created: 2, Skipped: 1, Failed: 1}
	if got := s.String(); got != "4 rows: 2 created, 1 skipped, 1 failed" {
		t.Errorf("String() = %q", got)
	}
}
