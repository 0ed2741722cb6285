package htmlbody

import (
	"strings"
	"testing"
)

func TestFromPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no newlines",
			in:   "Please find the attached documents.",
			want: "<div style='font-family: Arial, sans-serif;'>Please find the attached documents.</div>",
		},
		{
			name: "each newline becomes a break",
			in:   "Dear recipient,\n\nPlease find the attached documents.\n\nBest regards",
			want: "<div style='font-family: Arial, sans-serif;'>Dear recipient,<br><br>Please find the attached documents.<br><br>Best regards</div>",
		},
		{
			name: "crlf is one newline",
			in:   "a\r\nb",
			want: "<div style='font-family: Arial, sans-serif;'>a<br>b</div>",
		},
		{
			name: "markup is escaped",
			in:   "Q&A <draft>",
			want: "<div style='font-family: Arial, sans-serif;'>Q&amp;A &lt;draft&gt;</div>",
		},
		{
			name: "empty text",
			in:   "",
			want: "<div style='font-family: Arial, sans-serif;'></div>",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromPlainText(tc.in); got != tc.want {
				t.Errorf("FromPlainText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFromPlainTextBreakCount(t *testing.T) {
	in := "one\ntwo\nthree\n\nfour"
	got := FromPlainText(in)

	if n := strings.Count(got, LineBreak); n != strings.Count(in, "\n") {
		t.Errorf("got %d breaks, want %d", n, strings.Count(in, "\n"))
	}
	if strings.Count(got, "<div") != 1 || strings.Count(got, "</div>") != 1 {
		t.Errorf("expected exactly one container, got %q", got)
	}
}

func TestFromMarkdown(t *testing.T) {
	got, err := FromMarkdown("Hello **team**\nsee attached")
	if err != nil {
		t.Fatalf("FromMarkdown returned error: %v", err)
	}

	for _, want := range []string{
		"<div style='font-family: Arial, sans-serif;'>",
		"<strong>team</strong>",
		"<br",
		"</div>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}
