package model

import (
	"strings"
	"time"
)

// DraftStatus values describe the outcome of a single draft attempt.
const (
	DraftStatusCreated = "created"
	DraftStatusSkipped = "skipped"
	DraftStatusFailed  = "failed"
)

// DraftRequest holds everything needed to compose one draft message.
// A request produces at most one draft.
type DraftRequest struct {
	// Recipient is the address string added as the single To recipient.
	Recipient string

	// Subject is set on the message verbatim.
	Subject string

	// HTMLBody is the literal HTML body. Plain text must be converted
	// by the caller before building the request.
	HTMLBody string

	// Folder is the directory whose attachable files are attached.
	Folder string
}

// Trimmed returns a copy of the request with surrounding whitespace
// removed from the recipient, subject, and folder.
func (r DraftRequest) Trimmed() DraftRequest {
	return DraftRequest{
		Recipient: strings.TrimSpace(r.Recipient),
		Subject:   strings.TrimSpace(r.Subject),
		HTMLBody:  r.HTMLBody,
		Folder:    strings.TrimSpace(r.Folder),
	}
}

// BatchEntry is one (recipient, folder) row read from a batch file.
type BatchEntry struct {
	Row       int
	Recipient string
	Folder    string
}

// DraftRecord is a journal entry describing one draft attempt.
type DraftRecord struct {
	ID          string    `db:"id"`
	Recipient   string    `db:"recipient"`
	Subject     string    `db:"subject"`
	Folder      string    `db:"folder"`
	Attachments []string  `db:"-"`
	Backend     string    `db:"backend"`
	DraftRef    string    `db:"draft_ref"`
	Status      string    `db:"status"`
	Error       string    `db:"error"`
	CreatedAt   time.Time `db:"created_at"`
}

// Account is a mail account known to the mail client.
type Account struct {
	DisplayName string
	Address     string
}
