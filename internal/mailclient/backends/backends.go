// Package backends builds the configured mail client opener.
package backends

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/mailclient/emldir"
	"github.com/nhle/maildraft/internal/mailclient/imapdraft"
	"github.com/nhle/maildraft/internal/mailclient/outlook"
	"github.com/nhle/maildraft/internal/model"
)

// PasswordFunc returns the IMAP password for a username.
type PasswordFunc func(username string) (string, error)

// New returns an opener for cfg.Backend. Attachments and .eml drafts go
// through fs; nil means the OS filesystem. password is only consulted
// for the imap backend.
func New(cfg model.MailConfig, fs afero.Fs, password PasswordFunc) (mailclient.Opener, error) {
	switch cfg.Backend {
	case model.BackendOutlook:
		return outlook.NewOpener(), nil

	case model.BackendEML:
		return emldir.New(fs, cfg.EML.Dir, cfg.EML.From), nil

	case model.BackendIMAP:
		if password == nil {
			return nil, fmt.Errorf("no password source for imap user %s", cfg.IMAP.Username)
		}
		pw, err := password(cfg.IMAP.Username)
		if err != nil {
			return nil, fmt.Errorf("loading imap password for %s: %w", cfg.IMAP.Username, err)
		}
		return imapdraft.NewOpener(imapdraft.Config{
			Host:          cfg.IMAP.Host,
			Port:          cfg.IMAP.Port,
			Username:      cfg.IMAP.Username,
			Password:      pw,
			Security:      cfg.IMAP.Security,
			DraftsMailbox: cfg.IMAP.DraftsMailbox,
			From:          cfg.IMAP.From,
		}, fs), nil

	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}
