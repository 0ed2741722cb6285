package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/nhle/maildraft/internal/attach"
	"github.com/nhle/maildraft/internal/composer"
	"github.com/nhle/maildraft/internal/credential"
	"github.com/nhle/maildraft/internal/identity"
	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/mailclient/backends"
	"github.com/nhle/maildraft/internal/model"
	"github.com/nhle/maildraft/internal/store"
)

// identityTimeout bounds identity detection at startup when no compose
// timeout is configured.
const identityTimeout = 15 * time.Second

// env is the wired application shared by the subcommands.
type env struct {
	cfg      *model.AppConfig
	fs       afero.Fs
	selector *attach.Selector
	opener   mailclient.Opener
	journal  *store.SQLiteStore
	composer *composer.Composer
}

// loadConfig reads the config file and installs the default logger.
func loadConfig(g globalFlags, logOut io.Writer) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if logOut != nil {
		slog.SetDefault(newLogger(logOut, cfg.Log.Level))
	}
	return cfg, nil
}

// newEnv wires the mail backend, the journal and the composer.
// withMail=false skips the mail backend, for commands that only read.
func newEnv(cfg *model.AppConfig, withMail bool) (*env, error) {
	e := &env{
		cfg: cfg,
		fs:  afero.NewOsFs(),
	}
	e.selector = attach.NewSelector(e.fs)

	if cfg.Journal.Enabled {
		j, err := store.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		e.journal = j
	}

	if !withMail {
		return e, nil
	}

	opener, err := backends.New(cfg.Mail, e.fs, credential.IMAPPassword)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.opener = opener

	opts := []composer.Option{composer.WithTimeout(cfg.Compose.Timeout())}
	if e.journal != nil {
		opts = append(opts, composer.WithJournal(e.journal))
	}
	e.composer = composer.New(opener, e.selector, cfg.Mail.Backend, opts...)

	return e, nil
}

// Close releases the journal.
func (e *env) Close() {
	if e.journal == nil {
		return
	}
	if err := e.journal.Close(); err != nil {
		slog.Warn("closing journal", "error", err)
	}
}

// detectUser returns identity.address from the config, or asks the mail
// client and falls back to a username@domain guess.
func (e *env) detectUser(ctx context.Context) string {
	if e.cfg.Identity.Address != "" {
		return e.cfg.Identity.Address
	}

	timeout := e.cfg.Compose.Timeout()
	if timeout <= 0 || timeout > identityTimeout {
		timeout = identityTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var client mailclient.Client
	if e.opener != nil {
		c, err := e.opener.Open(ctx)
		if err != nil {
			slog.Info("mail client unavailable for identity detection", "error", err)
		} else {
			client = c
			defer c.Close()
		}
	}

	return identity.Detect(ctx, client, identity.DefaultEnv(), e.cfg.Identity.DefaultDomain)
}
