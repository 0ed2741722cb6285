package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/maildraft/internal/app"
	"github.com/nhle/maildraft/internal/batch"
	"github.com/nhle/maildraft/internal/credential"
	"github.com/nhle/maildraft/internal/mailclient"
	"github.com/nhle/maildraft/internal/model"
	"github.com/nhle/maildraft/internal/store"
	"github.com/nhle/maildraft/internal/theme"
	"github.com/nhle/maildraft/internal/ui/draftform"
)

// newFlagSet returns a subcommand flag set writing errors to stderr.
func newFlagSet(name, argsUsage string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: maildraft %s %s\n", name, argsUsage)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args and maps the outcome to an exit code; ok is
// false when the caller should return code.
func parseFlags(fs *pflag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runBatch(g globalFlags, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("batch", "<csv_file>", stderr)
	keepGoing := fs.Bool("keep-going", false, "continue with the next row when a draft fails")
	dryRun := fs.BoolP("dry-run", "n", false, "list what would be drafted without opening the mail client")
	encoding := fs.String("encoding", "", "input encoding: utf-16 or utf-8 (default from config)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(stdout, "Usage: maildraft batch <csv_file>")
		return 0
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(g, stderr)
	if err != nil {
		slog.Error("loading config", "error", err)
		return 1
	}
	if fs.Changed("keep-going") {
		cfg.Batch.KeepGoing = *keepGoing
	}
	if *encoding != "" {
		cfg.Batch.Encoding = *encoding
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Error("opening batch file", "path", path, "error", err)
		return 1
	}
	defer f.Close()

	entries, err := batch.ReadEntries(f, cfg.Batch.Encoding)
	if err != nil {
		var herr *batch.HeaderError
		if errors.As(err, &herr) {
			fmt.Fprintf(stderr, "%s: %v\n", path, herr)
			return 1
		}
		slog.Error("reading batch file", "path", path, "error", err)
		return 1
	}

	e, err := newEnv(cfg, !*dryRun)
	if err != nil {
		slog.Error("starting", "error", err)
		return 1
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var drafter batch.Drafter
	if e.composer != nil {
		drafter = e.composer
	}
	runner := batch.NewRunner(drafter, e.selector, stdout, batch.Options{
		Subject:   cfg.Batch.Subject,
		Body:      cfg.Batch.Body,
		KeepGoing: cfg.Batch.KeepGoing,
		DryRun:    *dryRun,
	})

	sum, err := runner.Run(ctx, entries)
	fmt.Fprintln(stdout, sum.String())
	if err != nil {
		slog.Error("batch aborted", "error", err)
		if hint := loginHint(err); hint != "" {
			fmt.Fprintln(stderr, hint)
		}
		fmt.Fprintln(stderr, "Batch aborted; rerun with --keep-going to continue past failures.")
		return 1
	}
	if sum.Failed > 0 {
		return 1
	}
	return 0
}

func runForm(g globalFlags, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("form", "", stderr)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(g, nil)
	if err != nil {
		fmt.Fprintf(stderr, "loading config: %v\n", err)
		return 1
	}

	// The terminal belongs to the UI; logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		fmt.Fprintf(stderr, "creating log directory: %v\n", err)
		return 1
	}
	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(stderr, "opening log file: %v\n", err)
		return 1
	}
	defer logFile.Close()
	slog.SetDefault(newLogger(logFile, cfg.Log.Level))

	e, err := newEnv(cfg, true)
	if err != nil {
		fmt.Fprintf(stderr, "starting: %v\n", err)
		return 1
	}
	defer e.Close()

	deps := app.Deps{
		Drafter:  e.composer,
		Selector: e.selector,
		Form: draftform.Options{
			Subject:    cfg.Form.Subject,
			Body:       cfg.Form.Body,
			BodyFormat: cfg.Form.BodyFormat,
			UserEmail:  e.detectUser(context.Background()),
		},
	}
	if e.journal != nil {
		deps.Journal = e.journal
	}
	slog.Info("form started", "backend", cfg.Mail.Backend, "user", deps.Form.UserEmail)

	p := tea.NewProgram(app.New(deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(stderr, "running form: %v\n", err)
		return 1
	}
	return 0
}

func runHistory(g globalFlags, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("history", "[flags]", stderr)
	limit := fs.IntP("limit", "l", 20, "number of entries to show")
	status := fs.String("status", "", "only show created, skipped or failed entries")
	recipient := fs.String("recipient", "", "only show entries for this recipient")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(g, stderr)
	if err != nil {
		slog.Error("loading config", "error", err)
		return 1
	}
	if !cfg.Journal.Enabled {
		fmt.Fprintln(stdout, "Journal disabled (journal.enabled: false)")
		return 0
	}

	e, err := newEnv(cfg, false)
	if err != nil {
		slog.Error("starting", "error", err)
		return 1
	}
	defer e.Close()

	filter := store.DraftFilter{Limit: *limit}
	if *status != "" {
		filter.Status = status
	}
	if *recipient != "" {
		filter.Recipient = recipient
	}

	records, err := e.journal.GetDrafts(context.Background(), filter)
	if err != nil {
		slog.Error("reading journal", "error", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "No drafts yet")
		return 0
	}

	fmt.Fprintln(stdout, historyTable(records, time.Now()))
	return 0
}

// historyTable renders journal entries as a bordered table.
func historyTable(records []model.DraftRecord, now time.Time) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("WHEN", "STATUS", "RECIPIENT", "FOLDER", "FILES", "REF / ERROR")

	for _, r := range records {
		detail := r.DraftRef
		if r.Error != "" {
			detail = r.Error
		}
		t.Row(
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
			r.Status,
			r.Recipient,
			r.Folder,
			strconv.Itoa(len(r.Attachments)),
			detail,
		)
	}
	return t.String()
}

// loginHint returns advice for failures caused by rejected credentials.
func loginHint(err error) string {
	if !mailclient.IsAuthError(err) {
		return ""
	}
	return "The mail server rejected the credentials; run `maildraft login` to store the IMAP password."
}

func runLogin(g globalFlags, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("login", "[--username name] [--forget]", stderr)
	username := fs.StringP("username", "u", "", "IMAP username (default mail.imap.username)")
	forget := fs.Bool("forget", false, "remove the stored password instead of setting it")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(g, stderr)
	if err != nil && *username == "" {
		slog.Error("loading config", "error", err)
		return 1
	}
	if *username == "" {
		*username = cfg.Mail.IMAP.Username
	}
	if *username == "" {
		fmt.Fprintln(stderr, "no IMAP username: set mail.imap.username or pass --username")
		return 2
	}

	if *forget {
		if err := credential.Delete(credential.IMAPKey(*username)); err != nil {
			fmt.Fprintf(stderr, "removing password: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "✓ Password for %s removed from the keyring\n", *username)
		return 0
	}

	var password string
	err = huh.NewInput().
		Title("IMAP password for " + *username).
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Validate(func(s string) error {
			if s == "" {
				return fmt.Errorf("password is required")
			}
			return nil
		}).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 130
		}
		fmt.Fprintf(stderr, "reading password: %v\n", err)
		return 1
	}

	if err := credential.Set(credential.IMAPKey(*username), password); err != nil {
		fmt.Fprintf(stderr, "storing password: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "✓ Password for %s stored in the keyring\n", *username)
	return 0
}

// checkResult is the outcome of one doctor check.
type checkResult struct {
	name   string
	detail string
	err    error
}

func runDoctor(g globalFlags, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("doctor", "", stderr)
	timeout := fs.Duration("timeout", 20*time.Second, "overall time limit for the checks")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(g, stderr)
	if err != nil {
		fmt.Fprintf(stdout, "✗ config: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "✓ config: %s (backend %s)\n", g.configPath, cfg.Mail.Backend)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	results := doctorChecks(ctx, cfg)

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(stdout, "✗ %s: %v\n", r.name, r.err)
			continue
		}
		fmt.Fprintf(stdout, "✓ %s: %s\n", r.name, r.detail)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// doctorChecks runs the independent environment checks concurrently.
// Each check records its own failure; one failing check does not cancel
// the others.
func doctorChecks(ctx context.Context, cfg *model.AppConfig) []checkResult {
	results := make([]checkResult, 3)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results[0] = checkJournal(ctx, cfg)
		return nil
	})
	g.Go(func() error {
		results[1] = checkMail(ctx, cfg)
		return nil
	})
	g.Go(func() error {
		results[2] = checkEMLDir(cfg)
		return nil
	})

	_ = g.Wait()
	return results
}

func checkJournal(ctx context.Context, cfg *model.AppConfig) checkResult {
	r := checkResult{name: "journal"}
	if !cfg.Journal.Enabled {
		r.detail = "disabled"
		return r
	}
	s, err := store.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		r.err = err
		return r
	}
	defer s.Close()

	counts, err := s.GetDraftCounts(ctx)
	if err != nil {
		r.err = err
		return r
	}
	r.detail = fmt.Sprintf("%s (%d created, %d skipped, %d failed)", cfg.Journal.Path,
		counts[model.DraftStatusCreated], counts[model.DraftStatusSkipped], counts[model.DraftStatusFailed])
	return r
}

func checkMail(ctx context.Context, cfg *model.AppConfig) checkResult {
	r := checkResult{name: "mail " + cfg.Mail.Backend}

	e, err := newEnv(&model.AppConfig{Mail: cfg.Mail, Identity: cfg.Identity}, true)
	if err != nil {
		r.err = err
		return r
	}
	defer e.Close()

	client, err := e.opener.Open(ctx)
	if err != nil {
		r.err = err
		return r
	}
	defer client.Close()

	accounts, err := client.Accounts(ctx)
	if err != nil {
		r.err = fmt.Errorf("listing accounts: %w", err)
		return r
	}
	r.detail = fmt.Sprintf("connected, %d account(s)", len(accounts))
	return r
}

func checkEMLDir(cfg *model.AppConfig) checkResult {
	r := checkResult{name: "drafts dir"}
	if cfg.Mail.Backend != model.BackendEML {
		r.detail = "not used by the " + cfg.Mail.Backend + " backend"
		return r
	}
	if err := os.MkdirAll(cfg.Mail.EML.Dir, 0o755); err != nil {
		r.err = err
		return r
	}
	tmp, err := os.CreateTemp(cfg.Mail.EML.Dir, ".maildraft-check-*")
	if err != nil {
		r.err = fmt.Errorf("not writable: %w", err)
		return r
	}
	tmp.Close()
	os.Remove(tmp.Name())
	r.detail = cfg.Mail.EML.Dir
	return r
}

func runWhoami(g globalFlags, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("whoami", "", stderr)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(g, stderr)
	if err != nil {
		slog.Error("loading config", "error", err)
		return 1
	}
	cfg.Journal.Enabled = false

	e, err := newEnv(cfg, true)
	if err != nil {
		slog.Error("starting", "error", err)
		return 1
	}
	defer e.Close()

	fmt.Fprintln(stdout, e.detectUser(context.Background()))
	return 0
}

func runInit(g globalFlags, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("init", "[--force]", stderr)
	force := fs.Bool("force", false, "overwrite an existing config file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if _, err := os.Stat(g.configPath); err == nil && !*force {
		fmt.Fprintf(stderr, "%s already exists (use --force to overwrite)\n", g.configPath)
		return 1
	}

	if err := model.SaveConfig(g.configPath, model.DefaultAppConfig()); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "✓ Wrote %s\n", g.configPath)
	return 0
}
