package model

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mail backends understood by the mail client factory.
const (
	BackendOutlook = "outlook"
	BackendIMAP    = "imap"
	BackendEML     = "eml"
)

// Batch file encodings.
const (
	EncodingUTF16 = "utf-16"
	EncodingUTF8  = "utf-8"
)

// Body formats accepted by the interactive form.
const (
	BodyFormatText     = "text"
	BodyFormatMarkdown = "markdown"
)

// DefaultSubject is the subject used when none is configured.
const DefaultSubject = "Documents Attached"

// DefaultFormBody is the plain-text body the form starts with.
const DefaultFormBody = "Dear recipient,\n\nPlease find the attached documents.\n\nBest regards"

// DefaultBatchBody is the HTML body used for every batch draft.
const DefaultBatchBody = "<p>Dear recipient,<br>Please find the attached documents.</p>"

// envPrefix prefixes every environment override, e.g. MAILDRAFT_MAIL_BACKEND.
const envPrefix = "MAILDRAFT"

// IMAPConfig holds the settings of the IMAP drafts backend.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Security is one of "tls", "starttls" or "none".
	Security string `mapstructure:"security" yaml:"security"`

	// DraftsMailbox overrides special-use detection of the drafts folder.
	DraftsMailbox string `mapstructure:"drafts_mailbox" yaml:"drafts_mailbox"`

	// From is written to the From header; defaults to Username.
	From string `mapstructure:"from" yaml:"from"`
}

// EMLConfig holds the settings of the .eml directory backend.
type EMLConfig struct {
	Dir  string `mapstructure:"dir" yaml:"dir"`
	From string `mapstructure:"from" yaml:"from"`
}

// MailConfig selects and configures the mail client backend.
type MailConfig struct {
	Backend string     `mapstructure:"backend" yaml:"backend"`
	IMAP    IMAPConfig `mapstructure:"imap" yaml:"imap"`
	EML     EMLConfig  `mapstructure:"eml" yaml:"eml"`
}

// BatchConfig holds the fixed template and options of the batch driver.
type BatchConfig struct {
	Subject   string `mapstructure:"subject" yaml:"subject"`
	Body      string `mapstructure:"body" yaml:"body"`
	Encoding  string `mapstructure:"encoding" yaml:"encoding"`
	KeepGoing bool   `mapstructure:"keep_going" yaml:"keep_going"`
}

// FormConfig holds the defaults of the interactive form.
type FormConfig struct {
	Subject    string `mapstructure:"subject" yaml:"subject"`
	Body       string `mapstructure:"body" yaml:"body"`
	BodyFormat string `mapstructure:"body_format" yaml:"body_format"`
}

// IdentityConfig controls detection of the current user's address.
type IdentityConfig struct {
	// Address skips detection entirely when set.
	Address string `mapstructure:"address" yaml:"address"`

	// DefaultDomain is the last resort domain for the username@domain guess.
	DefaultDomain string `mapstructure:"default_domain" yaml:"default_domain"`
}

// JournalConfig controls the SQLite draft journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ComposeConfig bounds a single compose call.
type ComposeConfig struct {
	// TimeoutSec is the compose timeout in seconds; 0 disables it.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the compose timeout as a duration.
func (c ComposeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Mail     MailConfig     `mapstructure:"mail" yaml:"mail"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch"`
	Form     FormConfig     `mapstructure:"form" yaml:"form"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Journal  JournalConfig  `mapstructure:"journal" yaml:"journal"`
	Compose  ComposeConfig  `mapstructure:"compose" yaml:"compose"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/maildraft, or the working directory when
// the home directory cannot be determined.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "maildraft")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/maildraft/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultBackend picks Outlook where COM automation exists.
func defaultBackend() string {
	if runtime.GOOS == "windows" {
		return BackendOutlook
	}
	return BackendEML
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Mail: MailConfig{
			Backend: defaultBackend(),
			IMAP: IMAPConfig{
				Port:     "993",
				Security: "tls",
			},
			EML: EMLConfig{
				Dir: filepath.Join(dir, "drafts"),
			},
		},
		Batch: BatchConfig{
			Subject:  DefaultSubject,
			Body:     DefaultBatchBody,
			Encoding: EncodingUTF16,
		},
		Form: FormConfig{
			Subject:    DefaultSubject,
			Body:       DefaultFormBody,
			BodyFormat: BodyFormatText,
		},
		Identity: IdentityConfig{
			DefaultDomain: "example.com",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "journal.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "maildraft.log"),
		},
	}
}

// setDefaults registers every default with v so that missing keys and
// environment overrides both resolve.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("mail.backend", d.Mail.Backend)
	v.SetDefault("mail.imap.host", d.Mail.IMAP.Host)
	v.SetDefault("mail.imap.port", d.Mail.IMAP.Port)
	v.SetDefault("mail.imap.username", d.Mail.IMAP.Username)
	v.SetDefault("mail.imap.security", d.Mail.IMAP.Security)
	v.SetDefault("mail.imap.drafts_mailbox", d.Mail.IMAP.DraftsMailbox)
	v.SetDefault("mail.imap.from", d.Mail.IMAP.From)
	v.SetDefault("mail.eml.dir", d.Mail.EML.Dir)
	v.SetDefault("mail.eml.from", d.Mail.EML.From)
	v.SetDefault("batch.subject", d.Batch.Subject)
	v.SetDefault("batch.body", d.Batch.Body)
	v.SetDefault("batch.encoding", d.Batch.Encoding)
	v.SetDefault("batch.keep_going", d.Batch.KeepGoing)
	v.SetDefault("form.subject", d.Form.Subject)
	v.SetDefault("form.body", d.Form.Body)
	v.SetDefault("form.body_format", d.Form.BodyFormat)
	v.SetDefault("identity.address", d.Identity.Address)
	v.SetDefault("identity.default_domain", d.Identity.DefaultDomain)
	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("compose.timeout_sec", d.Compose.TimeoutSec)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory and MAILDRAFT_* environment
// variables override file values. If the file does not exist, defaults
// (plus overrides) are used.
func LoadConfig(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultAppConfig())

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Mail.IMAP.From == "" {
		cfg.Mail.IMAP.From = cfg.Mail.IMAP.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks enumerated settings and backend requirements.
func (c *AppConfig) Validate() error {
	switch c.Mail.Backend {
	case BackendOutlook, BackendEML:
	case BackendIMAP:
		if c.Mail.IMAP.Host == "" {
			return fmt.Errorf("mail.imap.host is required for the imap backend")
		}
		if c.Mail.IMAP.Username == "" {
			return fmt.Errorf("mail.imap.username is required for the imap backend")
		}
		switch c.Mail.IMAP.Security {
		case "tls", "starttls", "none":
		default:
			return fmt.Errorf("unknown mail.imap.security %q", c.Mail.IMAP.Security)
		}
	default:
		return fmt.Errorf("unknown mail.backend %q", c.Mail.Backend)
	}

	switch c.Batch.Encoding {
	case EncodingUTF16, EncodingUTF8:
	default:
		return fmt.Errorf("unknown batch.encoding %q", c.Batch.Encoding)
	}

	switch c.Form.BodyFormat {
	case BodyFormatText, BodyFormatMarkdown:
	default:
		return fmt.Errorf("unknown form.body_format %q", c.Form.BodyFormat)
	}

	if c.Compose.TimeoutSec < 0 {
		return fmt.Errorf("compose.timeout_sec must not be negative")
	}

	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("mail", cfg.Mail)
	v.Set("batch", cfg.Batch)
	v.Set("form", cfg.Form)
	v.Set("identity", cfg.Identity)
	v.Set("journal", cfg.Journal)
	v.Set("compose", cfg.Compose)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
