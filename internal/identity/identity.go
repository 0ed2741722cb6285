// Package identity works out the current user's email address.
package identity

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/user"
	"strings"

	"github.com/nhle/maildraft/internal/mailclient"
)

// Env is the slice of the host environment used for the address guess.
type Env struct {
	Getenv     func(key string) string
	Username   func() (string, error)
	Hostname   func() (string, error)
	LookupFQDN func(host string) string
}

// DefaultEnv reads the real process environment.
func DefaultEnv() Env {
	return Env{
		Getenv: os.Getenv,
		Username: func() (string, error) {
			u, err := user.Current()
			if err != nil {
				return "", err
			}
			return u.Username, nil
		},
		Hostname:   os.Hostname,
		LookupFQDN: lookupFQDN,
	}
}

// lookupFQDN resolves host to its canonical name, falling back to host.
func lookupFQDN(host string) string {
	cname, err := net.LookupCNAME(host)
	if err != nil || cname == "" {
		return host
	}
	return strings.TrimSuffix(cname, ".")
}

// Detect returns the user's address. The mail client is asked first: the
// first account's SMTP address, then the current user's address when it
// looks like one. Otherwise the address is guessed as username@domain.
// client may be nil.
func Detect(ctx context.Context, client mailclient.Client, env Env, defaultDomain string) string {
	if client != nil {
		accounts, err := client.Accounts(ctx)
		if err != nil {
			slog.Debug("listing mail accounts", "error", err)
		} else if len(accounts) > 0 && accounts[0].Address != "" {
			return accounts[0].Address
		}

		addr, err := client.CurrentUser(ctx)
		if err != nil {
			slog.Debug("reading current mail user", "error", err)
		} else if strings.Contains(addr, "@") {
			return addr
		}
	}

	return Guess(env, defaultDomain)
}

// Guess builds username@domain from the environment.
func Guess(env Env, defaultDomain string) string {
	name := "user"
	if env.Username != nil {
		if u, err := env.Username(); err == nil && u != "" {
			name = u
		}
	}
	// Windows reports DOMAIN\user.
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return name + "@" + GuessDomain(env, defaultDomain)
}

// GuessDomain returns the company domain: USERDNSDOMAIN when it holds a
// dotted name, else the host FQDN without its first label (unless it is a
// .local name), else defaultDomain.
func GuessDomain(env Env, defaultDomain string) string {
	if env.Getenv != nil {
		if d := strings.ToLower(env.Getenv("USERDNSDOMAIN")); strings.Contains(d, ".") {
			return d
		}
	}

	if env.Hostname != nil {
		if host, err := env.Hostname(); err == nil && host != "" {
			fqdn := host
			if env.LookupFQDN != nil {
				fqdn = env.LookupFQDN(host)
			}
			if strings.Contains(fqdn, ".") && !strings.HasSuffix(fqdn, ".local") {
				if _, domain, ok := strings.Cut(fqdn, "."); ok && domain != "" {
					return domain
				}
			}
		}
	}

	return defaultDomain
}
