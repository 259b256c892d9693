// Package mxcheck drops email addresses whose domain publishes no MX record.
package mxcheck

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

var DefaultServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

const defaultTimeout = 3 * time.Second

type Options struct {
	Servers []string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Verifier answers per-domain MX lookups and remembers each answer for the
// lifetime of the process.
type Verifier struct {
	servers []string
	client  *dns.Client
	logger  zerolog.Logger

	mu    sync.Mutex
	cache map[string]bool
}

func New(opts Options) *Verifier {
	servers := opts.Servers
	if len(servers) == 0 {
		servers = DefaultServers
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Verifier{
		servers: servers,
		client:  &dns.Client{Timeout: timeout},
		logger:  opts.Logger,
		cache:   map[string]bool{},
	}
}

// Valid reports whether the domain of email accepts mail. Domains that no
// server could answer for are kept and not cached.
func (v *Verifier) Valid(email string) bool {
	domain := Domain(email)
	if domain == "" {
		return false
	}

	v.mu.Lock()
	ok, cached := v.cache[domain]
	v.mu.Unlock()
	if cached {
		return ok
	}

	ok, err := v.lookup(domain)
	if err != nil {
		v.logger.Debug().Err(err).Str("domain", domain).Msg("mx lookup unresolved, keeping address")
		return true
	}
	v.mu.Lock()
	v.cache[domain] = ok
	v.mu.Unlock()
	return ok
}

// lookup returns an error only when no server gave an authoritative
// NOERROR or NXDOMAIN answer.
func (v *Verifier) lookup(domain string) (bool, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range v.servers {
		resp, _, err := v.client.Exchange(msg, server)
		if err != nil {
			lastErr = fmt.Errorf("query %s: %w", server, err)
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
			for _, answer := range resp.Answer {
				if _, isMX := answer.(*dns.MX); isMX {
					return true, nil
				}
			}
			return false, nil
		case dns.RcodeNameError:
			return false, nil
		default:
			lastErr = fmt.Errorf("query %s: rcode %s", server, dns.RcodeToString[resp.Rcode])
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no dns servers configured")
	}
	return false, lastErr
}

// Domain returns the lowercased part after the last "@", or "".
func Domain(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
