package network

import (
	"errors"
	"net/url"
	"sync"
	"time"
)

var ErrNoProxies = errors.New("no proxies available")

// Rotator hands out proxies round-robin and benches the ones the
// directory starts refusing.
type Rotator struct {
	proxies     []*url.URL
	banDuration time.Duration
	bannedUntil map[string]time.Time
	index       int
	now         func() time.Time
	mu          sync.Mutex
}

func NewRotator(raw []string, banDuration time.Duration) (*Rotator, error) {
	rotator := &Rotator{
		banDuration: banDuration,
		bannedUntil: map[string]time.Time{},
		now:         time.Now,
	}

	for _, proxy := range raw {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy must be an absolute URL: " + proxy)
		}
		rotator.proxies = append(rotator.proxies, u)
	}

	return rotator, nil
}

func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// Proxies returns the configured proxies in rotation order.
func (r *Rotator) Proxies() []*url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*url.URL, len(r.proxies))
	copy(out, r.proxies)
	return out
}

func (r *Rotator) Next() (*url.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return nil, ErrNoProxies
	}

	for range r.proxies {
		proxy := r.proxies[r.index]
		r.index = (r.index + 1) % len(r.proxies)
		if !r.isBanned(proxy) {
			return proxy, nil
		}
	}
	return nil, ErrNoProxies
}

// Report benches proxy when status signals blocking and returns whether it did.
func (r *Rotator) Report(proxy *url.URL, status int) bool {
	if proxy == nil || !isBlockedStatus(status) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bannedUntil[proxy.String()] = r.now().Add(r.banDuration)
	return true
}

func isBlockedStatus(status int) bool {
	return status == 403 || status == 429
}

func (r *Rotator) isBanned(proxy *url.URL) bool {
	until, ok := r.bannedUntil[proxy.String()]
	if !ok {
		return false
	}
	if r.now().After(until) {
		delete(r.bannedUntil, proxy.String())
		return false
	}
	return true
}
