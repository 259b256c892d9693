package network

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
)

type statusSender struct {
	status int
	calls  int32
	agents sync.Map
}

func (s *statusSender) Do(req *fhttp.Request) (*fhttp.Response, error) {
	atomic.AddInt32(&s.calls, 1)
	s.agents.Store(req.Header.Get("User-Agent"), true)
	return &fhttp.Response{
		StatusCode: s.status,
		Header:     fhttp.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}, nil
}

func TestClientReportsStatusAgainstSendingProxy(t *testing.T) {
	rotator, err := NewRotator([]string{"http://good:8080", "http://blocked:8080"}, time.Hour)
	if err != nil {
		t.Fatalf("NewRotator() error = %v", err)
	}
	good := &statusSender{status: 200}
	blocked := &statusSender{status: 429}
	client := &Client{
		rotator: rotator,
		routes: map[string]Doer{
			"http://good:8080":    good,
			"http://blocked:8080": blocked,
		},
		headers: map[string]string{"User-Agent": DefaultUserAgent},
		logger:  zerolog.Nop(),
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := fhttp.NewRequest(fhttp.MethodGet, "http://directory.test/search", nil)
			if err != nil {
				t.Errorf("NewRequest() error = %v", err)
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				t.Errorf("Do() error = %v", err)
				return
			}
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()

	goodCalls, blockedCalls := atomic.LoadInt32(&good.calls), atomic.LoadInt32(&blocked.calls)
	if goodCalls == 0 || blockedCalls == 0 {
		t.Fatalf("both proxies should be used, good=%d blocked=%d", goodCalls, blockedCalls)
	}
	for i := 0; i < 4; i++ {
		proxy, err := rotator.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if proxy.Host != "good:8080" {
			t.Fatalf("only the proxy that returned 429 should be banned, got %s", proxy.Host)
		}
	}
	if _, ok := good.agents.Load(DefaultUserAgent); !ok {
		t.Fatalf("default headers not applied")
	}
}

func TestClientAllProxiesBanned(t *testing.T) {
	rotator, err := NewRotator([]string{"http://blocked:8080"}, time.Hour)
	if err != nil {
		t.Fatalf("NewRotator() error = %v", err)
	}
	blocked := &statusSender{status: 403}
	client := &Client{
		rotator: rotator,
		routes:  map[string]Doer{"http://blocked:8080": blocked},
		headers: map[string]string{},
		logger:  zerolog.Nop(),
	}

	for i := 0; i < 2; i++ {
		req, _ := fhttp.NewRequest(fhttp.MethodGet, "http://directory.test/", nil)
		resp, err := client.Do(req)
		if i == 0 {
			if err != nil {
				t.Fatalf("first Do() error = %v", err)
			}
			_ = resp.Body.Close()
			continue
		}
		if !errors.Is(err, ErrNoProxies) {
			t.Fatalf("Do() error = %v, want ErrNoProxies", err)
		}
	}
	if got := atomic.LoadInt32(&blocked.calls); got != 1 {
		t.Fatalf("banned proxy should not be used again, calls=%d", got)
	}
}

// newTunnelProxy answers CONNECT by piping bytes to the requested host.
func newTunnelProxy(t *testing.T, connects *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodConnect {
			http.Error(w, "connect only", http.StatusMethodNotAllowed)
			return
		}
		atomic.AddInt32(connects, 1)
		upstream, err := net.Dial("tcp", r.Host)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		hijacker, ok := w.(http.Hijacker)
		if !ok {
			_ = upstream.Close()
			http.Error(w, "hijack unsupported", http.StatusInternalServerError)
			return
		}
		conn, _, err := hijacker.Hijack()
		if err != nil {
			_ = upstream.Close()
			return
		}
		_, _ = conn.Write([]byte("HTTP/1.1 200 Connection established\r\n\r\n"))
		go func() {
			_, _ = io.Copy(upstream, conn)
			_ = upstream.Close()
		}()
		go func() {
			_, _ = io.Copy(conn, upstream)
			_ = conn.Close()
		}()
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientConcurrentRequestsThroughProxies(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(target.Close)

	var connectsA, connectsB int32
	proxyA := newTunnelProxy(t, &connectsA)
	proxyB := newTunnelProxy(t, &connectsB)

	rotator, err := NewRotator([]string{proxyA.URL, proxyB.URL}, time.Minute)
	if err != nil {
		t.Fatalf("NewRotator() error = %v", err)
	}
	client, err := NewClient(rotator, Options{Timeout: 5 * time.Second, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := fhttp.NewRequest(fhttp.MethodGet, target.URL, nil)
			if err != nil {
				t.Errorf("NewRequest() error = %v", err)
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				t.Errorf("Do() error = %v", err)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != 200 {
				t.Errorf("status = %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	a, b := atomic.LoadInt32(&connectsA), atomic.LoadInt32(&connectsB)
	if a == 0 || b == 0 {
		t.Fatalf("expected traffic through both proxies, a=%d b=%d", a, b)
	}
}

func TestNewClientWithoutProxies(t *testing.T) {
	client, err := NewClient(nil, Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.direct == nil || client.routes != nil {
		t.Fatalf("expected a direct transport only")
	}
}
