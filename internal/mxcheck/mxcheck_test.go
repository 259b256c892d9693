package mxcheck

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

// startServer runs a local resolver that only knows MX records for mail.test
// and fails every query for broken.test.
func startServer(t *testing.T, queries *int32) string {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        conn,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			atomic.AddInt32(queries, 1)
			resp := new(dns.Msg)
			resp.SetReply(req)
			switch req.Question[0].Name {
			case "mail.test.":
				rr, err := dns.NewRR("mail.test. 300 IN MX 10 mx.mail.test.")
				if err == nil {
					resp.Answer = append(resp.Answer, rr)
				}
			case "broken.test.":
				resp.Rcode = dns.RcodeServerFailure
			default:
				resp.Rcode = dns.RcodeNameError
			}
			_ = w.WriteMsg(resp)
		}),
	}
	go func() { _ = server.ActivateAndServe() }()
	t.Cleanup(func() { _ = server.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("dns server did not start")
	}
	return conn.LocalAddr().String()
}

func TestVerifierValid(t *testing.T) {
	var queries int32
	addr := startServer(t, &queries)
	verifier := New(Options{Servers: []string{addr}, Timeout: time.Second, Logger: zerolog.Nop()})

	if !verifier.Valid("info@Mail.test") {
		t.Fatalf("expected mail.test to have MX")
	}
	if verifier.Valid("info@nomail.test") {
		t.Fatalf("expected nomail.test to be rejected")
	}
	if !verifier.Valid("sales@mail.test") {
		t.Fatalf("expected cached MX answer")
	}
	if got := atomic.LoadInt32(&queries); got != 2 {
		t.Fatalf("expected 2 lookups, got %d", got)
	}
}

func TestVerifierKeepsAddressWhenServerFails(t *testing.T) {
	var queries int32
	addr := startServer(t, &queries)
	verifier := New(Options{Servers: []string{addr}, Timeout: time.Second, Logger: zerolog.Nop()})

	for i := 0; i < 2; i++ {
		if !verifier.Valid("info@broken.test") {
			t.Fatalf("SERVFAIL should keep the address")
		}
	}
	if got := atomic.LoadInt32(&queries); got != 2 {
		t.Fatalf("failed lookups should not be cached, got %d queries", got)
	}
}

func TestVerifierKeepsAddressWhenUnreachable(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closed := conn.LocalAddr().String()
	_ = conn.Close()

	verifier := New(Options{Servers: []string{closed}, Timeout: 200 * time.Millisecond, Logger: zerolog.Nop()})
	if !verifier.Valid("info@mail.test") {
		t.Fatalf("unreachable resolver should keep the address")
	}
	if _, cached := verifier.cache["mail.test"]; cached {
		t.Fatalf("unresolved domain should not be cached")
	}
}

func TestVerifierRejectsMalformed(t *testing.T) {
	verifier := New(Options{Servers: []string{"127.0.0.1:1"}, Timeout: 100 * time.Millisecond})
	for _, email := range []string{"", "no-at-sign", "@mail.test", "user@"} {
		if verifier.Valid(email) {
			t.Fatalf("Valid(%q) = true", email)
		}
	}
}

func TestDomain(t *testing.T) {
	cases := map[string]string{
		"a@Example.COM": "example.com",
		"a@b@c.test":    "c.test",
		"plain":         "",
	}
	for input, want := range cases {
		if got := Domain(input); got != want {
			t.Fatalf("Domain(%q) = %q, want %q", input, got, want)
		}
	}
}
