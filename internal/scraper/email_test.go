package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestResolver(doer *fakeDoer) *EmailResolver {
	return NewEmailResolver(doer, EmailResolverOptions{Concurrency: 2})
}

func TestResolveHomePageOnly(t *testing.T) {
	doer := newFakeDoer(map[string]fakeResponse{
		"https://acme.test/": {body: `<a href="mailto:a@x.com">A</a> <a href="mailto:b@x.com">B</a>`},
	})

	got := newTestResolver(doer).Resolve(context.Background(), "https://acme.test/")
	if got != "a@x.com, b@x.com" {
		t.Fatalf("Resolve() = %q", got)
	}
	if calls := doer.Calls(); len(calls) != 1 {
		t.Fatalf("expected 1 fetch, got %v", calls)
	}
}

func TestResolveHomeFailure(t *testing.T) {
	doer := newFakeDoer(map[string]fakeResponse{
		"https://down.test/": {err: errors.New("dial tcp: no such host")},
	})

	if got := newTestResolver(doer).Resolve(context.Background(), "https://down.test/"); got != "" {
		t.Fatalf("Resolve() = %q, want empty", got)
	}
	if calls := doer.Calls(); len(calls) != 1 {
		t.Fatalf("expected 1 fetch, got %v", calls)
	}
}

func TestResolveFollowsContactLink(t *testing.T) {
	cases := []struct {
		name    string
		website string
		href    string
		contact string
	}{
		{"root relative", "https://acme.test/about/", "/contact-us", "https://acme.test/contact-us"},
		{"bare relative", "https://acme.test/about/", "contact.html", "https://acme.test/about/contact.html"},
		{"absolute", "https://acme.test/", "https://acme.test/Contact", "https://acme.test/Contact"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doer := newFakeDoer(map[string]fakeResponse{
				tc.website: {body: `<a href="mailto:sales@acme.test">Sales</a><a href="` + tc.href + `">Contact</a>`},
				tc.contact: {body: `<p>Write to <a href="mailto:info@acme.test">info@acme.test</a></p>`},
			})

			got := newTestResolver(doer).Resolve(context.Background(), tc.website)
			if got != "sales@acme.test, info@acme.test" {
				t.Fatalf("Resolve() = %q", got)
			}
			calls := doer.Calls()
			if len(calls) != 2 || calls[1] != tc.contact {
				t.Fatalf("unexpected calls: %v", calls)
			}
		})
	}
}

func TestResolveContactFailureKeepsHomeEmails(t *testing.T) {
	doer := newFakeDoer(map[string]fakeResponse{
		"https://acme.test/": {body: `<a href="mailto:owner@acme.test">Owner</a><a href="/contact">Contact</a>`},
		"https://acme.test/contact": {status: 500},
	})

	got := newTestResolver(doer).Resolve(context.Background(), "https://acme.test/")
	if got != "owner@acme.test" {
		t.Fatalf("Resolve() = %q", got)
	}
}

func TestResolveDeduplicatesAcrossPages(t *testing.T) {
	doer := newFakeDoer(map[string]fakeResponse{
		"https://acme.test/": {body: `<a href="mailto:info@acme.test">x</a><a href="mailto:info@acme.test">y</a><a href="/contact">Contact us</a>`},
		"https://acme.test/contact": {body: `<a href="mailto:info@acme.test">x</a><a href="mailto:jobs@acme.test">y</a>`},
	})

	got := newTestResolver(doer).Resolve(context.Background(), "https://acme.test/")
	if got != "info@acme.test, jobs@acme.test" {
		t.Fatalf("Resolve() = %q", got)
	}
}

func TestResolveSkipsNonNavigableContactLinks(t *testing.T) {
	doer := newFakeDoer(map[string]fakeResponse{
		"https://acme.test/": {body: `<a href="mailto:contact@acme.test">mail</a><a href="tel:5550100">contact</a>`},
	})

	got := newTestResolver(doer).Resolve(context.Background(), "https://acme.test/")
	if got != "contact@acme.test" {
		t.Fatalf("Resolve() = %q", got)
	}
	if calls := doer.Calls(); len(calls) != 1 {
		t.Fatalf("expected no contact fetch, got %v", calls)
	}
}

type rejectVerifier struct {
	reject string
}

func (v rejectVerifier) Valid(email string) bool {
	return !strings.HasSuffix(email, v.reject)
}

func TestResolveAppliesVerifier(t *testing.T) {
	doer := newFakeDoer(map[string]fakeResponse{
		"https://acme.test/": {body: `<a href="mailto:a@acme.test">a</a><a href="mailto:b@dead.test">b</a>`},
	})
	resolver := NewEmailResolver(doer, EmailResolverOptions{Verifier: rejectVerifier{reject: "@dead.test"}})

	if got := resolver.Resolve(context.Background(), "https://acme.test/"); got != "a@acme.test" {
		t.Fatalf("Resolve() = %q", got)
	}
}

func TestMatchEmails(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"mailto preferred", `<a href="mailto:a@x.com">a</a> plain@x.com`, "a@x.com"},
		{"bare fallback", `Email us at hello@shop.test.`, "hello@shop.test"},
		{"asset filtered", `<img src="logo@2x.png"> icon@retina.png`, ""},
		{"none", `<p>call us</p>`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := strings.Join(matchEmails(tc.content), ", ")
			if got != tc.want {
				t.Fatalf("matchEmails() = %q, want %q", got, tc.want)
			}
		})
	}
}
