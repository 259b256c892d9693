package scraper

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/leadcli/internal/network"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const maxBodyBytes = 2 << 20

// FetchError reports a GET that did not produce a usable 2xx body.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: http %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchDocument(ctx context.Context, client network.Doer, target string, headers map[string]string) (*goquery.Document, error) {
	_, doc, err := fetchPage(ctx, client, target, headers)
	return doc, err
}

// fetchPage returns the decoded body alongside the parsed document so callers
// can run both regex and selector passes over one response.
func fetchPage(ctx context.Context, client network.Doer, target string, headers map[string]string) (string, *goquery.Document, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return "", nil, &FetchError{URL: target, Err: err}
	}

	applyHeaders(req, headers)
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, &FetchError{URL: target, Status: resp.StatusCode}
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", nil, &FetchError{URL: target, Err: err}
	}
	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return "", nil, &FetchError{URL: target, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", nil, &FetchError{URL: target, Err: err}
	}
	return string(body), doc, nil
}

func applyHeaders(req *fhttp.Request, headers map[string]string) {
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["accept"]; !ok {
		headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}

func cleanText(value string) string {
	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

// textParts collects every non-blank text node under sel in document order.
func textParts(sel *goquery.Selection) []string {
	var parts []string
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		switch n.Type {
		case nethtml.TextNode:
			if text := cleanText(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		case nethtml.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return parts
}

func joinedText(sel *goquery.Selection, sep string) string {
	return strings.Join(textParts(sel), sep)
}

func absoluteURL(base string, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
