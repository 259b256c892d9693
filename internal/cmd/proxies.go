package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/leadcli/internal/config"
	"github.com/jimezsa/leadcli/internal/network"
	"github.com/jimezsa/leadcli/internal/scraper"
)

type ProxiesCmd struct {
	Check ProxyCheckCmd `cmd:"" help:"Validate proxies against a target URL."`
}

type ProxyCheckCmd struct {
	Target  string `help:"Target URL." default:"${proxy_target}"`
	Timeout int    `help:"Timeout in seconds." default:"15"`
	Proxies string `help:"Comma-separated proxy URLs (default: LEADCLI_PROXIES or proxies.txt)."`
}

type ProxyCheckResult struct {
	Proxy     string `json:"proxy"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// ProxyTarget is the default check URL.
const ProxyTarget = scraper.DefaultYellowPagesURL

func (p *ProxyCheckCmd) Run(ctx *Context) error {
	proxies, err := config.LoadProxies(p.Proxies)
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return fmt.Errorf("no proxies configured")
	}

	timeout := time.Duration(p.Timeout) * time.Second
	results := make([]ProxyCheckResult, 0, len(proxies))
	for _, proxy := range proxies {
		results = append(results, checkProxy(ctx, proxy, p.Target, timeout))
	}
	return writeProxyResults(ctx, results)
}

func checkProxy(ctx *Context, proxy string, target string, timeout time.Duration) ProxyCheckResult {
	result := ProxyCheckResult{Proxy: proxy, Status: "error"}

	rotator, err := network.NewRotator([]string{proxy}, 5*time.Minute)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	client, err := network.NewClient(rotator, network.Options{Timeout: timeout, Logger: ctx.Logger})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req, err := fhttp.NewRequest(fhttp.MethodGet, target, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := doWithTimeout(client, req, timeout)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	_ = resp.Body.Close()

	result.LatencyMS = time.Since(start).Milliseconds()
	result.Status = strconv.Itoa(resp.StatusCode)
	return result
}

func doWithTimeout(client network.Doer, req *fhttp.Request, timeout time.Duration) (*fhttp.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()
	return client.Do(req.WithContext(ctx))
}

func writeProxyResults(ctx *Context, results []ProxyCheckResult) error {
	switch {
	case ctx.JSONOutput:
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case ctx.PlainText:
		return writeProxyRows(ctx.Out, results)
	default:
		tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "proxy\tstatus\tlatency_ms\terror")
		if err := writeProxyRows(tw, results); err != nil {
			return err
		}
		return tw.Flush()
	}
}

func writeProxyRows(w io.Writer, results []ProxyCheckResult) error {
	for _, res := range results {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", res.Proxy, res.Status, res.LatencyMS, res.Error); err != nil {
			return err
		}
	}
	return nil
}
